package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Server:      ServerConfig{Port: 3000},
		Auth:        AuthConfig{SessionSecret: "0123456789abcdef"},
		RunProvider: RunProviderConfig,
		Timezone:    "America/Los_Angeles",
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
timezone: America/Denver
run_provider: config
auth:
  session_secret: file-secret-0123456789
runs:
  - section: Front Side
    runs: [Geronimo, Easy Street]
  - section: Back Side
    runs: [Outlaw]
superusers:
  - email: Chief@Example.com
    name: Chief
patrollers: [Guest Patroller]
`)
	t.Setenv("RUNCHECKS_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Timezone != "America/Denver" {
		t.Errorf("expected timezone from file, got %s", cfg.Timezone)
	}
	if len(cfg.Runs) != 2 || len(cfg.Runs[0].Runs) != 2 {
		t.Fatalf("unexpected runs: %+v", cfg.Runs)
	}
	if cfg.Location().String() != "America/Denver" {
		t.Errorf("expected loaded location, got %s", cfg.Location())
	}
	if cfg.Auth.Cookie.Name != "bvsp.runcheck.session" {
		t.Errorf("expected default cookie name, got %q", cfg.Auth.Cookie.Name)
	}
	if !cfg.IsSuperuser("chief@example.com") {
		t.Error("expected case-insensitive superuser match")
	}
}

func TestLoad_CatalogFileOverridesInlineRuns(t *testing.T) {
	catalog := writeFile(t, "runs.yaml", `
runs:
  - section: Bowl
    runs: [Chute 1, Chute 2, Chute 3]
`)
	path := writeFile(t, "config.yaml", `
auth:
  session_secret: file-secret-0123456789
catalog:
  file: `+catalog+`
runs:
  - section: Ignored
    runs: [Nope]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Runs) != 1 || cfg.Runs[0].Section != "Bowl" || len(cfg.Runs[0].Runs) != 3 {
		t.Errorf("expected catalog file runs, got %+v", cfg.Runs)
	}
}

func TestLoadCatalogFile_Missing(t *testing.T) {
	if _, err := LoadCatalogFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing catalog file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"short secret", func(c *Config) { c.Auth.SessionSecret = "short" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown provider", func(c *Config) { c.RunProvider = "database" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestSuperuserEmails(t *testing.T) {
	cfg := validConfig()
	cfg.Superusers = []Superuser{{Email: "A@X.org", Name: "A"}, {Email: "b@x.org", Name: "B"}}

	got := cfg.SuperuserEmails()
	if len(got) != 2 || got[0] != "a@x.org" || got[1] != "b@x.org" {
		t.Errorf("unexpected emails: %v", got)
	}
	if cfg.IsSuperuser("") {
		t.Error("empty email must never be a superuser")
	}
}
