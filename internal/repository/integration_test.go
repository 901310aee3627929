//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
)

// ── setup ──

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=runchecks_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect test database: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.AutoMigrate(&model.User{}, &model.MagicLink{}, &model.GoogleOAuth{}); err != nil {
		fmt.Fprintf(os.Stderr, "automigrate: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func createUser(t *testing.T, repo *repository.Repository) *model.User {
	t.Helper()
	user := &model.User{
		Email: fmt.Sprintf("Patroller%d@Example.com", time.Now().UnixNano()),
		Name:  "Test Patroller",
	}
	if err := repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		testDB.Where("user_id = ?", user.ID).Delete(&model.GoogleOAuth{})
		testDB.Where("id = ?", user.ID).Delete(&model.User{})
	})
	return user
}

// ── users ──

func TestUserRepo_EmailIsCaseInsensitive(t *testing.T) {
	repo := repository.NewRepository(testDB)
	user := createUser(t, repo)

	found, err := repo.User.GetByEmail(context.Background(), "PATROLLER"+user.Email[len("patroller"):])
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, found.ID)
	}
}

func TestUserRepo_DeleteMissing(t *testing.T) {
	repo := repository.NewRepository(testDB)

	err := repo.User.Delete(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

// ── magic links ──

func TestMagicLinkRepo_MarkUsedOnce(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	link := &model.MagicLink{
		Token:     fmt.Sprintf("tok-%d", time.Now().UnixNano()),
		Email:     "a@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := repo.MagicLink.Create(ctx, link); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer testDB.Where("token = ?", link.Token).Delete(&model.MagicLink{})

	first, err := repo.MagicLink.MarkUsed(ctx, link.Token)
	if err != nil || !first {
		t.Fatalf("first MarkUsed: ok=%v err=%v", first, err)
	}
	second, err := repo.MagicLink.MarkUsed(ctx, link.Token)
	if err != nil || second {
		t.Fatalf("second MarkUsed must not win: ok=%v err=%v", second, err)
	}
}

// ── google oauth ──

func TestGoogleOAuthRepo_UpsertReplaces(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	user := createUser(t, repo)

	rec := &model.GoogleOAuth{
		UserID:         user.ID,
		AccessToken:    "a1",
		RefreshToken:   "r1",
		TokenExpiresAt: time.Now().Add(time.Hour),
		DriveFolderID:  "folder-1",
		IsActive:       true,
	}
	if err := repo.GoogleOAuth.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec2 := &model.GoogleOAuth{
		UserID:         user.ID,
		AccessToken:    "a2",
		RefreshToken:   "r2",
		TokenExpiresAt: time.Now().Add(time.Hour),
		DriveFolderID:  "folder-2",
		IsActive:       true,
	}
	if err := repo.GoogleOAuth.Upsert(ctx, rec2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.GoogleOAuth.GetByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.AccessToken != "a2" || got.DriveFolderID != "folder-2" {
		t.Errorf("expected replaced row, got %+v", got)
	}

	if err := repo.GoogleOAuth.SetActive(ctx, got.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := repo.GoogleOAuth.GetActive(ctx); err == nil {
		active, _ := repo.GoogleOAuth.GetActive(ctx)
		if active.UserID == user.ID {
			t.Error("inactive link must not be returned as active")
		}
	}
}
