package model

import "time"

// Run is a named trail inside a section. (Name, Section) is its identity.
type Run struct {
	Name    string `json:"name"`
	Section string `json:"section"`
}

// RunCheck records that a patroller looked at a run.
// CheckTime is what the patroller reported; CreatedAt is server receipt.
type RunCheck struct {
	ID        string
	RunName   string
	Section   string
	Patroller string
	CheckTime time.Time
	CreatedAt time.Time
}

// Matches reports whether the check belongs to run.
func (c *RunCheck) Matches(run Run) bool {
	return c.RunName == run.Name && c.Section == run.Section
}

// RunCheckInput is a check as submitted, before an ID is assigned.
type RunCheckInput struct {
	RunName   string
	Section   string
	Patroller string
	CheckTime time.Time
}
