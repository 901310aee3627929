// Package staleness classifies runs by time since their last check.
package staleness

import (
	"fmt"
	"math"
	"time"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
)

// Tier is a freshness band.
type Tier string

const (
	TierFresh Tier = "fresh"
	TierAging Tier = "aging"
	TierStale Tier = "stale"
)

const (
	agingAfterMinutes = 60
	staleAfterMinutes = 120
)

// Color is the display color the frontend uses for t.
func (t Tier) Color() string {
	switch t {
	case TierFresh:
		return "green"
	case TierAging:
		return "yellow"
	default:
		return "red"
	}
}

// RunStatus is one run's state at calculation time.
// LastCheck and MinutesSince are nil when the run has never been checked.
type RunStatus struct {
	Run          model.Run
	Tier         Tier
	LastCheck    *model.RunCheck
	MinutesSince *float64
}

// Section groups statuses that share a section name.
type Section struct {
	Name string
	Runs []RunStatus
}

// Calculate joins runs with checks as of now. Runs keep their input order.
func Calculate(runs []model.Run, checks []model.RunCheck, now time.Time) []RunStatus {
	out := make([]RunStatus, 0, len(runs))
	for _, run := range runs {
		status := RunStatus{Run: run, Tier: TierStale}

		var last *model.RunCheck
		for i := range checks {
			c := &checks[i]
			if !c.Matches(run) {
				continue
			}
			if last == nil || c.CheckTime.After(last.CheckTime) {
				last = c
			}
		}

		if last != nil {
			found := *last
			minutes := now.Sub(found.CheckTime).Minutes()
			status.LastCheck = &found
			status.MinutesSince = &minutes
			status.Tier = Classify(minutes)
		}
		out = append(out, status)
	}
	return out
}

// Classify maps elapsed minutes to a tier. Negative values are fresh.
func Classify(minutes float64) Tier {
	switch {
	case minutes < agingAfterMinutes:
		return TierFresh
	case minutes < staleAfterMinutes:
		return TierAging
	default:
		return TierStale
	}
}

// GroupBySection keeps the order in which sections are first seen.
func GroupBySection(statuses []RunStatus) []Section {
	var sections []Section
	index := map[string]int{}
	for _, s := range statuses {
		i, ok := index[s.Run.Section]
		if !ok {
			i = len(sections)
			index[s.Run.Section] = i
			sections = append(sections, Section{Name: s.Run.Section})
		}
		sections[i].Runs = append(sections[i].Runs, s)
	}
	return sections
}

// FormatTimeSince renders elapsed minutes for display.
func FormatTimeSince(minutes *float64) string {
	if minutes == nil {
		return "Never"
	}
	m := *minutes
	if m < 1 {
		return "Just now"
	}
	if m < 60 {
		return fmt.Sprintf("%dm ago", int(math.Floor(m)))
	}

	hours := int(math.Floor(m / 60))
	mins := int(math.Floor(math.Mod(m, 60)))
	if hours < 24 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm ago", hours, mins)
		}
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}
