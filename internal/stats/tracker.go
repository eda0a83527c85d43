// Package stats implements the engagement aggregate: comparison streaks, the
// rolling 7-day activity window and per-category library counts.
//
// Every transition takes the current aggregate (nil when the user has no row
// yet) and returns a new value; inputs are never modified.
package stats

import (
	"sort"
	"time"

	"mediarank/internal/models"
)

// WindowDays is the length of the rolling activity window
const WindowDays = 7

// LibraryAction is the kind of library change being applied
type LibraryAction int

const (
	ActionAdd LibraryAction = iota
	ActionRemove
)

func (a LibraryAction) String() string {
	if a == ActionRemove {
		return "remove"
	}
	return "add"
}

// Tracker applies stats transitions on a calendar in a fixed location
type Tracker struct {
	loc         *time.Location
	rdThreshold float64
}

// NewTracker creates a tracker. Days start at midnight in loc (time.Local when nil).
func NewTracker(loc *time.Location, rdThreshold float64) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{loc: loc, rdThreshold: rdThreshold}
}

// Midnight returns the start of now's calendar day
func (t *Tracker) Midnight(now time.Time) time.Time {
	n := now.In(t.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, t.loc)
}

func (t *Tracker) dayKey(now time.Time, offsetDays int) string {
	return t.Midnight(now).AddDate(0, 0, offsetDays).Format(models.DateLayout)
}

// RecordComparison counts one comparison made at now
func (t *Tracker) RecordComparison(current *models.UserStats, userID string, now time.Time, isTie bool) *models.UserStats {
	today := t.dayKey(now, 0)

	if current == nil {
		s := models.NewUserStats(userID)
		s.TotalComparisons = 1
		if isTie {
			s.TieCount = 1
		}
		s.CurrentStreak = 1
		s.LongestStreak = 1
		s.LastComparisonDate = today
		s.Last7Days = []models.DayCount{{Date: today, Count: 1}}
		s.UpdatedAt = now
		return s
	}

	s := current.Clone()
	yesterday := t.dayKey(now, -1)

	switch {
	case s.LastComparisonDate == today:
	case s.LastComparisonDate == yesterday:
		s.CurrentStreak++
		s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
	case s.LastComparisonDate == "":
		s.CurrentStreak = 1
		s.LongestStreak = max(s.LongestStreak, 1)
	case s.LastComparisonDate < yesterday:
		s.CurrentStreak = 1
	}
	// A last date after today (clock moved back) leaves the streak alone.

	s.Last7Days = t.bumpWindow(s.Last7Days, now)
	s.TotalComparisons++
	if isTie {
		s.TieCount++
	}
	s.LastComparisonDate = today
	s.UpdatedAt = now
	return s
}

func (t *Tracker) bumpWindow(days []models.DayCount, now time.Time) []models.DayCount {
	today := t.dayKey(now, 0)
	cutoff := t.dayKey(now, -(WindowDays - 1))

	found := false
	out := make([]models.DayCount, 0, len(days)+1)
	for _, d := range days {
		if d.Date == today {
			d.Count++
			found = true
		}
		// entries after today only appear when the clock or location moved back
		if d.Date >= cutoff && d.Date <= today {
			out = append(out, d)
		}
	}
	if !found {
		out = append(out, models.DayCount{Date: today, Count: 1})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ApplyLibraryChange adjusts category counts after an item with the given rd
// was added or removed. It returns nil when there is nothing to store.
func (t *Tracker) ApplyLibraryChange(current *models.UserStats, userID string, category models.MediaType, rd float64, action LibraryAction, now time.Time) *models.UserStats {
	ranked := rd <= t.rdThreshold

	if current == nil {
		if action == ActionRemove {
			return nil
		}
		s := models.NewUserStats(userID)
		c := models.CategoryCounts{ItemCount: 1}
		if ranked {
			c.RankedCount = 1
		}
		s.Categories[category] = c
		s.UpdatedAt = now
		return s
	}

	delta := 1
	if action == ActionRemove {
		delta = -1
	}

	s := current.Clone()
	c := s.Categories[category]
	c.ItemCount = max(0, c.ItemCount+delta)
	if ranked {
		c.RankedCount = max(0, c.RankedCount+delta)
	}
	c.RankedCount = min(c.RankedCount, c.ItemCount)
	s.Categories[category] = c
	s.UpdatedAt = now
	return s
}

// ApplyRankedTransition moves one item of category in or out of the ranked
// count. It returns nil when nothing changes.
func (t *Tracker) ApplyRankedTransition(current *models.UserStats, category models.MediaType, wasRanked, isRanked bool, now time.Time) *models.UserStats {
	if wasRanked == isRanked || current == nil {
		return nil
	}

	delta := -1
	if isRanked {
		delta = 1
	}

	s := current.Clone()
	c := s.Categories[category]
	c.RankedCount = min(max(0, c.RankedCount+delta), c.ItemCount)
	s.Categories[category] = c
	s.UpdatedAt = now
	return s
}

// ResetRankings clears comparison activity but keeps item counts. Ranked counts
// follow the rd every item was reset to.
func (t *Tracker) ResetRankings(current *models.UserStats, resetRD float64, now time.Time) *models.UserStats {
	if current == nil {
		return nil
	}
	s := current.Clone()
	s.TotalComparisons = 0
	s.TieCount = 0
	s.CurrentStreak = 0
	s.LongestStreak = 0
	s.LastComparisonDate = ""
	s.Last7Days = []models.DayCount{}
	ranked := t.IsRanked(resetRD)
	for k, c := range s.Categories {
		c.RankedCount = 0
		if ranked {
			c.RankedCount = c.ItemCount
		}
		s.Categories[k] = c
	}
	s.UpdatedAt = now
	return s
}

// ClearAll zeroes every counter
func (t *Tracker) ClearAll(current *models.UserStats, now time.Time) *models.UserStats {
	if current == nil {
		return nil
	}
	s := models.NewUserStats(current.UserID)
	s.UpdatedAt = now
	return s
}

// IsRanked reports whether an rd counts as ranked for this tracker
func (t *Tracker) IsRanked(rd float64) bool {
	return rd <= t.rdThreshold
}
