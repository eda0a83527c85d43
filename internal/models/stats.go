package models

import "time"

// DateLayout is the calendar-date format used for stats days
const DateLayout = "2006-01-02"

// DayCount is the number of comparisons made on one calendar day
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryCounts tracks library size and ranked items for one category
type CategoryCounts struct {
	ItemCount   int `json:"itemCount"`
	RankedCount int `json:"rankedCount"`
}

// UserStats is the per-user engagement aggregate
type UserStats struct {
	UserID             string                       `json:"userId"`
	TotalComparisons   int                          `json:"totalComparisons"`
	TieCount           int                          `json:"tieCount"`
	Categories         map[MediaType]CategoryCounts `json:"categories"`
	CurrentStreak      int                          `json:"currentStreak"`
	LongestStreak      int                          `json:"longestStreak"`
	LastComparisonDate string                       `json:"lastComparisonDate,omitempty"` // empty when never compared
	Last7Days          []DayCount                   `json:"last7Days"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
}

// NewUserStats returns an empty aggregate for userID
func NewUserStats(userID string) *UserStats {
	return &UserStats{
		UserID:     userID,
		Categories: make(map[MediaType]CategoryCounts),
		Last7Days:  []DayCount{},
	}
}

// Clone returns a deep copy
func (s *UserStats) Clone() *UserStats {
	c := *s
	c.Categories = make(map[MediaType]CategoryCounts, len(s.Categories))
	for k, v := range s.Categories {
		c.Categories[k] = v
	}
	c.Last7Days = append([]DayCount{}, s.Last7Days...)
	return &c
}

// TotalItems sums item counts across categories
func (s *UserStats) TotalItems() int {
	total := 0
	for _, c := range s.Categories {
		total += c.ItemCount
	}
	return total
}

// DailyActivity is one labeled point of the 7-day activity series
type DailyActivity struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// AggregatedStats is the read-side projection of UserStats
type AggregatedStats struct {
	TotalComparisons int             `json:"totalComparisons"`
	TodayComparisons int             `json:"todayComparisons"`
	Streak           int             `json:"streak"`
	LongestStreak    int             `json:"longestStreak"`
	AnimeCount       int             `json:"animeCount"`
	MangaCount       int             `json:"mangaCount"`
	RankedAnimeCount int             `json:"rankedAnimeCount"`
	RankedMangaCount int             `json:"rankedMangaCount"`
	TotalItems       int             `json:"totalItems"`
	TieCount         int             `json:"tieCount"`
	Last7Days        []DailyActivity `json:"last7Days"`
}

// TopItem is one leaderboard row
type TopItem struct {
	Rank            int       `json:"rank"`
	ItemID          int64     `json:"itemId"`
	Title           string    `json:"title"`
	CoverImage      string    `json:"coverImage"`
	Type            MediaType `json:"type"`
	Rating          float64   `json:"rating"`
	RD              float64   `json:"rd"`
	Percentile      float64   `json:"percentile"`
	PercentileScore float64   `json:"percentileScore"`
	ComparisonCount int       `json:"comparisonCount"`
}
