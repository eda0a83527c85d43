package models

import "time"

// ComparisonRecord is one immutable pairwise judgment
type ComparisonRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	WinnerID  int64     `json:"winnerId"`
	LoserID   int64     `json:"loserId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ComparisonPair counts how often two items have been shown together.
// ItemAID is always the smaller id.
type ComparisonPair struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	ItemAID        int64     `json:"itemAId"`
	ItemBID        int64     `json:"itemBId"`
	TimesCompared  int       `json:"timesCompared"`
	LastComparedAt time.Time `json:"lastComparedAt"`
}

// OrderedPair returns the ids with the smaller one first
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Pair is two library items offered for comparison
type Pair struct {
	Item1 LibraryItemWithMedia `json:"item1"`
	Item2 LibraryItemWithMedia `json:"item2"`
}

// ComparisonResult carries the post-update ratings
type ComparisonResult struct {
	WinnerNewRating float64 `json:"winnerNewRating"`
	LoserNewRating  float64 `json:"loserNewRating"`
}

// HistoryEntry is a comparison enriched with both items. A side is nil when
// the item has since been removed from the library.
type HistoryEntry struct {
	ComparisonRecord
	Winner *LibraryItemWithMedia `json:"winner"`
	Loser  *LibraryItemWithMedia `json:"loser"`
}

// ResetResult reports what ResetRankings touched
type ResetResult struct {
	ItemsReset         int `json:"itemsReset"`
	ComparisonsCleared int `json:"comparisonsCleared"`
	PairsCleared       int `json:"pairsCleared"`
}

// ClearResult reports what ClearAllData deleted
type ClearResult struct {
	LibraryItemsDeleted int `json:"libraryItemsDeleted"`
	ComparisonsDeleted  int `json:"comparisonsDeleted"`
	PairsDeleted        int `json:"pairsDeleted"`
}
