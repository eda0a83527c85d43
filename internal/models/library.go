package models

import "time"

// WatchStatus is the user's progress through a media item
type WatchStatus string

const (
	WatchStatusCompleted   WatchStatus = "COMPLETED"
	WatchStatusWatching    WatchStatus = "WATCHING"
	WatchStatusPlanToWatch WatchStatus = "PLAN_TO_WATCH"
	WatchStatusDropped     WatchStatus = "DROPPED"
	WatchStatusOnHold      WatchStatus = "ON_HOLD"
)

// LibraryItem is one media entry in a user's library together with its rating state
type LibraryItem struct {
	ID               int64       `json:"id"`
	UserID           string      `json:"userId"`
	MediaItemID      int64       `json:"mediaItemId"`
	MediaTitle       string      `json:"mediaTitle"`
	MediaCoverImage  string      `json:"mediaCoverImage"`
	MediaBannerImage string      `json:"mediaBannerImage,omitempty"`
	MediaType        MediaType   `json:"mediaType"`
	MediaGenres      []string    `json:"mediaGenres"`
	Rating           float64     `json:"rating"`
	RD               float64     `json:"rd"`
	Volatility       float64     `json:"volatility"`
	ComparisonCount  int         `json:"comparisonCount"`
	TotalWins        int         `json:"totalWins"`
	TotalLosses      int         `json:"totalLosses"`
	TotalTies        int         `json:"totalTies"`
	WatchStatus      WatchStatus `json:"watchStatus"`
	UserNotes        string      `json:"userNotes,omitempty"`
	CustomTitle      string      `json:"customTitle,omitempty"`
	CustomTags       []string    `json:"customTags"`
	NeedsReranking   bool        `json:"needsReranking"`
	LastComparedAt   *time.Time  `json:"lastComparedAt,omitempty"`
	AddedAt          time.Time   `json:"addedAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// IsRanked reports whether the rating is confident enough to count as ranked
func (i LibraryItem) IsRanked(rdThreshold float64) bool {
	return i.RD <= rdThreshold
}

// LibraryItemWithMedia joins a library item with its catalog entry.
// Media is nil when the catalog entry no longer exists.
type LibraryItemWithMedia struct {
	LibraryItem
	Media *MediaItem `json:"media"`
}

// RatingDefaults are the values a new or reset item starts from
type RatingDefaults struct {
	Rating     float64
	RD         float64
	Volatility float64
}

// AddLibraryItemInput is the payload for adding a media item to a library
type AddLibraryItemInput struct {
	MediaItemID int64       `json:"mediaItemId" validate:"gt=0"`
	WatchStatus WatchStatus `json:"watchStatus" validate:"omitempty,oneof=COMPLETED WATCHING PLAN_TO_WATCH DROPPED ON_HOLD"`
	UserNotes   string      `json:"userNotes" validate:"max=4000"`
}

// LibraryItemUpdate is a partial update; nil fields are left unchanged
type LibraryItemUpdate struct {
	WatchStatus *WatchStatus `json:"watchStatus" validate:"omitempty,oneof=COMPLETED WATCHING PLAN_TO_WATCH DROPPED ON_HOLD"`
	UserNotes   *string      `json:"userNotes" validate:"omitempty,max=4000"`
	CustomTags  []string     `json:"customTags" validate:"omitempty,max=50,dive,max=64"`
	CustomTitle *string      `json:"customTitle" validate:"omitempty,max=512"`
}

// RatingPatch is the change applied to one side of a comparison
type RatingPatch struct {
	Rating     float64
	Won        bool
	ComparedAt time.Time
}
