package models

import "time"

// MediaType is the category a media item belongs to
type MediaType string

const (
	MediaTypeAnime MediaType = "ANIME"
	MediaTypeManga MediaType = "MANGA"
)

// MediaTypes lists every category tracked in user stats
var MediaTypes = []MediaType{MediaTypeAnime, MediaTypeManga}

// Valid reports whether t is a known category
func (t MediaType) Valid() bool {
	return t == MediaTypeAnime || t == MediaTypeManga
}

// MediaItem is a catalog entry shared by all users, keyed by its AniList id
type MediaItem struct {
	ID           int64     `json:"id"`
	ExternalID   int64     `json:"externalId"`
	Type         MediaType `json:"type"`
	Title        string    `json:"title"`
	TitleEnglish string    `json:"titleEnglish,omitempty"`
	CoverImage   string    `json:"coverImage"`
	BannerImage  string    `json:"bannerImage,omitempty"`
	Genres       []string  `json:"genres"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayTitle prefers the English title when one exists
func (m MediaItem) DisplayTitle() string {
	if m.TitleEnglish != "" {
		return m.TitleEnglish
	}
	return m.Title
}

// MediaItemInput is the upsert payload for a catalog entry
type MediaItemInput struct {
	ExternalID   int64     `json:"externalId" validate:"gt=0"`
	Type         MediaType `json:"type" validate:"oneof=ANIME MANGA"`
	Title        string    `json:"title" validate:"required,max=512"`
	TitleEnglish string    `json:"titleEnglish" validate:"max=512"`
	CoverImage   string    `json:"coverImage" validate:"omitempty,url"`
	BannerImage  string    `json:"bannerImage" validate:"omitempty,url"`
	Genres       []string  `json:"genres"`
}
