package stats

import (
	"sort"

	"mediarank/internal/models"
	"mediarank/internal/rating"
)

// TopItems ranks items by rating, highest first with ties broken by id, and
// returns the first limit rows. An empty category includes every item.
func TopItems(items []models.LibraryItem, category models.MediaType, limit int) []models.TopItem {
	filtered := make([]models.LibraryItem, 0, len(items))
	for _, item := range items {
		if category == "" || item.MediaType == category {
			filtered = append(filtered, item)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Rating != filtered[j].Rating {
			return filtered[i].Rating > filtered[j].Rating
		}
		return filtered[i].ID < filtered[j].ID
	})

	total := len(filtered)
	if limit < 0 {
		limit = 0
	}
	if limit > total {
		limit = total
	}

	top := make([]models.TopItem, 0, limit)
	for i, item := range filtered[:limit] {
		rank := i + 1
		p := Percentile(rank, total)
		top = append(top, models.TopItem{
			Rank:            rank,
			ItemID:          item.ID,
			Title:           item.MediaTitle,
			CoverImage:      item.MediaCoverImage,
			Type:            item.MediaType,
			Rating:          item.Rating,
			RD:              item.RD,
			Percentile:      p,
			PercentileScore: PercentileScore(p),
			ComparisonCount: item.ComparisonCount,
		})
	}
	return top
}

// Percentile places rank among total items on a 0-100 scale. A lone item sits at 50.
func Percentile(rank, total int) float64 {
	if total <= 1 {
		return 50
	}
	return float64(total-rank) / float64(total-1) * 100
}

// PercentileScore is round(p/10*10)/10, kept in this exact form for
// compatibility with existing clients
func PercentileScore(p float64) float64 {
	return rating.RoundHalfUp(p/10*10) / 10
}
