package stats

import (
	"time"

	"mediarank/internal/models"
)

// Project builds the read-side view of s. Anonymous callers get an all-zero
// snapshot with an empty series.
func (t *Tracker) Project(s *models.UserStats, now time.Time, authenticated bool) models.AggregatedStats {
	if !authenticated {
		return models.AggregatedStats{Last7Days: []models.DailyActivity{}}
	}
	if s == nil {
		s = models.NewUserStats("")
	}

	counts := make(map[string]int, len(s.Last7Days))
	for _, d := range s.Last7Days {
		counts[d.Date] += d.Count
	}

	midnight := t.Midnight(now)
	series := make([]models.DailyActivity, 0, WindowDays)
	for i := WindowDays - 1; i >= 0; i-- {
		day := midnight.AddDate(0, 0, -i)
		key := day.Format(models.DateLayout)
		series = append(series, models.DailyActivity{
			Date:  key,
			Day:   day.Format("Mon"),
			Count: counts[key],
		})
	}

	anime := s.Categories[models.MediaTypeAnime]
	manga := s.Categories[models.MediaTypeManga]

	return models.AggregatedStats{
		TotalComparisons: s.TotalComparisons,
		TodayComparisons: counts[midnight.Format(models.DateLayout)],
		Streak:           s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		AnimeCount:       anime.ItemCount,
		MangaCount:       manga.ItemCount,
		RankedAnimeCount: anime.RankedCount,
		RankedMangaCount: manga.RankedCount,
		TotalItems:       anime.ItemCount + manga.ItemCount,
		TieCount:         s.TieCount,
		Last7Days:        series,
	}
}
