package rating

import (
	"math/rand"
	"sync"
	"time"

	"mediarank/internal/models"
)

// PairSelector chooses two distinct library items to show the user.
// ok is false when fewer than two items are available.
type PairSelector interface {
	SelectPair(items []models.LibraryItem) (a, b models.LibraryItem, ok bool)
}

// RandomSelector picks a uniformly random pair
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a selector. A nil source seeds from the clock.
func NewRandomSelector(src rand.Source) *RandomSelector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomSelector{rng: rand.New(src)}
}

// SelectPair shuffles a copy of items and returns the first two
func (s *RandomSelector) SelectPair(items []models.LibraryItem) (models.LibraryItem, models.LibraryItem, bool) {
	if len(items) < 2 {
		return models.LibraryItem{}, models.LibraryItem{}, false
	}

	shuffled := make([]models.LibraryItem, len(items))
	copy(shuffled, items)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	return shuffled[0], shuffled[1], true
}
