package service

import (
	"context"
	"fmt"
	"time"

	"mediarank/internal/database"
	"mediarank/internal/lock"
	"mediarank/internal/metrics"
	"mediarank/internal/models"
	"mediarank/internal/repository"
	"mediarank/internal/stats"
)

// Settings carries the tunables services read from configuration
type Settings struct {
	Defaults        models.RatingDefaults
	HistoryLimit    int
	MaxHistoryLimit int
	TopItemsLimit   int
}

// DefaultSettings matches the configuration defaults
func DefaultSettings() Settings {
	return Settings{
		Defaults:        models.RatingDefaults{Rating: 1500, RD: 350, Volatility: 0.06},
		HistoryLimit:    50,
		MaxHistoryLimit: 200,
		TopItemsLimit:   10,
	}
}

// Deps are the collaborators shared by every service
type Deps struct {
	DB      *database.DB
	Locker  lock.Locker
	Tracker *stats.Tracker
	// Clock defaults to time.Now
	Clock func() time.Time
}

// repositories bundles the stores a unit of work touches
type repositories struct {
	library     *repository.LibraryRepository
	comparisons *repository.ComparisonRepository
	pairs       *repository.PairRepository
	stats       *repository.StatsRepository
	media       *repository.MediaRepository
}

func newRepositories(db database.DBTX) repositories {
	return repositories{
		library:     repository.NewLibraryRepository(db),
		comparisons: repository.NewComparisonRepository(db),
		pairs:       repository.NewPairRepository(db),
		stats:       repository.NewStatsRepository(db),
		media:       repository.NewMediaRepository(db),
	}
}

func (r repositories) withTx(tx database.DBTX) repositories {
	return repositories{
		library:     r.library.WithTx(tx),
		comparisons: r.comparisons.WithTx(tx),
		pairs:       r.pairs.WithTx(tx),
		stats:       r.stats.WithTx(tx),
		media:       r.media.WithTx(tx),
	}
}

// engine is embedded by the services that mutate per-user state
type engine struct {
	db      *database.DB
	locker  lock.Locker
	tracker *stats.Tracker
	clock   func() time.Time
	repos   repositories
}

func newEngine(deps Deps) engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = stats.NewTracker(time.Local, 100)
	}
	return engine{
		db:      deps.DB,
		locker:  locker,
		tracker: tracker,
		clock:   clock,
		repos:   newRepositories(deps.DB),
	}
}

// mutate runs fn in a transaction while holding userID's lock.
// Any error from fn rolls the transaction back.
func (e *engine) mutate(ctx context.Context, userID string, fn func(repos repositories) error) error {
	start := time.Now()
	unlock, err := e.locker.Lock(ctx, userID)
	metrics.RecordLockWait(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to acquire user lock: %w", err)
	}
	defer unlock()

	return e.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(e.repos.withTx(tx))
	})
}

// saveStats persists next when a transition produced one
func saveStats(ctx context.Context, repos repositories, next *models.UserStats) error {
	if next == nil {
		return nil
	}
	if err := repos.stats.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// attachMedia pairs items with their catalog entries
func attachMedia(ctx context.Context, media *repository.MediaRepository, items ...models.LibraryItem) ([]models.LibraryItemWithMedia, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MediaItemID)
	}
	byID, err := media.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load media items: %w", err)
	}

	out := make([]models.LibraryItemWithMedia, len(items))
	for i, item := range items {
		out[i] = models.LibraryItemWithMedia{LibraryItem: item, Media: byID[item.MediaItemID]}
	}
	return out, nil
}
