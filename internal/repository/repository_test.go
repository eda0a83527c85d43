package repository

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mediarank/internal/database"
	"mediarank/internal/models"
	"mediarank/migrations"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

var baseTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func seedMedia(t *testing.T, repo *MediaRepository, externalID int64, mediaType models.MediaType) *models.MediaItem {
	t.Helper()
	m, err := repo.Upsert(context.Background(), models.MediaItemInput{
		ExternalID: externalID,
		Type:       mediaType,
		Title:      "Title",
		Genres:     []string{"Action", "Drama"},
	}, baseTime)
	if err != nil {
		t.Fatalf("Failed to upsert media: %v", err)
	}
	return m
}

func seedItem(t *testing.T, repo *LibraryRepository, userID string, media *models.MediaItem, rating float64) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), &models.LibraryItem{
		UserID:      userID,
		MediaItemID: media.ID,
		MediaTitle:  media.DisplayTitle(),
		MediaType:   media.Type,
		MediaGenres: media.Genres,
		Rating:      rating,
		RD:          350,
		Volatility:  0.06,
		WatchStatus: models.WatchStatusCompleted,
		AddedAt:     baseTime,
		UpdatedAt:   baseTime,
	})
	if err != nil {
		t.Fatalf("Failed to create library item: %v", err)
	}
	return id
}

func TestMediaRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMediaRepository(db)
	ctx := context.Background()

	first := seedMedia(t, repo, 21, models.MediaTypeAnime)
	if first.ID == 0 || first.ExternalID != 21 {
		t.Fatalf("unexpected media item: %+v", first)
	}
	if !reflect.DeepEqual(first.Genres, []string{"Action", "Drama"}) {
		t.Errorf("Genres = %v", first.Genres)
	}

	updated, err := repo.Upsert(ctx, models.MediaItemInput{
		ExternalID:   21,
		Type:         models.MediaTypeAnime,
		Title:        "One Piece",
		TitleEnglish: "One Piece (EN)",
	}, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if updated.ID != first.ID {
		t.Errorf("upsert by external id should keep id %d, got %d", first.ID, updated.ID)
	}
	if updated.TitleEnglish != "One Piece (EN)" || len(updated.Genres) != 0 {
		t.Errorf("upsert did not refresh fields: %+v", updated)
	}

	missing, err := repo.GetByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	other := seedMedia(t, repo, 22, models.MediaTypeManga)
	byID, err := repo.GetByIDs(ctx, []int64{first.ID, other.ID, 9999})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(byID) != 2 || byID[other.ID].Type != models.MediaTypeManga {
		t.Errorf("GetByIDs() = %v", byID)
	}
}

func TestLibraryRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	media := NewMediaRepository(db)
	repo := NewLibraryRepository(db)
	ctx := context.Background()

	m1 := seedMedia(t, media, 1, models.MediaTypeAnime)
	m2 := seedMedia(t, media, 2, models.MediaTypeManga)

	id1 := seedItem(t, repo, "alice", m1, 1500)
	id2 := seedItem(t, repo, "alice", m2, 1600)
	bobID := seedItem(t, repo, "bob", m1, 1400)

	item, err := repo.GetByID(ctx, "alice", id1)
	if err != nil || item == nil {
		t.Fatalf("GetByID() = %v, %v", item, err)
	}
	if item.RD != 350 || item.MediaType != models.MediaTypeAnime || item.LastComparedAt != nil {
		t.Errorf("unexpected item: %+v", item)
	}

	if other, err := repo.GetByID(ctx, "bob", id1); err != nil || other != nil {
		t.Errorf("items must be scoped to their owner, got %v, %v", other, err)
	}

	dup, err := repo.GetByMediaItem(ctx, "alice", m1.ID)
	if err != nil || dup == nil || dup.ID != id1 {
		t.Errorf("GetByMediaItem() = %v, %v", dup, err)
	}

	byRating, err := repo.ListByRating(ctx, "alice", "")
	if err != nil {
		t.Fatalf("ListByRating() error = %v", err)
	}
	if len(byRating) != 2 || byRating[0].ID != id2 {
		t.Errorf("ListByRating() order wrong: %+v", byRating)
	}

	some, err := repo.GetByIDs(ctx, "alice", []int64{id2, bobID, 9999})
	if err != nil || len(some) != 1 || some[0].ID != id2 {
		t.Errorf("GetByIDs() = %v, %v; want only alice's item %d", some, err, id2)
	}
	if none, err := repo.GetByIDs(ctx, "alice", nil); err != nil || len(none) != 0 {
		t.Errorf("GetByIDs(nil) = %v, %v", none, err)
	}

	manga, err := repo.ListByRating(ctx, "alice", models.MediaTypeManga)
	if err != nil || len(manga) != 1 || manga[0].ID != id2 {
		t.Errorf("ListByRating(MANGA) = %v, %v", manga, err)
	}

	item.WatchStatus = models.WatchStatusDropped
	item.UserNotes = "meh"
	item.CustomTags = []string{"rewatch"}
	item.NeedsReranking = true
	item.UpdatedAt = baseTime.Add(time.Minute)
	if err := repo.UpdateDetails(ctx, item); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	reloaded, _ := repo.GetByID(ctx, "alice", id1)
	if reloaded.WatchStatus != models.WatchStatusDropped || !reloaded.NeedsReranking || reloaded.CustomTags[0] != "rewatch" {
		t.Errorf("UpdateDetails did not persist: %+v", reloaded)
	}

	deleted, err := repo.Delete(ctx, "bob", id1)
	if err != nil || deleted {
		t.Errorf("Delete() by non-owner = %v, %v; want false", deleted, err)
	}
	deleted, err = repo.Delete(ctx, "alice", id1)
	if err != nil || !deleted {
		t.Errorf("Delete() = %v, %v; want true", deleted, err)
	}

	n, err := repo.DeleteByUser(ctx, "alice")
	if err != nil || n != 1 {
		t.Errorf("DeleteByUser() = %d, %v; want 1", n, err)
	}
	bobs, _ := repo.ListByUser(ctx, "bob")
	if len(bobs) != 1 {
		t.Errorf("other users' items must survive, got %d", len(bobs))
	}
}

func TestLibraryRepository_RatingPatchAndReset(t *testing.T) {
	db := setupTestDB(t)
	media := NewMediaRepository(db)
	repo := NewLibraryRepository(db)
	ctx := context.Background()

	id := seedItem(t, repo, "alice", seedMedia(t, media, 1, models.MediaTypeAnime), 1500)
	compared := baseTime.Add(time.Hour)

	if err := repo.ApplyRatingPatch(ctx, "alice", id, models.RatingPatch{Rating: 1520, Won: true, ComparedAt: compared}); err != nil {
		t.Fatalf("ApplyRatingPatch() error = %v", err)
	}
	if err := repo.ApplyRatingPatch(ctx, "alice", id, models.RatingPatch{Rating: 1501, Won: false, ComparedAt: compared}); err != nil {
		t.Fatalf("ApplyRatingPatch() error = %v", err)
	}
	if err := repo.ApplyRatingPatch(ctx, "bob", id, models.RatingPatch{Rating: 1, ComparedAt: compared}); err != ErrNoRowsAffected {
		t.Errorf("patching another user's item should affect nothing, got %v", err)
	}

	item, _ := repo.GetByID(ctx, "alice", id)
	if item.Rating != 1501 || item.ComparisonCount != 2 || item.TotalWins != 1 || item.TotalLosses != 1 {
		t.Errorf("unexpected item after patches: %+v", item)
	}
	if item.LastComparedAt == nil || !item.LastComparedAt.Equal(compared) {
		t.Errorf("LastComparedAt = %v, want %v", item.LastComparedAt, compared)
	}
	if item.RD != 350 {
		t.Errorf("rd must not change on comparison, got %v", item.RD)
	}

	n, err := repo.ResetRatings(ctx, "alice", models.RatingDefaults{Rating: 1500, RD: 350, Volatility: 0.06}, compared)
	if err != nil || n != 1 {
		t.Fatalf("ResetRatings() = %d, %v", n, err)
	}
	item, _ = repo.GetByID(ctx, "alice", id)
	if item.Rating != 1500 || item.ComparisonCount != 0 || item.TotalWins != 0 || item.LastComparedAt != nil || item.NeedsReranking {
		t.Errorf("unexpected item after reset: %+v", item)
	}
}

func TestComparisonRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComparisonRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := &models.ComparisonRecord{UserID: "alice", WinnerID: int64(i + 1), LoserID: 100, CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
		if err := repo.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if rec.ID == 0 {
			t.Fatal("Append() should set the id")
		}
	}
	if err := repo.Append(ctx, &models.ComparisonRecord{UserID: "bob", WinnerID: 1, LoserID: 2, CreatedAt: baseTime}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	recent, err := repo.Recent(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 || recent[0].WinnerID != 5 || recent[2].WinnerID != 3 {
		t.Errorf("Recent() should be newest first: %+v", recent)
	}

	count, _ := repo.CountByUser(ctx, "alice")
	if count != 5 {
		t.Errorf("CountByUser() = %d, want 5", count)
	}

	n, err := repo.DeleteByUser(ctx, "alice")
	if err != nil || n != 5 {
		t.Errorf("DeleteByUser() = %d, %v", n, err)
	}
	count, _ = repo.CountByUser(ctx, "bob")
	if count != 1 {
		t.Errorf("bob's ledger should survive, got %d", count)
	}
}

func TestPairRepository_Bump(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPairRepository(db)
	ctx := context.Background()

	if err := repo.Bump(ctx, "alice", 9, 3, baseTime); err != nil {
		t.Fatalf("Bump() error = %v", err)
	}
	if err := repo.Bump(ctx, "alice", 3, 9, baseTime.Add(time.Minute)); err != nil {
		t.Fatalf("Bump() error = %v", err)
	}

	p, err := repo.Get(ctx, "alice", 9, 3)
	if err != nil || p == nil {
		t.Fatalf("Get() = %v, %v", p, err)
	}
	if p.ItemAID != 3 || p.ItemBID != 9 || p.TimesCompared != 2 {
		t.Errorf("unexpected pair: %+v", p)
	}
	if !p.LastComparedAt.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("LastComparedAt = %v, want %v", p.LastComparedAt, baseTime.Add(time.Minute))
	}

	var rows int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comparison_pairs WHERE user_id = ?", "alice").Scan(&rows); err != nil || rows != 1 {
		t.Errorf("comparison_pairs rows = %d, %v; want 1", rows, err)
	}

	if missing, err := repo.Get(ctx, "bob", 3, 9); err != nil || missing != nil {
		t.Errorf("Get() for another user = %v, %v", missing, err)
	}

	n, err := repo.DeleteByUser(ctx, "alice")
	if err != nil || n != 1 {
		t.Errorf("DeleteByUser() = %d, %v", n, err)
	}
}

func TestStatsRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStatsRepository(db)
	ctx := context.Background()

	if s, err := repo.Get(ctx, "alice"); err != nil || s != nil {
		t.Fatalf("Get() before save = %v, %v", s, err)
	}

	s := models.NewUserStats("alice")
	s.TotalComparisons = 4
	s.CurrentStreak = 2
	s.LongestStreak = 3
	s.LastComparisonDate = "2024-05-10"
	s.Last7Days = []models.DayCount{{Date: "2024-05-09", Count: 1}, {Date: "2024-05-10", Count: 3}}
	s.Categories[models.MediaTypeAnime] = models.CategoryCounts{ItemCount: 3, RankedCount: 1}
	s.UpdatedAt = baseTime

	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.TotalComparisons != 4 || got.LastComparisonDate != "2024-05-10" {
		t.Errorf("unexpected stats: %+v", got)
	}
	if !reflect.DeepEqual(got.Last7Days, s.Last7Days) {
		t.Errorf("Last7Days = %v, want %v", got.Last7Days, s.Last7Days)
	}
	if got.Categories[models.MediaTypeAnime] != s.Categories[models.MediaTypeAnime] {
		t.Errorf("Categories = %v", got.Categories)
	}

	// second save updates in place and replaces category rows
	s.TotalComparisons = 0
	s.LastComparisonDate = ""
	s.Last7Days = nil
	s.Categories = map[models.MediaType]models.CategoryCounts{
		models.MediaTypeManga: {ItemCount: 1},
	}
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var rows int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_stats WHERE user_id = ?", "alice").Scan(&rows); err != nil || rows != 1 {
		t.Errorf("user_stats rows = %d, %v; want 1", rows, err)
	}

	got, _ = repo.Get(ctx, "alice")
	if got.TotalComparisons != 0 || got.LastComparisonDate != "" || len(got.Last7Days) != 0 {
		t.Errorf("unexpected stats after update: %+v", got)
	}
	if _, ok := got.Categories[models.MediaTypeAnime]; ok || got.Categories[models.MediaTypeManga].ItemCount != 1 {
		t.Errorf("Categories = %v", got.Categories)
	}
}
