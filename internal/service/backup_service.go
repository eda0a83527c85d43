package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"mediarank/internal/logging"
	"mediarank/internal/models"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData is the per-user backup document
type BackupData struct {
	Version     string                    `json:"version"`
	ExportedAt  time.Time                 `json:"exported_at"`
	UserID      string                    `json:"user_id"`
	Media       []models.MediaItem        `json:"media"`
	Library     []models.LibraryItem      `json:"library"`
	Comparisons []models.ComparisonRecord `json:"comparisons"`
	Pairs       []models.ComparisonPair   `json:"pairs"`
	Stats       *models.UserStats         `json:"stats"`
}

// ImportSummary reports what an import restored
type ImportSummary struct {
	Media              int `json:"media"`
	LibraryItems       int `json:"library_items"`
	Comparisons        int `json:"comparisons"`
	Pairs              int `json:"pairs"`
	SkippedComparisons int `json:"skipped_comparisons"`
}

// BackupService exports and restores one user's ranking data
type BackupService struct {
	engine
}

// NewBackupService creates a new backup service
func NewBackupService(deps Deps) *BackupService {
	return &BackupService{engine: newEngine(deps)}
}

// Export writes a backup of userID's data to outputPath
func (s *BackupService) Export(ctx context.Context, userID, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, userID, file); err != nil {
		return err
	}
	logging.Info().Str("user_id", userID).Str("path", outputPath).Msg("Backup exported")
	return nil
}

// ExportToWriter writes a backup of userID's data to w
func (s *BackupService) ExportToWriter(ctx context.Context, userID string, w io.Writer) error {
	backup, err := s.collect(ctx, userID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	logging.Info().
		Str("user_id", userID).
		Int("library_items", len(backup.Library)).
		Int("comparisons", len(backup.Comparisons)).
		Int("pairs", len(backup.Pairs)).
		Msg("Export complete")
	return nil
}

func (s *BackupService) collect(ctx context.Context, userID string) (*BackupData, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: s.clock().UTC(),
		UserID:     userID,
	}

	var err error
	if backup.Library, err = s.repos.library.ListByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export library: %w", err)
	}
	if backup.Comparisons, err = s.repos.comparisons.ListByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export comparisons: %w", err)
	}
	if backup.Pairs, err = s.repos.pairs.ListByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export comparison pairs: %w", err)
	}
	if backup.Stats, err = s.repos.stats.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to export stats: %w", err)
	}

	mediaIDs := make([]int64, 0, len(backup.Library))
	for _, item := range backup.Library {
		mediaIDs = append(mediaIDs, item.MediaItemID)
	}
	media, err := s.repos.media.GetByIDs(ctx, mediaIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to export media: %w", err)
	}
	backup.Media = make([]models.MediaItem, 0, len(media))
	for _, item := range backup.Library {
		if m, ok := media[item.MediaItemID]; ok {
			backup.Media = append(backup.Media, *m)
			delete(media, item.MediaItemID)
		}
	}

	return backup, nil
}

// Import replaces userID's data with the backup stored at inputPath
func (s *BackupService) Import(ctx context.Context, userID, inputPath string) (*ImportSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, userID, file)
}

// ImportFromReader replaces userID's data with the backup read from r. The
// backup may come from another user or database; ids are remapped. Media
// entries are upserted by external id.
func (s *BackupService) ImportFromReader(ctx context.Context, userID string, r io.Reader) (*ImportSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("%w: unsupported backup version %q", ErrInvalidState, backup.Version)
	}

	logging.Info().
		Str("user_id", userID).
		Str("version", backup.Version).
		Time("exported_at", backup.ExportedAt).
		Msg("Starting import")

	summary := &ImportSummary{}
	err := s.mutate(ctx, userID, func(repos repositories) error {
		if _, err := repos.comparisons.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear comparisons: %w", err)
		}
		if _, err := repos.pairs.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear comparison pairs: %w", err)
		}
		if _, err := repos.library.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear library: %w", err)
		}

		now := s.clock()
		mediaIDs := make(map[int64]int64, len(backup.Media))
		for _, m := range backup.Media {
			saved, err := repos.media.Upsert(ctx, models.MediaItemInput{
				ExternalID:   m.ExternalID,
				Type:         m.Type,
				Title:        m.Title,
				TitleEnglish: m.TitleEnglish,
				CoverImage:   m.CoverImage,
				BannerImage:  m.BannerImage,
				Genres:       m.Genres,
			}, now)
			if err != nil {
				return fmt.Errorf("failed to import media %d: %w", m.ExternalID, err)
			}
			mediaIDs[m.ID] = saved.ID
			summary.Media++
		}

		itemIDs := make(map[int64]int64, len(backup.Library))
		for _, item := range backup.Library {
			newMediaID, ok := mediaIDs[item.MediaItemID]
			if !ok {
				return fmt.Errorf("%w: library item %d references media %d missing from backup",
					ErrInvalidState, item.ID, item.MediaItemID)
			}
			oldID := item.ID
			item.UserID = userID
			item.MediaItemID = newMediaID
			id, err := repos.library.Create(ctx, &item)
			if err != nil {
				return fmt.Errorf("failed to import library item %d: %w", oldID, err)
			}
			itemIDs[oldID] = id
			summary.LibraryItems++
		}

		for _, rec := range backup.Comparisons {
			winner, okW := itemIDs[rec.WinnerID]
			loser, okL := itemIDs[rec.LoserID]
			if !okW || !okL {
				summary.SkippedComparisons++
				continue
			}
			restored := models.ComparisonRecord{UserID: userID, WinnerID: winner, LoserID: loser, CreatedAt: rec.CreatedAt}
			if err := repos.comparisons.Append(ctx, &restored); err != nil {
				return fmt.Errorf("failed to import comparison %d: %w", rec.ID, err)
			}
			summary.Comparisons++
		}

		for _, p := range backup.Pairs {
			a, okA := itemIDs[p.ItemAID]
			b, okB := itemIDs[p.ItemBID]
			if !okA || !okB {
				continue
			}
			p.UserID, p.ItemAID, p.ItemBID = userID, a, b
			if err := repos.pairs.Restore(ctx, p); err != nil {
				return fmt.Errorf("failed to import comparison pair: %w", err)
			}
			summary.Pairs++
		}

		restored := backup.Stats
		if restored == nil {
			restored = models.NewUserStats(userID)
		}
		restored.UserID = userID
		restored.UpdatedAt = now
		return saveStats(ctx, repos, restored)
	})
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("user_id", userID).
		Int("library_items", summary.LibraryItems).
		Int("comparisons", summary.Comparisons).
		Int("skipped_comparisons", summary.SkippedComparisons).
		Msg("Import complete")
	return summary, nil
}
