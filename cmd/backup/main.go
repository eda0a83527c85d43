package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"mediarank/internal/config"
	"mediarank/internal/database"
	"mediarank/internal/logging"
	"mediarank/internal/service"
	"mediarank/internal/stats"
	"mediarank/migrations"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportUser := exportCmd.String("user", "", "User id to export (required)")
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_<user>_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importUser := importCmd.String("user", "", "User id to import into (required)")
	importInput := importCmd.String("input", "", "Input file path (required)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	// Initialize database
	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	var fsys fs.FS = migrations.FS
	if cfg.Database.MigrationsPath != "" {
		fsys = os.DirFS(cfg.Database.MigrationsPath)
	}
	if err := db.RunMigrations(context.Background(), fsys); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	loc, err := cfg.Stats.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid stats timezone")
	}
	backupService := service.NewBackupService(service.Deps{
		DB:      db,
		Tracker: stats.NewTracker(loc, cfg.Ranking.RDThreshold),
	})

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if *exportUser == "" {
			fmt.Println("Error: -user flag is required")
			exportCmd.PrintDefaults()
			os.Exit(1)
		}
		handleExport(backupService, *exportUser, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importUser == "" || *importInput == "" {
			fmt.Println("Error: -user and -input flags are required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(backupService, *importUser, *importInput, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(backupService *service.BackupService, userID, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s_%s.json", userID, timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Fatal().Err(err).Msg("Failed to create output directory")
		}
	}

	if err := backupService.Export(context.Background(), userID, outputPath); err != nil {
		logging.Fatal().Err(err).Msg("Export failed")
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		logging.Info().Float64("size_mb", float64(fileInfo.Size())/1024/1024).Msg("Export complete")
	}
}

func handleImport(backupService *service.BackupService, userID, inputPath string, skipConfirm bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		logging.Fatal().Str("path", inputPath).Msg("Input file does not exist")
	}

	if !skipConfirm {
		fmt.Printf("WARNING: This replaces all ranking data for %q. Type 'yes' to confirm: ", userID)
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			logging.Info().Msg("Import cancelled")
			return
		}
	}

	summary, err := backupService.Import(context.Background(), userID, inputPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Import failed")
	}
	logging.Info().
		Int("media", summary.Media).
		Int("library_items", summary.LibraryItems).
		Int("comparisons", summary.Comparisons).
		Int("pairs", summary.Pairs).
		Int("skipped_comparisons", summary.SkippedComparisons).
		Msg("Import complete")
}

func printUsage() {
	fmt.Println("mediarank backup tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export one user's rankings to a JSON file")
	fmt.Println("  backup import [options]    Replace one user's rankings from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -user <id>        User id (required)")
	fmt.Println("  -output <file>    Output file path (default: backup_<user>_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -user <id>        User id to import into (required)")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -yes              Skip the confirmation prompt")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./mediarank.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
