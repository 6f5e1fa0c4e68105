// cmd/seeder/main.go
//
// Seeds the product catalog from a CSV file. Rows share the import
// endpoint's semantics: nameless rows are skipped, existing names are
// reported as duplicates, defaults fill absent columns.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ammerola/stockroom-be/internal/adapters/db"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/services"
)

func main() {
	var (
		csvFile  = flag.String("file", "./products.csv", "CSV file with catalog rows")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun   = flag.Bool("dry-run", false, "Preview changes without modifying database")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	}))
	slog.SetDefault(logger)

	records, err := loadRecords(*csvFile)
	if err != nil {
		logger.Error("Failed to read CSV file",
			slog.String("file", *csvFile),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("PROGRESS: Loaded %d rows from %s\n", len(records), *csvFile)

	if *dryRun {
		previewRecords(records)
		fmt.Println("\n[DRY RUN] No changes were made to the database")
		return
	}

	ctx := context.Background()

	dbConfig := &db.Config{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnv("DB_PORT", "5432"),
		User:              getEnv("DB_USER", "stockroom"),
		Password:          getEnv("DB_PASSWORD", "stockroom_dev_2025"),
		Database:          getEnv("DB_NAME", "stockroom_inventory"),
		SSLMode:           getEnv("DB_SSL_MODE", "disable"),
		MaxConnections:    5,
		MinConnections:    1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}

	database, err := db.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	repo := db.NewProductRepository(database, logger)
	importer := services.NewImportService(repo, logger)

	result, err := importer.Import(ctx, records)
	if err != nil {
		logger.Error("Seed operation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Summary
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING OPERATION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Rows Added:      %d\n", result.Added)
	fmt.Printf("Rows Skipped:    %d\n", result.Skipped)
	fmt.Printf("Duplicate Names: %d\n", len(result.Duplicates))

	if len(result.Duplicates) > 0 {
		fmt.Println("\nDuplicates:")
		for _, dup := range result.Duplicates {
			fmt.Printf("  - %s (existing id %d)\n", dup.Name, dup.ExistingID)
		}
	}

	logger.Info("Seed operation completed",
		slog.Int("added", result.Added),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", len(result.Duplicates)))
}

// loadRecords reads a CSV file into header-keyed records, lowercasing
// header names so hand-edited files still line up with import columns.
func loadRecords(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []map[string]string{}, nil
		}
		return nil, err
	}

	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func previewRecords(records []map[string]string) {
	valid, skipped := 0, 0
	for _, rec := range records {
		p, ok := domain.ProductFromRecord(rec)
		if !ok {
			skipped++
			continue
		}
		valid++
		fmt.Printf("  - %s (%s, %s, stock %d)\n", p.Name, p.Unit, p.Category, p.Stock)
	}
	fmt.Printf("\nWould insert up to %d rows, skip %d\n", valid, skipped)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
