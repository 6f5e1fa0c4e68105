// internal/core/services/importer.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// ImportService reconciles parsed CSV records against the catalog
type ImportService struct {
	repo   ports.ProductRepository
	logger *slog.Logger
}

// Statically assert that *ImportService implements the ImportService interface.
var _ ports.ImportService = (*ImportService)(nil)

// NewImportService creates a new import service
func NewImportService(repo ports.ProductRepository, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:   repo,
		logger: logger.With(slog.String("service", "import")),
	}
}

// Import processes records sequentially: nameless rows are skipped, rows
// whose name already exists (case-insensitively) are reported as
// duplicates, the rest are inserted with defaults filled in. Records
// processed before a failure stay committed.
func (s *ImportService) Import(ctx context.Context, records []map[string]string) (*domain.ImportResult, error) {
	result := &domain.ImportResult{
		Duplicates: make([]domain.DuplicateRecord, 0),
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, ok := domain.ProductFromRecord(rec)
		if !ok {
			result.Skipped++
			continue
		}

		existing, err := s.repo.FindByNameCI(ctx, p.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check record %d: %w", i, err)
		}
		if existing != nil {
			result.Skipped++
			result.Duplicates = append(result.Duplicates, domain.DuplicateRecord{
				Name:       p.Name,
				ExistingID: existing.ID,
			})
			continue
		}

		if err := s.repo.Save(ctx, &p); err != nil {
			// The unique index is the authoritative duplicate signal; a
			// conflicting insert between check and save is still a duplicate.
			if errors.Is(err, domain.ErrNameConflict) {
				dup, lookupErr := s.repo.FindByNameCI(ctx, p.Name)
				if lookupErr == nil && dup != nil {
					result.Skipped++
					result.Duplicates = append(result.Duplicates, domain.DuplicateRecord{
						Name:       p.Name,
						ExistingID: dup.ID,
					})
					continue
				}
			}
			return nil, fmt.Errorf("failed to import record %d: %w", i, err)
		}

		result.Added++
	}

	s.logger.InfoContext(ctx, "import completed",
		slog.Int("added", result.Added),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", len(result.Duplicates)))

	return result, nil
}
