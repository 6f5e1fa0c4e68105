// internal/core/services/product.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// ProductService handles product catalog business logic
type ProductService struct {
	repo   ports.ProductRepository
	logs   ports.InventoryLogRepository
	db     ports.Database
	logger *slog.Logger
}

// Statically assert that *ProductService implements the ProductService interface.
var _ ports.ProductService = (*ProductService)(nil)

// NewProductService creates a new product service
func NewProductService(repo ports.ProductRepository, logs ports.InventoryLogRepository, db ports.Database, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		logs:   logs,
		db:     db,
		logger: logger.With(slog.String("service", "product")),
	}
}

// List returns one page of the catalog with optional category and status
// filters.
func (s *ProductService) List(ctx context.Context, params ports.ListParams) (*ports.ListResult, error) {
	params.Page, params.Limit = normalizePage(params.Page, params.Limit)

	products, total, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return buildListResult(products, params.Page, params.Limit, total), nil
}

// Search returns products whose name contains the pattern, case-insensitively.
func (s *ProductService) Search(ctx context.Context, pattern string, page, limit int) (*ports.ListResult, error) {
	page, limit = normalizePage(page, limit)

	products, total, err := s.repo.SearchByName(ctx, pattern, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return buildListResult(products, page, limit, total), nil
}

// Get returns a single product by id
func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Update runs the full update pipeline: field validation, stock validation,
// uniqueness check, existence check, then a transactional write that records
// a stock-change log entry when the quantity moved.
func (s *ProductService) Update(ctx context.Context, id int64, params ports.UpdateParams) (*domain.Product, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" || strings.TrimSpace(params.Unit) == "" || strings.TrimSpace(params.Category) == "" {
		return nil, domain.ErrMissingField
	}

	stock, err := parseStockStrict(params.Stock)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.NameTakenByOther(ctx, name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check name uniqueness: %w", err)
	}
	if taken {
		return nil, domain.ErrNameConflict
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	updated := &domain.Product{
		ID:       id,
		Name:     name,
		Unit:     params.Unit,
		Category: params.Category,
		Brand:    params.Brand,
		Stock:    stock,
		Image:    params.Image,
	}

	if params.Status != nil && *params.Status != "" {
		updated.Status = *params.Status
	} else {
		updated.Status = domain.DeriveStatus(stock)
	}

	changedBy := params.ChangedBy
	if changedBy == "" {
		changedBy = "admin"
	}

	err = s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Update(ctx, tx, updated); err != nil {
			return err
		}

		if existing.Stock != updated.Stock {
			log := &domain.InventoryLog{
				ProductID: id,
				OldStock:  existing.Stock,
				NewStock:  updated.Stock,
				ChangedBy: changedBy,
			}
			if err := s.logs.Append(ctx, tx, log); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("id", id),
		slog.Int("old_stock", existing.Stock),
		slog.Int("new_stock", updated.Stock))

	return updated, nil
}

// Delete removes a product and returns the number of rows removed
func (s *ProductService) Delete(ctx context.Context, id int64) (int64, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}
	return deleted, nil
}

// History returns a product's stock-change history, newest first. An
// unknown product id yields an empty history, not an error.
func (s *ProductService) History(ctx context.Context, productID int64) ([]domain.InventoryLog, error) {
	logs, err := s.logs.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return logs, nil
}

// Export returns every product in creation order
func (s *ProductService) Export(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.FindAllForExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export products: %w", err)
	}
	return products, nil
}

// normalizePage clamps pagination parameters to sane values
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

// parseStockStrict parses an explicit stock value. Unlike import rows,
// update payloads reject rather than clamp bad input. A payload without
// a stock field is rejected; an empty string counts as zero.
func parseStockStrict(raw *string) (int, error) {
	if raw == nil {
		return 0, domain.ErrInvalidStock
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidStock
	}
	return n, nil
}

func buildListResult(products []*domain.Product, page, limit int, total int64) *ports.ListResult {
	if products == nil {
		products = make([]*domain.Product, 0)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &ports.ListResult{
		Data:       products,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
