// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

const productColumns = `id, name, unit, category, brand, stock, status, image, created_at, updated_at`

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     ports.Database
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db ports.Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "product")),
	}
}

// Save creates a new product
func (r *productRepository) Save(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (
			name, unit, category, brand, stock, status, image, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		) RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.Name, p.Unit, p.Category, p.Brand, p.Stock, p.Status, p.Image,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		return fmt.Errorf("failed to save product: %w", err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.Int64("id", p.ID),
		slog.String("name", p.Name))

	return nil
}

// Update updates an existing product within an existing transaction
func (r *productRepository) Update(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	query := `
		UPDATE products SET
			name = $2, unit = $3, category = $4, brand = $5,
			stock = $6, status = $7, image = $8, updated_at = $9
		WHERE id = $1
		RETURNING created_at, updated_at`

	p.UpdatedAt = time.Now()

	err := tx.QueryRow(ctx, query,
		p.ID, p.Name, p.Unit, p.Category, p.Brand,
		p.Stock, p.Status, p.Image, p.UpdatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		if IsUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	r.logger.DebugContext(ctx, "product updated",
		slog.Int64("id", p.ID))

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return p, nil
}

// FindByNameCI retrieves a product by name under case-insensitive comparison
func (r *productRepository) FindByNameCI(ctx context.Context, name string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE LOWER(name) = LOWER($1)`

	p, err := scanProduct(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}

	return p, nil
}

// NameTakenByOther reports whether another product already uses the name
func (r *productRepository) NameTakenByOther(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE LOWER(name) = LOWER($1) AND id <> $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check name uniqueness: %w", err)
	}

	return exists, nil
}

// FindAll retrieves products with filtering, sorting and pagination
func (r *productRepository) FindAll(ctx context.Context, params ports.ListParams) ([]*domain.Product, int64, error) {
	qb := squirrel.Select(
		"id", "name", "unit", "category", "brand",
		"stock", "status", "image", "created_at", "updated_at",
	).From("products").
		PlaceholderFormat(squirrel.Dollar)

	// Apply filters
	if params.Category != "" {
		qb = qb.Where(squirrel.Eq{"category": params.Category})
	}
	if params.Status != "" {
		qb = qb.Where(squirrel.Eq{"status": params.Status})
	}

	// Count total items (before pagination)
	countQb := qb.Column("COUNT(*) OVER()").Limit(1)
	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	row := r.db.QueryRow(ctx, countSQL, countArgs...)
	var discard productRow
	if err := row.Scan(discard.scanDest(&totalCount)...); err != nil && err != pgx.ErrNoRows {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// Apply sorting
	orderBy := "id DESC"
	switch params.Sort {
	case "stock_asc":
		orderBy = "stock ASC"
	case "stock_desc":
		orderBy = "stock DESC"
	case "name_asc":
		orderBy = "name ASC"
	case "name_desc":
		orderBy = "name DESC"
	}
	qb = qb.OrderBy(orderBy)

	// Apply pagination
	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
		qb = qb.Offset(uint64((params.Page - 1) * params.Limit))
	}

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, totalCount, nil
}

// SearchByName retrieves products whose name contains the pattern,
// case-insensitively, newest first.
func (r *productRepository) SearchByName(ctx context.Context, pattern string, page, limit int) ([]*domain.Product, int64, error) {
	like := "%" + pattern + "%"

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM products WHERE name ILIKE $1`
	if err := r.db.QueryRow(ctx, countQuery, like).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, like, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, totalCount, nil
}

// FindAllForExport returns every product in creation order
func (r *productRepository) FindAllForExport(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products for export: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Delete removes a product, returning the number of rows removed
func (r *productRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "product deleted", slog.Int64("id", id))
	}

	return tag.RowsAffected(), nil
}

// productRow holds scan targets for nullable product columns
type productRow struct {
	p     domain.Product
	brand sql.NullString
	image sql.NullString
}

func (r *productRow) scanDest(extra ...interface{}) []interface{} {
	dest := []interface{}{
		&r.p.ID, &r.p.Name, &r.p.Unit, &r.p.Category, &r.brand,
		&r.p.Stock, &r.p.Status, &r.image, &r.p.CreatedAt, &r.p.UpdatedAt,
	}
	return append(dest, extra...)
}

func (r *productRow) product() *domain.Product {
	p := r.p
	if r.brand.Valid {
		p.Brand = &r.brand.String
	}
	if r.image.Valid {
		p.Image = &r.image.String
	}
	return &p
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var pr productRow
	if err := row.Scan(pr.scanDest()...); err != nil {
		return nil, err
	}
	return pr.product(), nil
}

func collectProducts(rows pgx.Rows) ([]*domain.Product, error) {
	var products []*domain.Product
	for rows.Next() {
		var pr productRow
		if err := rows.Scan(pr.scanDest()...); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, pr.product())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// inventoryLogRepository implements ports.InventoryLogRepository
type inventoryLogRepository struct {
	db     ports.Database
	logger *slog.Logger
}

// NewInventoryLogRepository creates a new inventory log repository
func NewInventoryLogRepository(db ports.Database, logger *slog.Logger) ports.InventoryLogRepository {
	return &inventoryLogRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "inventory_log")),
	}
}

// Append records a stock change within an existing transaction
func (r *inventoryLogRepository) Append(ctx context.Context, tx pgx.Tx, log *domain.InventoryLog) error {
	query := `
		INSERT INTO inventory_logs (product_id, old_stock, new_stock, changed_by, logged_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, logged_at`

	err := tx.QueryRow(ctx, query,
		log.ProductID, log.OldStock, log.NewStock, log.ChangedBy,
	).Scan(&log.ID, &log.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to append inventory log: %w", err)
	}

	r.logger.DebugContext(ctx, "stock change recorded",
		slog.Int64("product_id", log.ProductID),
		slog.Int("old_stock", log.OldStock),
		slog.Int("new_stock", log.NewStock))

	return nil
}

// FindByProductID returns a product's stock-change history, newest first
func (r *inventoryLogRepository) FindByProductID(ctx context.Context, productID int64) ([]domain.InventoryLog, error) {
	query := `
		SELECT id, product_id, old_stock, new_stock, changed_by, logged_at
		FROM inventory_logs
		WHERE product_id = $1
		ORDER BY logged_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.InventoryLog, 0)
	for rows.Next() {
		var l domain.InventoryLog
		if err := rows.Scan(&l.ID, &l.ProductID, &l.OldStock, &l.NewStock, &l.ChangedBy, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return logs, nil
}
