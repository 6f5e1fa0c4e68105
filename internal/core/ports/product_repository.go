// internal/core/ports/product_repository.go
package ports

import (
	"context"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// ListParams holds filter, sort and pagination parameters for product listing.
type ListParams struct {
	Category string
	Status   string
	Sort     string
	Page     int
	Limit    int
}

// ProductRepository defines the persistence port for the products table.
// This interface is implemented by the database adapter.
type ProductRepository interface {
	Save(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, tx pgx.Tx, p *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	// FindByNameCI looks a product up by name under case-insensitive
	// comparison; returns nil, nil when absent.
	FindByNameCI(ctx context.Context, name string) (*domain.Product, error)
	// NameTakenByOther reports whether any product other than excludeID
	// already uses the name, case-insensitively.
	NameTakenByOther(ctx context.Context, name string, excludeID int64) (bool, error)
	FindAll(ctx context.Context, params ListParams) ([]*domain.Product, int64, error)
	SearchByName(ctx context.Context, pattern string, page, limit int) ([]*domain.Product, int64, error)
	// FindAllForExport returns every product in creation order.
	FindAllForExport(ctx context.Context) ([]*domain.Product, error)
	// Delete removes a product and returns the number of rows removed
	// (0 or 1); deleting an absent id is not an error.
	Delete(ctx context.Context, id int64) (int64, error)
}

// InventoryLogRepository defines the persistence port for the append-only
// inventory_logs table.
type InventoryLogRepository interface {
	Append(ctx context.Context, tx pgx.Tx, log *domain.InventoryLog) error
	// FindByProductID returns a product's stock-change history, newest first.
	FindByProductID(ctx context.Context, productID int64) ([]domain.InventoryLog, error)
}
