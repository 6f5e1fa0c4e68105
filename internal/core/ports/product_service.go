// internal/core/ports/product_service.go
package ports

import (
	"context"

	"github.com/ammerola/stockroom-be/internal/core/domain"
)

// UpdateParams is the input to the product update pipeline. Stock arrives
// as the raw payload value so the pipeline owns its validation; nil means
// the payload carried no stock field at all.
type UpdateParams struct {
	Name      string
	Unit      string
	Category  string
	Brand     *string
	Stock     *string
	Status    *string
	Image     *string
	ChangedBy string
}

// ListResult holds one page of a filtered product listing.
type ListResult struct {
	Data       []*domain.Product `json:"data"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// ProductService defines the application service port for the product catalog.
type ProductService interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Search(ctx context.Context, pattern string, page, limit int) (*ListResult, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (int64, error)
	History(ctx context.Context, productID int64) ([]domain.InventoryLog, error)
	Export(ctx context.Context) ([]*domain.Product, error)
}

// ImportService turns parsed CSV records into insert decisions.
type ImportService interface {
	Import(ctx context.Context, records []map[string]string) (*domain.ImportResult, error)
}
