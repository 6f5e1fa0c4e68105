// internal/core/domain/product.go
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Default values applied to products created through import
const (
	DefaultUnit     = "pcs"
	DefaultCategory = "Uncategorized"
)

// Stock-derived status values
const (
	StatusInStock    = "In Stock"
	StatusOutOfStock = "Out of Stock"
)

// Product represents a single catalog item with a stock quantity.
// Name is unique under case-insensitive comparison; stock is never negative.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Category  string    `json:"category"`
	Brand     *string   `json:"brand"`
	Stock     int       `json:"stock"`
	Status    string    `json:"status"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryLog is an append-only record of a stock-quantity change.
type InventoryLog struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	OldStock  int       `json:"oldStock"`
	NewStock  int       `json:"newStock"`
	ChangedBy string    `json:"changedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// DeriveStatus returns the stock-sign status used when no explicit
// status was provided.
func DeriveStatus(stock int) string {
	if stock > 0 {
		return StatusInStock
	}
	return StatusOutOfStock
}

// ParseStock parses a raw stock value, clamping negative or unparseable
// input to zero. Import rows never fail on a bad stock field.
func ParseStock(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ProductFromRecord builds a Product from a raw string-keyed import record,
// filling defaults for every absent or blank field. Returns false when the
// record has no usable name and must be skipped.
func ProductFromRecord(rec map[string]string) (Product, bool) {
	name := strings.TrimSpace(rec["name"])
	if name == "" {
		return Product{}, false
	}

	p := Product{
		Name:     name,
		Unit:     strings.TrimSpace(rec["unit"]),
		Category: strings.TrimSpace(rec["category"]),
		Stock:    ParseStock(rec["stock"]),
		Status:   strings.TrimSpace(rec["status"]),
	}

	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Status == "" {
		p.Status = DeriveStatus(p.Stock)
	}
	if brand := strings.TrimSpace(rec["brand"]); brand != "" {
		p.Brand = &brand
	}
	if image := strings.TrimSpace(rec["image"]); image != "" {
		p.Image = &image
	}

	return p, true
}

// DuplicateRecord identifies an import row whose name collided with an
// existing product.
type DuplicateRecord struct {
	Name       string `json:"name"`
	ExistingID int64  `json:"existingId"`
}

// ImportResult is the outcome of one CSV import pass.
type ImportResult struct {
	Added      int               `json:"added"`
	Skipped    int               `json:"skipped"`
	Duplicates []DuplicateRecord `json:"duplicates"`
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
