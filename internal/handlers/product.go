// internal/handlers/product.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
	"github.com/ammerola/stockroom-be/internal/handlers/middleware"
)

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	service ports.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service ports.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "product")),
	}
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseListParams(r)

	result, err := h.service.List(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list products",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Search handles GET /api/products/search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := r.URL.Query().Get("name")
	page, limit := 1, 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	result, err := h.service.Search(ctx, name, page, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to search products",
			slog.String("name", name),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to search products")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	product, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get product",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := req.ToParams()

	// Resolve who made the change: explicit payload value, then the
	// authenticated identity, then the admin fallback.
	if params.ChangedBy == "" {
		if identity, ok := middleware.IdentityFrom(ctx); ok {
			if identity.Email != "" {
				params.ChangedBy = identity.Email
			} else {
				params.ChangedBy = identity.Username
			}
		}
	}

	product, err := h.service.Update(ctx, id, params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidStock):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNameConflict):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.ErrorContext(ctx, "failed to update product",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete product",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// History handles GET /api/products/{id}/history
func (h *ProductHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	logs, err := h.service.History(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load stock history",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load stock history")
		return
	}

	h.respondJSON(w, http.StatusOK, logs)
}

// parseListParams parses query parameters for listing products
func (h *ProductHandler) parseListParams(r *http.Request) ports.ListParams {
	params := ports.ListParams{
		Page:  1,
		Limit: 10,
	}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			params.Limit = l
		}
	}

	params.Category = r.URL.Query().Get("category")
	params.Status = r.URL.Query().Get("status")
	params.Sort = r.URL.Query().Get("sort")

	return params
}

func (h *ProductHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return 0, false
	}
	return id, true
}

// Helper methods

func (h *ProductHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *ProductHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// UpdateProductRequest represents the request body for updating a product.
// Stock is accepted as either a JSON number or a numeric string; a nil
// Stock means the field was absent from the payload.
type UpdateProductRequest struct {
	Name      string     `json:"name"`
	Unit      string     `json:"unit"`
	Category  string     `json:"category"`
	Brand     *string    `json:"brand"`
	Stock     *RawNumber `json:"stock"`
	Status    *string    `json:"status"`
	Image     *string    `json:"image"`
	ChangedBy string     `json:"changedBy"`
}

// RawNumber holds a numeric payload value as its source text, whether it
// arrived as a JSON number or a quoted string.
type RawNumber string

// UnmarshalJSON implements json.Unmarshaler
func (n *RawNumber) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = RawNumber(data)
	return nil
}

// ToParams converts the request to service update parameters
func (r *UpdateProductRequest) ToParams() ports.UpdateParams {
	var stock *string
	if r.Stock != nil {
		s := string(*r.Stock)
		stock = &s
	}
	return ports.UpdateParams{
		Name:      r.Name,
		Unit:      r.Unit,
		Category:  r.Category,
		Brand:     r.Brand,
		Stock:     stock,
		Status:    r.Status,
		Image:     r.Image,
		ChangedBy: r.ChangedBy,
	}
}
