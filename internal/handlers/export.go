// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/ammerola/stockroom-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

const exportFilename = "products_export.csv"

var exportColumns = []string{"name", "unit", "category", "brand", "stock", "status", "image"}

// ExportHandler handles catalog export operations
type ExportHandler struct {
	service  ports.ProductService
	cache    ports.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ports.ProductService, cache ports.CacheRepository, cacheTTL time.Duration, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service:  service,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With(slog.String("handler", "export")),
	}
}

// ExportCSV handles GET /api/products/export
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check cache first
	cacheKey := redis_a.BuildKey(redis_a.PrefixExport, "csv")
	if h.cache != nil {
		var cached []byte
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			h.writeCSV(w, cached, "HIT")
			h.logger.InfoContext(ctx, "CSV export served from cache")
			return
		}
	}

	products, err := h.service.Export(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve products for export",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to export products")
		return
	}

	data, err := generateCSV(products)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate CSV",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate CSV")
		return
	}

	h.writeCSV(w, data, "MISS")

	// Cache the result (async)
	if h.cache != nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := h.cache.SetWithTTL(cacheCtx, cacheKey, data, h.cacheTTL); err != nil {
				h.logger.WarnContext(cacheCtx, "failed to cache CSV export",
					slog.String("error", err.Error()))
			}
		}()
	}

	h.logger.InfoContext(ctx, "CSV export completed",
		slog.Int("total_rows", len(products)))
}

// ExportExcel handles GET /api/products/export/xlsx
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.service.Export(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve products for export",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to export products")
		return
	}

	data, err := generateExcel(products)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate Excel file",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	filename := fmt.Sprintf("products_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write Excel response",
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed",
		slog.Int("total_rows", len(products)),
		slog.String("filename", filename))
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, data []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Cache", cacheStatus)

	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write CSV response",
			slog.String("error", err.Error()))
	}
}

// generateCSV renders the catalog as CSV in export column order
func generateCSV(products []*domain.Product) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range products {
		if err := writer.Write(exportRow(p)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// generateExcel creates an Excel workbook in memory from the catalog
func generateExcel(products []*domain.Product) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, name := range exportColumns {
		cell := headerRow.AddCell()
		cell.Value = name
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, p := range products {
		dataRow := sheet.AddRow()
		for _, value := range exportRow(p) {
			cell := dataRow.AddCell()
			cell.Value = value
		}
	}

	for i := 0; i < len(exportColumns); i++ {
		sheet.SetColWidth(i, i, 15)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buf.Bytes(), nil
}

func exportRow(p *domain.Product) []string {
	brand := ""
	if p.Brand != nil {
		brand = *p.Brand
	}
	image := ""
	if p.Image != nil {
		image = *p.Image
	}

	return []string{
		p.Name,
		p.Unit,
		p.Category,
		brand,
		strconv.Itoa(p.Stock),
		p.Status,
		image,
	}
}

func (h *ExportHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}
