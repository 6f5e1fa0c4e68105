// internal/handlers/import.go
package handlers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	redis_a "github.com/ammerola/stockroom-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// ImportHandler handles CSV import operations
type ImportHandler struct {
	service     ports.ImportService
	cache       ports.CacheRepository
	logger      *slog.Logger
	maxFileSize int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ports.ImportService, cache ports.CacheRepository, logger *slog.Logger, maxFileSize int64) *ImportHandler {
	return &ImportHandler{
		service:     service,
		cache:       cache,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
	}
}

// ImportCSV handles POST /api/products/import
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	records, err := parseCSVRecords(file)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse CSV upload",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusBadRequest, "Invalid CSV file")
		return
	}

	result, err := h.service.Import(ctx, records)
	if err != nil {
		h.logger.ErrorContext(ctx, "import failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to import products")
		return
	}

	// A successful import changes the catalog; drop any cached export.
	if h.cache != nil && result.Added > 0 {
		key := redis_a.BuildKey(redis_a.PrefixExport, "csv")
		if err := h.cache.Delete(ctx, key); err != nil {
			h.logger.WarnContext(ctx, "failed to invalidate export cache",
				slog.String("error", err.Error()))
		}
	}

	h.logger.InfoContext(ctx, "import completed",
		slog.String("filename", header.Filename),
		slog.Int("added", result.Added),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", len(result.Duplicates)))

	h.respondJSON(w, http.StatusOK, result)
}

// parseCSVRecords reads a CSV stream into header-keyed records. Header
// names are lowercased and trimmed so exports from other tools round-trip.
func parseCSVRecords(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
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

func (h *ImportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *ImportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
