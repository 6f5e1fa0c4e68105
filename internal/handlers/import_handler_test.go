// internal/handlers/import_handler_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/handlers"
	"github.com/ammerola/stockroom-be/test/helpers"
	"github.com/ammerola/stockroom-be/test/mocks"
)

const testMaxFileSize = 10 << 20

// csvUpload builds a multipart request body carrying a CSV file field.
func csvUpload(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestImportHandler_ImportCSV(t *testing.T) {
	t.Run("rows_parsed_into_header_keyed_records", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		handler := handlers.NewImportHandler(service, nil, helpers.TestLogger(), testMaxFileSize)

		service.EXPECT().
			Import(gomock.Any(), []map[string]string{
				{"name": "Hammer", "unit": "pcs", "category": "Tools", "stock": "5"},
				{"name": "Nail", "unit": "box", "category": "Tools", "stock": "100"},
			}).
			Return(&domain.ImportResult{Added: 2, Duplicates: []domain.DuplicateRecord{}}, nil)

		body, contentType := csvUpload(t, "Name,Unit,Category,Stock\nHammer,pcs,Tools,5\nNail,box,Tools,100\n")
		req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var result domain.ImportResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 2, result.Added)
		assert.NotNil(t, result.Duplicates)
	})

	t.Run("successful_import_invalidates_export_cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		cache := mocks.NewMockCacheRepository(ctrl)
		handler := handlers.NewImportHandler(service, cache, helpers.TestLogger(), testMaxFileSize)

		service.EXPECT().
			Import(gomock.Any(), gomock.Any()).
			Return(&domain.ImportResult{Added: 1, Duplicates: []domain.DuplicateRecord{}}, nil)
		cache.EXPECT().
			Delete(gomock.Any(), "export:csv").
			Return(nil)

		body, contentType := csvUpload(t, "name\nHammer\n")
		req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no_additions_keeps_export_cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		cache := mocks.NewMockCacheRepository(ctrl)
		handler := handlers.NewImportHandler(service, cache, helpers.TestLogger(), testMaxFileSize)

		service.EXPECT().
			Import(gomock.Any(), gomock.Any()).
			Return(&domain.ImportResult{Skipped: 1, Duplicates: []domain.DuplicateRecord{}}, nil)
		// no Delete expectation: cache invalidation here fails the test

		body, contentType := csvUpload(t, "name\n\n")
		req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing_file_field_rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		handler := handlers.NewImportHandler(service, nil, helpers.TestLogger(), testMaxFileSize)

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("other", "value"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/products/import", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non_multipart_body_rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		handler := handlers.NewImportHandler(service, nil, helpers.TestLogger(), testMaxFileSize)

		req := httptest.NewRequest(http.MethodPost, "/api/products/import", bytes.NewBufferString("name\nHammer"))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed_csv_rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		handler := handlers.NewImportHandler(service, nil, helpers.TestLogger(), testMaxFileSize)

		body, contentType := csvUpload(t, "name\n\"unclosed")
		req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ragged_rows_keep_known_columns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockImportService(ctrl)
		handler := handlers.NewImportHandler(service, nil, helpers.TestLogger(), testMaxFileSize)

		service.EXPECT().
			Import(gomock.Any(), []map[string]string{
				{"name": "Hammer"},
			}).
			Return(&domain.ImportResult{Added: 1, Duplicates: []domain.DuplicateRecord{}}, nil)

		body, contentType := csvUpload(t, "name,unit\nHammer\n")
		req := httptest.NewRequest(http.MethodPost, "/api/products/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.ImportCSV(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
