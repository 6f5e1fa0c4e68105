//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/ammerola/stockroom-be/internal/adapters/db"
	redis_a "github.com/ammerola/stockroom-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockroom-be/internal/core/services"
	"github.com/ammerola/stockroom-be/internal/handlers"
	"github.com/ammerola/stockroom-be/internal/handlers/middleware"
	"github.com/ammerola/stockroom-be/internal/pkg/token"
	"github.com/ammerola/stockroom-be/test/helpers"
)

type CatalogE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	authToken string
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
}

func (s *CatalogE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL

	s.authToken = s.login("admin", "test-password")
}

func (s *CatalogE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *CatalogE2ESuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.testRedis.Server.FlushAll()
}

func (s *CatalogE2ESuite) TestCompleteCatalogWorkflow() {
	// 1. Import a CSV of products
	result := s.importCSV("name,unit,category,brand,stock\nHammer,pcs,Tools,Acme,5\nNail,box,Tools,,100\n")
	s.Equal(float64(2), result["added"])

	// 2. List the catalog
	resp := s.makeRequest("GET", "/api/products?category=Tools", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var listResponse map[string]interface{}
	s.decodeResponse(resp, &listResponse)
	s.Equal(float64(2), listResponse["total"])

	items := listResponse["data"].([]interface{})
	s.Len(items, 2)

	hammer := s.findByName(items, "Hammer")
	id := int64(hammer["id"].(float64))

	// 3. Update the hammer's stock
	updateReq := map[string]interface{}{
		"name":     "Hammer",
		"unit":     "pcs",
		"category": "Tools",
		"stock":    12,
	}
	resp = s.makeRequest("PUT", fmt.Sprintf("/api/products/%d", id), updateReq)
	s.Equal(http.StatusOK, resp.StatusCode)

	var updated map[string]interface{}
	s.decodeResponse(resp, &updated)
	s.Equal(float64(12), updated["stock"])
	s.Equal("In Stock", updated["status"])

	// 4. The stock change shows up in history
	resp = s.makeRequest("GET", fmt.Sprintf("/api/products/%d/history", id), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var history []map[string]interface{}
	s.decodeResponse(resp, &history)
	s.Require().Len(history, 1)
	s.Equal(float64(5), history[0]["oldStock"])
	s.Equal(float64(12), history[0]["newStock"])

	// 5. Export the catalog as CSV, twice to exercise the cache
	resp = s.makeRequest("GET", "/api/products/export", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("text/csv", resp.Header.Get("Content-Type"))
	s.Equal("MISS", resp.Header.Get("X-Cache"))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	s.Require().Eventually(func() bool {
		return s.testRedis.Server.Exists("export:csv")
	}, time.Second, 10*time.Millisecond)

	resp = s.makeRequest("GET", "/api/products/export", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("HIT", resp.Header.Get("X-Cache"))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	// 6. Delete a product
	resp = s.makeRequest("DELETE", fmt.Sprintf("/api/products/%d", id), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var deleteResponse map[string]interface{}
	s.decodeResponse(resp, &deleteResponse)
	s.Equal(float64(1), deleteResponse["deleted"])

	// 7. The product is gone
	resp = s.makeRequest("GET", fmt.Sprintf("/api/products/%d", id), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *CatalogE2ESuite) TestImportDuplicateDetection() {
	result := s.importCSV("name,stock\nHammer,5\n")
	s.Equal(float64(1), result["added"])

	result = s.importCSV("name,stock\nHAMMER,9\n,3\n")
	s.Equal(float64(0), result["added"])
	s.Equal(float64(2), result["skipped"], "duplicate and nameless row both count")

	duplicates := result["duplicates"].([]interface{})
	s.Require().Len(duplicates, 1)
	s.Equal("HAMMER", duplicates[0].(map[string]interface{})["name"])
}

func (s *CatalogE2ESuite) TestSearchFunctionality() {
	s.importCSV("name,stock\nVictorian Silver Teapot,1\nModern Glass Sculpture,2\nVintage Silver Ring,3\n")

	resp := s.makeRequest("GET", "/api/products/search?name=silver", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var searchResults map[string]interface{}
	s.decodeResponse(resp, &searchResults)
	s.Equal(float64(2), searchResults["total"])

	resp = s.makeRequest("GET", "/api/products/search?name=glass", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.decodeResponse(resp, &searchResults)
	s.Equal(float64(1), searchResults["total"])
}

func (s *CatalogE2ESuite) TestUpdateValidation() {
	result := s.importCSV("name,stock\nHammer,5\nScrewdriver,2\n")
	s.Equal(float64(2), result["added"])

	resp := s.makeRequest("GET", "/api/products?limit=10", nil)
	var listResponse map[string]interface{}
	s.decodeResponse(resp, &listResponse)

	items := listResponse["data"].([]interface{})
	hammer := s.findByName(items, "Hammer")
	id := int64(hammer["id"].(float64))

	// Renaming onto another product's name conflicts
	resp = s.makeRequest("PUT", fmt.Sprintf("/api/products/%d", id), map[string]interface{}{
		"name":     "screwdriver",
		"unit":     "pcs",
		"category": "Uncategorized",
		"stock":    5,
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Negative stock is rejected
	resp = s.makeRequest("PUT", fmt.Sprintf("/api/products/%d", id), map[string]interface{}{
		"name":     "Hammer",
		"unit":     "pcs",
		"category": "Uncategorized",
		"stock":    -1,
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// A payload without a stock field is rejected
	resp = s.makeRequest("PUT", fmt.Sprintf("/api/products/%d", id), map[string]interface{}{
		"name":     "Hammer",
		"unit":     "pcs",
		"category": "Uncategorized",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *CatalogE2ESuite) TestAuthenticationRequired() {
	// Catalog reads are public
	resp, err := s.client.Get(s.baseURL + "/api/products")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, err = s.client.Get(s.baseURL + "/api/products/search?name=x")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// Mutations and bulk transfers are not
	req, err := http.NewRequest("DELETE", s.baseURL+"/api/products/1", nil)
	s.Require().NoError(err)
	resp, err = s.client.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, err = s.client.Get(s.baseURL + "/api/products/export")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *CatalogE2ESuite) TestLoginRejectsBadCredentials() {
	body, err := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	s.Require().NoError(err)

	resp, err := s.client.Post(s.baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *CatalogE2ESuite) TestHealthCheck() {
	resp, err := s.client.Get(s.baseURL + "/api/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal(true, health["ok"])
}

// Helper methods

func (s *CatalogE2ESuite) startTestServer() *httptest.Server {
	cfg := helpers.LoadTestConfig()
	logger := helpers.TestLogger()

	productRepo := db.NewProductRepository(s.testDB.Database, logger)
	logRepo := db.NewInventoryLogRepository(s.testDB.Database, logger)
	cache := redis_a.NewCache(s.testRedis.Client, cfg.Export.CacheTTL, logger)

	tokenManager := token.NewManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	identities, err := services.NewStaticIdentityProvider(
		cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email, bcrypt.MinCost)
	s.Require().NoError(err)

	productService := services.NewProductService(productRepo, logRepo, s.testDB.Database, logger)
	importService := services.NewImportService(productRepo, logger)
	authService := services.NewAuthService(identities, tokenManager, logger)

	productHandler := handlers.NewProductHandler(productService, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)
	importHandler := handlers.NewImportHandler(importService, cache, logger, 10<<20)
	exportHandler := handlers.NewExportHandler(productService, cache, cfg.Export.CacheTTL, logger)
	healthHandler := handlers.NewHealthHandler(s.testDB.Database, s.testRedis.Client, logger)

	requireAuth := middleware.RequireAuth(tokenManager)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/search", productHandler.Search)
	mux.Handle("GET /api/products/export", authed(exportHandler.ExportCSV))
	mux.Handle("GET /api/products/export/xlsx", authed(exportHandler.ExportExcel))
	mux.Handle("POST /api/products/import", authed(importHandler.ImportCSV))
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.HandleFunc("GET /api/products/{id}/history", productHandler.History)
	mux.Handle("PUT /api/products/{id}", authed(productHandler.Update))
	mux.Handle("DELETE /api/products/{id}", authed(productHandler.Delete))

	return httptest.NewServer(mux)
}

func (s *CatalogE2ESuite) login(username, password string) string {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	s.Require().NoError(err)

	resp, err := s.client.Post(s.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var loginResponse map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&loginResponse))

	tok := loginResponse["token"].(string)
	s.Require().NotEmpty(tok)
	return tok
}

func (s *CatalogE2ESuite) importCSV(content string) map[string]interface{} {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "products.csv")
	s.Require().NoError(err)
	_, err = io.Copy(part, bytes.NewBufferString(content))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req, err := http.NewRequest("POST", s.baseURL+"/api/products/import", body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.authToken)

	resp, err := s.client.Do(req)
	s.Require().NoError(err)

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	s.decodeResponse(resp, &result)
	return result
}

func (s *CatalogE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.Require().NoError(err)

	req.Header.Set("Authorization", "Bearer "+s.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)

	return resp
}

func (s *CatalogE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func (s *CatalogE2ESuite) findByName(items []interface{}, name string) map[string]interface{} {
	for _, raw := range items {
		item := raw.(map[string]interface{})
		if item["name"] == name {
			return item
		}
	}
	s.Require().Failf("product not found", "no product named %q in listing", name)
	return nil
}

func TestCatalogE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(CatalogE2ESuite))
}
