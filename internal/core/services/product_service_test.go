// internal/core/services/product_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
	"github.com/ammerola/stockroom-be/internal/core/services"
	"github.com/ammerola/stockroom-be/test/helpers"
	"github.com/ammerola/stockroom-be/test/mocks"
)

type productMocks struct {
	repo *mocks.MockProductRepository
	logs *mocks.MockInventoryLogRepository
	db   *mocks.MockDatabase
}

func newProductService(t *testing.T) (*services.ProductService, *productMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &productMocks{
		repo: mocks.NewMockProductRepository(ctrl),
		logs: mocks.NewMockInventoryLogRepository(ctrl),
		db:   mocks.NewMockDatabase(ctrl),
	}
	svc := services.NewProductService(m.repo, m.logs, m.db, helpers.TestLogger())
	return svc, m
}

// passthroughTx makes the mock database run the transaction body directly.
func passthroughTx(m *mocks.MockDatabase) {
	m.EXPECT().
		Transaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(pgx.Tx) error) error {
			return fn(nil)
		})
}

func stockOf(v string) *string {
	return &v
}

func validUpdateParams() ports.UpdateParams {
	return ports.UpdateParams{
		Name:     "Widget",
		Unit:     "pcs",
		Category: "Hardware",
		Stock:    stockOf("10"),
	}
}

func TestProductService_List(t *testing.T) {
	tests := []struct {
		name           string
		params         ports.ListParams
		setupMocks     func(*productMocks)
		expectedError  bool
		expectedPage   int
		expectedLimit  int
		expectedTotal  int64
		expectedPages  int
		expectedLength int
	}{
		{
			name:   "defaults_applied_for_zero_pagination",
			params: ports.ListParams{},
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					FindAll(gomock.Any(), ports.ListParams{Page: 1, Limit: 10}).
					Return(helpers.CreateTestProducts(3), int64(3), nil)
			},
			expectedPage:   1,
			expectedLimit:  10,
			expectedTotal:  3,
			expectedPages:  1,
			expectedLength: 3,
		},
		{
			name:   "total_pages_rounds_up",
			params: ports.ListParams{Page: 2, Limit: 5},
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					FindAll(gomock.Any(), ports.ListParams{Page: 2, Limit: 5}).
					Return(helpers.CreateTestProducts(5), int64(12), nil)
			},
			expectedPage:   2,
			expectedLimit:  5,
			expectedTotal:  12,
			expectedPages:  3,
			expectedLength: 5,
		},
		{
			name:   "negative_pagination_clamped",
			params: ports.ListParams{Page: -3, Limit: -1, Category: "Hardware"},
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					FindAll(gomock.Any(), ports.ListParams{Category: "Hardware", Page: 1, Limit: 10}).
					Return(nil, int64(0), nil)
			},
			expectedPage:   1,
			expectedLimit:  10,
			expectedTotal:  0,
			expectedPages:  0,
			expectedLength: 0,
		},
		{
			name:   "repository_error_propagates",
			params: ports.ListParams{Page: 1, Limit: 10},
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					FindAll(gomock.Any(), gomock.Any()).
					Return(nil, int64(0), errors.New("connection refused"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newProductService(t)
			tt.setupMocks(m)

			result, err := svc.List(context.Background(), tt.params)

			if tt.expectedError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedPage, result.Page)
			assert.Equal(t, tt.expectedLimit, result.Limit)
			assert.Equal(t, tt.expectedTotal, result.Total)
			assert.Equal(t, tt.expectedPages, result.TotalPages)
			assert.Len(t, result.Data, tt.expectedLength)
			assert.NotNil(t, result.Data, "data must serialize as an array, not null")
		})
	}
}

func TestProductService_Search(t *testing.T) {
	svc, m := newProductService(t)

	m.repo.EXPECT().
		SearchByName(gomock.Any(), "widget", 1, 10).
		Return(helpers.CreateTestProducts(2), int64(2), nil)

	result, err := svc.Search(context.Background(), "widget", 0, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Len(t, result.Data, 2)
}

func TestProductService_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc, m := newProductService(t)
		want := helpers.CreateTestProduct()

		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(want, nil)

		got, err := svc.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not_found", func(t *testing.T) {
		svc, m := newProductService(t)

		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(99)).
			Return(nil, nil)

		_, err := svc.Get(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProductService_Update(t *testing.T) {
	tests := []struct {
		name          string
		params        ports.UpdateParams
		setupMocks    func(*productMocks)
		expectedError error
	}{
		{
			name: "missing_name_rejected",
			params: func() ports.UpdateParams {
				p := validUpdateParams()
				p.Name = "   "
				return p
			}(),
			setupMocks:    func(m *productMocks) {},
			expectedError: domain.ErrMissingField,
		},
		{
			name: "missing_unit_rejected",
			params: func() ports.UpdateParams {
				p := validUpdateParams()
				p.Unit = ""
				return p
			}(),
			setupMocks:    func(m *productMocks) {},
			expectedError: domain.ErrMissingField,
		},
		{
			name: "negative_stock_rejected",
			params: func() ports.UpdateParams {
				p := validUpdateParams()
				p.Stock = stockOf("-5")
				return p
			}(),
			setupMocks:    func(m *productMocks) {},
			expectedError: domain.ErrInvalidStock,
		},
		{
			name: "non_numeric_stock_rejected",
			params: func() ports.UpdateParams {
				p := validUpdateParams()
				p.Stock = stockOf("plenty")
				return p
			}(),
			setupMocks:    func(m *productMocks) {},
			expectedError: domain.ErrInvalidStock,
		},
		{
			name: "absent_stock_rejected",
			params: func() ports.UpdateParams {
				p := validUpdateParams()
				p.Stock = nil
				return p
			}(),
			setupMocks:    func(m *productMocks) {},
			expectedError: domain.ErrInvalidStock,
		},
		{
			name:   "name_conflict_checked_before_existence",
			params: validUpdateParams(),
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					NameTakenByOther(gomock.Any(), "Widget", int64(1)).
					Return(true, nil)
			},
			expectedError: domain.ErrNameConflict,
		},
		{
			name:   "unknown_product_rejected",
			params: validUpdateParams(),
			setupMocks: func(m *productMocks) {
				m.repo.EXPECT().
					NameTakenByOther(gomock.Any(), "Widget", int64(1)).
					Return(false, nil)
				m.repo.EXPECT().
					FindByID(gomock.Any(), int64(1)).
					Return(nil, nil)
			},
			expectedError: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newProductService(t)
			tt.setupMocks(m)

			_, err := svc.Update(context.Background(), 1, tt.params)
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}

	t.Run("stock_change_appends_log", func(t *testing.T) {
		svc, m := newProductService(t)

		existing := helpers.CreateTestProduct(func(p *domain.Product) {
			p.Stock = 25
		})

		m.repo.EXPECT().
			NameTakenByOther(gomock.Any(), "Widget", int64(1)).
			Return(false, nil)
		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(existing, nil)
		passthroughTx(m.db)
		m.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)
		m.logs.EXPECT().
			Append(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ pgx.Tx, log *domain.InventoryLog) error {
				assert.Equal(t, int64(1), log.ProductID)
				assert.Equal(t, 25, log.OldStock)
				assert.Equal(t, 10, log.NewStock)
				assert.Equal(t, "admin", log.ChangedBy)
				return nil
			})

		updated, err := svc.Update(context.Background(), 1, validUpdateParams())

		require.NoError(t, err)
		assert.Equal(t, 10, updated.Stock)
		assert.Equal(t, domain.StatusInStock, updated.Status)
	})

	t.Run("unchanged_stock_skips_log", func(t *testing.T) {
		svc, m := newProductService(t)

		existing := helpers.CreateTestProduct(func(p *domain.Product) {
			p.Stock = 10
		})

		m.repo.EXPECT().
			NameTakenByOther(gomock.Any(), "Widget", int64(1)).
			Return(false, nil)
		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(existing, nil)
		passthroughTx(m.db)
		m.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)
		// no Append expectation: a log write here fails the test

		_, err := svc.Update(context.Background(), 1, validUpdateParams())
		require.NoError(t, err)
	})

	t.Run("explicit_status_overrides_derived", func(t *testing.T) {
		svc, m := newProductService(t)

		existing := helpers.CreateTestProduct()
		status := "Discontinued"
		params := validUpdateParams()
		params.Status = &status
		params.Stock = stockOf("25")

		m.repo.EXPECT().
			NameTakenByOther(gomock.Any(), "Widget", int64(1)).
			Return(false, nil)
		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(existing, nil)
		passthroughTx(m.db)
		m.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		updated, err := svc.Update(context.Background(), 1, params)

		require.NoError(t, err)
		assert.Equal(t, "Discontinued", updated.Status)
	})

	t.Run("empty_stock_counts_as_zero", func(t *testing.T) {
		svc, m := newProductService(t)

		existing := helpers.CreateTestProduct(func(p *domain.Product) {
			p.Stock = 5
		})
		params := validUpdateParams()
		params.Stock = stockOf("")
		params.ChangedBy = "ops@example.com"

		m.repo.EXPECT().
			NameTakenByOther(gomock.Any(), "Widget", int64(1)).
			Return(false, nil)
		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(existing, nil)
		passthroughTx(m.db)
		m.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)
		m.logs.EXPECT().
			Append(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ pgx.Tx, log *domain.InventoryLog) error {
				assert.Equal(t, 0, log.NewStock)
				assert.Equal(t, "ops@example.com", log.ChangedBy)
				return nil
			})

		updated, err := svc.Update(context.Background(), 1, params)

		require.NoError(t, err)
		assert.Equal(t, 0, updated.Stock)
		assert.Equal(t, domain.StatusOutOfStock, updated.Status)
	})

	t.Run("transaction_failure_propagates", func(t *testing.T) {
		svc, m := newProductService(t)

		m.repo.EXPECT().
			NameTakenByOther(gomock.Any(), "Widget", int64(1)).
			Return(false, nil)
		m.repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(helpers.CreateTestProduct(), nil)
		m.db.EXPECT().
			Transaction(gomock.Any(), gomock.Any()).
			Return(errors.New("deadlock detected"))

		_, err := svc.Update(context.Background(), 1, validUpdateParams())
		assert.Error(t, err)
	})
}

func TestProductService_Delete(t *testing.T) {
	t.Run("returns_deleted_count", func(t *testing.T) {
		svc, m := newProductService(t)

		m.repo.EXPECT().
			Delete(gomock.Any(), int64(7)).
			Return(int64(1), nil)

		deleted, err := svc.Delete(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("absent_id_is_not_an_error", func(t *testing.T) {
		svc, m := newProductService(t)

		m.repo.EXPECT().
			Delete(gomock.Any(), int64(404)).
			Return(int64(0), nil)

		deleted, err := svc.Delete(context.Background(), 404)
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})
}

func TestProductService_History(t *testing.T) {
	svc, m := newProductService(t)

	logs := []domain.InventoryLog{
		helpers.CreateTestLog(3, 5, 8),
	}

	m.logs.EXPECT().
		FindByProductID(gomock.Any(), int64(3)).
		Return(logs, nil)

	got, err := svc.History(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, logs, got)
}

func TestProductService_Export(t *testing.T) {
	svc, m := newProductService(t)

	products := helpers.CreateTestProducts(4)
	m.repo.EXPECT().
		FindAllForExport(gomock.Any()).
		Return(products, nil)

	got, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, products, got)
}
