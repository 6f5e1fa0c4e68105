// internal/core/services/import_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/services"
	"github.com/ammerola/stockroom-be/test/helpers"
	"github.com/ammerola/stockroom-be/test/mocks"
)

func newImportService(t *testing.T) (*services.ImportService, *mocks.MockProductRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProductRepository(ctrl)
	return services.NewImportService(repo, helpers.TestLogger()), repo
}

func TestImportService_Import(t *testing.T) {
	t.Run("new_rows_inserted_with_defaults", func(t *testing.T) {
		svc, repo := newImportService(t)

		records := []map[string]string{
			{"name": "Hammer", "unit": "", "category": "", "stock": "12"},
		}

		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Hammer").
			Return(nil, nil)
		repo.EXPECT().
			Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p *domain.Product) error {
				assert.Equal(t, "Hammer", p.Name)
				assert.Equal(t, domain.DefaultUnit, p.Unit)
				assert.Equal(t, domain.DefaultCategory, p.Category)
				assert.Equal(t, 12, p.Stock)
				assert.Equal(t, domain.StatusInStock, p.Status)
				return nil
			})

		result, err := svc.Import(context.Background(), records)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 0, result.Skipped)
		assert.Empty(t, result.Duplicates)
	})

	t.Run("nameless_rows_skipped", func(t *testing.T) {
		svc, _ := newImportService(t)

		records := []map[string]string{
			{"name": "", "stock": "5"},
			{"name": "   ", "category": "Tools"},
		}

		result, err := svc.Import(context.Background(), records)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Added)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("existing_names_reported_as_duplicates", func(t *testing.T) {
		svc, repo := newImportService(t)

		existing := helpers.CreateTestProduct(func(p *domain.Product) {
			p.ID = 42
			p.Name = "hammer"
		})

		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Hammer").
			Return(existing, nil)

		result, err := svc.Import(context.Background(), []map[string]string{
			{"name": "Hammer"},
		})

		require.NoError(t, err)
		assert.Equal(t, 0, result.Added)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, "Hammer", result.Duplicates[0].Name)
		assert.Equal(t, int64(42), result.Duplicates[0].ExistingID)
	})

	t.Run("insert_race_classified_as_duplicate", func(t *testing.T) {
		svc, repo := newImportService(t)

		raced := helpers.CreateTestProduct(func(p *domain.Product) {
			p.ID = 7
			p.Name = "Hammer"
		})

		gomock.InOrder(
			repo.EXPECT().
				FindByNameCI(gomock.Any(), "Hammer").
				Return(nil, nil),
			repo.EXPECT().
				Save(gomock.Any(), gomock.Any()).
				Return(domain.ErrNameConflict),
			repo.EXPECT().
				FindByNameCI(gomock.Any(), "Hammer").
				Return(raced, nil),
		)

		result, err := svc.Import(context.Background(), []map[string]string{
			{"name": "Hammer"},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Duplicates, 1)
		assert.Equal(t, int64(7), result.Duplicates[0].ExistingID)
	})

	t.Run("mixed_batch_counts_each_outcome", func(t *testing.T) {
		svc, repo := newImportService(t)

		existing := helpers.CreateTestProduct(func(p *domain.Product) {
			p.ID = 3
			p.Name = "Screwdriver"
		})

		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Hammer").
			Return(nil, nil)
		repo.EXPECT().
			Save(gomock.Any(), gomock.Any()).
			Return(nil)
		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Screwdriver").
			Return(existing, nil)

		result, err := svc.Import(context.Background(), []map[string]string{
			{"name": "Hammer", "stock": "1"},
			{"name": ""},
			{"name": "Screwdriver"},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Added)
		assert.Equal(t, 2, result.Skipped, "nameless row and duplicate both count as skipped")
		assert.Len(t, result.Duplicates, 1)
	})

	t.Run("negative_stock_clamped_to_zero", func(t *testing.T) {
		svc, repo := newImportService(t)

		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Rusty Nail").
			Return(nil, nil)
		repo.EXPECT().
			Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p *domain.Product) error {
				assert.Equal(t, 0, p.Stock)
				assert.Equal(t, domain.StatusOutOfStock, p.Status)
				return nil
			})

		_, err := svc.Import(context.Background(), []map[string]string{
			{"name": "Rusty Nail", "stock": "-4"},
		})
		require.NoError(t, err)
	})

	t.Run("repository_failure_aborts_batch", func(t *testing.T) {
		svc, repo := newImportService(t)

		repo.EXPECT().
			FindByNameCI(gomock.Any(), "Hammer").
			Return(nil, errors.New("connection refused"))

		result, err := svc.Import(context.Background(), []map[string]string{
			{"name": "Hammer"},
		})

		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("cancelled_context_stops_processing", func(t *testing.T) {
		svc, _ := newImportService(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Import(ctx, []map[string]string{
			{"name": "Hammer"},
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty_batch_returns_zero_result", func(t *testing.T) {
		svc, _ := newImportService(t)

		result, err := svc.Import(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Added)
		assert.NotNil(t, result.Duplicates, "duplicates must serialize as an array, not null")
	})
}
