package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandemic-dashboard/internal/models"
)

type fakeImporter struct {
	imported map[models.SeriesKind]int
	fail     map[models.SeriesKind]error
}

func (f *fakeImporter) ImportSeries(ctx context.Context, kind models.SeriesKind, table *models.RawSeriesTable, batchSize int) (int, error) {
	if err := f.fail[kind]; err != nil {
		return 0, err
	}
	values := len(table.Rows) * len(table.Columns)
	f.imported[kind] = values
	return values, nil
}

func TestImportService_ImportAll(t *testing.T) {
	t.Run("imports every kind", func(t *testing.T) {
		store := &fakeImporter{imported: make(map[models.SeriesKind]int)}
		service := NewImportService(newFakeRepository(t), store, testLogger(), testMetrics())

		result, err := service.ImportAll(context.Background(), 100)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Kinds)
		assert.Equal(t, 12, result.Locations)
		assert.Equal(t, 48, result.Values)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 16, store.imported[models.KindRecovered])
	})

	t.Run("continues past a failing kind", func(t *testing.T) {
		repo := newFakeRepository(t)
		repo.failures[models.KindConfirmed] = []error{errors.New("unreachable")}
		store := &fakeImporter{
			imported: make(map[models.SeriesKind]int),
			fail:     map[models.SeriesKind]error{models.KindRecovered: errors.New("constraint violation")},
		}
		service := NewImportService(repo, store, testLogger(), testMetrics())

		result, err := service.ImportAll(context.Background(), 100)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Kinds)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0], "confirmed")
		assert.Contains(t, result.Errors[1], "constraint violation")
		assert.Contains(t, store.imported, models.KindDeaths)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		store := &fakeImporter{imported: make(map[models.SeriesKind]int)}
		service := NewImportService(newFakeRepository(t), store, testLogger(), testMetrics())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := service.ImportAll(ctx, 100)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.imported)
	})
}
