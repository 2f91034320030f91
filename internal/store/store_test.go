package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "store-test", Output: io.Discard})
}

func sampleProduct(code string) tracker.TrackedProduct {
	current := decimal.RequireFromString("19.90")
	previous := decimal.RequireFromString("21.50")
	variation := decimal.RequireFromString("-7.44")
	checked := time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)

	return tracker.TrackedProduct{
		Code:             code,
		Name:             "Dipirona Sodica 500mg",
		CurrentPrice:     &current,
		PreviousPrice:    &previous,
		VariationPercent: &variation,
		LastCheckedAt:    &checked,
		Status:           tracker.StatusTracking,
		History: []tracker.PricePoint{
			{CheckedAt: checked.Add(-24 * time.Hour), Price: previous},
			{CheckedAt: checked, Price: current},
		},
	}
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	jsonStore, err := New(ctx, config.StoreConfig{
		Driver: config.StoreDriverJSONFile,
		Path:   filepath.Join(dir, "products.json"),
	}, testLogger())
	require.NoError(t, err)
	require.IsType(t, &JSONFile{}, jsonStore)

	sqliteStore, err := New(ctx, config.StoreConfig{
		Driver:      config.StoreDriverSQLite,
		DSN:         filepath.Join(dir, "store.db"),
		AutoMigrate: true,
	}, testLogger())
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, sqliteStore)
	require.NoError(t, sqliteStore.Close())

	_, err = New(ctx, config.StoreConfig{Driver: "redis"}, testLogger())
	require.Error(t, err)
}
