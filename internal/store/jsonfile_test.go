package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
)

func TestJSONFileLoadMissingFileIsEmptyList(t *testing.T) {
	st, err := NewJSONFile(filepath.Join(t.TempDir(), "products.json"), testLogger())
	require.NoError(t, err)

	products, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestJSONFileSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	st, err := NewJSONFile(path, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	saved := []tracker.TrackedProduct{sampleProduct("7891000100103"), tracker.NewTracked("789200")}
	require.NoError(t, st.Save(ctx, saved))

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	first := loaded[0]
	assert.Equal(t, "7891000100103", first.Code)
	assert.Equal(t, "Dipirona Sodica 500mg", first.Name)
	require.NotNil(t, first.CurrentPrice)
	assert.True(t, first.CurrentPrice.Equal(*saved[0].CurrentPrice))
	require.NotNil(t, first.VariationPercent)
	assert.True(t, first.VariationPercent.Equal(*saved[0].VariationPercent))
	require.Len(t, first.History, 2)
	assert.True(t, first.History[1].Price.Equal(saved[0].History[1].Price))
	assert.Equal(t, tracker.StatusTracking, first.Status)

	second := loaded[1]
	assert.Equal(t, tracker.StatusPending, second.Status)
	assert.Nil(t, second.CurrentPrice)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"products\""), "document should be indented: %s", raw)
}

func TestJSONFileSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	st, err := NewJSONFile(filepath.Join(dir, "products.json"), testLogger())
	require.NoError(t, err)

	require.NoError(t, st.Save(context.Background(), []tracker.TrackedProduct{tracker.NewTracked("789100")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestJSONFileSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "products.json")
	st, err := NewJSONFile(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, st.Save(context.Background(), nil))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestJSONFileLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("not json {"), 0o644))

	st, err := NewJSONFile(path, testLogger())
	require.NoError(t, err)

	_, err = st.Load(context.Background())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestNewJSONFileRequiresPath(t *testing.T) {
	_, err := NewJSONFile("", testLogger())
	require.Error(t, err)
}
