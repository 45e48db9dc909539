package filetypes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/logger"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := docdb.New(context.Background(), logger.New(), filepath.Join(t.TempDir(), "buzee.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := New(logger.New(), store)
	require.NoError(t, registry.Seed(context.Background()))
	return registry
}

func TestSeedAndLookups(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	registry := newTestRegistry(t)

	allowed, err := registry.AllowedExtensions(ctx)
	assert.NoError(err)
	assert.Len(allowed, len(SeedEntries()))
	assert.True(allowed["pdf"])
	assert.False(allowed[db.FileTypeFolder])

	books, err := registry.ExtensionsByCategory(ctx, CategoryBook)
	assert.NoError(err)
	assert.Equal([]string{"azw3", "epub", "mobi"}, books)

	category, err := registry.Category(ctx, ".PNG")
	assert.NoError(err)
	assert.Equal(CategoryImage, category)

	_, err = registry.Category(ctx, "exe")
	assert.ErrorIs(err, ErrUnknownFiletype)
}

func TestAddAndDisallow(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	registry := newTestRegistry(t)

	assert.ErrorIs(registry.Add(ctx, "log", "spreadsheet"), ErrInvalidCategory)
	assert.NoError(registry.Add(ctx, ".LOG", CategoryDocument))
	assert.NoError(registry.SetAllowed(ctx, "mp3", false))

	allowed, err := registry.AllowedExtensions(ctx)
	assert.NoError(err)
	assert.True(allowed["log"])
	assert.False(allowed["mp3"])

	assert.NoError(registry.Seed(ctx))
	allowed, err = registry.AllowedExtensions(ctx)
	assert.NoError(err)
	assert.False(allowed["mp3"])
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: ".PDF", expected: "pdf"},
		{input: " docx ", expected: "docx"},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

