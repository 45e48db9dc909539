package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/db/searchdb"
	"github.com/meghashyamc/buzee/logger"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *Service
	store   *docdb.Store
	index   *searchdb.BleveDB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.New()
	dir := t.TempDir()

	index, err := searchdb.New(log, filepath.Join(dir, "search_index"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	store, err := docdb.New(ctx, log, filepath.Join(dir, "buzee.db"), docdb.WithChunkEraser(index))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{service: New(log, index, store), store: store, index: index}
}

// add stores a document and indexes one chunk per body. It returns the document id.
func (f *fixture) add(t *testing.T, path string, modified int64, bodies ...string) int64 {
	t.Helper()
	ctx := context.Background()
	size := int64(100)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	_, err := f.store.UpsertDocuments(ctx, []db.Document{{
		SourceDomain: db.SourceDomainLocal,
		Name:         filepath.Base(path),
		Path:         path,
		Size:         &size,
		FileType:     ext,
		LastModified: modified,
		LastOpened:   modified,
		CreatedAt:    modified,
	}})
	require.NoError(t, err)

	doc, err := f.store.GetDocumentByPath(ctx, db.SourceDomainLocal, path)
	require.NoError(t, err)

	chunks := make([]searchdb.Chunk, 0, len(bodies))
	for i, body := range bodies {
		chunks = append(chunks, searchdb.Chunk{
			SourceTable:  db.SourceTableDocument,
			SourceDomain: db.SourceDomainLocal,
			SourceID:     doc.ID,
			Chunk:        i,
			Title:        doc.Name,
			Body:         body,
			Path:         path,
			FileType:     ext,
			LastModified: modified,
		})
	}
	require.NoError(t, f.index.Add(ctx, chunks))
	return doc.ID
}

func names(results []db.DocumentSearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func TestParseQuery(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected ParsedQuery
	}{
		{
			name:     "Simple quoted phrase",
			input:    `"hello world"`,
			expected: ParsedQuery{Phrases: []string{"hello world"}},
		},
		{
			name:     "Quoted phrase with remaining terms",
			input:    `"hello world" test golang`,
			expected: ParsedQuery{Phrases: []string{"hello world"}, Terms: []string{"test", "golang"}},
		},
		{
			name:     "Multiple quoted phrases with spaces",
			input:    `  "first phrase"   test   "second phrase"  `,
			expected: ParsedQuery{Phrases: []string{"first phrase", "second phrase"}, Terms: []string{"test"}},
		},
		{
			name:     "Quoted phrase with extra spaces",
			input:    `"  hello   world  " test`,
			expected: ParsedQuery{Phrases: []string{"hello world"}, Terms: []string{"test"}},
		},
		{
			name:     "Empty quoted phrase",
			input:    `"" test`,
			expected: ParsedQuery{Terms: []string{"test"}},
		},
		{
			name:     "Smart quotes",
			input:    `dear “star wars” fan`,
			expected: ParsedQuery{Phrases: []string{"star wars"}, Terms: []string{"dear", "fan"}},
		},
		{
			name:     "Negated term",
			input:    `report -draft`,
			expected: ParsedQuery{Terms: []string{"report"}, Excluded: []string{"draft"}},
		},
		{
			name:     "Punctuation outside quotes",
			input:    `(budget), q3?`,
			expected: ParsedQuery{Terms: []string{"budget", "q3"}},
		},
		{
			name:     "Unterminated quote",
			input:    `"hello`,
			expected: ParsedQuery{Terms: []string{"hello"}},
		},
		{
			name:  "Only whitespace",
			input: "   ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, ParseQuery(tc.input))
		})
	}
}

func TestMetadataExpression(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "terms", input: "quarterly rep", expected: `"quarterly"* AND "rep"*`},
		{name: "phrase and exclusion", input: `"star wars" -trek`, expected: `"star wars" NOT "trek"`},
		{name: "only exclusions", input: "-trek", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, metadataExpression(ParseQuery(tc.input)))
		})
	}
}

func TestSearchFindsTextFile(t *testing.T) {
	assert := require.New(t)
	f := newFixture(t)
	f.add(t, "/home/u/a.txt", 100, "hello world")

	results, err := f.service.Search(context.Background(), Request{Query: "hello", Page: 0, Limit: 10})
	assert.NoError(err)
	assert.Len(results, 1)
	assert.Equal("a.txt", results[0].Name)
	assert.Equal("txt", results[0].FileType)
	assert.Equal(db.SourceDomainLocal, results[0].SourceDomain)
}

func TestSearchQueryForms(t *testing.T) {
	f := newFixture(t)
	f.add(t, "/home/u/a.txt", 100, "hello world")
	f.add(t, "/home/u/b.txt", 100, "hello there general")
	f.add(t, "/home/u/c.md", 100, "world peace")

	testCases := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "prefix", query: "gen", expected: []string{"b.txt"}},
		{name: "every term is required", query: "hel wor", expected: []string{"a.txt"}},
		{name: "phrase", query: `"hello world"`, expected: []string{"a.txt"}},
		{name: "phrase out of order", query: `"world hello"`, expected: []string{}},
		{name: "exclusion", query: "hello -world", expected: []string{"b.txt"}},
		{name: "file type field", query: "md", expected: []string{"c.md"}},
		{name: "no match", query: "zebra", expected: []string{}},
		{name: "stop words only", query: "this is", expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			results, err := f.service.Search(context.Background(), Request{Query: tc.query, Limit: 10})
			assert.NoError(err)
			assert.ElementsMatch(tc.expected, names(results))
		})
	}
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	f.add(t, "/home/u/notes.txt", 1000, "invoice for march")
	f.add(t, "/home/u/scan.pdf", 2000, "invoice for april")
	f.add(t, "/home/u/old.docx", 3000, "invoice for may")

	testCases := []struct {
		name      string
		fileTypes []string
		dateLimit *db.DateLimit
		expected  []string
	}{
		{name: "single filetype", fileTypes: []string{"pdf"}, expected: []string{"scan.pdf"}},
		{name: "several filetypes", fileTypes: ParseFileTypes("pdf, .DOCX"), expected: []string{"scan.pdf", "old.docx"}},
		{name: "date range", dateLimit: &db.DateLimit{Start: 1500, End: 2500}, expected: []string{"scan.pdf"}},
		{name: "open ended date", dateLimit: &db.DateLimit{Start: 2000}, expected: []string{"scan.pdf", "old.docx"}},
		{name: "filetype and date", fileTypes: []string{"txt"}, dateLimit: &db.DateLimit{Start: 1500}, expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			results, err := f.service.Search(context.Background(), Request{
				Query:     "invoice",
				Limit:     10,
				FileTypes: tc.fileTypes,
				DateLimit: tc.dateLimit,
			})
			assert.NoError(err)
			assert.ElementsMatch(tc.expected, names(results))
		})
	}
}

func TestSearchDeduplicatesChunksAndPages(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/long.txt", 100, "common alpha", "common beta", "common gamma")
	for i := range 4 {
		f.add(t, fmt.Sprintf("/home/u/short-%d.txt", i), 100, "common")
	}

	seen := map[string]bool{}
	for page, want := range []int{2, 2, 1, 0} {
		results, err := f.service.Search(ctx, Request{Query: "common", Page: page, Limit: 2})
		assert.NoError(err)
		assert.Len(results, want, "page %d", page)
		for _, r := range results {
			assert.False(seen[r.Name], "%s returned twice", r.Name)
			seen[r.Name] = true
		}
	}
	assert.Len(seen, 5)
}

func TestSearchFillsFromMetadata(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/a.txt", 100, "hello world")
	f.add(t, "/home/u/hello-song.mp3", 100)
	f.add(t, "/home/u/hello-video.mp4", 100)

	results, err := f.service.Search(ctx, Request{Query: "hello", Limit: 10})
	assert.NoError(err)
	assert.Len(results, 3)
	assert.Equal("a.txt", results[0].Name)
	assert.ElementsMatch([]string{"hello-song.mp3", "hello-video.mp4"}, names(results[1:]))

	// The metadata matches continue on the following pages.
	first, err := f.service.Search(ctx, Request{Query: "hello", Page: 0, Limit: 2})
	assert.NoError(err)
	second, err := f.service.Search(ctx, Request{Query: "hello", Page: 1, Limit: 2})
	assert.NoError(err)
	assert.Len(first, 2)
	assert.Len(second, 1)
	assert.ElementsMatch(names(results), append(names(first), names(second)...))
}

func TestSearchDropsHitsWithoutDocument(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/a.txt", 100, "orphan words")
	assert.NoError(f.index.Add(ctx, []searchdb.Chunk{{
		SourceTable: db.SourceTableDocument,
		SourceID:    9999,
		Body:        "orphan words",
	}}))

	results, err := f.service.Search(ctx, Request{Query: "orphan", Limit: 10})
	assert.NoError(err)
	assert.Equal([]string{"a.txt"}, names(results))
}

func TestSearchIgnoresOtherSourceTables(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	assert.NoError(f.index.Add(ctx, []searchdb.Chunk{{
		SourceTable: db.SourceTableWebHistory,
		SourceID:    1,
		Title:       "hello from the web",
		URL:         "https://example.com",
	}}))

	results, err := f.service.Search(ctx, Request{Query: "hello", Limit: 10})
	assert.NoError(err)
	assert.Empty(results)
	assert.NotNil(results)
}

func TestEmptyQueryListsRecent(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/older.txt", 100, "x")
	f.add(t, "/home/u/newer.txt", 200, "y")

	results, err := f.service.Search(ctx, Request{Query: "  ", Limit: 10})
	assert.NoError(err)
	assert.Equal([]string{"newer.txt", "older.txt"}, names(results))

	recent, err := f.service.Recent(ctx, []string{"txt"}, 0, 1)
	assert.NoError(err)
	assert.Equal([]string{"newer.txt"}, names(recent))
}

func TestSuggestionsAndStats(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/quarterly-report.pdf", 100, "numbers")
	f.add(t, "/home/u/report-draft.docx", 100, "words")
	f.add(t, "/home/u/holiday.txt", 100, "beach")

	suggestions, err := f.service.Suggestions(ctx, "rep", 10)
	assert.NoError(err)
	assert.ElementsMatch([]string{"quarterly-report.pdf", "report-draft.docx"}, suggestions)

	stats, err := f.service.Stats(ctx)
	assert.NoError(err)
	assert.Len(stats, 3)
}

func TestSearchReturnsMatchingFolders(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "/home/u/invoices-2024.txt", 100, "invoices for the year")
	_, err := f.store.InsertFolders(ctx, []string{"/home/u/invoices", "/home/u/photos"}, 100)
	assert.NoError(err)

	results, err := f.service.Search(ctx, Request{Query: "invoices", Limit: 10})
	assert.NoError(err)
	assert.Len(results, 2)
	assert.Equal("invoices-2024.txt", results[0].Name)
	assert.Equal("invoices", results[1].Name)
	assert.Equal(db.FileTypeFolder, results[1].FileType)

	// Folders have no modification time to compare against.
	results, err = f.service.Search(ctx, Request{Query: "invoices", Limit: 10, DateLimit: &db.DateLimit{End: 5000}})
	assert.NoError(err)
	assert.Equal([]string{"invoices-2024.txt"}, names(results))
}

func TestSearchMatchesPathSegments(t *testing.T) {
	f := newFixture(t)
	f.add(t, "/home/u/projects/apollo/plan.txt", 100, "launch checklist")
	f.add(t, "/home/u/projects/gemini/plan.txt", 3000, "launch checklist")
	f.add(t, "/home/u/archive/notes.txt", 100, "nothing relevant")

	testCases := []struct {
		name      string
		query     string
		dateLimit *db.DateLimit
		expected  []string
	}{
		{name: "folder name", query: "apollo", expected: []string{"/home/u/projects/apollo/plan.txt"}},
		{name: "folder name with body term", query: "gemini checklist", expected: []string{"/home/u/projects/gemini/plan.txt"}},
		{name: "shared folder", query: "projects launch", expected: []string{"/home/u/projects/apollo/plan.txt", "/home/u/projects/gemini/plan.txt"}},
		{name: "shared folder within dates", query: "projects launch", dateLimit: &db.DateLimit{Start: 2000}, expected: []string{"/home/u/projects/gemini/plan.txt"}},
		{name: "excluded folder", query: "launch -apollo", expected: []string{"/home/u/projects/gemini/plan.txt"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			results, err := f.service.Search(context.Background(), Request{Query: tc.query, Limit: 10, DateLimit: tc.dateLimit})
			assert.NoError(err)
			paths := make([]string, 0, len(results))
			for _, r := range results {
				paths = append(paths, r.Path)
			}
			assert.ElementsMatch(tc.expected, paths)
		})
	}
}
