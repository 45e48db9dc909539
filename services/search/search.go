package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/db/searchdb"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/logger"
)

const (
	DefaultLimit = 20

	boostForTitle  = 2.0
	boostForPhrase = 5.0
	boostForPrefix = 1.5

	minPrefixLength = 2

	// hitWindow is how many chunk hits are fetched per round while collecting distinct documents.
	hitWindow = 200
	// maxBodyHits bounds how far down the hit list a single search walks.
	maxBodyHits = 10000
)

// searchedFields are the text fields a query is matched against.
var searchedFields = []string{
	searchdb.FieldComment, searchdb.FieldTitle, searchdb.FieldBody, searchdb.FieldPath, searchdb.FieldFileType, searchdb.FieldURL,
	searchdb.FieldTags, searchdb.FieldSender, searchdb.FieldRecipient, searchdb.FieldCC, searchdb.FieldBCC,
	searchdb.FieldSubject, searchdb.FieldAttachments,
}

// Index is the inverted index as the query engine sees it.
type Index interface {
	Search(ctx context.Context, q query.Query, size int, from int) (*searchdb.Response, error)
	Analyze(text string) []string
}

// MetadataStore is the relational side of a search.
type MetadataStore interface {
	DocumentsBySourceIDs(ctx context.Context, ids []int64) (map[int64]db.Document, error)
	MetadataMatches(ctx context.Context, q docdb.MetadataQuery) ([]db.Document, error)
	Recent(ctx context.Context, fileTypes []string, page, limit int) ([]db.Document, error)
	TitleMatches(ctx context.Context, query string, limit int) ([]string, error)
	StatsByFiletype(ctx context.Context) ([]db.FiletypeCount, error)
}

type Service struct {
	logger logger.Logger
	index  Index
	store  MetadataStore
}

func New(logger logger.Logger, index Index, store MetadataStore) *Service {
	return &Service{
		logger: logger,
		index:  index,
		store:  store,
	}
}

type Request struct {
	Query string
	// Page is zero based.
	Page      int
	Limit     int
	FileTypes []string
	DateLimit *db.DateLimit
}

// ParseFileTypes reads a comma separated filetype filter such as "pdf, .DOCX".
func ParseFileTypes(value string) []string {
	var fileTypes []string
	for _, part := range strings.Split(value, ",") {
		if ext := filetypes.Normalize(part); ext != "" {
			fileTypes = append(fileTypes, ext)
		}
	}
	return fileTypes
}

// Search returns one page of local documents matching req. Documents whose text matches come
// first in score order, then documents matching on metadata only. An empty query lists
// recent documents.
func (s *Service) Search(ctx context.Context, req Request) ([]db.DocumentSearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Page < 0 {
		req.Page = 0
	}

	parsed := ParseQuery(req.Query)
	if parsed.Empty() {
		docs, err := s.store.Recent(ctx, req.FileTypes, req.Page, req.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent documents: %w", err)
		}
		return toResults(docs), nil
	}

	start := req.Page * req.Limit
	end := start + req.Limit

	var (
		ids       []int64
		exhausted = true
	)
	if q, ok := s.buildQuery(parsed, req); ok {
		var err error
		ids, exhausted, err = s.bodyMatches(ctx, q, end)
		if err != nil {
			return nil, err
		}
	}

	var results []db.DocumentSearchResult
	if start < len(ids) {
		var err error
		results, err = s.join(ctx, ids[start:min(end, len(ids))], req.DateLimit)
		if err != nil {
			return nil, err
		}
	}

	if !exhausted || len(ids) >= end {
		return nonNil(results), nil
	}

	// Body matches ran out inside this page: continue with metadata-only matches.
	fill, err := s.metadataMatches(ctx, parsed, req, ids, max(0, start-len(ids)), end-max(start, len(ids)))
	if err != nil {
		return nil, err
	}
	return append(nonNil(results), fill...), nil
}

// bodyMatches walks the hit list until want distinct documents are found or the hits run out.
// It reports whether every hit was seen.
func (s *Service) bodyMatches(ctx context.Context, q query.Query, want int) ([]int64, bool, error) {
	var ids []int64
	seen := map[int64]bool{}

	for from := 0; from < maxBodyHits; from += hitWindow {
		response, err := s.index.Search(ctx, q, hitWindow, from)
		if err != nil {
			return nil, false, fmt.Errorf("failed to search index: %w", err)
		}

		for _, hit := range response.Hits {
			if seen[hit.SourceID] {
				continue
			}
			seen[hit.SourceID] = true
			ids = append(ids, hit.SourceID)
		}

		if len(response.Hits) < hitWindow || uint64(from+hitWindow) >= response.Total {
			return ids, true, nil
		}
		if len(ids) >= want {
			return ids, false, nil
		}
	}

	s.logger.Warn("search stopped at hit limit", "limit", maxBodyHits)
	return ids, true, nil
}

// join loads the canonical rows for ids, keeping their order. Rows that vanished since they
// were indexed, or that no longer fall inside the date limit, are dropped.
func (s *Service) join(ctx context.Context, ids []int64, dateLimit *db.DateLimit) ([]db.DocumentSearchResult, error) {
	docs, err := s.store.DocumentsBySourceIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched documents: %w", err)
	}

	results := make([]db.DocumentSearchResult, 0, len(ids))
	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			s.logger.Debug("dropping hit without a document", "id", id)
			continue
		}
		if !dateLimit.Contains(doc.LastModified) {
			continue
		}
		results = append(results, doc.ToSearchResult())
	}
	return results, nil
}

func (s *Service) metadataMatches(ctx context.Context, parsed ParsedQuery, req Request, exclude []int64, offset, limit int) ([]db.DocumentSearchResult, error) {
	expr := metadataExpression(parsed)
	if expr == "" || limit <= 0 {
		return nil, nil
	}

	docs, err := s.store.MetadataMatches(ctx, docdb.MetadataQuery{
		Expression: expr,
		FileTypes:  req.FileTypes,
		ExcludeIDs: exclude,
		DateLimit:  req.DateLimit,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to match metadata: %w", err)
	}
	return toResults(docs), nil
}

// buildQuery requires every phrase and every term, rejects excluded terms and applies the
// filetype and date filters. It reports false when nothing in the query survives analysis,
// e.g. a query made of stop words.
func (s *Service) buildQuery(parsed ParsedQuery, req Request) (query.Query, bool) {
	tableQuery := bleve.NewTermQuery(db.SourceTableDocument)
	tableQuery.SetField(searchdb.FieldSourceTable)

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(tableQuery)

	if len(req.FileTypes) > 0 {
		fileTypeQuery := bleve.NewDisjunctionQuery()
		for _, fileType := range req.FileTypes {
			term := bleve.NewTermQuery(strings.ToLower(fileType))
			term.SetField(searchdb.FieldFileType)
			fileTypeQuery.AddQuery(term)
		}
		boolQuery.AddMust(fileTypeQuery)
	}

	clauses := 0
	for _, phrase := range parsed.Phrases {
		if len(s.index.Analyze(phrase)) == 0 {
			continue
		}
		boolQuery.AddMust(phraseQuery(phrase))
		clauses++
	}

	for _, term := range parsed.Terms {
		for _, analyzed := range s.index.Analyze(term) {
			boolQuery.AddMust(termQuery(analyzed))
			clauses++
		}
	}

	for _, term := range parsed.Excluded {
		for _, analyzed := range s.index.Analyze(term) {
			boolQuery.AddMustNot(exactTermQuery(analyzed))
			clauses++
		}
	}
	if clauses == 0 {
		return nil, false
	}

	if req.DateLimit != nil && (req.DateLimit.Start > 0 || req.DateLimit.End > 0) {
		boolQuery.AddMust(dateQuery(req.DateLimit))
	}

	return boolQuery, true
}

func phraseQuery(phrase string) query.Query {
	disjunction := bleve.NewDisjunctionQuery()
	for _, field := range searchedFields {
		q := bleve.NewMatchPhraseQuery(phrase)
		q.SetField(field)
		q.SetBoost(boostForPhrase)
		disjunction.AddQuery(q)
	}
	return disjunction
}

// termQuery matches term as a whole word or as a word prefix in any searched field.
func termQuery(term string) query.Query {
	disjunction := bleve.NewDisjunctionQuery()
	for _, field := range searchedFields {
		match := bleve.NewTermQuery(term)
		match.SetField(field)
		if field == searchdb.FieldTitle {
			match.SetBoost(boostForTitle)
		}
		disjunction.AddQuery(match)

		if len(term) >= minPrefixLength {
			prefix := bleve.NewPrefixQuery(term)
			prefix.SetField(field)
			prefix.SetBoost(boostForPrefix)
			disjunction.AddQuery(prefix)
		}
	}
	return disjunction
}

func exactTermQuery(term string) query.Query {
	disjunction := bleve.NewDisjunctionQuery()
	for _, field := range searchedFields {
		q := bleve.NewTermQuery(term)
		q.SetField(field)
		disjunction.AddQuery(q)
	}
	return disjunction
}

func dateQuery(limit *db.DateLimit) query.Query {
	var minValue, maxValue *float64
	if limit.Start > 0 {
		v := float64(limit.Start)
		minValue = &v
	}
	if limit.End > 0 {
		v := float64(limit.End)
		maxValue = &v
	}
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(minValue, maxValue, &inclusive, &inclusive)
	q.SetField(searchdb.FieldLastModified)
	return q
}

// Recent lists the most recently opened documents.
func (s *Service) Recent(ctx context.Context, fileTypes []string, page, limit int) ([]db.DocumentSearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	docs, err := s.store.Recent(ctx, fileTypes, max(page, 0), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent documents: %w", err)
	}
	return toResults(docs), nil
}

// Suggestions returns titles whose words start with the words of text.
func (s *Service) Suggestions(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	titles, err := s.store.TitleMatches(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest titles: %w", err)
	}
	return titles, nil
}

// Stats counts local documents per filetype.
func (s *Service) Stats(ctx context.Context) ([]db.FiletypeCount, error) {
	stats, err := s.store.StatsByFiletype(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return stats, nil
}

func toResults(docs []db.Document) []db.DocumentSearchResult {
	results := make([]db.DocumentSearchResult, 0, len(docs))
	for i := range docs {
		results = append(results, docs[i].ToSearchResult())
	}
	return results
}

func nonNil(results []db.DocumentSearchResult) []db.DocumentSearchResult {
	if results == nil {
		return []db.DocumentSearchResult{}
	}
	return results
}
