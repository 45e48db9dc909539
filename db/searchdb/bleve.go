package searchdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
)

const (
	// eraseGroupSize bounds the disjunction built when deleting by source id.
	eraseGroupSize = 200
	eraseScanSize  = 1000

	keywordLowercase = "keyword_lc"
)

const (
	FieldID           = "id"
	FieldSourceTable  = "source_table"
	FieldSourceDomain = "source_domain"
	FieldChunk        = "chunk"
	FieldTitle        = "title"
	FieldBody         = "body"
	FieldPath         = "path"
	FieldURL          = "url"
	FieldFileType     = "file_type"
	FieldComment      = "comment"
	FieldTags         = "tags"
	FieldSender       = "sender"
	FieldRecipient    = "recipient"
	FieldCC           = "cc"
	FieldBCC          = "bcc"
	FieldSubject      = "subject"
	FieldAttachments  = "attachments"
	FieldCreatedAt    = "created_at"
	FieldLastModified = "last_modified"
	FieldLastOpened   = "last_opened"
	FieldLastParsed   = "last_parsed"
	FieldLastSynced   = "last_synced"
	FieldLastVisited  = "last_visited"
	FieldSavedAt      = "saved_at"
	FieldSize         = "size"
	FieldWordCount    = "word_count"
	FieldIsPinned     = "is_pinned"
	FieldIsFavorite   = "is_favorite"
	FieldIsArchived   = "is_archived"
	FieldIsRead       = "is_read"
)

var textFields = []string{
	FieldTitle, FieldBody, FieldPath, FieldURL, FieldComment, FieldTags,
	FieldSender, FieldRecipient, FieldCC, FieldBCC, FieldSubject, FieldAttachments,
}

var numericFields = []string{
	FieldChunk, FieldCreatedAt, FieldLastModified, FieldLastOpened, FieldLastParsed, FieldLastSynced,
	FieldLastVisited, FieldSavedAt, FieldSize, FieldWordCount,
}

var booleanFields = []string{FieldIsPinned, FieldIsFavorite, FieldIsArchived, FieldIsRead}

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
	created   bool

	// mu serialises writers; readers go straight to the index.
	mu sync.Mutex
}

// New opens the index at indexPath, creating it when it is missing. An index that cannot be
// opened is discarded and rebuilt empty.
func New(logger logger.Logger, indexPath string) (*BleveDB, error) {
	index, err := bleve.Open(indexPath)
	if err == nil {
		logger.Info("opened existing index", "path", indexPath)
		return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
	}

	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Warn("could not open index, recreating it", "path", indexPath, "err", err.Error())
		if err := os.RemoveAll(indexPath); err != nil {
			logger.Error("could not remove broken index", "path", indexPath, "err", err.Error())
			return nil, fmt.Errorf("could not remove broken index: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		logger.Error("failed to create index directory", "err", err.Error(), "path", indexPath)
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	indexMapping, err := createIndexMapping()
	if err != nil {
		logger.Error("could not build index mapping", "err", err.Error())
		return nil, err
	}

	index, err = bleve.NewUsing(indexPath, indexMapping, "scorch", "scorch", nil)
	if err != nil {
		logger.Error("could not create index", "path", indexPath, "err", err.Error())
		return nil, err
	}
	logger.Info("created new index", "path", indexPath)

	return &BleveDB{indexPath: indexPath, logger: logger, index: index, created: true}, nil
}

// Created reports whether New started from an empty index.
func (b *BleveDB) Created() bool {
	return b.created
}

func createIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(keywordLowercase, map[string]any{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	for _, name := range []string{FieldID, FieldSourceTable, FieldSourceDomain} {
		keywordField := bleve.NewTextFieldMapping()
		keywordField.Analyzer = keyword.Name
		keywordField.IncludeTermVectors = false
		docMapping.AddFieldMappingsAt(name, keywordField)
	}

	fileTypeField := bleve.NewTextFieldMapping()
	fileTypeField.Analyzer = keywordLowercase
	fileTypeField.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(FieldFileType, fileTypeField)

	for _, name := range textFields {
		textField := bleve.NewTextFieldMapping()
		textField.Analyzer = standard.Name
		docMapping.AddFieldMappingsAt(name, textField)
	}

	for _, name := range numericFields {
		docMapping.AddFieldMappingsAt(name, bleve.NewNumericFieldMapping())
	}

	for _, name := range booleanFields {
		docMapping.AddFieldMappingsAt(name, bleve.NewBooleanFieldMapping())
	}

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping, nil
}

// Add indexes chunks as they are. A chunk whose key already exists is overwritten.
func (b *BleveDB) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.DocID(), c.fields()); err != nil {
			b.logger.Error("could not index chunk", "doc_id", c.DocID(), "err", err.Error())
			return &IndexError{Op: "add", Err: err}
		}
	}

	if err := b.index.Batch(batch); err != nil {
		b.logger.Error("could not commit chunks", "err", err.Error(), "count", len(chunks))
		return &IndexError{Op: "add", Err: err}
	}

	return nil
}

// ReplaceByIDs deletes every chunk of the documents in ids and indexes chunks in their place,
// in one batch. Documents without new chunks are left with none.
func (b *BleveDB) ReplaceByIDs(ctx context.Context, ids []int64, chunks []Chunk) error {
	return b.ReplaceRecords(ctx, db.SourceTableDocument, ids, chunks)
}

func (b *BleveDB) ReplaceRecords(ctx context.Context, sourceTable string, ids []int64, chunks []Chunk) error {
	if len(ids) == 0 && len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.chunkDocIDs(ctx, sourceTable, ids)
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, docID := range existing {
		batch.Delete(docID)
	}

	for _, c := range chunks {
		if err := batch.Index(c.DocID(), c.fields()); err != nil {
			b.logger.Error("could not index chunk", "doc_id", c.DocID(), "err", err.Error())
			return &IndexError{Op: "replace", Err: err}
		}
	}

	if err := b.index.Batch(batch); err != nil {
		b.logger.Error("could not commit chunks", "err", err.Error(), "count", len(chunks))
		return &IndexError{Op: "replace", Err: err}
	}

	return nil
}

// DeleteByIDs removes every chunk of the given documents.
func (b *BleveDB) DeleteByIDs(ctx context.Context, ids []int64) error {
	return b.DeleteRecords(ctx, db.SourceTableDocument, ids)
}

func (b *BleveDB) DeleteRecords(ctx context.Context, sourceTable string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	docIDs, err := b.chunkDocIDs(ctx, sourceTable, ids)
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, docID := range docIDs {
		batch.Delete(docID)
	}

	if err := b.index.Batch(batch); err != nil {
		b.logger.Error("could not delete chunks", "err", err.Error(), "count", len(docIDs))
		return &IndexError{Op: "delete", Err: err}
	}

	return nil
}

// chunkDocIDs finds the index keys of every chunk belonging to ids.
func (b *BleveDB) chunkDocIDs(ctx context.Context, sourceTable string, ids []int64) ([]string, error) {
	var docIDs []string

	for start := 0; start < len(ids); start += eraseGroupSize {
		group := ids[start:min(start+eraseGroupSize, len(ids))]

		idQuery := bleve.NewDisjunctionQuery()
		for _, id := range group {
			term := bleve.NewTermQuery(strconv.FormatInt(id, 10))
			term.SetField(FieldID)
			idQuery.AddQuery(term)
		}
		tableQuery := bleve.NewTermQuery(sourceTable)
		tableQuery.SetField(FieldSourceTable)

		q := bleve.NewConjunctionQuery(tableQuery, idQuery)

		for from := 0; ; from += eraseScanSize {
			req := bleve.NewSearchRequestOptions(q, eraseScanSize, from, false)
			result, err := b.index.SearchInContext(ctx, req)
			if err != nil {
				b.logger.Error("could not look up chunks", "err", err.Error())
				return nil, &IndexError{Op: "lookup", Err: err}
			}
			for _, hit := range result.Hits {
				docIDs = append(docIDs, hit.ID)
			}
			if len(result.Hits) < eraseScanSize {
				break
			}
		}
	}

	return docIDs, nil
}

func (b *BleveDB) Search(ctx context.Context, q query.Query, size int, from int) (*Response, error) {
	start := time.Now()

	searchRequest := bleve.NewSearchRequestOptions(q, size, from, false)

	searchResult, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, &IndexError{Op: "search", Err: err}
	}

	hits := make([]Hit, 0, len(searchResult.Hits))
	for _, match := range searchResult.Hits {
		hit, err := parseDocID(match.ID)
		if err != nil {
			b.logger.Warn("skipping hit with unexpected key", "doc_id", match.ID, "err", err.Error())
			continue
		}
		hit.Score = match.Score
		hits = append(hits, hit)
	}

	return &Response{
		Hits:       hits,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}, nil
}

// SearchString runs a bleve query-string query, e.g. `+body:invoice -file_type:pdf`.
func (b *BleveDB) SearchString(ctx context.Context, queryString string, size int, from int) (*Response, error) {
	return b.Search(ctx, bleve.NewQueryStringQuery(queryString), size, from)
}

// Analyze runs text through the analyzer used for text fields and returns the resulting
// terms. Stop words produce none.
func (b *BleveDB) Analyze(text string) []string {
	analyzer := b.index.Mapping().AnalyzerNamed(standard.Name)
	if analyzer == nil {
		b.logger.Warn("analyzer not found", "analyzer", standard.Name)
		return nil
	}
	tokens := analyzer.Analyze([]byte(text))

	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		terms = append(terms, string(token.Term))
	}
	return terms
}

// Fetch returns the stored fields of one chunk.
func (b *BleveDB) Fetch(ctx context.Context, docID string) (map[string]any, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{docID}), 1, 0, false)
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		b.logger.Error("could not fetch chunk", "doc_id", docID, "err", err.Error())
		return nil, err
	}
	if len(result.Hits) == 0 {
		return nil, &NotFoundError{DocID: docID}
	}
	return result.Hits[0].Fields, nil
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
