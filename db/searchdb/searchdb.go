package searchdb

import (
	"context"

	"github.com/blevesearch/bleve/v2/search/query"
)

type DB interface {
	Add(ctx context.Context, chunks []Chunk) error
	ReplaceByIDs(ctx context.Context, ids []int64, chunks []Chunk) error
	DeleteByIDs(ctx context.Context, ids []int64) error
	Search(ctx context.Context, q query.Query, size int, from int) (*Response, error)
	Analyze(text string) []string
	Fetch(ctx context.Context, docID string) (map[string]any, error)
	GetDocCount() (uint64, error)
	Close() error
}

var _ DB = (*BleveDB)(nil)
