package history

import (
	"context"
	"errors"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/searchdb"
)

// maxIndexedVisits caps how many recent visits per browser are copied into the index.
const maxIndexedVisits = 5000

// Visit ids are only unique within one browser database, so each browser gets its own
// range of source ids in the shared web_history table.
const browserIDShift = 40

var browserIDBase = map[Browser]int64{
	Chrome:  1 << browserIDShift,
	Firefox: 2 << browserIDShift,
	Arc:     3 << browserIDShift,
}

// RecordIndexer is the part of the inverted index history indexing writes to.
type RecordIndexer interface {
	ReplaceRecords(ctx context.Context, sourceTable string, ids []int64, chunks []searchdb.Chunk) error
}

// IndexInto copies the most recent visits of every installed browser into the index under
// the web_history table. Browsers that are not installed are skipped.
func (r *Reader) IndexInto(ctx context.Context, index RecordIndexer, now int64) (int, error) {
	total := 0
	for _, b := range []Browser{Chrome, Firefox, Arc} {
		n, err := r.indexBrowser(ctx, index, b, now)
		if errors.Is(err, ErrNotInstalled) {
			r.logger.Debug("browser not installed, skipping history indexing", "browser", string(b))
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *Reader) indexBrowser(ctx context.Context, index RecordIndexer, b Browser, now int64) (int, error) {
	visits, err := r.Visits(ctx, b, "", "", maxIndexedVisits, 0)
	if err != nil {
		return 0, err
	}

	ids := make([]int64, 0, len(visits))
	chunks := make([]searchdb.Chunk, 0, len(visits))
	for _, v := range visits {
		id := v.sourceID(b)
		ids = append(ids, id)
		chunks = append(chunks, searchdb.Chunk{
			SourceTable:  db.SourceTableWebHistory,
			SourceDomain: b.SourceDomain(),
			SourceID:     id,
			Title:        v.Title,
			URL:          v.URL,
			FileType:     b.FileType(),
			LastVisited:  v.LastVisited,
			LastSynced:   now,
		})
	}

	if err := index.ReplaceRecords(ctx, db.SourceTableWebHistory, ids, chunks); err != nil {
		return 0, err
	}
	r.logger.Info("indexed browser history", "browser", string(b), "visits", len(chunks))
	return len(chunks), nil
}
