package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/db/searchdb"
	"github.com/meghashyamc/buzee/extract"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/pathpolicy"
)

const (
	minImageSize = 50 * 1024

	cutoffRecomputeEvery = 50
	defaultCommitCutoff  = 500
)

// stream is one size-ordered pass over unparsed documents.
type stream struct {
	name      string
	fileTypes []string
	filter    docdb.SizeFilter
}

// commitCutoff picks how many parsed files to buffer before committing, from the running
// average file size. Large files make for large chunk buffers.
func commitCutoff(averageSize int64) int {
	switch {
	case averageSize >= 500*1024:
		return 50
	case averageSize >= 250*1024:
		return 200
	default:
		return defaultCommitCutoff
	}
}

func (s *Service) contentStreams(ctx context.Context) ([]stream, error) {
	var documents, images, pdfs []string

	for _, category := range []string{filetypes.CategoryDocument, filetypes.CategoryBook} {
		exts, err := s.filetypes.ExtensionsByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		for _, ext := range exts {
			switch {
			case ext == "pdf":
				pdfs = append(pdfs, ext)
			case extract.Supports(ext):
				documents = append(documents, ext)
			}
		}
	}

	exts, err := s.filetypes.ExtensionsByCategory(ctx, filetypes.CategoryImage)
	if err != nil {
		return nil, err
	}
	for _, ext := range exts {
		if extract.Supports(ext) {
			images = append(images, ext)
		}
	}

	return []stream{
		{name: "documents", fileTypes: documents},
		{name: "pdfs", fileTypes: pdfs},
		{name: "images", fileTypes: images, filter: docdb.SizeFilter{Min: minImageSize}},
	}, nil
}

// parseContent extracts, chunks and indexes every unparsed document, stream by stream.
func (s *Service) parseContent(ctx context.Context) (int, error) {
	if err := s.checkCancelled(ctx); err != nil {
		return 0, err
	}

	streams, err := s.contentStreams(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve content file types: %w", err)
	}

	total := 0
	for _, st := range streams {
		if len(st.fileTypes) == 0 {
			continue
		}
		docs, err := s.store.ListUnparsed(ctx, st.fileTypes, st.filter)
		if err != nil {
			return total, fmt.Errorf("failed to list unparsed %s: %w", st.name, err)
		}
		s.logger.Info("parsing content", "stream", st.name, "files", len(docs))

		parsed, err := s.parseStream(ctx, docs)
		total += parsed
		if err != nil {
			return total, err
		}
	}

	s.logger.Info("content parsing finished", "files", total)
	return total, nil
}

// pending is the buffer of parsed documents awaiting one index commit.
type pending struct {
	ids    []int64
	chunks []searchdb.Chunk
}

func (s *Service) parseStream(ctx context.Context, docs []db.Document) (int, error) {
	var (
		buf       pending
		committed int
		parsed    int
		sizeSum   int64
		cutoff    = defaultCommitCutoff
	)

	flush := func() {
		committed += s.commit(ctx, &buf)
	}

	for _, doc := range docs {
		if err := s.checkCancelled(ctx); err != nil {
			flush()
			return committed, err
		}

		chunks, err := s.documentChunks(ctx, doc)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				flush()
				return committed, err
			}
			s.logger.Warn("could not extract file content", "path", doc.Path, "err", err.Error())
			continue
		}

		buf.ids = append(buf.ids, doc.ID)
		buf.chunks = append(buf.chunks, chunks...)

		parsed++
		if doc.Size != nil {
			sizeSum += *doc.Size
		}
		if parsed%cutoffRecomputeEvery == 0 {
			cutoff = commitCutoff(sizeSum / int64(parsed))
		}

		if len(buf.ids) >= cutoff {
			flush()
			if err := s.checkCancelled(ctx); err != nil {
				return committed, err
			}
		}
	}

	flush()
	return committed, nil
}

// documentChunks extracts and chunks one document. Documents ignored for content produce
// no chunks, which clears anything indexed for them before.
func (s *Service) documentChunks(ctx context.Context, doc db.Document) ([]searchdb.Chunk, error) {
	if s.policy.Classify(doc.Path) == pathpolicy.IgnoredForContentOnly {
		return nil, nil
	}

	text, err := s.extractor.Extract(ctx, doc.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return nil, err
	}

	parsedAt := s.now().Unix()
	pieces := extract.Chunk(text)
	chunks := make([]searchdb.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, documentChunk(doc, i, piece, parsedAt))
	}
	return chunks, nil
}

func documentChunk(doc db.Document, n int, body string, parsedAt int64) searchdb.Chunk {
	chunk := searchdb.Chunk{
		SourceTable:  db.SourceTableDocument,
		SourceDomain: doc.SourceDomain,
		SourceID:     doc.ID,
		Chunk:        n,
		Title:        doc.Name,
		Body:         body,
		Path:         doc.Path,
		FileType:     doc.FileType,
		CreatedAt:    doc.CreatedAt,
		LastModified: doc.LastModified,
		LastOpened:   doc.LastOpened,
		LastParsed:   parsedAt,
		LastSynced:   doc.LastSynced,
		WordCount:    int64(len(strings.Fields(body))),
		IsPinned:     doc.IsPinned,
	}
	if doc.Size != nil {
		chunk.Size = *doc.Size
	}
	if doc.Comment != nil {
		chunk.Comment = *doc.Comment
	}
	return chunk
}

// commit replaces the buffered documents' chunks in one index batch, then marks them
// parsed. A failed commit leaves the documents unparsed for the next sync.
func (s *Service) commit(ctx context.Context, buf *pending) int {
	if len(buf.ids) == 0 {
		return 0
	}
	ids, chunks := buf.ids, buf.chunks
	*buf = pending{}

	if err := s.indexer.ReplaceByIDs(ctx, ids, chunks); err != nil {
		s.logger.Error("failed to index parsed files", "err", err.Error(), "files", len(ids))
		return 0
	}
	if err := s.store.MarkParsed(ctx, ids, s.now().Unix()); err != nil {
		s.logger.Error("failed to mark files parsed", "err", err.Error(), "files", len(ids))
		return 0
	}
	return len(ids)
}
