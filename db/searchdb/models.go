package searchdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Chunk is one indexed slice of a record's text. A record with long text is split across
// several chunks that share SourceTable and SourceID.
type Chunk struct {
	SourceTable  string
	SourceDomain string
	SourceID     int64
	Chunk        int

	Title    string
	Body     string
	Path     string
	URL      string
	FileType string
	Comment  string
	Tags     string

	Sender      string
	Recipient   string
	CC          string
	BCC         string
	Subject     string
	Attachments string

	CreatedAt    int64
	LastModified int64
	LastOpened   int64
	LastParsed   int64
	LastSynced   int64
	LastVisited  int64
	SavedAt      int64
	Size         int64
	WordCount    int64

	IsPinned   bool
	IsFavorite bool
	IsArchived bool
	IsRead     bool
}

// DocID returns the index key <source_table>/<source_id>/<chunk>.
func (c *Chunk) DocID() string {
	return chunkDocID(c.SourceTable, c.SourceID, c.Chunk)
}

func chunkDocID(sourceTable string, sourceID int64, chunk int) string {
	return fmt.Sprintf("%s/%d/%d", sourceTable, sourceID, chunk)
}

// fields builds the indexed document. Unset text fields are left out.
func (c *Chunk) fields() map[string]any {
	doc := map[string]any{
		FieldID:           strconv.FormatInt(c.SourceID, 10),
		FieldSourceTable:  c.SourceTable,
		FieldSourceDomain: c.SourceDomain,
		FieldChunk:        float64(c.Chunk),
		FieldCreatedAt:    float64(c.CreatedAt),
		FieldLastModified: float64(c.LastModified),
		FieldLastOpened:   float64(c.LastOpened),
		FieldLastParsed:   float64(c.LastParsed),
		FieldLastSynced:   float64(c.LastSynced),
		FieldSize:         float64(c.Size),
		FieldWordCount:    float64(c.WordCount),
		FieldIsPinned:     c.IsPinned,
	}

	text := map[string]string{
		FieldTitle:       c.Title,
		FieldBody:        c.Body,
		FieldPath:        c.Path,
		FieldURL:         c.URL,
		FieldFileType:    c.FileType,
		FieldComment:     c.Comment,
		FieldTags:        c.Tags,
		FieldSender:      c.Sender,
		FieldRecipient:   c.Recipient,
		FieldCC:          c.CC,
		FieldBCC:         c.BCC,
		FieldSubject:     c.Subject,
		FieldAttachments: c.Attachments,
	}
	for name, value := range text {
		if value != "" {
			doc[name] = value
		}
	}

	if c.LastVisited > 0 {
		doc[FieldLastVisited] = float64(c.LastVisited)
	}
	if c.SavedAt > 0 {
		doc[FieldSavedAt] = float64(c.SavedAt)
	}

	if c.IsFavorite {
		doc[FieldIsFavorite] = true
	}
	if c.IsArchived {
		doc[FieldIsArchived] = true
	}
	if c.IsRead {
		doc[FieldIsRead] = true
	}

	return doc
}

type Hit struct {
	DocID       string  `json:"doc_id"`
	SourceTable string  `json:"source_table"`
	SourceID    int64   `json:"source_id"`
	Chunk       int     `json:"chunk"`
	Score       float64 `json:"score"`
}

type Response struct {
	Hits       []Hit   `json:"hits"`
	Total      uint64  `json:"total"`
	MaxScore   float64 `json:"max_score"`
	SearchTime string  `json:"search_time"`
}

func parseDocID(docID string) (Hit, error) {
	parts := strings.Split(docID, "/")
	if len(parts) != 3 {
		return Hit{}, fmt.Errorf("malformed index key %q", docID)
	}
	sourceID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Hit{}, fmt.Errorf("malformed source id in index key %q: %w", docID, err)
	}
	chunk, err := strconv.Atoi(parts[2])
	if err != nil {
		return Hit{}, fmt.Errorf("malformed chunk in index key %q: %w", docID, err)
	}
	return Hit{DocID: docID, SourceTable: parts[0], SourceID: sourceID, Chunk: chunk}, nil
}
