package docdb

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/meghashyamc/buzee/db"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type UpsertResult struct {
	Inserted int
	Updated  int
}

// SizeFilter bounds a listing by file size in bytes. Zero leaves that end open; Max is exclusive.
type SizeFilter struct {
	Min int64
	Max int64
}

type PathRow struct {
	ID       int64
	Path     string
	FileType string
}

type MetadataQuery struct {
	// Expression is an FTS5 match expression over metadata_fts.
	Expression string
	FileTypes  []string
	ExcludeIDs []int64
	DateLimit  *db.DateLimit
	Limit      int
	Offset     int
}

// Terms splits text into lowercase words, dropping punctuation.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Phrase quotes s as an FTS5 string.
func Phrase(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// PrefixExpression requires every term to prefix-match column, e.g. title : "rep"* AND title : "q"*.
func PrefixExpression(column string, terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		parts = append(parts, column+" : "+Phrase(term)+"*")
	}
	return strings.Join(parts, " AND ")
}
