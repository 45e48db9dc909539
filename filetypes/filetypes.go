package filetypes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
)

const (
	CategoryDocument = "document"
	CategoryImage    = "image"
	CategoryBook     = "book"
	CategoryAudio    = "audio"
	CategoryVideo    = "video"
)

var (
	ErrInvalidCategory = errors.New("invalid file type category")
	ErrUnknownFiletype = errors.New("unknown file type")
)

var categories = []string{CategoryDocument, CategoryImage, CategoryBook, CategoryAudio, CategoryVideo}

var seed = map[string][]string{
	CategoryDocument: {"csv", "docx", "key", "md", "numbers", "pages", "pdf", "pptx", "txt", "xlsx", "xls"},
	CategoryImage:    {"jpg", "jpeg", "png", "gif", "svg"},
	CategoryBook:     {"epub", "mobi", "azw3"},
	CategoryAudio:    {"mp3", "wav", "aac", "flac", "ogg"},
	CategoryVideo:    {"mp4", "mkv", "avi", "mov", "wmv"},
}

type Store interface {
	Filetypes(ctx context.Context) ([]db.FiletypeEntry, error)
	SeedFiletypes(ctx context.Context, entries []db.FiletypeEntry) (bool, error)
	AddFiletype(ctx context.Context, entry db.FiletypeEntry) error
	SetFiletypeAllowed(ctx context.Context, fileType string, allowed bool) error
}

type Registry struct {
	store  Store
	logger logger.Logger
}

func New(logger logger.Logger, store Store) *Registry {
	return &Registry{store: store, logger: logger}
}

// SeedEntries returns the built-in file types, all allowed.
func SeedEntries() []db.FiletypeEntry {
	var entries []db.FiletypeEntry
	for _, category := range categories {
		for _, ext := range seed[category] {
			entries = append(entries, db.FiletypeEntry{FileType: ext, Category: category, Allowed: true})
		}
	}
	return entries
}

// Seed fills an empty registry with the built-in file types.
func (r *Registry) Seed(ctx context.Context) error {
	seeded, err := r.store.SeedFiletypes(ctx, SeedEntries())
	if err != nil {
		return err
	}
	if seeded {
		r.logger.Info("seeded file types", "count", len(SeedEntries()))
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]db.FiletypeEntry, error) {
	return r.store.Filetypes(ctx)
}

func (r *Registry) AllowedExtensions(ctx context.Context) (map[string]bool, error) {
	entries, err := r.store.Filetypes(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Allowed {
			allowed[entry.FileType] = true
		}
	}
	return allowed, nil
}

// ExtensionsByCategory lists the allowed extensions of one category, sorted.
func (r *Registry) ExtensionsByCategory(ctx context.Context, category string) ([]string, error) {
	entries, err := r.store.Filetypes(ctx)
	if err != nil {
		return nil, err
	}

	var exts []string
	for _, entry := range entries {
		if entry.Allowed && entry.Category == category {
			exts = append(exts, entry.FileType)
		}
	}
	sort.Strings(exts)
	return exts, nil
}

func (r *Registry) Category(ctx context.Context, ext string) (string, error) {
	ext = Normalize(ext)
	entries, err := r.store.Filetypes(ctx)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.FileType == ext {
			return entry.Category, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFiletype, ext)
}

func (r *Registry) Add(ctx context.Context, ext string, category string) error {
	if !ValidCategory(category) {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}
	ext = Normalize(ext)
	if ext == "" {
		return fmt.Errorf("%w: empty extension", ErrUnknownFiletype)
	}

	if err := r.store.AddFiletype(ctx, db.FiletypeEntry{FileType: ext, Category: category, Allowed: true, AddedByUser: true}); err != nil {
		r.logger.Error("failed to add file type", "file_type", ext, "err", err.Error())
		return err
	}
	return nil
}

func (r *Registry) SetAllowed(ctx context.Context, ext string, allowed bool) error {
	return r.store.SetFiletypeAllowed(ctx, Normalize(ext), allowed)
}

func ValidCategory(category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// Normalize lowercases ext and strips a leading dot.
func Normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
