package pathpolicy

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
)

type Classification int

const (
	Neutral Classification = iota
	Allowed
	IgnoredForIndexing
	IgnoredForContentOnly
)

func (c Classification) String() string {
	switch c {
	case Allowed:
		return "allowed"
	case IgnoredForIndexing:
		return "ignored_for_indexing"
	case IgnoredForContentOnly:
		return "ignored_for_content_only"
	default:
		return "neutral"
	}
}

type ListStore interface {
	ListEntries(ctx context.Context, list db.ListName) ([]db.ListEntry, error)
	ReconcileEntry(ctx context.Context, list db.ListName, entry db.ListEntry) error
	RemoveEntry(ctx context.Context, list db.ListName, path string) error
}

// Policy holds an in-memory snapshot of the ignore and allow lists plus the forbidden
// directory tokens. Load refreshes the snapshot.
type Policy struct {
	store  ListStore
	logger logger.Logger

	mu            sync.RWMutex
	allow         []db.ListEntry
	ignore        []db.ListEntry
	configured    []string
	userForbidden []string
}

func New(logger logger.Logger, store ListStore, configuredForbidden []string) *Policy {
	return &Policy{
		store:      store,
		logger:     logger,
		configured: configuredForbidden,
	}
}

func (p *Policy) Load(ctx context.Context) error {
	allow, err := p.store.ListEntries(ctx, db.ListAllow)
	if err != nil {
		p.logger.Error("failed to load allow list", "err", err.Error())
		return err
	}
	ignore, err := p.store.ListEntries(ctx, db.ListIgnore)
	if err != nil {
		p.logger.Error("failed to load ignore list", "err", err.Error())
		return err
	}

	p.mu.Lock()
	p.allow = allow
	p.ignore = ignore
	p.mu.Unlock()

	return nil
}

// Reconcile writes entry to list, removing it from the other list, and refreshes the snapshot.
func (p *Policy) Reconcile(ctx context.Context, entry db.ListEntry, list db.ListName) error {
	entry.Path = filepath.Clean(entry.Path)
	if err := p.store.ReconcileEntry(ctx, list, entry); err != nil {
		return err
	}
	return p.Load(ctx)
}

func (p *Policy) Remove(ctx context.Context, path string, list db.ListName) error {
	if err := p.store.RemoveEntry(ctx, list, filepath.Clean(path)); err != nil {
		return err
	}
	return p.Load(ctx)
}

// Classify decides how path is treated. Allow-list hits win; otherwise the most specific
// ignore-list hit applies.
func (p *Policy) Classify(path string) Classification {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, entry := range p.allow {
		if matches(entry, path) {
			return Allowed
		}
	}

	best, found := mostSpecific(p.ignore, path)
	if !found {
		return Neutral
	}
	switch {
	case best.IgnoreIndexing:
		return IgnoredForIndexing
	case best.IgnoreContent:
		return IgnoredForContentOnly
	default:
		return Neutral
	}
}

func mostSpecific(entries []db.ListEntry, path string) (db.ListEntry, bool) {
	var (
		best  db.ListEntry
		found bool
	)
	for _, entry := range entries {
		if !matches(entry, path) {
			continue
		}
		if !entry.IsFolder {
			return entry, true
		}
		if !found || len(entry.Path) > len(best.Path) {
			best = entry
			found = true
		}
	}
	return best, found
}

func matches(entry db.ListEntry, path string) bool {
	if path == entry.Path {
		return true
	}
	if !entry.IsFolder {
		return false
	}
	return IsUnder(path, entry.Path)
}

// IsUnder reports whether path lies strictly inside dir.
func IsUnder(path, dir string) bool {
	dir = strings.TrimRight(dir, `/\`)
	if len(path) <= len(dir) || !strings.HasPrefix(path, dir) {
		return false
	}
	next := path[len(dir)]
	return next == '/' || next == '\\'
}

// SetUserForbidden replaces the tokens taken from user preferences (comma separated).
func (p *Policy) SetUserForbidden(disallowedPaths string) {
	var tokens []string
	for _, token := range strings.Split(disallowedPaths, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}

	p.mu.Lock()
	p.userForbidden = tokens
	p.mu.Unlock()
}

func (p *Policy) ForbiddenDirs() []string {
	home, _ := os.UserHomeDir()
	dirs := PlatformForbiddenDirs(runtime.GOOS, home)

	p.mu.RLock()
	defer p.mu.RUnlock()
	dirs = append(dirs, p.configured...)
	return append(dirs, p.userForbidden...)
}

// IsForbidden reports whether path contains any forbidden token as a substring.
func (p *Policy) IsForbidden(path string) bool {
	return ContainsAny(path, p.ForbiddenDirs())
}

// ContainsAny is IsForbidden against a token set the caller already holds.
func ContainsAny(path string, tokens []string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(path, token) {
			return true
		}
	}
	return false
}

func PlatformForbiddenDirs(goos, home string) []string {
	dirs := []string{"node_modules", "venv", "bower_components", "__pycache__"}

	switch goos {
	case "windows":
		dirs = append(dirs, "$RECYCLE.BIN", "System Volume Information", "AppData", "ProgramData", "Windows", "Program Files")
	case "darwin":
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library"), filepath.Join(home, "Applications"))
		}
	}

	return dirs
}
