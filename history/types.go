package history

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meghashyamc/buzee/db"
)

var (
	ErrNotInstalled   = errors.New("browser not installed")
	ErrRead           = errors.New("could not read browser history")
	ErrUnknownBrowser = errors.New("unknown browser")
)

type Browser string

const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Arc     Browser = "arc"
)

const (
	FileTypeChrome  = "chrome-webpage"
	FileTypeFirefox = "firefox-webpage"
	FileTypeArc     = "arc-webpage"
)

// errorViewNotInstalled is what the UI expects in HistoryResult.ErrorView for a missing browser.
const errorViewNotInstalled = "NotInstalledError"

func ParseBrowser(name string) (Browser, error) {
	switch b := Browser(strings.ToLower(strings.TrimSpace(name))); b {
	case Chrome, Firefox, Arc:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBrowser, name)
	}
}

func (b Browser) SourceDomain() string {
	switch b {
	case Chrome:
		return db.SourceDomainChrome
	case Firefox:
		return db.SourceDomainFirefox
	default:
		return db.SourceDomainArc
	}
}

func (b Browser) FileType() string {
	switch b {
	case Chrome:
		return FileTypeChrome
	case Firefox:
		return FileTypeFirefox
	default:
		return FileTypeArc
	}
}

func (b Browser) chromium() bool {
	return b == Chrome || b == Arc
}

// NotInstalledError reports a browser whose history database does not exist.
type NotInstalledError struct {
	Browser Browser
	Path    string
}

func (e *NotInstalledError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s is not installed", e.Browser)
	}
	return fmt.Sprintf("%s is not installed: no history at %s", e.Browser, e.Path)
}

func (e *NotInstalledError) Is(target error) bool {
	return target == ErrNotInstalled
}

type ReadError struct {
	Browser Browser
	Msg     string
	Err     error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reading %s history: %s: %v", e.Browser, e.Msg, e.Err)
	}
	return fmt.Sprintf("reading %s history: %s", e.Browser, e.Msg)
}

func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// HistoryResult is the shape returned to callers that render errors rather than handle them.
type HistoryResult struct {
	Data      []db.DocumentSearchResult `json:"data"`
	ErrorView string                    `json:"error_view,omitempty"`
}

type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Visit is a row read from a browser history database.
type Visit struct {
	ID          int64
	URL         string
	Title       string
	LastVisited int64
}

// sourceID is the visit's row id moved into the browser's own id range.
func (v Visit) sourceID(b Browser) int64 {
	return browserIDBase[b] + v.ID
}

func (v Visit) toSearchResult(b Browser) db.DocumentSearchResult {
	return db.DocumentSearchResult{
		ID:           v.sourceID(b),
		SourceDomain: b.SourceDomain(),
		Name:         v.Title,
		Path:         v.URL,
		FileType:     b.FileType(),
		LastOpened:   v.LastVisited,
	}
}
