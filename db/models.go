package db

// Source domains tag where a record came from.
const (
	SourceDomainLocal   = "local"
	SourceDomainChrome  = "Chrome"
	SourceDomainFirefox = "Firefox"
	SourceDomainArc     = "Arc"
)

// Source tables partition the inverted index.
const (
	SourceTableDocument   = "document"
	SourceTableWebHistory = "web_history"
	SourceTableBookmarks  = "bookmarks"
	SourceTableEmail      = "email"
	SourceTableFolders    = "folders"
)

const FileTypeFolder = "folder"

// Document is the canonical unit of indexed content.
type Document struct {
	ID                   int64   `json:"id"`
	SourceDomain         string  `json:"source_domain"`
	CreatedAt            int64   `json:"created_at"`
	Name                 string  `json:"name"`
	Path                 string  `json:"path"`
	Size                 *int64  `json:"size"`
	FileType             string  `json:"file_type"`
	LastModified         int64   `json:"last_modified"`
	LastOpened           int64   `json:"last_opened"`
	LastSynced           int64   `json:"last_synced"`
	LastParsed           int64   `json:"last_parsed"`
	IsPinned             bool    `json:"is_pinned"`
	FrecencyRank         float64 `json:"frecency_rank"`
	FrecencyLastAccessed int64   `json:"frecency_last_accessed"`
	Comment              *string `json:"comment"`
}

// DocumentSearchResult is the uniform shape returned by every search surface.
type DocumentSearchResult struct {
	ID                   int64   `json:"id"`
	SourceDomain         string  `json:"source_domain"`
	CreatedAt            int64   `json:"created_at"`
	Name                 string  `json:"name"`
	Path                 string  `json:"path"`
	Size                 *int64  `json:"size"`
	FileType             string  `json:"file_type"`
	LastModified         int64   `json:"last_modified"`
	LastOpened           int64   `json:"last_opened"`
	LastParsed           int64   `json:"last_parsed"`
	LastSynced           int64   `json:"last_synced"`
	FrecencyLastAccessed int64   `json:"frecency_last_accessed"`
	FrecencyRank         float64 `json:"frecency_rank"`
	IsPinned             bool    `json:"is_pinned"`
	Comment              *string `json:"comment"`
}

func (d *Document) ToSearchResult() DocumentSearchResult {
	return DocumentSearchResult{
		ID:                   d.ID,
		SourceDomain:         d.SourceDomain,
		CreatedAt:            d.CreatedAt,
		Name:                 d.Name,
		Path:                 d.Path,
		Size:                 d.Size,
		FileType:             d.FileType,
		LastModified:         d.LastModified,
		LastOpened:           d.LastOpened,
		LastParsed:           d.LastParsed,
		LastSynced:           d.LastSynced,
		FrecencyLastAccessed: d.FrecencyLastAccessed,
		FrecencyRank:         d.FrecencyRank,
		IsPinned:             d.IsPinned,
		Comment:              d.Comment,
	}
}

// DateLimit bounds results by last_modified, both ends inclusive, in Unix seconds.
type DateLimit struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text,omitempty"`
}

func (d *DateLimit) Contains(ts int64) bool {
	if d == nil {
		return true
	}
	if d.Start > 0 && ts < d.Start {
		return false
	}
	if d.End > 0 && ts > d.End {
		return false
	}
	return true
}

type ListName string

const (
	ListIgnore ListName = "ignore"
	ListAllow  ListName = "allow"
)

func (l ListName) Other() ListName {
	if l == ListIgnore {
		return ListAllow
	}
	return ListIgnore
}

func (l ListName) Valid() bool {
	return l == ListIgnore || l == ListAllow
}

// ListEntry is a row of the ignore or allow list.
type ListEntry struct {
	Path           string `json:"path"`
	IsFolder       bool   `json:"is_folder"`
	IgnoreIndexing bool   `json:"ignore_indexing"`
	IgnoreContent  bool   `json:"ignore_content"`
}

// FiletypeEntry describes one extension known to the registry.
type FiletypeEntry struct {
	FileType    string `json:"file_type"`
	Category    string `json:"category"`
	Allowed     bool   `json:"allowed"`
	AddedByUser bool   `json:"added_by_user"`
}

type FiletypeCount struct {
	FileType string `json:"file_type"`
	Count    int64  `json:"count"`
}

type UserPreferences struct {
	FirstLaunchDone         bool   `json:"first_launch_done"`
	OnboardingDone          bool   `json:"onboarding_done"`
	LaunchAtStartup         bool   `json:"launch_at_startup"`
	ShowInDock              bool   `json:"show_in_dock"`
	GlobalShortcutEnabled   bool   `json:"global_shortcut_enabled"`
	GlobalShortcut          string `json:"global_shortcut"`
	AutomaticBackgroundSync bool   `json:"automatic_background_sync"`
	DetailedScan            bool   `json:"detailed_scan"`
	DisallowedPaths         string `json:"disallowed_paths"`
}

type AppData struct {
	AppName      string `json:"app_name"`
	AppVersion   string `json:"app_version"`
	AppMode      string `json:"app_mode"`
	AppTheme     string `json:"app_theme"`
	AppLanguage  string `json:"app_language"`
	LastScanTime int64  `json:"last_scan_time"`
	ScanRunning  bool   `json:"scan_running"`
}
