package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
	_ "modernc.org/sqlite"
)

// chromiumEpochOffset is the number of seconds between 1601-01-01 and 1970-01-01.
const chromiumEpochOffset = 11644473600

// Reader searches browser history databases found under a home directory. It only ever
// reads copies of the live databases, opened read-only.
type Reader struct {
	logger logger.Logger
	home   string
	goos   string
}

func New(logger logger.Logger, home string) *Reader {
	return &Reader{logger: logger, home: home, goos: runtime.GOOS}
}

// Profiles lists the profiles of a Chromium-family browser from its Local State file.
// Firefox and browsers without a Local State report the default profile only.
func (r *Reader) Profiles(b Browser) ([]Profile, error) {
	defaults := []Profile{{ID: defaultProfileID, Name: defaultProfileID}}
	if !b.chromium() {
		return defaults, nil
	}

	data, err := os.ReadFile(filepath.Join(userDataDir(r.goos, r.home, b), chromiumStateFile))
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return nil, &ReadError{Browser: b, Msg: "read local state", Err: err}
	}

	var state struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &ReadError{Browser: b, Msg: "parse local state", Err: err}
	}

	profiles := make([]Profile, 0, len(state.Profile.InfoCache))
	for id, info := range state.Profile.InfoCache {
		if info.Name == "" {
			continue
		}
		profiles = append(profiles, Profile{ID: id, Name: info.Name})
	}
	if len(profiles) == 0 {
		return defaults, nil
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// resolveProfile maps a profile id or display name to its directory name.
func (r *Reader) resolveProfile(b Browser, profile string) string {
	if profile == "" {
		return defaultProfileID
	}
	profiles, err := r.Profiles(b)
	if err != nil {
		return profile
	}
	for _, p := range profiles {
		if p.ID == profile {
			return p.ID
		}
	}
	for _, p := range profiles {
		if p.Name == profile {
			return p.ID
		}
	}
	return profile
}

// historyPaths returns the live history database and the sibling path it is copied to.
func (r *Reader) historyPaths(b Browser, profile string) (string, string, error) {
	base := userDataDir(r.goos, r.home, b)

	if b.chromium() {
		dir := filepath.Join(base, r.resolveProfile(b, profile))
		return filepath.Join(dir, chromiumHistoryFile), filepath.Join(dir, chromiumBackupFile), nil
	}

	dir, ok := firefoxProfileDir(base)
	if !ok {
		return "", "", &NotInstalledError{Browser: b, Path: base}
	}
	return filepath.Join(dir, firefoxHistoryFile), filepath.Join(dir, firefoxBackupFile), nil
}

// Visits returns the history entries whose title or url contains every whitespace-separated
// term of query, most recently visited first.
func (r *Reader) Visits(ctx context.Context, b Browser, profile, query string, limit, offset int) ([]Visit, error) {
	live, backup, err := r.historyPaths(b, profile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(live); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotInstalledError{Browser: b, Path: live}
		}
		return nil, &ReadError{Browser: b, Msg: "stat history", Err: err}
	}

	if err := copyFile(live, backup); err != nil {
		return nil, &ReadError{Browser: b, Msg: "copy history", Err: err}
	}

	conn, err := sql.Open("sqlite", readOnlyDSN(backup))
	if err != nil {
		return nil, &ReadError{Browser: b, Msg: "open history", Err: err}
	}
	defer conn.Close()

	stmt, args := visitsQuery(b, strings.Fields(query), limit, offset)
	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &ReadError{Browser: b, Msg: "query history", Err: err}
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var (
			v   Visit
			raw int64
		)
		if err := rows.Scan(&v.ID, &v.URL, &v.Title, &raw); err != nil {
			return nil, &ReadError{Browser: b, Msg: "scan history row", Err: err}
		}
		v.LastVisited = visitTime(b, raw)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Browser: b, Msg: "iterate history", Err: err}
	}
	return visits, nil
}

// Search returns one page of matching history entries as search results.
func (r *Reader) Search(ctx context.Context, b Browser, profile, query string, page, limit int) ([]db.DocumentSearchResult, error) {
	if page < 0 {
		page = 0
	}
	visits, err := r.Visits(ctx, b, profile, query, limit, page*limit)
	if err != nil {
		return nil, err
	}

	results := make([]db.DocumentSearchResult, 0, len(visits))
	for _, v := range visits {
		results = append(results, v.toSearchResult(b))
	}
	return results, nil
}

// SearchResult wraps Search for callers that display failures instead of handling them.
func (r *Reader) SearchResult(ctx context.Context, b Browser, profile, query string, page, limit int) HistoryResult {
	results, err := r.Search(ctx, b, profile, query, page, limit)
	if err == nil {
		return HistoryResult{Data: results}
	}

	r.logger.Warn("could not search browser history", "browser", string(b), "err", err.Error())
	if errors.Is(err, ErrNotInstalled) {
		return HistoryResult{Data: []db.DocumentSearchResult{}, ErrorView: errorViewNotInstalled}
	}
	return HistoryResult{Data: []db.DocumentSearchResult{}, ErrorView: err.Error()}
}

func (r *Reader) SearchChrome(ctx context.Context, profile, query string, page, limit int) HistoryResult {
	return r.SearchResult(ctx, Chrome, profile, query, page, limit)
}

func (r *Reader) SearchArc(ctx context.Context, profile, query string, page, limit int) HistoryResult {
	return r.SearchResult(ctx, Arc, profile, query, page, limit)
}

func (r *Reader) SearchFirefox(ctx context.Context, query string, page, limit int) HistoryResult {
	return r.SearchResult(ctx, Firefox, "", query, page, limit)
}

func visitsQuery(b Browser, terms []string, limit, offset int) (string, []any) {
	table, timeColumn := "moz_places", "last_visit_date"
	if b.chromium() {
		table, timeColumn = "urls", "last_visit_time"
	}

	var (
		where []string
		args  []any
	)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	var q strings.Builder
	fmt.Fprintf(&q, "SELECT id, url, COALESCE(title, ''), COALESCE(%s, 0) FROM %s", timeColumn, table)
	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&q, " ORDER BY %s DESC LIMIT ? OFFSET ?", timeColumn)
	args = append(args, limit, offset)

	return q.String(), args
}

// visitTime converts a browser timestamp in microseconds to Unix seconds. Chromium counts
// from 1601-01-01, Firefox from 1970-01-01. Zero means never visited.
func visitTime(b Browser, micros int64) int64 {
	if micros <= 0 {
		return 0
	}
	seconds := micros / 1_000_000
	if b.chromium() {
		seconds -= chromiumEpochOffset
		if seconds < 0 {
			return 0
		}
	}
	return seconds
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func readOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro&immutable=1&_pragma=busy_timeout(5000)"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
