package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/meghashyamc/buzee/db"
	"github.com/stretchr/testify/require"
)

func TestHandlePreferences(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/preferences", nil, nil, nil)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
	var prefs db.UserPreferences
	decodeData(assert, w.Body.Bytes(), &prefs)
	assert.True(prefs.AutomaticBackgroundSync)
	assert.True(prefs.DetailedScan)
	assert.Equal("Alt+Space", prefs.GlobalShortcut)
	assert.Empty(prefs.DisallowedPaths)

	w = makeTestHTTPRequest(server.router, assert, http.MethodPut, "/preferences", defaultTestRequestHeaders,
		map[string]any{"global_shortcut": strings.Repeat("k", 101)}, nil)
	assert.Equal(http.StatusNotAcceptable, w.Code)

	w = makeTestHTTPRequest(server.router, assert, http.MethodPut, "/preferences", nil, nil, nil)
	assert.Equal(http.StatusUnprocessableEntity, w.Code)

	update := map[string]any{
		"first_launch_done":         true,
		"global_shortcut":           "Ctrl+Space",
		"automatic_background_sync": false,
		"detailed_scan":             true,
		"disallowed_paths":          "nested, other",
	}
	w = makeTestHTTPRequest(server.router, assert, http.MethodPut, "/preferences", defaultTestRequestHeaders, update, nil)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/preferences", nil, nil, nil)
	prefs = db.UserPreferences{}
	decodeData(assert, w.Body.Bytes(), &prefs)
	assert.Equal(db.UserPreferences{
		FirstLaunchDone:         true,
		GlobalShortcut:          "Ctrl+Space",
		AutomaticBackgroundSync: false,
		DetailedScan:            true,
		DisallowedPaths:         "nested, other",
	}, prefs)
	assert.Contains(server.app.Policy.ForbiddenDirs(), "nested")

	// Files under a disallowed directory are skipped by the sync.
	server.syncAndWait(assert)
	assert.Empty(searchResults(assert, server, "deeper"))
	assertPaths(assert, server, testCase{expectedPaths: []string{"subdir/budget.csv"}}, searchResults(assert, server, "groceries"))
}

func TestMetadataOnlySyncWithoutDetailedScan(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	w := makeTestHTTPRequest(server.router, assert, http.MethodPut, "/preferences", defaultTestRequestHeaders,
		map[string]any{"detailed_scan": false, "global_shortcut": "Alt+Space"}, nil)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())

	server.syncAndWait(assert)

	assert.Empty(searchResults(assert, server, "groceries"))
	assertPaths(assert, server, testCase{expectedPaths: []string{"subdir/budget.csv"}, exactPaths: true}, searchResults(assert, server, "budget"))
}
