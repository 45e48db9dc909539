// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/app"
	"github.com/meghashyamc/buzee/config"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testFiles = map[string]string{
	"file1.txt":               "Quarterly report content for file1",
	"file2.go":                "package main\n\nfunc main() {\n\tprint(\"Hello\")\n}",
	"notes.md":                "# Quarterly Markdown\n\nA quarterly markdown summary",
	"subdir/budget.csv":       "item,amount\nrent,1200\ngroceries,300",
	"subdir/nested/hello.txt": "Hello World from a deeper folder",
}

var (
	testFileModified = time.Now().Add(-2 * time.Hour)
	testFileAccessed = time.Now().Add(-time.Hour)
)

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    map[string]any
	queryParams    map[string]string
	expectedStatus int
	// expectedPaths, relative to the synced root, must all be in the results.
	expectedPaths []string
	// exactPaths makes expectedPaths the complete result set.
	exactPaths bool
}

type testServer struct {
	router *gin.Engine
	app    *app.App
	root   string
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

// setupTestServer writes testFiles under a fresh root and mounts every handler on an app
// whose stores live in a temporary app directory. The root path carries the test name and
// paths are matched as metadata, so queries avoid words that prefix "test". File times are
// set in the past so an open recorded during a test always sorts first.
func setupTestServer(t *testing.T, assert *require.Assertions) *testServer {
	t.Helper()

	root := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("APP_DIR", t.TempDir())
	t.Setenv("SYNC_ROOTS", root)
	t.Setenv("HISTORY_HOME", t.TempDir())

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	for relPath, content := range testFiles {
		fullPath := filepath.Join(root, relPath)
		err := os.MkdirAll(filepath.Dir(fullPath), 0755)
		assert.NoError(err, "could not create test sub-directory")
		err = os.WriteFile(fullPath, []byte(content), 0644)
		assert.NoError(err, "could not write test file")
		err = os.Chtimes(fullPath, testFileAccessed, testFileModified)
		assert.NoError(err, "could not set test file times")
	}

	testLogger := newTestLogger()

	a, err := app.New(context.Background(), cfg, testLogger)
	assert.NoError(err, "could not create app")
	t.Cleanup(func() {
		assert.NoError(a.Close(), "could not close app")
	})

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")
	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupSearch(router, testLogger, a.Search, validator)
	SetupHistory(router, testLogger, a.History, validator)
	SetupSync(router, testLogger, a.Sync, validator)
	SetupLists(router, testLogger, a.Policy, a.Store, validator)
	SetupFiletypes(router, testLogger, a.Filetypes, validator)
	SetupDocuments(router, testLogger, a.Store, validator)
	SetupPreferences(router, testLogger, a.Store, a.Policy, validator)
	SetupEvents(router, testLogger, a.Events)

	return &testServer{router: router, app: a, root: root}
}

// syncAndWait runs a full sync through the API and waits for it to finish.
func (s *testServer) syncAndWait(assert *require.Assertions) {
	w := makeTestHTTPRequest(s.router, assert, http.MethodPost, "/sync", nil, nil, nil)
	assert.Equal(http.StatusAccepted, w.Code, w.Body.String())
	s.app.Sync.Wait()
}

func (s *testServer) path(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

// decodeData unmarshals the data field of a response envelope into out.
func decodeData(assert *require.Assertions, body []byte, out any) {
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []string        `json:"errors"`
	}
	assert.NoError(json.Unmarshal(body, &envelope), string(body))
	assert.Empty(envelope.Errors)
	assert.NoError(json.Unmarshal(envelope.Data, out), string(envelope.Data))
}

func searchResults(assert *require.Assertions, server *testServer, query string) []db.DocumentSearchResult {
	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/search", nil, nil, map[string]string{"query": query})
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
	var searchResponse SearchResponse
	decodeData(assert, w.Body.Bytes(), &searchResponse)
	return searchResponse.Results
}
