package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/meghashyamc/buzee/db"
	"github.com/stretchr/testify/require"
)

func TestHandleAddListEntryValidation(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	tests := []testCase{
		{
			name:           "NoRequestBody",
			requestHeaders: defaultTestRequestHeaders,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "EmptyPath",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": ""},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "RelativePath",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": "./abc"},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "PathNotYetCreated",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": server.path("later/coming"), "is_folder": true},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/lists/ignore", testCase.requestHeaders, testCase.requestBody, nil)
			assert.Equal(testCase.expectedStatus, w.Code, fmt.Sprintf("response gotten was %s", w.Body.String()))
		})
	}

	w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/lists/other", defaultTestRequestHeaders,
		map[string]any{"path": server.path("file1.txt")}, nil)
	assert.Equal(http.StatusNotAcceptable, w.Code)
}

func TestIgnoredFolderIsNotIndexed(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)
	subdir := server.path("subdir")

	w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/lists/ignore", defaultTestRequestHeaders,
		map[string]any{"path": subdir, "is_folder": true, "ignore_indexing": true}, nil)
	assert.Equal(http.StatusCreated, w.Code, w.Body.String())

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/lists/ignore", nil, nil, nil)
	assert.Equal(http.StatusOK, w.Code)
	var entries []db.ListEntry
	decodeData(assert, w.Body.Bytes(), &entries)
	assert.Equal([]db.ListEntry{{Path: subdir, IsFolder: true, IgnoreIndexing: true}}, entries)

	server.syncAndWait(assert)

	for _, query := range []string{"groceries", "budget", "deeper"} {
		w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/search", nil, nil, map[string]string{"query": query})
		assert.Equal(http.StatusOK, w.Code)
		var searchResponse SearchResponse
		decodeData(assert, w.Body.Bytes(), &searchResponse)
		assert.Empty(searchResponse.Results, query)
	}

	// Moving the folder to the allow list removes it from the ignore list.
	w = makeTestHTTPRequest(server.router, assert, http.MethodPost, "/lists/allow", defaultTestRequestHeaders,
		map[string]any{"path": subdir, "is_folder": true}, nil)
	assert.Equal(http.StatusCreated, w.Code, w.Body.String())

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/lists/ignore", nil, nil, nil)
	entries = nil
	decodeData(assert, w.Body.Bytes(), &entries)
	assert.Empty(entries)

	server.syncAndWait(assert)
	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/search", nil, nil, map[string]string{"query": "groceries"})
	var searchResponse SearchResponse
	decodeData(assert, w.Body.Bytes(), &searchResponse)
	assertPaths(assert, server, testCase{expectedPaths: []string{"subdir/budget.csv"}, exactPaths: true}, searchResponse.Results)
}

func TestHandleRemoveListEntry(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)
	path := server.path("notes.md")

	w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/lists/ignore", defaultTestRequestHeaders,
		map[string]any{"path": path, "ignore_content": true}, nil)
	assert.Equal(http.StatusCreated, w.Code, w.Body.String())

	tests := []struct {
		name           string
		queryParams    map[string]string
		expectedStatus int
	}{
		{name: "MissingPath", queryParams: nil, expectedStatus: http.StatusNotAcceptable},
		{name: "Removed", queryParams: map[string]string{"path": path}, expectedStatus: http.StatusNoContent},
		{name: "AlreadyRemoved", queryParams: map[string]string{"path": path}, expectedStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodDelete, "/lists/ignore", nil, nil, tt.queryParams)
			assert.Equal(tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}
