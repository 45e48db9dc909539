package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/meghashyamc/buzee/db"
	"github.com/stretchr/testify/require"
)

func searchOne(assert *require.Assertions, server *testServer, query string) db.DocumentSearchResult {
	results := searchResults(assert, server, query)
	assert.Len(results, 1)
	return results[0]
}

func TestHandleDocumentUpdates(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)
	server.syncAndWait(assert)

	budget := searchOne(assert, server, "groceries")
	assert.Equal(server.path("subdir/budget.csv"), budget.Path)
	id := fmt.Sprint(budget.ID)

	tests := []struct {
		name           string
		method         string
		endpoint       string
		requestBody    map[string]any
		expectedStatus int
	}{
		{name: "OpenIDNotANumber", method: http.MethodPost, endpoint: "/documents/abc/open", expectedStatus: http.StatusUnprocessableEntity},
		{name: "OpenIDZero", method: http.MethodPost, endpoint: "/documents/0/open", expectedStatus: http.StatusNotAcceptable},
		{name: "OpenMissingDocument", method: http.MethodPost, endpoint: "/documents/999999/open", expectedStatus: http.StatusNotFound},
		{name: "Open", method: http.MethodPost, endpoint: "/documents/" + id + "/open", expectedStatus: http.StatusNoContent},
		{name: "PinWithoutValue", method: http.MethodPut, endpoint: "/documents/" + id + "/pin", requestBody: map[string]any{}, expectedStatus: http.StatusNotAcceptable},
		{name: "PinMissingDocument", method: http.MethodPut, endpoint: "/documents/999999/pin", requestBody: map[string]any{"pinned": true}, expectedStatus: http.StatusNotFound},
		{name: "Pin", method: http.MethodPut, endpoint: "/documents/" + id + "/pin", requestBody: map[string]any{"pinned": true}, expectedStatus: http.StatusNoContent},
		{name: "Comment", method: http.MethodPut, endpoint: "/documents/" + id + "/comment", requestBody: map[string]any{"comment": "tax receipts"}, expectedStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, tt.method, tt.endpoint, defaultTestRequestHeaders, tt.requestBody, nil)
			assert.Equal(tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	// The opened document leads the recent list.
	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/recent", nil, nil, nil)
	assert.Equal(http.StatusOK, w.Code)
	var recent SearchResponse
	decodeData(assert, w.Body.Bytes(), &recent)
	assert.NotEmpty(recent.Results)
	assert.Equal(budget.ID, recent.Results[0].ID)
	assert.Greater(recent.Results[0].LastOpened, testFileAccessed.Unix())
	assert.Equal(1.0, recent.Results[0].FrecencyRank)
	assert.True(recent.Results[0].IsPinned)

	// Comments are searchable.
	commented := searchOne(assert, server, "receipts")
	assert.Equal(budget.ID, commented.ID)
	assert.NotNil(commented.Comment)
	assert.Equal("tax receipts", *commented.Comment)

	w = makeTestHTTPRequest(server.router, assert, http.MethodPut, "/documents/"+id+"/comment", defaultTestRequestHeaders,
		map[string]any{"comment": nil}, nil)
	assert.Equal(http.StatusNoContent, w.Code, w.Body.String())

	assert.Empty(searchResults(assert, server, "receipts"))
}
