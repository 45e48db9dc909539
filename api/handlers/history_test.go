package handlers

import (
	"net/http"
	"testing"

	"github.com/meghashyamc/buzee/history"
	"github.com/stretchr/testify/require"
)

func TestHandleSearchHistory(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	tests := []struct {
		name              string
		endpoint          string
		queryParams       map[string]string
		expectedStatus    int
		expectedErrorView string
	}{
		{name: "UnknownBrowser", endpoint: "/history/opera", expectedStatus: http.StatusNotAcceptable},
		{name: "InvalidPage", endpoint: "/history/chrome", queryParams: map[string]string{"page": "-2"}, expectedStatus: http.StatusNotAcceptable},
		{name: "ChromeNotInstalled", endpoint: "/history/chrome", queryParams: map[string]string{"query": "news"}, expectedStatus: http.StatusOK, expectedErrorView: "NotInstalledError"},
		{name: "ArcNotInstalled", endpoint: "/history/arc", expectedStatus: http.StatusOK, expectedErrorView: "NotInstalledError"},
		{name: "FirefoxNotInstalled", endpoint: "/history/Firefox", expectedStatus: http.StatusOK, expectedErrorView: "NotInstalledError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodGet, tt.endpoint, nil, nil, tt.queryParams)
			assert.Equal(tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var result history.HistoryResult
			decodeData(assert, w.Body.Bytes(), &result)
			assert.Equal(tt.expectedErrorView, result.ErrorView)
			assert.Empty(result.Data)
		})
	}
}

func TestHandleListProfiles(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	for _, browser := range []string{"chrome", "arc", "firefox"} {
		t.Run(browser, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/history/"+browser+"/profiles", nil, nil, nil)
			assert.Equal(http.StatusOK, w.Code, w.Body.String())

			var profiles []history.Profile
			decodeData(assert, w.Body.Bytes(), &profiles)
			assert.Equal([]history.Profile{{ID: "Default", Name: "Default"}}, profiles)
		})
	}

	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/history/safari/profiles", nil, nil, nil)
	assert.Equal(http.StatusNotAcceptable, w.Code)
}
