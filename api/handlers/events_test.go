package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meghashyamc/buzee/events"
	"github.com/stretchr/testify/require"
)

// readEvent returns the next event name and data from an event stream.
func readEvent(assert *require.Assertions, reader *bufio.Reader) (string, string) {
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		assert.NoError(err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if name != "" || data != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestHandleEvents(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/events", nil)
	assert.NoError(err)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(err)
	defer resp.Body.Close()

	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(1, server.app.Events.Subscribers())

	server.app.Events.Emit(events.Event{Name: events.SyncStatus, Payload: "true"})
	server.app.Events.Emit(events.Event{Name: events.FilesAdded, Key: events.KeyFilesAdded, Payload: 10})

	reader := bufio.NewReader(resp.Body)

	name, data := readEvent(assert, reader)
	assert.Equal(events.SyncStatus, name)
	var event events.Event
	assert.NoError(json.Unmarshal([]byte(data), &event))
	assert.Equal(events.Event{Name: events.SyncStatus, Payload: "true"}, event)

	name, data = readEvent(assert, reader)
	assert.Equal(events.FilesAdded, name)
	event = events.Event{}
	assert.NoError(json.Unmarshal([]byte(data), &event))
	assert.Equal(events.KeyFilesAdded, event.Key)
	assert.Equal(float64(10), event.Payload)

	// Closing the stream releases the subscription.
	cancel()
	assert.Eventually(func() bool {
		return server.app.Events.Subscribers() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
