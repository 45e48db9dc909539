package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/logger"
)

const (
	eventBufferSize   = 64
	heartbeatInterval = 15 * time.Second
	heartbeatEvent    = "ping"
)

func SetupEvents(router *gin.Engine, logger logger.Logger, bus *events.Bus) {
	router.GET("/events", handleEvents(bus, logger))
}

// handleEvents relays bus events as server-sent events until the client goes away. The
// subscription is registered before the headers are flushed, so a client that got the
// response sees every later event.
func handleEvents(bus *events.Bus, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, cancel := bus.Subscribe(eventBufferSize)
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		logger.Debug("event stream opened", "subscribers", bus.Subscribers())
		defer logger.Debug("event stream closed")

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case event, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent(event.Name, event)
				return true
			case <-heartbeat.C:
				c.SSEvent(heartbeatEvent, time.Now().Unix())
				return true
			}
		})
	}
}
