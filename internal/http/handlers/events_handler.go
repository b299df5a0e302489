// Change feed HTTP handlers.
//
//   - GET /events         (Server-Sent Events)
//   - GET /events/ws      (websocket, one JSON event per message)
//   - GET /events/recent  (ring buffer for late joiners)
//
// Delivery is best effort: a client that reads too slowly misses events.
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-mdt-backend/internal/broadcast"
	"github.com/tbourn/go-mdt-backend/internal/http/middleware"
)

const wsWriteWait = 10 * time.Second

// RecentEventsResponse wraps the buffered events, oldest first.
type RecentEventsResponse struct {
	Events []broadcast.Event `json:"events"`
}

// RecentEvents godoc
// @ID          recentEvents
// @Summary     Recent change events
// @Tags        Events
// @Produce     json
// @Security    SessionAuth
// @Success     200  {object}  handlers.RecentEventsResponse
// @Router      /events/recent [get]
func (h *Handlers) RecentEvents(c *gin.Context) {
	evs := h.svc.Events.Recent()
	if evs == nil {
		evs = []broadcast.Event{}
	}
	ok(c, http.StatusOK, RecentEventsResponse{Events: evs})
}

// StreamEvents godoc
// @ID          streamEvents
// @Summary     Change feed (SSE)
// @Description Streams every change as a Server-Sent Event named after it (arrest.created, note.deleted, ...). With replay=true the buffered events are sent first.
// @Tags        Events
// @Produce     text/event-stream
// @Security    SessionAuth
// @Param       replay  query  bool  false "Send recent events first"
// @Success     200  {string}  string "event stream"
// @Router      /events [get]
func (h *Handlers) StreamEvents(c *gin.Context) {
	ch, cancel := h.svc.Events.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// Streams outlive the server's WriteTimeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Status(http.StatusOK)

	if c.Query("replay") == "true" {
		for _, ev := range h.svc.Events.Recent() {
			c.SSEvent(ev.Name, ev)
		}
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.opts.Heartbeat)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(ev.Name, ev)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}

// StreamEventsWS godoc
// @ID          streamEventsWS
// @Summary     Change feed (websocket)
// @Description Upgrades to a websocket and sends every change as a JSON message. Messages from the client are ignored.
// @Tags        Events
// @Security    SessionAuth
// @Success     101  {string}  string "Switching Protocols"
// @Router      /events/ws [get]
func (h *Handlers) StreamEventsWS(c *gin.Context) {
	lg := middleware.LoggerFrom(c)
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lg.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Time{})

	ch, cancel := h.svc.Events.Subscribe()
	defer cancel()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					lg.Debug().Err(err).Msg("websocket closed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(ev); err != nil {
				lg.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
