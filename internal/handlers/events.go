package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/pubsub"
)

// Stream control events, never published on the bus
const (
	eventConnected = "connected"
	eventPing      = "ping"
)

const wsWriteTimeout = 10 * time.Second

func controlEvent(eventType string) pubsub.Event {
	return pubsub.Event{Type: eventType, Timestamp: time.Now().UnixMilli()}
}

// EventsSSE provides Server-Sent Events for realtime updates. The stream
// opens with a connected event and the current users and tournaments.
func (h *API) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	eventChan, initial, err := h.broadcaster.Subscribe(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.broadcaster.Unsubscribe(eventChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	send := func(event pubsub.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Warn("Failed to encode SSE event", "type", event.Type, "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(controlEvent(eventConnected))
	for _, event := range initial {
		send(event)
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			send(event)
		case <-ticker.C:
			send(controlEvent(eventPing))
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		}
	}
}

func (h *API) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// EventsWebsocket carries the same stream as EventsSSE over a websocket.
// Client messages are ignored; they only keep the read side alive.
func (h *API) EventsWebsocket(w http.ResponseWriter, r *http.Request) {
	eventChan, initial, err := h.broadcaster.Subscribe(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.broadcaster.Unsubscribe(eventChan)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Could not upgrade websocket connection", "ip", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	readTimeout := 2 * h.pingInterval
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(event pubsub.Event) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			logger.Debug("Websocket write failed", "ip", r.RemoteAddr, "error", err)
			return false
		}
		return true
	}

	if !send(controlEvent(eventConnected)) {
		return
	}
	for _, event := range initial {
		if !send(event) {
			return
		}
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteTimeout))
				return
			}
			if !send(event) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			logger.Debug("Websocket client disconnected", "ip", r.RemoteAddr)
			return
		}
	}
}
