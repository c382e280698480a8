package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/events"
)

const keepAliveInterval = 30 * time.Second

// EventsHandler streams delivery events to the UI over server-sent events.
type EventsHandler struct {
	notifier *events.Notifier
	buffer   int
	logger   *zap.Logger
}

func NewEventsHandler(notifier *events.Notifier, buffer int, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, buffer: buffer, logger: logger}
}

// Stream handles GET /api/v1/events
//
// @Summary   Subscribe to item_sent, item_failed and stats_updated events
// @Tags      events
// @Produce   text/event-stream
// @Success   200
// @Router    /api/v1/events [get]
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.notifier.Subscribe(h.buffer)
	defer cancel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			// Comment lines keep intermediaries from dropping idle streams.
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
