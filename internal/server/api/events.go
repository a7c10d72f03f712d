package api

import (
	"context"
	"net/http"

	"github.com/spf13/cast"

	"github.com/ayusman/abhinaya/internal/store"
)

// Event list paging.
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 1000
)

// EventLister reads the gesture event log.
type EventLister interface {
	ListRecent(ctx context.Context, limit int) ([]*store.Event, error)
}

// EventsHandler serves GET /api/events?limit=N.
type EventsHandler struct {
	events EventLister
}

// NewEventsHandler returns a handler reading from events.
func NewEventsHandler(events EventLister) *EventsHandler {
	return &EventsHandler{events: events}
}

type eventsResponse struct {
	Events []*store.Event `json:"events"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxEventLimit)
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}
