package handler

import (
	"net/http"

	"github.com/ricirt/meeting-notifier/internal/queue"
)

// QueueHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics are available at /metrics and are separate from
// this endpoint.
type QueueHandler struct {
	q queue.Queue
}

func NewQueueHandler(q queue.Queue) *QueueHandler {
	return &QueueHandler{q: q}
}

// Depths handles GET /api/queue/depths
//
// @Summary  Real-time queue depth snapshot
// @Tags     queue
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/queue/depths [get]
func (h *QueueHandler) Depths(w http.ResponseWriter, r *http.Request) {
	d, err := h.q.Depths(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue": d,
		"total": d.Total(),
	})
}
