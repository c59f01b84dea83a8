package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/ricirt/meeting-notifier/internal/api/middleware"
	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/service"
)

// BulkHandler fans one message out to many recipients.
type BulkHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewBulkHandler(svc *service.NotificationService, logger *zap.Logger) *BulkHandler {
	return &BulkHandler{svc: svc, logger: logger}
}

// Send handles POST /api/notifications/bulk
//
// @Summary  Send the same notification to up to 1000 users
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.BulkRequest  true  "Bulk payload"
// @Success  200   {object}  map[string]any
// @Failure  400   {object}  map[string]string
// @Router   /api/notifications/bulk [post]
func (h *BulkHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	count, err := h.svc.SendBulk(r.Context(), req)
	if err != nil {
		h.logger.Warn("bulk send failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int("recipients", len(req.UserIDs)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}
