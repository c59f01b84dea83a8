package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ricirt/meeting-notifier/internal/api/middleware"
	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/service"
)

// NotificationHandler handles single-notification endpoints and the inbox.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Send handles POST /api/notifications/send
//
// @Summary     Send a notification to one user
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.SendRequest  true  "Notification payload"
// @Success     200   {object}  map[string]any
// @Failure     400   {object}  map[string]string
// @Failure     500   {object}  map[string]string
// @Router      /api/notifications/send [post]
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.Send(r.Context(), req)
	if err != nil {
		h.logger.Warn("send notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "notificationId": n.ID})
}

// ListForUser handles GET /api/notifications/{userId}
//
// @Summary  A user's newest notifications
// @Tags     notifications
// @Produce  json
// @Param    userId      path      string  true   "User ID"
// @Param    unreadOnly  query     bool    false  "Only unread records"
// @Success  200         {object}  map[string]any
// @Router   /api/notifications/{userId} [get]
func (h *NotificationHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))

	notifications, err := h.svc.ListForUser(r.Context(), userID, unreadOnly)
	if err != nil {
		mapError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkRead handles PUT /api/notifications/{notificationId}/read
//
// @Summary  Mark a notification as read
// @Tags     notifications
// @Produce  json
// @Param    notificationId  path      string  true  "Notification ID"
// @Success  200             {object}  map[string]bool
// @Failure  404             {object}  map[string]string
// @Router   /api/notifications/{notificationId}/read [put]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationId")
	if err := h.svc.MarkRead(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
