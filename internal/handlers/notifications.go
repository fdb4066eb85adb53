package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	list, err := h.Inbox.Unread(r.Context(), user.Login)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) ReadNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid notification id", http.StatusBadRequest)
		return
	}
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Inbox.MarkRead(r.Context(), user.Login, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReadAllNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Inbox.MarkAllRead(r.Context(), user.Login); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
