package handlers

import (
	"context"
	"net/http"
	"strings"

	"dormitory/models"

	"github.com/go-chi/chi/v5"
)

type paymentBody struct {
	Sum int `json:"sum"`
}

func loginParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	login := strings.TrimSpace(chi.URLParam(r, "login"))
	if login == "" {
		http.Error(w, "Invalid login", http.StatusBadRequest)
		return "", false
	}
	return login, true
}

// GetToEvictionHandler: кандидаты на выселение с причиной
func (h *Handler) GetToEvictionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	candidates, err := h.Eviction.Candidates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, candidates)
}

func (h *Handler) EvictResidentHandler(w http.ResponseWriter, r *http.Request) {
	login, ok := loginParam(w, r)
	if !ok {
		return
	}
	user, ok := h.caller(w, r, models.RoleManager)
	if !ok {
		return
	}
	if err := h.Bids.EvictResident(r.Context(), user, login); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetAvailableRoomsHandler: свободные комнаты для переезда
func (h *Handler) GetAvailableRoomsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleResident)
	if !ok {
		return
	}
	rooms, err := h.Rooms.AvailableFor(r.Context(), user.Login)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, rooms)
}

func (h *Handler) GetSelfPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleResident)
	if !ok {
		return
	}
	h.paymentInfo(w, r, user.Login)
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	login, ok := loginParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	h.paymentInfo(w, r, login)
}

func (h *Handler) paymentInfo(w http.ResponseWriter, r *http.Request, login string) {
	info, err := h.Payments.Info(r.Context(), login)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (h *Handler) PayHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleResident)
	if !ok {
		return
	}
	var body paymentBody
	if !readJSON(w, r, &body) {
		return
	}
	if body.Sum < 0 {
		http.Error(w, "sum must not be negative", http.StatusBadRequest)
		return
	}
	if err := h.Payments.Pay(r.Context(), user.Login, body.Sum); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GuardEntryHandler(w http.ResponseWriter, r *http.Request) {
	h.guardMark(w, r, h.Guard.Entry)
}

func (h *Handler) GuardExitHandler(w http.ResponseWriter, r *http.Request) {
	h.guardMark(w, r, h.Guard.Exit)
}

func (h *Handler) guardMark(w http.ResponseWriter, r *http.Request, mark func(ctx context.Context, login string) error) {
	login, ok := loginParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.caller(w, r, models.RoleGuard); !ok {
		return
	}
	if err := mark(r.Context(), login); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetGuardHistoryHandler(w http.ResponseWriter, r *http.Request) {
	login, ok := loginParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	h.guardHistory(w, r, login)
}

func (h *Handler) GetSelfGuardHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleResident)
	if !ok {
		return
	}
	h.guardHistory(w, r, user.Login)
}

func (h *Handler) guardHistory(w http.ResponseWriter, r *http.Request, login string) {
	events, err := h.Guard.History(r.Context(), login)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, events)
}
