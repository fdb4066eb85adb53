package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"dormitory/internal/bids"
	"dormitory/models"
)

// Общие поля тела заявки; данные типа лежат рядом на том же уровне
type bidBody struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachmentKeys"`
}

type commentBody struct {
	Comment string `json:"comment"`
}

// readBidRequest разбирает тело заявки типа P.
func readBidRequest[P models.Payload](w http.ResponseWriter, r *http.Request) (bids.Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return bids.Request{}, false
	}
	defer r.Body.Close()

	var base bidBody
	var payload P
	if err := json.Unmarshal(body, &base); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return bids.Request{}, false
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return bids.Request{}, false
	}
	return bids.Request{Text: base.Text, Attachments: base.Attachments, Payload: payload}, true
}

// CreateBidHandler обрабатывает POST /api/bids/<type>
func CreateBidHandler[P models.Payload](h *Handler, role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.caller(w, r, role)
		if !ok {
			return
		}
		req, ok := readBidRequest[P](w, r)
		if !ok {
			return
		}
		bid, err := h.Bids.Create(r.Context(), user, req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, bid)
	}
}

// EditBidHandler обрабатывает PUT /api/bids/<type>/{bidId}
func EditBidHandler[P models.Payload](h *Handler, role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID, ok := bidIDParam(w, r)
		if !ok {
			return
		}
		user, ok := h.caller(w, r, role)
		if !ok {
			return
		}
		req, ok := readBidRequest[P](w, r)
		if !ok {
			return
		}
		bid, err := h.Bids.Update(r.Context(), user, bidID, req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, bid)
	}
}

func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleNonResident, models.RoleResident)
	if !ok {
		return
	}
	list, err := h.Bids.SelfBids(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetOpenedTypesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleNonResident, models.RoleResident)
	if !ok {
		return
	}
	types, err := h.Bids.OpenTypes(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, types)
}

func (h *Handler) GetBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := bidIDParam(w, r)
	if !ok {
		return
	}
	user, ok := h.caller(w, r, models.RoleNonResident, models.RoleResident, models.RoleManager)
	if !ok {
		return
	}
	bid, err := h.Bids.Get(r.Context(), user, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, bid)
}

// GetInProcessBidsHandler: очередь менеджера
func (h *Handler) GetInProcessBidsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, models.RoleManager)
	if !ok {
		return
	}
	list, err := h.Bids.InProcess(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetPendingBidsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	list, err := h.Bids.Pending(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetArchivedBidsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	list, err := h.Bids.Archived(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, ok := bidIDParam(w, r)
	if !ok {
		return
	}
	user, ok := h.caller(w, r, models.RoleManager)
	if !ok {
		return
	}
	bid, err := h.Bids.Accept(r.Context(), user, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, bid)
}

func (h *Handler) DenyBidHandler(w http.ResponseWriter, r *http.Request) {
	h.commentDecision(w, r, h.Bids.Deny)
}

func (h *Handler) PendBidHandler(w http.ResponseWriter, r *http.Request) {
	h.commentDecision(w, r, h.Bids.Pend)
}

// commentDecision: тело {"comment": "..."} необязательно.
func (h *Handler) commentDecision(w http.ResponseWriter, r *http.Request,
	decide func(ctx context.Context, caller models.User, id int64, comment string) (*models.Bid, error)) {
	bidID, ok := bidIDParam(w, r)
	if !ok {
		return
	}
	user, ok := h.caller(w, r, models.RoleManager)
	if !ok {
		return
	}
	var body commentBody
	if !readOptionalJSON(w, r, &body) {
		return
	}
	bid, err := decide(r.Context(), user, bidID, body.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, bid)
}
