package handlers

import (
	"net/http"

	"dormitory/models"
)

// GetResidentsHandler: проживающие с долгом и последним входом/выходом
func (h *Handler) GetResidentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	list, err := h.Staff.Residents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetStaffHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	list, err := h.Staff.Staff(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, list)
}

// FireHandler увольняет охранника
func (h *Handler) FireHandler(w http.ResponseWriter, r *http.Request) {
	login, ok := loginParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.caller(w, r, models.RoleManager); !ok {
		return
	}
	if err := h.Staff.Fire(r.Context(), login); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
