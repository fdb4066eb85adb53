package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"dormitory/internal/apperr"
	"dormitory/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Ограничение размера тела запроса
const maxBodySize = 1048576

// Handler оборачивает сервисы для HTTP
type Handler struct {
	Services
	log logrus.FieldLogger
}

// NewHandler создает новый Handler
func NewHandler(s Services, log logrus.FieldLogger) *Handler {
	return &Handler{Services: s, log: log}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// caller находит пользователя по ?username= и проверяет его роль.
// При отказе ответ уже записан.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request, roles ...models.Role) (models.User, bool) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		http.Error(w, "Missing username parameter", http.StatusBadRequest)
		return models.User{}, false
	}

	user, err := h.Users.GetUser(r.Context(), username)
	if errors.Is(err, models.ErrNotFound) {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return models.User{}, false
	}
	if err != nil {
		h.writeError(w, r, err)
		return models.User{}, false
	}

	if len(roles) > 0 && !slices.Contains(roles, user.Role) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return models.User{}, false
	}
	return *user, true
}

// writeError переводит ошибку сервиса в статус ответа
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case apperr.KindBadRequest:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case apperr.KindForbidden:
		http.Error(w, err.Error(), http.StatusForbidden)
	case apperr.KindUnauthorized:
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

// readOptionalJSON как readJSON, но пустое тело допустимо и оставляет v без изменений.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func bidIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bidId"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid bidId", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
