package service

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentType = "application/json"
	appTitle    = "Ingredient Matcher API"
)

type matchRequest struct {
	RawName *string `json:"raw_name"`
}

type reloadResponse struct {
	Status      string `json:"status"`
	Ingredients int    `json:"ingredients"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// HandlerConfig configures the HTTP surface of the service.
type HandlerConfig struct {
	// Token, when set, is required as a bearer token on /match and /reload.
	Token string
	// Timeout bounds each request. Zero disables the limit.
	Timeout time.Duration
}

// NewHandler exposes the service over HTTP:
//
//	GET  /        health check
//	POST /match   {"raw_name": "..."} -> {"ingredient_id": 1, "confidence": 0.857}
//	POST /reload  reload the canonical ingredients
func NewHandler(svc *Service, cfg HandlerConfig) http.Handler {
	h := &handler{svc: svc, token: cfg.Token}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.health)
	mux.HandleFunc("POST /match", h.authorized(h.match))
	mux.HandleFunc("POST /reload", h.authorized(h.reload))

	if cfg.Timeout > 0 {
		return http.TimeoutHandler(mux, cfg.Timeout, `{"detail":"request timed out"}`)
	}

	return mux
}

type handler struct {
	svc   *Service
	token string
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": appTitle})
}

func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	if req.RawName == nil {
		writeError(w, http.StatusUnprocessableEntity, "raw_name is required")
		return
	}

	resp, err := h.svc.Match(r.Context(), *req.RawName)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotLoaded):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.svc.logger.Warn("match request failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (h *handler) reload(w http.ResponseWriter, _ *http.Request) {
	store := h.svc.Store()
	if store == nil {
		writeError(w, http.StatusInternalServerError, ErrNotLoaded.Error())
		return
	}

	snap, err := store.Reload()
	if err != nil {
		h.svc.logger.Warn("reload request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Ingredients: snap.Len()})
}

func (h *handler) authorized(next http.HandlerFunc) http.HandlerFunc {
	if h.token == "" {
		return next
	}

	expected := []byte("Bearer " + h.token)
	return func(w http.ResponseWriter, r *http.Request) {
		got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
