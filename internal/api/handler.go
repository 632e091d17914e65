package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/autosettings/internal/redact"
	"github.com/eugenenazirov/autosettings/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes the applied settings over HTTP.
type Handler struct {
	storage     storage.Storage
	projectRoot string

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithProjectRoot reports root alongside the settings.
func WithProjectRoot(root string) HandlerOption {
	return func(h *Handler) {
		h.projectRoot = root
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_ = r
	current, err := h.storage.Settings()
	if err != nil {
		writeStorageError(w, err)
		return
	}

	resp := settingsResponse{
		ProjectRoot:  h.projectRoot,
		Settings:     redact.Settings(current),
		ConfiguredAt: h.storage.ConfiguredAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	value, ok, err := h.storage.Value(name)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown setting", "no setting named "+name)
		return
	}

	resp := settingResponse{
		Name:  name,
		Value: redact.Value(name, value),
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type settingsResponse struct {
	ProjectRoot  string         `json:"projectRoot,omitempty"`
	Settings     map[string]any `json:"settings"`
	ConfiguredAt time.Time      `json:"configuredAt"`
}

type settingResponse struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "Not configured", err.Error())
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
