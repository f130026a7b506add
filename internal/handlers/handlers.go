// Package handlers contains the HTTP API of the wallet daemon
//
// - Sending tokens
// - Page and send state
// - Active toasts
// - Account and delegate configuration
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"wallet/internal/config"
	"wallet/internal/form"
	"wallet/internal/models"
	"wallet/internal/services"
)

type SendService interface {
	SendAsync(ctx context.Context, to string, value uint64) (<-chan services.Result, error)
	Sending() bool
}

type ToastSource interface {
	Active() ([]models.Toast, error)
}

type PageSource interface {
	Current() string
}

type RefreshCounter interface {
	Value() int64
}

type ConfigSource interface {
	Current() *config.Config
}

type HandlerDeps struct {
	Sender    SendService
	Toasts    ToastSource
	Pages     PageSource
	Refreshes RefreshCounter
	Config    ConfigSource
}

type Handler struct {
	// lifetime bounds sends started by requests; they outlive the request itself.
	lifetime context.Context
	deps     HandlerDeps
	logger   *slog.Logger
}

func NewHandler(lifetime context.Context, deps HandlerDeps, logger *slog.Logger) *Handler {
	return &Handler{
		lifetime: lifetime,
		deps:     deps,
		logger:   logger,
	}
}

// respondJSON writes payload as JSON with the given status.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes the standard error body.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// HandleSend validates the form and starts a send. The outcome is reported
// through toasts.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string      `json:"to"`
		Tokens json.Number `json:"tokens"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f := form.New()
	f.SetRecipient(req.To)
	f.SetTokens(req.Tokens.String())
	to, tokens, err := f.Validate()
	if err != nil {
		h.handleError(w, err)
		return
	}

	if _, err := h.deps.Sender.SendAsync(h.lifetime, to, tokens); err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "sending"})
}

type stateResponse struct {
	Page      string `json:"page"`
	Sending   bool   `json:"sending"`
	Refreshes int64  `json:"refreshes"`
}

// HandleGetState returns the current page and whether a send is in flight.
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, stateResponse{
		Page:      h.deps.Pages.Current(),
		Sending:   h.deps.Sender.Sending(),
		Refreshes: h.deps.Refreshes.Value(),
	})
}

type toastResponse struct {
	ID         string          `json:"id"`
	Message    string          `json:"message"`
	DurationMs int64           `json:"duration"`
	Position   models.Position `json:"position"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HandleGetToasts returns the toasts currently displayed.
func (h *Handler) HandleGetToasts(w http.ResponseWriter, r *http.Request) {
	toasts, err := h.deps.Toasts.Active()
	if err != nil {
		h.handleError(w, err)
		return
	}

	resp := make([]toastResponse, 0, len(toasts))
	for _, t := range toasts {
		resp = append(resp, toastResponse{
			ID:         t.ID,
			Message:    t.Message,
			DurationMs: t.Duration.Milliseconds(),
			Position:   t.Position,
			CreatedAt:  t.CreatedAt,
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

type configResponse struct {
	Account   string        `json:"account"`
	Delegates []models.Node `json:"delegates"`
}

// HandleGetConfig returns the active account address and delegates. The
// private key never leaves the process.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.deps.Config.Current()
	delegates := cfg.Delegates
	if delegates == nil {
		delegates = []models.Node{}
	}
	h.respondJSON(w, http.StatusOK, configResponse{
		Account:   cfg.DefaultAccount.Address,
		Delegates: delegates,
	})
}

// handleError maps errors to responses.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, form.ErrRecipientRequired),
		errors.Is(err, form.ErrInvalidRecipient),
		errors.Is(err, form.ErrAmountRequired),
		errors.Is(err, form.ErrInvalidAmount):
		h.respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrSendInProgress):
		h.respondError(w, http.StatusConflict, err.Error())

	default:
		h.logger.Error("internal error", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// Mapping:
// - Form errors → 400 Bad Request
// - Send in flight → 409 Conflict
// - Anything else → 500 Internal Server Error

// Request body:
// {
//   "to": "40 hex characters",
//   "tokens": positive integer
// }
