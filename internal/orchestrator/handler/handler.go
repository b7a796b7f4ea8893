// Package handler exposes the orchestrator over HTTP: the chat endpoint,
// artifact downloads, and the JWT-guarded back-office views of a session's
// audit trail and event log.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"greenlight/internal/artifact"
	"greenlight/internal/audit"
	"greenlight/internal/normalize"
	"greenlight/internal/orchestrator"
	"greenlight/internal/platform/metrics"
	"greenlight/internal/platform/middleware"
	"greenlight/internal/session"
	dErrors "greenlight/pkg/domain-errors"
	"greenlight/pkg/platform/httputil"
	"greenlight/pkg/platform/sentinel"
)

// Service defines the interface for message handling.
type Service interface {
	HandleMessage(ctx context.Context, sessionID, message string, form normalize.Form) (orchestrator.Reply, error)
}

// Handler handles the orchestrator endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	artifacts    artifact.Store
	auditLog     audit.Store
	events       session.EventStore
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new orchestrator Handler.
func New(
	service Service,
	artifacts artifact.Store,
	auditLog audit.Store,
	events session.EventStore,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		artifacts:    artifacts,
		auditLog:     auditLog,
		events:       events,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))

	router.Get("/api/health", h.handleHealth)
	router.Post("/api/chat", h.handleChat)
	router.Get("/files/{name}", h.handleArtifact)

	router.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		pr.Get("/api/sessions/{id}/audit", h.handleAuditTrail)
		pr.Get("/api/sessions/{id}/events", h.handleEvents)
	})

	r.Mount("/", router)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat accepts one conversation turn. Both JSON bodies and classic
// form posts are supported since different widgets submit differently.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, message, form, err := decodeChat(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid chat request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if sessionID == "" || message == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"session_id and message are required"))
		return
	}

	reply, err := h.service.HandleMessage(ctx, sessionID, message, form)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reply)
}

// chatFields are the form keys forwarded to normalization. desired_amount
// and tenure defaults are applied downstream when absent.
var chatFields = []string{
	"name", "mobile", "pan", "pan_tail", "pan_last4",
	"desired_amount", "tenure", "salary", "consent",
}

func decodeChat(r *http.Request) (sessionID, message string, form normalize.Form, err error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/json" {
		body, err := httputil.DecodeJSON[normalize.Form](r)
		if err != nil {
			return "", "", nil, err
		}
		form = make(normalize.Form)
		for _, key := range chatFields {
			if v, ok := body[key]; ok && v != nil {
				form[key] = v
			}
		}
		return normalize.String(body, "session_id"), normalize.String(body, "message"), form, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", nil, err
	}
	form = make(normalize.Form)
	for _, key := range chatFields {
		if v := r.PostForm.Get(key); v != "" {
			form[key] = v
		}
	}
	return r.PostForm.Get("session_id"), r.PostForm.Get("message"), form, nil
}

// handleArtifact serves a stored artifact (sanction letter or KFS record).
func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.artifacts.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "artifact not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "read artifact"))
		return
	}

	contentType := "application/octet-stream"
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		contentType = "application/json"
	case ".txt":
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleAuditTrail returns every audit record appended for a session.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	records, err := h.auditLog.ListBySession(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit records"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"records":    records,
	})
}

// handleEvents returns a session's event log in append order.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	events, err := h.events.ListBySession(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list session events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"events":     events,
	})
}
