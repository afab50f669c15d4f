package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wayfarer-ai/wayfarer/internal/port/profile"
	"github.com/wayfarer-ai/wayfarer/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Conversations *service.ConversationService
	Profiles      profile.AdminStore // nil disables the profile API
}

type turnRequest struct {
	UserText string `json:"user_text"`
	Identity string `json:"identity,omitempty"`
}

type confirmRequest struct {
	Identity string `json:"identity,omitempty"`
}

// HandleTurn handles POST /api/v1/sessions/{id}/turns
func (h *Handlers) HandleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "id")
	req, ok := readJSON[turnRequest](w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.UserText) == "" {
		writeError(w, http.StatusBadRequest, "user_text is required")
		return
	}

	res, err := h.Conversations.HandleTurn(r.Context(), sessionID, req.UserText, req.Identity)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ConfirmSession handles POST /api/v1/sessions/{id}/confirm. The body is
// optional; an empty one confirms anonymously.
func (h *Handlers) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "id")

	var req confirmRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Conversations.Confirm(r.Context(), sessionID, req.Identity)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.Conversations.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetProfile handles GET /api/v1/profiles/{id}
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	if h.Profiles == nil {
		writeError(w, http.StatusNotImplemented, "profile store not configured")
		return
	}
	p, err := h.Profiles.Lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpsertProfile handles PUT /api/v1/profiles/{id}. The URL parameter is
// authoritative for the customer ID.
func (h *Handlers) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	if h.Profiles == nil {
		writeError(w, http.StatusNotImplemented, "profile store not configured")
		return
	}
	p, ok := readJSON[profile.Profile](w, r)
	if !ok {
		return
	}
	p.CustomerID = urlParam(r, "id")
	if p.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customer id is required")
		return
	}
	if err := h.Profiles.UpsertProfile(r.Context(), &p); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
