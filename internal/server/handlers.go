// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/navigation"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/signal"
)

const commandTimeout = 5 * time.Second

var validate = validator.New()

// StackReader exposes the navigator's published stack.
type StackReader interface {
	Snapshot() navigation.Snapshot
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	cmdChan chan<- protocol.Command
	stack   StackReader
	matcher *matcher.Matcher
	domain  string
}

func NewHandlers(cmdChan chan<- protocol.Command, stack StackReader, m *matcher.Matcher, domain string) *Handlers {
	return &Handlers{cmdChan: cmdChan, stack: stack, matcher: m, domain: domain}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["context"] = err.Error()
	}
	writeJSON(w, status, body)
}

// acceptedResponse is returned for every command accepted by the navigator.
// Events answering the command carry the same request_id.
type acceptedResponse struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action,omitempty"`
}

func metadataFor(r *http.Request) protocol.Metadata {
	md := protocol.NewMetadata()
	if id := GetRequestID(r.Context()); id != "" {
		md.RequestID = id
	}
	return md
}

// dispatch hands cmd to the navigator. It fails when the navigator does not
// take the command within commandTimeout.
func (h *Handlers) dispatch(ctx context.Context, cmd protocol.Command) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	select {
	case h.cmdChan <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handlers) accept(w http.ResponseWriter, r *http.Request, cmd protocol.Command, action string) {
	if err := h.dispatch(r.Context(), cmd); err != nil {
		getLog().Warn().Err(err).Msg("Navigator did not accept command")
		writeError(w, http.StatusServiceUnavailable, "Navigator unavailable", err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{RequestID: cmd.GetBaseMessage().RequestID, Action: action})
}

// --- GET handlers (direct reads, no command channel) ---

// GetStack handles GET /api/v1/stack
func (h *Handlers) GetStack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stack.Snapshot())
}

type matchResponse struct {
	Routable bool         `json:"routable"`
	Route    *route.Route `json:"route,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Param    string       `json:"param,omitempty"`
}

// Match handles GET /api/v1/match?url=...&domain=...
//
// It runs the route matcher only; nothing is resolved or presented.
func (h *Handlers) Match(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required", nil)
		return
	}
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		domain = h.domain
	}

	rt, err := h.matcher.Match(rawURL, domain)
	if err != nil {
		resp := matchResponse{Reason: string(matcher.ReasonNoMatch)}
		var unroutable *matcher.Unroutable
		if errors.As(err, &unroutable) {
			resp.Reason = string(unroutable.Reason)
			resp.Param = unroutable.Param
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Routable: true, Route: &rt})
}

// --- POST handlers (commands) ---

// PostSignal handles POST /api/v1/signals
func (h *Handlers) PostSignal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	sig, err := signal.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid signal", err)
		return
	}

	action := signal.Name(signal.Classify(sig))
	h.accept(w, r, protocol.HandleSignalCommand{Metadata: metadataFor(r), Signal: sig}, action)
}

// navigateRequest is the JSON body for POST /api/v1/navigate. Exactly one of
// URL or Route should be set; Route wins when both are.
type navigateRequest struct {
	URL    string          `json:"url" validate:"required_without=Route,omitempty,max=4096"`
	Domain string          `json:"domain" validate:"omitempty,hostname_port|hostname"`
	Route  json.RawMessage `json:"route,omitempty"`
}

// Navigate handles POST /api/v1/navigate
func (h *Handlers) Navigate(w http.ResponseWriter, r *http.Request) {
	var body navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid navigate request", err)
		return
	}

	md := metadataFor(r)
	if len(body.Route) > 0 && string(body.Route) != "null" {
		var rt route.Route
		if err := json.Unmarshal(body.Route, &rt); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid route", err)
			return
		}
		h.accept(w, r, protocol.NavigateCommand{Metadata: md, Route: rt}, "apply_route")
		return
	}
	h.accept(w, r, protocol.RouteURLCommand{Metadata: md, URL: body.URL, Domain: body.Domain}, "apply_url")
}

// Back handles POST /api/v1/back
func (h *Handlers) Back(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, protocol.BackCommand{Metadata: metadataFor(r)}, "")
}

// ReturnToLanding handles POST /api/v1/landing
func (h *Handlers) ReturnToLanding(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, protocol.ReturnToLandingCommand{Metadata: metadataFor(r)}, "")
}

type connectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// SetConnectivity handles POST /api/v1/connectivity
func (h *Handlers) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var body connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusBadRequest, "online is required", err)
		return
	}
	h.accept(w, r, protocol.SetConnectivityCommand{Metadata: metadataFor(r), Online: *body.Online}, "")
}
