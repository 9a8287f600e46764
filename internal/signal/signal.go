// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package signal decides what an incoming cross-app signal asks the
// navigator to do.
package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/route"
	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetSignalLogger()
		log = &l
	})
	return log
}

// Signal is an externally supplied navigation trigger. Field names follow
// the extras keys used by notification and bookmark launchers.
type Signal struct {
	Route       json.RawMessage `json:"route,omitempty"`
	Message     string          `json:"message,omitempty"`
	MessageType string          `json:"messageType,omitempty"`
	Bookmark    bool            `json:"bookmark,omitempty"`
	URL         string          `json:"url,omitempty"`
	Push        bool            `json:"push,omitempty"`
	PushPayload *PushPayload    `json:"push_payload,omitempty"`
	Domain      string          `json:"domain,omitempty"`
}

// PushPayload is the notification body wrapped by a push signal.
type PushPayload struct {
	HTMLURL          string `json:"html_url"`
	NotificationType string `json:"notification_type,omitempty"`
	UserID           string `json:"user_id,omitempty"`
}

// Parse decodes a JSON signal.
func Parse(data []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(data, &s); err != nil {
		return Signal{}, fmt.Errorf("failed to decode signal: %w", err)
	}
	return s, nil
}

// Action is the outcome of classification.
type Action interface {
	isAction()
}

// ApplyRoute carries an explicit route to present.
type ApplyRoute struct {
	Route route.Route
}

// ApplyURL carries a URL for the matcher. DomainHint may be empty.
type ApplyURL struct {
	URL        string
	DomainHint string
}

// ShowMessage asks the host to display text.
type ShowMessage struct {
	Text string
	Type string
}

// Ignore means the signal carries nothing actionable.
type Ignore struct{}

func (ApplyRoute) isAction()  {}
func (ApplyURL) isAction()    {}
func (ShowMessage) isAction() {}
func (Ignore) isAction()      {}

// Name returns a short label for logs and events.
func Name(a Action) string {
	switch a.(type) {
	case ApplyRoute:
		return "apply_route"
	case ApplyURL:
		return "apply_url"
	case ShowMessage:
		return "show_message"
	default:
		return "ignore"
	}
}

// Classify picks the action for s. The first rule that applies wins:
// explicit route, message, bookmark or URL field, push payload URL, ignore.
// A route payload that does not decode falls through to the next rule.
func Classify(s Signal) Action {
	if hasPayload(s.Route) {
		var r route.Route
		if err := json.Unmarshal(s.Route, &r); err != nil {
			getLog().Warn().Err(err).Msg("Discarding undecodable route payload")
		} else {
			return ApplyRoute{Route: r}
		}
	}

	if strings.TrimSpace(s.Message) != "" {
		return ShowMessage{Text: s.Message, Type: s.MessageType}
	}

	if u := strings.TrimSpace(s.URL); u != "" {
		return ApplyURL{URL: u, DomainHint: s.Domain}
	}
	if s.Bookmark {
		getLog().Debug().Msg("Bookmark signal without url")
	}

	if s.Push && s.PushPayload != nil {
		if u := strings.TrimSpace(s.PushPayload.HTMLURL); u != "" {
			return ApplyURL{URL: u, DomainHint: s.Domain}
		}
		getLog().Debug().Str("notification_type", s.PushPayload.NotificationType).Msg("Push signal without url")
	}

	return Ignore{}
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
