// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package matcher maps external URLs onto route values using an ordered,
// immutable pattern table.
package matcher

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/noldarim/navlink/internal/route"
	"github.com/samber/lo"
)

// Reason explains why a URL could not be routed.
type Reason string

const (
	ReasonNoMatch     Reason = "no_match"
	ReasonBadID       Reason = "bad_id"
	ReasonCrossDomain Reason = "cross_domain"
	ReasonMalformed   Reason = "malformed"
)

// Unroutable is returned by Match when a URL has no internal route. Query
// carries the parsed query parameters for fallback handling.
type Unroutable struct {
	Reason Reason
	RawURL string
	Query  map[string]string
	Param  string
}

func (u *Unroutable) Error() string {
	if u.Param != "" {
		return fmt.Sprintf("unroutable url %q: %s (%s)", u.RawURL, u.Reason, u.Param)
	}
	return fmt.Sprintf("unroutable url %q: %s", u.RawURL, u.Reason)
}

// Matcher matches URLs against a Table. It holds no mutable state.
type Matcher struct {
	table *Table
}

// New creates a matcher over table. A nil table selects DefaultTable.
func New(table *Table) *Matcher {
	if table == nil {
		table = DefaultTable()
	}
	return &Matcher{table: table}
}

// Table returns the table the matcher was built with.
func (m *Matcher) Table() *Table {
	return m.table
}

// Match maps rawURL to a route. knownDomain is the signed-in domain; when it
// is non-empty and the URL names a different host, the result is unroutable
// with ReasonCrossDomain. The error is always an *Unroutable.
func (m *Matcher) Match(rawURL, knownDomain string) (route.Route, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return route.Route{}, &Unroutable{Reason: ReasonMalformed, RawURL: rawURL}
	}

	query := firstValues(u.Query())

	if u.Host != "" && knownDomain != "" && !SameDomain(u.Host, knownDomain) {
		return route.Route{}, &Unroutable{Reason: ReasonCrossDomain, RawURL: rawURL, Query: query}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	for _, e := range m.table.entries {
		groups := e.re.FindStringSubmatch(path)
		if groups == nil {
			continue
		}
		if e.RequiredQuery != "" {
			if _, ok := query[e.RequiredQuery]; !ok {
				continue
			}
		}
		return e.build(groups[1:], query, rawURL)
	}

	return route.Route{}, &Unroutable{Reason: ReasonNoMatch, RawURL: rawURL, Query: query}
}

func (e entry) build(values []string, query map[string]string, rawURL string) (route.Route, error) {
	params := make(map[string]string, len(e.params))
	scope := ""
	for i, name := range e.params {
		v, err := url.PathUnescape(values[i])
		if err != nil {
			v = values[i]
		}
		if name == scopeGroup {
			scope = v
			continue
		}
		if _, numeric := numericParams[name]; numeric {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return route.Route{}, &Unroutable{Reason: ReasonBadID, RawURL: rawURL, Query: query, Param: name}
			}
		}
		params[name] = v
	}

	kind := e.Kind
	var ctx route.Context
	if e.Scoped {
		if id, ok := params[contextParam]; ok {
			delete(params, contextParam)
			n, _ := strconv.ParseInt(id, 10, 64)
			if scope == "groups" {
				params["groupId"] = id
				ctx = route.GroupRef{GroupID: n}
			} else {
				params["courseId"] = id
				ctx = route.CourseRef{CourseID: n}
			}
		}
		if scope == "groups" && e.GroupKind != "" {
			kind = e.GroupKind
		}
	}
	if e.UserContext {
		ctx = route.UserRef{}
	}

	return route.New(kind,
		route.WithCategory(e.Category),
		route.WithStyle(e.Style),
		route.WithPathParams(params),
		route.WithQueryParams(query),
		route.WithContext(ctx),
		route.WithRawURI(rawURL),
	), nil
}

// CanRouteInternally reports whether url resolves to an in-app screen.
// allowUnsupported controls whether the unsupported-feature catch-all counts.
func (m *Matcher) CanRouteInternally(rawURL, knownDomain string, allowUnsupported bool) bool {
	r, err := m.Match(rawURL, knownDomain)
	if err != nil {
		return false
	}
	if r.Category() == route.CategoryExternal {
		return false
	}
	return allowUnsupported || r.Kind() != route.KindUnsupportedFeature
}

// URLFor builds a URL for kind from the first plain pattern that produces it.
// ctx must be a course or group context for scoped patterns. domain may be
// empty, in which case only the path and query are returned.
func (m *Matcher) URLFor(kind route.Kind, ctx route.Context, params, query map[string]string, domain string) (string, error) {
	e, ok := lo.Find(m.table.entries, func(e entry) bool {
		return e.Kind == kind && e.RequiredQuery == "" && !strings.Contains(e.Path, "*") &&
			(!e.Scoped || (ctx != nil && ctx.Type() != route.ContextUser))
	})
	if !ok {
		return "", fmt.Errorf("no url pattern for kind %q", kind)
	}

	var b strings.Builder
	if e.Scoped {
		if ctx.Type() == route.ContextGroup {
			b.WriteString("/groups")
		} else {
			b.WriteString("/courses")
		}
	}
	for _, seg := range splitPath(e.Path) {
		b.WriteString("/")
		if !strings.HasPrefix(seg, ":") {
			b.WriteString(seg)
			continue
		}
		name := seg[1:]
		var v string
		if name == contextParam {
			v = strconv.FormatInt(ctx.ID(), 10)
		} else if pv, ok := params[name]; ok {
			v = pv
		} else {
			return "", fmt.Errorf("missing parameter %q for kind %q", name, kind)
		}
		b.WriteString(url.PathEscape(v))
	}
	path := b.String()
	if path == "" {
		path = "/"
	}

	out := path
	if domain != "" {
		host := hostOnly(domain)
		out = "https://" + host + path
	}
	if len(query) > 0 {
		keys := lo.Keys(query)
		sort.Strings(keys)
		vals := url.Values{}
		for _, k := range keys {
			vals.Set(k, query[k])
		}
		out += "?" + vals.Encode()
	}
	return out, nil
}

// SameDomain compares two hosts or domains ignoring case, scheme and port.
func SameDomain(a, b string) bool {
	return strings.EqualFold(hostOnly(a), hostOnly(b))
}

// HostOf returns the host of rawURL without port, or "" for relative URLs.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func hostOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return strings.ToLower(s)
}

func firstValues(v url.Values) map[string]string {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		} else {
			out[k] = ""
		}
	}
	return out
}
