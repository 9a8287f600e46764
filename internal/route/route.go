// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package route defines the immutable navigation intent passed between the
// matcher, the resolver and the navigation stack.
package route

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Route describes a navigation target. It is immutable after construction:
// maps are copied in and out, and Bind returns a new value.
type Route struct {
	kind        Kind
	category    Category
	pathParams  map[string]string
	queryParams map[string]string
	context     Context
	style       Style
	rawURI      string
}

// Option configures a Route at construction time.
type Option func(*Route)

func WithCategory(c Category) Option {
	return func(r *Route) { r.category = c }
}

func WithPathParams(p map[string]string) Option {
	return func(r *Route) { r.pathParams = copyParams(p) }
}

func WithQueryParams(q map[string]string) Option {
	return func(r *Route) { r.queryParams = copyParams(q) }
}

func WithContext(c Context) Option {
	return func(r *Route) { r.context = c }
}

func WithStyle(s Style) Option {
	return func(r *Route) { r.style = s }
}

func WithRawURI(uri string) Option {
	return func(r *Route) { r.rawURI = uri }
}

// New builds a route for kind. Category defaults to DEFAULT and style to
// FULLSCREEN.
func New(kind Kind, opts ...Option) Route {
	r := Route{
		kind:     kind,
		category: CategoryDefault,
		style:    StyleFullscreen,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Route) Kind() Kind         { return r.kind }
func (r Route) Category() Category { return r.category }
func (r Route) Context() Context   { return r.context }
func (r Route) Style() Style       { return r.style }
func (r Route) RawURI() string     { return r.rawURI }

// IsZero reports whether r was never constructed.
func (r Route) IsZero() bool { return r.kind == "" }

// PathParams returns a copy of the path parameters.
func (r Route) PathParams() map[string]string { return copyParams(r.pathParams) }

// QueryParams returns a copy of the query parameters.
func (r Route) QueryParams() map[string]string { return copyParams(r.queryParams) }

func (r Route) PathParam(key string) (string, bool) {
	v, ok := r.pathParams[key]
	return v, ok
}

func (r Route) QueryParam(key string) (string, bool) {
	v, ok := r.queryParams[key]
	return v, ok
}

// IntPathParam parses a numeric path parameter.
func (r Route) IntPathParam(key string) (int64, error) {
	v, ok := r.pathParams[key]
	if !ok {
		return 0, fmt.Errorf("missing path parameter %q", key)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("path parameter %q: %w", key, err)
	}
	return id, nil
}

// NeedsResolution reports whether the bound context is an unresolved ref.
func (r Route) NeedsResolution() bool {
	return r.context != nil && !r.context.Resolved()
}

// Bind returns a copy of r with its context replaced.
func (r Route) Bind(c Context) Route {
	out := r
	out.context = c
	return out
}

// WithKind returns a copy of r targeting a different screen kind.
func (r Route) WithKind(k Kind, c Category) Route {
	out := r
	out.kind = k
	out.category = c
	return out
}

// Equal is structural equality. Contexts compare by type, id and resolution
// state, not by object identity.
func (r Route) Equal(o Route) bool {
	return r.kind == o.kind &&
		r.category == o.category &&
		r.style == o.style &&
		r.rawURI == o.rawURI &&
		maps.Equal(r.pathParams, o.pathParams) &&
		maps.Equal(r.queryParams, o.queryParams) &&
		contextEqual(r.context, o.context)
}

func (r Route) String() string {
	return fmt.Sprintf("%s[%s ctx=%s path=%v]", r.kind, r.category, ContextString(r.context), r.pathParams)
}

func contextEqual(a, b Context) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && a.ID() == b.ID() && a.Resolved() == b.Resolved()
}

func copyParams(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}

type persistedContext struct {
	Type ContextType `json:"type"`
	ID   int64       `json:"id"`
}

type persistedRoute struct {
	Kind        Kind              `json:"kind"`
	Category    Category          `json:"category"`
	PathParams  map[string]string `json:"path_params,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	Context     *persistedContext `json:"context,omitempty"`
	Style       Style             `json:"style"`
	RawURI      string            `json:"raw_uri,omitempty"`
}

// MarshalJSON writes the persisted form. A resolved context is written as
// its ref so a restored route is re-fetched instead of going stale.
func (r Route) MarshalJSON() ([]byte, error) {
	p := persistedRoute{
		Kind:        r.kind,
		Category:    r.category,
		PathParams:  r.pathParams,
		QueryParams: r.queryParams,
		Style:       r.style,
		RawURI:      r.rawURI,
	}
	if r.context != nil {
		p.Context = &persistedContext{Type: r.context.Type(), ID: r.context.ID()}
	}
	return json.Marshal(p)
}

// UnmarshalJSON restores a route written by MarshalJSON.
func (r *Route) UnmarshalJSON(data []byte) error {
	var p persistedRoute
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("unknown screen kind %q", p.Kind)
	}
	if p.Category == "" {
		p.Category = CategoryDefault
	}
	if !p.Category.valid() {
		return fmt.Errorf("unknown route category %q", p.Category)
	}
	if p.Style == "" {
		p.Style = StyleFullscreen
	}
	if !p.Style.valid() {
		return fmt.Errorf("unknown presentation style %q", p.Style)
	}

	var ctx Context
	if p.Context != nil {
		c, err := NewRef(p.Context.Type, p.Context.ID)
		if err != nil {
			return err
		}
		ctx = c
	}

	*r = New(p.Kind,
		WithCategory(p.Category),
		WithPathParams(p.PathParams),
		WithQueryParams(p.QueryParams),
		WithContext(ctx),
		WithStyle(p.Style),
		WithRawURI(p.RawURI),
	)
	return nil
}
