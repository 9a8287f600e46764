// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package navigator hosts screens: it owns the navigation stack and turns
// commands from the host into stack changes, resolving route contexts on
// the way.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/messages"
	"github.com/noldarim/navlink/internal/navigation"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/resolver"
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/signal"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetNavigatorLogger()
		log = &l
	})
	return log
}

const (
	backAtRootExit = "exit"
	messageType    = "toast"
)

type pendingOutcome struct {
	metadata protocol.Metadata
	outcome  resolver.Outcome
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithMatcher replaces the default route table.
func WithMatcher(m *matcher.Matcher) Option {
	return func(n *Navigator) {
		n.matcher = m
	}
}

// WithResolverOptions passes options to the resolution coordinator.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(n *Navigator) {
		n.resolverOpts = append(n.resolverOpts, opts...)
	}
}

// Navigator is the single owner of the navigation stack. All mutation
// happens on the goroutine running Run; other goroutines talk to it through
// the command channel and read state through Snapshot.
type Navigator struct {
	cmdChan   <-chan protocol.Command
	eventChan chan<- protocol.Event

	session  config.SessionConfig
	nav      config.NavigationConfig
	landing  route.Route
	online   bool
	matcher  *matcher.Matcher
	catalog  *messages.Catalog
	stack    *navigation.Controller
	resolver *resolver.Coordinator

	resolverOpts []resolver.Option
	outcomes     chan pendingOutcome
	stopped      chan struct{}

	loading      atomic.Bool
	loadingShown bool
	snapshot     atomic.Pointer[navigation.Snapshot]
}

// New creates a navigator. backend serves context lookups and identity is
// the signed-in user; identity may be nil for signed-out sessions.
func New(cmdChan <-chan protocol.Command, eventChan chan<- protocol.Event, cfg *config.AppConfig, backend resolver.Backend, identity resolver.Identity, opts ...Option) (*Navigator, error) {
	landingKind, err := route.ParseKind(cfg.Navigation.LandingKind)
	if err != nil {
		return nil, fmt.Errorf("invalid landing kind: %w", err)
	}

	catalog, err := messages.New(cfg.Session.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	n := &Navigator{
		cmdChan:   cmdChan,
		eventChan: eventChan,
		session:   cfg.Session,
		nav:       cfg.Navigation,
		landing:   route.New(landingKind),
		online:    cfg.Session.Online,
		catalog:   catalog,
		stack:     navigation.NewController(navigation.WithLargeScreen(cfg.Session.LargeScreen)),
		outcomes:  make(chan pendingOutcome, 16),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.matcher == nil {
		n.matcher = matcher.New(nil)
	}

	resolverOpts := append([]resolver.Option{resolver.WithLoading(n.loading.Store)}, n.resolverOpts...)
	n.resolver = resolver.NewCoordinator(backend, identity, resolverOpts...)

	empty := n.stack.Snapshot()
	n.snapshot.Store(&empty)

	return n, nil
}

// Matcher returns the route matcher in use.
func (n *Navigator) Matcher() *matcher.Matcher {
	return n.matcher
}

// Snapshot returns the most recently published stack state. Safe to call
// from any goroutine.
func (n *Navigator) Snapshot() navigation.Snapshot {
	if s := n.snapshot.Load(); s != nil {
		return *s
	}
	return navigation.Snapshot{}
}

// Done is closed when Run returns.
func (n *Navigator) Done() <-chan struct{} {
	return n.stopped
}

// Run presents the landing screen and processes commands until ctx ends or
// the command channel is closed. It must be called once.
func (n *Navigator) Run(ctx context.Context) {
	getLog().Info().Str("landing", string(n.landing.Kind())).Msg("Navigator started")
	defer close(n.stopped)

	md := protocol.NewMetadata()
	entry := n.stack.Reset(n.landing)
	n.publish(ctx, md, entry, false, resolver.Outcome{})

	for {
		select {
		case <-ctx.Done():
			n.resolver.Cancel()
			getLog().Info().Msg("Navigator stopped (context cancelled)")
			return
		case cmd, ok := <-n.cmdChan:
			if !ok {
				n.resolver.Cancel()
				getLog().Info().Msg("Navigator stopped (command channel closed)")
				return
			}
			n.handleCommand(ctx, cmd)
		case p := <-n.outcomes:
			n.applyOutcome(ctx, p.metadata, p.outcome)
		}
		n.syncLoading(ctx)
	}
}

func (n *Navigator) handleCommand(ctx context.Context, cmd protocol.Command) {
	md := cmd.GetBaseMessage()

	switch c := cmd.(type) {
	case protocol.HandleSignalCommand:
		n.handleSignal(ctx, md, c.Signal)
	case protocol.RouteURLCommand:
		n.routeURL(ctx, md, c.URL, c.Domain)
	case protocol.NavigateCommand:
		n.navigate(ctx, md, c.Route)
	case protocol.BackCommand:
		n.back(ctx, md)
	case protocol.ReturnToLandingCommand:
		n.returnToLanding(ctx, md)
	case protocol.SetConnectivityCommand:
		if n.online != c.Online {
			getLog().Info().Bool("online", c.Online).Msg("Connectivity changed")
		}
		n.online = c.Online
	default:
		getLog().Warn().Str("type", fmt.Sprintf("%T", cmd)).Msg("Unknown command")
		n.emit(ctx, protocol.ErrorEvent{
			Metadata: md.Reply(),
			Message:  "Unknown command",
			Context:  fmt.Sprintf("%T", cmd),
		})
	}
}

func (n *Navigator) handleSignal(ctx context.Context, md protocol.Metadata, sig signal.Signal) {
	action := signal.Classify(sig)
	getLog().Debug().Str("action", signal.Name(action)).Msg("Classified signal")

	switch a := action.(type) {
	case signal.ApplyRoute:
		n.navigate(ctx, md, a.Route)
	case signal.ApplyURL:
		n.routeURL(ctx, md, a.URL, a.DomainHint)
	case signal.ShowMessage:
		n.emit(ctx, protocol.MessageEvent{Metadata: md.Reply(), Text: a.Text, Type: a.Type})
	}
}

func (n *Navigator) routeURL(ctx context.Context, md protocol.Metadata, rawURL, domainHint string) {
	if n.session.SignedIn() && n.foreignDomain(rawURL, domainHint) {
		getLog().Info().Str("url", rawURL).Str("hint", domainHint).Msg("Link belongs to another domain")
		n.showMessage(ctx, md, messages.DifferentDomain)
		n.returnToLanding(ctx, md)
		return
	}

	r, err := n.matcher.Match(rawURL, n.session.Domain)
	if err != nil {
		var unroutable *matcher.Unroutable
		reason := "unroutable"
		if errors.As(err, &unroutable) {
			reason = string(unroutable.Reason)
		}
		if !n.online {
			getLog().Info().Str("url", rawURL).Str("reason", reason).Msg("Offline, handing unroutable link to host")
			n.emit(ctx, protocol.ExternalLinkEvent{Metadata: md.Reply(), URL: rawURL, Reason: "offline"})
			return
		}
		getLog().Info().Str("url", rawURL).Str("reason", reason).Msg("Unroutable link, returning to landing")
		n.returnToLanding(ctx, md)
		return
	}

	n.navigate(ctx, md, r)
}

func (n *Navigator) foreignDomain(rawURL, domainHint string) bool {
	if host := matcher.HostOf(rawURL); host != "" && !matcher.SameDomain(host, n.session.Domain) {
		return true
	}
	return domainHint != "" && !matcher.SameDomain(domainHint, n.session.Domain)
}

func (n *Navigator) navigate(ctx context.Context, md protocol.Metadata, r route.Route) {
	if r.IsZero() {
		n.emit(ctx, protocol.ErrorEvent{Metadata: md.Reply(), Message: "Cannot navigate to an empty route"})
		return
	}

	if r.Category() == route.CategoryExternal {
		url := r.RawURI()
		if url == "" {
			url = r.String()
		}
		n.emit(ctx, protocol.ExternalLinkEvent{Metadata: md.Reply(), URL: url, Reason: "external"})
		return
	}

	job := n.resolver.Resolve(ctx, r)

	// Routes that need no lookup are presented before the next command.
	select {
	case out := <-job.Done():
		n.applyOutcome(ctx, md, out)
		return
	default:
	}

	go func() {
		select {
		case out := <-job.Done():
			select {
			case n.outcomes <- pendingOutcome{metadata: md, outcome: out}:
			case <-ctx.Done():
			case <-n.stopped:
			}
		case <-ctx.Done():
		case <-n.stopped:
		}
	}()
}

func (n *Navigator) applyOutcome(ctx context.Context, md protocol.Metadata, out resolver.Outcome) {
	if out.Status == resolver.StatusSuperseded || !n.resolver.IsCurrent(out.Seq) {
		getLog().Debug().Int64("seq", out.Seq).Msg("Dropping stale resolution outcome")
		return
	}

	switch out.Status {
	case resolver.StatusResolved:
		n.present(ctx, md, out)
	case resolver.StatusBlocked:
		n.showMessage(ctx, md, messages.FileLocked)
	case resolver.StatusFailed:
		if ctx.Err() != nil {
			return
		}
		getLog().Info().Err(out.Err).Str("failure", string(out.Failure)).Msg("Resolution failed")
		n.showMessage(ctx, md, messageFor(out.Failure))
	}
}

func (n *Navigator) present(ctx context.Context, md protocol.Metadata, out resolver.Outcome) {
	r := out.Route
	top, ok := n.stack.Top()

	var entry navigation.Entry
	replaced := false
	if ok && navigation.RootEligible(r.Kind()) && navigation.RootEligible(top.Kind) {
		entry = n.stack.ReplaceTop(r)
		replaced = true
	} else {
		entry = n.stack.Push(r)
	}

	getLog().Info().
		Str("kind", string(entry.Kind)).
		Str("context", route.ContextString(r.Context())).
		Bool("replaced", replaced).
		Int("depth", n.stack.Depth()).
		Msg("Presenting screen")

	n.publish(ctx, md, entry, replaced, out)
}

func (n *Navigator) back(ctx context.Context, md protocol.Metadata) {
	n.resolver.Cancel()

	if _, ok := n.stack.Pop(); ok {
		n.publishStack(ctx, md)
		return
	}
	if n.stack.Depth() == 1 && n.nav.BackAtRoot == backAtRootExit {
		getLog().Info().Msg("Back at root, requesting exit")
		n.emit(ctx, protocol.ExitRequestedEvent{Metadata: md.Reply()})
	}
}

func (n *Navigator) returnToLanding(ctx context.Context, md protocol.Metadata) {
	n.resolver.Cancel()

	landing := n.landing.Kind()
	snap := n.stack.Snapshot()
	top, ok := snap.Top()

	var entry navigation.Entry
	switch {
	case ok && snap.Depth() == 1 && top.Kind == landing:
		entry = top
	case ok && top.Kind != landing && snap.Entries[0].Kind == landing:
		n.stack.ClearToRoot(landing)
		entry, _ = n.stack.Top()
	default:
		entry = n.stack.Reset(n.landing)
	}
	n.publish(ctx, md, entry, false, resolver.Outcome{})
}

func (n *Navigator) publish(ctx context.Context, md protocol.Metadata, entry navigation.Entry, replaced bool, out resolver.Outcome) {
	n.emit(ctx, protocol.ScreenPresentedEvent{
		Metadata: md.Reply(),
		Entry:    entry,
		Replaced: replaced,
		File:     out.File,
		Download: out.Download,
	})
	n.publishStack(ctx, md)
}

func (n *Navigator) publishStack(ctx context.Context, md protocol.Metadata) {
	snap := n.stack.Snapshot()
	n.snapshot.Store(&snap)
	n.emit(ctx, protocol.StackChangedEvent{Metadata: md.Reply(), Snapshot: snap})
}

func (n *Navigator) showMessage(ctx context.Context, md protocol.Metadata, id messages.ID) {
	n.emit(ctx, protocol.MessageEvent{
		Metadata: md.Reply(),
		ID:       string(id),
		Text:     n.catalog.Text(id, map[string]any{"Domain": n.session.Domain}),
		Type:     messageType,
	})
}

func (n *Navigator) syncLoading(ctx context.Context) {
	visible := n.loading.Load()
	if visible == n.loadingShown {
		return
	}
	n.loadingShown = visible
	n.emit(ctx, protocol.LoadingEvent{Metadata: protocol.NewMetadata(), Visible: visible})
}

func (n *Navigator) emit(ctx context.Context, event protocol.Event) {
	select {
	case n.eventChan <- event:
	case <-ctx.Done():
	}
}

func messageFor(f resolver.Failure) messages.ID {
	switch f {
	case resolver.FailureCourseNotFound:
		return messages.CourseNotFound
	case resolver.FailureGroupNotFound:
		return messages.GroupNotFound
	case resolver.FailureFileNotFound:
		return messages.FileNotFound
	default:
		return messages.UnknownContext
	}
}
