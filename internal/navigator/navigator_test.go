// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package navigator

import (
	"context"
	"testing"
	"time"

	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/messages"
	"github.com/noldarim/navlink/internal/navigation"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/resolver"
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/signal"
	"github.com/noldarim/navlink/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	nav     *Navigator
	backend *testutil.MockBackend
	cmds    chan protocol.Command
	events  *testutil.EventCapture
	cancel  context.CancelFunc
}

func testConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Session.Domain = testutil.TestDomain
	cfg.Session.UserID = testutil.SampleUser().ID
	cfg.Session.Online = true
	cfg.Navigation.LandingKind = string(route.KindDashboard)
	cfg.Navigation.BackAtRoot = "exit"
	return cfg
}

func start(t *testing.T, cfg *config.AppConfig) *harness {
	t.Helper()

	backend := &testutil.MockBackend{}
	cmds := make(chan protocol.Command, 16)
	events := make(chan protocol.Event, 64)

	nav, err := New(cmds, events, cfg, backend, resolver.StaticIdentity{User: testutil.SampleUser()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		nav.Run(ctx)
	}()

	h := &harness{nav: nav, backend: backend, cmds: cmds, events: testutil.NewEventCapture(events), cancel: cancel}
	t.Cleanup(func() {
		cancel()
		<-done
		close(events)
		<-h.events.Stopped()
		backend.AssertExpectations(t)
	})

	// Landing screen is always presented first.
	testutil.WaitForEventCount(t, h.events, "stack_changed", 1)
	return h
}

func (h *harness) send(cmd protocol.Command) {
	h.cmds <- cmd
}

func (h *harness) lastStack(t *testing.T, n int) navigation.Snapshot {
	t.Helper()
	got := testutil.WaitForEventCount(t, h.events, "stack_changed", n)
	return got[n-1].(protocol.StackChangedEvent).Snapshot
}

func kinds(s navigation.Snapshot) []route.Kind {
	out := make([]route.Kind, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Kind)
	}
	return out
}

func courseURL(path string) string {
	return "https://" + testutil.TestDomain + path
}

func TestNew_InvalidLandingKind(t *testing.T) {
	cfg := testConfig()
	cfg.Navigation.LandingKind = "nowhere"
	_, err := New(nil, nil, cfg, &testutil.MockBackend{}, nil)
	assert.Error(t, err)
}

func TestRun_PresentsLanding(t *testing.T) {
	h := start(t, testConfig())

	presented := testutil.WaitForEvent[protocol.ScreenPresentedEvent](t, h.events, "screen_presented")
	assert.Equal(t, route.KindDashboard, presented.Entry.Kind)
	assert.False(t, presented.Replaced)

	snap := h.nav.Snapshot()
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
	assert.Equal(t, navigation.TabHome, snap.Tab)
	assert.True(t, snap.ChromeVisible)
}

func TestRouteURL_CoursePushesAfterResolution(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(42)).Return(testutil.SampleCourse(42), nil).Once()

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/courses/42/assignments")})

	snap := h.lastStack(t, 2)
	assert.Equal(t, []route.Kind{route.KindDashboard, route.KindAssignmentList}, kinds(snap))

	top, ok := snap.Top()
	require.True(t, ok)
	require.NotNil(t, top.Route.Context())
	assert.True(t, top.Route.Context().Resolved())
	assert.Equal(t, int64(42), top.Route.Context().ID())

	loading := testutil.WaitForEventCount(t, h.events, "loading", 2)
	assert.True(t, loading[0].(protocol.LoadingEvent).Visible)
	assert.False(t, loading[1].(protocol.LoadingEvent).Visible)
}

func TestRouteURL_EventsReplyToCommand(t *testing.T) {
	h := start(t, testConfig())
	md := protocol.NewMetadata()

	h.send(protocol.RouteURLCommand{Metadata: md, URL: courseURL("/calendar")})

	snap := h.lastStack(t, 2)
	assert.Equal(t, []route.Kind{route.KindCalendar}, kinds(snap))

	got := testutil.WaitForEventCount(t, h.events, "stack_changed", 2)
	reply := got[1].GetMetadata()
	assert.Equal(t, md.RequestID, reply.RequestID)
	assert.NotEqual(t, md.IdempotencyKey, reply.IdempotencyKey)
}

func TestRouteURL_CrossDomainShowsMessageAndReturnsToLanding(t *testing.T) {
	h := start(t, testConfig())

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: "https://other.example.org/courses/42"})

	msg := testutil.WaitForEvent[protocol.MessageEvent](t, h.events, "message")
	assert.Equal(t, string(messages.DifferentDomain), msg.ID)
	assert.Contains(t, msg.Text, testutil.TestDomain)

	snap := h.lastStack(t, 2)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
}

func TestRouteURL_DomainHintMismatch(t *testing.T) {
	h := start(t, testConfig())

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: "/courses/42", Domain: "other.example.org"})

	msg := testutil.WaitForEvent[protocol.MessageEvent](t, h.events, "message")
	assert.Equal(t, string(messages.DifferentDomain), msg.ID)
}

func TestRouteURL_SignedOutSkipsDomainCheck(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Domain = ""
	h := start(t, cfg)

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: "https://other.example.org/calendar"})

	snap := h.lastStack(t, 2)
	assert.Equal(t, []route.Kind{route.KindCalendar}, kinds(snap))
	assert.Empty(t, h.events.OfType("message"))
}

func TestRouteURL_UnroutableReturnsToLanding(t *testing.T) {
	h := start(t, testConfig())
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/calendar")})
	h.lastStack(t, 2)

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/nothing/here")})

	snap := h.lastStack(t, 3)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
	assert.Empty(t, h.events.OfType("external_link"))
}

func TestRouteURL_OfflineHandsUnroutableToHost(t *testing.T) {
	h := start(t, testConfig())
	h.send(protocol.SetConnectivityCommand{Metadata: protocol.NewMetadata(), Online: false})

	url := courseURL("/nothing/here")
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: url})

	ext := testutil.WaitForEvent[protocol.ExternalLinkEvent](t, h.events, "external_link")
	assert.Equal(t, url, ext.URL)
	assert.Equal(t, "offline", ext.Reason)
	assert.Len(t, h.events.OfType("stack_changed"), 1)
}

func TestRouteURL_LoginIsExternal(t *testing.T) {
	h := start(t, testConfig())

	url := courseURL("/login/saml")
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: url})

	ext := testutil.WaitForEvent[protocol.ExternalLinkEvent](t, h.events, "external_link")
	assert.Equal(t, url, ext.URL)
	assert.Equal(t, "external", ext.Reason)
}

func TestNavigate_CourseNotFoundShowsMessage(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(404)).Return(nil, resolver.ErrNotFound).Once()

	r := route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 404}))
	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: r})

	msg := testutil.WaitForEvent[protocol.MessageEvent](t, h.events, "message")
	assert.Equal(t, string(messages.CourseNotFound), msg.ID)
	assert.Equal(t, "toast", msg.Type)
	assert.Equal(t, 1, h.nav.Snapshot().Depth())
}

func TestNavigate_LockedFileShowsMessage(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchFileMetadata", mock.Anything, int64(9)).Return(testutil.LockedFile(9), nil).Once()

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/courses/42/files/9")})

	msg := testutil.WaitForEvent[protocol.MessageEvent](t, h.events, "message")
	assert.Equal(t, string(messages.FileLocked), msg.ID)
	assert.Equal(t, 1, h.nav.Snapshot().Depth())
}

func TestNavigate_FileCarriesMetadata(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(42)).Return(testutil.SampleCourse(42), nil).Once()
	h.backend.On("FetchFileMetadata", mock.Anything, int64(7)).Return(testutil.SampleFile(7), nil).Once()

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/courses/42/files/7")})

	got := testutil.WaitForEventCount(t, h.events, "screen_presented", 2)
	presented := got[1].(protocol.ScreenPresentedEvent)
	assert.Equal(t, route.KindFile, presented.Entry.Kind)
	require.NotNil(t, presented.File)
	assert.Equal(t, "syllabus.pdf", presented.File.DisplayName)
}

func TestNavigate_NewerRequestSupersedesOlder(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(1)).
		Run(testutil.BlockUntilCancelled).
		Return(nil, context.Canceled).Maybe()

	h.send(protocol.NavigateCommand{
		Metadata: protocol.NewMetadata(),
		Route:    route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 1})),
	})
	testutil.WaitForEventCount(t, h.events, "loading", 1)

	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindInbox)})

	snap := h.lastStack(t, 2)
	assert.Equal(t, []route.Kind{route.KindInbox}, kinds(snap))

	// The cancelled course lookup must never surface.
	testutil.WaitForEventCount(t, h.events, "loading", 2)
	assert.Empty(t, h.events.OfType("message"))
	assert.Len(t, h.events.OfType("stack_changed"), 2)
}

func TestNavigate_LateResultOfSupersededJobIsDropped(t *testing.T) {
	h := start(t, testConfig())

	fetching := make(chan struct{})
	release := make(chan struct{})
	h.backend.On("FetchCourse", mock.Anything, int64(1)).
		Run(func(mock.Arguments) {
			close(fetching)
			<-release
		}).
		Return(testutil.SampleCourse(1), nil).Once()
	h.backend.On("FetchCourse", mock.Anything, int64(2)).Return(testutil.SampleCourse(2), nil).Once()

	h.send(protocol.NavigateCommand{
		Metadata: protocol.NewMetadata(),
		Route:    route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 1})),
	})
	<-fetching

	h.send(protocol.NavigateCommand{
		Metadata: protocol.NewMetadata(),
		Route:    route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 2})),
	})
	snap := h.lastStack(t, 2)
	top, ok := snap.Top()
	require.True(t, ok)
	assert.Equal(t, int64(2), top.Route.Context().ID())

	// The first lookup now succeeds, after it was superseded.
	close(release)

	assert.Never(t, func() bool {
		return len(h.events.OfType("stack_changed")) > 2
	}, 300*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, []route.Kind{route.KindDashboard, route.KindGrades}, kinds(h.nav.Snapshot()))
	top, _ = h.nav.Snapshot().Top()
	assert.Equal(t, int64(2), top.Route.Context().ID())
	assert.Empty(t, h.events.OfType("message"))
}

func TestNavigate_UserContextSkipsLoading(t *testing.T) {
	h := start(t, testConfig())

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/files")})

	snap := h.lastStack(t, 2)
	top, ok := snap.Top()
	require.True(t, ok)
	require.NotNil(t, top.Route.Context())
	assert.True(t, top.Route.Context().Resolved())
	assert.Empty(t, h.events.OfType("loading"))
}

func TestNavigate_TabSwitchReplacesRoot(t *testing.T) {
	h := start(t, testConfig())

	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindCalendar)})
	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindTodoList)})

	got := testutil.WaitForEventCount(t, h.events, "screen_presented", 3)
	assert.True(t, got[1].(protocol.ScreenPresentedEvent).Replaced)
	assert.True(t, got[2].(protocol.ScreenPresentedEvent).Replaced)

	snap := h.lastStack(t, 3)
	assert.Equal(t, []route.Kind{route.KindTodoList}, kinds(snap))
	assert.Equal(t, navigation.TabTodo, snap.Tab)
}

func TestNavigate_ZeroRoute(t *testing.T) {
	h := start(t, testConfig())
	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata()})

	testutil.WaitForEvent[protocol.ErrorEvent](t, h.events, "error")
}

func TestBack_PopsAndExitsAtRoot(t *testing.T) {
	h := start(t, testConfig())
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/conversations/3")})
	h.lastStack(t, 2)

	h.send(protocol.BackCommand{Metadata: protocol.NewMetadata()})
	snap := h.lastStack(t, 3)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))

	h.send(protocol.BackCommand{Metadata: protocol.NewMetadata()})
	testutil.WaitForEvent[protocol.ExitRequestedEvent](t, h.events, "exit_requested")
}

func TestBack_AtRootWithStayPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Navigation.BackAtRoot = "stay"
	h := start(t, cfg)

	h.send(protocol.BackCommand{Metadata: protocol.NewMetadata()})
	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindInbox)})

	h.lastStack(t, 2)
	assert.Empty(t, h.events.OfType("exit_requested"))
}

func TestBack_CancelsInFlightResolution(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(1)).
		Run(testutil.BlockUntilCancelled).
		Return(nil, context.Canceled).Maybe()

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/conversations/3")})
	h.lastStack(t, 2)

	h.send(protocol.NavigateCommand{
		Metadata: protocol.NewMetadata(),
		Route:    route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 1})),
	})
	testutil.WaitForEventCount(t, h.events, "loading", 1)

	h.send(protocol.BackCommand{Metadata: protocol.NewMetadata()})

	snap := h.lastStack(t, 3)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
	loading := testutil.WaitForEventCount(t, h.events, "loading", 2)
	assert.False(t, loading[1].(protocol.LoadingEvent).Visible)
	assert.Empty(t, h.events.OfType("message"))
}

func TestReturnToLanding_ClearsStack(t *testing.T) {
	h := start(t, testConfig())
	h.backend.On("FetchCourse", mock.Anything, int64(42)).Return(testutil.SampleCourse(42), nil)

	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/courses/42")})
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/courses/42/grades")})
	h.lastStack(t, 3)

	h.send(protocol.ReturnToLandingCommand{Metadata: protocol.NewMetadata()})

	snap := h.lastStack(t, 4)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
	assert.Equal(t, snap, h.nav.Snapshot())
}

func TestReturnToLanding_LandingAlsoOnTop(t *testing.T) {
	h := start(t, testConfig())

	h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindSyllabus)})
	h.send(protocol.RouteURLCommand{Metadata: protocol.NewMetadata(), URL: courseURL("/")})
	snap := h.lastStack(t, 3)
	require.Equal(t, []route.Kind{route.KindDashboard, route.KindSyllabus, route.KindDashboard}, kinds(snap))

	h.send(protocol.ReturnToLandingCommand{Metadata: protocol.NewMetadata()})

	snap = h.lastStack(t, 4)
	assert.Equal(t, []route.Kind{route.KindDashboard}, kinds(snap))
	assert.True(t, snap.ChromeVisible)
}

func TestRun_DoneAfterCommandChannelCloses(t *testing.T) {
	backend := &testutil.MockBackend{}
	backend.On("FetchCourse", mock.Anything, int64(1)).
		Run(testutil.BlockUntilCancelled).
		Return(nil, context.Canceled).Maybe()

	cmds := make(chan protocol.Command, 1)
	events := make(chan protocol.Event, 64)
	nav, err := New(cmds, events, testConfig(), backend, resolver.StaticIdentity{User: testutil.SampleUser()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go nav.Run(ctx)

	cmds <- protocol.NavigateCommand{
		Metadata: protocol.NewMetadata(),
		Route:    route.New(route.KindGrades, route.WithContext(route.CourseRef{CourseID: 1})),
	}
	close(cmds)

	select {
	case <-nav.Done():
	case <-time.After(testutil.DefaultWait):
		t.Fatal("navigator did not stop after its command channel closed")
	}
	backend.AssertExpectations(t)
}

func TestHandleSignal(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		h := start(t, testConfig())
		h.send(protocol.HandleSignalCommand{
			Metadata: protocol.NewMetadata(),
			Signal:   signal.Signal{Message: "Saved", MessageType: "success"},
		})

		msg := testutil.WaitForEvent[protocol.MessageEvent](t, h.events, "message")
		assert.Equal(t, "Saved", msg.Text)
		assert.Equal(t, "success", msg.Type)
		assert.Empty(t, msg.ID)
	})

	t.Run("push url", func(t *testing.T) {
		h := start(t, testConfig())
		h.send(protocol.HandleSignalCommand{
			Metadata: protocol.NewMetadata(),
			Signal: signal.Signal{Push: true, PushPayload: &signal.PushPayload{
				HTMLURL: courseURL("/conversations"),
			}},
		})

		snap := h.lastStack(t, 2)
		assert.Equal(t, []route.Kind{route.KindInbox}, kinds(snap))
	})

	t.Run("route", func(t *testing.T) {
		cfg := testConfig()
		cfg.Session.LargeScreen = true
		h := start(t, cfg)
		raw, err := route.New(route.KindProfileSettings, route.WithStyle(route.StyleDialog)).MarshalJSON()
		require.NoError(t, err)

		h.send(protocol.HandleSignalCommand{Metadata: protocol.NewMetadata(), Signal: signal.Signal{Route: raw}})

		snap := h.lastStack(t, 2)
		top, _ := snap.Top()
		assert.Equal(t, route.KindProfileSettings, top.Kind)
		assert.True(t, top.Modal)
	})

	t.Run("ignored", func(t *testing.T) {
		h := start(t, testConfig())
		h.send(protocol.HandleSignalCommand{Metadata: protocol.NewMetadata(), Signal: signal.Signal{Message: "  "}})
		h.send(protocol.NavigateCommand{Metadata: protocol.NewMetadata(), Route: route.New(route.KindInbox)})

		h.lastStack(t, 2)
		assert.Empty(t, h.events.OfType("message"))
	})
}

type bogusCommand struct {
	protocol.Metadata
}

func (c bogusCommand) GetBaseMessage() protocol.Metadata { return c.Metadata }

func TestHandleCommand_Unknown(t *testing.T) {
	h := start(t, testConfig())
	h.send(bogusCommand{Metadata: protocol.NewMetadata()})

	e := testutil.WaitForEvent[protocol.ErrorEvent](t, h.events, "error")
	assert.Equal(t, "Unknown command", e.Message)
}
