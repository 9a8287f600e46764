// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/noldarim/navlink/internal/config"
	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/navigation"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStack struct {
	snap navigation.Snapshot
}

func (f fixedStack) Snapshot() navigation.Snapshot { return f.snap }

type testServer struct {
	srv    *Server
	cmds   chan protocol.Command
	events chan protocol.Event
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Domain = testutil.TestDomain

	ctrl := navigation.NewController()
	ctrl.Reset(route.New(route.KindDashboard))

	cmds := make(chan protocol.Command, 8)
	events := make(chan protocol.Event, 8)
	srv := New(cfg, cmds, events, fixedStack{snap: ctrl.Snapshot()}, matcher.New(nil))
	return &testServer{srv: srv, cmds: cmds, events: events}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) command(t *testing.T) protocol.Command {
	t.Helper()
	select {
	case cmd := <-ts.cmds:
		return cmd
	case <-time.After(testutil.DefaultWait):
		t.Fatal("no command dispatched")
		return nil
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNavigate_URL(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/navigate", `{"url":"/courses/42/grades","domain":"school.example.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[acceptedResponse](t, rec)
	assert.Equal(t, "apply_url", resp.Action)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)

	cmd, ok := ts.command(t).(protocol.RouteURLCommand)
	require.True(t, ok)
	assert.Equal(t, "/courses/42/grades", cmd.URL)
	assert.Equal(t, "school.example.com", cmd.Domain)
	assert.Equal(t, resp.RequestID, cmd.RequestID)
}

func TestNavigate_Route(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/navigate", `{"route":{"kind":"inbox"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	cmd, ok := ts.command(t).(protocol.NavigateCommand)
	require.True(t, ok)
	assert.Equal(t, route.KindInbox, cmd.Route.Kind())
}

func TestNavigate_Invalid(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"url":`},
		{name: "neither url nor route", body: `{}`},
		{name: "bad domain", body: `{"url":"/calendar","domain":"not a host"}`},
		{name: "bad route", body: `{"route":{"kind":"nowhere"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/navigate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, ts.cmds)
}

func TestPostSignal(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/signals", `{"message":"Saved","messageType":"success"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "show_message", decode[acceptedResponse](t, rec).Action)

	cmd, ok := ts.command(t).(protocol.HandleSignalCommand)
	require.True(t, ok)
	assert.Equal(t, "Saved", cmd.Signal.Message)

	rec = ts.do(t, http.MethodPost, "/api/v1/signals", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimpleCommands(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/v1/back", "").Code)
	assert.IsType(t, protocol.BackCommand{}, ts.command(t))

	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/v1/landing", "").Code)
	assert.IsType(t, protocol.ReturnToLandingCommand{}, ts.command(t))

	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/v1/connectivity", `{"online":false}`).Code)
	cmd, ok := ts.command(t).(protocol.SetConnectivityCommand)
	require.True(t, ok)
	assert.False(t, cmd.Online)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/connectivity", `{}`).Code)
}

func TestCommand_NavigatorUnavailable(t *testing.T) {
	cfg := config.Default()
	cmds := make(chan protocol.Command) // nobody reads
	srv := New(cfg, cmds, nil, fixedStack{}, matcher.New(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/back", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	cfg := config.Default()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("navlink_resolutions_total 1\n"))
	})

	withMetrics := New(cfg, nil, nil, fixedStack{}, matcher.New(nil), WithMetrics(metrics))
	rec := httptest.NewRecorder()
	withMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "navlink_resolutions_total")

	without := New(cfg, nil, nil, fixedStack{}, matcher.New(nil), WithMetrics(nil))
	rec = httptest.NewRecorder()
	without.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStack(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/stack", "")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[navigation.Snapshot](t, rec)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, route.KindDashboard, snap.Entries[0].Kind)
	assert.Equal(t, navigation.TabHome, snap.Tab)
}

func TestMatch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/match?url=/courses/42/assignments/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Routable bool            `json:"routable"`
		Route    json.RawMessage `json:"route"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Routable)
	var rt route.Route
	require.NoError(t, json.Unmarshal(ok.Route, &rt))
	assert.Equal(t, route.KindAssignmentDetails, rt.Kind())

	rec = ts.do(t, http.MethodGet, "/api/v1/match?url=https://other.example.org/courses/42", "")
	miss := decode[matchResponse](t, rec)
	assert.False(t, miss.Routable)
	assert.Equal(t, string(matcher.ReasonCrossDomain), miss.Reason)

	rec = ts.do(t, http.MethodGet, "/api/v1/match?url=/courses/abc/assignments", "")
	miss = decode[matchResponse](t, rec)
	assert.Equal(t, string(matcher.ReasonBadID), miss.Reason)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/match", "").Code)
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/back", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stack", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id\nwith newline", rec.Header().Get("X-Request-ID"))
}

func TestMiddleware_CommandRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CommandRate = 0.001
	cfg.Server.CommandBurst = 1
	cmds := make(chan protocol.Command, 8)
	srv := New(cfg, cmds, nil, fixedStack{}, matcher.New(nil))

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/back", nil))
		return rec
	}

	assert.Equal(t, http.StatusAccepted, post().Code)
	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are never throttled.
	get := httptest.NewRecorder()
	srv.Handler().ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/stack", nil))
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestMiddleware_Recovery(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSubscriptionFilter(t *testing.T) {
	s := &subscriber{}
	assert.True(t, s.wants("message", ""))

	s.filters = []SubscriptionFilter{{Events: []string{"stack_changed", "loading"}}}
	assert.True(t, s.wants("loading", ""))
	assert.False(t, s.wants("message", ""))

	s.filters = []SubscriptionFilter{{Kinds: []route.Kind{route.KindGrades}}}
	assert.True(t, s.wants("screen_presented", route.KindGrades))
	assert.False(t, s.wants("screen_presented", route.KindInbox))
	assert.True(t, s.wants("message", ""), "kinds only constrain screen events")

	s.filters = append(s.filters, SubscriptionFilter{})
	assert.True(t, s.wants("screen_presented", route.KindInbox))
}

func TestScreenKindOf(t *testing.T) {
	ctrl := navigation.NewController()
	ctrl.Reset(route.New(route.KindDashboard))
	ctrl.Push(route.New(route.KindInbox))

	assert.Equal(t, route.KindInbox, screenKindOf(protocol.StackChangedEvent{Snapshot: ctrl.Snapshot()}))
	assert.Equal(t, route.Kind(""), screenKindOf(protocol.StackChangedEvent{}))
	assert.Equal(t, route.KindGrades, screenKindOf(protocol.ScreenPresentedEvent{Entry: navigation.Entry{Kind: route.KindGrades}}))
	assert.Equal(t, route.Kind(""), screenKindOf(protocol.LoadingEvent{Visible: true}))
}

type envelope struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Message   string          `json:"message"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testutil.DefaultWait)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestWebSocket_StreamsFilteredEvents(t *testing.T) {
	ts := newTestServer(t)
	var (
		mu     sync.Mutex
		tapped []string
	)
	WithEventTap(func(e protocol.Event) {
		mu.Lock()
		tapped = append(tapped, protocol.EventName(e))
		mu.Unlock()
	})(ts.srv)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.srv.RunBroadcaster(ctx)
	}()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The current stack arrives first.
	env := readEnvelope(t, conn)
	require.Equal(t, "snapshot", env.Type)
	var snap navigation.Snapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, route.KindDashboard, snap.Entries[0].Kind)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "subscribe",
		"filters": map[string]any{"events": []string{"screen_presented", "message"}, "kinds": []string{"grades"}},
	}))
	assert.Equal(t, "subscribed", readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	env = readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.NotEmpty(t, env.Message)

	require.Equal(t, 1, ts.srv.Hub().Len())

	ts.events <- protocol.ScreenPresentedEvent{Metadata: protocol.NewMetadata(), Entry: navigation.Entry{Kind: route.KindInbox}}
	ts.events <- protocol.LoadingEvent{Metadata: protocol.NewMetadata(), Visible: true}
	ts.events <- protocol.MessageEvent{Metadata: protocol.NewMetadata(), Text: "hello", Type: "toast"}

	env = readEnvelope(t, conn)
	assert.Equal(t, "event", env.Type)
	require.Equal(t, "message", env.EventType)
	var msg protocol.MessageEvent
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	assert.Equal(t, "hello", msg.Text)

	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"screen_presented", "loading", "message"}, tapped)
}
