package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/config"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/mocks"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
	"github.com/trackitco/support-dashboard/internal/core/realtime/realtimetest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fakeAuthorizer struct {
	mu     sync.Mutex
	params []string
	err    error
}

func (f *fakeAuthorizer) AuthorizeChannel(params []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, string(params))
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"auth":"app-key:signature"}`), nil
}

func (f *fakeAuthorizer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.params...)
}

type apiFixture struct {
	handler  stdhttp.Handler
	registry *realtime.Registry
	feeds    *realtimetest.Feeds
	messages *mocks.MockMessageService
	support  *mocks.MockSupportAuthService
	pusher   *fakeAuthorizer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	feeds := realtimetest.NewFeeds(10 * time.Millisecond)
	authn := realtimetest.Authenticator{
		"user-token":    {UserID: "u1"},
		"other-token":   {UserID: "u2"},
		"support-token": {UserID: "agent-1", IsSupport: true},
	}
	policy := realtimetest.Policy{Owners: map[string]string{"7": "u1"}}
	registry := realtime.NewRegistry(authn, policy, feeds, discard)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})

	cfg := &config.Config{}
	cfg.App.Environment = "development"

	errs := NewErrorHandler(discard)
	f := &apiFixture{
		registry: registry,
		feeds:    feeds,
		messages: mocks.NewMockMessageService(),
		support:  mocks.NewMockSupportAuthService(),
		pusher:   &fakeAuthorizer{},
	}
	f.handler = NewRouter(RouterConfig{
		Logger:         discard,
		Authenticator:  authn,
		AllowedOrigins: []string{"https://dashboard.trackitco.com"},
		Health:         NewHealthHandler(fakeDB{}, registry, "test"),
		WebSocket:      NewWebSocketHandler(registry, cfg, discard),
		Streams:        NewStreamHandler(registry, authn, policy, time.Minute, 16, errs, discard),
		Messages:       NewMessageHandler(f.messages, errs, discard),
		SupportAuth:    NewSupportAuthHandler(f.support, false, errs, discard),
		PusherAuth:     NewPusherAuthHandler(f.pusher, policy, errs, discard),
		Metrics: stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
	return f
}

func (f *apiFixture) do(req *stdhttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var body struct {
		Status   string         `json:"status"`
		Version  string         `json:"version"`
		Realtime realtime.Stats `json:"realtime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 0, body.Realtime.Connections)
}

func TestRouter_ReadinessReportsDatabaseFailure(t *testing.T) {
	h := NewHealthHandler(fakeDB{err: errors.New("connection refused")}, nil, "test")

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRouter_Metrics(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil))

	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := f.do(req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(stdhttp.MethodOptions, "/api/v1/tickets/7/messages/", nil)
	req.Header.Set("Origin", "https://dashboard.trackitco.com")
	req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
	rec := f.do(req)

	assert.Equal(t, "https://dashboard.trackitco.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(stdhttp.MethodOptions, "/api/v1/tickets/7/messages/", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
	rec = f.do(req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_WebSocketEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth","token":"user-token"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, string(domain.EventAuth), ev.Type)
	assert.JSONEq(t, `{"authenticated":true,"userId":"u1"}`, string(ev.Data))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return f.registry.Stats().Connections == 0
	}, 2*time.Second, 5*time.Millisecond)
}
