package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/language-operator/language-operator-dashboard/internal/server"
	"github.com/language-operator/language-operator-dashboard/internal/stream"
	"github.com/language-operator/language-operator-dashboard/internal/tenant"
	"github.com/language-operator/language-operator-dashboard/internal/testutil"
)

func newDashboardServer(api *testutil.FakeWatchAPI) *server.Server {
	resolver := tenant.NewStaticTokenResolver(map[string]tenant.Tenant{
		"tok-admin": {User: "ada", Organization: "x", Role: "admin"},
		"tok-noorg": {User: "bob"},
	})
	return server.New(api, resolver, server.Options{
		ReconnectDelay: 30 * time.Millisecond,
		Logger:         zap.NewNop(),
	})
}

func newTestServer(t *testing.T, api *testutil.FakeWatchAPI) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newDashboardServer(api).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func openWatch(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// readEvent reads one named SSE event, skipping heartbeat comments.
func readEvent(t *testing.T, br *bufio.Reader) (name string, data []byte) {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if name != "" || data != nil {
				return name, data
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = []byte(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestWatchRequiresSession(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeWatchAPI())

	resp := openWatch(t, ts, "/api/v1/watch/agents", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestWatchRequiresOrganization(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeWatchAPI())

	resp := openWatch(t, ts, "/api/v1/watch/agents", "tok-noorg")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "forbidden", body["error"])
}

// TestWatchAgentScenario walks the full bridge: a client opens a watch for
// agents in its tenant scope, the backend emits an Added notification, the
// client receives one resource-update envelope; the backend then fails and
// the client receives one error event while a fresh subscription opens
// seeded with the last observed position.
func TestWatchAgentScenario(t *testing.T) {
	api := testutil.NewFakeWatchAPI()
	ts := newTestServer(t, api)

	resp := openWatch(t, ts, "/api/v1/watch/agents", "tok-admin")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription carries the tenant-derived scope.
	w := api.WaitWatcher(t, 0)
	attempt := api.Attempts()[0]
	assert.Equal(t, "org-x", attempt.Scope.Namespace)
	assert.Equal(t, "language-operator.io/organization=x", attempt.Scope.LabelSelector)
	assert.Equal(t, "languageagents", attempt.Scope.GVR.Resource)
	assert.Equal(t, "", attempt.ResumeFrom)

	br := bufio.NewReader(resp.Body)

	w.Add(testutil.MakeResource("LanguageAgent", "org-x", "alpha", "12", "x"))

	name, data := readEvent(t, br)
	assert.Equal(t, "resource-update", name)

	var env stream.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "Added", env.Type)
	assert.Equal(t, "agent", env.ResourceKind)
	assert.Equal(t, "12", env.Position)
	assert.False(t, env.Resync)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &obj))
	metadata := obj["metadata"].(map[string]any)
	assert.Equal(t, "alpha", metadata["name"])

	// Backend failure: one visible error event, then a reconnect within
	// the fixed delay window, seeded with the last observed position.
	w.Error(&metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Message: "watch closed",
	})

	name, data = readEvent(t, br)
	assert.Equal(t, "error", name)

	var errEvent stream.ErrorEvent
	require.NoError(t, json.Unmarshal(data, &errEvent))
	assert.Contains(t, errEvent.Message, "watch closed")
	assert.False(t, errEvent.Timestamp.IsZero())

	require.Eventually(t, func() bool { return api.AttemptCount() == 2 }, 150*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, "12", api.Attempts()[1].ResumeFrom)

	// The stream survived the backend failure.
	w2 := api.WaitWatcher(t, 1)
	w2.Modify(testutil.MakeResource("LanguageAgent", "org-x", "alpha", "14", "x"))
	name, data = readEvent(t, br)
	assert.Equal(t, "resource-update", name)
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "Modified", env.Type)
	assert.Equal(t, "14", env.Position)
}

func TestWatchClientAbortStopsSubscription(t *testing.T) {
	api := testutil.NewFakeWatchAPI()
	ts := newTestServer(t, api)

	resp := openWatch(t, ts, "/api/v1/watch/agents", "tok-admin")
	w := api.WaitWatcher(t, 0)

	resp.Body.Close()

	// A backend failure after the client is gone yields no reconnect.
	time.Sleep(50 * time.Millisecond)
	w.Error(&metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Message: "watch closed",
	})
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, api.AttemptCount())
}

// Every resource kind binds through the same generic wiring.
func TestAllKindsBindUniformly(t *testing.T) {
	for _, kind := range server.WatchKinds() {
		t.Run(kind.Path, func(t *testing.T) {
			api := testutil.NewFakeWatchAPI()
			ts := newTestServer(t, api)

			resp := openWatch(t, ts, "/api/v1/watch/"+kind.Path, "tok-admin")
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

			api.WaitWatcher(t, 0)
			attempt := api.Attempts()[0]
			assert.Equal(t, kind.GVR, attempt.Scope.GVR)
			assert.Equal(t, "org-x", attempt.Scope.Namespace)

			// Events carry no organization label, so their watch covers
			// the whole tenant namespace.
			wantSelector := "language-operator.io/organization=x"
			if kind.Path == "events" {
				wantSelector = ""
			}
			assert.Equal(t, wantSelector, attempt.Scope.LabelSelector)
		})
	}
}

// A shutdown with a connected client must drain the stream instead of
// waiting out the full shutdown timeout.
func TestServeShutdownDrainsActiveStreams(t *testing.T) {
	api := testutil.NewFakeWatchAPI()
	srv := newDashboardServer(api)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/watch/agents", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	api.WaitWatcher(t, 0)

	cancel()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not drain the active stream")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeWatchAPI())

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testutil.NewFakeWatchAPI())

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
