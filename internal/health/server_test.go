package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// storeReadiness is ready once the node store has been loaded, like the
// service it stands in for.
type storeReadiness struct{ st *store.Store }

func (r storeReadiness) IsReady() bool { return r.st.Nodes.Loaded() }

// storeSnapshot serves the node snapshot, nil until the first one arrives.
type storeSnapshot struct{ st *store.Store }

func (s storeSnapshot) LatestSnapshot() any {
	if snap := s.st.NodeSummaries(); snap != nil {
		return snap
	}
	return nil
}

type testServer struct {
	st      *store.Store
	metrics *observability.Metrics
	srv     *Server
}

func newTestServer(t *testing.T, debug bool) *testServer {
	t.Helper()
	ts := &testServer{st: store.NewStore(), metrics: observability.NewMetrics()}
	ts.srv = NewServer(0, Deps{
		Metrics:   ts.metrics,
		Readiness: storeReadiness{ts.st},
		Snapshot:  storeSnapshot{ts.st},
		Store:     ts.st,
	}, debug)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Result()
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, false)

	resp := ts.do(t, http.MethodGet, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	if body := decodeBody[map[string]string](t, resp); body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body)
	}
}

func TestReadyzFlipsAfterFirstNodeSnapshot(t *testing.T) {
	ts := newTestServer(t, false)

	resp := ts.do(t, http.MethodGet, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first snapshot, got %d", resp.StatusCode)
	}
	if body := decodeBody[map[string]bool](t, resp); body["ready"] {
		t.Fatal("expected ready=false")
	}

	// A memory table alone does not make the service ready.
	ts.st.ReplaceMemory(&model.MemoryTable{}, model.GroupByNode)
	if resp := ts.do(t, http.MethodGet, "/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with only memory data, got %d", resp.StatusCode)
	}

	// An empty node snapshot is still a loaded one.
	ts.st.ReplaceNodes(&model.NodeSummaries{})
	resp = ts.do(t, http.MethodGet, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after the first snapshot, got %d", resp.StatusCode)
	}
	if body := decodeBody[map[string]bool](t, resp); !body["ready"] {
		t.Fatal("expected ready=true")
	}
}

func TestMetricsExposesPollCounters(t *testing.T) {
	ts := newTestServer(t, false)
	ts.metrics.PollTotal.WithLabelValues("memory", "success").Inc()

	resp := ts.do(t, http.MethodGet, "/metrics")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `clusterview_poll_total{poller="memory",status="success"} 1`) {
		t.Fatalf("expected the poll counter in /metrics output, got:\n%s", body)
	}
}

func TestDebugStore(t *testing.T) {
	ts := newTestServer(t, true)
	ts.st.ReplaceNodes(&model.NodeSummaries{Summaries: []model.NodeSummary{
		{Hostname: "head"}, {Hostname: "head", IP: "10.0.0.2"}, {Hostname: "worker"},
	}})
	before := time.Now().UnixMilli()
	ts.st.ReplaceMemory(&model.MemoryTable{Group: map[string]model.MemoryGroup{"a": {}, "b": {}}}, model.GroupByNode)

	resp := ts.do(t, http.MethodGet, "/debug/store")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[storeDebug](t, resp)

	if got.Items["nodes"] != 3 || got.Items["memory"] != 2 {
		t.Fatalf("unexpected item counts: %v", got.Items)
	}
	if got.LastUpdated["memory"] < before {
		t.Fatalf("expected memory last_updated >= %d, got %d", before, got.LastUpdated["memory"])
	}
	if got.LastUpdated["nodes"] == 0 || got.LastUpdated["nodes"] > got.LastUpdated["memory"] {
		t.Fatalf("expected nodes updated no later than memory: %v", got.LastUpdated)
	}
}

func TestDebugSnapshot(t *testing.T) {
	ts := newTestServer(t, true)

	resp := ts.do(t, http.MethodGet, "/debug/snapshot")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 before the first snapshot, got %d", resp.StatusCode)
	}

	ts.st.ReplaceNodes(&model.NodeSummaries{Summaries: []model.NodeSummary{{Hostname: "head", IP: "10.0.0.1"}}})
	resp = ts.do(t, http.MethodGet, "/debug/snapshot")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	snap := decodeBody[model.NodeSummaries](t, resp)
	if len(snap.Summaries) != 1 || snap.Summaries[0].IP != "10.0.0.1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestDebugEndpointsDisabled(t *testing.T) {
	ts := newTestServer(t, false)

	for _, path := range []string{"/debug/store", "/debug/snapshot", "/debug/pprof/"} {
		resp := ts.do(t, http.MethodGet, path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404 with debug disabled, got %d", path, resp.StatusCode)
		}
	}
}

func TestRoutesAreGetOnly(t *testing.T) {
	ts := newTestServer(t, true)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/debug/store", "/debug/snapshot"} {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			resp := ts.do(t, method, path)
			resp.Body.Close()
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("%s %s: expected 405, got %d", method, path, resp.StatusCode)
			}
			if allow := resp.Header.Get("Allow"); !strings.Contains(allow, http.MethodGet) {
				t.Errorf("%s %s: expected Allow to list GET, got %q", method, path, allow)
			}
		}
	}

	// HEAD is served by GET patterns.
	if resp := ts.do(t, http.MethodHead, "/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("HEAD /healthz: expected 200, got %d", resp.StatusCode)
	}
}

func TestServerStartStop(t *testing.T) {
	ts := newTestServer(t, false)
	if err := ts.srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if strings.HasSuffix(ts.srv.Addr(), ":0") {
		t.Fatalf("expected a bound port, got %s", ts.srv.Addr())
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + ts.srv.Addr() + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from a fresh store, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ts.srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := client.Get("http://" + ts.srv.Addr() + "/healthz"); err == nil {
		t.Fatal("expected requests to fail after Stop")
	}
}
