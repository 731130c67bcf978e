package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/dgwatch"
	httpAdapter "github.com/aretw0/dgwatch/pkg/adapters/http"
	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	graph  *memory.Graph
	saved  []*domain.Scene
	server *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{graph: memory.NewGraph()}
	streams := httpAdapter.NewStreamManager()
	metrics := observability.NewMetrics()

	plugin := dgwatch.New(e.graph, dgwatch.WithLifecycleHooks(observability.Combine(metrics.Hooks(), streams.Hooks())))
	require.NoError(t, plugin.Load())

	_, err := e.graph.CreateNode(domain.NodeTypeTransform, "pCube1")
	require.NoError(t, err)
	require.NoError(t, e.graph.Select("pCube1"))

	srv := httpAdapter.NewServer(plugin, e.graph,
		httpAdapter.WithSceneName("shot"),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithMetrics(metrics.Handler()),
		httpAdapter.WithPersist(func(ctx context.Context, scene *domain.Scene) error {
			e.saved = append(e.saved, scene)
			return nil
		}),
	)
	e.server = httptest.NewServer(srv.Handler())
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_ApplyAndReact(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, "POST", "/apply", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	applied := decode[httpAdapter.ApplyResponse](t, resp)
	assert.Equal(t, "pCube1", applied.Target)
	assert.Equal(t, "callbackNodeExample1", applied.Node)

	resp = e.do(t, "PUT", "/nodes/pCube1/attributes/translateX", `{"value": 1.5707963267948966}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	node := decode[domain.NodeSpec](t, resp)
	y, ok := node.Attribute(domain.AttrTranslateY)
	require.True(t, ok)
	v, _ := domain.AsFloat(y.Value)
	assert.InDelta(t, 1.0, v, 1e-9)
	z, ok := node.Attribute(domain.AttrTranslateZ)
	require.True(t, ok)
	v, _ = domain.AsFloat(z.Value)
	assert.InDelta(t, math.Cos(math.Pi/2), v, 1e-9)

	resp = e.do(t, "GET", "/subscriptions", "")
	subs := decode[[]httpAdapter.SubscriptionView](t, resp)
	assert.Len(t, subs, 3)

	resp = e.do(t, "POST", "/apply", `{"node": "pCube1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	assert.Len(t, e.saved, 2, "apply and set are persisted, the rejected apply is not")
}

func TestServer_UndoRedo(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusNotFound, e.do(t, "POST", "/undo", "").StatusCode)
	require.Equal(t, http.StatusCreated, e.do(t, "POST", "/apply", "").StatusCode)
	require.Equal(t, http.StatusNoContent, e.do(t, "POST", "/undo", "").StatusCode)

	nodes := decode[[]httpAdapter.NodeSummary](t, e.do(t, "GET", "/nodes", ""))
	assert.Equal(t, []httpAdapter.NodeSummary{{Name: "pCube1", Type: domain.NodeTypeTransform}}, nodes)

	resp := e.do(t, "POST", "/redo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pCube1", decode[httpAdapter.ApplyResponse](t, resp).Target)
}

func TestServer_Errors(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/nodes/ghost", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, e.do(t, "PUT", "/nodes/ghost/attributes/translateX", `{"value": 1}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "PUT", "/nodes/pCube1/attributes/translateX", `{"value": "high"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "PUT", "/nodes/pCube1/attributes/translateX", `not json`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "PUT", "/nodes/pCube1/attributes/visibility", `{"value": 2}`).StatusCode)

	require.NoError(t, e.graph.Select())
	assert.Equal(t, http.StatusBadRequest, e.do(t, "POST", "/apply", "").StatusCode)
	assert.Empty(t, e.saved)
}

func TestServer_GraphHealthMetrics(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, "POST", "/apply", "").StatusCode)

	resp := e.do(t, "GET", "/graph", "")
	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sb.WriteString(scanner.Text() + "\n")
	}
	assert.Contains(t, sb.String(), "pCube1 -- \"callback → transform\" --> callbackNodeExample1")
	assert.Contains(t, sb.String(), "class pCube1 watched;")

	health := decode[map[string]string](t, e.do(t, "GET", "/health", ""))
	assert.Equal(t, "ok", health["status"])

	resp = e.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Events(t *testing.T) {
	e := newEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", e.server.URL+"/events?topics=watcher", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Equal(t, http.StatusCreated, e.do(t, "POST", "/apply", "").StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	assert.Contains(t, line, `"topic":"watcher"`)
	assert.Contains(t, line, `"to":"armed"`)
}
