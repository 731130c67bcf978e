package observability_test

import (
	"bytes"
	"log/slog"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/pkg/adapters/memory"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetrics_FromPluginHooks(t *testing.T) {
	m := observability.NewMetrics()
	g := memory.NewGraph()
	plugin := dgwatch.New(g, dgwatch.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, plugin.Load())

	cube, _ := g.CreateNode(domain.NodeTypeTransform, "pCube1")
	_, err := plugin.Apply(dgwatch.Args{Selection: []domain.NodeRef{cube}})
	require.NoError(t, err)
	require.NoError(t, g.SetDouble(domain.PlugOf(cube, domain.AttrTranslateX), math.Pi))

	body := scrape(t, m)
	assert.Contains(t, body, "dgwatch_subscriptions_active 3")
	assert.Contains(t, body, `dgwatch_subscriptions_installed_total{kind="value_watch"} 1`)
	assert.Contains(t, body, `dgwatch_reactions_total{result="applied"} 1`)
	assert.Contains(t, body, "dgwatch_watchers_armed 1")

	require.NoError(t, plugin.Undo())
	body = scrape(t, m)
	assert.Contains(t, body, "dgwatch_subscriptions_active 0")
	assert.Contains(t, body, "dgwatch_watchers_armed 0")
	assert.Contains(t, body, `dgwatch_watcher_transitions_total{to="idle"} 1`)

	n, err := testutil.GatherAndCount(m.Registry, "dgwatch_subscriptions_removed_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per subscription kind")
}

func TestCombine(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnReact: func(*domain.ReactionEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{
		OnReact:   func(*domain.ReactionEvent) { order = append(order, "b") },
		OnInstall: func(*domain.SubscriptionEvent) { order = append(order, "install") },
	}

	hooks := observability.Combine(a, domain.LifecycleHooks{}, b)
	hooks.OnReact(&domain.ReactionEvent{})
	hooks.OnInstall(&domain.SubscriptionEvent{})
	assert.Nil(t, hooks.OnRemove)
	assert.Equal(t, []string{"a", "b", "install"}, order)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	hooks.OnWatcherTransition(&domain.WatcherEvent{Node: "callbackNodeExample1", Target: "pCube1", From: "idle", To: "armed"})
	assert.Contains(t, buf.String(), "watcher_transition")
	assert.Contains(t, buf.String(), "to=armed")
}

func TestMetrics_ReactionResults(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()

	hooks.OnReact(&domain.ReactionEvent{Target: "pCube1", X: 1})
	hooks.OnReact(&domain.ReactionEvent{Target: "pCube1", Skipped: "translateY: not found"})
	hooks.OnReact(&domain.ReactionEvent{Target: "pCube1", X: 2})

	body := scrape(t, m)
	assert.Contains(t, body, `dgwatch_reactions_total{result="applied"} 2`)
	assert.Contains(t, body, `dgwatch_reactions_total{result="skipped"} 1`)
}
