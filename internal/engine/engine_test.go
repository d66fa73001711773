package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartrules/internal/cart"
	"cartrules/internal/refresh"
	"cartrules/internal/rulesource"
	"cartrules/internal/telemetry"
	"cartrules/internal/testing/mock"
)

const testShop = "shop.example"

type recordingRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRefresher) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type harness struct {
	store     *mock.Storefront
	backend   *mock.RuleBackend
	reporter  *telemetry.HTTPReporter
	refresher *recordingRefresher
	state     *State
	engine    *Engine
}

func newHarness(t *testing.T, ruleSet ...map[string]any) *harness {
	t.Helper()

	store := mock.NewStorefront("cart-token")
	storeSrv := httptest.NewServer(store.Handler())
	t.Cleanup(storeSrv.Close)

	backend := mock.NewRuleBackend(ruleSet...)
	backendSrv := httptest.NewServer(backend.Handler())
	t.Cleanup(backendSrv.Close)

	reporter := telemetry.NewHTTPReporter(backendSrv.URL, time.Second)
	refresher := &recordingRefresher{}
	state := NewState("session-1", nil)
	cache := rulesource.NewCache(rulesource.NewHTTPSource(backendSrv.URL, time.Second))
	client := cart.NewClient(cart.ClientConfig{BaseURL: storeSrv.URL, Timeout: time.Second})

	return &harness{
		store:     store,
		backend:   backend,
		reporter:  reporter,
		refresher: refresher,
		state:     state,
		engine:    New(Config{Shop: testShop}, cache, client, state, reporter, refresher),
	}
}

func (h *harness) pass(t *testing.T, force bool) PassResult {
	t.Helper()
	res, err := h.engine.Reconcile(context.Background(), force)
	require.NoError(t, err)
	return res
}

func (h *harness) executions(t *testing.T) []mock.Execution {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.reporter.Wait(ctx))
	return h.backend.Executions()
}

func ruleOutcome(t *testing.T, res PassResult, id string) RuleOutcome {
	t.Helper()
	for _, o := range res.Rules {
		if o.RuleID == id {
			return o
		}
	}
	t.Fatalf("rule %s not evaluated in pass", id)
	return RuleOutcome{}
}

func TestEngine_ScenarioA_FireThenReverse(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "gift", "minCartValue": 500, "hasUpperLimit": false,
		"productIds": []any{111}, "worksInReverse": true,
	})

	h.store.SetMerchandise(60000)
	res := h.pass(t, false)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.True(t, res.Modified)
	assert.Equal(t, 1, h.store.Quantity("111"))
	assert.True(t, h.state.IsTracked("111"))
	assert.Equal(t, 1, h.refresher.Calls())

	execs := h.executions(t)
	require.Len(t, execs, 1)
	assert.Equal(t, mock.Execution{RuleID: "gift", SessionID: "session-1", CartID: "cart-token", Shop: testShop}, execs[0])

	h.store.SetMerchandise(30000)
	res = h.pass(t, false)
	assert.Equal(t, "reverse", ruleOutcome(t, res, "gift").Action)
	assert.Equal(t, []string{"111"}, ruleOutcome(t, res, "gift").Result.Removed)
	assert.Equal(t, 0, h.store.Quantity("111"))
	assert.False(t, h.state.IsTracked("111"))
	assert.Equal(t, 2, h.refresher.Calls())

	// Reverse is not reported.
	assert.Len(t, h.executions(t), 1)
}

func TestEngine_ScenarioB_UpperLimitInclusive(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "band", "minCartValue": "500", "hasUpperLimit": true, "maxCartValue": "2000",
		"productIds": "[222]",
	})

	h.store.SetMerchandise(200000)
	res := h.pass(t, false)
	assert.Equal(t, "fire", ruleOutcome(t, res, "band").Action)
	assert.Equal(t, 1, h.store.Quantity("222"))

	h.store.SetMerchandise(200001)
	res = h.pass(t, false)
	assert.Equal(t, "skip", ruleOutcome(t, res, "band").Action)
	// No reverse configured, so the product stays.
	assert.Equal(t, 1, h.store.Quantity("222"))
	assert.Equal(t, 1, h.store.AddCalls("222"))
}

func TestEngine_ScenarioC_OncePerSession(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "once", "minCartValue": 100, "executeOncePerSession": true,
		"productIds": []any{"333"},
	})

	h.store.SetMerchandise(15000)
	res := h.pass(t, false)
	assert.Equal(t, "fire", ruleOutcome(t, res, "once").Action)
	assert.Equal(t, 1, h.store.AddCalls("333"))

	// The shopper drops below the threshold and also removes the gift.
	h.store.SetMerchandise(5000)
	h.store.SetLine("333", 0, 0)
	res = h.pass(t, false)
	assert.Equal(t, "skip", ruleOutcome(t, res, "once").Action)
	assert.Equal(t, []string{"333"}, res.Pruned)

	h.store.SetMerchandise(15000)
	res = h.pass(t, false)
	assert.Equal(t, "skip", ruleOutcome(t, res, "once").Action)
	assert.Equal(t, 1, h.store.AddCalls("333"))
	assert.Equal(t, 0, h.store.Quantity("333"))
	assert.Len(t, h.executions(t), 1)
}

func TestEngine_IdempotentAdd(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "multi", "minCartValue": 10, "allowMultipleTriggers": true, "productIds": []any{111, 222},
	})

	h.store.SetMerchandise(5000)
	h.pass(t, true)
	h.pass(t, true)
	h.pass(t, true)

	assert.Equal(t, 1, h.store.Quantity("111"))
	assert.Equal(t, 1, h.store.Quantity("222"))
	assert.Equal(t, 1, h.store.AddCalls("111"))
	assert.Equal(t, 1, h.store.AddCalls("222"))
	assert.Len(t, h.executions(t), 1)
}

func TestEngine_AlreadyPresentProductIsTrackedNotAdded(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "gift", "minCartValue": 10, "productIds": []any{111},
	})

	h.store.SetMerchandise(5000)
	h.store.SetLine("111", 1, 0)

	res := h.pass(t, false)
	assert.False(t, res.Modified)
	assert.Equal(t, 0, h.store.AddCalls("111"))
	assert.True(t, h.state.IsTracked("111"))
	assert.False(t, h.state.HasFired("gift"))
	assert.Equal(t, 0, h.refresher.Calls())
	assert.Empty(t, h.executions(t))
}

func TestEngine_ReverseRemovesOnlyEngineAddedProducts(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "pair", "minCartValue": 500, "productIds": []any{111, 222}, "worksInReverse": true,
	})

	h.store.SetMerchandise(60000)
	h.store.FailAdd("222", true)
	h.pass(t, false)
	assert.Equal(t, 1, h.store.Quantity("111"))
	assert.Equal(t, 0, h.store.Quantity("222"))

	// The shopper adds 222 on their own.
	h.store.SetLine("222", 1, 1500)
	h.store.SetMerchandise(30000)
	res := h.pass(t, false)

	assert.Equal(t, []string{"111"}, ruleOutcome(t, res, "pair").Result.Removed)
	assert.Equal(t, 0, h.store.Quantity("111"))
	assert.Equal(t, 1, h.store.Quantity("222"))
	assert.Equal(t, 0, h.store.RemoveCalls("222"))
}

func TestEngine_RemovalFailureKeepsTracking(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "gift", "minCartValue": 500, "productIds": []any{111}, "worksInReverse": true,
	})

	h.store.SetMerchandise(60000)
	h.pass(t, false)

	h.store.SetMerchandise(30000)
	h.store.FailRemove("111", true)
	res := h.pass(t, false)
	assert.Equal(t, []string{"111"}, ruleOutcome(t, res, "gift").Result.Failed)
	assert.True(t, h.state.IsTracked("111"))
	assert.Equal(t, 1, h.store.Quantity("111"))

	// Same cart, not forced: the failed removal is retried.
	h.store.FailRemove("111", false)
	res = h.pass(t, false)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 0, h.store.Quantity("111"))
	assert.False(t, h.state.IsTracked("111"))
	assert.Equal(t, 2, h.store.RemoveCalls("111"))
}

func TestEngine_AddFailureStaysRetryable(t *testing.T) {
	h := newHarness(t, map[string]any{
		"id": "gift", "minCartValue": 10, "productIds": []any{111},
	})

	h.store.SetMerchandise(5000)
	h.store.FailAdd("111", true)
	res := h.pass(t, false)
	assert.False(t, res.Modified)
	assert.False(t, h.state.HasFired("gift"))
	assert.False(t, h.state.IsTracked("111"))
	assert.Empty(t, h.executions(t))

	h.store.FailAdd("111", false)
	res = h.pass(t, false)
	assert.True(t, res.Modified)
	assert.True(t, h.state.HasFired("gift"))
	assert.Len(t, h.executions(t), 1)
}

func TestEngine_MalformedRuleIsSkippedOthersProceed(t *testing.T) {
	h := newHarness(t,
		map[string]any{"id": "broken", "minCartValue": 10, "productIds": "not json"},
		map[string]any{"id": "paused", "minCartValue": 10, "productIds": []any{999}, "status": "inactive"},
		map[string]any{"id": "good", "minCartValue": 10, "productIds": []any{111}},
	)

	h.store.SetMerchandise(5000)
	res := h.pass(t, false)

	broken := ruleOutcome(t, res, "broken")
	assert.Equal(t, "skip", broken.Action)
	assert.NotEmpty(t, broken.Error)

	for _, o := range res.Rules {
		assert.NotEqual(t, "paused", o.RuleID)
	}
	assert.Equal(t, 0, h.store.AddCalls("999"))
	assert.Equal(t, 1, h.store.Quantity("111"))
}

func TestEngine_UnchangedCartSkipsUnlessForced(t *testing.T) {
	h := newHarness(t, map[string]any{"id": "gift", "minCartValue": 1000, "productIds": []any{111}})

	h.store.SetMerchandise(5000)
	assert.Equal(t, OutcomeCompleted, h.pass(t, false).Outcome)
	assert.Equal(t, OutcomeUnchanged, h.pass(t, false).Outcome)
	assert.Equal(t, OutcomeCompleted, h.pass(t, true).Outcome)

	h.store.SetMerchandise(5001)
	assert.Equal(t, OutcomeCompleted, h.pass(t, false).Outcome)
}

func TestEngine_RuleLoadFailureIsRetried(t *testing.T) {
	h := newHarness(t, map[string]any{"id": "gift", "minCartValue": 10, "productIds": []any{111}})
	h.store.SetMerchandise(5000)

	h.backend.SetStatus(http.StatusInternalServerError)
	res := h.pass(t, false)
	assert.Equal(t, OutcomeRulesUnavailable, res.Outcome)
	assert.Equal(t, 0, h.store.Reads())

	h.backend.SetStatus(http.StatusOK)
	res = h.pass(t, false)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, h.backend.Fetches())

	// Cached from now on.
	h.pass(t, true)
	assert.Equal(t, 2, h.backend.Fetches())
}

func TestEngine_NoRulesSkipsCartRead(t *testing.T) {
	h := newHarness(t)

	res := h.pass(t, true)
	assert.Equal(t, OutcomeNoRules, res.Outcome)
	assert.Equal(t, 0, h.store.Reads())
}

func TestEngine_CartUnavailable(t *testing.T) {
	h := newHarness(t, map[string]any{"id": "gift", "minCartValue": 10, "productIds": []any{111}})
	h.store.FailReads(true)

	res := h.pass(t, true)
	assert.Equal(t, OutcomeCartUnavailable, res.Outcome)
	assert.NotEmpty(t, res.Error)
	_, observed := h.state.LastCart()
	assert.False(t, observed)
}

func TestEngine_BusyWhilePassRunning(t *testing.T) {
	h := newHarness(t, map[string]any{"id": "gift", "minCartValue": 10, "productIds": []any{111}})

	require.True(t, h.state.TryBeginPass())
	res, err := h.engine.Reconcile(context.Background(), true)
	assert.ErrorIs(t, err, ErrPassInProgress)
	assert.Equal(t, OutcomeBusy, res.Outcome)
	assert.Equal(t, 0, h.store.Reads())

	h.state.EndPass()
	_, err = h.engine.Reconcile(context.Background(), true)
	assert.NoError(t, err)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(refresh.Message) {}

func TestEngine_RefreshArmsSuppression(t *testing.T) {
	h := newHarness(t, map[string]any{"id": "gift", "minCartValue": 10, "productIds": []any{111}})

	clock := mock.NewClock(time.Time{})
	h.state = NewState("session-1", clock.Now)
	h.engine.state = h.state
	h.engine.executor = NewExecutor(h.engine.cart, h.state, h.reporter, testShop)
	h.engine.SetRefresher(refresh.NewCoordinator(h.engine.cart, nopBroadcaster{}, h.state, time.Second))

	h.store.SetMerchandise(5000)
	res := h.pass(t, false)
	require.True(t, res.Modified)
	assert.True(t, h.engine.Suppressing())

	// Non-forced passes are dropped inside the window.
	h.store.SetMerchandise(7000)
	assert.Equal(t, OutcomeSuppressed, h.pass(t, false).Outcome)

	clock.Advance(time.Second)
	assert.False(t, h.engine.Suppressing())
	assert.Equal(t, OutcomeCompleted, h.pass(t, false).Outcome)
}

func TestEngine_LaterRuleSeesEarlierRemovalInSamePass(t *testing.T) {
	h := newHarness(t,
		map[string]any{
			"id": "band", "minCartValue": 500, "hasUpperLimit": true, "maxCartValue": 1000,
			"productIds": []any{111}, "worksInReverse": true,
		},
		map[string]any{
			"id": "big", "minCartValue": 1200, "productIds": []any{111},
		},
	)

	h.store.SetMerchandise(60000)
	res := h.pass(t, false)
	assert.Equal(t, "fire", ruleOutcome(t, res, "band").Action)
	assert.Equal(t, "skip", ruleOutcome(t, res, "big").Action)
	require.Equal(t, 1, h.store.Quantity("111"))

	h.store.SetMerchandise(150000)
	res = h.pass(t, false)
	assert.Equal(t, []string{"111"}, ruleOutcome(t, res, "band").Result.Removed)
	assert.Equal(t, []string{"111"}, ruleOutcome(t, res, "big").Result.Added)

	assert.Equal(t, 1, h.store.Quantity("111"))
	assert.Equal(t, 2, h.store.AddCalls("111"))
	assert.Equal(t, 1, h.store.RemoveCalls("111"))
	assert.True(t, h.state.IsTracked("111"))
}

func TestPassCart_Has(t *testing.T) {
	current := NewPassCart(cart.Snapshot{Items: []cart.Item{{ProductID: "111", Quantity: 1}}})
	assert.True(t, current.Has("111"))
	assert.False(t, current.Has("222"))

	current.markRemoved("111")
	current.markAdded("222")
	assert.False(t, current.Has("111"))
	assert.True(t, current.Has("222"))

	current.markAdded("111")
	assert.True(t, current.Has("111"))
}
