package usecasees

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

func TestCycle_StopLossHit(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketBuy, 501, 1.1, models.Float(1.0950), nil)
	env.paper.SetQuote("EURUSD", 1.0940, 1.0942)

	report, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Closed)

	got := env.reload(t, p)
	assert.Equal(t, models.StatusClosed, got.Status)
	require.NotNil(t, got.ClosePrice)
	assert.Equal(t, 1.0940, *got.ClosePrice)
	require.NotNil(t, got.Profit)
	assert.Less(t, *got.Profit, 0.0)
	assert.NotNil(t, got.ClosedAt)

	changed := env.publisher.named(telemetry.EventStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, models.StatusClosed, changed[0].payload.(structs.StatusChanged).To)
}

func TestCycle_TakeProfitHitOnSell(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketSell, 502, 1.1, nil, models.Float(1.09))
	env.paper.SetQuote("EURUSD", 1.0888, 1.0890)

	_, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)

	got := env.reload(t, p)
	assert.Equal(t, models.StatusClosed, got.Status)
	assert.Equal(t, 1.0890, *got.ClosePrice)
	assert.InDelta(t, 1100, *got.Profit, 1e-6)
}

func TestCycle_PendingActivatesBeforeClosing(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.BuyLimit, 503, 1.1, models.Float(1.0950), nil)
	env.paper.SetQuote("EURUSD", 1.0940, 1.0942)
	uc := env.reconcileUseCase()

	report, err := uc.Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Activated)
	assert.Equal(t, 0, report.Closed)
	assert.Equal(t, models.StatusOpen, env.reload(t, p).Status)

	report, err = uc.Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Closed)
	assert.Equal(t, models.StatusClosed, env.reload(t, p).Status)

	// activation only mirrors the resting order, nothing is sent to the broker
	assert.Empty(t, env.paper.CallsOf("submit"))
}

func TestCycle_PendingWaits(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.BuyStop, 504, 1.1, nil, nil)
	env.paper.SetQuote("EURUSD", 1.0990, 1.0992)

	_, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, env.reload(t, p).Status)
}

func TestCycle_MissingQuoteSkips(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	eur := env.position(t, a, models.MarketBuy, 505, 1.1, models.Float(1.095), nil)

	gbp := models.NewPosition(a, models.MarketBuy, "GBPUSD", 506, 1, 1.3, models.Float(1.29), nil, time.Now())
	require.NoError(t, env.store.Positions().Store(env.ctx, gbp))

	env.paper.SetQuote("EURUSD", 1.0940, 1.0942)

	report, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, models.StatusClosed, env.reload(t, eur).Status)
	assert.Equal(t, models.StatusOpen, env.reload(t, gbp).Status)
}

func TestCycle_TrailingStopIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	buy := env.position(t, a, models.MarketBuy, 601, 1.1, models.Float(1.09), nil)
	uc := env.reconcileUseCase()

	var stops []float64
	for _, bid := range []float64{1.1, 1.0995, 1.102, 1.1015} {
		env.paper.SetQuote("EURUSD", bid, bid+0.0002)
		_, err := uc.Cycle(env.ctx)
		require.NoError(t, err)

		got := env.reload(t, buy)
		require.Equal(t, models.StatusOpen, got.Status)
		stops = append(stops, *got.StopLoss)
	}

	for i := 1; i < len(stops); i++ {
		assert.GreaterOrEqual(t, stops[i], stops[i-1])
	}
	assert.InDelta(t, 1.099, stops[0], 1e-9)
	assert.InDelta(t, 1.099, stops[1], 1e-9)
	assert.InDelta(t, 1.101, stops[2], 1e-9)
	assert.Len(t, env.paper.CallsOf("modify"), 2)
}

func TestCycle_TrailingStopOnSell(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	sell := env.position(t, a, models.MarketSell, 602, 1.1, models.Float(1.11), nil)
	uc := env.reconcileUseCase()

	var stops []float64
	for _, ask := range []float64{1.1, 1.1005, 1.098} {
		env.paper.SetQuote("EURUSD", ask-0.0002, ask)
		_, err := uc.Cycle(env.ctx)
		require.NoError(t, err)
		stops = append(stops, *env.reload(t, sell).StopLoss)
	}

	for i := 1; i < len(stops); i++ {
		assert.LessOrEqual(t, stops[i], stops[i-1])
	}
	assert.InDelta(t, 1.099, stops[2], 1e-9)
}

func TestCycle_TrailingStopRejectedKeepsLocal(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketBuy, 603, 1.1, models.Float(1.09), nil)
	env.paper.SetQuote("EURUSD", 1.1, 1.1002)
	env.paper.Fail("1001", "modify", errors.New("invalid stops"))

	report, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Trailed)
	assert.Equal(t, 1.09, *env.reload(t, p).StopLoss)
}

func TestCycle_NoStopLossNoTrailing(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketBuy, 604, 1.1, nil, nil)
	env.paper.SetQuote("EURUSD", 1.2, 1.2002)

	_, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Nil(t, env.reload(t, p).StopLoss)
	assert.Empty(t, env.paper.CallsOf("modify"))
}

func TestCycle_LegacyPositionTrailsOnEveryEligibleAccount(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "1001", 1, true)
	env.account(t, "1002", 1, true)
	env.account(t, "1003", 1, true, "EURUSD")

	p := env.position(t, nil, models.MarketBuy, 605, 1.1, models.Float(1.09), nil)
	env.paper.SetQuote("EURUSD", 1.1, 1.1002)

	_, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)

	modifies := env.paper.CallsOf("modify")
	require.Len(t, modifies, 2)
	assert.Equal(t, "1001", modifies[0].Login)
	assert.Equal(t, "1002", modifies[1].Login)
	assert.InDelta(t, 1.099, *env.reload(t, p).StopLoss, 1e-9)
}

func TestCycle_PublishesPriceDeltas(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	env.position(t, a, models.BuyLimit, 606, 1.0, nil, nil)
	uc := env.reconcileUseCase()

	env.paper.SetQuote("EURUSD", 1.1, 1.1002)
	_, err := uc.Cycle(env.ctx)
	require.NoError(t, err)

	env.paper.SetQuote("EURUSD", 1.101, 1.1012)
	_, err = uc.Cycle(env.ctx)
	require.NoError(t, err)

	updates := env.publisher.named(telemetry.EventPriceUpdate)
	require.Len(t, updates, 2)

	first := updates[0].payload.(structs.PriceUpdate).Prices["EURUSD"]
	assert.Equal(t, 0.0, first.Change)

	second := updates[1].payload.(structs.PriceUpdate).Prices["EURUSD"]
	assert.Equal(t, 1.101, second.Bid)
	assert.InDelta(t, 0.001, second.Change, 1e-9)
}

func TestCycle_GatewayDownFailsCycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketBuy, 607, 1.1, models.Float(1.095), nil)
	env.paper.SetQuote("EURUSD", 1.0940, 1.0942)
	env.paper.Fail("1001", "connect", errors.New("terminal offline"))

	_, err := env.reconcileUseCase().Cycle(env.ctx)
	assert.True(t, errors.Is(err, models.ErrGateway))
	assert.Equal(t, models.StatusOpen, env.reload(t, p).Status)
}

func TestCycle_NothingActive(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "1001", 1, true)

	report, err := env.reconcileUseCase().Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.Empty(t, env.paper.Calls())
}

func TestRun_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	env.position(t, a, models.BuyLimit, 608, 1.0, nil, nil)
	env.paper.SetQuote("EURUSD", 1.1, 1.1002)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.reconcileUseCase().Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(env.publisher.named(telemetry.EventPriceUpdate)) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestSafeCycle_RecoversPanic(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	env.position(t, a, models.MarketBuy, 609, 1.1, models.Float(1.09), nil)
	env.paper.SetQuote("EURUSD", 1.1, 1.1002)

	uc := env.reconcileUseCase()
	uc.lastBid = nil

	_, err := uc.safeCycle(env.ctx)
	assert.Error(t, err)
}

// hookGuard runs after once the first session has been released.
type hookGuard struct {
	SessionGuard
	after func()
}

func (g *hookGuard) WithSession(ctx context.Context, account *models.Account, fn func(ctx context.Context, s gateway.Session) error) error {
	err := g.SessionGuard.WithSession(ctx, account, fn)
	if g.after != nil {
		after := g.after
		g.after = nil
		after()
	}
	return err
}

func TestCycle_ConcurrentWriteWins(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1001", 1, true)
	p := env.position(t, a, models.MarketBuy, 610, 1.1, models.Float(1.09), models.Float(1.2))
	env.paper.SetQuote("EURUSD", 1.102, 1.1022)

	guard := &hookGuard{SessionGuard: env.guard}
	guard.after = func() {
		cur := env.reload(t, p)
		cur.TakeProfit = models.Float(1.3)
		require.NoError(t, env.store.Positions().Update(env.ctx, cur))
	}
	uc := NewReconcileUseCase(env.store, guard, env.settings, env.notifier(), env.publisher, env.metrics, 10*time.Millisecond, 20*time.Millisecond, env.logger)

	report, err := uc.Cycle(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Trailed)

	got := env.reload(t, p)
	require.NotNil(t, got.TakeProfit)
	assert.Equal(t, 1.3, *got.TakeProfit)
	assert.Equal(t, 1.09, *got.StopLoss)

	// the next cycle trails from the row as it now stands
	_, err = uc.Cycle(env.ctx)
	require.NoError(t, err)

	got = env.reload(t, p)
	assert.Equal(t, 1.3, *got.TakeProfit)
	assert.InDelta(t, 1.101, *got.StopLoss, 1e-9)
}
