package usecasees

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

const testTradeKey = "K"

type event struct {
	name    string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) Publish(name string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event{name: name, payload: payload})
}

func (p *recordingPublisher) named(name string) []event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []event
	for _, e := range p.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	ctx       context.Context
	store     *sqlstore.SQLStore
	paper     *gateway.Paper
	guard     *gateway.Guard
	publisher *recordingPublisher
	metrics   *structs.Metrics
	settings  *SettingsResolver
	logger    *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlx.Connect(sqlstore.DriverSQLite, ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(context.Background(), db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	paper := gateway.NewPaper()

	return &testEnv{
		ctx:       context.Background(),
		store:     sqlstore.New(db),
		paper:     paper,
		guard:     gateway.NewGuard(paper, time.Second, time.Second, logger),
		publisher: &recordingPublisher{},
		metrics:   structs.NewMetrics(prometheus.NewRegistry()),
		settings:  NewSettingsResolver(nil, Tunables{TrailDistance: 0.001, ProfitMultiplier: 100000}, time.Minute, logger),
		logger:    logger,
	}
}

func (e *testEnv) account(t *testing.T, login string, multiplier float64, active bool, restricted ...string) *models.Account {
	t.Helper()

	a := &models.Account{Login: login, Password: "pw", Server: "Demo", Multiplier: multiplier, IsActive: active}
	require.NoError(t, e.store.Accounts().Upsert(e.ctx, a))
	require.NoError(t, e.store.Accounts().SetRestricted(e.ctx, a.ID, restricted))

	return a
}

// position stores a position directly, bypassing the broker.
func (e *testEnv) position(t *testing.T, account *models.Account, kind models.OrderKind, ticket int64, open float64, sl, tp *float64) *models.Position {
	t.Helper()

	p := models.NewPosition(account, kind, "EURUSD", ticket, 1, open, sl, tp, time.Now())
	require.NoError(t, e.store.Positions().Store(e.ctx, p))

	return p
}

func (e *testEnv) reload(t *testing.T, p *models.Position) *models.Position {
	t.Helper()

	out, err := e.store.Positions().GetByID(e.ctx, p.ID)
	require.NoError(t, err)

	return out
}

func (e *testEnv) notifier() *Notifier {
	return NewNotifier(nil, e.logger)
}

func (e *testEnv) orderUseCase() *orderUseCase {
	return NewOrderUseCase(e.store, e.guard, e.notifier(), e.publisher, e.metrics, e.logger)
}

func (e *testEnv) signalUseCase() *signalUseCase {
	return NewSignalUseCase(e.store, e.orderUseCase(), e.publisher, e.metrics, testTradeKey, e.logger)
}

func (e *testEnv) reconcileUseCase() *reconcileUseCase {
	return NewReconcileUseCase(e.store, e.guard, e.settings, e.notifier(), e.publisher, e.metrics, 10*time.Millisecond, 20*time.Millisecond, e.logger)
}

func (e *testEnv) positionUseCase() *positionUseCase {
	return NewPositionUseCase(e.store, e.guard, e.settings, e.notifier(), e.publisher, e.logger)
}
