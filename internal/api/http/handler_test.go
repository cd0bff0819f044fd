package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/mkhodaee16/ecb-bot/internal/api/http"
	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

const tradeKey = "secret"

type testServer struct {
	app   *fiber.App
	store *sqlstore.SQLStore
	paper *gateway.Paper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlx.Connect(sqlstore.DriverSQLite, ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(context.Background(), db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := sqlstore.New(db)
	paper := gateway.NewPaper()
	guard := gateway.NewGuard(paper, time.Second, time.Second, logger)
	metrics := structs.NewMetrics(prometheus.NewRegistry())
	notifier := usecasees.NewNotifier(nil, logger)
	settings := usecasees.NewSettingsResolver(nil, usecasees.Tunables{TrailDistance: 0.001, ProfitMultiplier: 100000}, time.Minute, logger)

	orders := usecasees.NewOrderUseCase(store, guard, notifier, nil, metrics, logger)
	h := apihttp.NewHandler(
		usecasees.NewSignalUseCase(store, orders, nil, metrics, tradeKey, logger),
		usecasees.NewPositionUseCase(store, guard, settings, notifier, nil, logger),
		usecasees.NewQueryUseCase(store),
		logger,
	)

	app := fiber.New(fiber.Config{ErrorHandler: apihttp.ErrorHandler(logger)})
	apihttp.RegisterHTTPEndpoints(app, h)

	return &testServer{app: app, store: store, paper: paper}
}

func (s *testServer) account(t *testing.T, login string, multiplier float64) {
	t.Helper()

	a := &models.Account{Login: login, Password: "hunter2", Server: "Demo", Multiplier: multiplier, IsActive: true}
	require.NoError(t, s.store.Accounts().Upsert(context.Background(), a))
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}, string) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)

	return resp.StatusCode, out, string(raw)
}

func TestWebhook(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "1001", 1)
	s.account(t, "1002", 0.5)

	code, body, _ := s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"secret","action":"buy","symbol":"EURUSD","volume":1.0,"order_type":"buy limit","price":1.1,"stop_loss":1.095,"take_profit":0}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["orders"], 2)

	positions, err := s.store.Positions().GetActive(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, 1.0, positions[0].Volume)
	assert.Equal(t, 0.5, positions[1].Volume)
}

func TestWebhook_TextPlainBody(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "1001", 1)

	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"tradekey":"secret","action":"sell","symbol":"EURUSD","volume":"0.1","order_type":"sell limit","price":"1.2"}`))
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhook_WrongSecret(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "1001", 1)

	code, body, _ := s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"nope","action":"buy","symbol":"EURUSD","volume":1.0,"order_type":"buy"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(models.KindAuthentication), body["kind"])

	positions, err := s.store.Positions().GetAll(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, positions)

	signals, err := s.store.Signals().GetAll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.SignalRejected, signals[0].Status)
	assert.Empty(t, s.paper.Calls())
}

func TestWebhook_Invalid(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"secret","action":"buy","symbol":"EURUSD","volume":"lots","order_type":"buy"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(models.KindValidation), body["kind"])

	code, body, _ = s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"secret","action":"buy","symbol":42,"volume":1,"order_type":"buy"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(models.KindValidation), body["kind"])

	signals, err := s.store.Signals().GetAll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, sig := range signals {
		assert.Equal(t, models.SignalInvalid, sig.Status)
		assert.NotEmpty(t, sig.ErrorMessage)
	}
}

func TestWebhook_KeyCheckedBeforeFields(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"nope","action":"buy","symbol":42,"volume":1,"order_type":"buy"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(models.KindAuthentication), body["kind"])

	code, body, _ = s.do(t, http.MethodPost, "/webhook", `{"tradekey":`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(models.KindAuthentication), body["kind"])

	signals, err := s.store.Signals().GetAll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, sig := range signals {
		assert.Equal(t, models.SignalRejected, sig.Status)
	}
}

func TestPositionOperations(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "1001", 1)

	code, _, _ := s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"secret","action":"buy","symbol":"EURUSD","volume":1.0,"order_type":"buy limit","price":1.1}`)
	require.Equal(t, http.StatusOK, code)

	positions, err := s.store.Positions().GetActive(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	ticket := positions[0].TicketValue()
	path := "/api/position/" + strconv.FormatInt(ticket, 10)

	code, body, _ := s.do(t, http.MethodPost, path+"/update", `{"stop_loss":1.09,"price":1.099}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, _, _ = s.do(t, http.MethodPost, path+"/close", ``)
	assert.Equal(t, http.StatusConflict, code)

	code, body, _ = s.do(t, http.MethodPost, path+"/cancel", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body, _ = s.do(t, http.MethodPost, path+"/cancel", ``)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(models.KindInvalidState), body["kind"])

	code, body, _ = s.do(t, http.MethodPost, "/api/position/424242/cancel", ``)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(models.KindNotFound), body["kind"])

	code, _, _ = s.do(t, http.MethodPost, "/api/position/abc/close", ``)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "1001", 1)

	code, _, raw := s.do(t, http.MethodGet, "/api/accounts", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, `"login":"1001"`)
	assert.NotContains(t, raw, "hunter2")

	code, _, raw = s.do(t, http.MethodGet, "/api/positions", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", raw)

	code, _, _ = s.do(t, http.MethodPost, "/webhook",
		`{"tradekey":"secret","action":"buy","symbol":"EURUSD","volume":1.0,"order_type":"buy stop","price":1.2}`)
	require.Equal(t, http.StatusOK, code)

	code, _, raw = s.do(t, http.MethodGet, "/api/positions?active=true", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, `"status":"Pending"`)

	code, _, raw = s.do(t, http.MethodGet, "/api/webhooks", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, `"status":"Processed"`)

	code, _, raw = s.do(t, http.MethodGet, "/api/trades", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, `"symbol":"EURUSD"`)

	code, body, _ := s.do(t, http.MethodGet, "/api/webhook/99", ``)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(models.KindNotFound), body["kind"])

	code, body, _ = s.do(t, http.MethodGet, "/api/nothing", ``)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])

	code, body, _ = s.do(t, http.MethodGet, "/api/healthcheck", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["status"])
}
