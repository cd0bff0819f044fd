package usecasees

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

type signalUseCase struct {
	store        sqlstore.Store
	orderUseCase *orderUseCase
	publisher    Publisher
	metrics      *structs.Metrics

	tradeKey string

	logger *logrus.Logger
}

func NewSignalUseCase(
	store sqlstore.Store,
	orderUseCase *orderUseCase,
	publisher Publisher,
	metrics *structs.Metrics,
	tradeKey string,
	logger *logrus.Logger,
) *signalUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &signalUseCase{
		store:        store,
		orderUseCase: orderUseCase,
		publisher:    publisher,
		metrics:      metrics,
		tradeKey:     tradeKey,
		logger:       logger,
	}
}

// Ingest authenticates, validates and fans out one inbound signal. Exactly
// one signal record is persisted per call whatever the outcome.
func (u *signalUseCase) Ingest(ctx context.Context, payload *structs.WebhookPayload) (*structs.SignalResponse, error) {
	u.metrics.Inc(structs.MetricSignalReceived)

	signal := &models.Signal{
		RequestID: uuid.NewString(),
		Action:    asText(payload.Action),
		Symbol:    strings.ToUpper(strings.TrimSpace(asText(payload.Symbol))),
		OrderType: asText(payload.OrderType),
		Status:    models.SignalReceived,
		CreatedAt: time.Now(),
	}
	logger := u.logger.
		WithField("method", "Ingest").
		WithField("request_id", signal.RequestID).
		WithField("symbol", signal.Symbol)

	key, _ := payload.TradeKey.(string)
	if subtle.ConstantTimeCompare([]byte(key), []byte(u.tradeKey)) != 1 || u.tradeKey == "" {
		u.metrics.Inc(structs.MetricSignalRejected)
		logger.Warn("invalid trade key")

		return nil, u.reject(ctx, signal, models.SignalRejected, errors.Wrap(models.ErrAuthentication, "invalid trade key"))
	}

	req, err := Normalize(payload)
	if payload.DecodeErr != nil {
		err = errors.Wrap(models.ErrValidation, "malformed JSON body")
	}
	if err != nil {
		u.metrics.Inc(structs.MetricSignalRejected)
		logger.WithError(err).Info("invalid signal")

		return nil, u.reject(ctx, signal, models.SignalInvalid, err)
	}

	signal.Symbol = req.Symbol
	signal.Volume = req.Volume
	signal.Price = req.Price
	signal.StopLoss = req.StopLoss
	signal.TakeProfit = req.TakeProfit

	if err := u.store.Signals().Store(ctx, signal); err != nil {
		return nil, errors.Wrap(err, "store signal")
	}
	req.SignalID = signal.ID

	u.publisher.Publish(telemetry.EventSignal, signal)
	logger.WithField("kind", req.Kind).WithField("volume", req.Volume).Info("signal accepted")

	result, err := u.orderUseCase.FanOut(ctx, req)
	if err != nil {
		u.setStatus(ctx, signal, models.SignalFailed, err.Error())
		return nil, err
	}

	status, message := summarize(result)
	u.setStatus(ctx, signal, status, failures(result))

	resp := &structs.SignalResponse{
		Success:   true,
		RequestID: signal.RequestID,
		SignalID:  signal.ID,
		Status:    string(status),
		Orders:    result.Orders,
		Cancelled: result.Cancelled,
		Message:   message,
	}
	for _, o := range result.Orders {
		if o.Success {
			resp.Ticket = o.Ticket
			break
		}
	}

	return resp, nil
}

func (u *signalUseCase) reject(ctx context.Context, signal *models.Signal, status models.SignalStatus, cause error) error {
	signal.Status = status
	signal.ErrorMessage = cause.Error()

	if err := u.store.Signals().Store(ctx, signal); err != nil {
		u.logger.WithField("method", "reject").WithError(err).Error("store signal")
	}

	return cause
}

func (u *signalUseCase) setStatus(ctx context.Context, signal *models.Signal, status models.SignalStatus, msg string) {
	signal.Status = status
	signal.ErrorMessage = msg

	// the outcome is recorded even when the request context is gone
	ctx = context.WithoutCancel(ctx)
	if err := u.store.Signals().SetStatus(ctx, signal.ID, status, msg); err != nil {
		u.logger.
			WithField("method", "setStatus").
			WithField("signal", signal.ID).
			WithError(err).
			Error("update signal status")
	}
}

func summarize(result *structs.FanOutResult) (models.SignalStatus, string) {
	placed, total := result.Placed(), len(result.Orders)

	switch {
	case total == 0:
		return models.SignalProcessed, fmt.Sprintf("no eligible accounts, %d pending cancelled", len(result.Cancelled))
	case placed == total:
		return models.SignalProcessed, fmt.Sprintf("placed on %d account(s)", placed)
	case placed == 0:
		return models.SignalFailed, fmt.Sprintf("placement failed on all %d account(s)", total)
	default:
		return models.SignalPartial, fmt.Sprintf("placed on %d of %d account(s)", placed, total)
	}
}

func failures(result *structs.FanOutResult) string {
	var out []string
	for _, o := range result.Orders {
		if !o.Success {
			out = append(out, o.Login+": "+o.Error)
		}
	}
	return strings.Join(out, "; ")
}

// Normalize validates the payload and converts it into a trade request.
func Normalize(payload *structs.WebhookPayload) (*structs.TradeRequest, error) {
	symbol, err := parseText("symbol", payload.Symbol)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(models.ErrValidation, "symbol is required")
	}

	orderType, err := parseText("order_type", payload.OrderType)
	if err != nil {
		return nil, err
	}

	action, err := parseText("action", payload.Action)
	if err != nil {
		return nil, err
	}

	kind, err := models.ParseOrderKind(orderType)
	if err != nil {
		return nil, err
	}

	volume, err := parseNumber("volume", payload.Volume)
	if err != nil {
		return nil, err
	}
	if volume <= 0 {
		return nil, errors.Wrapf(models.ErrValidation, "volume must be positive, got %g", volume)
	}

	price, err := parseNumber("price", payload.Price)
	if err != nil {
		return nil, err
	}
	if price < 0 || (kind.IsPending() && price == 0) {
		return nil, errors.Wrapf(models.ErrValidation, "invalid price %g for %s", price, kind)
	}

	sl, err := parseNumber("stop_loss", payload.StopLoss)
	if err != nil {
		return nil, err
	}

	tp, err := parseNumber("take_profit", payload.TakeProfit)
	if err != nil {
		return nil, err
	}

	return &structs.TradeRequest{
		Action:     strings.TrimSpace(action),
		Symbol:     symbol,
		Kind:       kind,
		Volume:     volume,
		Price:      price,
		StopLoss:   level(sl),
		TakeProfit: level(tp),
	}, nil
}

func parseText(field string, v interface{}) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", errors.Wrapf(models.ErrValidation, "%s: expected a string, got %T", field, v)
	}
}

// asText is the lenient form used for the audit record.
func asText(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func parseNumber(field string, v interface{}) (float64, error) {
	var out float64

	switch n := v.(type) {
	case nil:
		return 0, errors.Wrapf(models.ErrValidation, "%s is required", field)
	case float64:
		out = n
	case int:
		out = float64(n)
	case int64:
		out = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errors.Wrapf(models.ErrValidation, "%s: invalid number %q", field, n.String())
		}
		out = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, errors.Wrapf(models.ErrValidation, "%s: invalid number %q", field, n)
		}
		out = f
	default:
		return 0, errors.Wrapf(models.ErrValidation, "%s: unsupported type %T", field, v)
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, errors.Wrapf(models.ErrValidation, "%s: not a finite number", field)
	}

	return out, nil
}

// level maps the "no level" zero sent by alerting platforms to nil.
func level(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
