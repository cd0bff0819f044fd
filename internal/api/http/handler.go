package http

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

type SignalIngester interface {
	Ingest(ctx context.Context, payload *structs.WebhookPayload) (*structs.SignalResponse, error)
}

type PositionOperator interface {
	Close(ctx context.Context, ticket int64) (*models.Position, error)
	Modify(ctx context.Context, ticket int64, in *structs.ModifyPayload) (*models.Position, error)
	Cancel(ctx context.Context, ticket int64) (*models.Position, error)
}

type Querier interface {
	Positions(ctx context.Context, limit int) ([]models.Position, error)
	ActivePositions(ctx context.Context) ([]models.Position, error)
	Position(ctx context.Context, id int64) (*models.Position, error)
	Signals(ctx context.Context, limit int) ([]models.Signal, error)
	Signal(ctx context.Context, id int64) (*models.Signal, error)
	Accounts(ctx context.Context) ([]models.Account, error)
	TradeLogs(ctx context.Context, limit int) ([]models.TradeLog, error)
}

type Handler struct {
	signals   SignalIngester
	positions PositionOperator
	query     Querier
	logger    *logrus.Logger
}

func NewHandler(signals SignalIngester, positions PositionOperator, query Querier, l *logrus.Logger) *Handler {
	return &Handler{
		signals:   signals,
		positions: positions,
		query:     query,
		logger:    l,
	}
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	body := struct {
		Status bool `json:"status"`
	}{
		Status: true,
	}

	return c.JSON(body)
}

// Webhook accepts a trade signal. The body is decoded regardless of the
// declared content type since alert senders often post JSON as text/plain.
// A body that does not decode still goes to Ingest so it is recorded.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	var payload structs.WebhookPayload

	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		payload = structs.WebhookPayload{DecodeErr: err}
	}

	resp, err := h.signals.Ingest(c.UserContext(), &payload)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

func (h *Handler) ClosePosition(c *fiber.Ctx) error {
	ticket, err := paramInt(c, "ticket")
	if err != nil {
		return err
	}

	p, err := h.positions.Close(c.UserContext(), ticket)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "position": p})
}

func (h *Handler) UpdatePosition(c *fiber.Ctx) error {
	ticket, err := paramInt(c, "ticket")
	if err != nil {
		return err
	}

	var in structs.ModifyPayload
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return errors.Wrap(models.ErrValidation, "malformed JSON body")
	}

	p, err := h.positions.Modify(c.UserContext(), ticket, &in)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "position": p})
}

func (h *Handler) CancelPosition(c *fiber.Ctx) error {
	ticket, err := paramInt(c, "ticket")
	if err != nil {
		return err
	}

	p, err := h.positions.Cancel(c.UserContext(), ticket)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "position": p})
}

// Positions lists recent positions, or only Pending/Open ones with ?active=true.
func (h *Handler) Positions(c *fiber.Ctx) error {
	var (
		positions []models.Position
		err       error
	)
	if c.Query("active") == "true" {
		positions, err = h.query.ActivePositions(c.UserContext())
	} else {
		positions, err = h.query.Positions(c.UserContext(), queryInt(c, "limit"))
	}
	if err != nil {
		return err
	}

	return c.JSON(nonNil(positions))
}

func (h *Handler) Position(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}

	p, err := h.query.Position(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

func (h *Handler) Signals(c *fiber.Ctx) error {
	signals, err := h.query.Signals(c.UserContext(), queryInt(c, "limit"))
	if err != nil {
		return err
	}

	return c.JSON(nonNil(signals))
}

func (h *Handler) Signal(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}

	s, err := h.query.Signal(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(s)
}

func (h *Handler) Accounts(c *fiber.Ctx) error {
	accounts, err := h.query.Accounts(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(nonNil(accounts))
}

func (h *Handler) TradeLogs(c *fiber.Ctx) error {
	logs, err := h.query.TradeLogs(c.UserContext(), queryInt(c, "limit"))
	if err != nil {
		return err
	}

	return c.JSON(nonNil(logs))
}

func paramInt(c *fiber.Ctx, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.Wrapf(models.ErrValidation, "invalid %s %q", name, c.Params(name))
	}
	return v, nil
}

func queryInt(c *fiber.Ctx, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
