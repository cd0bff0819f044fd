package gateway

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/models"
)

const releaseTimeout = 5 * time.Second

// Guard serialises every connect/operate/release sequence process wide.
type Guard struct {
	gateway Gateway
	slot    chan struct{}
	logger  *logrus.Logger

	acquireTimeout time.Duration
	callTimeout    time.Duration
}

func NewGuard(gw Gateway, acquireTimeout, callTimeout time.Duration, logger *logrus.Logger) *Guard {
	return &Guard{
		gateway:        gw,
		slot:           make(chan struct{}, 1),
		logger:         logger,
		acquireTimeout: acquireTimeout,
		callTimeout:    callTimeout,
	}
}

func (g *Guard) acquire(ctx context.Context) error {
	if g.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.acquireTimeout)
		defer cancel()
	}

	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(models.ErrGateway, "gateway busy: "+ctx.Err().Error())
	}
}

func (g *Guard) release() {
	<-g.slot
}

// WithSession logs in as account, runs fn and always releases the session
// before giving up the slot. Errors from the gateway are tagged ErrGateway.
func (g *Guard) WithSession(ctx context.Context, account *models.Account, fn func(ctx context.Context, s Session) error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()

	connectCtx, cancel := g.bound(ctx)
	s, err := g.gateway.Connect(connectCtx, CredentialsOf(account))
	cancel()
	if err != nil {
		return asGatewayError(errors.Wrapf(err, "connect %s", account.Login))
	}

	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		if err := s.Release(relCtx); err != nil {
			g.logger.
				WithField("method", "WithSession").
				WithField("account", account.Login).
				WithError(err).
				Warn("release session")
		}
	}()

	return fn(ctx, &timedSession{Session: s, bound: g.bound})
}

func (g *Guard) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

// asGatewayError keeps more specific kinds and tags the rest as gateway failures.
func asGatewayError(err error) error {
	if err == nil {
		return nil
	}
	switch models.KindOf(err) {
	case models.KindInternal:
		return &gatewayError{cause: err}
	default:
		return err
	}
}

type gatewayError struct {
	cause error
}

func (e *gatewayError) Error() string { return e.cause.Error() }

func (e *gatewayError) Unwrap() error { return e.cause }

func (e *gatewayError) Is(target error) bool { return target == models.ErrGateway }

type timedSession struct {
	Session
	bound func(context.Context) (context.Context, context.CancelFunc)
}

func (s *timedSession) Quote(ctx context.Context, symbol string) (Quote, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	q, err := s.Session.Quote(ctx, symbol)
	return q, asGatewayError(err)
}

func (s *timedSession) Submit(ctx context.Context, req OrderRequest) (OrderResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.Session.Submit(ctx, req)
	return res, asGatewayError(err)
}

func (s *timedSession) Modify(ctx context.Context, req ModifyRequest) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return asGatewayError(s.Session.Modify(ctx, req))
}

func (s *timedSession) Cancel(ctx context.Context, ticket int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return asGatewayError(s.Session.Cancel(ctx, ticket))
}

func (s *timedSession) ClosePosition(ctx context.Context, req CloseRequest) (float64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	price, err := s.Session.ClosePosition(ctx, req)
	return price, asGatewayError(err)
}

// Release is owned by the guard.
func (s *timedSession) Release(context.Context) error {
	return nil
}
