package gateway_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/gateway"
	"github.com/mkhodaee16/ecb-bot/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGuard_Serialises(t *testing.T) {
	paper := gateway.NewPaper()
	paper.SetQuote("EURUSD", 1.1, 1.1002)
	guard := gateway.NewGuard(paper, 5*time.Second, time.Second, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account := &models.Account{Login: strconv.Itoa(i)}
			err := guard.WithSession(context.Background(), account, func(ctx context.Context, s gateway.Session) error {
				time.Sleep(2 * time.Millisecond)
				_, err := s.Quote(ctx, "EURUSD")
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, paper.MaxConcurrent())
	assert.Len(t, paper.CallsOf("connect"), 8)
	assert.Len(t, paper.CallsOf("release"), 8)
}

func TestGuard_ReleasesOnError(t *testing.T) {
	paper := gateway.NewPaper()
	guard := gateway.NewGuard(paper, time.Second, time.Second, quietLogger())
	account := &models.Account{Login: "1"}

	err := guard.WithSession(context.Background(), account, func(ctx context.Context, s gateway.Session) error {
		_, err := s.Quote(ctx, "MISSING")
		return err
	})
	assert.True(t, errors.Is(err, models.ErrTransientData))
	assert.Len(t, paper.CallsOf("release"), 1)

	boom := errors.New("boom")
	err = guard.WithSession(context.Background(), account, func(context.Context, gateway.Session) error {
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Len(t, paper.CallsOf("release"), 2)
}

func TestGuard_ConnectFailure(t *testing.T) {
	paper := gateway.NewPaper()
	paper.Fail("1", "connect", errors.New("invalid account"))
	guard := gateway.NewGuard(paper, time.Second, time.Second, quietLogger())

	called := false
	err := guard.WithSession(context.Background(), &models.Account{Login: "1"}, func(context.Context, gateway.Session) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, errors.Is(err, models.ErrGateway))
	assert.Empty(t, paper.CallsOf("release"))
}

func TestGuard_AcquireTimeout(t *testing.T) {
	paper := gateway.NewPaper()
	guard := gateway.NewGuard(paper, 20*time.Millisecond, time.Second, quietLogger())
	account := &models.Account{Login: "1"}

	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = guard.WithSession(context.Background(), account, func(context.Context, gateway.Session) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered

	err := guard.WithSession(context.Background(), account, func(context.Context, gateway.Session) error {
		return nil
	})
	close(hold)

	assert.True(t, errors.Is(err, models.ErrGateway))
}

func TestPaper_Submit(t *testing.T) {
	paper := gateway.NewPaper()
	paper.SetQuote("EURUSD", 1.1, 1.1002)
	paper.Reject("bad", "no money")
	guard := gateway.NewGuard(paper, time.Second, time.Second, quietLogger())
	ctx := context.Background()

	var market, pending gateway.OrderResult
	err := guard.WithSession(ctx, &models.Account{Login: "good"}, func(ctx context.Context, s gateway.Session) error {
		var err error
		if market, err = s.Submit(ctx, gateway.NewOrderRequest("EURUSD", models.MarketBuy, 1, 0, nil, nil)); err != nil {
			return err
		}
		pending, err = s.Submit(ctx, gateway.NewOrderRequest("EURUSD", models.SellLimit, 1, 1.2, nil, nil))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1.1002, market.Price)
	assert.Equal(t, 1.2, pending.Price)
	assert.NotEqual(t, market.Ticket, pending.Ticket)

	submits := paper.CallsOf("submit")
	require.Len(t, submits, 2)
	assert.Equal(t, gateway.Deviation, submits[0].Order.Deviation)
	assert.Equal(t, gateway.Magic, submits[0].Order.Magic)
	assert.Equal(t, "GTC", submits[0].Order.TimeInForce)
	assert.Equal(t, "IOC", submits[0].Order.Filling)

	err = guard.WithSession(ctx, &models.Account{Login: "bad"}, func(ctx context.Context, s gateway.Session) error {
		_, err := s.Submit(ctx, gateway.NewOrderRequest("EURUSD", models.MarketBuy, 1, 0, nil, nil))
		return err
	})
	assert.True(t, errors.Is(err, models.ErrGateway))
}
