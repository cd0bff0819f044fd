package telemetry_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/telemetry"
)

func TestHub_Publish(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := telemetry.NewHub(logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(telemetry.EventPriceUpdate, map[string]interface{}{
		"prices": map[string]interface{}{"EURUSD": map[string]float64{"bid": 1.1, "ask": 1.1002, "change": 0}},
	})

	var msg struct {
		Event string `json:"event"`
		Data  struct {
			Prices map[string]struct {
				Bid float64 `json:"bid"`
			} `json:"prices"`
		} `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, telemetry.EventPriceUpdate, msg.Event)
	assert.Equal(t, 1.1, msg.Data.Prices["EURUSD"].Bid)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
