package controllers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/controllers"
)

func TestClientController_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "key", r.Header.Get(controllers.HeaderAPIKey))
			assert.Equal(t, "sig", r.Header.Get(controllers.HeaderSignature))
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write(body)
		case "/unknown":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-2011,"msg":"Unknown order sent."}`))
		case "/rejected":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":10016,"msg":"Invalid stops"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clientController := controllers.NewClientController(srv.Client(), "key", logger)
	ctx := context.Background()

	u := func(p string) *url.URL {
		out, err := url.Parse(srv.URL + p)
		require.NoError(t, err)
		return out
	}

	t.Run("ok", func(t *testing.T) {
		out, err := clientController.Send(ctx, http.MethodPost, u("/ok"), []byte(`{"a":1}`), map[string]string{controllers.HeaderSignature: "sig"})
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(out))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := clientController.Send(ctx, http.MethodGet, u("/unknown"), nil, nil)
		assert.True(t, errors.Is(err, controllers.ErrUnknownOrderSent))
	})

	t.Run("bridge error", func(t *testing.T) {
		_, err := clientController.Send(ctx, http.MethodGet, u("/rejected"), nil, nil)
		var bridgeErr *controllers.ErrStruct
		require.True(t, errors.As(err, &bridgeErr))
		assert.Equal(t, 10016, bridgeErr.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		_, err := clientController.Send(ctx, http.MethodGet, u("/other"), nil, nil)
		assert.EqualError(t, err, "statusCode 500; resp boom;")
	})
}

func TestCryptoController(t *testing.T) {
	c := controllers.NewCryptoController("secret")

	sig := c.GetSignature("payload")
	assert.Len(t, sig, 64)
	assert.True(t, c.Verify("payload", sig))
	assert.False(t, c.Verify("payload2", sig))
	assert.False(t, c.Verify("payload", "zz"))
}
