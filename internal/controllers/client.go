package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ClientController struct {
	client *http.Client
	logger *logrus.Logger

	apiKey string
}

func NewClientController(
	client *http.Client,
	apiKey string,
	logger *logrus.Logger,
) *ClientController {
	return &ClientController{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

const (
	HeaderAPIKey    = "X-API-KEY"
	HeaderSignature = "X-SIGNATURE"
	HeaderSession   = "X-SESSION"
	HeaderTimestamp = "X-TIMESTAMP"
)

var (
	ErrCodeUnknownOrderSent = -2011
	ErrUnknownOrderSent     = errors.New("unknown order sent")
)

// ErrStruct is the error body returned by the terminal bridge.
type ErrStruct struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *ErrStruct) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Msg)
}

func (c *ClientController) Send(ctx context.Context, method string, url *url.URL, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Add("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Add(HeaderAPIKey, c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.
			WithField("method", "Send").
			WithField("url", url.Path).
			WithField("status", resp.StatusCode).
			Debug(string(out))

		var errMsg ErrStruct
		if err := json.Unmarshal(out, &errMsg); err != nil || errMsg.Code == 0 {
			return nil, errors.Errorf("statusCode %d; resp %s;", resp.StatusCode, out)
		}

		switch errMsg.Code {
		case ErrCodeUnknownOrderSent:
			return nil, errors.Wrap(ErrUnknownOrderSent, errMsg.Msg)
		}

		return nil, &errMsg
	}

	return out, nil
}
