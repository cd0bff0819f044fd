package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/controllers"
	"github.com/mkhodaee16/ecb-bot/models"
)

const (
	loginUrlPath  = "/api/v1/login"
	logoutUrlPath = "/api/v1/logout"
	quoteUrlPath  = "/api/v1/quote"
	orderUrlPath  = "/api/v1/order"
	modifyUrlPath = "/api/v1/modify"
	cancelUrlPath = "/api/v1/cancel"
	closeUrlPath  = "/api/v1/close"

	// bridge code for a symbol without a current tick
	codeNoQuote = -1121
)

// Bridge talks to the terminal through its signed HTTP bridge.
type Bridge struct {
	clientController controllers.ClientCtrl
	cryptoController controllers.CryptoCtrl

	url    string
	logger *logrus.Logger
}

func NewBridge(
	client controllers.ClientCtrl,
	crypto controllers.CryptoCtrl,
	url string,
	logger *logrus.Logger,
) *Bridge {
	return &Bridge{
		clientController: client,
		cryptoController: crypto,
		url:              url,
		logger:           logger,
	}
}

func (b *Bridge) Connect(ctx context.Context, creds Credentials) (Session, error) {
	var resp struct {
		Session string `json:"session"`
	}
	if err := b.call(ctx, "", http.MethodPost, loginUrlPath, nil, creds, &resp); err != nil {
		return nil, err
	}
	if resp.Session == "" {
		return nil, errors.Wrapf(models.ErrGateway, "login %s: empty session", creds.Login)
	}

	return &bridgeSession{bridge: b, id: resp.Session}, nil
}

func (b *Bridge) call(ctx context.Context, session, method, urlPath string, query url.Values, in, out interface{}) error {
	bURL, err := url.Parse(b.url)
	if err != nil {
		return err
	}
	bURL.Path = path.Join(bURL.Path, urlPath)
	if query != nil {
		bURL.RawQuery = query.Encode()
	}

	var body []byte
	if in != nil {
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	headers := map[string]string{
		controllers.HeaderTimestamp: ts,
		controllers.HeaderSignature: b.cryptoController.GetSignature(SigningPayload(ts, method, bURL.Path, bURL.RawQuery, body)),
	}
	if session != "" {
		headers[controllers.HeaderSession] = session
	}

	resp, err := b.clientController.Send(ctx, method, bURL, body, headers)
	if err != nil {
		return b.classify(urlPath, err)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(resp, out)
}

func (b *Bridge) classify(urlPath string, err error) error {
	if errors.Is(err, controllers.ErrUnknownOrderSent) {
		return errors.Wrap(models.ErrNotFound, err.Error())
	}

	var bridgeErr *controllers.ErrStruct
	if errors.As(err, &bridgeErr) && bridgeErr.Code == codeNoQuote {
		return errors.Wrap(models.ErrTransientData, bridgeErr.Msg)
	}

	b.logger.
		WithField("method", "call").
		WithField("path", urlPath).
		WithError(err).
		Debug("bridge call failed")

	return errors.Wrap(models.ErrGateway, err.Error())
}

// SigningPayload is the string the bridge recomputes to verify X-SIGNATURE.
func SigningPayload(ts, method, urlPath, rawQuery string, body []byte) string {
	return ts + method + urlPath + "?" + rawQuery + string(body)
}

type bridgeSession struct {
	bridge *Bridge
	id     string
}

func (s *bridgeSession) Quote(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	err := s.bridge.call(ctx, s.id, http.MethodGet, quoteUrlPath, url.Values{"symbol": {symbol}}, nil, &q)
	if err != nil {
		return Quote{}, err
	}
	if q.Bid <= 0 || q.Ask <= 0 {
		return Quote{}, errors.Wrapf(models.ErrTransientData, "no quote for %s", symbol)
	}

	return q, nil
}

func (s *bridgeSession) Submit(ctx context.Context, req OrderRequest) (OrderResult, error) {
	var res OrderResult
	if err := s.bridge.call(ctx, s.id, http.MethodPost, orderUrlPath, nil, req, &res); err != nil {
		return OrderResult{}, err
	}
	if res.Ticket == 0 {
		return res, errors.Wrapf(models.ErrGateway, "order rejected: %s %s", res.Status, res.Message)
	}

	return res, nil
}

func (s *bridgeSession) Modify(ctx context.Context, req ModifyRequest) error {
	// the terminal keeps a level that is left out, 0 removes it
	in := struct {
		Ticket     int64    `json:"ticket"`
		Symbol     string   `json:"symbol"`
		Price      *float64 `json:"price,omitempty"`
		StopLoss   float64  `json:"sl"`
		TakeProfit float64  `json:"tp"`
	}{
		Ticket:     req.Ticket,
		Symbol:     req.Symbol,
		Price:      req.Price,
		StopLoss:   orZero(req.StopLoss),
		TakeProfit: orZero(req.TakeProfit),
	}

	return s.bridge.call(ctx, s.id, http.MethodPost, modifyUrlPath, nil, in, nil)
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *bridgeSession) Cancel(ctx context.Context, ticket int64) error {
	in := struct {
		Ticket int64 `json:"ticket"`
	}{Ticket: ticket}

	return s.bridge.call(ctx, s.id, http.MethodPost, cancelUrlPath, nil, in, nil)
}

func (s *bridgeSession) ClosePosition(ctx context.Context, req CloseRequest) (float64, error) {
	var out struct {
		Price float64 `json:"price"`
	}
	if err := s.bridge.call(ctx, s.id, http.MethodPost, closeUrlPath, nil, req, &out); err != nil {
		return 0, err
	}

	return out.Price, nil
}

func (s *bridgeSession) Release(ctx context.Context) error {
	return s.bridge.call(ctx, s.id, http.MethodPost, logoutUrlPath, nil, nil, nil)
}
