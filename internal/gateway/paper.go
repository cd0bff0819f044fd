package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mkhodaee16/ecb-bot/models"
)

// Call is one recorded paper gateway operation.
type Call struct {
	Login  string
	Op     string
	Ticket int64
	Order  *OrderRequest
	Modify *ModifyRequest
}

// Paper is an in-memory terminal used for dry runs and tests. Market orders
// fill at the current reference price, pending orders rest at their price.
type Paper struct {
	mu         sync.Mutex
	quotes     map[string]Quote
	reject     map[string]string
	failOps    map[string]error
	nextTicket int64
	active     int
	maxActive  int
	calls      []Call
}

func NewPaper() *Paper {
	return &Paper{
		quotes:     map[string]Quote{},
		reject:     map[string]string{},
		failOps:    map[string]error{},
		nextTicket: 1000,
	}
}

func (p *Paper) SetQuote(symbol string, bid, ask float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	p.quotes[symbol] = Quote{Symbol: symbol, Bid: bid, Ask: ask}
}

func (p *Paper) RemoveQuote(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.quotes, strings.ToUpper(symbol))
}

// Reject makes every order submitted for login fail with reason.
func (p *Paper) Reject(login, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reject[login] = reason
}

// Fail makes operation op ("modify", "cancel", "close", "connect") fail for login.
func (p *Paper) Fail(login, op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failOps[login+"/"+op] = err
}

func (p *Paper) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Call, len(p.calls))
	copy(out, p.calls)

	return out
}

// CallsOf returns the recorded operations named op.
func (p *Paper) CallsOf(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// MaxConcurrent is the highest number of sessions that were open at once.
func (p *Paper) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.maxActive
}

func (p *Paper) record(c Call) error {
	p.calls = append(p.calls, c)

	if err, ok := p.failOps[c.Login+"/"+c.Op]; ok {
		return err
	}
	return nil
}

func (p *Paper) Connect(_ context.Context, creds Credentials) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.record(Call{Login: creds.Login, Op: "connect"}); err != nil {
		return nil, err
	}

	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}

	return &paperSession{paper: p, login: creds.Login}, nil
}

type paperSession struct {
	paper *Paper
	login string
}

func (s *paperSession) Quote(_ context.Context, symbol string) (Quote, error) {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	q, ok := s.paper.quotes[strings.ToUpper(symbol)]
	if !ok {
		return Quote{}, errors.Wrapf(models.ErrTransientData, "no quote for %s", symbol)
	}

	return q, nil
}

func (s *paperSession) Submit(_ context.Context, req OrderRequest) (OrderResult, error) {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	order := req
	if err := s.paper.record(Call{Login: s.login, Op: "submit", Order: &order}); err != nil {
		return OrderResult{}, err
	}
	if reason, ok := s.paper.reject[s.login]; ok {
		return OrderResult{}, errors.Wrapf(models.ErrGateway, "order rejected: %s", reason)
	}

	price := req.Price
	if !req.Kind.IsPending() {
		q, ok := s.paper.quotes[strings.ToUpper(req.Symbol)]
		if ok {
			// market orders fill on the opposite side of the book
			if req.Kind.IsBuy() {
				price = q.Ask
			} else {
				price = q.Bid
			}
		}
	}

	s.paper.nextTicket++

	return OrderResult{Ticket: s.paper.nextTicket, Price: price, Status: "done"}, nil
}

func (s *paperSession) Modify(_ context.Context, req ModifyRequest) error {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	m := req
	return s.paper.record(Call{Login: s.login, Op: "modify", Ticket: req.Ticket, Modify: &m})
}

func (s *paperSession) Cancel(_ context.Context, ticket int64) error {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	return s.paper.record(Call{Login: s.login, Op: "cancel", Ticket: ticket})
}

func (s *paperSession) ClosePosition(_ context.Context, req CloseRequest) (float64, error) {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	if err := s.paper.record(Call{Login: s.login, Op: "close", Ticket: req.Ticket}); err != nil {
		return 0, err
	}

	q, ok := s.paper.quotes[strings.ToUpper(req.Symbol)]
	if !ok {
		return 0, errors.Wrapf(models.ErrTransientData, "no quote for %s", req.Symbol)
	}

	return req.Kind.ReferencePrice(q.Bid, q.Ask), nil
}

func (s *paperSession) Release(_ context.Context) error {
	s.paper.mu.Lock()
	defer s.paper.mu.Unlock()

	s.paper.active--
	return s.paper.record(Call{Login: s.login, Op: "release"})
}
