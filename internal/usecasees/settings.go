package usecasees

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/internal/repository/mongo"
	"github.com/mkhodaee16/ecb-bot/models"
)

const settingsLoadTimeout = 2 * time.Second

// Tunables are the reconciler parameters that may vary per symbol.
type Tunables struct {
	TrailDistance    float64
	ProfitMultiplier float64
}

type cachedTunables struct {
	value   Tunables
	expires time.Time
}

// SettingsResolver overlays per-symbol settings from the settings store on
// top of the configured defaults. A nil repo yields the defaults.
type SettingsResolver struct {
	settingsRepo mongo.SettingsRepo
	defaults     Tunables
	ttl          time.Duration
	loadTimeout  time.Duration
	logger       *logrus.Logger

	mu    sync.Mutex
	cache map[string]cachedTunables
}

func NewSettingsResolver(
	settingsRepo mongo.SettingsRepo,
	defaults Tunables,
	ttl time.Duration,
	logger *logrus.Logger,
) *SettingsResolver {
	return &SettingsResolver{
		settingsRepo: settingsRepo,
		defaults:     defaults,
		ttl:          ttl,
		loadTimeout:  settingsLoadTimeout,
		logger:       logger,
		cache:        map[string]cachedTunables{},
	}
}

func (r *SettingsResolver) For(ctx context.Context, symbol string) Tunables {
	if r == nil {
		return Tunables{}
	}
	if r.settingsRepo == nil {
		return r.defaults
	}

	symbol = strings.ToUpper(symbol)
	now := time.Now()

	r.mu.Lock()
	c, ok := r.cache[symbol]
	r.mu.Unlock()
	if ok && now.Before(c.expires) {
		return c.value
	}

	out := r.defaults
	// a stalled store must not hold up the cycle
	loadCtx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	s, err := r.settingsRepo.Load(loadCtx, symbol)
	cancel()
	switch {
	case err == nil:
		if !s.Enabled() {
			out.TrailDistance = 0
		} else if s.TrailDistance > 0 {
			out.TrailDistance = s.TrailDistance
		}
		if s.ProfitMultiplier > 0 {
			out.ProfitMultiplier = s.ProfitMultiplier
		}
	case errors.Is(err, models.ErrNotFound):
	default:
		r.logger.
			WithField("method", "SettingsResolver.For").
			WithField("symbol", symbol).
			WithError(err).
			Warn("load settings, using defaults")
		return out
	}

	r.mu.Lock()
	r.cache[symbol] = cachedTunables{value: out, expires: now.Add(r.ttl)}
	r.mu.Unlock()

	return out
}
