package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkhodaee16/ecb-bot/internal/usecasees/structs"
)

// InitMetrics registers the domain metrics on the default registry, which
// is the one served at /metrics.
func (a *App) InitMetrics() {
	a.Metrics = structs.NewMetrics(prometheus.DefaultRegisterer)
}
