package http

import (
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Middleware struct {
	appName string
	fiber   *fiber.App
	logger  *logrus.Logger
}

func NewMiddleware(fiber *fiber.App, appName string, logger *logrus.Logger) *Middleware {
	return &Middleware{
		appName: appName,
		fiber:   fiber,
		logger:  logger,
	}
}

// Use installs the request metrics and access log. It must run before the
// routes are registered.
func (m *Middleware) Use() {
	m.useMetrics()
	m.fiber.Use(m.accessLog)
}

func (m *Middleware) useMetrics() {
	prometheus := fiberprometheus.New(m.appName)
	prometheus.RegisterAt(m.fiber, "/metrics")
	m.fiber.Use(prometheus.Middleware)
}

func (m *Middleware) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	m.logger.
		WithField("method", c.Method()).
		WithField("path", c.Path()).
		WithField("status", c.Response().StatusCode()).
		WithField("latency", time.Since(start)).
		Debug("http request")

	return err
}
