package http

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterHTTPEndpoints(f *fiber.App, h *Handler) {
	f.Post("/webhook", h.Webhook)

	router := f.Group("api")
	router.Get("/healthcheck", h.HealthCheck)

	router.Get("/positions", h.Positions)
	router.Get("/position/:id", h.Position)
	router.Post("/position/:ticket/close", h.ClosePosition)
	router.Post("/position/:ticket/update", h.UpdatePosition)
	router.Post("/position/:ticket/cancel", h.CancelPosition)

	router.Get("/webhooks", h.Signals)
	router.Get("/webhook/:id", h.Signal)
	router.Get("/accounts", h.Accounts)
	router.Get("/trades", h.TradeLogs)
}
