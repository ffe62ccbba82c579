package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arvault/arvault/internal/exchange"
)

// RegisterExchangeRoutes wires account, rate, log and exchange endpoints.
// submit runs in front of POST /exchange only.
func RegisterExchangeRoutes(r fiber.Router, h *exchange.Handler, submit ...fiber.Handler) {
	r.Get("/accounts", h.Accounts)
	r.Put("/accounts/:id/balance", h.SetAccountBalance)
	r.Get("/rates", h.Rates)
	r.Put("/rates", h.SetRate)
	r.Get("/log", h.Log)
	handlers := append(append([]fiber.Handler{}, submit...), h.Exchange)
	r.Post("/exchange", handlers...)
}
