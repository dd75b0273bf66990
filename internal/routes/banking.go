package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/banking"
	"github.com/nile-pay/nile_pay/internal/middleware"
)

// RegisterBankingRoutes mounts the banking endpoints. Every route requires a
// caller identity.
func RegisterBankingRoutes(router fiber.Router, handler *banking.Handler) {
	group := router.Group("/banking", middleware.AuthContext())

	group.Post("/withdrawals", handler.Withdraw)
	group.Post("/deposits", handler.Deposit)
	group.Post("/transfers", handler.Transfer)
	group.Post("/conversions", handler.Convert)
	group.Get("/history", handler.History)
	group.Get("/balance", handler.Balance)
}
