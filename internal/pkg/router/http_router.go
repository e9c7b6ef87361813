package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tradeforgehq/tradeforge/app/controllers"
	"github.com/tradeforgehq/tradeforge/app/repository"
	"github.com/tradeforgehq/tradeforge/internal/pkg/database"
	"github.com/tradeforgehq/tradeforge/internal/pkg/middleware"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Initialize admin repositories
	repository.InitializeFactory(database.GetDB())

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Payment provider webhook; signature verification happens in the
	// handler against the raw body.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	admin := app.Group("/admin/api", middleware.AdminKeyMiddleware())
	admin.Get("/licenses", controllers.HandleAdminListLicenses)
	admin.Get("/licenses/:key", controllers.HandleAdminGetLicense)
	admin.Post("/licenses/:key/revoke", controllers.HandleAdminRevokeLicense)
	admin.Get("/orders", controllers.HandleAdminListOrders)
	admin.Get("/subscriptions", controllers.HandleAdminListSubscriptions)
	admin.Get("/stats", controllers.HandleAdminStats)
}
