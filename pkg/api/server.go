package api

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/moveaside/moveaside/pkg/api/routes"
	"github.com/moveaside/moveaside/pkg/api/stats"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	LocationQueue rmq.Queue
	Previewer     routes.AlertPreviewer

	// Auth guards the location endpoints, nil allows every request
	Auth fiber.Handler

	// HealthCheck returns an error when a backing service is down
	HealthCheck func(ctx context.Context) error
}

func NewApp(dependencies Dependencies) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	webApp.Get("/health", func(c *fiber.Ctx) error {
		if dependencies.HealthCheck != nil {
			if err := dependencies.HealthCheck(c.UserContext()); err != nil {
				c.SendStatus(fiber.StatusServiceUnavailable)
				return c.JSON(fiber.Map{
					"error": err.Error(),
				})
			}
		}

		return c.SendString("OK")
	})
	webApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)
	group.Get("stats", func(c *fiber.Ctx) error {
		recordsStats := stats.Current()
		if recordsStats == nil {
			c.SendStatus(fiber.StatusServiceUnavailable)
			return c.JSON(fiber.Map{
				"error": "Stats have not been computed yet",
			})
		}

		return c.JSON(recordsStats)
	})

	auth := dependencies.Auth
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	vehiclesGroup := group.Group("/vehicles", auth, RequireScope(VehicleScope))
	routes.VehiclesLocationRouter(vehiclesGroup, dependencies.LocationQueue)
	routes.AlertsRouter(vehiclesGroup, dependencies.Previewer)

	routes.UsersLocationRouter(group.Group("/users", auth), dependencies.LocationQueue)

	return webApp
}

func SetupServer(listen string, dependencies Dependencies) error {
	metrics.RegisterDefault()

	return NewApp(dependencies).Listen(listen)
}
