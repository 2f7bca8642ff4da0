package routes

import (
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/tracking"
	"github.com/rs/zerolog/log"
)

type locationUpdate struct {
	Latitude  float64
	Longitude float64

	RecordedAt time.Time

	RideID       string
	FirstContact bool
}

// VehiclesLocationRouter accepts ambulance location updates.
func VehiclesLocationRouter(router fiber.Router, queue rmq.Queue) {
	router.Post("/:identifier/location", func(c *fiber.Ctx) error {
		return publishLocation(c, queue, tracking.RoleVehicle)
	})
}

// UsersLocationRouter accepts candidate user location updates. Ride fields
// in the body are ignored.
func UsersLocationRouter(router fiber.Router, queue rmq.Queue) {
	router.Post("/:identifier/location", func(c *fiber.Ctx) error {
		identifier := c.Params("identifier")

		if accountID, ok := c.Locals("account_userid").(string); ok && accountID != identifier {
			c.SendStatus(fiber.StatusForbidden)
			return c.JSON(fiber.Map{
				"error": "Cannot update the location of another user",
			})
		}

		return publishLocation(c, queue, tracking.RoleCandidate)
	})
}

func publishLocation(c *fiber.Ctx, queue rmq.Queue, role tracking.Role) error {
	identifier := c.Params("identifier")

	var update locationUpdate
	if err := c.BodyParser(&update); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Could not parse location update",
		})
	}

	if err := geo.ValidateCoordinate(update.Latitude, update.Longitude); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	event := realtime.LocationEvent{
		EntityID:   identifier,
		Role:       role,
		Latitude:   update.Latitude,
		Longitude:  update.Longitude,
		RecordedAt: update.RecordedAt,
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}
	if role == tracking.RoleVehicle {
		event.RideID = update.RideID
		event.FirstContact = update.FirstContact
	}

	if err := realtime.PublishLocationEvent(queue, event); err != nil {
		log.Error().Err(err).Str("id", identifier).Msg("Failed to queue location event")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not queue location update",
		})
	}

	c.Status(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"status": "queued",
	})
}
