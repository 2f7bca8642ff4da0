package routes

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/corridor"
	"github.com/rs/zerolog/log"
)

type AlertPreviewer interface {
	Preview(ctx context.Context, vehicleID string, rideID string) (*alerting.CycleResult, error)
}

func AlertsRouter(router fiber.Router, previewer AlertPreviewer) {
	router.Get("/:identifier/alerts/preview", func(c *fiber.Ctx) error {
		return previewAlerts(c, previewer)
	})
	router.Get("/:identifier/alerts/zone", func(c *fiber.Ctx) error {
		return previewZone(c, previewer)
	})
}

func runPreview(c *fiber.Ctx, previewer AlertPreviewer) (*alerting.CycleResult, error) {
	result, err := previewer.Preview(c.UserContext(), c.Params("identifier"), c.Query("ride"))
	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(err, alerting.ErrVehicleNotFound):
		c.SendStatus(fiber.StatusNotFound)
		return nil, c.JSON(fiber.Map{
			"error": "Could not find a location for the vehicle",
		})
	case errors.Is(err, alerting.ErrRideNotFound):
		c.SendStatus(fiber.StatusNotFound)
		return nil, c.JSON(fiber.Map{
			"error": "Could not find ride matching Identifier",
		})
	case errors.Is(err, alerting.ErrCandidateFetchFailed):
		c.SendStatus(fiber.StatusServiceUnavailable)
		return nil, c.JSON(fiber.Map{
			"error": "Candidate locations are unavailable",
		})
	case errors.Is(err, corridor.ErrInvalidZoneParameters):
		c.SendStatus(fiber.StatusUnprocessableEntity)
		return nil, c.JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Error().Err(err).Str("vehicle", c.Params("identifier")).Msg("Failed to preview alert cycle")

		c.SendStatus(fiber.StatusInternalServerError)
		return nil, c.JSON(fiber.Map{
			"error": "Could not preview alert cycle",
		})
	}
}

func previewAlerts(c *fiber.Ctx, previewer AlertPreviewer) error {
	result, err := runPreview(c, previewer)
	if result == nil {
		return err
	}

	groups := []string{"basic"}
	if c.QueryBool("detailed") {
		groups = append(groups, "detailed")
	}

	resultReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, result)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce alert cycle",
		})
	}

	return c.JSON(resultReduced)
}

// previewZone returns the zone as a GeoJSON geometry for map overlays.
func previewZone(c *fiber.Ctx, previewer AlertPreviewer) error {
	result, err := runPreview(c, previewer)
	if result == nil {
		return err
	}

	return c.JSON(fiber.Map{
		"kind":     result.Zone.Kind,
		"heading":  result.Zone.Heading,
		"geometry": result.Zone.GeoJSON(),
	})
}
