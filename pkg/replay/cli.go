package replay

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Replay a recorded CSV track through the alert engine without sending pushes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "track",
				Usage:    "CSV file with recorded_at,role,entity_id,latitude,longitude columns",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file overriding the alert engine configuration",
				EnvVars: []string{"MOVEASIDE_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "ride",
				Usage: "ride id to register before replaying",
			},
			&cli.Float64SliceFlag{
				Name:  "drop",
				Usage: "drop point of the ride as --drop <lat> --drop <lon>",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print every cycle result",
			},
		},
		Action: func(c *cli.Context) error {
			config, err := realtime.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}

			file, err := os.Open(c.String("track"))
			if err != nil {
				return err
			}
			defer file.Close()

			points, err := ParseTrack(file)
			if err != nil {
				return err
			}

			replayer := NewReplayer(config)

			if rideID := c.String("ride"); rideID != "" {
				ride := alerting.RideContext{RideID: rideID, Status: alerting.RideStatusStarted}

				if drop := c.Float64Slice("drop"); len(drop) > 0 {
					if len(drop) != 2 {
						return fmt.Errorf("drop point needs a latitude and a longitude")
					}
					dropPoint := geo.Point{Latitude: drop[0], Longitude: drop[1]}
					if err := dropPoint.Validate(); err != nil {
						return err
					}
					ride.DropPoint = &dropPoint
				}

				replayer.Memory.PutRide(ride)
			}

			summary, err := replayer.Run(c.Context, points)
			if err != nil {
				return err
			}

			log.Info().
				Int("points", summary.Points).
				Int("cycles", summary.Cycles).
				Int("failed", summary.Failed).
				Int("batches", summary.Batches).
				Int("notifications", summary.Notifications).
				Msg("Replay complete")

			if c.Bool("verbose") {
				pretty.Println(summary.Results)
			}
			pretty.Println(summary.Notified)

			return nil
		},
	}
}
