package dbwatch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "dbwatch",
		Usage: "Watches the database and raises ride events",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the rides watcher",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					locationQueue, err := redis_client.QueueConnection.OpenQueue(realtime.QueueName)
					if err != nil {
						return err
					}

					log.Info().Msg("Starting dbwatch server")

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					rides := NewRidesWatch(locationQueue, store.NewMongoStore(database.Instance.Database))
					go rides.Run(ctx, database.Instance.Database)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					return nil
				},
			},
		},
	}
}
