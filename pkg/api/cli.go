package api

import (
	"context"
	"time"

	"github.com/moveaside/moveaside/pkg/api/stats"
	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/elastic_client"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the location ingest and alert preview web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "YAML file overriding the alert engine configuration",
						EnvVars: []string{"MOVEASIDE_CONFIG_FILE"},
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					config, err := realtime.LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					engine, err := realtime.BuildEngine(c.Context, config)
					if err != nil {
						return err
					}

					locationQueue, err := redis_client.QueueConnection.OpenQueue(realtime.QueueName)
					if err != nil {
						return err
					}

					auth, err := EnsureValidToken()
					if err != nil {
						return err
					}

					go stats.UpdateRecordsStats(c.Context, database.Instance.Database, 5*time.Minute)

					return SetupServer(c.String("listen"), Dependencies{
						LocationQueue: locationQueue,
						Previewer:     engine,
						Auth:          auth,
						HealthCheck: func(ctx context.Context) error {
							if err := redis_client.Client.Ping(ctx).Err(); err != nil {
								return err
							}
							return database.Ping(ctx)
						},
					})
				},
			},
		},
	}
}
