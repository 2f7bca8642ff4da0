package realtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moveaside/moveaside/pkg/consumer"
	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/elastic_client"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const numConsumers = 5
const batchSize = 50

func waitForShutdown() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	<-signals // wait for signal
	go func() {
		<-signals // hard exit on second signal (in case shutdown gets stuck)
		os.Exit(1)
	}()
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "alert-engine",
		Usage: "Consumes location updates and alerts users ahead of emergency vehicles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file overriding the engine thresholds",
				EnvVars: []string{"MOVEASIDE_CONFIG_FILE"},
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the alert engine",
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					engine, err := BuildEngine(ctx, config)
					if err != nil {
						return err
					}

					sequencer := NewSequencer(ctx, ProcessWithEngine(engine))

					redisConsumer := consumer.RedisConsumer{
						QueueName:       QueueName,
						NumberConsumers: numConsumers,
						BatchSize:       batchSize,
						Timeout:         time.Second,
						Consumer:        NewLocationBatchConsumer(engine, sequencer),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					go consumer.StartStatsServer(QueueName)

					waitForShutdown()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
					sequencer.Wait()
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the location queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					log.Info().Str("queue", QueueName).Msg("Starting queue cleaner")
					go consumer.StartCleaner(5 * time.Minute)

					waitForShutdown()

					return nil
				},
			},
		},
	}
}

func RegisterGTFSRealtimeCLI() *cli.Command {
	return &cli.Command{
		Name:  "gtfs-rt",
		Usage: "Ingests vehicle positions from a GTFS-realtime feed",
		Subcommands: []*cli.Command{
			{
				Name:  "poll",
				Usage: "poll a VehiclePositions feed and queue location events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "VehiclePositions feed URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "api-key",
						EnvVars: []string{"MOVEASIDE_GTFS_RT_API_KEY"},
					},
					&cli.DurationFlag{
						Name:  "interval",
						Value: 15 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "max-age",
						Value: 5 * time.Minute,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
					if err != nil {
						return err
					}

					ingest := &GTFSRealtimeIngest{
						URL:    c.String("url"),
						APIKey: c.String("api-key"),
						Queue:  queue,
						MaxAge: c.Duration("max-age"),
					}

					ctx, cancel := context.WithCancel(c.Context)
					go ingest.Run(ctx, c.Duration("interval"))

					waitForShutdown()
					cancel()

					return nil
				},
			},
		},
	}
}

func RegisterStompCLI() *cli.Command {
	return &cli.Command{
		Name:  "telematics",
		Usage: "Ingests location events from a STOMP telematics feed",
		Subcommands: []*cli.Command{
			{
				Name:  "stomp",
				Usage: "subscribe to a STOMP destination and queue location events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Value:   "localhost:61613",
						EnvVars: []string{"MOVEASIDE_STOMP_ADDRESS"},
					},
					&cli.StringFlag{
						Name:    "username",
						EnvVars: []string{"MOVEASIDE_STOMP_USERNAME"},
					},
					&cli.StringFlag{
						Name:    "password",
						EnvVars: []string{"MOVEASIDE_STOMP_PASSWORD"},
					},
					&cli.StringFlag{
						Name:     "destination",
						Usage:    "queue or topic to subscribe to",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
					if err != nil {
						return err
					}

					ingest := &StompIngest{
						Address:     c.String("address"),
						Username:    c.String("username"),
						Password:    c.String("password"),
						Destination: c.String("destination"),
						Queue:       queue,
					}

					ctx, cancel := context.WithCancel(c.Context)
					errs := make(chan error, 1)
					go func() {
						errs <- ingest.Run(ctx)
					}()

					go func() {
						waitForShutdown()
						cancel()
					}()

					return <-errs
				},
			},
		},
	}
}
