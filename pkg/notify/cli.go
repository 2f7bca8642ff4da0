package notify

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/moveaside/moveaside/pkg/consumer"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the push notification sender",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "send push batches queued by the alert engine",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					sender, err := NewFirebaseSender(c.Context)
					if err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       QueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewNotifyBatchConsumer(sender),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					go consumer.StartStatsServer(QueueName)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "send-test",
				Usage: "send a test push notification to device tokens",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "token",
						Usage:    "FCM device token (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Value: "Emergency Vehicle Alert",
					},
					&cli.StringFlag{
						Name:  "message",
						Value: "An ambulance is coming. Please move aside",
					},
				},
				Action: func(c *cli.Context) error {
					sender, err := NewFirebaseSender(c.Context)
					if err != nil {
						return err
					}

					ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
					defer cancel()

					tokens := c.StringSlice("token")
					err = sender.SendBatch(ctx, tokens, c.String("title"), c.String("message"))
					pretty.Println(map[string]interface{}{
						"tokens": tokens,
						"error":  err,
					})

					return err
				},
			},
		},
	}
}
