package siri_vm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	if _, err := os.Stat(source); err == nil {
		return os.Open(source)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		response.Body.Close()
		return nil, fmt.Errorf("SIRI-VM source returned %s", response.Status)
	}

	return response.Body, nil
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "siri-vm",
		Usage: "Ingests vehicle locations from a SIRI Vehicle Monitoring source",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "read a SIRI-VM file or URL and queue location events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "file path or URL of the SIRI-VM document",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "repeat-every",
						Usage: "poll the source at this interval instead of importing once",
					},
					&cli.DurationFlag{
						Name:  "max-age",
						Value: 20 * time.Minute,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(realtime.QueueName)
					if err != nil {
						return err
					}

					importOnce := func() error {
						reader, err := fetch(c.Context, c.String("source"))
						if err != nil {
							return err
						}
						defer reader.Close()

						siriVM, err := ParseXMLFile(reader)
						if err != nil {
							return err
						}

						siriVM.SubmitToProcessQueue(queue, time.Now(), c.Duration("max-age"))
						return nil
					}

					interval := c.Duration("repeat-every")
					if interval == 0 {
						return importOnce()
					}

					for {
						if err := importOnce(); err != nil {
							log.Error().Err(err).Str("source", c.String("source")).Msg("Failed to import SIRI-VM")
						}

						select {
						case <-c.Context.Done():
							return nil
						case <-time.After(interval):
						}
					}
				},
			},
		},
	}
}
