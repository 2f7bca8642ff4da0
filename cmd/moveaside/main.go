package main

import (
	"os"
	"time"

	"github.com/moveaside/moveaside/pkg/api"
	"github.com/moveaside/moveaside/pkg/archiver"
	"github.com/moveaside/moveaside/pkg/dbwatch"
	"github.com/moveaside/moveaside/pkg/notify"
	"github.com/moveaside/moveaside/pkg/realtime"
	"github.com/moveaside/moveaside/pkg/replay"
	"github.com/moveaside/moveaside/pkg/siri_vm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if os.Getenv("MOVEASIDE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("MOVEASIDE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "moveaside",
		Description: "Single binary for the emergency vehicle proximity alert services",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			realtime.RegisterCLI(),
			realtime.RegisterGTFSRealtimeCLI(),
			realtime.RegisterStompCLI(),
			siri_vm.RegisterCLI(),
			dbwatch.RegisterCLI(),
			archiver.RegisterCLI(),
			notify.RegisterCLI(),
			replay.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
