package archiver

import (
	"time"

	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "archiver",
		Usage: "Moves old notification records out of the database",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run archiver - takes notifications out of the database and puts them in object store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output-directory",
						Usage:    "Directory to write output files to",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "retention",
						Value: 7 * 24 * time.Hour,
						Usage: "Keep notifications newer than this in the database",
					},
					&cli.StringFlag{
						Name:    "cloud-bucket-name",
						Usage:   "Upload the bundle to this GCS bucket",
						EnvVars: []string{"MOVEASIDE_ARCHIVE_BUCKET"},
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					archiver := Archiver{
						OutputDirectory: c.String("output-directory"),
						RetentionPeriod: c.Duration("retention"),
						CloudUpload:     c.String("cloud-bucket-name") != "",
						CloudBucketName: c.String("cloud-bucket-name"),
					}

					_, err := archiver.Perform(c.Context, database.GetCollection(store.NotificationsCollection), time.Now())
					return err
				},
			},
		},
	}
}
