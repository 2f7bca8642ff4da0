package realtime

import (
	"context"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/notify"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/moveaside/moveaside/pkg/store"
	"github.com/moveaside/moveaside/pkg/util"
	"github.com/rs/zerolog/log"
)

// LoadConfig reads the engine configuration from the environment and the
// optional YAML file.
func LoadConfig(configPath string) (alerting.Config, error) {
	config := alerting.GetConfig()

	if configPath != "" {
		var err error
		config, err = alerting.LoadConfigFile(configPath, config)
		if err != nil {
			return config, err
		}
	}

	return config, config.Validate()
}

// BuildEngine wires the engine against MongoDB, Redis and the configured
// push sender. The database and redis connections must already be open.
func BuildEngine(ctx context.Context, config alerting.Config) (*alerting.Engine, error) {
	mongoStore := store.NewMongoStore(database.Instance.Database)

	var sender notify.Sender
	if util.GetEnvironmentVariables()["MOVEASIDE_NOTIFY_VIA_QUEUE"] == "YES" {
		queue, err := redis_client.QueueConnection.OpenQueue(notify.QueueName)
		if err != nil {
			return nil, err
		}
		sender = &notify.QueueSender{Queue: queue}

		log.Info().Str("queue", notify.QueueName).Msg("Push batches will be queued")
	} else {
		firebaseSender, err := notify.NewFirebaseSender(ctx)
		if err != nil {
			return nil, err
		}
		sender = firebaseSender
	}

	dispatcher := notify.NewDispatcher(mongoStore, sender, config.DispatchChunkSize)
	if config.Cooldown > 0 {
		dispatcher.Cooldown = notify.NewRedisCooldown(redis_client.Client, config.Cooldown)
	}

	return alerting.NewEngine(config, mongoStore, mongoStore, dispatcher, mongoStore, alerting.ElasticRecorder{}), nil
}
