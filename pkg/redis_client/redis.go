package redis_client

import (
	"context"
	"strconv"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/moveaside/moveaside/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["MOVEASIDE_REDIS_ADDRESS"] != "" {
		address = env["MOVEASIDE_REDIS_ADDRESS"]
	}

	if env["MOVEASIDE_REDIS_PASSWORD"] != "" {
		password = env["MOVEASIDE_REDIS_PASSWORD"]
	}

	if env["MOVEASIDE_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["MOVEASIDE_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	err := backoff.RetryNotify(func() error {
		return client.Ping(context.Background()).Err()
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("wait", wait.String()).Msg("Redis not reachable yet")
	})
	if err != nil {
		return err
	}

	return Setup(client)
}

// Setup wires an existing client, used directly by tests against miniredis.
func Setup(client *redis.Client) error {
	queueConnection, err := rmq.OpenConnectionWithRedisClient("moveaside", client, nil)
	if err != nil {
		return err
	}

	Client = client
	QueueConnection = queueConnection

	return nil
}
