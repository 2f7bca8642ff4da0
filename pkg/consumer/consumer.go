package consumer

import (
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// RedisConsumer runs NumberConsumers batch consumers on one rmq queue.
type RedisConsumer struct {
	QueueName string

	NumberConsumers int
	BatchSize       int

	Timeout time.Duration

	Consumer rmq.BatchConsumer
}

func (c *RedisConsumer) Setup() error {
	log.Info().Str("queue", c.QueueName).Msg("Starting consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(c.QueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < c.NumberConsumers; i++ {
		log.Info().Msgf("Starting %s consumer %d", c.QueueName, i)

		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", c.QueueName, i), int64(c.BatchSize), c.Timeout, c.Consumer); err != nil {
			return err
		}
	}

	return nil
}

// StartCleaner periodically returns deliveries of dead connections to their
// queues.
func StartCleaner(interval time.Duration) {
	cleaner := rmq.NewCleaner(redis_client.QueueConnection)

	for range time.Tick(interval) {
		returned, err := cleaner.Clean()
		if err != nil {
			log.Error().Err(err).Msg("Failed to clean queues")
			continue
		}
		if returned > 0 {
			log.Info().Int64("returned", returned).Msg("Cleaned queues")
		}
	}
}
