package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

const QueueName = "notify-queue"

// PushBatch is the payload published to the notify queue.
type PushBatch struct {
	Tokens []string
	Title  string
	Body   string

	CreationDateTime time.Time
}

// QueueSender hands batches to the notify queue so the engine does not wait
// on FCM. `notify run` consumes them.
type QueueSender struct {
	Queue rmq.Queue
}

func (s *QueueSender) SendBatch(ctx context.Context, tokens []string, title string, body string) error {
	payload, err := json.Marshal(PushBatch{
		Tokens:           tokens,
		Title:            title,
		Body:             body,
		CreationDateTime: time.Now(),
	})
	if err != nil {
		return err
	}

	return s.Queue.PublishBytes(payload)
}

type NotifyBatchConsumer struct {
	Sender Sender
}

func NewNotifyBatchConsumer(sender Sender) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{Sender: sender}
}

func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		var pushBatch PushBatch
		if err := json.Unmarshal([]byte(delivery.Payload()), &pushBatch); err != nil {
			log.Error().Err(err).Msg("Failed to decode push batch")
			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject push batch")
			}
			continue
		}

		if err := c.Sender.SendBatch(context.Background(), pushBatch.Tokens, pushBatch.Title, pushBatch.Body); err != nil {
			log.Error().Err(err).Int("tokens", len(pushBatch.Tokens)).Msg("Failed to send queued push batch")
			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject push batch")
			}
			continue
		}

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack push batch")
		}
	}
}
