package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// FirebaseMulticastLimit is the most tokens FCM accepts in one multicast.
const FirebaseMulticastLimit = 500

type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FirebaseSender sends each batch as one FCM multicast. Batches are paced by
// a rate limiter so a burst of cycles does not trip FCM quotas.
type FirebaseSender struct {
	client  multicastClient
	limiter *rate.Limiter
}

func NewFirebaseSender(ctx context.Context) (*FirebaseSender, error) {
	fireBaseAuthKey := os.Getenv("MOVEASIDE_FIREBASE_SERVICE_ACCOUNT")
	if fireBaseAuthKey == "" {
		return nil, errors.New("MOVEASIDE_FIREBASE_SERVICE_ACCOUNT must be set")
	}

	decodedKey, err := base64.StdEncoding.DecodeString(fireBaseAuthKey)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	fcmClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}

	return newFirebaseSender(fcmClient), nil
}

func newFirebaseSender(client multicastClient) *FirebaseSender {
	return &FirebaseSender{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
}

func (s *FirebaseSender) SendBatch(ctx context.Context, tokens []string, title string, body string) error {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) > FirebaseMulticastLimit {
		return fmt.Errorf("batch of %d tokens exceeds the multicast limit of %d", len(tokens), FirebaseMulticastLimit)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	response, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return err
	}

	if response.FailureCount > 0 {
		for i, sendResponse := range response.Responses {
			if sendResponse != nil && !sendResponse.Success {
				log.Debug().Err(sendResponse.Error).Str("token", tokens[i]).Msg("Push to token failed")
			}
		}

		log.Warn().Int("success", response.SuccessCount).Int("failure", response.FailureCount).Msg("Push batch partially failed")
	}

	if response.SuccessCount == 0 && response.FailureCount > 0 {
		return fmt.Errorf("all %d messages in batch failed", response.FailureCount)
	}

	log.Info().Int("tokens", len(tokens)).Msg("Sent push batch")

	return nil
}
