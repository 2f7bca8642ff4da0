package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/adjust/rmq/v5"
	"github.com/go-stomp/stomp/v3"
	"github.com/rs/zerolog/log"
)

// StompIngest subscribes to a telematics STOMP destination whose messages
// carry one LocationEvent or a JSON array of them, and queues each event.
type StompIngest struct {
	Address     string
	Username    string
	Password    string
	Destination string

	Queue rmq.Queue
}

func (s *StompIngest) Run(ctx context.Context) error {
	var stompOptions []func(*stomp.Conn) error = []func(*stomp.Conn) error{
		stomp.ConnOpt.Login(s.Username, s.Password),
	}
	conn, err := stomp.Dial("tcp", s.Address, stompOptions...)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	sub, err := conn.Subscribe(s.Destination, stomp.AckAuto)
	if err != nil {
		return err
	}

	log.Info().Str("destination", s.Destination).Msg("Subscribed to telematics feed")

	for {
		select {
		case <-ctx.Done():
			return sub.Unsubscribe()
		case msg, ok := <-sub.C:
			if !ok {
				return errors.New("stomp subscription closed")
			}
			if msg.Err != nil {
				return msg.Err
			}

			s.ParseMessages(msg.Body)
		}
	}
}

// ParseMessages queues every valid event in the message body and returns
// how many were queued.
func (s *StompIngest) ParseMessages(messagesBytes []byte) int {
	var events []LocationEvent

	trimmed := bytes.TrimSpace(messagesBytes)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			log.Error().Err(err).Msg("Failed to decode telematics message")
			return 0
		}
	} else {
		var event LocationEvent
		if err := json.Unmarshal(trimmed, &event); err != nil {
			log.Error().Err(err).Msg("Failed to decode telematics message")
			return 0
		}
		events = append(events, event)
	}

	published := 0
	for _, event := range events {
		if _, err := event.Fix(); err != nil {
			log.Warn().Err(err).Str("id", event.EntityID).Msg("Skipping invalid telematics event")
			continue
		}

		if err := PublishLocationEvent(s.Queue, event); err != nil {
			log.Error().Err(err).Str("id", event.EntityID).Msg("Failed to queue telematics event")
			continue
		}
		published++
	}

	return published
}
