package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type SentBatch struct {
	Tokens []string
	Title  string
	Body   string
}

// LogSender only logs and remembers batches. Used for replays and dry runs.
type LogSender struct {
	mutex   sync.Mutex
	batches []SentBatch
}

func (s *LogSender) SendBatch(ctx context.Context, tokens []string, title string, body string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.batches = append(s.batches, SentBatch{
		Tokens: append([]string(nil), tokens...),
		Title:  title,
		Body:   body,
	})

	log.Info().Int("tokens", len(tokens)).Str("title", title).Msg("Push batch (not sent)")

	return nil
}

func (s *LogSender) Batches() []SentBatch {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]SentBatch(nil), s.batches...)
}
