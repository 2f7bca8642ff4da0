package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/moveaside/moveaside/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

var ErrDispatchBatchFailed = errors.New("dispatch batch failed")

const DefaultChunkSize = 500
const defaultTokenConcurrency = 10

// Sender delivers one batch of device tokens. It must accept batches up to
// the dispatcher's chunk size.
type Sender interface {
	SendBatch(ctx context.Context, tokens []string, title string, body string) error
}

type TokenStore interface {
	GetToken(ctx context.Context, userID string) (string, bool, error)
}

// Cooldown suppresses repeat alerts to the same user within a scope, which
// is the ride or the vehicle when there is no ride.
type Cooldown interface {
	Active(ctx context.Context, scope string, userID string) bool
	Mark(ctx context.Context, scope string, userID string)
}

type Dispatcher struct {
	Tokens    TokenStore
	Sender    Sender
	ChunkSize int

	// Optional
	Cooldown Cooldown

	TokenConcurrency int
}

func NewDispatcher(tokens TokenStore, sender Sender, chunkSize int) *Dispatcher {
	return &Dispatcher{
		Tokens:           tokens,
		Sender:           sender,
		ChunkSize:        chunkSize,
		TokenConcurrency: defaultTokenConcurrency,
	}
}

type recipient struct {
	index  int
	userID string
	token  string
	found  bool
}

// Dispatch notifies every candidate with ShouldAlert set, at most once per
// call. Candidates without a token are skipped. A failed batch is logged and
// the remaining batches are still sent.
func (d *Dispatcher) Dispatch(ctx context.Context, decisions []alerting.AlertDecision, vehicleID string, rideID string, message string, title string) alerting.DispatchReport {
	report := alerting.DispatchReport{}

	var candidateIDs []string
	for _, decision := range decisions {
		if decision.ShouldAlert {
			candidateIDs = append(candidateIDs, decision.CandidateID)
		}
	}
	candidateIDs = util.RemoveDuplicateStrings(candidateIDs, nil)

	scope := rideID
	if scope == "" {
		scope = vehicleID
	}

	if d.Cooldown != nil {
		util.InPlaceFilter(&candidateIDs, func(userID string) bool {
			if d.Cooldown.Active(ctx, scope, userID) {
				report.Skipped = append(report.Skipped, userID)
				metrics.DispatchSkipped.WithLabelValues("cooldown").Inc()
				return false
			}
			return true
		})
	}

	if len(candidateIDs) == 0 {
		return report
	}

	recipients := d.resolveTokens(ctx, candidateIDs)

	var tokens []string
	usersByToken := map[string][]string{}
	for _, recipient := range recipients {
		if !recipient.found {
			report.Skipped = append(report.Skipped, recipient.userID)
			metrics.DispatchSkipped.WithLabelValues("notoken").Inc()
			continue
		}

		usersByToken[recipient.token] = append(usersByToken[recipient.token], recipient.userID)
		tokens = append(tokens, recipient.token)
	}
	tokens = util.RemoveDuplicateStrings(tokens, nil)

	for _, batch := range chunk(tokens, d.chunkSize()) {
		report.Batches++

		if err := d.Sender.SendBatch(ctx, batch, title, message); err != nil {
			report.FailedBatches++
			metrics.DispatchBatches.WithLabelValues("failed").Inc()

			log.Error().
				Err(fmt.Errorf("%w: %w", ErrDispatchBatchFailed, err)).
				Str("vehicle", vehicleID).
				Str("ride", rideID).
				Int("batch", report.Batches).
				Int("tokens", len(batch)).
				Msg("Failed to send push batch")
			continue
		}
		metrics.DispatchBatches.WithLabelValues("ok").Inc()

		for _, token := range batch {
			for _, userID := range usersByToken[token] {
				report.Notified = append(report.Notified, userID)

				if d.Cooldown != nil {
					d.Cooldown.Mark(ctx, scope, userID)
				}
			}
		}
	}

	return report
}

func (d *Dispatcher) chunkSize() int {
	if d.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return d.ChunkSize
}

func (d *Dispatcher) resolveTokens(ctx context.Context, userIDs []string) []recipient {
	concurrency := d.TokenConcurrency
	if concurrency <= 0 {
		concurrency = defaultTokenConcurrency
	}

	tokenPool := pool.NewWithResults[recipient]().WithMaxGoroutines(concurrency)
	for index, userID := range userIDs {
		index, userID := index, userID
		tokenPool.Go(func() recipient {
			token, found, err := d.Tokens.GetToken(ctx, userID)
			if err != nil {
				log.Error().Err(err).Str("candidate", userID).Msg("Failed to look up device token")
				found = false
			}

			return recipient{index: index, userID: userID, token: token, found: found && token != ""}
		})
	}

	recipients := tokenPool.Wait()
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].index < recipients[j].index
	})

	return recipients
}

func chunk(tokens []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
