package consumer

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/moveaside/moveaside/pkg/database"
	"github.com/moveaside/moveaside/pkg/metrics"
	"github.com/moveaside/moveaside/pkg/redis_client"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type StatsServerHandler struct {
	redisConnection rmq.Connection
}

func NewStatsHandler(connection rmq.Connection) *StatsServerHandler {
	return &StatsServerHandler{redisConnection: connection}
}

func (handler *StatsServerHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	layout := request.FormValue("layout")
	refresh := request.FormValue("refresh")

	queues, err := handler.redisConnection.GetOpenQueues()
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(writer, err)
		return
	}

	stats, err := handler.redisConnection.CollectStats(queues)
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(writer, err)
		return
	}

	fmt.Fprint(writer, stats.GetHtml(layout, refresh))
}

// HealthHandler checks Redis and, when connected, MongoDB.
type HealthHandler struct {
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (handler *HealthHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 5*time.Second)
	defer cancel()

	if err := redis_client.Client.Ping(ctx).Err(); err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(writer, err)
		return
	}

	if database.Instance != nil {
		if err := database.Ping(ctx); err != nil {
			writer.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(writer, err)
			return
		}
	}

	writer.WriteHeader(http.StatusOK)
	fmt.Fprint(writer, "OK")
}

// StartStatsServer serves queue stats, health and metrics for a worker
// process on :3333.
func StartStatsServer(queueNames ...string) {
	metrics.RegisterDefault()

	for _, queueName := range queueNames {
		endpoint := fmt.Sprintf("/%s/stats", queueName)
		http.Handle(endpoint, NewStatsHandler(redis_client.QueueConnection))
		log.Info().Msgf("Stats server listening on http://localhost:3333%s", endpoint)
	}
	http.Handle("/health", NewHealthHandler())
	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(":3333", nil); err != nil {
		log.Fatal().Err(err).Msg("Stats server failed")
	}
}
