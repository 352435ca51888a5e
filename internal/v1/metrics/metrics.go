// Package metrics exposes Prometheus collectors for the classroom game
// backend.
//
// Naming convention: namespace_subsystem_name
// - namespace: chicken_game (application-level grouping)
// - subsystem: room, round, rate_limit, circuit_breaker, redis (feature-level grouping)
// - name: specific metric (rooms_active, actions_submitted_total, etc.)
//
// Metric Types:
// - Gauge: Current state (active rooms, players per room)
// - Counter: Cumulative events (actions submitted, rooms deleted)
// - Histogram: Latency distributions (round finalization time)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRooms tracks the current number of rooms not yet FINISHED.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chicken_game",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of rooms in WAITING or PLAYING status",
	})

	// RoomPlayers tracks the number of joined players per room.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chicken_game",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players currently joined to a room",
	}, []string{"room_id"})

	// RoomsCreatedTotal tracks the total number of rooms ever created.
	RoomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "room",
		Name:      "rooms_created_total",
		Help:      "Total number of rooms created",
	})

	// RoomsDeletedTotal tracks rooms removed by the cleanup sweeper, labeled
	// by the status they were in when swept.
	RoomsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "room",
		Name:      "rooms_deleted_total",
		Help:      "Total number of rooms deleted by the stale-room cleanup sweep",
	}, []string{"status"})

	// ActionsSubmittedTotal tracks the total number of actions recorded,
	// labeled by choice. Idempotent repeats are not counted again.
	ActionsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "round",
		Name:      "actions_submitted_total",
		Help:      "Total number of actions recorded, labeled by choice",
	}, []string{"choice"})

	// RoundsFinalizedTotal tracks rounds that transitioned out of
	// waiting_actions, labeled by whether they were skipped.
	RoundsFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "round",
		Name:      "rounds_finalized_total",
		Help:      "Total number of rounds finalized",
	}, []string{"skipped"})

	// RoundFinalizationDuration tracks the wall-clock time spent computing
	// payoffs and transitioning a round once the last action arrives.
	RoundFinalizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chicken_game",
		Subsystem: "round",
		Name:      "finalization_duration_seconds",
		Help:      "Time spent finalizing a round after the last action is submitted",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// CircuitBreakerState tracks the current state of the database circuit
	// breaker (0: Closed, 1: Open, 2: Half-Open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chicken_game",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	// CircuitBreakerFailures tracks the total number of requests rejected by
	// the circuit breaker.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"service"})

	// RateLimitExceeded tracks the total number of requests that exceeded
	// the rate limit.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "limit_type"})

	// RateLimitRequests tracks the total number of requests checked against
	// the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// RedisOperationsTotal tracks the total number of Redis operations
	// performed by the rate limiter's distributed store.
	RedisOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chicken_game",
		Subsystem: "redis",
		Name:      "operations_total",
		Help:      "Total number of Redis operations",
	}, []string{"operation", "status"})

	// RedisOperationDuration tracks the duration of Redis operations.
	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chicken_game",
		Subsystem: "redis",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Redis operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)
