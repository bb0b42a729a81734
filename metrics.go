package sqlreplay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	replayHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlreplay_replay_hits_total",
		Help: "Cumulative number of queries answered from a fixture.",
	})
	replayMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlreplay_replay_misses_total",
		Help: "Cumulative number of replayed queries which were not found in their fixture.",
	})
	recordedQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlreplay_recorded_queries_total",
		Help: "Cumulative number of query results captured into a fixture.",
	})
	fixtureMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlreplay_fixture_mismatches_total",
		Help: "Cumulative number of replayed queries whose options differ from the recording.",
	})
	fixturesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlreplay_fixtures_saved_total",
		Help: "Cumulative number of fixtures written to their store.",
	})
)
