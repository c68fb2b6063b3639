package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conceptgraph",
		Subsystem: "graph",
		Name:      "pairs_total",
		Help:      "Ordered concept pairs visited by graph builds",
	})

	neighborsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conceptgraph",
		Subsystem: "graph",
		Name:      "neighbors_total",
		Help:      "Neighbor entries added by graph builds",
	})

	referencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conceptgraph",
		Subsystem: "graph",
		Name:      "references_total",
		Help:      "Reference edges added by graph builds",
	})

	// undefinedTotal counts pairs whose owner has no context, tags or tables.
	undefinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conceptgraph",
		Subsystem: "graph",
		Name:      "undefined_scores_total",
		Help:      "Pairs whose nearness was undefined",
	})

	buildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "conceptgraph",
		Subsystem: "graph",
		Name:      "build_seconds",
		Help:      "Duration of graph builds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)
