package parser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// conceptsParsed counts concept definitions by outcome (ok, error).
var conceptsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "conceptgraph",
	Subsystem: "parser",
	Name:      "concepts_total",
	Help:      "Concept definitions parsed, by result",
}, []string{"result"})
