// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package similarity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Retrieval metrics
var (
	retrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resilience_similarity_retrievals_total",
		Help: "Similarity retrievals served, by backend that answered",
	}, []string{"backend"})

	retrievalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resilience_similarity_retrieval_duration_seconds",
		Help:    "Time to serve a similarity retrieval",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	}, []string{"backend"})

	degradationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resilience_similarity_degradations_total",
		Help: "Retrievals that fell back from the vector backend to keyword",
	})

	backfillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resilience_similarity_backfills_total",
		Help: "Index backfills executed from the event log",
	})

	backfillEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resilience_similarity_backfill_events_total",
		Help: "Events written to the index during backfills",
	})
)
