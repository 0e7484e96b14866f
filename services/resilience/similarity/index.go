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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/resilience/services/resilience/history"
)

var tracer = otel.Tracer("resilience/similarity")

// Retry policy for the primary backend. Two attempts total with a short
// fixed backoff; anything longer and the caller is better served by the
// keyword fallback.
const (
	primaryAttempts = 2
	retryBackoff    = 200 * time.Millisecond
)

// EventSource supplies the full event log for backfill. history.Store
// satisfies this.
type EventSource interface {
	All(ctx context.Context) ([]history.Event, error)
}

// Result is a retrieval answer. Degraded is true when the primary backend
// failed and the keyword fallback answered instead.
type Result struct {
	Matches  []Match `json:"matches"`
	Backend  string  `json:"backend"`
	Degraded bool    `json:"degraded"`
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	// Performed is false when the index already held events and nothing
	// was written.
	Performed bool `json:"performed"`
	Indexed   int  `json:"indexed"`
	Failed    int  `json:"failed"`
}

// Index is the retrieval front door. It routes to the configured primary
// backend, retries transient failures, degrades to the keyword backend
// when the primary stays down, and lazily backfills an empty index from
// the event log.
//
// Thread Safety: safe for concurrent use.
type Index struct {
	primary  Backend
	fallback *KeywordBackend
	source   EventSource
	logger   *slog.Logger

	backfillGroup singleflight.Group
}

// NewIndex wires an index.
//
// Inputs:
//   - primary: the backend that answers retrievals first. Required.
//   - fallback: keyword degradation path. May be nil when primary is
//     already the keyword backend.
//   - source: event log used for backfill. Required.
func NewIndex(primary Backend, fallback *KeywordBackend, source EventSource, logger *slog.Logger) (*Index, error) {
	if primary == nil {
		return nil, ErrBackendNotConfigured
	}
	if source == nil {
		return nil, errors.New("event source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		primary:  primary,
		fallback: fallback,
		source:   source,
		logger:   logger.With("component", "similarity_index"),
	}, nil
}

// Backend returns the primary backend name.
func (x *Index) Backend() string { return x.primary.Name() }

// Upsert indexes an event in the primary backend and, when a fallback
// exists, mirrors it there so the degradation path stays warm.
func (x *Index) Upsert(ctx context.Context, event history.Event) error {
	if x.fallback != nil {
		if err := x.fallback.Upsert(ctx, event); err != nil {
			x.logger.Warn("fallback index upsert failed", "event_id", event.ID, "error", err)
		}
	}
	return x.primary.Upsert(ctx, event)
}

// RetrieveSimilar finds historical events similar to the query.
//
// Description:
//
//	An empty primary index triggers a backfill from the event log before
//	searching. The primary backend gets two attempts with a short
//	backoff; if both fail and a keyword fallback is configured, the
//	fallback answers and the result is marked Degraded. The error from
//	the primary is only surfaced when no fallback can serve.
func (x *Index) RetrieveSimilar(ctx context.Context, query Query, limit int) (Result, error) {
	ctx, span := tracer.Start(ctx, "RetrieveSimilar")
	defer span.End()
	span.SetAttributes(
		attribute.String("query.type", query.Type),
		attribute.String("query.region", query.Region),
		attribute.Int("limit", limit),
	)

	if query.empty() {
		return Result{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	if report, err := x.BackfillIfEmpty(ctx); err != nil {
		x.logger.Warn("backfill before retrieval failed", "error", err)
	} else if report.Performed {
		x.logger.Info("index backfilled before retrieval", "indexed", report.Indexed)
	}

	start := time.Now()
	matches, err := x.searchWithRetry(ctx, query, limit)
	if err == nil {
		// Backends retrieve; the index owns the ordering contract, so
		// ties resolve identically whether vectors or keywords answered.
		sortMatches(matches)
		retrievalsTotal.WithLabelValues(x.primary.Name()).Inc()
		retrievalDuration.WithLabelValues(x.primary.Name()).Observe(time.Since(start).Seconds())
		return Result{Matches: matches, Backend: x.primary.Name()}, nil
	}

	if x.fallback == nil {
		return Result{}, fmt.Errorf("similarity retrieval failed: %w", err)
	}

	x.logger.Warn("primary backend unavailable, serving keyword fallback",
		"backend", x.primary.Name(),
		"error", err)
	degradationsTotal.Inc()
	span.SetAttributes(attribute.Bool("degraded", true))

	matches, fbErr := x.fallback.Search(ctx, query, limit)
	if fbErr != nil {
		return Result{}, fmt.Errorf("similarity retrieval failed: primary: %v, fallback: %w", err, fbErr)
	}
	retrievalsTotal.WithLabelValues(BackendKeyword).Inc()
	retrievalDuration.WithLabelValues(BackendKeyword).Observe(time.Since(start).Seconds())
	return Result{Matches: matches, Backend: BackendKeyword, Degraded: true}, nil
}

// searchWithRetry runs the primary search with the fixed retry policy.
// Context cancellation and empty-query errors are never retried.
func (x *Index) searchWithRetry(ctx context.Context, query Query, limit int) ([]Match, error) {
	var lastErr error
	for attempt := 1; attempt <= primaryAttempts; attempt++ {
		matches, err := x.primary.Search(ctx, query, limit)
		if err == nil {
			return matches, nil
		}
		if errors.Is(err, ErrEmptyQuery) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt < primaryAttempts {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// BackfillIfEmpty populates the primary backend from the event log when it
// holds no events.
//
// Description:
//
//	Concurrent callers coalesce onto a single backfill via singleflight,
//	and the count check inside the flight makes the operation safe to
//	call repeatedly: a second run over a populated index writes nothing.
//	Individual event failures are counted and skipped so one bad record
//	cannot block the rest of the log.
func (x *Index) BackfillIfEmpty(ctx context.Context) (BackfillReport, error) {
	v, err, _ := x.backfillGroup.Do("backfill", func() (interface{}, error) {
		count, err := x.primary.Count(ctx)
		if err != nil {
			return BackfillReport{}, fmt.Errorf("count index: %w", err)
		}
		if count > 0 {
			return BackfillReport{}, nil
		}

		events, err := x.source.All(ctx)
		if err != nil {
			return BackfillReport{}, fmt.Errorf("load event log: %w", err)
		}
		if len(events) == 0 {
			return BackfillReport{}, nil
		}

		ctx, span := tracer.Start(ctx, "Backfill")
		defer span.End()

		report := BackfillReport{Performed: true}
		for _, event := range events {
			if err := x.Upsert(ctx, event); err != nil {
				x.logger.Warn("backfill skipped event", "event_id", event.ID, "error", err)
				report.Failed++
				continue
			}
			report.Indexed++
		}
		span.SetAttributes(attribute.Int("indexed", report.Indexed))
		backfillsTotal.Inc()
		backfillEventsTotal.Add(float64(report.Indexed))
		x.logger.Info("similarity index backfilled",
			"indexed", report.Indexed,
			"failed", report.Failed,
			"backend", x.primary.Name())
		return report, nil
	})
	if err != nil {
		return BackfillReport{}, err
	}
	return v.(BackfillReport), nil
}
