// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Indexer receives logged events for similarity search. The similarity
// index satisfies this; tests stub it.
type Indexer interface {
	Upsert(ctx context.Context, event Event) error
}

// Logger validates and persists disruption events, assigns canonical ids,
// and fans writes out to the similarity index.
//
// Thread Safety: safe for concurrent use. Concurrent logs for the same date
// are serialized so sequence numbers never collide.
type Logger struct {
	store    *Store
	indexer  Indexer
	validate *validator.Validate
	logger   *slog.Logger

	// appendCh serializes id assignment without holding a lock across
	// Badger transactions.
	appendCh chan struct{}
}

// NewLogger wires an event logger. indexer may be nil when similarity
// search is disabled; indexing failures are logged and never fail the
// write.
func NewLogger(store *Store, indexer Indexer, logger *slog.Logger) (*Logger, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		store:    store,
		indexer:  indexer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "event_logger"),
		appendCh: make(chan struct{}, 1),
	}
	l.appendCh <- struct{}{}
	return l, nil
}

// Log validates and persists an event.
//
// Description:
//
//	When event.ID is empty a canonical id of the form EVT-YYYY-MMDD-NNN
//	is assigned, with NNN the next free sequence for that date. When an
//	id is supplied the write is an upsert, which is how outcome updates
//	land on an existing event. The event is indexed for similarity
//	search after the durable write; an index failure is logged but does
//	not fail the call.
//
// Outputs:
//   - Event: the stored event including its assigned id.
//   - error: ErrInvalidEvent wrapping the validation detail, or a storage
//     error.
func (l *Logger) Log(ctx context.Context, event Event) (Event, error) {
	if err := l.validate.Struct(event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.ID != "" && !validID(event.ID) {
		return Event{}, fmt.Errorf("%w: malformed event id %q", ErrInvalidEvent, event.ID)
	}

	if event.ID == "" {
		select {
		case token := <-l.appendCh:
			defer func() { l.appendCh <- token }()
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}

		prefix, err := idPrefixForDate(event.Date)
		if err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		seq, err := l.store.nextSequence(ctx, prefix)
		if err != nil {
			return Event{}, fmt.Errorf("assign event id: %w", err)
		}
		event.ID = fmt.Sprintf("%s%03d", prefix, seq)
	}

	if err := l.store.Put(ctx, event); err != nil {
		return Event{}, err
	}
	l.logger.Info("disruption event logged",
		"event_id", event.ID,
		"type", event.Type,
		"region", event.Region)

	if l.indexer != nil {
		if err := l.indexer.Upsert(ctx, event); err != nil {
			l.logger.Warn("event stored but indexing failed",
				"event_id", event.ID,
				"error", err)
		}
	}
	return event, nil
}

// RecordOutcome attaches a resolution note to an existing event and
// re-indexes it.
func (l *Logger) RecordOutcome(ctx context.Context, id, outcome string) (Event, error) {
	if outcome == "" {
		return Event{}, fmt.Errorf("%w: outcome is required", ErrInvalidEvent)
	}
	event, err := l.store.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	event.Outcome = outcome
	return l.Log(ctx, event)
}
