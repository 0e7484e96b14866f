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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/resilience/services/resilience/storage/badger"
)

// eventKeyPrefix namespaces event records in the shared Badger store.
// Canonical ids sort by date then sequence, so a prefix scan yields events
// in chronological order for free.
const eventKeyPrefix = "event|"

// Store persists disruption events in Badger. Writes are upserts keyed by
// event id; there is no delete path.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewStore creates an event store over an open Badger handle.
func NewStore(db *badger.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "history_store")}, nil
}

// Put writes an event, replacing any existing record with the same id.
func (s *Store) Put(ctx context.Context, event Event) error {
	if !validID(event.ID) {
		return fmt.Errorf("%w: malformed event id %q", ErrInvalidEvent, event.ID)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(eventKeyPrefix+event.ID), payload)
	})
}

// Get loads a single event by id.
func (s *Store) Get(ctx context.Context, id string) (Event, error) {
	var event Event
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(eventKeyPrefix + id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read event %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &event)
		})
	})
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// All returns every stored event in chronological id order. Records that no
// longer unmarshal are skipped with a warning rather than failing the whole
// scan.
func (s *Store) All(ctx context.Context) ([]Event, error) {
	var events []Event
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			var event Event
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				s.logger.Warn("skipping malformed event record",
					"key", key,
					"error", err)
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of stored events without decoding them.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// nextSequence finds the next free sequence number for a date prefix by
// scanning existing ids, so restarts never reuse an id.
func (s *Store) nextSequence(ctx context.Context, idPrefix string) (int, error) {
	highest := 0
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix + idPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			id := strings.TrimPrefix(string(it.Item().Key()), eventKeyPrefix)
			var seq int
			if _, err := fmt.Sscanf(strings.TrimPrefix(id, idPrefix), "%03d", &seq); err == nil && seq > highest {
				highest = seq
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}
