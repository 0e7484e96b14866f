// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state owns the single authoritative disruption state record.
//
// Every other entry point in the engine reads the state through Snapshot or
// LaneStatus; only Initiate and Clear mutate it. Transitions are atomic with
// respect to concurrent readers and persisted to BadgerDB in a transaction,
// so the record survives restarts and is never a loosely-synchronized file.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/resilience/services/resilience/storage/badger"
)

// Machine states for the disruption record.
const (
	StatusOperational = "OPERATIONAL"
	StatusDisrupted   = "DISRUPTED"
)

// Severity levels accepted by Initiate.
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// stateKey is the single BadgerDB key holding the disruption record.
const stateKey = "disruption|state"

// Sentinel errors for state transitions.
var (
	// ErrEmptyLane indicates Initiate was called without a lane name.
	ErrEmptyLane = errors.New("lane must not be empty")

	// ErrNegativeDelay indicates Initiate was called with a negative delay.
	ErrNegativeDelay = errors.New("delay days must not be negative")

	// ErrInvalidSeverity indicates an unknown severity level.
	ErrInvalidSeverity = errors.New("severity must be Low, Medium, or High")
)

// LaneStatus is the per-lane disruption condition.
type LaneStatus struct {
	Status                    string  `json:"status"`
	Severity                  string  `json:"severity"`
	AvgDelayDays              float64 `json:"avg_delay_days"`
	RerouteAvailable          bool    `json:"reroute_available"`
	RerouteVia                string  `json:"reroute_via,omitempty"`
	RerouteAdditionalDays     float64 `json:"reroute_additional_days"`
	CarrierSurchargeUSDPerTEU float64 `json:"carrier_surcharges_usd_per_teu"`
	VesselsAffectedPct        float64 `json:"vessels_affected_pct"`
}

// Snapshot is a point-in-time copy of the full disruption record.
type Snapshot struct {
	Active                 bool                  `json:"active"`
	SupplierHealthDegraded bool                  `json:"supplier_health_degraded"`
	Lanes                  map[string]LaneStatus `json:"shipping_lanes"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// OperationalLane is the baseline status reported for any lane without a
// disruption entry.
func OperationalLane() LaneStatus {
	return LaneStatus{Status: StatusOperational, Severity: SeverityLow}
}

// baseline returns the pre-initiate state.
func baseline() Snapshot {
	return Snapshot{Lanes: map[string]LaneStatus{}}
}

// Manager owns the disruption record.
//
// Thread Safety: safe for concurrent use. Readers proceed concurrently with
// each other; writers hold an exclusive section so a transition is never
// observed half-applied.
type Manager struct {
	mu     sync.RWMutex
	snap   Snapshot
	db     *badger.DB
	logger *slog.Logger
}

// NewManager creates a manager, reloading any persisted record.
//
// Inputs:
//
//	db - Durable store. May be nil for ephemeral (test) managers.
//	logger - Logger. Uses slog.Default() if nil.
//
// Outputs:
//
//	*Manager - Ready-to-use manager at the persisted or baseline state.
//	error - Non-nil if the persisted record cannot be read.
func NewManager(db *badger.DB, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		snap:   baseline(),
		db:     db,
		logger: logger.With(slog.String("component", "disruption_state")),
	}
	if db == nil {
		return m, nil
	}

	err := db.WithReadTxn(context.Background(), func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(stateKey))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(val, &snap); err != nil {
				// A corrupt record is not worth refusing startup for.
				m.logger.Warn("discarding malformed persisted disruption state",
					slog.String("error", err.Error()))
				return nil
			}
			if snap.Lanes == nil {
				snap.Lanes = map[string]LaneStatus{}
			}
			m.snap = snap
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load disruption state: %w", err)
	}
	return m, nil
}

// Initiate transitions a lane to DISRUPTED.
//
// Description:
//
//	Sets the per-lane record and marks the overall state active with
//	supplier health degraded. Idempotent: calling again with identical
//	parameters leaves the state (and the store) untouched; different
//	parameters overwrite the lane entry. Atomic with respect to readers.
//
// Outputs:
//
//	error - ErrEmptyLane, ErrNegativeDelay, ErrInvalidSeverity, or a
//	        persistence failure (state is not changed on failure).
func (m *Manager) Initiate(ctx context.Context, lane string, delayDays float64, severity string) error {
	return m.InitiateWithDetails(ctx, lane, LaneStatus{
		Severity:     severity,
		AvgDelayDays: delayDays,
	})
}

// InitiateWithDetails is Initiate with the full lane record: reroute
// options, carrier surcharges, and affected vessel share. Status is forced
// to DISRUPTED regardless of the input.
func (m *Manager) InitiateWithDetails(ctx context.Context, lane string, entry LaneStatus) error {
	if lane == "" {
		return ErrEmptyLane
	}
	if entry.AvgDelayDays < 0 {
		return fmt.Errorf("%w: got %.1f", ErrNegativeDelay, entry.AvgDelayDays)
	}
	if entry.Severity == "" {
		entry.Severity = SeverityHigh
	}
	if entry.Severity != SeverityLow && entry.Severity != SeverityMedium && entry.Severity != SeverityHigh {
		return fmt.Errorf("%w: got %q", ErrInvalidSeverity, entry.Severity)
	}
	entry.Status = StatusDisrupted

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.snap.Lanes[lane]; ok && existing == entry &&
		m.snap.Active && m.snap.SupplierHealthDegraded {
		return nil
	}

	next := m.copySnapshotLocked()
	next.Active = true
	next.SupplierHealthDegraded = true
	next.Lanes[lane] = entry
	next.UpdatedAt = time.Now().UTC()

	if err := m.persistLocked(ctx, next); err != nil {
		return err
	}
	m.snap = next
	m.logger.Info("disruption initiated",
		slog.String("lane", lane),
		slog.Float64("delay_days", entry.AvgDelayDays),
		slog.String("severity", entry.Severity))
	return nil
}

// Clear transitions back to OPERATIONAL.
//
// Description:
//
//	Resets every lane entry and the supplier health flag to baseline.
//	Always succeeds from any state; clearing an already-operational
//	record is a no-op.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.snap.Active && !m.snap.SupplierHealthDegraded && len(m.snap.Lanes) == 0 {
		return nil
	}

	next := baseline()
	next.UpdatedAt = time.Now().UTC()
	if err := m.persistLocked(ctx, next); err != nil {
		return err
	}
	m.snap = next
	m.logger.Info("disruption cleared, all lanes operational")
	return nil
}

// Snapshot returns a deep copy of the current record.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copySnapshotLocked()
}

// LaneStatus returns the status for a lane, or the operational baseline if
// the lane has no disruption entry. Unknown lanes are not an error.
func (m *Manager) LaneStatus(lane string) LaneStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.snap.Active {
		return OperationalLane()
	}
	if entry, ok := m.snap.Lanes[lane]; ok {
		return entry
	}
	return OperationalLane()
}

// Active reports whether any disruption is in effect.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Active
}

func (m *Manager) copySnapshotLocked() Snapshot {
	out := m.snap
	out.Lanes = make(map[string]LaneStatus, len(m.snap.Lanes))
	for k, v := range m.snap.Lanes {
		out.Lanes[k] = v
	}
	return out
}

func (m *Manager) persistLocked(ctx context.Context, snap Snapshot) error {
	if m.db == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode disruption state: %w", err)
	}
	err = m.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(stateKey), raw)
	})
	if err != nil {
		return fmt.Errorf("persist disruption state: %w", err)
	}
	return nil
}
