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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/resilience/services/resilience/storage/badger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewStore(db, nil)
	require.NoError(t, err)
	return store
}

func newTestLogger(t *testing.T, indexer Indexer) *Logger {
	t.Helper()
	l, err := NewLogger(newTestStore(t), indexer, nil)
	require.NoError(t, err)
	return l
}

func sampleEvent() Event {
	return Event{
		Date:        "2024-03-21",
		Type:        "port_closure",
		Region:      "Taiwan Strait",
		Description: "Typhoon closed Kaohsiung port for four days",
		Impact: Impact{
			DelayDays:            6,
			CostUSD:              240000,
			RevenueAtRiskUSD:     510000,
			ActualRevenueLostUSD: 185000,
			AffectedSuppliers:    []string{"SUP-001"},
		},
		Mitigation: &Mitigation{Action: "airfreight", CostUSD: 31000},
	}
}

// failingIndexer always rejects upserts.
type failingIndexer struct{ calls int }

func (f *failingIndexer) Upsert(_ context.Context, _ Event) error {
	f.calls++
	return errors.New("index offline")
}

// capturingIndexer records what it was asked to index.
type capturingIndexer struct{ events []Event }

func (c *capturingIndexer) Upsert(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}

// -----------------------------------------------------------------------------
// Store Tests
// -----------------------------------------------------------------------------

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := sampleEvent()
	event.ID = "EVT-2024-0321-001"
	require.NoError(t, store.Put(ctx, event))

	got, err := store.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event, got)
}

func TestStore_PutRejectsMalformedID(t *testing.T) {
	store := newTestStore(t)

	event := sampleEvent()
	event.ID = "not-an-id"
	assert.ErrorIs(t, store.Put(context.Background(), event), ErrInvalidEvent)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "EVT-2024-0101-001")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestStore_AllReturnsChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Insert out of order; the id-keyed scan must come back sorted.
	ids := []string{"EVT-2024-0510-001", "EVT-2023-1120-002", "EVT-2023-1120-001"}
	for _, id := range ids {
		event := sampleEvent()
		event.ID = id
		require.NoError(t, store.Put(ctx, event))
	}

	events, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "EVT-2023-1120-001", events[0].ID)
	assert.Equal(t, "EVT-2023-1120-002", events[1].ID)
	assert.Equal(t, "EVT-2024-0510-001", events[2].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// -----------------------------------------------------------------------------
// Logger Tests
// -----------------------------------------------------------------------------

func TestLogger_AssignsSequentialIDs(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	first, err := l.Log(ctx, sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "EVT-2024-0321-001", first.ID)

	second, err := l.Log(ctx, sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "EVT-2024-0321-002", second.ID)

	// A different date starts its own sequence.
	other := sampleEvent()
	other.Date = "2024-03-22"
	third, err := l.Log(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "EVT-2024-0322-001", third.ID)
}

func TestLogger_RejectsInvalidEvents(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	missing := sampleEvent()
	missing.Description = ""
	_, err := l.Log(ctx, missing)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	badDate := sampleEvent()
	badDate.Date = "21-03-2024"
	_, err = l.Log(ctx, badDate)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	badID := sampleEvent()
	badID.ID = "EVENT-1"
	_, err = l.Log(ctx, badID)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	negative := sampleEvent()
	negative.Impact.DelayDays = -1
	_, err = l.Log(ctx, negative)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestLogger_IndexFailureDoesNotFailWrite(t *testing.T) {
	indexer := &failingIndexer{}
	l := newTestLogger(t, indexer)

	event, err := l.Log(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, indexer.calls)

	// The event landed in the durable store regardless.
	stored, err := l.store.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event, stored)
}

func TestLogger_ForwardsEventsToIndexer(t *testing.T) {
	indexer := &capturingIndexer{}
	l := newTestLogger(t, indexer)

	event, err := l.Log(context.Background(), sampleEvent())
	require.NoError(t, err)

	require.Len(t, indexer.events, 1)
	assert.Equal(t, event.ID, indexer.events[0].ID)
}

func TestLogger_RecordOutcome(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	event, err := l.Log(ctx, sampleEvent())
	require.NoError(t, err)

	updated, err := l.RecordOutcome(ctx, event.ID, "Resolved after 6 days via airfreight bridge")
	require.NoError(t, err)
	assert.Equal(t, event.ID, updated.ID)
	assert.Equal(t, "Resolved after 6 days via airfreight bridge", updated.Outcome)

	// The update is an upsert, not a second event.
	count, err := l.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLogger_RecordOutcomeErrors(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	_, err := l.RecordOutcome(ctx, "EVT-2024-0321-001", "")
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = l.RecordOutcome(ctx, "EVT-2024-0321-001", "resolved")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

// -----------------------------------------------------------------------------
// Pattern Tests
// -----------------------------------------------------------------------------

func TestRecurringPatterns(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	log := func(date, eventType, region string, delay int, cost float64) {
		t.Helper()
		_, err := l.Log(ctx, Event{
			Date:        date,
			Type:        eventType,
			Region:      region,
			Description: "test disruption",
			Impact:      Impact{DelayDays: delay, CostUSD: cost},
		})
		require.NoError(t, err)
	}

	log("2023-07-02", "port_closure", "Taiwan Strait", 6, 200000)
	log("2024-03-21", "port_closure", "Taiwan Strait", 10, 400000)
	log("2024-05-10", "canal_blockage", "Suez Canal", 14, 900000)

	report, err := l.RecurringPatterns(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalEvents)
	assert.InDelta(t, 1500000, report.TotalCostUSD, 1e-6)
	assert.Equal(t, 30, report.TotalDelayDays)
	assert.True(t, report.RecurringPattern)

	require.Len(t, report.Patterns, 2)
	top := report.Patterns[0]
	assert.Equal(t, "port_closure", top.Type)
	assert.Equal(t, "Taiwan Strait", top.Region)
	assert.Equal(t, 2, top.Count)
	assert.InDelta(t, 8.0, top.AvgDelayDays, 1e-9)
	assert.InDelta(t, 300000, top.MeanImpactUSD, 1e-6)
	assert.InDelta(t, 600000, top.TotalCostUSD, 1e-6)
	assert.Equal(t, "2024-03-21", top.LastDate)

	assert.Equal(t, 1, report.Patterns[1].Count)
}

func TestRecurringPatterns_MeanImpactBreaksFrequencyTies(t *testing.T) {
	l := newTestLogger(t, nil)
	ctx := context.Background()

	log := func(date, eventType, region string, delay int, cost float64) {
		t.Helper()
		_, err := l.Log(ctx, Event{
			Date:        date,
			Type:        eventType,
			Region:      region,
			Description: "test disruption",
			Impact:      Impact{DelayDays: delay, CostUSD: cost},
		})
		require.NoError(t, err)
	}

	// Same frequency either way; the expensive short disruptions must
	// outrank the cheap long ones.
	log("2024-01-05", "factory_fire", "Gumi", 1, 9000000)
	log("2024-02-05", "factory_fire", "Gumi", 1, 9000000)
	log("2024-01-10", "port_congestion", "Long Beach", 30, 1000)
	log("2024-02-10", "port_congestion", "Long Beach", 30, 1000)

	report, err := l.RecurringPatterns(ctx)
	require.NoError(t, err)

	require.Len(t, report.Patterns, 2)
	assert.Equal(t, "factory_fire", report.Patterns[0].Type)
	assert.InDelta(t, 9000000, report.Patterns[0].MeanImpactUSD, 1e-6)
	assert.Equal(t, "port_congestion", report.Patterns[1].Type)
	assert.InDelta(t, 1000, report.Patterns[1].MeanImpactUSD, 1e-6)
}

func TestRecurringPatterns_EmptyLog(t *testing.T) {
	l := newTestLogger(t, nil)

	report, err := l.RecurringPatterns(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalEvents)
	assert.False(t, report.RecurringPattern)
	assert.Empty(t, report.Patterns)
}

// -----------------------------------------------------------------------------
// Event Helper Tests
// -----------------------------------------------------------------------------

func TestEvent_SearchText(t *testing.T) {
	event := sampleEvent()
	event.Outcome = "resolved"
	event.LessonsLearned = "Qualify a second fab early"

	text := event.SearchText()
	assert.Contains(t, text, "port_closure")
	assert.Contains(t, text, "Taiwan Strait")
	assert.Contains(t, text, "airfreight")
	assert.Contains(t, text, "resolved")
	assert.Contains(t, text, "Qualify a second fab early")

	bare := Event{Type: "strike", Region: "Hamburg", Description: "dock strike"}
	assert.Equal(t, "strike Hamburg dock strike", bare.SearchText())
}
