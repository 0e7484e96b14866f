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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/resilience/services/resilience/history"
)

func typhoonEvent() history.Event {
	return history.Event{
		ID:          "EVT-2024-0321-001",
		Date:        "2024-03-21",
		Type:        "port_closure",
		Region:      "Taiwan Strait",
		Description: "Typhoon closed Kaohsiung port for four days",
	}
}

func strikeEvent() history.Event {
	return history.Event{
		ID:          "EVT-2023-0702-001",
		Date:        "2023-07-02",
		Type:        "labor_strike",
		Region:      "Hamburg",
		Description: "Dock workers strike halted container handling",
	}
}

// memorySource serves a fixed event slice as the backfill source.
type memorySource struct {
	events []history.Event
	err    error
	calls  int
}

func (s *memorySource) All(_ context.Context) ([]history.Event, error) {
	s.calls++
	return s.events, s.err
}

// brokenBackend fails every operation, standing in for an unreachable
// vector store.
type brokenBackend struct {
	searches int
}

func (b *brokenBackend) Name() string { return BackendVector }

func (b *brokenBackend) Upsert(_ context.Context, _ history.Event) error {
	return errors.New("connection refused")
}

func (b *brokenBackend) Search(_ context.Context, _ Query, _ int) ([]Match, error) {
	b.searches++
	return nil, errors.New("connection refused")
}

func (b *brokenBackend) Count(_ context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

// unorderedBackend returns a fixed match slice exactly as given, standing in
// for a store that does not sort its results.
type unorderedBackend struct {
	matches []Match
}

func (b *unorderedBackend) Name() string { return BackendVector }

func (b *unorderedBackend) Upsert(_ context.Context, _ history.Event) error { return nil }

func (b *unorderedBackend) Search(_ context.Context, _ Query, _ int) ([]Match, error) {
	return append([]Match(nil), b.matches...), nil
}

func (b *unorderedBackend) Count(_ context.Context) (int, error) {
	return len(b.matches), nil
}

// -----------------------------------------------------------------------------
// Keyword Backend Tests
// -----------------------------------------------------------------------------

func TestKeywordBackend_ScoresFieldMatches(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, typhoonEvent()))
	require.NoError(t, b.Upsert(ctx, strikeEvent()))

	matches, err := b.Search(ctx, Query{Type: "port_closure", Region: "Taiwan Strait"}, 5)
	require.NoError(t, err)

	// Only the typhoon event matches: type (3) + region (3) out of 9.
	require.Len(t, matches, 1)
	assert.Equal(t, "EVT-2024-0321-001", matches[0].Event.ID)
	assert.InDelta(t, 6.0/9.0, matches[0].Score, 1e-9)
}

func TestKeywordBackend_DescriptionSubstrings(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()

	event := typhoonEvent()
	event.Description = "Typhoon near the Taiwan Strait forced a port_closure at Kaohsiung"
	require.NoError(t, b.Upsert(ctx, event))

	matches, err := b.Search(ctx, Query{Type: "port_closure", Region: "Taiwan Strait"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	// type 3 + region 3 + region-in-desc 2 + type-in-desc 1 = full score.
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestKeywordBackend_DescriptionOnlyQuery(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, typhoonEvent()))
	require.NoError(t, b.Upsert(ctx, strikeEvent()))

	// Querying with an event's own description must surface that event
	// first with a full score, even with no type or region given.
	matches, err := b.Search(ctx, Query{Description: typhoonEvent().Description}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "EVT-2024-0321-001", matches[0].Event.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestKeywordBackend_MatchesLessonsLearned(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()

	event := typhoonEvent()
	event.LessonsLearned = "Qualify a second fab before peak typhoon season"
	require.NoError(t, b.Upsert(ctx, event))
	require.NoError(t, b.Upsert(ctx, strikeEvent()))

	matches, err := b.Search(ctx, Query{Description: "qualify second fab"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "EVT-2024-0321-001", matches[0].Event.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestKeywordBackend_TieBreaksOnRecency(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()

	older := typhoonEvent()
	older.ID = "EVT-2022-0101-001"
	older.Date = "2022-01-01"
	require.NoError(t, b.Upsert(ctx, older))
	require.NoError(t, b.Upsert(ctx, typhoonEvent()))

	matches, err := b.Search(ctx, Query{Type: "port_closure"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "EVT-2024-0321-001", matches[0].Event.ID)
	assert.Equal(t, "EVT-2022-0101-001", matches[1].Event.ID)
}

func TestKeywordBackend_ExcludesZeroScores(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, strikeEvent()))

	matches, err := b.Search(ctx, Query{Type: "earthquake", Region: "Japan"}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKeywordBackend_RespectsLimit(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()
	for _, id := range []string{"EVT-2024-0101-001", "EVT-2024-0102-001", "EVT-2024-0103-001"} {
		event := typhoonEvent()
		event.ID = id
		require.NoError(t, b.Upsert(ctx, event))
	}

	matches, err := b.Search(ctx, Query{Type: "port_closure"}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestKeywordBackend_EmptyQuery(t *testing.T) {
	b := NewKeywordBackend()

	_, err := b.Search(context.Background(), Query{}, 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestKeywordBackend_UpsertReplaces(t *testing.T) {
	b := NewKeywordBackend()
	ctx := context.Background()

	require.NoError(t, b.Upsert(ctx, typhoonEvent()))
	updated := typhoonEvent()
	updated.Outcome = "resolved"
	require.NoError(t, b.Upsert(ctx, updated))

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// -----------------------------------------------------------------------------
// Index Tests
// -----------------------------------------------------------------------------

func TestIndex_RetrieveSimilar_KeywordPrimary(t *testing.T) {
	source := &memorySource{events: []history.Event{typhoonEvent(), strikeEvent()}}
	index, err := NewIndex(NewKeywordBackend(), nil, source, nil)
	require.NoError(t, err)

	result, err := index.RetrieveSimilar(context.Background(), Query{Type: "port_closure", Region: "Taiwan Strait"}, 5)
	require.NoError(t, err)

	assert.Equal(t, BackendKeyword, result.Backend)
	assert.False(t, result.Degraded)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "EVT-2024-0321-001", result.Matches[0].Event.ID)
}

func TestIndex_RetrieveSimilar_ByDescription(t *testing.T) {
	index, err := NewIndex(NewKeywordBackend(), nil, &memorySource{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, typhoonEvent()))
	require.NoError(t, index.Upsert(ctx, strikeEvent()))

	result, err := index.RetrieveSimilar(ctx, Query{Description: strikeEvent().Description}, 1)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "EVT-2023-0702-001", result.Matches[0].Event.ID)
}

func TestIndex_OrdersBackendResults(t *testing.T) {
	older := typhoonEvent()
	older.ID = "EVT-2022-0101-001"
	older.Date = "2022-01-01"
	primary := &unorderedBackend{matches: []Match{
		{Event: strikeEvent(), Score: 0.4},
		{Event: older, Score: 0.9},
		{Event: typhoonEvent(), Score: 0.9},
	}}

	index, err := NewIndex(primary, nil, &memorySource{}, nil)
	require.NoError(t, err)

	result, err := index.RetrieveSimilar(context.Background(), Query{Type: "port_closure"}, 5)
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)

	// Score descending, equal scores newest first, regardless of the
	// order the backend produced.
	assert.Equal(t, "EVT-2024-0321-001", result.Matches[0].Event.ID)
	assert.Equal(t, "EVT-2022-0101-001", result.Matches[1].Event.ID)
	assert.Equal(t, "EVT-2023-0702-001", result.Matches[2].Event.ID)
}

func TestIndex_DegradesToKeywordFallback(t *testing.T) {
	primary := &brokenBackend{}
	fallback := NewKeywordBackend()
	require.NoError(t, fallback.Upsert(context.Background(), typhoonEvent()))
	source := &memorySource{}

	index, err := NewIndex(primary, fallback, source, nil)
	require.NoError(t, err)

	result, err := index.RetrieveSimilar(context.Background(), Query{Type: "port_closure"}, 5)
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, BackendKeyword, result.Backend)
	require.Len(t, result.Matches, 1)
	// Two attempts against the primary before degrading.
	assert.Equal(t, 2, primary.searches)
}

func TestIndex_SurfacesErrorWithoutFallback(t *testing.T) {
	index, err := NewIndex(&brokenBackend{}, nil, &memorySource{}, nil)
	require.NoError(t, err)

	_, err = index.RetrieveSimilar(context.Background(), Query{Type: "port_closure"}, 5)
	assert.Error(t, err)
}

func TestIndex_EmptyQuery(t *testing.T) {
	index, err := NewIndex(NewKeywordBackend(), nil, &memorySource{}, nil)
	require.NoError(t, err)

	_, err = index.RetrieveSimilar(context.Background(), Query{}, 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestIndex_UpsertMirrorsToFallback(t *testing.T) {
	primary := NewKeywordBackend()
	fallback := NewKeywordBackend()
	index, err := NewIndex(primary, fallback, &memorySource{}, nil)
	require.NoError(t, err)

	require.NoError(t, index.Upsert(context.Background(), typhoonEvent()))

	primaryCount, err := primary.Count(context.Background())
	require.NoError(t, err)
	fallbackCount, err := fallback.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, primaryCount)
	assert.Equal(t, 1, fallbackCount)
}

// -----------------------------------------------------------------------------
// Backfill Tests
// -----------------------------------------------------------------------------

func TestIndex_BackfillIfEmpty(t *testing.T) {
	source := &memorySource{events: []history.Event{typhoonEvent(), strikeEvent()}}
	backend := NewKeywordBackend()
	index, err := NewIndex(backend, nil, source, nil)
	require.NoError(t, err)
	ctx := context.Background()

	report, err := index.BackfillIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, report.Performed)
	assert.Equal(t, 2, report.Indexed)
	assert.Zero(t, report.Failed)

	// Second run sees a populated index and writes nothing.
	report, err = index.BackfillIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, report.Performed)

	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndex_BackfillEmptyLog(t *testing.T) {
	index, err := NewIndex(NewKeywordBackend(), nil, &memorySource{}, nil)
	require.NoError(t, err)

	report, err := index.BackfillIfEmpty(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Performed)
}

func TestIndex_BackfillSourceError(t *testing.T) {
	source := &memorySource{err: errors.New("badger closed")}
	index, err := NewIndex(NewKeywordBackend(), nil, source, nil)
	require.NoError(t, err)

	_, err = index.BackfillIfEmpty(context.Background())
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------
// Query Tests
// -----------------------------------------------------------------------------

func TestQuery_Empty(t *testing.T) {
	assert.True(t, Query{}.empty())
	assert.False(t, Query{Type: "port_closure"}.empty())
	assert.False(t, Query{Region: "Suez Canal"}.empty())
	assert.False(t, Query{Description: "canal blockage"}.empty())
}
