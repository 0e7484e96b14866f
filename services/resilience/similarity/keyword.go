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
	"strings"
	"sync"
	"unicode"

	"github.com/AleutianAI/resilience/services/resilience/history"
)

// Keyword scoring weights. Scores are normalized by the maximum attainable
// for the fields the query actually carries, so a query matching perfectly
// on everything it specifies scores 1.0 regardless of which fields it has.
const (
	typeMatchWeight    = 3.0
	regionMatchWeight  = 3.0
	regionInDescWeight = 2.0
	typeInDescWeight   = 1.0
	descOverlapWeight  = 3.0
)

// minTokenLen drops noise words from description matching. Tokenization is
// fixed (lowercase, split on non-alphanumeric runes) so scoring stays
// deterministic.
const minTokenLen = 3

// KeywordBackend scores events with field, substring, and description token
// matches. It holds its whole corpus in memory, which is fine at the scale
// of a disruption log, and needs no external services. It doubles as the
// degradation path when the vector backend is down.
//
// Thread Safety: safe for concurrent use.
type KeywordBackend struct {
	mu     sync.RWMutex
	events map[string]history.Event
}

// NewKeywordBackend creates an empty keyword backend.
func NewKeywordBackend() *KeywordBackend {
	return &KeywordBackend{events: make(map[string]history.Event)}
}

// Name implements Backend.
func (b *KeywordBackend) Name() string { return BackendKeyword }

// Upsert implements Backend.
func (b *KeywordBackend) Upsert(_ context.Context, event history.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ID] = event
	return nil
}

// Count implements Backend.
func (b *KeywordBackend) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events), nil
}

// Search implements Backend.
//
// Scoring: exact type match 3, exact region match 3, query region appearing
// in the event description 2, query type appearing in the event description
// 1, plus up to 3 for the fraction of query description tokens found in the
// event's full search text.
// The raw score is normalized by the maximum attainable for the populated
// query fields, so an event logged and then queried by its own description
// scores 1.0 and sorts first. Zero-score events are excluded. Ordering is
// deterministic: score descending, then more recent date, then id.
func (b *KeywordBackend) Search(_ context.Context, query Query, limit int) ([]Match, error) {
	if query.empty() {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, nil
	}

	qType := strings.ToLower(strings.TrimSpace(query.Type))
	qRegion := strings.ToLower(strings.TrimSpace(query.Region))
	qTokens := tokenize(query.Description)

	var maxScore float64
	if qType != "" {
		maxScore += typeMatchWeight + typeInDescWeight
	}
	if qRegion != "" {
		maxScore += regionMatchWeight + regionInDescWeight
	}
	if len(qTokens) > 0 {
		maxScore += descOverlapWeight
	}
	if maxScore == 0 {
		return nil, ErrEmptyQuery
	}

	b.mu.RLock()
	matches := make([]Match, 0, len(b.events))
	for _, event := range b.events {
		desc := strings.ToLower(event.Description)
		var score float64
		if qType != "" && strings.ToLower(event.Type) == qType {
			score += typeMatchWeight
		}
		if qRegion != "" && strings.ToLower(event.Region) == qRegion {
			score += regionMatchWeight
		}
		if qRegion != "" && strings.Contains(desc, qRegion) {
			score += regionInDescWeight
		}
		if qType != "" && strings.Contains(desc, qType) {
			score += typeInDescWeight
		}
		if len(qTokens) > 0 {
			score += descOverlapWeight * tokenOverlap(qTokens, event.SearchText())
		}
		if score > 0 {
			matches = append(matches, Match{Event: event, Score: score / maxScore})
		}
	}
	b.mu.RUnlock()

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// tokenize lowercases text and splits it on non-alphanumeric runes,
// dropping tokens shorter than minTokenLen.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokenOverlap returns the fraction of query tokens present in the event
// text, in [0,1].
func tokenOverlap(qTokens []string, text string) float64 {
	eventTokens := tokenize(text)
	present := make(map[string]bool, len(eventTokens))
	for _, tok := range eventTokens {
		present[tok] = true
	}
	hits := 0
	for _, tok := range qTokens {
		if present[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}
