// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package similarity retrieves historically similar disruptions for a new
// event. Two interchangeable backends exist: a keyword scorer that needs no
// infrastructure, and a Weaviate vector backend with explicit embeddings.
// The index layered on top adds retries, keyword fallback, and one-time
// backfill from the event log.
package similarity

import (
	"context"
	"errors"
	"sort"

	"github.com/AleutianAI/resilience/services/resilience/history"
)

var (
	// ErrBackendNotConfigured indicates the requested backend was not set
	// up at startup.
	ErrBackendNotConfigured = errors.New("similarity backend not configured")

	// ErrEmbeddingUnavailable indicates the embedding collaborator failed
	// and vector search cannot proceed.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrEmptyQuery indicates a query with no usable fields.
	ErrEmptyQuery = errors.New("empty similarity query")
)

// Backend names reported in results and metrics.
const (
	BackendKeyword = "keyword"
	BackendVector  = "vector"
)

// Query describes the disruption being matched against history.
type Query struct {
	Type        string `json:"type"`
	Region      string `json:"region"`
	Description string `json:"description"`
}

// text flattens the query for embedding.
func (q Query) text() string {
	return q.Type + " " + q.Region + " " + q.Description
}

// empty reports whether the query carries nothing to match on.
func (q Query) empty() bool {
	return q.Type == "" && q.Region == "" && q.Description == ""
}

// Match is one retrieved historical event with its similarity score in
// [0,1].
type Match struct {
	Event history.Event `json:"event"`
	Score float64       `json:"score"`
}

// sortMatches orders matches by score descending, then more recent date,
// then id. Every retrieval path applies it so ordering is identical no
// matter which backend answered.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Event.Date != matches[j].Event.Date {
			return matches[i].Event.Date > matches[j].Event.Date
		}
		return matches[i].Event.ID < matches[j].Event.ID
	})
}

// Backend is a pluggable similarity store. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Name returns the backend identifier for results and metrics.
	Name() string

	// Upsert adds or replaces an event in the store.
	Upsert(ctx context.Context, event history.Event) error

	// Search returns up to limit matches ordered by descending score.
	Search(ctx context.Context, query Query, limit int) ([]Match, error)

	// Count reports how many events the store holds.
	Count(ctx context.Context) (int, error)
}
