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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/resilience/services/resilience/embedding"
	"github.com/AleutianAI/resilience/services/resilience/history"
)

// DisruptionEventClassName is the Weaviate class for indexed events.
const DisruptionEventClassName = "DisruptionEvent"

// defaultCertainty filters out weakly related events from vector results.
const defaultCertainty = 0.6

// VectorBackend stores events in Weaviate with explicit vectors computed by
// the embedding collaborator. The class uses vectorizer "none"; Weaviate
// never sees raw text without a vector we supplied.
//
// Thread Safety: safe for concurrent use.
type VectorBackend struct {
	client    *weaviate.Client
	embedder  embedding.Embedder
	certainty float32
	logger    *slog.Logger
}

// NewVectorBackend creates the backend and ensures the Weaviate class
// exists.
func NewVectorBackend(ctx context.Context, client *weaviate.Client, embedder embedding.Embedder, logger *slog.Logger) (*VectorBackend, error) {
	if client == nil {
		return nil, errors.New("weaviate client is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &VectorBackend{
		client:    client,
		embedder:  embedder,
		certainty: defaultCertainty,
		logger:    logger.With("component", "vector_backend"),
	}
	if err := b.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// disruptionEventSchema returns the class definition. All searchable text
// is carried in explicit vectors, so the vectorizer is "none".
func disruptionEventSchema() *models.Class {
	return &models.Class{
		Class:       DisruptionEventClassName,
		Description: "Logged supply chain disruption events with explicit embedding vectors",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "eventId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "date", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "eventType", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "region", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "description", DataType: []string{"text"}},
			{Name: "delayDays", DataType: []string{"int"}},
			{Name: "costUsd", DataType: []string{"number"}},
			{Name: "revenueAtRiskUsd", DataType: []string{"number"}},
			{Name: "actualRevenueLostUsd", DataType: []string{"number"}},
			{Name: "mitigationAction", DataType: []string{"text"}},
			{Name: "outcome", DataType: []string{"text"}},
			{Name: "lessonsLearned", DataType: []string{"text"}},
		},
	}
}

// ensureSchema creates the DisruptionEvent class if absent. Idempotent.
func (b *VectorBackend) ensureSchema(ctx context.Context) error {
	_, err := b.client.Schema().ClassGetter().WithClassName(DisruptionEventClassName).Do(ctx)
	if err == nil {
		return nil
	}
	b.logger.Info("creating DisruptionEvent schema")
	if err := b.client.Schema().ClassCreator().WithClass(disruptionEventSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating DisruptionEvent schema: %w", err)
	}
	return nil
}

// Name implements Backend.
func (b *VectorBackend) Name() string { return BackendVector }

// objectID derives a stable Weaviate UUID from the event id so re-indexing
// the same event replaces instead of duplicating.
func objectID(eventID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("disruption-event|"+eventID)).String()
}

// Upsert implements Backend. The event text is embedded and stored with an
// explicit vector under a deterministic object id.
func (b *VectorBackend) Upsert(ctx context.Context, event history.Event) error {
	vector, err := b.embedder.Embed(ctx, event.SearchText())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	props := map[string]interface{}{
		"eventId":              event.ID,
		"date":                 event.Date,
		"eventType":            event.Type,
		"region":               event.Region,
		"description":          event.Description,
		"delayDays":            event.Impact.DelayDays,
		"costUsd":              event.Impact.CostUSD,
		"revenueAtRiskUsd":     event.Impact.RevenueAtRiskUSD,
		"actualRevenueLostUsd": event.Impact.ActualRevenueLostUSD,
		"outcome":              event.Outcome,
		"lessonsLearned":       event.LessonsLearned,
	}
	if event.Mitigation != nil {
		props["mitigationAction"] = event.Mitigation.Action
	}

	id := objectID(event.ID)
	_, err = b.client.Data().Creator().
		WithClassName(DisruptionEventClassName).
		WithID(id).
		WithProperties(props).
		WithVector(vector).
		Do(ctx)
	if err == nil {
		return nil
	}

	// Create fails when the object already exists; replace it instead.
	updateErr := b.client.Data().Updater().
		WithClassName(DisruptionEventClassName).
		WithID(id).
		WithProperties(props).
		WithVector(vector).
		Do(ctx)
	if updateErr != nil {
		return fmt.Errorf("upserting event %s: create: %v, update: %w", event.ID, err, updateErr)
	}
	return nil
}

// Search implements Backend. The query is embedded and matched with
// NearVector; certainty is reported as the score.
func (b *VectorBackend) Search(ctx context.Context, query Query, limit int) ([]Match, error) {
	if query.empty() {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, nil
	}

	vector, err := b.embedder.Embed(ctx, query.text())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	nearVector := b.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithCertainty(b.certainty)

	// Certainty is requested rather than distance: it is always in [0,1]
	// regardless of the distance metric.
	fields := []graphql.Field{
		{Name: "eventId"},
		{Name: "date"},
		{Name: "eventType"},
		{Name: "region"},
		{Name: "description"},
		{Name: "delayDays"},
		{Name: "costUsd"},
		{Name: "revenueAtRiskUsd"},
		{Name: "actualRevenueLostUsd"},
		{Name: "mitigationAction"},
		{Name: "outcome"},
		{Name: "lessonsLearned"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := b.client.GraphQL().Get().
		WithClassName(DisruptionEventClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	return b.parseMatches(result.Data)
}

// Count implements Backend using a meta count aggregation.
func (b *VectorBackend) Count(ctx context.Context) (int, error) {
	result, err := b.client.GraphQL().Aggregate().
		WithClassName(DisruptionEventClassName).
		WithFields(graphql.Field{
			Name:   "meta",
			Fields: []graphql.Field{{Name: "count"}},
		}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate count failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("weaviate count error: %s", result.Errors[0].Message)
	}

	agg, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, errors.New("unexpected aggregate response shape")
	}
	rows, ok := agg[DisruptionEventClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, errors.New("unexpected aggregate row shape")
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, errors.New("aggregate response missing meta")
	}
	return int(toFloat(meta["count"])), nil
}

// parseMatches converts a GraphQL Get response into ordered matches.
// Objects that fail to parse are skipped with a warning rather than failing
// the whole retrieval.
func (b *VectorBackend) parseMatches(data map[string]models.JSONObject) ([]Match, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search response shape")
	}
	rows, ok := get[DisruptionEventClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(rows))
	for _, raw := range rows {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			b.logger.Warn("skipping malformed search result object")
			continue
		}
		match := Match{
			Event: history.Event{
				ID:             asString(obj["eventId"]),
				Date:           asString(obj["date"]),
				Type:           asString(obj["eventType"]),
				Region:         asString(obj["region"]),
				Description:    asString(obj["description"]),
				Outcome:        asString(obj["outcome"]),
				LessonsLearned: asString(obj["lessonsLearned"]),
				Impact: history.Impact{
					DelayDays:            int(toFloat(obj["delayDays"])),
					CostUSD:              toFloat(obj["costUsd"]),
					RevenueAtRiskUSD:     toFloat(obj["revenueAtRiskUsd"]),
					ActualRevenueLostUSD: toFloat(obj["actualRevenueLostUsd"]),
				},
			},
		}
		if action := asString(obj["mitigationAction"]); action != "" {
			match.Event.Mitigation = &history.Mitigation{Action: action}
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			match.Score = toFloat(additional["certainty"])
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// asString extracts a string field from a decoded GraphQL object.
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// toFloat extracts a numeric field; GraphQL numbers may decode as float64
// or json.Number.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
