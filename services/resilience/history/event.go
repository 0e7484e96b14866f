// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history is the append-oriented disruption event log. Events are
// persisted to Badger, validated on write, and fanned out to the similarity
// index so past disruptions can be retrieved when a new one starts.
package history

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrEventNotFound indicates no event exists for the given id.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidEvent indicates the event failed validation.
	ErrInvalidEvent = errors.New("invalid event")
)

// eventIDPattern is the canonical id shape, e.g. EVT-2024-0321-002.
var eventIDPattern = regexp.MustCompile(`^EVT-\d{4}-\d{4}-\d{3}$`)

// Impact quantifies what a disruption cost. RevenueAtRiskUSD is the exposure
// estimated while the disruption ran; ActualRevenueLostUSD is the realized
// figure recorded after resolution, and stays zero until then.
type Impact struct {
	DelayDays            int      `json:"delay_days" yaml:"delay_days" validate:"min=0"`
	CostUSD              float64  `json:"cost_usd" yaml:"cost_usd" validate:"min=0"`
	RevenueAtRiskUSD     float64  `json:"revenue_at_risk_usd,omitempty" yaml:"revenue_at_risk_usd,omitempty" validate:"min=0"`
	ActualRevenueLostUSD float64  `json:"actual_revenue_lost_usd,omitempty" yaml:"actual_revenue_lost_usd,omitempty" validate:"min=0"`
	AffectedSuppliers    []string `json:"affected_suppliers,omitempty" yaml:"affected_suppliers,omitempty"`
}

// Mitigation records the countermeasure taken for an event, if any.
type Mitigation struct {
	Action  string  `json:"action" yaml:"action"`
	CostUSD float64 `json:"cost_usd" yaml:"cost_usd" validate:"min=0"`
}

// Event is one logged disruption.
type Event struct {
	// ID is assigned by the logger when empty. Callers may supply a
	// canonical id to upsert an existing event.
	ID string `json:"id" yaml:"id"`

	// Date is the disruption start date in YYYY-MM-DD form.
	Date        string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Type        string `json:"type" yaml:"type" validate:"required"`
	Region      string `json:"region" yaml:"region" validate:"required"`
	Description string `json:"description" yaml:"description" validate:"required"`

	Impact     Impact      `json:"impact" yaml:"impact"`
	Mitigation *Mitigation `json:"mitigation,omitempty" yaml:"mitigation,omitempty"`

	// Outcome is filled in after the disruption resolves.
	Outcome string `json:"outcome,omitempty" yaml:"outcome,omitempty"`

	// LessonsLearned is the retrospective note attached after resolution.
	// It feeds similarity matching so past countermeasures surface when a
	// comparable disruption starts.
	LessonsLearned string `json:"lessons_learned,omitempty" yaml:"lessons_learned,omitempty"`
}

// SearchText flattens the event into the text used for similarity matching.
func (e Event) SearchText() string {
	parts := []string{e.Type, e.Region, e.Description}
	if e.Mitigation != nil && e.Mitigation.Action != "" {
		parts = append(parts, e.Mitigation.Action)
	}
	if e.Outcome != "" {
		parts = append(parts, e.Outcome)
	}
	if e.LessonsLearned != "" {
		parts = append(parts, e.LessonsLearned)
	}
	return strings.Join(parts, " ")
}

// validID reports whether id matches the canonical shape.
func validID(id string) bool {
	return eventIDPattern.MatchString(id)
}

// idPrefixForDate builds the id prefix for a date, e.g. "EVT-2024-0321-".
func idPrefixForDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("parse event date %q: %w", date, err)
	}
	return fmt.Sprintf("EVT-%04d-%02d%02d-", t.Year(), t.Month(), t.Day()), nil
}
