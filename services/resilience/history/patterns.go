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
	"sort"
)

// Pattern aggregates repeated disruptions of one type in one region.
type Pattern struct {
	Type          string  `json:"type"`
	Region        string  `json:"region"`
	Count         int     `json:"count"`
	AvgDelayDays  float64 `json:"avg_delay_days"`
	MeanImpactUSD float64 `json:"mean_impact_usd"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	// LastDate is the most recent occurrence, YYYY-MM-DD.
	LastDate string `json:"last_date"`
}

// PatternReport is the output of recurring pattern analysis.
type PatternReport struct {
	TotalEvents      int       `json:"total_events"`
	TotalCostUSD     float64   `json:"total_cost_usd"`
	TotalDelayDays   int       `json:"total_delay_days"`
	Patterns         []Pattern `json:"patterns"`
	RecurringPattern bool      `json:"recurring_pattern"`
}

// RecurringPatterns groups the event log by type and region.
//
// Patterns sort by occurrence count descending, then mean impact
// descending, then type and region ascending so the ordering is stable
// across runs. RecurringPattern is true when any group occurred more than
// once.
func (l *Logger) RecurringPatterns(ctx context.Context) (PatternReport, error) {
	events, err := l.store.All(ctx)
	if err != nil {
		return PatternReport{}, err
	}

	type bucket struct {
		count    int
		delaySum int
		costSum  float64
		lastDate string
	}
	buckets := make(map[[2]string]*bucket)

	report := PatternReport{TotalEvents: len(events)}
	for _, e := range events {
		report.TotalCostUSD += e.Impact.CostUSD
		report.TotalDelayDays += e.Impact.DelayDays

		key := [2]string{e.Type, e.Region}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.delaySum += e.Impact.DelayDays
		b.costSum += e.Impact.CostUSD
		if e.Date > b.lastDate {
			b.lastDate = e.Date
		}
	}

	report.Patterns = make([]Pattern, 0, len(buckets))
	for key, b := range buckets {
		if b.count > 1 {
			report.RecurringPattern = true
		}
		report.Patterns = append(report.Patterns, Pattern{
			Type:          key[0],
			Region:        key[1],
			Count:         b.count,
			AvgDelayDays:  float64(b.delaySum) / float64(b.count),
			MeanImpactUSD: b.costSum / float64(b.count),
			TotalCostUSD:  b.costSum,
			LastDate:      b.lastDate,
		})
	}
	sort.SliceStable(report.Patterns, func(i, j int) bool {
		a, b := report.Patterns[i], report.Patterns[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.MeanImpactUSD != b.MeanImpactUSD {
			return a.MeanImpactUSD > b.MeanImpactUSD
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Region < b.Region
	})
	return report, nil
}
