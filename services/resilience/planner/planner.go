// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner simulates and ranks mitigation scenarios for supply
// disruptions. Every cost it produces is a planning estimate computed from
// configured tables; nothing here places orders or books freight.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/resilience/services/resilience/ledger"
	"github.com/AleutianAI/resilience/services/resilience/masterdata"
)

var (
	// ErrScenarioNotFound indicates the requested scenario type is not
	// configured.
	ErrScenarioNotFound = errors.New("scenario type not found")

	// ErrScenarioNotApplicable indicates the scenario exists but does not
	// apply to the requested item's category.
	ErrScenarioNotApplicable = errors.New("scenario not applicable to item")

	// ErrInvalidQuantity indicates a non-positive unit quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidWeight indicates a non-positive freight weight.
	ErrInvalidWeight = errors.New("weight must be positive")

	// ErrUnknownAppetite indicates a risk appetite with no configured
	// weight preset.
	ErrUnknownAppetite = errors.New("unknown risk appetite")
)

// SimulationResult is the costed outcome of one mitigation scenario. The
// Simulated flag is always true so downstream consumers can never mistake a
// what-if for an executed action.
type SimulationResult struct {
	ScenarioType string `json:"scenario_type"`
	ScenarioName string `json:"scenario_name"`
	Description  string `json:"description"`

	ItemID        string  `json:"item_id"`
	Quantity      float64 `json:"quantity"`
	DelayDays     int     `json:"delay_days"`

	FixedCostUSD      float64 `json:"fixed_cost_usd"`
	VariableCostUSD   float64 `json:"variable_cost_usd"`
	FreightPremiumUSD float64 `json:"freight_premium_usd,omitempty"`
	TotalCostUSD      float64 `json:"total_cost_usd"`

	ImplementationDays     int      `json:"implementation_days"`
	ServiceLevelProtection string   `json:"service_level_protection"`
	CO2Impact              string   `json:"co2_impact"`
	Risks                  []string `json:"risks,omitempty"`

	Simulated bool `json:"simulated"`
}

// FreightEstimate is a costed airfreight lane quote. Estimated is true when
// the lane was absent from the rate table and default rates were used.
type FreightEstimate struct {
	Origin       string  `json:"origin"`
	Destination  string  `json:"destination"`
	WeightKg     float64 `json:"weight_kg"`
	RatePerKgUSD float64 `json:"rate_per_kg_usd"`
	TransitDays  int     `json:"transit_days"`

	FreightCostUSD     float64 `json:"freight_cost_usd"`
	HandlingFeeUSD     float64 `json:"handling_fee_usd"`
	CustomsEstimateUSD float64 `json:"customs_estimate_usd"`
	TotalCostUSD       float64 `json:"total_cost_usd"`

	Estimated bool `json:"estimated"`
}

// RankedScenario is one entry in a ranked comparison. Score is 0-100 with
// higher meaning better under the supplied weights.
type RankedScenario struct {
	Rank   int              `json:"rank"`
	Score  float64          `json:"score"`
	Result SimulationResult `json:"result"`
}

// Planner evaluates mitigation scenarios against master data and the
// inventory ledger. It is immutable after construction and safe for
// concurrent use.
type Planner struct {
	cfg     *Config
	profile *masterdata.Store
	stock   *ledger.Ledger
}

// NewPlanner wires a planner over its read-only data sources.
func NewPlanner(cfg *Config, profile *masterdata.Store, stock *ledger.Ledger) (*Planner, error) {
	if cfg == nil {
		return nil, errors.New("planner config is required")
	}
	if profile == nil {
		return nil, errors.New("master data store is required")
	}
	if stock == nil {
		return nil, errors.New("inventory ledger is required")
	}
	return &Planner{cfg: cfg, profile: profile, stock: stock}, nil
}

// ScenarioTypes returns the configured scenario type keys in definition
// order.
func (p *Planner) ScenarioTypes() []string {
	types := make([]string, 0, len(p.cfg.Scenarios))
	for _, s := range p.cfg.Scenarios {
		types = append(types, s.Type)
	}
	return types
}

// WeightsForAppetite resolves a named risk appetite preset.
func (p *Planner) WeightsForAppetite(appetite string) (Weights, error) {
	w, ok := p.cfg.RiskAppetiteWeights[appetite]
	if !ok {
		return Weights{}, fmt.Errorf("%w: %s", ErrUnknownAppetite, appetite)
	}
	return w, nil
}

// Simulate costs a single mitigation scenario for an item.
//
// Description:
//
//	Total cost is fixed cost + variable rate x quantity, plus a
//	weight-based freight premium for freight scenarios. The premium is
//	priced on the lane from the item's supplier country to the configured
//	home country. The result always carries Simulated=true.
//
// Inputs:
//   - scenarioType: configured scenario key, e.g. "airfreight".
//   - itemID: ledger item the mitigation covers.
//   - delayDays: expected disruption delay, must be non-negative.
//   - quantity: units covered, must be positive.
//
// Outputs:
//   - SimulationResult: the costed what-if.
//   - error: ErrScenarioNotFound, ErrScenarioNotApplicable,
//     ledger.ErrItemNotFound, or ErrInvalidQuantity.
func (p *Planner) Simulate(scenarioType, itemID string, delayDays int, quantity float64) (SimulationResult, error) {
	def, ok := p.cfg.scenario(scenarioType)
	if !ok {
		return SimulationResult{}, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioType)
	}
	if quantity <= 0 {
		return SimulationResult{}, fmt.Errorf("%w: got %v", ErrInvalidQuantity, quantity)
	}
	if delayDays < 0 {
		return SimulationResult{}, fmt.Errorf("delay days must be non-negative, got %d", delayDays)
	}

	item, err := p.stock.Item(itemID)
	if err != nil {
		return SimulationResult{}, err
	}
	supplier, err := p.profile.Supplier(item.SupplierID)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("resolve supplier for item %s: %w", itemID, err)
	}
	if def.Category != "" && !strings.EqualFold(def.Category, supplier.Category) {
		return SimulationResult{}, fmt.Errorf("%w: scenario %s requires category %s, item %s is %s",
			ErrScenarioNotApplicable, scenarioType, def.Category, itemID, supplier.Category)
	}

	result := SimulationResult{
		ScenarioType:           def.Type,
		ScenarioName:           def.Name,
		Description:            def.Description,
		ItemID:                 item.ItemID,
		Quantity:               quantity,
		DelayDays:              delayDays,
		FixedCostUSD:           def.FixedCostUSD,
		VariableCostUSD:        def.VariableRate * quantity,
		ImplementationDays:     def.ImplementationDays,
		ServiceLevelProtection: def.ServiceLevelProtection,
		CO2Impact:              def.CO2Impact,
		Risks:                  append([]string(nil), def.Risks...),
		Simulated:              true,
	}

	if def.Freight {
		weight := quantity * p.cfg.AirfreightDefaults.UnitWeightKg
		estimate, err := p.AirfreightEstimate(supplier.Country, p.cfg.AirfreightDefaults.HomeCountry, weight)
		if err != nil {
			return SimulationResult{}, fmt.Errorf("price freight premium: %w", err)
		}
		result.FreightPremiumUSD = estimate.TotalCostUSD
	}

	result.TotalCostUSD = result.FixedCostUSD + result.VariableCostUSD + result.FreightPremiumUSD
	return result, nil
}

// AirfreightEstimate prices an air cargo lane.
//
// Lane keys are "origin|destination". Unknown lanes fall back to default
// rates and are flagged Estimated=true so callers can tell a table quote
// from a guess.
func (p *Planner) AirfreightEstimate(origin, destination string, weightKg float64) (FreightEstimate, error) {
	if origin == "" || destination == "" {
		return FreightEstimate{}, errors.New("origin and destination are required")
	}
	if weightKg <= 0 {
		return FreightEstimate{}, fmt.Errorf("%w: got %v", ErrInvalidWeight, weightKg)
	}

	defaults := p.cfg.AirfreightDefaults
	estimate := FreightEstimate{
		Origin:      origin,
		Destination: destination,
		WeightKg:    weightKg,
	}

	laneKey := origin + "|" + destination
	if lane, ok := p.cfg.AirfreightRates[laneKey]; ok {
		estimate.RatePerKgUSD = lane.RatePerKgUSD
		estimate.TransitDays = lane.TransitDays
	} else {
		estimate.RatePerKgUSD = defaults.DefaultRatePerKgUSD
		estimate.TransitDays = defaults.DefaultTransitDays
		estimate.Estimated = true
	}

	estimate.FreightCostUSD = estimate.RatePerKgUSD * weightKg
	estimate.HandlingFeeUSD = defaults.HandlingFeeUSD
	estimate.CustomsEstimateUSD = estimate.FreightCostUSD * defaults.CustomsPct
	estimate.TotalCostUSD = estimate.FreightCostUSD + estimate.HandlingFeeUSD + estimate.CustomsEstimateUSD
	return estimate, nil
}

// Rank orders simulated scenarios by a weighted score over cost, speed,
// service protection, and CO2 impact.
//
// Description:
//
//	Cost and implementation days are min-max normalized across the
//	candidate set so the cheapest and fastest candidates score 1.0 on
//	those axes. Service and CO2 scores come from configured tables. The
//	weighted sum is scaled to 0-100. Ranking is deterministic: score ties
//	break on lower cost, then fewer implementation days, then scenario
//	type. The input slice is never mutated.
func (p *Planner) Rank(candidates []SimulationResult, weights Weights) ([]RankedScenario, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidates to rank")
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}

	minCost, maxCost := candidates[0].TotalCostUSD, candidates[0].TotalCostUSD
	minDays, maxDays := candidates[0].ImplementationDays, candidates[0].ImplementationDays
	for _, c := range candidates[1:] {
		minCost = min(minCost, c.TotalCostUSD)
		maxCost = max(maxCost, c.TotalCostUSD)
		minDays = min(minDays, c.ImplementationDays)
		maxDays = max(maxDays, c.ImplementationDays)
	}

	weightSum := weights.Cost + weights.Speed + weights.Service + weights.CO2
	ranked := make([]RankedScenario, 0, len(candidates))
	for _, c := range candidates {
		costScore := normalize(maxCost-c.TotalCostUSD, maxCost-minCost)
		speedScore := normalize(float64(maxDays-c.ImplementationDays), float64(maxDays-minDays))
		serviceScore := p.cfg.ServiceLevelScores[c.ServiceLevelProtection] / 100
		co2Score := p.cfg.CO2Scores[c.CO2Impact] / 100

		weighted := weights.Cost*costScore +
			weights.Speed*speedScore +
			weights.Service*serviceScore +
			weights.CO2*co2Score
		ranked = append(ranked, RankedScenario{
			Score:  100 * weighted / weightSum,
			Result: c,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Result.TotalCostUSD != b.Result.TotalCostUSD {
			return a.Result.TotalCostUSD < b.Result.TotalCostUSD
		}
		if a.Result.ImplementationDays != b.Result.ImplementationDays {
			return a.Result.ImplementationDays < b.Result.ImplementationDays
		}
		return a.Result.ScenarioType < b.Result.ScenarioType
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// AlternativeSuppliers lists configured backup sources for a category,
// excluding any in the given regions. Qualified suppliers sort first, then
// shorter lead times.
func (p *Planner) AlternativeSuppliers(category string, excludeRegions []string) []AlternativeSupplier {
	excluded := make(map[string]bool, len(excludeRegions))
	for _, r := range excludeRegions {
		excluded[r] = true
	}

	var out []AlternativeSupplier
	for _, alt := range p.cfg.AlternativeSuppliers[category] {
		if excluded[alt.Region] {
			continue
		}
		out = append(out, alt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Qualified != out[j].Qualified {
			return out[i].Qualified
		}
		return out[i].LeadTimeDays < out[j].LeadTimeDays
	})
	return out
}

// normalize maps value/span to [0,1], treating a zero span as a perfect
// score so single-candidate and all-equal sets do not divide by zero.
func normalize(value, span float64) float64 {
	if span == 0 {
		return 1
	}
	return value / span
}
