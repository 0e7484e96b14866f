// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk derives operational exposure from a supply-chain disruption:
// inventory runway, revenue at risk, SLA breach probability, and supplier
// exposure.
//
// All functions are pure over the injected master data and ledger snapshots.
// Nothing here blocks or mutates shared state, so callers may run them in
// parallel without cancellation plumbing.
package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/AleutianAI/resilience/services/resilience/ledger"
	"github.com/AleutianAI/resilience/services/resilience/masterdata"
)

// Alert levels for inventory runway, ordered from healthy to urgent.
const (
	AlertOK       = "OK"
	AlertLow      = "LOW"
	AlertWarning  = "WARNING"
	AlertCritical = "CRITICAL"
)

// Overall supplier risk ratings.
const (
	RatingMedium   = "MEDIUM"
	RatingHigh     = "HIGH"
	RatingCritical = "CRITICAL"
)

// HealthProvider is the narrow read interface onto the external health
// assessment feed. masterdata.Store satisfies it; the calculator never
// reasons about health itself.
type HealthProvider interface {
	Health(supplierID string) (masterdata.HealthAssessment, error)
}

// Calculator computes risk figures over immutable snapshots.
//
// Thread Safety: safe for concurrent use; the Calculator holds no mutable
// state.
type Calculator struct {
	profile *masterdata.Store
	ledger  *ledger.Ledger
	health  HealthProvider
	params  Params
}

// NewCalculator creates a calculator over the given snapshots.
//
// Inputs:
//
//	profile - Manufacturer master data. Must not be nil.
//	ldg - Inventory ledger snapshot. Must not be nil.
//	health - Health assessment view. May be the profile itself.
//	params - Model parameters. Zero values are filled with defaults.
//
// Outputs:
//
//	*Calculator - Ready-to-use calculator.
//	error - Non-nil if a snapshot is missing or params are invalid.
func NewCalculator(profile *masterdata.Store, ldg *ledger.Ledger, health HealthProvider, params Params) (*Calculator, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile must not be nil")
	}
	if ldg == nil {
		return nil, fmt.Errorf("ledger must not be nil")
	}
	if health == nil {
		health = profile
	}
	params.applyDefaults()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk params: %w", err)
	}
	return &Calculator{profile: profile, ledger: ldg, health: health, params: params}, nil
}

// -----------------------------------------------------------------------------
// Inventory Runway
// -----------------------------------------------------------------------------

// Runway is the result of an inventory runway computation.
type Runway struct {
	ItemID           string  `json:"item_id"`
	Description      string  `json:"description"`
	SupplierID       string  `json:"supplier_id"`
	DaysOnHand       float64 `json:"days_on_hand"`
	StockUnits       float64 `json:"stock_units"`
	DailyConsumption float64 `json:"daily_consumption"`
	OnOrderUnits     float64 `json:"on_order_units"`
	AlertLevel       string  `json:"alert_level"`
}

// InventoryRunway returns the days until stock depletion for an item.
//
// Description:
//
//	Runway is stock_units / daily_consumption. When the ledger carries a
//	precomputed days-on-hand, it is used instead after a consistency check
//	against the ratio (RunwayTolerance). A zero consumption rate with no
//	precomputed value is undefined arithmetic and returns
//	ErrZeroConsumption, never a division by zero.
//
// Outputs:
//
//	Runway - The runway with its alert level against the buffer policy.
//	error - ledger.ErrItemNotFound, ErrZeroConsumption, or
//	        ErrInconsistentInput.
func (c *Calculator) InventoryRunway(itemID string) (Runway, error) {
	item, err := c.ledger.Item(itemID)
	if err != nil {
		return Runway{}, err
	}

	days, err := c.itemRunway(item)
	if err != nil {
		return Runway{}, err
	}

	return Runway{
		ItemID:           item.ItemID,
		Description:      item.Description,
		SupplierID:       item.SupplierID,
		DaysOnHand:       days,
		StockUnits:       item.StockUnits,
		DailyConsumption: item.DailyConsumption,
		OnOrderUnits:     item.OnOrderUnits,
		AlertLevel:       c.alertLevel(days),
	}, nil
}

// itemRunway computes runway days for one item.
func (c *Calculator) itemRunway(item ledger.Item) (float64, error) {
	if item.DailyConsumption == 0 {
		if item.DaysOnHand > 0 {
			return item.DaysOnHand, nil
		}
		return 0, fmt.Errorf("%w: item %s", ErrZeroConsumption, item.ItemID)
	}

	ratio := item.StockUnits / item.DailyConsumption
	if item.DaysOnHand > 0 {
		if math.Abs(item.DaysOnHand-ratio) > c.params.RunwayTolerance {
			return 0, fmt.Errorf("%w: item %s has days_on_hand=%.2f but stock/consumption=%.2f",
				ErrInconsistentInput, item.ItemID, item.DaysOnHand, ratio)
		}
		return item.DaysOnHand, nil
	}
	return ratio, nil
}

// alertLevel classifies a runway against the inventory buffer policy.
func (c *Calculator) alertLevel(days float64) string {
	policy := c.profile.Policy()
	switch {
	case days <= policy.ReorderThresholdDays:
		return AlertCritical
	case days <= policy.TargetBufferDays*0.5:
		return AlertWarning
	case days < policy.TargetBufferDays:
		return AlertLow
	default:
		return AlertOK
	}
}

// -----------------------------------------------------------------------------
// Revenue At Risk
// -----------------------------------------------------------------------------

// LineImpact is the exposure of one production line.
type LineImpact struct {
	LineID           string  `json:"line_id"`
	Product          string  `json:"product"`
	DailyRevenueUSD  float64 `json:"daily_revenue_usd"`
	ChargedDays      float64 `json:"charged_days"`
	StockoutDay      float64 `json:"stockout_day,omitempty"`
	RevenueAtRiskUSD float64 `json:"revenue_at_risk_usd"`
}

// SLAImpact is the penalty exposure of one customer SLA.
type SLAImpact struct {
	Customer         string  `json:"customer"`
	PenaltyPerDayUSD float64 `json:"penalty_per_day_usd"`
	PenaltyDays      float64 `json:"penalty_days"`
	PenaltyUSD       float64 `json:"penalty_usd"`
}

// Exposure is the full financial exposure of a disruption.
type Exposure struct {
	SupplierID                string       `json:"supplier_id"`
	DelayDays                 float64      `json:"delay_days"`
	RevenueAtRiskUSD          float64      `json:"total_revenue_at_risk_usd"`
	SLAPenaltiesUSD           float64      `json:"sla_penalties_at_risk_usd"`
	TotalFinancialExposureUSD float64      `json:"total_financial_exposure_usd"`
	Lines                     []LineImpact `json:"breakdown_by_line"`
	SLAs                      []SLAImpact  `json:"breakdown_by_sla"`
}

// RevenueAtRisk projects the revenue loss of disrupting a supplier for
// delayDays.
//
// Description:
//
//	Each production line dependent on the supplier is charged
//	daily_revenue * min(delayDays, RunwayBufferDays). When any line is
//	impacted, every customer SLA accrues penalty_per_day *
//	max(0, delayDays - GracePeriodDays). The result is monotonic
//	non-decreasing in delayDays and exactly zero for delayDays = 0.
//
// Outputs:
//
//	Exposure - Totals plus per-line and per-SLA breakdowns.
//	error - masterdata.ErrSupplierNotFound or ErrNegativeDelay.
func (c *Calculator) RevenueAtRisk(supplierID string, delayDays float64) (Exposure, error) {
	if delayDays < 0 {
		return Exposure{}, fmt.Errorf("%w: got %.1f", ErrNegativeDelay, delayDays)
	}
	if _, err := c.profile.Supplier(supplierID); err != nil {
		return Exposure{}, err
	}

	exp := Exposure{SupplierID: supplierID, DelayDays: delayDays}
	if delayDays == 0 {
		return exp, nil
	}

	chargedDays := math.Min(delayDays, c.params.RunwayBufferDays)
	for _, line := range c.profile.LinesForSupplier(supplierID) {
		impact := LineImpact{
			LineID:           line.ID,
			Product:          line.Product,
			DailyRevenueUSD:  line.DailyRevenueUSD,
			ChargedDays:      chargedDays,
			RevenueAtRiskUSD: line.DailyRevenueUSD * chargedDays,
		}
		if day, ok := c.lineStockoutDay(supplierID, line.SemiconductorDependent); ok {
			impact.StockoutDay = day
		}
		exp.Lines = append(exp.Lines, impact)
		exp.RevenueAtRiskUSD += impact.RevenueAtRiskUSD
	}

	if len(exp.Lines) > 0 {
		penaltyDays := math.Max(0, delayDays-c.params.GracePeriodDays)
		if penaltyDays > 0 {
			for _, sla := range c.profile.CustomerSLAs() {
				impact := SLAImpact{
					Customer:         sla.Customer,
					PenaltyPerDayUSD: sla.PenaltyPerDayUSD,
					PenaltyDays:      penaltyDays,
					PenaltyUSD:       sla.PenaltyPerDayUSD * penaltyDays,
				}
				exp.SLAs = append(exp.SLAs, impact)
				exp.SLAPenaltiesUSD += impact.PenaltyUSD
			}
		}
	}

	exp.TotalFinancialExposureUSD = exp.RevenueAtRiskUSD + exp.SLAPenaltiesUSD
	return exp, nil
}

// lineStockoutDay finds the earliest stockout among the supplier's items
// matching the line's semiconductor dependency. Informational only; the
// charge formula does not depend on it.
func (c *Calculator) lineStockoutDay(supplierID string, semiconductor bool) (float64, bool) {
	best := math.MaxFloat64
	found := false
	for _, item := range c.ledger.ItemsBySupplier(supplierID) {
		if isSemiconductorItem(item.ItemID) != semiconductor {
			continue
		}
		days, err := c.itemRunway(item)
		if err != nil {
			continue
		}
		if days < best {
			best = days
			found = true
		}
	}
	return best, found
}

func isSemiconductorItem(itemID string) bool {
	return strings.HasPrefix(strings.ToUpper(itemID), "SEMI")
}

// -----------------------------------------------------------------------------
// SLA Breach Probability
// -----------------------------------------------------------------------------

// SLABreachProbability maps a delay to a breach probability in [0,1].
//
// Description:
//
//	Clipped linear ramp anchored on BreachThresholdDays T: probability is 0
//	at T/2, 1 at T*2, and linear in between. Deterministic and monotonic
//	non-decreasing in delayDays.
//
// Outputs:
//
//	float64 - Probability in [0,1].
//	error - ErrNegativeDelay for negative delays.
func (c *Calculator) SLABreachProbability(delayDays float64) (float64, error) {
	if delayDays < 0 {
		return 0, fmt.Errorf("%w: got %.1f", ErrNegativeDelay, delayDays)
	}
	t := c.params.BreachThresholdDays
	lo, hi := t/2, t*2
	switch {
	case delayDays <= lo:
		return 0, nil
	case delayDays >= hi:
		return 1, nil
	default:
		return (delayDays - lo) / (hi - lo), nil
	}
}

// -----------------------------------------------------------------------------
// Supplier Exposure
// -----------------------------------------------------------------------------

// SupplierProfile is the operational exposure profile of one supplier.
type SupplierProfile struct {
	Supplier       masterdata.Supplier `json:"supplier"`
	ExposureScore  float64             `json:"exposure_score"`
	OpenPOValueUSD float64             `json:"total_open_po_value_usd"`
	RiskFlags      []string            `json:"risk_flags"`
	OverallRating  string              `json:"overall_risk_rating"`
	HealthTrend    string              `json:"health_trend"`
}

// SupplierExposure returns the exposure profile for a supplier.
//
// Description:
//
//	The exposure score weights spend share by a single-source multiplier,
//	so at equal spend a single-source supplier always scores strictly
//	higher than a multi-source one. Risk flags come from the health
//	assessment view; the overall rating counts them.
func (c *Calculator) SupplierExposure(supplierID string) (SupplierProfile, error) {
	sup, err := c.profile.Supplier(supplierID)
	if err != nil {
		return SupplierProfile{}, err
	}

	assessment, err := c.health.Health(supplierID)
	if err != nil {
		return SupplierProfile{}, err
	}

	score := sup.SpendPct / 100
	if sup.SingleSource {
		score *= c.params.SingleSourceMultiplier
	}

	var poValue float64
	for _, po := range c.ledger.OpenPOsBySupplier(supplierID) {
		poValue += po.ValueUSD
	}

	rating := RatingMedium
	switch {
	case len(assessment.Flags) >= 3:
		rating = RatingCritical
	case len(assessment.Flags) >= 2:
		rating = RatingHigh
	}

	flags := make([]string, len(assessment.Flags))
	copy(flags, assessment.Flags)
	sort.Strings(flags)

	return SupplierProfile{
		Supplier:       sup,
		ExposureScore:  score,
		OpenPOValueUSD: poValue,
		RiskFlags:      flags,
		OverallRating:  rating,
		HealthTrend:    assessment.Trend,
	}, nil
}
