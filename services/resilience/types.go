// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resilience

import (
	"github.com/AleutianAI/resilience/services/resilience/masterdata"
	"github.com/AleutianAI/resilience/services/resilience/planner"
	"github.com/AleutianAI/resilience/services/resilience/risk"
	"github.com/AleutianAI/resilience/services/resilience/state"
)

// SupplierDetail is the full risk picture for one supplier.
type SupplierDetail struct {
	Supplier masterdata.Supplier         `json:"supplier"`
	Health   masterdata.HealthAssessment `json:"health"`
	Exposure risk.SupplierProfile        `json:"exposure"`
}

// RevenueAtRiskRequest parameterizes a financial exposure calculation.
type RevenueAtRiskRequest struct {
	SupplierID string  `json:"supplier_id" binding:"required"`
	DelayDays  float64 `json:"delay_days" binding:"required"`
}

// SimulateRequest parameterizes a single scenario simulation.
type SimulateRequest struct {
	ScenarioType string  `json:"scenario_type" binding:"required"`
	ItemID       string  `json:"item_id" binding:"required"`
	DelayDays    int     `json:"delay_days"`
	Quantity     float64 `json:"quantity" binding:"required"`
}

// RankRequest asks for a ranked comparison of scenarios for one item.
// Weights override the named risk appetite preset when present.
type RankRequest struct {
	ItemID        string           `json:"item_id" binding:"required"`
	DelayDays     int              `json:"delay_days"`
	Quantity      float64          `json:"quantity" binding:"required"`
	ScenarioTypes []string         `json:"scenario_types,omitempty"`
	RiskAppetite  string           `json:"risk_appetite,omitempty"`
	Weights       *planner.Weights `json:"weights,omitempty"`
}

// RankResponse is the ranked comparison plus the weights that produced it.
type RankResponse struct {
	Ranked  []planner.RankedScenario `json:"ranked"`
	Weights planner.Weights          `json:"weights"`
	// Skipped lists scenario types that could not be simulated for this
	// item, e.g. category-restricted ones, with the reason.
	Skipped map[string]string `json:"skipped,omitempty"`
}

// InitiateDisruptionRequest declares a transport lane disrupted.
type InitiateDisruptionRequest struct {
	Lane      string  `json:"lane" binding:"required"`
	DelayDays float64 `json:"delay_days"`
	Severity  string  `json:"severity,omitempty"`

	RerouteAvailable          bool    `json:"reroute_available,omitempty"`
	RerouteVia                string  `json:"reroute_via,omitempty"`
	RerouteAdditionalDays     float64 `json:"reroute_additional_days,omitempty"`
	CarrierSurchargeUSDPerTEU float64 `json:"carrier_surcharge_usd_per_teu,omitempty"`
	VesselsAffectedPct        float64 `json:"vessels_affected_pct,omitempty"`
}

// laneStatus converts the request into a lane record.
func (r InitiateDisruptionRequest) laneStatus() state.LaneStatus {
	return state.LaneStatus{
		Severity:                  r.Severity,
		AvgDelayDays:              r.DelayDays,
		RerouteAvailable:          r.RerouteAvailable,
		RerouteVia:                r.RerouteVia,
		RerouteAdditionalDays:     r.RerouteAdditionalDays,
		CarrierSurchargeUSDPerTEU: r.CarrierSurchargeUSDPerTEU,
		VesselsAffectedPct:        r.VesselsAffectedPct,
	}
}

// OutcomeRequest records how a disruption was resolved.
type OutcomeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// SimilarRequest asks for historical events similar to a disruption.
type SimilarRequest struct {
	Type        string `json:"type,omitempty"`
	Region      string `json:"region,omitempty"`
	Description string `json:"description,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// SimilarityBackend names the active primary backend.
	SimilarityBackend string `json:"similarity_backend"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
