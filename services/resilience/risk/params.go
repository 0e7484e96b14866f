// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import "errors"

// Params configures the risk calculator. All model shape parameters live
// here rather than in the formulas so a deployment can tune them.
type Params struct {
	// GracePeriodDays is subtracted from the delay before SLA penalties
	// start accruing.
	// Default: 2
	GracePeriodDays float64 `yaml:"grace_period_days"`

	// BreachThresholdDays anchors the SLA breach probability ramp: the
	// probability is 0 at threshold/2 and 1 at threshold*2.
	// Default: 10
	BreachThresholdDays float64 `yaml:"breach_threshold_days"`

	// RunwayBufferDays caps the number of halt days a single disruption can
	// charge against a production line.
	// Default: 30
	RunwayBufferDays float64 `yaml:"runway_buffer_days"`

	// RunwayTolerance is the allowed absolute disagreement between a
	// precomputed days-on-hand figure and stock/consumption.
	// Default: 0.5
	RunwayTolerance float64 `yaml:"runway_tolerance"`

	// SingleSourceMultiplier scales exposure for single-source suppliers.
	// Must be strictly greater than 1 so a single-source supplier always
	// outranks a multi-source one at equal spend.
	// Default: 1.5
	SingleSourceMultiplier float64 `yaml:"single_source_multiplier"`
}

// DefaultParams returns production defaults for the risk model.
func DefaultParams() Params {
	return Params{
		GracePeriodDays:        2,
		BreachThresholdDays:    10,
		RunwayBufferDays:       30,
		RunwayTolerance:        0.5,
		SingleSourceMultiplier: 1.5,
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if p.GracePeriodDays < 0 {
		return errors.New("grace_period_days must be non-negative")
	}
	if p.BreachThresholdDays <= 0 {
		return errors.New("breach_threshold_days must be positive")
	}
	if p.RunwayBufferDays <= 0 {
		return errors.New("runway_buffer_days must be positive")
	}
	if p.RunwayTolerance < 0 {
		return errors.New("runway_tolerance must be non-negative")
	}
	if p.SingleSourceMultiplier <= 1 {
		return errors.New("single_source_multiplier must be greater than 1")
	}
	return nil
}

// applyDefaults fills zero values with defaults.
func (p *Params) applyDefaults() {
	defaults := DefaultParams()
	if p.BreachThresholdDays == 0 {
		p.BreachThresholdDays = defaults.BreachThresholdDays
	}
	if p.RunwayBufferDays == 0 {
		p.RunwayBufferDays = defaults.RunwayBufferDays
	}
	if p.RunwayTolerance == 0 {
		p.RunwayTolerance = defaults.RunwayTolerance
	}
	if p.SingleSourceMultiplier == 0 {
		p.SingleSourceMultiplier = defaults.SingleSourceMultiplier
	}
}
