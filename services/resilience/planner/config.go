// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize is the maximum allowed planner config size (1MB).
const MaxConfigFileSize = 1024 * 1024

//go:embed planner.yaml
var defaultPlannerYAML []byte

// Service level protection tiers.
const (
	ServiceLow    = "Low"
	ServiceMedium = "Medium"
	ServiceHigh   = "High"
)

// ScenarioDefinition describes one configured mitigation option.
type ScenarioDefinition struct {
	// Type is the stable lookup key, e.g. "airfreight".
	Type        string `yaml:"type" json:"type"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	FixedCostUSD float64 `yaml:"fixed_cost_usd" json:"fixed_cost_usd"`
	// VariableRate is the incremental cost per unit covered.
	VariableRate float64 `yaml:"variable_rate" json:"variable_rate"`

	ImplementationDays     int    `yaml:"implementation_days" json:"implementation_days"`
	ServiceLevelProtection string `yaml:"service_level_protection" json:"service_level_protection"`
	CO2Impact              string `yaml:"co2_impact" json:"co2_impact"`

	// Category restricts the scenario to items of one supplier category.
	// Empty means applicable to any item.
	Category string `yaml:"category,omitempty" json:"category,omitempty"`

	// Freight marks scenarios priced with a weight-based airfreight premium.
	Freight bool `yaml:"freight,omitempty" json:"freight,omitempty"`

	Risks []string `yaml:"risks,omitempty" json:"risks,omitempty"`
}

// AirfreightRate is one lane entry in the rate table.
type AirfreightRate struct {
	RatePerKgUSD float64 `yaml:"rate_per_kg" json:"rate_per_kg"`
	TransitDays  int     `yaml:"transit_days" json:"transit_days"`
}

// AirfreightDefaults applies when a lane is absent from the rate table and
// to the fee components of every estimate.
type AirfreightDefaults struct {
	DefaultRatePerKgUSD float64 `yaml:"default_rate_per_kg" json:"default_rate_per_kg"`
	DefaultTransitDays  int     `yaml:"default_transit_days" json:"default_transit_days"`
	HandlingFeeUSD      float64 `yaml:"handling_fee_usd" json:"handling_fee_usd"`
	CustomsPct          float64 `yaml:"customs_pct" json:"customs_pct"`
	// UnitWeightKg is the planning weight per covered unit for freight
	// scenarios.
	UnitWeightKg float64 `yaml:"unit_weight_kg" json:"unit_weight_kg"`
	// HomeCountry is the destination used when pricing freight scenarios.
	HomeCountry string `yaml:"home_country" json:"home_country"`
}

// Weights are caller-supplied risk appetite weights for ranking. They are
// relative; Rank normalizes by their sum.
type Weights struct {
	Cost    float64 `yaml:"cost" json:"cost"`
	Speed   float64 `yaml:"speed" json:"speed"`
	Service float64 `yaml:"service" json:"service"`
	CO2     float64 `yaml:"co2" json:"co2"`
}

// Validate checks the weights are usable.
func (w Weights) Validate() error {
	if w.Cost < 0 || w.Speed < 0 || w.Service < 0 || w.CO2 < 0 {
		return errors.New("weights must be non-negative")
	}
	if w.Cost+w.Speed+w.Service+w.CO2 == 0 {
		return errors.New("at least one weight must be positive")
	}
	return nil
}

// AlternativeSupplier is a backup sourcing option for a category.
type AlternativeSupplier struct {
	Name         string `yaml:"name" json:"name"`
	Region       string `yaml:"region" json:"region"`
	LeadTimeDays int    `yaml:"lead_time_days" json:"lead_time_days"`
	Qualified    bool   `yaml:"qualified" json:"qualified"`
}

// Config is the full planner configuration.
type Config struct {
	Scenarios            []ScenarioDefinition             `yaml:"scenario_definitions"`
	AirfreightRates      map[string]AirfreightRate        `yaml:"airfreight_rates"`
	AirfreightDefaults   AirfreightDefaults               `yaml:"airfreight_defaults"`
	RiskAppetiteWeights  map[string]Weights               `yaml:"risk_appetite_weights"`
	ServiceLevelScores   map[string]float64               `yaml:"service_level_scores"`
	CO2Scores            map[string]float64               `yaml:"co2_scores"`
	AlternativeSuppliers map[string][]AlternativeSupplier `yaml:"alternative_suppliers"`
}

// LoadConfig reads the planner configuration from the override path, or the
// embedded default when path is empty.
func LoadConfig(path string) (*Config, error) {
	raw := defaultPlannerYAML
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat planner config %s: %w", path, err)
		}
		if info.Size() > MaxConfigFileSize {
			return nil, fmt.Errorf("planner config %s exceeds %d bytes", path, MaxConfigFileSize)
		}
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read planner config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse planner config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planner config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.Scenarios) == 0 {
		return errors.New("no scenario definitions")
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if s.Type == "" {
			return errors.New("scenario with empty type")
		}
		if seen[s.Type] {
			return fmt.Errorf("duplicate scenario type %s", s.Type)
		}
		seen[s.Type] = true
		if s.FixedCostUSD < 0 || s.VariableRate < 0 {
			return fmt.Errorf("scenario %s: costs must be non-negative", s.Type)
		}
		if s.ImplementationDays < 0 {
			return fmt.Errorf("scenario %s: implementation_days must be non-negative", s.Type)
		}
		switch s.ServiceLevelProtection {
		case ServiceLow, ServiceMedium, ServiceHigh:
		default:
			return fmt.Errorf("scenario %s: unknown service_level_protection %q", s.Type, s.ServiceLevelProtection)
		}
	}
	if c.AirfreightDefaults.DefaultRatePerKgUSD <= 0 {
		return errors.New("airfreight_defaults.default_rate_per_kg must be positive")
	}
	if c.AirfreightDefaults.CustomsPct < 0 || c.AirfreightDefaults.CustomsPct > 1 {
		return errors.New("airfreight_defaults.customs_pct must be in [0,1]")
	}
	for name, w := range c.RiskAppetiteWeights {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("risk_appetite_weights.%s: %w", name, err)
		}
	}
	return nil
}

// scenario looks up a definition by type key.
func (c *Config) scenario(scenarioType string) (ScenarioDefinition, bool) {
	for _, s := range c.Scenarios {
		if s.Type == scenarioType {
			return s, true
		}
	}
	return ScenarioDefinition{}, false
}
