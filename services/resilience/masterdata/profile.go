// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package masterdata provides read-only access to the manufacturer profile:
// suppliers, production lines, customer SLAs, and inventory policy.
//
// The profile is owned by the surrounding ERP landscape and exposed here as
// an immutable snapshot. It is loaded once from YAML (embedded default or an
// override file) and never mutated by the engine; the external health
// assessment feed is the only writer of supplier health fields, and it does
// so out of band between detection cycles.
//
// Thread Safety:
//
//	A Store is immutable after Load and safe for concurrent use.
package masterdata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxProfileFileSize is the maximum allowed profile file size (1MB).
// Prevents memory issues from oversized override files.
const MaxProfileFileSize = 1024 * 1024

// Sentinel errors for master data lookups.
var (
	// ErrSupplierNotFound indicates an unknown supplier id.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrLineNotFound indicates an unknown production line id.
	ErrLineNotFound = errors.New("production line not found")

	// ErrSLANotFound indicates no SLA exists for the customer.
	ErrSLANotFound = errors.New("customer SLA not found")
)

//go:embed profile.yaml
var defaultProfileYAML []byte

// Supplier is a single supplier record from the manufacturer profile.
type Supplier struct {
	ID           string  `yaml:"id" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	Category     string  `yaml:"category" json:"category"`
	Country      string  `yaml:"country" json:"country"`
	SpendPct     float64 `yaml:"spend_pct" json:"spend_pct"`
	LeadTimeDays int     `yaml:"lead_time_days" json:"lead_time_days"`
	SingleSource bool    `yaml:"single_source" json:"single_source"`
	HealthScore  int     `yaml:"health_score" json:"health_score"`
	Trend        string  `yaml:"trend" json:"trend"`
}

// ProductionLine is a production line and its supplier dependency.
type ProductionLine struct {
	ID                     string  `yaml:"id" json:"id"`
	Product                string  `yaml:"product" json:"product"`
	SemiconductorDependent bool    `yaml:"semiconductor_dependent" json:"semiconductor_dependent"`
	DailyRevenueUSD        float64 `yaml:"daily_revenue_usd" json:"daily_revenue_usd"`
	SupplierID             string  `yaml:"supplier_id" json:"supplier_id"`
}

// CustomerSLA is a delivery commitment with a daily breach penalty.
type CustomerSLA struct {
	Customer          string  `yaml:"customer" json:"customer"`
	OnTimeDeliveryPct float64 `yaml:"on_time_delivery_pct" json:"on_time_delivery_pct"`
	PenaltyPerDayUSD  float64 `yaml:"penalty_per_day_usd" json:"penalty_per_day_usd"`
}

// InventoryPolicy holds the buffer thresholds used for runway alerting.
type InventoryPolicy struct {
	ReorderThresholdDays float64 `yaml:"reorder_threshold_days" json:"reorder_threshold_days"`
	TargetBufferDays     float64 `yaml:"target_buffer_days" json:"target_buffer_days"`
}

// HealthAssessment is the narrow view of the external health feed the
// engine consumes. The engine never performs its own health reasoning.
type HealthAssessment struct {
	Score int      `json:"score"`
	Trend string   `json:"trend"`
	Flags []string `json:"flags"`
}

// profileDoc is the on-disk shape of the manufacturer profile.
type profileDoc struct {
	Suppliers       []Supplier       `yaml:"suppliers"`
	ProductionLines []ProductionLine `yaml:"production_lines"`
	CustomerSLAs    []CustomerSLA    `yaml:"customer_slas"`
	InventoryPolicy InventoryPolicy  `yaml:"inventory_policy"`
}

// Store is an immutable snapshot of the manufacturer profile.
type Store struct {
	suppliers map[string]Supplier
	lines     []ProductionLine
	slas      []CustomerSLA
	policy    InventoryPolicy
}

// Load reads a profile from the override path, or the embedded default
// profile when path is empty.
//
// Inputs:
//
//	path - Optional YAML file path. Empty string loads the embedded default.
//
// Outputs:
//
//	*Store - Immutable profile snapshot.
//	error - Non-nil if the file is unreadable, oversized, or invalid.
func Load(path string) (*Store, error) {
	raw := defaultProfileYAML
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat profile %s: %w", path, err)
		}
		if info.Size() > MaxProfileFileSize {
			return nil, fmt.Errorf("profile %s exceeds %d bytes", path, MaxProfileFileSize)
		}
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}
	}

	var doc profileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	suppliers := make(map[string]Supplier, len(doc.Suppliers))
	for _, s := range doc.Suppliers {
		suppliers[s.ID] = s
	}

	return &Store{
		suppliers: suppliers,
		lines:     doc.ProductionLines,
		slas:      doc.CustomerSLAs,
		policy:    doc.InventoryPolicy,
	}, nil
}

func (d *profileDoc) validate() error {
	seen := make(map[string]bool, len(d.Suppliers))
	for _, s := range d.Suppliers {
		if s.ID == "" {
			return errors.New("supplier with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate supplier id %s", s.ID)
		}
		seen[s.ID] = true
		if s.SpendPct < 0 || s.SpendPct > 100 {
			return fmt.Errorf("supplier %s: spend_pct must be in [0,100]", s.ID)
		}
		if s.HealthScore < 0 || s.HealthScore > 100 {
			return fmt.Errorf("supplier %s: health_score must be in [0,100]", s.ID)
		}
	}
	for _, l := range d.ProductionLines {
		if l.ID == "" {
			return errors.New("production line with empty id")
		}
		if l.DailyRevenueUSD < 0 {
			return fmt.Errorf("line %s: daily_revenue_usd must be non-negative", l.ID)
		}
		if l.SupplierID != "" && !seen[l.SupplierID] {
			return fmt.Errorf("line %s: unknown supplier %s", l.ID, l.SupplierID)
		}
	}
	for _, sla := range d.CustomerSLAs {
		if sla.Customer == "" {
			return errors.New("SLA with empty customer")
		}
		if sla.PenaltyPerDayUSD < 0 {
			return fmt.Errorf("SLA %s: penalty_per_day_usd must be non-negative", sla.Customer)
		}
	}
	if d.InventoryPolicy.ReorderThresholdDays < 0 || d.InventoryPolicy.TargetBufferDays < 0 {
		return errors.New("inventory policy thresholds must be non-negative")
	}
	return nil
}

// Supplier returns the supplier with the given id.
func (s *Store) Supplier(id string) (Supplier, error) {
	sup, ok := s.suppliers[id]
	if !ok {
		return Supplier{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, id)
	}
	return sup, nil
}

// Suppliers returns all suppliers. The slice is a copy.
func (s *Store) Suppliers() []Supplier {
	out := make([]Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	return out
}

// ProductionLines returns all production lines. The slice is a copy.
func (s *Store) ProductionLines() []ProductionLine {
	out := make([]ProductionLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// LinesForSupplier returns the production lines that depend on the supplier.
func (s *Store) LinesForSupplier(supplierID string) []ProductionLine {
	var out []ProductionLine
	for _, l := range s.lines {
		if l.SupplierID == supplierID {
			out = append(out, l)
		}
	}
	return out
}

// CustomerSLAs returns all customer SLAs. The slice is a copy.
func (s *Store) CustomerSLAs() []CustomerSLA {
	out := make([]CustomerSLA, len(s.slas))
	copy(out, s.slas)
	return out
}

// Policy returns the inventory buffer policy.
func (s *Store) Policy() InventoryPolicy {
	return s.policy
}

// Health returns the health assessment view for a supplier.
//
// Description:
//
//	Projects the supplier record onto the narrow {score, trend, flags}
//	interface consumed by the risk calculator. Flags mirror the upstream
//	assessment feed's risk markers: spend concentration, single sourcing,
//	low health score, and long lead time.
//
// Outputs:
//
//	HealthAssessment - The assessment view.
//	error - ErrSupplierNotFound for unknown ids.
func (s *Store) Health(supplierID string) (HealthAssessment, error) {
	sup, ok := s.suppliers[supplierID]
	if !ok {
		return HealthAssessment{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, supplierID)
	}

	var flags []string
	if sup.SpendPct > 35 {
		flags = append(flags, fmt.Sprintf("high concentration: %.0f%% of total spend", sup.SpendPct))
	}
	if sup.SingleSource {
		flags = append(flags, "single source: no qualified backup supplier")
	}
	if sup.HealthScore < 70 {
		flags = append(flags, fmt.Sprintf("low health score: %d/100", sup.HealthScore))
	}
	if sup.LeadTimeDays > 30 {
		flags = append(flags, fmt.Sprintf("long lead time: %d days", sup.LeadTimeDays))
	}

	return HealthAssessment{
		Score: sup.HealthScore,
		Trend: sup.Trend,
		Flags: flags,
	}, nil
}
