// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package masterdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Load Tests
// -----------------------------------------------------------------------------

func TestLoad_EmbeddedDefault(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	assert.Len(t, store.Suppliers(), 4)
	assert.Len(t, store.ProductionLines(), 3)
	assert.Len(t, store.CustomerSLAs(), 3)

	policy := store.Policy()
	assert.Equal(t, 10.0, policy.ReorderThresholdDays)
	assert.Equal(t, 30.0, policy.TargetBufferDays)
}

func TestLoad_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := `
suppliers:
  - id: SUP-100
    name: Test Supplier
    category: Semiconductors
    country: Taiwan
    spend_pct: 50.0
    lead_time_days: 10
    single_source: false
    health_score: 90
    trend: Stable
production_lines:
  - id: LINE-10
    product: Widget
    semiconductor_dependent: true
    daily_revenue_usd: 1000
    supplier_id: SUP-100
customer_slas:
  - customer: Acme
    on_time_delivery_pct: 95.0
    penalty_per_day_usd: 100
inventory_policy:
  reorder_threshold_days: 5
  target_buffer_days: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := Load(path)
	require.NoError(t, err)
	sup, err := store.Supplier("SUP-100")
	require.NoError(t, err)
	assert.Equal(t, "Test Supplier", sup.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/profile.yaml")
	assert.Error(t, err)
}

func TestLoad_RejectsDanglingLineSupplier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := `
suppliers:
  - id: SUP-100
    name: Test Supplier
    category: Semiconductors
    country: Taiwan
    spend_pct: 50.0
    lead_time_days: 10
    health_score: 90
    trend: Stable
production_lines:
  - id: LINE-10
    product: Widget
    daily_revenue_usd: 1000
    supplier_id: SUP-999
inventory_policy:
  reorder_threshold_days: 5
  target_buffer_days: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------
// Store Tests
// -----------------------------------------------------------------------------

func TestStore_SupplierNotFound(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	_, err = store.Supplier("SUP-999")
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestStore_LinesForSupplier(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	lines := store.LinesForSupplier("SUP-001")
	require.Len(t, lines, 1)
	assert.Equal(t, "LINE-01", lines[0].ID)
	assert.True(t, lines[0].SemiconductorDependent)

	assert.Empty(t, store.LinesForSupplier("SUP-999"))
}

// -----------------------------------------------------------------------------
// Health Assessment Tests
// -----------------------------------------------------------------------------

func TestHealth_FlagsAllRiskMarkers(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	// SUP-001: 38% spend, single source, health 62, 45 day lead time.
	assessment, err := store.Health("SUP-001")
	require.NoError(t, err)
	assert.Equal(t, 62, assessment.Score)
	assert.Equal(t, "Declining", assessment.Trend)
	assert.Len(t, assessment.Flags, 4)
}

func TestHealth_CleanSupplierHasNoFlags(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	// SUP-002: 22% spend, multi source, health 84, 18 day lead time.
	assessment, err := store.Health("SUP-002")
	require.NoError(t, err)
	assert.Empty(t, assessment.Flags)
}

func TestHealth_UnknownSupplier(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	_, err = store.Health("SUP-999")
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}
