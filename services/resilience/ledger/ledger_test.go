// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	ldg, err := Load("")
	require.NoError(t, err)

	assert.Len(t, ldg.Items(), 4)

	item, err := ldg.Item("SEMI-MCU-32")
	require.NoError(t, err)
	assert.Equal(t, "SUP-001", item.SupplierID)
	assert.Equal(t, 1200.0, item.StockUnits)
	assert.Equal(t, 100.0, item.DailyConsumption)
	assert.Equal(t, 12.0, item.DaysOnHand)
}

func TestLoad_RejectsNegativeStock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	content := `
inventory:
  - item_id: BAD-01
    supplier_id: SUP-001
    stock_units: -5
    daily_consumption: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	content := `
inventory:
  - item_id: DUP-01
    supplier_id: SUP-001
    stock_units: 5
    daily_consumption: 1
  - item_id: DUP-01
    supplier_id: SUP-001
    stock_units: 7
    daily_consumption: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLedger_ItemNotFound(t *testing.T) {
	ldg, err := Load("")
	require.NoError(t, err)

	_, err = ldg.Item("MISSING-99")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestLedger_ItemsBySupplier(t *testing.T) {
	ldg, err := Load("")
	require.NoError(t, err)

	items := ldg.ItemsBySupplier("SUP-001")
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "SUP-001", item.SupplierID)
	}
	assert.Empty(t, ldg.ItemsBySupplier("SUP-999"))
}

func TestLedger_OpenPOsBySupplier(t *testing.T) {
	ldg, err := Load("")
	require.NoError(t, err)

	pos := ldg.OpenPOsBySupplier("SUP-001")
	require.Len(t, pos, 2)
	var total float64
	for _, po := range pos {
		total += po.ValueUSD
	}
	assert.Equal(t, 3000000.0, total)
}
