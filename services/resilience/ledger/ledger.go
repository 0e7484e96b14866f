// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger provides read-only access to the inventory snapshot:
// stock levels, consumption rates, and open purchase orders.
//
// Like masterdata, the ledger is owned by the surrounding ERP landscape and
// exposed to the engine as an immutable per-cycle snapshot.
package ledger

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxLedgerFileSize is the maximum allowed ledger file size (1MB).
const MaxLedgerFileSize = 1024 * 1024

// ErrItemNotFound indicates an unknown inventory item id.
var ErrItemNotFound = errors.New("inventory item not found")

//go:embed ledger.yaml
var defaultLedgerYAML []byte

// Item is a single inventory position.
//
// DaysOnHand is an optional precomputed runway supplied by the ERP export;
// when present it must agree with StockUnits/DailyConsumption within the
// calculator's tolerance. DailyConsumption is never negative (enforced at
// load); a zero rate means runway is undefined for the item.
type Item struct {
	ItemID               string  `yaml:"item_id" json:"item_id"`
	Description          string  `yaml:"description" json:"description"`
	SupplierID           string  `yaml:"supplier_id" json:"supplier_id"`
	StockUnits           float64 `yaml:"stock_units" json:"stock_units"`
	DailyConsumption     float64 `yaml:"daily_consumption" json:"daily_consumption"`
	DaysOnHand           float64 `yaml:"days_on_hand,omitempty" json:"days_on_hand,omitempty"`
	OnOrderUnits         float64 `yaml:"on_order_units" json:"on_order_units"`
	ExpectedDeliveryDate string  `yaml:"expected_delivery_date" json:"expected_delivery_date"`
}

// PurchaseOrder is an open PO against a supplier.
type PurchaseOrder struct {
	POID         string  `yaml:"po_id" json:"po_id"`
	SupplierID   string  `yaml:"supplier_id" json:"supplier_id"`
	ValueUSD     float64 `yaml:"value_usd" json:"value_usd"`
	DeliveryDate string  `yaml:"delivery_date" json:"delivery_date"`
}

type ledgerDoc struct {
	Inventory          []Item          `yaml:"inventory"`
	OpenPurchaseOrders []PurchaseOrder `yaml:"open_purchase_orders"`
}

// Ledger is an immutable inventory snapshot.
//
// Thread Safety: safe for concurrent use after Load.
type Ledger struct {
	items map[string]Item
	pos   []PurchaseOrder
}

// Load reads a ledger snapshot from the override path, or the embedded
// default when path is empty.
func Load(path string) (*Ledger, error) {
	raw := defaultLedgerYAML
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat ledger %s: %w", path, err)
		}
		if info.Size() > MaxLedgerFileSize {
			return nil, fmt.Errorf("ledger %s exceeds %d bytes", path, MaxLedgerFileSize)
		}
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read ledger %s: %w", path, err)
		}
	}

	var doc ledgerDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}

	items := make(map[string]Item, len(doc.Inventory))
	for _, it := range doc.Inventory {
		if it.ItemID == "" {
			return nil, errors.New("invalid ledger: item with empty item_id")
		}
		if it.DailyConsumption < 0 {
			return nil, fmt.Errorf("invalid ledger: item %s has negative daily_consumption", it.ItemID)
		}
		if it.StockUnits < 0 {
			return nil, fmt.Errorf("invalid ledger: item %s has negative stock_units", it.ItemID)
		}
		if _, dup := items[it.ItemID]; dup {
			return nil, fmt.Errorf("invalid ledger: duplicate item %s", it.ItemID)
		}
		items[it.ItemID] = it
	}

	return &Ledger{items: items, pos: doc.OpenPurchaseOrders}, nil
}

// Item returns the inventory item with the given id.
func (l *Ledger) Item(id string) (Item, error) {
	it, ok := l.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return it, nil
}

// Items returns all inventory items. The slice is a copy.
func (l *Ledger) Items() []Item {
	out := make([]Item, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	return out
}

// ItemsBySupplier returns the items sourced from the given supplier.
func (l *Ledger) ItemsBySupplier(supplierID string) []Item {
	var out []Item
	for _, it := range l.items {
		if it.SupplierID == supplierID {
			out = append(out, it)
		}
	}
	return out
}

// OpenPOsBySupplier returns the open purchase orders against a supplier.
func (l *Ledger) OpenPOsBySupplier(supplierID string) []PurchaseOrder {
	var out []PurchaseOrder
	for _, po := range l.pos {
		if po.SupplierID == supplierID {
			out = append(out, po)
		}
	}
	return out
}
