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

// Sentinel errors for the risk calculator. All of them are computation
// errors: the inputs are known but arithmetic over them is undefined or
// inconsistent, and the engine surfaces that instead of clamping silently.
var (
	// ErrZeroConsumption indicates runway is undefined because the item has
	// a zero consumption rate and no precomputed days-on-hand.
	ErrZeroConsumption = errors.New("runway undefined: daily consumption is zero")

	// ErrNegativeDelay indicates a negative disruption delay was supplied.
	ErrNegativeDelay = errors.New("delay days must not be negative")

	// ErrInconsistentInput indicates the precomputed days-on-hand disagrees
	// with stock/consumption beyond the configured tolerance.
	ErrInconsistentInput = errors.New("precomputed days-on-hand inconsistent with stock and consumption")
)
