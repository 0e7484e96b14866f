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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all resilience routes with the router.
//
// Description:
//
//	Registers all /v1/resilience/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /v1/resilience/health - Health check
//	GET  /v1/resilience/suppliers - List suppliers
//	GET  /v1/resilience/risk/supplier/:supplier_id/exposure - Supplier risk profile
//	GET  /v1/resilience/inventory/:item_id/runway - Inventory runway
//	GET  /v1/resilience/risk/revenue-at-risk - Financial exposure for a delay
//	GET  /v1/resilience/risk/sla-breach-probability - Breach probability for a delay
//	POST /v1/resilience/scenarios/simulate - Simulate one mitigation scenario
//	POST /v1/resilience/scenarios/rank - Rank scenarios under appetite weights
//	GET  /v1/resilience/scenarios/airfreight-rate - Price an air cargo lane
//	GET  /v1/resilience/scenarios/alternative-suppliers - Backup sources
//	POST /v1/resilience/events - Log a disruption event
//	GET  /v1/resilience/events - List logged events
//	GET  /v1/resilience/events/:id - Get one event
//	POST /v1/resilience/events/:id/outcome - Record an event outcome
//	POST /v1/resilience/events/similar - Retrieve similar past disruptions
//	GET  /v1/resilience/events/patterns - Recurring risk patterns
//	POST /v1/resilience/events/backfill - Backfill the similarity index
//	POST /v1/resilience/state/initiate - Declare a lane disrupted
//	POST /v1/resilience/state/clear - Return to operational
//	GET  /v1/resilience/state - Disruption state snapshot
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	res := rg.Group("/resilience")
	{
		// Master data
		res.GET("/suppliers", handlers.HandleListSuppliers)

		// Risk calculator
		res.GET("/inventory/:item_id/runway", handlers.HandleInventoryRunway)
		res.GET("/risk/revenue-at-risk", handlers.HandleRevenueAtRisk)
		res.GET("/risk/sla-breach-probability", handlers.HandleBreachProbability)
		res.GET("/risk/supplier/:supplier_id/exposure", handlers.HandleSupplierExposure)

		// Scenario planner
		res.POST("/scenarios/simulate", handlers.HandleSimulate)
		res.POST("/scenarios/rank", handlers.HandleRank)
		res.GET("/scenarios/airfreight-rate", handlers.HandleAirfreightRate)
		res.GET("/scenarios/alternative-suppliers", handlers.HandleAlternativeSuppliers)

		// Event log and similarity
		res.POST("/events", handlers.HandleLogEvent)
		res.GET("/events", handlers.HandleListEvents)
		res.GET("/events/patterns", handlers.HandlePatterns)
		res.POST("/events/similar", handlers.HandleSimilar)
		res.POST("/events/backfill", handlers.HandleBackfill)
		res.GET("/events/:id", handlers.HandleGetEvent)
		res.POST("/events/:id/outcome", handlers.HandleRecordOutcome)

		// Disruption state
		res.POST("/state/initiate", handlers.HandleInitiateDisruption)
		res.POST("/state/clear", handlers.HandleClearDisruption)
		res.GET("/state", handlers.HandleDisruptionState)

		// Health check
		res.GET("/health", handlers.HandleHealth)
	}
}
