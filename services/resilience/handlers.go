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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/resilience/services/resilience/history"
	"github.com/AleutianAI/resilience/services/resilience/ledger"
	"github.com/AleutianAI/resilience/services/resilience/masterdata"
	"github.com/AleutianAI/resilience/services/resilience/planner"
	"github.com/AleutianAI/resilience/services/resilience/risk"
	"github.com/AleutianAI/resilience/services/resilience/similarity"
	"github.com/AleutianAI/resilience/services/resilience/state"
)

// Handlers contains the HTTP handlers for the resilience service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// mapError translates component sentinels into an HTTP status and a stable
// machine-readable code. Unknown errors surface as computation failures.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, masterdata.ErrSupplierNotFound),
		errors.Is(err, masterdata.ErrLineNotFound),
		errors.Is(err, masterdata.ErrSLANotFound),
		errors.Is(err, ledger.ErrItemNotFound),
		errors.Is(err, planner.ErrScenarioNotFound),
		errors.Is(err, history.ErrEventNotFound):
		return http.StatusNotFound, "DATA_NOT_FOUND"
	case errors.Is(err, history.ErrInvalidEvent),
		errors.Is(err, planner.ErrScenarioNotApplicable),
		errors.Is(err, planner.ErrInvalidQuantity),
		errors.Is(err, planner.ErrInvalidWeight),
		errors.Is(err, planner.ErrUnknownAppetite),
		errors.Is(err, risk.ErrNegativeDelay),
		errors.Is(err, state.ErrEmptyLane),
		errors.Is(err, state.ErrNegativeDelay),
		errors.Is(err, state.ErrInvalidSeverity),
		errors.Is(err, similarity.ErrEmptyQuery),
		errors.Is(err, ErrNoApplicableScenario):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, risk.ErrZeroConsumption),
		errors.Is(err, risk.ErrInconsistentInput):
		return http.StatusUnprocessableEntity, "COMPUTATION_ERROR"
	case errors.Is(err, similarity.ErrEmbeddingUnavailable),
		errors.Is(err, similarity.ErrBackendNotConfigured):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR"
	default:
		return http.StatusInternalServerError, "COMPUTATION_ERROR"
	}
}

// fail writes the standard error envelope.
func fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "code", code)
	} else {
		logger.Warn("request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// HandleHealth handles GET /v1/resilience/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:            "healthy",
		Version:           ServiceVersion,
		SimilarityBackend: h.svc.Index.Backend(),
	})
}

// HandleListSuppliers handles GET /v1/resilience/suppliers.
func (h *Handlers) HandleListSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suppliers": h.svc.Profile.Suppliers()})
}

// HandleSupplierExposure handles GET /v1/resilience/risk/supplier/:supplier_id/exposure.
//
// Response:
//
//	200 OK: SupplierDetail
//	404 Not Found: unknown supplier
func (h *Handlers) HandleSupplierExposure(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSupplierExposure")

	supplierID := c.Param("supplier_id")
	supplier, err := h.svc.Profile.Supplier(supplierID)
	if err != nil {
		fail(c, logger, err)
		return
	}
	health, err := h.svc.Profile.Health(supplierID)
	if err != nil {
		fail(c, logger, err)
		return
	}
	exposure, err := h.svc.Risk.SupplierExposure(supplierID)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, SupplierDetail{
		Supplier: supplier,
		Health:   health,
		Exposure: exposure,
	})
}

// HandleInventoryRunway handles GET /v1/resilience/inventory/:item_id/runway.
//
// Response:
//
//	200 OK: risk.Runway
//	404 Not Found: unknown item
//	422 Unprocessable Entity: zero consumption with no recorded runway
func (h *Handlers) HandleInventoryRunway(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleInventoryRunway")

	runway, err := h.svc.Risk.InventoryRunway(c.Param("item_id"))
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, runway)
}

// HandleRevenueAtRisk handles GET /v1/resilience/risk/revenue-at-risk.
//
// Query Parameters:
//
//	supplier_id: supplier whose production lines are affected (required)
//	delay_days: expected delay (required)
func (h *Handlers) HandleRevenueAtRisk(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRevenueAtRisk")

	supplierID := c.Query("supplier_id")
	if supplierID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "supplier_id is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	delayDays, err := strconv.ParseFloat(c.Query("delay_days"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "delay_days must be a number",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	exposure, err := h.svc.Risk.RevenueAtRisk(supplierID, delayDays)
	if err != nil {
		fail(c, logger, err)
		return
	}
	logger.Info("revenue at risk computed",
		"supplier_id", supplierID,
		"delay_days", delayDays,
		"total_exposure_usd", exposure.TotalFinancialExposureUSD)
	c.JSON(http.StatusOK, exposure)
}

// HandleBreachProbability handles GET /v1/resilience/risk/sla-breach-probability.
func (h *Handlers) HandleBreachProbability(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBreachProbability")

	delayDays, err := strconv.ParseFloat(c.Query("delay_days"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "delay_days must be a number",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	probability, err := h.svc.Risk.SLABreachProbability(delayDays)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"delay_days":         delayDays,
		"breach_probability": probability,
	})
}

// HandleSimulate handles POST /v1/resilience/scenarios/simulate.
//
// Request Body:
//
//	SimulateRequest
//
// Response:
//
//	200 OK: planner.SimulationResult with simulated=true
func (h *Handlers) HandleSimulate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSimulate")

	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.Planner.Simulate(req.ScenarioType, req.ItemID, req.DelayDays, req.Quantity)
	if err != nil {
		fail(c, logger, err)
		return
	}
	logger.Info("scenario simulated",
		"scenario_type", req.ScenarioType,
		"item_id", req.ItemID,
		"total_cost_usd", result.TotalCostUSD)
	c.JSON(http.StatusOK, result)
}

// HandleRank handles POST /v1/resilience/scenarios/rank.
//
// Request Body:
//
//	RankRequest
//
// Response:
//
//	200 OK: RankResponse
func (h *Handlers) HandleRank(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRank")

	var req RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.RankScenarios(req)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleAirfreightRate handles GET /v1/resilience/scenarios/airfreight-rate.
//
// Query Parameters:
//
//	origin, destination: lane endpoints (required)
//	weight_kg: shipment weight (required)
func (h *Handlers) HandleAirfreightRate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAirfreightRate")

	weightKg, err := strconv.ParseFloat(c.Query("weight_kg"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "weight_kg must be a number",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	estimate, err := h.svc.Planner.AirfreightEstimate(c.Query("origin"), c.Query("destination"), weightKg)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

// HandleAlternativeSuppliers handles GET /v1/resilience/scenarios/alternative-suppliers.
//
// Query Parameters:
//
//	category: supplier category (required)
//	exclude: region to exclude, repeatable
func (h *Handlers) HandleAlternativeSuppliers(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "category is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	alternatives := h.svc.Planner.AlternativeSuppliers(category, c.QueryArray("exclude"))
	c.JSON(http.StatusOK, gin.H{
		"category":     category,
		"alternatives": alternatives,
	})
}

// HandleLogEvent handles POST /v1/resilience/events.
//
// Request Body:
//
//	history.Event (id optional; assigned when absent)
//
// Response:
//
//	201 Created: the stored event with its id
func (h *Handlers) HandleLogEvent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLogEvent")

	var event history.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	stored, err := h.svc.Events.Log(c.Request.Context(), event)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"event":     stored,
		"logged_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleListEvents handles GET /v1/resilience/events.
func (h *Handlers) HandleListEvents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListEvents")

	events, err := h.svc.Store.All(c.Request.Context())
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// HandleGetEvent handles GET /v1/resilience/events/:id.
func (h *Handlers) HandleGetEvent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetEvent")

	event, err := h.svc.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// HandleRecordOutcome handles POST /v1/resilience/events/:id/outcome.
func (h *Handlers) HandleRecordOutcome(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRecordOutcome")

	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	event, err := h.svc.Events.RecordOutcome(c.Request.Context(), c.Param("id"), req.Outcome)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// HandleSimilar handles POST /v1/resilience/events/similar.
//
// Request Body:
//
//	SimilarRequest
//
// Response:
//
//	200 OK: similarity.Result; degraded=true when the keyword fallback
//	answered for an unavailable vector backend
func (h *Handlers) HandleSimilar(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSimilar")

	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.svc.RetrievalLimit()
	}

	result, err := h.svc.Index.RetrieveSimilar(c.Request.Context(), similarity.Query{
		Type:        req.Type,
		Region:      req.Region,
		Description: req.Description,
	}, limit)
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandlePatterns handles GET /v1/resilience/events/patterns.
func (h *Handlers) HandlePatterns(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePatterns")

	report, err := h.svc.Events.RecurringPatterns(c.Request.Context())
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleBackfill handles POST /v1/resilience/events/backfill.
func (h *Handlers) HandleBackfill(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBackfill")

	report, err := h.svc.Index.BackfillIfEmpty(c.Request.Context())
	if err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleInitiateDisruption handles POST /v1/resilience/state/initiate.
//
// Request Body:
//
//	InitiateDisruptionRequest
//
// Response:
//
//	200 OK: the new state snapshot
func (h *Handlers) HandleInitiateDisruption(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleInitiateDisruption")

	var req InitiateDisruptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.svc.State.InitiateWithDetails(c.Request.Context(), req.Lane, req.laneStatus()); err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.State.Snapshot())
}

// HandleClearDisruption handles POST /v1/resilience/state/clear.
func (h *Handlers) HandleClearDisruption(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleClearDisruption")

	if err := h.svc.State.Clear(c.Request.Context()); err != nil {
		fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.State.Snapshot())
}

// HandleDisruptionState handles GET /v1/resilience/state.
//
// Query Parameters:
//
//	lane: optional; when present, only that lane's status is returned.
//	Unknown lanes report the operational baseline.
func (h *Handlers) HandleDisruptionState(c *gin.Context) {
	if lane := c.Query("lane"); lane != "" {
		c.JSON(http.StatusOK, gin.H{
			"lane":   lane,
			"status": h.svc.State.LaneStatus(lane),
		})
		return
	}
	c.JSON(http.StatusOK, h.svc.State.Snapshot())
}
