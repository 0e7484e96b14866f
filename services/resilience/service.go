// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resilience composes the supply chain risk engine: master data,
// the inventory ledger, the risk calculator, the scenario planner,
// disruption state, the event log, and the similarity index, exposed over
// an HTTP tool-call API.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/resilience/services/resilience/embedding"
	"github.com/AleutianAI/resilience/services/resilience/history"
	"github.com/AleutianAI/resilience/services/resilience/ledger"
	"github.com/AleutianAI/resilience/services/resilience/masterdata"
	"github.com/AleutianAI/resilience/services/resilience/planner"
	"github.com/AleutianAI/resilience/services/resilience/risk"
	"github.com/AleutianAI/resilience/services/resilience/similarity"
	"github.com/AleutianAI/resilience/services/resilience/state"
	"github.com/AleutianAI/resilience/services/resilience/storage/badger"
)

// ServiceVersion is the resilience service version.
const ServiceVersion = "0.1.0"

// ErrConfiguration indicates the service was wired with an unusable
// configuration.
var ErrConfiguration = errors.New("invalid service configuration")

// ErrNoApplicableScenario indicates every requested scenario type was
// rejected for the item, so there is nothing to rank.
var ErrNoApplicableScenario = errors.New("no applicable scenarios")

// ServiceConfig selects data sources and the similarity backend.
type ServiceConfig struct {
	// ProfilePath overrides the embedded master data file. Optional.
	ProfilePath string

	// LedgerPath overrides the embedded inventory ledger. Optional.
	LedgerPath string

	// PlannerPath overrides the embedded planner configuration. Optional.
	PlannerPath string

	// SimilarityBackend selects "keyword" or "vector".
	SimilarityBackend string

	// RiskParams tunes the risk calculator. Zero fields take defaults.
	RiskParams risk.Params

	// RetrievalLimit is the default number of similar events returned.
	RetrievalLimit int
}

// DefaultServiceConfig returns a config that runs with no external
// services: embedded data files and the keyword backend.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SimilarityBackend: similarity.BackendKeyword,
		RiskParams:        risk.DefaultParams(),
		RetrievalLimit:    5,
	}
}

// Validate checks the configuration.
func (c *ServiceConfig) Validate() error {
	switch c.SimilarityBackend {
	case similarity.BackendKeyword, similarity.BackendVector:
	case "":
		c.SimilarityBackend = similarity.BackendKeyword
	default:
		return fmt.Errorf("%w: unknown similarity backend %q", ErrConfiguration, c.SimilarityBackend)
	}
	if c.RetrievalLimit <= 0 {
		c.RetrievalLimit = 5
	}
	return nil
}

// Service is the composition root for the engine. All fields are wired once
// in NewService and safe for concurrent use afterward.
type Service struct {
	cfg ServiceConfig

	Profile *masterdata.Store
	Stock   *ledger.Ledger
	Risk    *risk.Calculator
	Planner *planner.Planner
	State   *state.Manager
	Store   *history.Store
	Events  *history.Logger
	Index   *similarity.Index

	logger *slog.Logger
}

// NewService loads data sources and wires every component.
//
// Description:
//
//	The vector backend requires both a Weaviate client and an embedder;
//	requesting it without them is a configuration error rather than a
//	silent fallback. The keyword backend needs neither. In both cases a
//	keyword corpus is maintained so vector deployments can degrade.
//
// Inputs:
//   - ctx: used for Weaviate schema setup and state recovery.
//   - cfg: service configuration.
//   - db: open Badger handle. The caller owns its lifecycle.
//   - weaviateClient: required for the vector backend, ignored otherwise.
//   - embedder: required for the vector backend, ignored otherwise.
func NewService(ctx context.Context, cfg ServiceConfig, db *badger.DB, weaviateClient *weaviate.Client, embedder embedding.Embedder, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if db == nil {
		return nil, fmt.Errorf("%w: badger db is required", ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}

	profile, err := masterdata.Load(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load master data: %w", err)
	}
	stock, err := ledger.Load(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("load inventory ledger: %w", err)
	}
	plannerCfg, err := planner.LoadConfig(cfg.PlannerPath)
	if err != nil {
		return nil, fmt.Errorf("load planner config: %w", err)
	}

	calc, err := risk.NewCalculator(profile, stock, profile, cfg.RiskParams)
	if err != nil {
		return nil, fmt.Errorf("build risk calculator: %w", err)
	}
	plan, err := planner.NewPlanner(plannerCfg, profile, stock)
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}
	stateMgr, err := state.NewManager(db, logger)
	if err != nil {
		return nil, fmt.Errorf("build state manager: %w", err)
	}
	store, err := history.NewStore(db, logger)
	if err != nil {
		return nil, fmt.Errorf("build event store: %w", err)
	}

	keyword := similarity.NewKeywordBackend()
	var primary similarity.Backend = keyword
	var fallback *similarity.KeywordBackend

	if cfg.SimilarityBackend == similarity.BackendVector {
		if weaviateClient == nil {
			return nil, fmt.Errorf("%w: vector backend requires a weaviate client", ErrConfiguration)
		}
		if embedder == nil {
			return nil, fmt.Errorf("%w: vector backend requires an embedder", ErrConfiguration)
		}
		vector, err := similarity.NewVectorBackend(ctx, weaviateClient, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("build vector backend: %w", err)
		}
		primary = vector
		fallback = keyword
	}

	index, err := similarity.NewIndex(primary, fallback, store, logger)
	if err != nil {
		return nil, fmt.Errorf("build similarity index: %w", err)
	}
	events, err := history.NewLogger(store, index, logger)
	if err != nil {
		return nil, fmt.Errorf("build event logger: %w", err)
	}

	svc := &Service{
		cfg:     cfg,
		Profile: profile,
		Stock:   stock,
		Risk:    calc,
		Planner: plan,
		State:   stateMgr,
		Store:   store,
		Events:  events,
		Index:   index,
		logger:  logger.With("component", "resilience_service"),
	}
	svc.logger.Info("resilience service ready",
		"similarity_backend", primary.Name(),
		"suppliers", len(profile.Suppliers()),
		"items", len(stock.Items()))
	return svc, nil
}

// RetrievalLimit returns the configured default for similarity retrievals.
func (s *Service) RetrievalLimit() int { return s.cfg.RetrievalLimit }

// RankScenarios simulates the requested (or all applicable) scenarios for
// an item and ranks them under the resolved weights.
//
// Scenario types that cannot be simulated for the item, such as
// category-restricted scenarios, are reported in Skipped instead of
// aborting the comparison. At least one scenario must survive.
func (s *Service) RankScenarios(req RankRequest) (RankResponse, error) {
	weights := planner.Weights{}
	switch {
	case req.Weights != nil:
		weights = *req.Weights
	case req.RiskAppetite != "":
		w, err := s.Planner.WeightsForAppetite(req.RiskAppetite)
		if err != nil {
			return RankResponse{}, err
		}
		weights = w
	default:
		w, err := s.Planner.WeightsForAppetite("medium")
		if err != nil {
			return RankResponse{}, err
		}
		weights = w
	}

	types := req.ScenarioTypes
	if len(types) == 0 {
		types = s.Planner.ScenarioTypes()
	}

	var candidates []planner.SimulationResult
	skipped := make(map[string]string)
	for _, scenarioType := range types {
		result, err := s.Planner.Simulate(scenarioType, req.ItemID, req.DelayDays, req.Quantity)
		if err != nil {
			if errors.Is(err, planner.ErrScenarioNotApplicable) {
				skipped[scenarioType] = err.Error()
				continue
			}
			return RankResponse{}, err
		}
		candidates = append(candidates, result)
	}
	if len(candidates) == 0 {
		return RankResponse{}, fmt.Errorf("%w for item %s", ErrNoApplicableScenario, req.ItemID)
	}

	ranked, err := s.Planner.Rank(candidates, weights)
	if err != nil {
		return RankResponse{}, err
	}
	resp := RankResponse{Ranked: ranked, Weights: weights}
	if len(skipped) > 0 {
		resp.Skipped = skipped
	}
	return resp, nil
}
