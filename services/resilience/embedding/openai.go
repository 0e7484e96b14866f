// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding turns disruption event text into dense vectors for the
// similarity index. The only production implementation calls the OpenAI
// embeddings API; tests use a deterministic stub.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the embedding model used unless overridden.
const DefaultModel = openai.SmallEmbedding3

// DefaultTimeout bounds a single embedding call.
const DefaultTimeout = 30 * time.Second

// maxInputChars is a conservative truncation limit well under the model's
// token window. Event descriptions are short; this only guards against
// pathological input.
const maxInputChars = 8000

// ErrNoAPIKey indicates no OpenAI credential could be resolved.
var ErrNoAPIKey = errors.New("no OpenAI API key configured")

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder is an Embedder backed by the OpenAI embeddings API.
//
// Thread Safety: safe for concurrent use.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// ResolveAPIKey finds the OpenAI key from the environment or the mounted
// secrets directory, preferring the environment.
func ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, nil
	}
	raw, err := os.ReadFile("/run/secrets/openai_api_key")
	if err == nil {
		if key := strings.TrimSpace(string(raw)); key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

// NewOpenAIEmbedder creates an embedder. An empty apiKey triggers
// ResolveAPIKey; an empty model falls back to DefaultModel.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		resolved, err := ResolveAPIKey()
		if err != nil {
			return nil, err
		}
		apiKey = resolved
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIEmbedder{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// WithTimeout overrides the per-call timeout.
func (e *OpenAIEmbedder) WithTimeout(timeout time.Duration) *OpenAIEmbedder {
	e.timeout = timeout
	return e
}

// Embed returns the embedding vector for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response contained no vector")
	}
	return resp.Data[0].Embedding, nil
}
