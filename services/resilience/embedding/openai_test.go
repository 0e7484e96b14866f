// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey_PrefersEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-key")

	key, err := ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", key)
}

func TestResolveAPIKey_TrimsWhitespace(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "  sk-test-key\n")

	key, err := ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", key)
}

func TestNewOpenAIEmbedder_ExplicitKey(t *testing.T) {
	e, err := NewOpenAIEmbedder("sk-test-key", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, e.model)
	assert.Equal(t, DefaultTimeout, e.timeout)
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIEmbedder("", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
