// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		shouldErr bool
	}{
		{
			name: "valid config",
			cfg: &Config{
				CacheByteBudget:   32 << 20,
				RenderConcurrency: 4,
				MaxUndoDepth:      100,
				MaxImageBytes:     8 << 20,
			},
			shouldErr: false,
		},
		{
			name: "cache budget too small",
			cfg: &Config{
				CacheByteBudget:   1024,
				RenderConcurrency: 4,
				MaxUndoDepth:      100,
				MaxImageBytes:     8 << 20,
			},
			shouldErr: true,
		},
		{
			name: "zero render concurrency",
			cfg: &Config{
				CacheByteBudget:   32 << 20,
				RenderConcurrency: 0,
				MaxUndoDepth:      100,
				MaxImageBytes:     8 << 20,
			},
			shouldErr: true,
		},
		{
			name: "render concurrency too high",
			cfg: &Config{
				CacheByteBudget:   32 << 20,
				RenderConcurrency: 200,
				MaxUndoDepth:      100,
				MaxImageBytes:     8 << 20,
			},
			shouldErr: true,
		},
		{
			name: "zero undo depth",
			cfg: &Config{
				CacheByteBudget:   32 << 20,
				RenderConcurrency: 4,
				MaxUndoDepth:      0,
				MaxImageBytes:     8 << 20,
			},
			shouldErr: true,
		},
		{
			name: "max image bytes too small",
			cfg: &Config{
				CacheByteBudget:   32 << 20,
				RenderConcurrency: 4,
				MaxUndoDepth:      100,
				MaxImageBytes:     16,
			},
			shouldErr: true,
		},
		{
			name:      "default config is valid",
			cfg:       NewDefaultConfig(),
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestNewSession_RejectsInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.RenderConcurrency = -1

	_, err := NewSession(newFakeEngine(1), cfg)
	assert.Error(t, err)
}
