// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-editcore/logger"
)

// Config holds the tunables the core honors.
type Config struct {
	// CacheByteBudget bounds the total resident bytes of rendered bitmaps.
	CacheByteBudget int64 `validate:"min=1048576"`
	// RenderConcurrency caps concurrent render calls into the engine.
	RenderConcurrency int `validate:"min=1,max=64"`
	// MaxUndoDepth bounds the edit history; pushing beyond it evicts the
	// oldest command.
	MaxUndoDepth int `validate:"min=1,max=10000"`
	// MaxImageBytes is the largest accepted image payload. Oversized
	// payloads are rejected before any engine call.
	MaxImageBytes int `validate:"min=1024"`
	DebugOn       bool
	Logger        logger.LogFunc
}

// NewDefaultConfig returns a config suitable for a desktop editor session.
func NewDefaultConfig() *Config {
	return &Config{
		CacheByteBudget:   128 << 20,
		RenderConcurrency: 4,
		MaxUndoDepth:      100,
		MaxImageBytes:     64 << 20,
		DebugOn:           false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}
