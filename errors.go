// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core. Engine failures are wrapped with the
// document id, page index and operation so callers can match with
// errors.Is and still see where things went wrong.
var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrOpenFailed      = errors.New("open document failed")
	ErrPageLoadFailed  = errors.New("page load failed")
	ErrRenderFailed    = errors.New("render failed")
	ErrObjectNotFound  = errors.New("page object not found")
	ErrEditFailed      = errors.New("edit failed")
	ErrSaveFailed      = errors.New("save failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPayloadTooLarge = errors.New("image payload too large")
)

// OpenReason classifies why the engine rejected a document on open.
type OpenReason int

const (
	OpenReasonUnknown OpenReason = iota
	OpenReasonFile
	OpenReasonFormat
	OpenReasonPassword
	OpenReasonSecurity
)

func (r OpenReason) String() string {
	switch r {
	case OpenReasonFile:
		return "file not found or could not be opened"
	case OpenReasonFormat:
		return "invalid or corrupted PDF format"
	case OpenReasonPassword:
		return "password required or incorrect password"
	case OpenReasonSecurity:
		return "unsupported security scheme"
	default:
		return "unknown engine error"
	}
}

// OpenError is returned by Engine.Open when the engine rejects the input.
// The registry wraps it in ErrOpenFailed so callers can branch on the
// reason with errors.As.
type OpenError struct {
	Reason OpenReason
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("engine open: %s", e.Reason)
}
