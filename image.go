// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
)

// prepareImage validates an image payload and shapes it for the engine.
//
// JPEG payloads are handed to the engine as-is; it embeds the stream
// directly. PNG and BMP cannot take that path (PNG may carry alpha), so
// they are decoded here and passed as raw BGRA pixels, matching the
// engine's raw-bitmap replacement primitive.
//
// All checks run before any engine call: the size gate, the format
// whitelist, and a content sniff so a payload whose real type contradicts
// the declared format is rejected instead of being fed to the engine.
func prepareImage(payload []byte, format string, maxBytes int) (ImageData, error) {
	if len(payload) == 0 {
		return ImageData{}, fmt.Errorf("empty image payload: %w", ErrInvalidInput)
	}
	if len(payload) > maxBytes {
		return ImageData{}, fmt.Errorf("image payload is %d bytes, limit %d: %w",
			len(payload), maxBytes, ErrPayloadTooLarge)
	}

	detected := mimetype.Detect(payload)

	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		if !detected.Is("image/jpeg") {
			return ImageData{}, fmt.Errorf("payload is %s, not image/jpeg: %w", detected, ErrInvalidInput)
		}
		return ImageData{JPEG: payload}, nil

	case "png":
		if !detected.Is("image/png") {
			return ImageData{}, fmt.Errorf("payload is %s, not image/png: %w", detected, ErrInvalidInput)
		}
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return ImageData{}, fmt.Errorf("decode png: %v: %w", err, ErrInvalidInput)
		}
		return rawBGRA(img), nil

	case "bmp":
		if !detected.Is("image/bmp") {
			return ImageData{}, fmt.Errorf("payload is %s, not image/bmp: %w", detected, ErrInvalidInput)
		}
		img, err := bmp.Decode(bytes.NewReader(payload))
		if err != nil {
			return ImageData{}, fmt.Errorf("decode bmp: %v: %w", err, ErrInvalidInput)
		}
		return rawBGRA(img), nil

	default:
		return ImageData{}, fmt.Errorf("unsupported image format %q: %w", format, ErrInvalidInput)
	}
}

// rawBGRA converts a decoded image to tightly packed BGRA, the pixel
// order the engine's raw-bitmap path expects.
func rawBGRA(img image.Image) ImageData {
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	pix := nrgba.Pix
	out := make([]byte, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		out[i+0] = pix[i+2] // B
		out[i+1] = pix[i+1] // G
		out[i+2] = pix[i+0] // R
		out[i+3] = pix[i+3] // A
	}
	return ImageData{Pixels: out, Width: b.Dx(), Height: b.Dy()}
}
