// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package geometry converts annotation boxes between pixel space and the
// fractional coordinates stored on pings.
//
// Websites measure against the full scrollable document
// (scrollWidth x scrollHeight); PDFs measure against the rendered page
// container. Either way the stored fractions are resolution independent:
// denormalizing against any surface with the same aspect reproduces the
// drawn box.
package geometry

import (
	"errors"

	"github.com/tomtom215/pinpoint/internal/models"
)

// MinBoxPixels is the smallest accepted box edge in pixels. Boxes drawn
// smaller than this in either dimension are treated as accidental clicks
// and discarded.
const MinBoxPixels = 5.0

var (
	// ErrBoxTooSmall marks a drawn box below the minimum size.
	ErrBoxTooSmall = errors.New("geometry: box smaller than minimum size")

	// ErrInvalidSurface marks a surface with non-positive dimensions.
	ErrInvalidSurface = errors.New("geometry: surface dimensions must be positive")
)

// Surface is a measured annotation target in pixels.
type Surface struct {
	Width  float64
	Height float64
}

// Valid reports whether the surface can be used for normalization.
func (s Surface) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Rotated returns the surface with axes swapped, for rotated viewports.
func (s Surface) Rotated() Surface {
	return Surface{Width: s.Height, Height: s.Width}
}

// Box is a rectangle in pixel coordinates relative to a surface origin.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NormalizeBox converts a pixel box to a fractional ping.
// Returns ErrBoxTooSmall for boxes under MinBoxPixels in either dimension
// and ErrInvalidSurface for unusable surfaces. Resulting fractions are
// clamped to [0,1].
func NormalizeBox(b Box, s Surface) (models.Ping, error) {
	if !s.Valid() {
		return models.Ping{}, ErrInvalidSurface
	}
	if b.Width < MinBoxPixels || b.Height < MinBoxPixels {
		return models.Ping{}, ErrBoxTooSmall
	}

	return models.Ping{
		X:      clampFraction(b.X / s.Width),
		Y:      clampFraction(b.Y / s.Height),
		Width:  clampFraction(b.Width / s.Width),
		Height: clampFraction(b.Height / s.Height),
	}, nil
}

// DenormalizeBox converts a fractional ping back to pixels on a surface.
func DenormalizeBox(p models.Ping, s Surface) (Box, error) {
	if !s.Valid() {
		return Box{}, ErrInvalidSurface
	}

	return Box{
		X:      p.X * s.Width,
		Y:      p.Y * s.Height,
		Width:  p.Width * s.Width,
		Height: p.Height * s.Height,
	}, nil
}

// NormalizePoint converts a pixel point to fractions.
func NormalizePoint(x, y float64, s Surface) (fx, fy float64, err error) {
	if !s.Valid() {
		return 0, 0, ErrInvalidSurface
	}
	return clampFraction(x / s.Width), clampFraction(y / s.Height), nil
}

// FitScale returns the uniform scale that fits target inside container,
// clamped to 1 so content is never upscaled.
func FitScale(container, target Surface) float64 {
	if !container.Valid() || !target.Valid() {
		return 1
	}

	scale := container.Width / target.Width
	if h := container.Height / target.Height; h < scale {
		scale = h
	}
	if scale > 1 {
		return 1
	}
	return scale
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
