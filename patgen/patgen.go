// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package patgen provides the pattern generators used to draw initial
connection weights and connection field shape masks.

A Generator is evaluated over a Rows x Cols grid of cell centers spanning
Params.Bounds at the given densities, with coordinates taken relative to
the pattern center (X, Y). If Params.Mask is set, the result is multiplied
by it. Random generators derive their stream from Params.Name, so that the
same name always yields the same values regardless of what else has been
generated.
*/
package patgen

import (
	"hash/fnv"
	"math"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

// Params specifies one evaluation of a Generator.
type Params struct {
	X        float64          `desc:"pattern center x in sheet coordinates"`
	Y        float64          `desc:"pattern center y in sheet coordinates"`
	Bounds   sheetcoords.BBox `desc:"area covered by the output"`
	XDensity float64          `desc:"cells per unit distance along x"`
	YDensity float64          `desc:"cells per unit distance along y"`
	Rows     int              `desc:"number of output rows"`
	Cols     int              `desc:"number of output columns"`
	Mask     []float32        `desc:"optional Rows x Cols mask multiplied into the result"`
	Name     string           `desc:"label used to seed random generators -- empty uses the generator's own stream"`
}

// Len returns Rows * Cols.
func (p *Params) Len() int {
	return p.Rows * p.Cols
}

// CellCenter returns the sheet coordinates of cell (r, c).
func (p *Params) CellCenter(r, c int) (x, y float64) {
	x = p.Bounds.L + (float64(c)+0.5)/p.XDensity
	y = p.Bounds.T - (float64(r)+0.5)/p.YDensity
	return
}

// Eval calls fun with the pattern-relative coordinates of every cell, in
// row-major order, and applies the mask.
func (p *Params) Eval(fun func(px, py float64) float32) []float32 {
	out := make([]float32, p.Len())
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			x, y := p.CellCenter(r, c)
			out[r*p.Cols+c] = fun(x-p.X, y-p.Y)
		}
	}
	p.ApplyMask(out)
	return out
}

// ApplyMask multiplies vals by the mask, if any.
func (p *Params) ApplyMask(vals []float32) {
	if p.Mask == nil {
		return
	}
	for i := range vals {
		vals[i] *= p.Mask[i]
	}
}

// Unmasked returns a copy of p without the mask.
func (p *Params) Unmasked() *Params {
	np := *p
	np.Mask = nil
	return &np
}

// Generator produces a Rows x Cols pattern.
type Generator interface {
	Generate(p *Params) []float32
}

// Sized is a Generator with a size and aspect ratio, which a projection
// can set to match the extent of its connection fields.
type Sized interface {
	Generator

	// WithSize returns a copy with the given size (height) and aspect ratio (width / height).
	WithSize(size, aspect float64) Generator
}

// SeedFromLabel hashes a label into a random seed.
func SeedFromLabel(label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(label))
	return h.Sum64()
}

// rotate returns coordinates in the frame of a pattern rotated by orient radians.
func rotate(px, py, orient float64) (float64, float64) {
	if orient == 0 {
		return px, py
	}
	sin, cos := math.Sincos(orient)
	return cos*px + sin*py, cos*py - sin*px
}
