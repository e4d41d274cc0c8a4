// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"fmt"
	"math"

	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

// NullCFError is returned when a connection field crops to nothing on its
// source sheet.
type NullCFError struct {
	X     float64
	Y     float64
	Sheet string
	Rows  int
	Cols  int
}

func (e *NullCFError) Error() string {
	return fmt.Sprintf("ConnectionField at (%g,%g) (input_sheet=%s) has a zero-sized weights matrix (%d,%d); you may need to supply a larger bounds template or increase the density of the sheet",
		e.X, e.Y, e.Sheet, e.Rows, e.Cols)
}

// ConnectionField is the set of weights from a local region of a source
// sheet onto one receiving unit. Weights and Mask are row-major over Slice.
type ConnectionField struct {
	Weights []float32         `desc:"weights, row-major over Slice"`
	Mask    []float32         `desc:"private copy of the shape mask over Slice -- zero means no connection"`
	Slice   sheetcoords.Slice `desc:"region of the source sheet covered by this CF"`

	normTotal    float64
	hasNormTotal bool
}

// NewConnectionField creates the CF for the receiving unit located at
// (x, y) in the coordinates of src. tmpl is the projection's odd-sized
// slice template and maskTmpl the matching mask; neither is modified. The
// weights are drawn from wgen using a seed label derived from label and
// (x, y), multiplied by the mask, and passed through outFns.
func NewConnectionField(src *Sheet, x, y float64, tmpl sheetcoords.Slice, wgen patgen.Generator, maskTmpl []float32, label string, outFns []XferFn) (*ConnectionField, error) {
	cs := src.Coords
	in := tmpl.PositionedCrop(x, y, cs).CropToSheet(cs)
	if in.Rows() < 1 || in.Cols() < 1 {
		return nil, &NullCFError{X: x, Y: y, Sheet: src.Name(), Rows: in.Rows(), Cols: in.Cols()}
	}
	wsl := tmpl.PositionlessCrop(x, y, cs)
	if wsl.Area() != in.Area() {
		panic(fmt.Sprintf("cf.NewConnectionField: weights slice %v does not match input slice %v", wsl, in))
	}
	cf := &ConnectionField{Slice: in}
	cf.Mask = wsl.Submatrix(maskTmpl, tmpl.Cols())
	p := &patgen.Params{
		X:        x,
		Y:        y,
		Bounds:   in.Bounds(cs),
		XDensity: cs.XDensity,
		YDensity: cs.YDensity,
		Rows:     in.Rows(),
		Cols:     in.Cols(),
		Mask:     cf.Mask,
		Name:     CFLabel(label, x, y),
	}
	cf.Weights = wgen.Generate(p)
	for _, of := range outFns {
		of.Xfer(cf.Weights)
	}
	return cf, nil
}

// CFLabel returns the random seed label of the CF at (x, y).
func CFLabel(label string, x, y float64) string {
	return fmt.Sprintf("%s_CF (%.5f, %.5f)", label, x, y)
}

func (cf *ConnectionField) Rows() int { return cf.Slice.Rows() }
func (cf *ConnectionField) Cols() int { return cf.Slice.Cols() }

// NormTotal returns the cached normalization total if one has been set
// since the last DelNormTotal, or else the current sum of absolute weights.
func (cf *ConnectionField) NormTotal() float64 {
	if cf.hasNormTotal {
		return cf.normTotal
	}
	return SumAbs(cf.Weights)
}

// SetNormTotal caches a normalization total, typically computed as a side
// effect of learning or summed across jointly normalized projections.
func (cf *ConnectionField) SetNormTotal(tot float64) {
	cf.normTotal = tot
	cf.hasNormTotal = true
}

// DelNormTotal clears the cache so NormTotal recomputes it.
func (cf *ConnectionField) DelNormTotal() {
	cf.normTotal = 0
	cf.hasNormTotal = false
}

// HasNormTotal returns true if a cached total is set.
func (cf *ConnectionField) HasNormTotal() bool {
	return cf.hasNormTotal
}

// InputMatrix returns a copy of the region of act (source activity with
// srcCols columns) under this CF.
func (cf *ConnectionField) InputMatrix(act []float32, srcCols int) []float32 {
	return cf.Slice.Submatrix(act, srcCols)
}

// ApplyMask multiplies the weights by the mask.
func (cf *ConnectionField) ApplyMask() {
	for i, m := range cf.Mask {
		cf.Weights[i] *= m
	}
}

// NConns returns the number of unmasked connections.
func (cf *ConnectionField) NConns() int {
	n := 0
	for _, m := range cf.Mask {
		if m != 0 {
			n++
		}
	}
	return n
}

// InputSliceTuple returns the input region as (r1, r2, c1, c2).
func (cf *ConnectionField) InputSliceTuple() [4]int {
	return cf.Slice.Tuple()
}

// Bounds returns the CF's area on the source sheet.
func (cf *ConnectionField) Bounds(src *sheetcoords.Coords) sheetcoords.BBox {
	return cf.Slice.Bounds(src)
}

// SumAbs returns the float64 sum of absolute values.
func SumAbs(vals []float32) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += math.Abs(float64(v))
	}
	return sum
}
