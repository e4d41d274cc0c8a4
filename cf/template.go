// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

// Template holds the prototypical connection field extent shared by all
// CFs of a projection: the odd slice, its exact bounds and the shape mask.
type Template struct {
	Nominal sheetcoords.BBox  `desc:"bounds as requested, before fitting to the source sheet"`
	Slice   sheetcoords.Slice `desc:"odd-sized slice centered on the center cell of the source sheet"`
	Bounds  sheetcoords.BBox  `desc:"exact bounds of Slice"`
	Mask    []float32         `desc:"shape mask over Slice, shared read-only by the CFs"`
	NUnits  int               `desc:"number of unmasked units in a typical CF, used for constant-sum learning rates"`
}

// NewTemplate fits nominal to the source sheet and evaluates the shape mask.
func NewTemplate(nominal sheetcoords.BBox, src *sheetcoords.Coords, shape patgen.Generator, minRadius int, autosize bool, thr float32) *Template {
	tm := &Template{Nominal: nominal}
	tm.Slice = sheetcoords.NewOddSlice(nominal, src, minRadius)
	tm.Bounds = tm.Slice.Bounds(src)
	tm.Mask = CreateMask(shape, tm.Bounds, tm.Slice, src, autosize, thr)
	tm.NUnits = min(countNonZero(tm.Mask), src.Len())
	return tm
}

// CreateMask evaluates shape over bounds, centered on the cell that
// contains the origin of src, and zeros values below thr. With autosize,
// Sized shapes are first resized to the height and aspect of bounds.
func CreateMask(shape patgen.Generator, bounds sheetcoords.BBox, sl sheetcoords.Slice, src *sheetcoords.Coords, autosize bool, thr float32) []float32 {
	if sz, ok := shape.(patgen.Sized); ok && autosize {
		size := bounds.Height()
		shape = sz.WithSize(size, bounds.Width()/size)
	}
	cx, cy := src.ClosestCellCenter(0, 0)
	mask := shape.Generate(&patgen.Params{
		X:        cx,
		Y:        cy,
		Bounds:   bounds,
		XDensity: src.XDensity,
		YDensity: src.YDensity,
		Rows:     sl.Rows(),
		Cols:     sl.Cols(),
	})
	for i, v := range mask {
		if v < thr {
			mask[i] = 0
		}
	}
	return mask
}

func countNonZero(vals []float32) int {
	n := 0
	for _, v := range vals {
		if v != 0 {
			n++
		}
	}
	return n
}
