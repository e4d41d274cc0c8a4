// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package sheetcoords maps between continuous sheet coordinates and the
discrete (row, col) matrix indexes of a sheet, and computes integer Slices
of a matrix from continuous bounding boxes.

Matrix rows grow downward from the top edge of the bounds and columns grow
rightward from the left edge. A sheet's density is the number of units per
unit distance along each axis.
*/
package sheetcoords

import (
	"fmt"
	"math"
)

// Coords is a sheet coordinate system: bounds plus density, which jointly
// determine the number of rows and columns.
type Coords struct {
	Bounds   BBox    `desc:"bounds after density equalization -- may differ slightly in height from the nominal bounds"`
	XDensity float64 `desc:"units per unit distance along x, adjusted so that an integer number of units fits the width"`
	YDensity float64 `desc:"units per unit distance along y"`
	Rows     int     `inactive:"+" desc:"number of matrix rows"`
	Cols     int     `inactive:"+" desc:"number of matrix columns"`

	xstep float64
	ystep float64
}

// NewCoords returns the coordinate system for nominal bounds and x density.
// A ydensity <= 0 means use the (adjusted) x density.
func NewCoords(bounds BBox, xdensity, ydensity float64) *Coords {
	cs := &Coords{}
	cs.Bounds, cs.XDensity = equalizeDensities(bounds, xdensity)
	if ydensity <= 0 {
		ydensity = cs.XDensity
	}
	cs.YDensity = ydensity
	cs.xstep = 1 / cs.XDensity
	cs.ystep = 1 / cs.YDensity
	sl := boundsToSlice(cs.Bounds, cs)
	cs.Rows = sl.R2 - sl.R1
	cs.Cols = sl.C2 - sl.C1
	return cs
}

// equalizeDensities makes an integer number of units fit the width and
// adjusts the height about its vertical center so the vertical density
// matches the horizontal one.
func equalizeDensities(nominal BBox, density float64) (BBox, float64) {
	width := nominal.Width()
	height := nominal.Height()
	cy := nominal.B + height/2
	trueDensity := math.Trunc(density*width) / width
	ncells := math.Round(height * trueDensity)
	halfh := ncells / trueDensity / 2
	return BBox{L: nominal.L, B: cy - halfh, R: nominal.R, T: cy + halfh}, trueDensity
}

// Shape returns rows, cols.
func (cs *Coords) Shape() (rows, cols int) {
	return cs.Rows, cs.Cols
}

// Len returns the number of units.
func (cs *Coords) Len() int {
	return cs.Rows * cs.Cols
}

// Sheet2Matrix converts a sheet point into continuous (row, col) matrix
// coordinates.
func (cs *Coords) Sheet2Matrix(x, y float64) (row, col float64) {
	col = (x - cs.Bounds.L) * cs.XDensity
	row = (cs.Bounds.T - y) * cs.YDensity
	return
}

// Sheet2MatrixIdx returns the index of the cell containing (x, y).
// The result can lie outside the matrix.
func (cs *Coords) Sheet2MatrixIdx(x, y float64) (r, c int) {
	row, col := cs.Sheet2Matrix(x, y)
	return int(math.Floor(row)), int(math.Floor(col))
}

// Matrix2Sheet converts continuous matrix coordinates into a sheet point.
func (cs *Coords) Matrix2Sheet(row, col float64) (x, y float64) {
	x = cs.Bounds.L + col*cs.xstep
	y = cs.Bounds.T - row*cs.ystep
	return
}

// MatrixIdx2Sheet returns the sheet coordinates of the center of cell (r, c),
// rounded to 10 decimal places.
func (cs *Coords) MatrixIdx2Sheet(r, c int) (x, y float64) {
	x, y = cs.Matrix2Sheet(float64(r)+0.5, float64(c)+0.5)
	return round10(x), round10(y)
}

// ClosestCellCenter returns the center of the cell containing (x, y).
func (cs *Coords) ClosestCellCenter(x, y float64) (float64, float64) {
	return cs.MatrixIdx2Sheet(cs.Sheet2MatrixIdx(x, y))
}

// SheetCoordsOfIdxGrid returns the x coordinate of every column center and
// the y coordinate of every row center.
func (cs *Coords) SheetCoordsOfIdxGrid() (xs, ys []float64) {
	xs = make([]float64, cs.Cols)
	ys = make([]float64, cs.Rows)
	for c := range xs {
		xs[c], _ = cs.MatrixIdx2Sheet(0, c)
	}
	for r := range ys {
		_, ys[r] = cs.MatrixIdx2Sheet(r, 0)
	}
	return
}

// InBounds returns true if (r, c) is a valid index.
func (cs *Coords) InBounds(r, c int) bool {
	return r >= 0 && r < cs.Rows && c >= 0 && c < cs.Cols
}

func (cs *Coords) String() string {
	return fmt.Sprintf("Coords(%v, xdensity=%g, ydensity=%g, shape=%dx%d)", cs.Bounds, cs.XDensity, cs.YDensity, cs.Rows, cs.Cols)
}

func round10(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}
