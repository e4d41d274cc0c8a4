// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sheetcoords

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroArea is returned when a bounding box maps onto no matrix cells.
var ErrZeroArea = errors.New("sheetcoords: slice has zero area")

// Slice is an integer rectangle [R1, R2) x [C1, C2) in the index space of
// a sheet. Slice methods return new values and never modify the receiver,
// so templates can be passed around freely.
type Slice struct {
	R1 int `desc:"first row"`
	R2 int `desc:"one past the last row"`
	C1 int `desc:"first column"`
	C2 int `desc:"one past the last column"`
}

// NewSlice returns the slice of cells whose centers fall within bb.
func NewSlice(bb BBox, cs *Coords) (Slice, error) {
	sl := boundsToSlice(bb, cs)
	if sl.Rows() <= 0 || sl.Cols() <= 0 {
		return sl, fmt.Errorf("%w: %v on %v", ErrZeroArea, bb, cs)
	}
	return sl, nil
}

// NewOddSlice returns a slice with an odd number of rows and cols,
// centered on a single cell, covering bb and extending at least minRadius
// cells on each side of the center. The box is measured after moving its
// centroid onto the center cell of the sheet, so the result does not
// depend on where bb sits.
func NewOddSlice(bb BBox, cs *Coords, minRadius int) Slice {
	bx, by := bb.Centroid()
	cr, cc := cs.Rows/2, cs.Cols/2
	ux, uy := cs.MatrixIdx2Sheet(cr, cc)
	sl := boundsToSlice(bb.Translate(ux-bx, uy-by), cs)
	xrad := max(sl.C2-cc-1, minRadius)
	yrad := max(sl.R2-cr-1, minRadius)
	return Slice{R1: cr - yrad, R2: cr + yrad + 1, C1: cc - xrad, C2: cc + xrad + 1}
}

func boundsToSlice(bb BBox, cs *Coords) Slice {
	tm, lm := cs.Sheet2Matrix(bb.L, bb.T)
	bm, rm := cs.Sheet2Matrix(bb.R, bb.B)
	return Slice{
		R1: int(math.Ceil(tm - 0.5)),
		R2: int(math.Floor(bm + 0.5)),
		C1: int(math.Ceil(lm - 0.5)),
		C2: int(math.Floor(rm + 0.5)),
	}
}

func (sl Slice) Rows() int { return sl.R2 - sl.R1 }
func (sl Slice) Cols() int { return sl.C2 - sl.C1 }

// Shape returns rows, cols.
func (sl Slice) Shape() (rows, cols int) {
	return sl.Rows(), sl.Cols()
}

// Area returns rows * cols, or 0 if either is not positive.
func (sl Slice) Area() int {
	if sl.Rows() <= 0 || sl.Cols() <= 0 {
		return 0
	}
	return sl.Rows() * sl.Cols()
}

// Tuple returns (r1, r2, c1, c2).
func (sl Slice) Tuple() [4]int {
	return [4]int{sl.R1, sl.R2, sl.C1, sl.C2}
}

// Bounds returns the continuous box covered by the slice on cs.
func (sl Slice) Bounds(cs *Coords) BBox {
	l, b := cs.Matrix2Sheet(float64(sl.R2), float64(sl.C1))
	r, t := cs.Matrix2Sheet(float64(sl.R1), float64(sl.C2))
	return BBox{L: l, B: b, R: r, T: t}
}

// Translate returns the slice moved by dr rows and dc cols.
func (sl Slice) Translate(dr, dc int) Slice {
	return Slice{R1: sl.R1 + dr, R2: sl.R2 + dr, C1: sl.C1 + dc, C2: sl.C2 + dc}
}

// CropToSheet clamps the slice to [0, rows) x [0, cols) of cs.
func (sl Slice) CropToSheet(cs *Coords) Slice {
	return Slice{
		R1: max(0, sl.R1),
		R2: min(cs.Rows, sl.R2),
		C1: max(0, sl.C1),
		C2: min(cs.Cols, sl.C2),
	}
}

// PositionedCrop moves the slice so its center cell is the cell containing
// (x, y). The result may extend past the sheet edges; see CropToSheet.
func (sl Slice) PositionedCrop(x, y float64, cs *Coords) Slice {
	cfr, cfc := cs.Sheet2MatrixIdx(x, y)
	bx, by := sl.Bounds(cs).Centroid()
	br, bc := cs.Sheet2MatrixIdx(bx, by)
	return sl.Translate(cfr-br, cfc-bc)
}

// PositionlessCrop returns the part of the slice, in the slice's own
// 0-based index space, that remains on the sheet once the slice is
// centered on the cell containing (x, y).
func (sl Slice) PositionlessCrop(x, y float64, cs *Coords) Slice {
	r, c := cs.Sheet2MatrixIdx(x, y)
	return FindInputSlice(r, c, sl.Rows(), sl.Cols(), cs.Rows, cs.Cols)
}

// FindInputSlice computes the in-sheet part of an nr x nc slice centered
// at (cr, cc) on a sheet of sheetRows x sheetCols, relative to the slice.
func FindInputSlice(cr, cc, nr, nc, sheetRows, sheetCols int) Slice {
	return Slice{
		R1: -min(0, cr-nr/2),
		R2: -max(-nr, cr-sheetRows-nr/2),
		C1: -min(0, cc-nc/2),
		C2: -max(-nc, cc-sheetCols-nc/2),
	}
}

// Submatrix copies the slice's region out of a row-major matrix with the
// given number of columns.
func (sl Slice) Submatrix(m []float32, cols int) []float32 {
	out := make([]float32, 0, sl.Area())
	for r := sl.R1; r < sl.R2; r++ {
		st := r*cols + sl.C1
		out = append(out, m[st:st+sl.Cols()]...)
	}
	return out
}

func (sl Slice) String() string {
	return fmt.Sprintf("Slice(%d:%d, %d:%d)", sl.R1, sl.R2, sl.C1, sl.C2)
}
