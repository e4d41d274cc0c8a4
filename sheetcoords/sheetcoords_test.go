// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sheetcoords

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const difTol = 1.0e-10

// 8 units per unit distance keeps every cell edge exactly representable.
func testCoords() *Coords {
	return NewCoords(NewBBoxRadius(0.5), 8, 0)
}

func TestCoordsShape(t *testing.T) {
	cs := testCoords()
	assert.Equal(t, 8, cs.Rows)
	assert.Equal(t, 8, cs.Cols)
	assert.Equal(t, 8.0, cs.YDensity)

	cs = NewCoords(NewBBox(-0.5, -0.25, 0.5, 0.25), 10, 0)
	assert.Equal(t, 5, cs.Rows)
	assert.Equal(t, 10, cs.Cols)
}

func TestEqualizeDensity(t *testing.T) {
	cs := NewCoords(NewBBox(0, 0, 1.05, 1), 10, 0)
	assert.Equal(t, 10, cs.Cols)
	assert.Equal(t, 10, cs.Rows)
	if math.Abs(cs.Bounds.Height()-1.05) > difTol {
		t.Errorf("adjusted height: %g != 1.05", cs.Bounds.Height())
	}
	_, cy := cs.Bounds.Centroid()
	if math.Abs(cy-0.5) > difTol {
		t.Errorf("vertical center moved: %g", cy)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	cs := testCoords()
	for r := 0; r < cs.Rows; r++ {
		for c := 0; c < cs.Cols; c++ {
			x, y := cs.MatrixIdx2Sheet(r, c)
			rr, cc := cs.Sheet2MatrixIdx(x, y)
			if rr != r || cc != c {
				t.Errorf("round trip (%d,%d) -> (%g,%g) -> (%d,%d)", r, c, x, y, rr, cc)
			}
		}
	}
	x, y := cs.MatrixIdx2Sheet(0, 0)
	assert.Equal(t, -0.4375, x)
	assert.Equal(t, 0.4375, y)

	r, c := cs.Sheet2MatrixIdx(0, 0)
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	cx, cy := cs.ClosestCellCenter(0.01, -0.01)
	assert.Equal(t, 0.0625, cx)
	assert.Equal(t, -0.0625, cy)
}

func TestSheetCoordsOfIdxGrid(t *testing.T) {
	cs := testCoords()
	xs, ys := cs.SheetCoordsOfIdxGrid()
	assert.Len(t, xs, 8)
	assert.Len(t, ys, 8)
	assert.Equal(t, -0.4375, xs[0])
	assert.Equal(t, 0.4375, xs[7])
	assert.Equal(t, 0.4375, ys[0])
	assert.Equal(t, -0.4375, ys[7])
}

func TestOddSlice(t *testing.T) {
	cs := testCoords()
	sl := NewOddSlice(NewBBoxRadius(0.25), cs, 1)
	assert.Equal(t, Slice{R1: 2, R2: 7, C1: 2, C2: 7}, sl)
	assert.Equal(t, 1, sl.Rows()%2)
	assert.Equal(t, 1, sl.Cols()%2)

	bb := sl.Bounds(cs)
	assert.Equal(t, NewBBox(-0.25, -0.375, 0.375, 0.25), bb)
	x, y := bb.Centroid()
	assert.Equal(t, 0.0625, x)
	assert.Equal(t, -0.0625, y)

	// independent of where the nominal box is placed
	off := NewOddSlice(NewBBoxRadius(0.25).Translate(0.25, -0.125), cs, 1)
	assert.Equal(t, sl, off)

	// tiny box still gets the minimum radius
	tiny := NewOddSlice(NewBBoxRadius(0.001), cs, 1)
	assert.Equal(t, 3, tiny.Rows())
	assert.Equal(t, 3, tiny.Cols())
	zero := NewOddSlice(NewBBoxRadius(0.001), cs, 0)
	assert.Equal(t, 1, zero.Area())
}

func TestNewSliceZeroArea(t *testing.T) {
	cs := testCoords()
	_, err := NewSlice(NewBBox(0.01, 0.01, 0.02, 0.02), cs)
	if !errors.Is(err, ErrZeroArea) {
		t.Errorf("expected ErrZeroArea, got: %v", err)
	}
	sl, err := NewSlice(NewBBoxRadius(0.5), cs)
	assert.NoError(t, err)
	assert.Equal(t, Slice{R1: 0, R2: 8, C1: 0, C2: 8}, sl)
}

func TestEdgeCrops(t *testing.T) {
	cs := testCoords()
	tmpl := NewOddSlice(NewBBoxRadius(0.25), cs, 1)
	x, y := cs.MatrixIdx2Sheet(0, 0)

	pos := tmpl.PositionedCrop(x, y, cs)
	assert.Equal(t, Slice{R1: -2, R2: 3, C1: -2, C2: 3}, pos)
	crop := pos.CropToSheet(cs)
	assert.Equal(t, Slice{R1: 0, R2: 3, C1: 0, C2: 3}, crop)

	wsl := tmpl.PositionlessCrop(x, y, cs)
	assert.Equal(t, Slice{R1: 2, R2: 5, C1: 2, C2: 5}, wsl)
	assert.Equal(t, crop.Area(), wsl.Area())

	// far corner
	x, y = cs.MatrixIdx2Sheet(7, 7)
	crop = tmpl.PositionedCrop(x, y, cs).CropToSheet(cs)
	assert.Equal(t, Slice{R1: 5, R2: 8, C1: 5, C2: 8}, crop)
	assert.Equal(t, Slice{R1: 0, R2: 3, C1: 0, C2: 3}, tmpl.PositionlessCrop(x, y, cs))

	// interior unit keeps the whole template
	x, y = cs.MatrixIdx2Sheet(3, 4)
	crop = tmpl.PositionedCrop(x, y, cs).CropToSheet(cs)
	assert.Equal(t, Slice{R1: 1, R2: 6, C1: 2, C2: 7}, crop)
	assert.Equal(t, Slice{R1: 0, R2: 5, C1: 0, C2: 5}, tmpl.PositionlessCrop(x, y, cs))
}

func TestSubmatrix(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	sl := Slice{R1: 1, R2: 3, C1: 1, C2: 3}
	assert.Equal(t, []float32{5, 6, 9, 10}, sl.Submatrix(m, 4))
}

func TestBBoxContains(t *testing.T) {
	big := NewBBoxRadius(0.5)
	small := NewBBoxRadius(0.25)
	assert.True(t, big.ContainsBBoxExclusive(small))
	assert.False(t, big.ContainsBBoxExclusive(big))
	assert.True(t, big.ContainsBBoxInclusive(big))
	assert.False(t, small.ContainsBBoxInclusive(big))
	assert.True(t, big.Contains(0.5, -0.5))
}
