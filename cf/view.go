// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"fmt"

	"github.com/emer/etable/minmax"
	"gonum.org/v1/gonum/mat"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

// CFAt returns the CF of the receiving unit at sheet coordinates (x, y)
// and its flat index.
func (pj *Prjn) CFAt(x, y float64) (*ConnectionField, int, error) {
	cs := pj.Recv.Coords
	r, c := cs.Sheet2MatrixIdx(x, y)
	if !cs.InBounds(r, c) {
		return nil, -1, fmt.Errorf("cf.Prjn %s: (%g, %g) is outside sheet %s", pj.Nm, x, y, pj.Recv.Name())
	}
	idx := r*cs.Cols + c
	cf := pj.CFs[idx]
	if cf == nil {
		return nil, idx, fmt.Errorf("cf.Prjn %s: no CF at (%g, %g)", pj.Nm, x, y)
	}
	return cf, idx, nil
}

// View returns a copy of the weights of the CF of the receiving unit at
// (x, y) and their area on the source sheet. If situated, the weights are
// placed in a zero matrix the size of the source sheet, whose bounds are
// returned.
func (pj *Prjn) View(x, y float64, situated bool) (*mat.Dense, sheetcoords.BBox, error) {
	cf, _, err := pj.CFAt(x, y)
	if err != nil {
		return nil, sheetcoords.BBox{}, err
	}
	src := pj.Send.Coords
	return cfView(cf, src, situated), viewBounds(cf, src, situated), nil
}

func viewBounds(cf *ConnectionField, src *sheetcoords.Coords, situated bool) sheetcoords.BBox {
	if situated {
		return src.Bounds
	}
	return cf.Bounds(src)
}

func cfView(cf *ConnectionField, src *sheetcoords.Coords, situated bool) *mat.Dense {
	sl := cf.Slice
	var m *mat.Dense
	r0, c0 := 0, 0
	if situated {
		m = mat.NewDense(src.Rows, src.Cols, nil)
		r0, c0 = sl.R1, sl.C1
	} else {
		m = mat.NewDense(sl.Rows(), sl.Cols(), nil)
	}
	wi := 0
	for r := 0; r < sl.Rows(); r++ {
		for c := 0; c < sl.Cols(); c++ {
			m.Set(r0+r, c0+c, float64(cf.Weights[wi]))
			wi++
		}
	}
	return m
}

// Grid returns views of the CFs of rows x cols receiving units spread
// evenly over the receiving sheet, nil where there is a null CF.
func (pj *Prjn) Grid(rows, cols int, situated bool) [][]*mat.Dense {
	cs := pj.Recv.Coords
	src := pj.Send.Coords
	grid := make([][]*mat.Dense, rows)
	for gr := range grid {
		grid[gr] = make([]*mat.Dense, cols)
		r := (2*gr + 1) * cs.Rows / (2 * rows)
		for gc := range grid[gr] {
			c := (2*gc + 1) * cs.Cols / (2 * cols)
			if cf := pj.CFs[r*cs.Cols+c]; cf != nil {
				grid[gr][gc] = cfView(cf, src, situated)
			}
		}
	}
	return grid
}

// WtsRange returns the range of the unmasked weights over all CFs.
func (pj *Prjn) WtsRange() minmax.F32 {
	var rng minmax.F32
	rng.SetInfinity()
	for _, cf := range pj.CFs {
		if cf == nil {
			continue
		}
		for i, w := range cf.Weights {
			if cf.Mask[i] != 0 {
				rng.FitValInRange(w)
			}
		}
	}
	return rng
}
