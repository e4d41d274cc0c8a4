// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"math"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

// CF is a view of one receiving unit's connection field. It refers back
// to its projection, which owns the weights; the dense forms it returns
// are copies.
type CF struct {
	Prjn *Prjn
	Idx  int
}

// CF returns the view of receiving unit ri's CF, and false if the unit
// has no CF.
func (pj *Prjn) CF(ri int) (CF, bool) {
	return CF{Prjn: pj, Idx: ri}, pj.HasCF[ri]
}

// Slice returns the input region on the source sheet.
func (c CF) Slice() sheetcoords.Slice {
	return c.Prjn.Slices[c.Idx]
}

// InputSliceTuple returns the input region as (r1, r2, c1, c2).
func (c CF) InputSliceTuple() [4]int {
	return c.Slice().Tuple()
}

// dense calls fun with the dense weight index of each stored connection.
func (c CF) dense(fun func(wi int, w float32)) {
	sl := c.Slice()
	scols := c.Prjn.Send.Coords.Cols
	si, wt := c.Prjn.Wts.Recv(c.Idx)
	for k, s := range si {
		r, col := int(s)/scols, int(s)%scols
		fun((r-sl.R1)*sl.Cols()+(col-sl.C1), wt[k])
	}
}

// Weights returns a dense copy of the weights over Slice.
func (c CF) Weights() []float32 {
	wts := make([]float32, c.Slice().Area())
	c.dense(func(wi int, w float32) { wts[wi] = w })
	return wts
}

// Mask returns 1 where a connection exists and 0 elsewhere, over Slice.
func (c CF) Mask() []float32 {
	mask := make([]float32, c.Slice().Area())
	c.dense(func(wi int, w float32) { mask[wi] = 1 })
	return mask
}

// SetWeights replaces the weights from dense values over Slice. Zero
// values remove the connection. A cached norm total for this unit is
// replaced by the sum of the new absolute weights.
func (c CF) SetWeights(wts []float32) {
	if len(wts) != c.Slice().Area() {
		panic("sparse.CF SetWeights: weights do not match the CF shape")
	}
	si, wt := c.Prjn.denseToConns(c.Idx, wts)
	c.Prjn.Wts.SetRecv(c.Idx, si, wt)
	if c.Prjn.HasNormTotal {
		tot := 0.0
		for _, w := range wt {
			tot += math.Abs(float64(w))
		}
		c.Prjn.NormTotal[c.Idx] = tot
	}
}

// NConns returns the number of connections.
func (c CF) NConns() int {
	si, _ := c.Prjn.Wts.Recv(c.Idx)
	return len(si)
}

// InputMatrix returns a copy of the region of act under this CF.
func (c CF) InputMatrix(act []float32) []float32 {
	return c.Slice().Submatrix(act, c.Prjn.Send.Coords.Cols)
}

// NormTotal returns the projection's cached norm total for this unit when
// set, or else the current sum of absolute weights.
func (c CF) NormTotal() float64 {
	if c.Prjn.HasNormTotal {
		return c.Prjn.NormTotal[c.Idx]
	}
	tot := 0.0
	c.dense(func(wi int, w float32) {
		if w < 0 {
			w = -w
		}
		tot += float64(w)
	})
	return tot
}

// SetNormTotal sets this unit's norm total, computing the others first
// if the cache is not valid.
func (c CF) SetNormTotal(tot float64) {
	pj := c.Prjn
	if !pj.HasNormTotal {
		pj.CalcNormTotals()
	}
	pj.NormTotal[c.Idx] = tot
}
