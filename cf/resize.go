// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"errors"
	"fmt"
	"log"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

// ErrGrowUnsupported is returned by ChangeBounds when the new bounds are
// not strictly inside the current ones.
var ErrGrowUnsupported = errors.New("cf: change bounds can only reduce the CF size")

// ChangeBounds refits all CFs to a new nominal bounds template, keeping
// the weights where the old and new regions overlap. Only reducing the
// size is supported: bounds that fit to the same template leave the
// projection unchanged, and larger ones return ErrGrowUnsupported.
func (pj *Prjn) ChangeBounds(nominal sheetcoords.BBox) error {
	src := pj.Send.Coords
	sl := sheetcoords.NewOddSlice(nominal, src, pj.MinMatrixRadius)
	bt := sl.Bounds(src)
	if !pj.Tmpl.Bounds.ContainsBBoxExclusive(bt) {
		if pj.Tmpl.Bounds.ContainsBBoxInclusive(bt) {
			return nil
		}
		log.Printf("cf.Prjn %s ChangeBounds: unable to change bounds from %v to %v, can only reduce\n", pj.Nm, pj.Tmpl.Bounds, bt)
		return fmt.Errorf("cf.Prjn %s: %w", pj.Nm, ErrGrowUnsupported)
	}
	mask := CreateMask(pj.CFShape, bt, sl, src, pj.AutosizeMask, pj.MaskThreshold)
	pj.Tmpl = &Template{
		Nominal: nominal,
		Slice:   sl,
		Bounds:  bt,
		Mask:    mask,
		NUnits:  min(countNonZero(mask), src.Len()),
	}
	var fns []XferFn
	for _, of := range pj.LearnOutFns {
		sc, ok := pj.outFn(of).(SingleCFer)
		if !ok {
			continue
		}
		if fn := sc.SingleCF(); fn != nil {
			if _, id := fn.(IdentityXF); !id {
				fns = append(fns, fn)
			}
		}
	}
	for i, cf := range pj.CFs {
		if cf == nil {
			continue
		}
		cf.changeBounds(sl, mask, pj.X[i], pj.Y[i], src, fns)
	}
	return nil
}

// changeBounds crops the CF to the template sl positioned at (x, y),
// keeping the overlapping weights. Does nothing if the input region is
// unchanged. The norm total is always invalidated.
func (cf *ConnectionField) changeBounds(sl sheetcoords.Slice, maskTmpl []float32, x, y float64, src *sheetcoords.Coords, fns []XferFn) {
	defer cf.DelNormTotal()
	in := sl.PositionedCrop(x, y, src).CropToSheet(src)
	old := cf.Slice
	if in == old {
		return
	}
	ocols := old.Cols()
	wts := make([]float32, 0, in.Area())
	for r := in.R1; r < in.R2; r++ {
		for c := in.C1; c < in.C2; c++ {
			wts = append(wts, cf.Weights[(r-old.R1)*ocols+(c-old.C1)])
		}
	}
	cf.Slice = in
	cf.Weights = wts
	cf.Mask = sl.PositionlessCrop(x, y, src).Submatrix(maskTmpl, sl.Cols())
	cf.ApplyMask()
	for _, fn := range fns {
		fn.Xfer(cf.Weights)
	}
}
