// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"iter"
	"sync"
)

// Iter walks the connection fields of a projection that a given pass
// must process: non-nil CFs of units that are valid in the receiving
// sheet's mask and, when ActiveUnitsMask is set and the sheet allows it,
// currently active.
type Iter struct {
	CFs             []*ConnectionField `desc:"all CFs of the projection, nil for null CFs"`
	Recv            *Sheet             `desc:"receiving sheet, providing the sheet mask and activity"`
	SrcCols         int                `desc:"number of columns of the source sheet"`
	NUnits          int                `desc:"unmasked units in a typical CF"`
	ActiveUnitsMask bool               `desc:"skip units with zero activity, if the receiving sheet allows skipping"`
	IgnoreSheetMask bool               `desc:"include units excluded by the sheet mask"`
}

// NewIter returns an iterator over the CFs of pj.
func NewIter(pj *Prjn, activeUnitsMask, ignoreSheetMask bool) *Iter {
	return &Iter{
		CFs:             pj.CFs,
		Recv:            pj.Recv,
		SrcCols:         pj.Send.Coords.Cols,
		NUnits:          pj.Tmpl.NUnits,
		ActiveUnitsMask: activeUnitsMask,
		IgnoreSheetMask: ignoreSheetMask,
	}
}

// Use returns the overall mask value for unit i.
func (it *Iter) Use(i int) bool {
	if !it.IgnoreSheetMask && it.Recv.Mask[i] == 0 {
		return false
	}
	if it.ActiveUnitsMask && it.Recv.AllowSkipNonResponding && it.Recv.Act.Values[i] == 0 {
		return false
	}
	return true
}

// Indexes returns the flat indexes of the CFs to process, as of now.
func (it *Iter) Indexes() []int {
	idxs := make([]int, 0, len(it.CFs))
	for i, cf := range it.CFs {
		if cf != nil && it.Use(i) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// All returns the (index, CF) pairs to process. The masks are read when
// iteration starts, and each call starts a fresh iteration.
func (it *Iter) All() iter.Seq2[int, *ConnectionField] {
	return func(yield func(int, *ConnectionField) bool) {
		for _, i := range it.Indexes() {
			if !yield(i, it.CFs[i]) {
				return
			}
		}
	}
}

// Count returns the number of CFs to process.
func (it *Iter) Count() int {
	return len(it.Indexes())
}

// Par calls fun for every CF to process, splitting the units into
// contiguous blocks, one per goroutine, when the receiving sheet has
// NThreads > 1. Each unit is visited by exactly one goroutine, so fun may
// write per-unit state without locking.
func (it *Iter) Par(fun func(i int, cf *ConnectionField)) {
	idxs := it.Indexes()
	nthr := 1
	if it.Recv != nil {
		nthr = it.Recv.NThreads
	}
	if nthr <= 1 || len(idxs) < 2*nthr {
		for _, i := range idxs {
			fun(i, it.CFs[i])
		}
		return
	}
	var wg sync.WaitGroup
	per := (len(idxs) + nthr - 1) / nthr
	for st := 0; st < len(idxs); st += per {
		blk := idxs[st:min(st+per, len(idxs))]
		wg.Add(1)
		go func(blk []int) {
			defer wg.Done()
			for _, i := range blk {
				fun(i, it.CFs[i])
			}
		}(blk)
	}
	wg.Wait()
}
