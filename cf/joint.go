// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"sync"

	"github.com/emer/emergent/params"
)

// Projection is the interface shared by the dense Prjn and by other
// connection field projections, e.g., sparse ones, so that a Sheet can
// activate, train and jointly normalize any mix of them.
type Projection interface {
	Name() string
	SendSheet() *Sheet
	RecvSheet() *Sheet

	// Build creates the connection fields.
	Build() error

	// Activity returns the projection's own activity, one value per
	// receiving unit.
	Activity() []float32

	// Activate computes the activity from in, the source activity.
	Activate(in []float32)

	// LearnWts runs the learning function on the last input, without the
	// learn output functions.
	LearnWts()

	// ApplyLearnOutFns applies the learn output functions to the weights,
	// restricted to active units if activeOnly.
	ApplyLearnOutFns(activeOnly bool)

	// JointNormGroup is the name of the group of projections that are
	// normalized together; empty if normalized alone.
	JointNormGroup() string

	// AddNormTotals adds the norm total of each CF whose use entry is true
	// into tot.
	AddNormTotals(tot []float64, use []bool)

	// SetNormTotals sets the cached norm total of each CF whose use entry
	// is true.
	SetNormTotals(tot []float64, use []bool)

	IsPlastic() bool
	OverridePlasticity(plastic bool)
	RestorePlasticity()

	ApplyParams(pars *params.Sheet, setMsg bool) (bool, error)

	NConns() int
	NBytes() int
	SizeReport() string
}

// JointNorm normalizes a group of projections onto the same sheet as if
// their weights to each unit were one connection field: the norm totals
// of all members are summed per unit and written back into each, so that
// the members' learn output functions all scale by the joint total.
type JointNorm struct {
	Name  string       `desc:"group key, shared by the member projections"`
	Recv  *Sheet       `desc:"receiving sheet of all members"`
	Prjns []Projection `desc:"member projections"`
}

// Use returns, for each receiving unit, whether it takes part in the
// normalization.
func (jn *JointNorm) Use(activeOnly bool) []bool {
	sh := jn.Recv
	use := make([]bool, sh.Len())
	act := sh.Activity()
	skip := activeOnly && sh.AllowSkipNonResponding
	for i := range use {
		use[i] = sh.Mask[i] != 0 && !(skip && act[i] == 0)
	}
	return use
}

// Totals returns the summed norm totals of the members, computing them in
// parallel across the members and summing in member order.
func (jn *JointNorm) Totals(use []bool) []float64 {
	n := len(use)
	parts := make([][]float64, len(jn.Prjns))
	var wg sync.WaitGroup
	for pi, pj := range jn.Prjns {
		parts[pi] = make([]float64, n)
		wg.Add(1)
		go func(pj Projection, tot []float64) {
			defer wg.Done()
			pj.AddNormTotals(tot, use)
		}(pj, parts[pi])
	}
	wg.Wait()
	tot := make([]float64, n)
	for _, pt := range parts {
		for i, v := range pt {
			tot[i] += v
		}
	}
	return tot
}

// Apply computes the joint totals, sets them into every member and then
// applies the learn output functions of each plastic member. Non-plastic
// members contribute to the totals but are left unchanged. No member is
// normalized until all totals have been gathered.
func (jn *JointNorm) Apply(activeOnly bool) {
	if len(jn.Prjns) == 0 {
		return
	}
	use := jn.Use(activeOnly)
	tot := jn.Totals(use)
	var wg sync.WaitGroup
	for _, pj := range jn.Prjns {
		if !pj.IsPlastic() {
			continue
		}
		wg.Add(1)
		go func(pj Projection) {
			defer wg.Done()
			pj.SetNormTotals(tot, use)
			pj.ApplyLearnOutFns(activeOnly)
		}(pj)
	}
	wg.Wait()
}
