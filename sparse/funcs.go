// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"math"

	"github.com/ioam/topographica-sub002/cf"
)

// PrjnResponseFn computes the activity of a sparse projection from in,
// writing act for every processed unit, scaled by the strength.
type PrjnResponseFn interface {
	PrjnResponse(pj *Prjn, in, act []float32)
}

// PrjnLearningFn updates the weights of a sparse projection.
type PrjnLearningFn interface {
	PrjnLearn(pj *Prjn, in, out []float32)
}

// PrjnOutputFn transforms the weights of a sparse projection after
// learning, restricted to active units if activeOnly.
type PrjnOutputFn interface {
	PrjnOutput(pj *Prjn, activeOnly bool)
}

// DotProduct computes each unit's activity as the dot product of its
// stored weights with the input, directly on the sparse storage.
type DotProduct struct{}

func (DotProduct) PrjnResponse(pj *Prjn, in, act []float32) {
	m := pj.Wts
	pj.Par(pj.Indexes(false), func(ri int) {
		si, wt := m.Recv(ri)
		sum := float32(0)
		for k, s := range si {
			sum += float32(in[s] * wt[k])
		}
		act[ri] = sum * pj.Strength
	})
}

// RespPlugin applies a single-CF response function to dense views.
type RespPlugin struct {
	Fn cf.ResponseFn `desc:"response function applied to each CF"`
}

func (rp *RespPlugin) PrjnResponse(pj *Prjn, in, act []float32) {
	for _, ri := range pj.Indexes(false) {
		c, _ := pj.CF(ri)
		act[ri] = rp.Fn.Response(c.InputMatrix(in), c.Weights())
	}
	for i := range act {
		act[i] *= pj.Strength
	}
}

// Hebbian adds rate * out * in to every existing connection, with the
// constant-sum rate of the CF template, and records the norm totals.
// New connections are never created.
type Hebbian struct{}

func (Hebbian) PrjnLearn(pj *Prjn, in, out []float32) {
	m := pj.Wts
	rate := cf.ConstantSumRate(pj.NUnits(), pj.Lrate)
	if !pj.HasNormTotal {
		pj.CalcNormTotals()
	}
	pj.Par(pj.Indexes(false), func(ri int) {
		si, wt := m.Recv(ri)
		rout := rate * out[ri]
		tot := 0.0
		for k, s := range si {
			w := wt[k] + float32(rout*in[s])
			wt[k] = w
			tot += math.Abs(float64(w))
		}
		pj.NormTotal[ri] = tot
	})
}

// LearnPlugin applies a single-CF learning function to dense views and
// keeps only the existing connections.
type LearnPlugin struct {
	Fn cf.LearningFn `desc:"learning function applied to each CF"`
}

func (lp *LearnPlugin) PrjnLearn(pj *Prjn, in, out []float32) {
	rate := cf.ConstantSumRate(pj.NUnits(), pj.Lrate)
	for _, ri := range pj.Indexes(false) {
		c, _ := pj.CF(ri)
		wts := c.Weights()
		mask := c.Mask()
		lp.Fn.Learn(c.InputMatrix(in), out[ri], wts, rate)
		for wi, mv := range mask {
			wts[wi] *= mv
		}
		c.SetWeights(wts)
	}
	pj.HasNormTotal = false
}

// LearnIdentity does not learn.
type LearnIdentity struct{}

func (LearnIdentity) PrjnLearn(pj *Prjn, in, out []float32) {}

// DivNormL1 scales each unit's weights so that their absolute sum is
// Norm, using the cached norm totals when valid, and then invalidates
// them.
type DivNormL1 struct {
	Norm float64 `def:"1" desc:"target norm total"`
}

func NewDivNormL1() *DivNormL1 {
	return &DivNormL1{Norm: 1}
}

func (dn *DivNormL1) PrjnOutput(pj *Prjn, activeOnly bool) {
	if !pj.HasNormTotal {
		pj.CalcNormTotals()
	}
	m := pj.Wts
	pj.Par(pj.Indexes(activeOnly), func(ri int) {
		tot := pj.NormTotal[ri]
		if tot <= cf.MinNormTotal {
			return
		}
		f := float32(dn.Norm / tot)
		_, wt := m.Recv(ri)
		for k := range wt {
			wt[k] *= f
		}
	})
	pj.HasNormTotal = false
}

// OutPlugin applies a single-CF transfer function to dense views.
type OutPlugin struct {
	Fn cf.XferFn `desc:"transfer function applied to the weights of each CF"`
}

func (op *OutPlugin) PrjnOutput(pj *Prjn, activeOnly bool) {
	for _, ri := range pj.Indexes(activeOnly) {
		c, _ := pj.CF(ri)
		wts := c.Weights()
		op.Fn.Xfer(wts)
		c.SetWeights(wts)
	}
	pj.HasNormTotal = false
}

// OutIdentity leaves the weights unchanged.
type OutIdentity struct{}

func (OutIdentity) PrjnOutput(pj *Prjn, activeOnly bool) {}

var (
	_ PrjnResponseFn = DotProduct{}
	_ PrjnResponseFn = (*RespPlugin)(nil)
	_ PrjnLearningFn = Hebbian{}
	_ PrjnLearningFn = (*LearnPlugin)(nil)
	_ PrjnLearningFn = LearnIdentity{}
	_ PrjnOutputFn   = (*DivNormL1)(nil)
	_ PrjnOutputFn   = (*OutPlugin)(nil)
	_ PrjnOutputFn   = OutIdentity{}
)
