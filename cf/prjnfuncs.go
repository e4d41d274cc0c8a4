// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

// RespPlugin applies a single-CF response function to every CF.
type RespPlugin struct {
	Fn ResponseFn `desc:"response function applied to each CF"`
}

func NewRespPlugin(fn ResponseFn) *RespPlugin {
	return &RespPlugin{Fn: fn}
}

func (rp *RespPlugin) PrjnResponse(it *Iter, in, act []float32, strength float32) {
	for i, cf := range it.All() {
		act[i] = rp.Fn.Response(cf.InputMatrix(in, it.SrcCols), cf.Weights)
	}
	for i := range act {
		act[i] *= strength
	}
}

// LearnPlugin applies a single-CF learning function to every CF with the
// constant-sum connection rate, and reapplies the masks.
type LearnPlugin struct {
	Fn LearningFn `desc:"learning function applied to each CF"`
}

func NewLearnPlugin(fn LearningFn) *LearnPlugin {
	return &LearnPlugin{Fn: fn}
}

func (lp *LearnPlugin) PrjnLearn(it *Iter, in, out []float32, lrate float32) {
	rate := ConstantSumRate(it.NUnits, lrate)
	for i, cf := range it.All() {
		lp.Fn.Learn(cf.InputMatrix(in, it.SrcCols), out[i], cf.Weights, rate)
		cf.ApplyMask()
	}
}

// LearnIdentity does not learn.
type LearnIdentity struct{}

func (LearnIdentity) PrjnLearn(it *Iter, in, out []float32, lrate float32) {}

// OutPlugin applies a single-CF transfer function to the weights of every
// CF and invalidates the cached norm totals.
type OutPlugin struct {
	Fn XferFn `desc:"transfer function applied to the weights of each CF"`
}

func NewOutPlugin(fn XferFn) *OutPlugin {
	return &OutPlugin{Fn: fn}
}

func (op *OutPlugin) PrjnOutput(it *Iter) {
	if _, ok := op.Fn.(IdentityXF); ok {
		return
	}
	for _, cf := range it.All() {
		op.Fn.Xfer(cf.Weights)
		cf.DelNormTotal()
	}
}

func (op *OutPlugin) SingleCF() XferFn { return op.Fn }

// OutIdentity leaves the weights unchanged.
type OutIdentity struct{}

func (OutIdentity) PrjnOutput(it *Iter) {}

func (OutIdentity) SingleCF() XferFn { return IdentityXF{} }
