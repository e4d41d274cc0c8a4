// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package learnfn provides learning rules for connection field projections
beyond the basic Hebbian rule in package cf: single-CF rules usable with
cf.LearnPlugin, and whole-projection rules that keep per-unit state.

All whole-projection rules reapply each CF's mask after changing its
weights, so masked connections stay at zero.
*/
package learnfn

import (
	"github.com/ioam/topographica-sub002/cf"
)

// BCMFixed is the Bienenstock, Cooper and Munro rule with a fixed
// threshold: connections are strengthened when the unit is above Thr and
// weakened when below. Weights are clipped at zero.
type BCMFixed struct {
	Thr float32 `def:"0.5" min:"0" desc:"threshold between depression and potentiation"`
}

func NewBCMFixed() *BCMFixed {
	return &BCMFixed{Thr: 0.5}
}

func (bc *BCMFixed) Learn(in []float32, out float32, wts []float32, rate float32) {
	if out == 0 {
		return
	}
	load := rate * out * (out - bc.Thr)
	for i, x := range in {
		w := wts[i] + float32(load*x)
		if w < 0 {
			w = 0
		}
		wts[i] = w
	}
}

// EuclideanHebbian moves each active unit's weights toward the input, by
// lrate times the unit's activity: w += lrate * out * (in - w). It does not
// divide the rate among the connections. With a neighborhood kernel around
// the winning unit as the activity, it is the Kohonen SOM rule.
type EuclideanHebbian struct{}

func (EuclideanHebbian) PrjnLearn(it *cf.Iter, in, out []float32, lrate float32) {
	for i, c := range it.All() {
		if out[i] == 0 {
			continue
		}
		moveToward(c, c.InputMatrix(in, it.SrcCols), lrate*out[i])
		c.ApplyMask()
	}
}

// moveToward sets w += rate * (x - w).
func moveToward(c *cf.ConnectionField, x []float32, rate float32) {
	for wi, v := range x {
		c.Weights[wi] += float32(rate * (v - c.Weights[wi]))
	}
}

// Trace learns from a trace of recent activity rather than the current
// activity alone: trace = s * out + (1 - s) * trace, and then
// w += rate * trace * (in - w). The decay term keeps the weights bounded.
type Trace struct {
	Strength float32 `def:"0.5" min:"0" max:"1" desc:"weight of the current activity in the trace, relative to its previous value"`

	Traces []float32 `view:"-" desc:"activity trace of each receiving unit, starting at zero"`
}

func NewTrace() *Trace {
	return &Trace{Strength: 0.5}
}

func (tr *Trace) PrjnLearn(it *cf.Iter, in, out []float32, lrate float32) {
	rate := cf.ConstantSumRate(it.NUnits, lrate)
	if len(tr.Traces) != len(out) {
		tr.Traces = make([]float32, len(out))
	}
	for i, c := range it.All() {
		nt := tr.Strength*out[i] + (1-tr.Strength)*tr.Traces[i]
		tr.Traces[i] = nt
		moveToward(c, c.InputMatrix(in, it.SrcCols), rate*nt)
		c.ApplyMask()
	}
}

// PluginScaled applies a single-CF rule with the constant-sum rate of each
// unit multiplied by that unit's entry in Scale (1 if Scale is nil).
type PluginScaled struct {
	Fn    cf.LearningFn `desc:"rule applied to each CF"`
	Scale []float32     `view:"-" desc:"learning rate scaling factor of each receiving unit"`
}

func NewPluginScaled(fn cf.LearningFn) *PluginScaled {
	return &PluginScaled{Fn: fn}
}

// SetScale sets the per-unit scaling factors.
func (ps *PluginScaled) SetScale(scale []float32) {
	ps.Scale = scale
}

func (ps *PluginScaled) PrjnLearn(it *cf.Iter, in, out []float32, lrate float32) {
	if len(ps.Scale) != len(out) {
		ps.Scale = make([]float32, len(out))
		for i := range ps.Scale {
			ps.Scale[i] = 1
		}
	}
	rate := cf.ConstantSumRate(it.NUnits, lrate)
	for i, c := range it.All() {
		ps.Fn.Learn(c.InputMatrix(in, it.SrcCols), out[i], c.Weights, ps.Scale[i]*rate)
		c.ApplyMask()
	}
}

// HomeoSynaptic applies a single-CF rule followed by homeostatic synaptic
// scaling: each unit's weights are divided by
// 1 + BetaN * (avg - Target) / Target, where avg is a running average of
// the unit's activity. On the first call every CF is normalized to a sum
// of 1. It does not require a normalizing output function for stability.
type HomeoSynaptic struct {
	Fn     cf.LearningFn `desc:"rule applied to each CF"`
	BetaN  float64       `def:"0.01" min:"0" desc:"homeostatic learning rate"`
	BetaC  float64       `def:"0.005" min:"0" desc:"rate of the running average of the activity"`
	Target float64       `def:"0.1" min:"0" desc:"target average activity"`

	Avgs []float64 `view:"-" desc:"running average activity of each receiving unit, starting at 0.1"`
}

func NewHomeoSynaptic(fn cf.LearningFn) *HomeoSynaptic {
	hs := &HomeoSynaptic{Fn: fn}
	hs.Defaults()
	return hs
}

func (hs *HomeoSynaptic) Defaults() {
	hs.BetaN = 0.01
	hs.BetaC = 0.005
	hs.Target = 0.1
}

func (hs *HomeoSynaptic) PrjnLearn(it *cf.Iter, in, out []float32, lrate float32) {
	if len(hs.Avgs) != len(out) {
		hs.Avgs = make([]float64, len(out))
		for i := range hs.Avgs {
			hs.Avgs[i] = 0.1
		}
		norm := cf.NewDivisiveNormalizeL1()
		for _, c := range it.All() {
			norm.Xfer(c.Weights)
		}
	}
	for i, o := range out {
		hs.Avgs[i] = hs.BetaC*float64(o) + (1-hs.BetaC)*hs.Avgs[i]
	}
	rate := cf.ConstantSumRate(it.NUnits, lrate)
	for i, c := range it.All() {
		hs.Fn.Learn(c.InputMatrix(in, it.SrcCols), out[i], c.Weights, rate)
		an := float32(1 + hs.BetaN*(hs.Avgs[i]-hs.Target)/hs.Target)
		for wi := range c.Weights {
			c.Weights[wi] /= an
		}
		c.ApplyMask()
	}
}

// OutstarHebbian applies a single-CF rule and accumulates, for every
// source unit, the sum of its outgoing weights after learning, for
// outstar-style normalization.
type OutstarHebbian struct {
	Fn cf.LearningFn `desc:"rule applied to each CF"`

	OutSums []float32 `view:"-" desc:"sum of the weights from each source unit, after the last learning step"`
}

func NewOutstarHebbian() *OutstarHebbian {
	return &OutstarHebbian{Fn: cf.Hebbian{}}
}

func (oh *OutstarHebbian) PrjnLearn(it *cf.Iter, in, out []float32, lrate float32) {
	if len(oh.OutSums) != len(in) {
		oh.OutSums = make([]float32, len(in))
	}
	clear(oh.OutSums)
	rate := cf.ConstantSumRate(it.NUnits, lrate)
	for i, c := range it.All() {
		oh.Fn.Learn(c.InputMatrix(in, it.SrcCols), out[i], c.Weights, rate)
		c.ApplyMask()
		sl := c.Slice
		wi := 0
		for r := sl.R1; r < sl.R2; r++ {
			for col := sl.C1; col < sl.C2; col++ {
				oh.OutSums[r*it.SrcCols+col] += c.Weights[wi]
				wi++
			}
		}
	}
}
