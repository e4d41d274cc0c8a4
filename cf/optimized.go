// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import "math"

// The functions here compute exactly the same values as the plugin forms
// they replace (same operations in the same order), without per-CF
// allocation and with the units split across threads.

// RespDotProduct is the fast form of RespPlugin{DotProduct{}}.
type RespDotProduct struct{}

func (RespDotProduct) PrjnResponse(it *Iter, in, act []float32, strength float32) {
	it.Par(func(i int, cf *ConnectionField) {
		act[i] = cfDot(cf, in, it.SrcCols) * strength
	})
}

func cfDot(cf *ConnectionField, in []float32, srcCols int) float32 {
	sum := float32(0)
	wi := 0
	sl := cf.Slice
	for r := sl.R1; r < sl.R2; r++ {
		for _, x := range in[r*srcCols+sl.C1 : r*srcCols+sl.C2] {
			sum += float32(x * cf.Weights[wi])
			wi++
		}
	}
	return sum
}

// LearnHebbian is the fast form of LearnPlugin{Hebbian{}}. It also caches
// each CF's new sum of absolute weights as its norm total.
type LearnHebbian struct{}

func (LearnHebbian) PrjnLearn(it *Iter, in, out []float32, lrate float32) {
	rate := ConstantSumRate(it.NUnits, lrate)
	it.Par(func(i int, cf *ConnectionField) {
		rout := rate * out[i]
		tot := 0.0
		wi := 0
		sl := cf.Slice
		for r := sl.R1; r < sl.R2; r++ {
			for _, x := range in[r*it.SrcCols+sl.C1 : r*it.SrcCols+sl.C2] {
				w := cf.Weights[wi] + float32(rout*x)
				w *= cf.Mask[wi]
				cf.Weights[wi] = w
				tot += math.Abs(float64(w))
				wi++
			}
		}
		cf.SetNormTotal(tot)
	})
}

// OutDivNormL1 divisively normalizes every CF so that its norm total
// becomes Norm, using the cached total when one is set (e.g., by
// LearnHebbian or joint normalization), and then invalidates the cache.
// It gives the same result as OutPlugin{DivisiveNormalizeL1{Norm}} when
// no cached total is set.
type OutDivNormL1 struct {
	Norm float64 `def:"1" desc:"target norm total"`
}

func NewOutDivNormL1() *OutDivNormL1 {
	return &OutDivNormL1{Norm: 1}
}

func (dn *OutDivNormL1) PrjnOutput(it *Iter) {
	it.Par(func(i int, cf *ConnectionField) {
		tot := cf.NormTotal()
		if tot > MinNormTotal {
			scale(cf.Weights, dn.Norm/tot)
		}
		cf.DelNormTotal()
	})
}

func (dn *OutDivNormL1) SingleCF() XferFn {
	return &DivisiveNormalizeL1{Norm: dn.Norm}
}

// FastResponse returns the fast form of fn if there is one, else fn.
func FastResponse(fn PrjnResponseFn) PrjnResponseFn {
	if rp, ok := fn.(*RespPlugin); ok {
		if _, ok := rp.Fn.(DotProduct); ok {
			return RespDotProduct{}
		}
	}
	return fn
}

// FastLearning returns the fast form of fn if there is one, else fn.
func FastLearning(fn PrjnLearningFn) PrjnLearningFn {
	if lp, ok := fn.(*LearnPlugin); ok {
		if _, ok := lp.Fn.(Hebbian); ok {
			return LearnHebbian{}
		}
	}
	return fn
}

// FastOutput returns the fast form of fn if there is one, else fn.
func FastOutput(fn PrjnOutputFn) PrjnOutputFn {
	if op, ok := fn.(*OutPlugin); ok {
		if dn, ok := op.Fn.(*DivisiveNormalizeL1); ok {
			return &OutDivNormL1{Norm: dn.Norm}
		}
	}
	return fn
}
