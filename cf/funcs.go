// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

// ResponseFn computes one unit's response from its CF weights and the
// matching input region.
type ResponseFn interface {
	Response(in, wts []float32) float32
}

// LearningFn updates one CF's weights in place given the input region, the
// unit's output and a per-connection learning rate.
type LearningFn interface {
	Learn(in []float32, out float32, wts []float32, rate float32)
}

// XferFn transforms values in place: CF weights, unit activities or
// input patterns.
type XferFn interface {
	Xfer(vals []float32)
}

// PrjnResponseFn computes the activity of every unit of a projection. It
// must write act for every unit the iterator yields and scale by strength.
type PrjnResponseFn interface {
	PrjnResponse(it *Iter, in, act []float32, strength float32)
}

// PrjnLearningFn updates the weights of every CF the iterator yields. After
// an additive change the CF mask must be reapplied.
type PrjnLearningFn interface {
	PrjnLearn(it *Iter, in, out []float32, lrate float32)
}

// PrjnOutputFn transforms the weights of every CF the iterator yields,
// e.g., normalization, possibly using cached norm totals.
type PrjnOutputFn interface {
	PrjnOutput(it *Iter)
}

// SingleCFer is implemented by projection output functions that can be
// applied to one CF at a time, as needed when a CF is resized.
type SingleCFer interface {
	SingleCF() XferFn
}

// ConstantSumRate returns the learning rate of a single connection when a
// total rate lrate is split evenly among nUnits connections, so that the
// total amount of plasticity per unit does not depend on CF size.
func ConstantSumRate(nUnits int, lrate float32) float32 {
	if nUnits <= 0 {
		return 0
	}
	return lrate / float32(nUnits)
}

//////////////////////////////////////////////////////////////////////////////
//  Single CF functions

// DotProduct returns sum(in * wts).
type DotProduct struct{}

func (DotProduct) Response(in, wts []float32) float32 {
	return Dot(in, wts)
}

// Dot returns the float32 dot product, accumulated in order.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		panic("cf.Dot: length mismatch")
	}
	sum := float32(0)
	for i, v := range a {
		sum += float32(v * b[i])
	}
	return sum
}

// Hebbian is the basic Hebbian rule: wts += rate * out * in.
type Hebbian struct{}

func (Hebbian) Learn(in []float32, out float32, wts []float32, rate float32) {
	HebbUpdt(in, out, wts, rate)
}

// HebbUpdt adds rate * out * in to wts.
func HebbUpdt(in []float32, out float32, wts []float32, rate float32) {
	if len(in) != len(wts) {
		panic("cf.Hebbian: input and weights shapes differ")
	}
	rout := rate * out
	for i, x := range in {
		wts[i] += float32(rout * x)
	}
}

// IdentityLF leaves the weights unchanged.
type IdentityLF struct{}

func (IdentityLF) Learn(in []float32, out float32, wts []float32, rate float32) {}

// IdentityXF leaves values unchanged.
type IdentityXF struct{}

func (IdentityXF) Xfer(vals []float32) {}

// MinNormTotal is the smallest norm total that L1 normalization divides
// by. Smaller totals leave the weights unchanged.
const MinNormTotal = 1e-13

// DivisiveNormalizeL1 scales values so that the sum of their absolute
// values equals Norm. Input whose sum is at most MinNormTotal is left
// unchanged.
type DivisiveNormalizeL1 struct {
	Norm float64 `def:"1" desc:"target sum of absolute values"`
}

func NewDivisiveNormalizeL1() *DivisiveNormalizeL1 {
	return &DivisiveNormalizeL1{Norm: 1}
}

func (dn *DivisiveNormalizeL1) Xfer(vals []float32) {
	sum := SumAbs(vals)
	if sum <= MinNormTotal {
		return
	}
	scale(vals, dn.Norm/sum)
}

func scale(vals []float32, factor float64) {
	f := float32(factor)
	for i := range vals {
		vals[i] *= f
	}
}
