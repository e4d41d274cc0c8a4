// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package xferfn provides transfer functions that transform unit activities
or CF weights in place. They all satisfy cf.XferFn, so they can be used as
sheet or projection output functions, input functions, or (for the
normalizations) applied to the weights via cf.OutPlugin.
*/
package xferfn

import (
	"math"
	"math/rand/v2"

	"github.com/goki/mat32"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ioam/topographica-sub002/cf"
)

// PiecewiseLinear maps [Lower, Upper] linearly onto [0, 1], clipping
// values outside.
type PiecewiseLinear struct {
	Lower float32 `def:"0" desc:"value mapped to 0"`
	Upper float32 `def:"1" desc:"value mapped to 1"`
}

func NewPiecewiseLinear(lower, upper float32) *PiecewiseLinear {
	return &PiecewiseLinear{Lower: lower, Upper: upper}
}

func (pl *PiecewiseLinear) Xfer(vals []float32) {
	fact := 1 / (pl.Upper - pl.Lower)
	for i, v := range vals {
		vals[i] = mat32.Clamp((v-pl.Lower)*fact, 0, 1)
	}
}

// BinaryThreshold sets values at or above Thr to 1 and the rest to 0.
type BinaryThreshold struct {
	Thr float32 `def:"0.25" desc:"decision point"`
}

func (bt *BinaryThreshold) Xfer(vals []float32) {
	for i, v := range vals {
		if v >= bt.Thr {
			vals[i] = 1
		} else {
			vals[i] = 0
		}
	}
}

// DivisiveNormalizeL2 scales values so that their Euclidean length is
// Norm. All-zero input is left unchanged.
type DivisiveNormalizeL2 struct {
	Norm float64 `def:"1" desc:"target Euclidean length"`
}

func NewDivisiveNormalizeL2() *DivisiveNormalizeL2 {
	return &DivisiveNormalizeL2{Norm: 1}
}

func (dn *DivisiveNormalizeL2) Xfer(vals []float32) {
	tot := 0.0
	for _, v := range vals {
		tot += float64(v) * float64(v)
	}
	if tot == 0 {
		return
	}
	scale(vals, dn.Norm/math.Sqrt(tot))
}

// DivisiveNormalizeLinf scales values so that the largest absolute value
// is Norm. All-zero input is left unchanged.
type DivisiveNormalizeLinf struct {
	Norm float64 `def:"1" desc:"target maximum absolute value"`
}

func (dn *DivisiveNormalizeLinf) Xfer(vals []float32) {
	mx := float32(0)
	for _, v := range vals {
		mx = mat32.Max(mx, mat32.Abs(v))
	}
	if mx == 0 {
		return
	}
	scale(vals, dn.Norm/float64(mx))
}

func scale(vals []float32, factor float64) {
	f := float32(factor)
	for i := range vals {
		vals[i] *= f
	}
}

// HalfRectify subtracts a per-unit threshold, clips at zero and multiplies
// by Gain. The thresholds are set to TInit on the first call, optionally
// with uniform noise of +/- Noise.
type HalfRectify struct {
	TInit      float32 `def:"0" desc:"initial threshold"`
	Gain       float32 `def:"1" desc:"gain above threshold"`
	RandomInit bool    `desc:"add uniform noise to the initial thresholds"`
	Noise      float32 `def:"0.1" viewif:"RandomInit" desc:"magnitude of the initial threshold noise"`
	Seed       uint64  `viewif:"RandomInit" desc:"seed of the initial threshold noise"`

	T []float32 `view:"-" desc:"threshold of each unit"`
}

func NewHalfRectify() *HalfRectify {
	return &HalfRectify{Gain: 1, Noise: 0.1}
}

func (hr *HalfRectify) Xfer(vals []float32) {
	if len(hr.T) != len(vals) {
		hr.T = initThresholds(len(vals), hr.TInit, hr.RandomInit, hr.Noise, hr.Seed)
	}
	for i, v := range vals {
		vals[i] = mat32.Max(v-hr.T[i], 0) * hr.Gain
	}
}

func initThresholds(n int, tinit float32, random bool, noise float32, seed uint64) []float32 {
	t := make([]float32, n)
	var u distuv.Uniform
	if random {
		u = distuv.Uniform{Min: -float64(noise), Max: float64(noise), Src: rand.NewPCG(seed, 0)}
	}
	for i := range t {
		t[i] = tinit
		if random {
			t[i] += float32(u.Rand())
		}
	}
	return t
}

// HomeostaticResponse is a linear threshold function whose per-unit
// thresholds adapt to keep each unit's smoothed average activity at
// Target. At each update, using the activity of the previous call,
//
//	avg = (1 - Smoothing) * prev + Smoothing * avg
//	t += Lrate * (avg - Target)
//
// Updates happen every Period calls, starting with the second call, and
// only while Plastic.
type HomeostaticResponse struct {
	TInit      float32 `def:"0.15" desc:"initial threshold"`
	Target     float32 `def:"0.024" desc:"target average activity"`
	Slope      float32 `def:"1" desc:"slope above threshold"`
	Lrate      float32 `def:"0.01" desc:"rate of threshold adaptation"`
	Smoothing  float32 `def:"0.991" desc:"weight of the previous average relative to the current activity"`
	Period     int     `def:"1" min:"1" desc:"number of calls between threshold updates"`
	Plastic    bool    `def:"true" desc:"whether the thresholds and averages adapt"`
	RandomInit bool    `desc:"add uniform noise to the initial thresholds"`
	Noise      float32 `def:"0.1" viewif:"RandomInit" desc:"magnitude of the initial threshold noise"`
	Seed       uint64  `def:"42" viewif:"RandomInit" desc:"seed of the initial threshold noise"`

	T     []float32 `view:"-" desc:"threshold of each unit"`
	YAvg  []float32 `view:"-" desc:"smoothed average activity of each unit"`
	xPrev []float32
	ncall int

	plastStack []bool
}

func NewHomeostaticResponse() *HomeostaticResponse {
	hr := &HomeostaticResponse{}
	hr.Defaults()
	return hr
}

func (hr *HomeostaticResponse) Defaults() {
	hr.TInit = 0.15
	hr.Target = 0.024
	hr.Slope = 1
	hr.Lrate = 0.01
	hr.Smoothing = 0.991
	hr.Period = 1
	hr.Plastic = true
	hr.Noise = 0.1
	hr.Seed = 42
}

func (hr *HomeostaticResponse) Xfer(vals []float32) {
	if len(hr.T) != len(vals) {
		hr.T = initThresholds(len(vals), hr.TInit, hr.RandomInit, hr.Noise, hr.Seed)
		hr.YAvg = make([]float32, len(vals))
		for i := range hr.YAvg {
			hr.YAvg[i] = hr.Target
		}
		hr.xPrev = make([]float32, len(vals))
		copy(hr.xPrev, vals)
		hr.ncall = 0
	} else if hr.Plastic && hr.ncall%max(hr.Period, 1) == 0 {
		for i, x := range hr.xPrev {
			hr.YAvg[i] = (1-hr.Smoothing)*x + hr.Smoothing*hr.YAvg[i]
			hr.T[i] += hr.Lrate * (hr.YAvg[i] - hr.Target)
		}
	}
	hr.ncall++
	for i, v := range vals {
		v = mat32.Max(v-hr.T[i], 0)
		if hr.Slope != 1 {
			v *= hr.Slope
		}
		vals[i] = v
	}
	copy(hr.xPrev, vals)
}

// OverridePlasticity sets Plastic, saving the current value.
func (hr *HomeostaticResponse) OverridePlasticity(plastic bool) {
	hr.plastStack = append(hr.plastStack, hr.Plastic)
	hr.Plastic = plastic
}

// RestorePlasticity undoes the last OverridePlasticity.
func (hr *HomeostaticResponse) RestorePlasticity() {
	if n := len(hr.plastStack); n > 0 {
		hr.Plastic = hr.plastStack[n-1]
		hr.plastStack = hr.plastStack[:n-1]
	}
}

var (
	_ cf.XferFn = (*PiecewiseLinear)(nil)
	_ cf.XferFn = (*BinaryThreshold)(nil)
	_ cf.XferFn = (*DivisiveNormalizeL2)(nil)
	_ cf.XferFn = (*DivisiveNormalizeLinf)(nil)
	_ cf.XferFn = (*HalfRectify)(nil)
	_ cf.XferFn = (*HomeostaticResponse)(nil)
)
