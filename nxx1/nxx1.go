// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package nxx1 provides the Noisy-X-over-X-plus-1 response function as a
sheet output function: a saturating sigmoid-like nonlinearity with an
initial largely-linear regime above threshold and a graded soft onset
just below it.

The basic x/(x+1) function is convolved with a Gaussian noise kernel. A
piecewise approximation is used instead of a lookup table.
*/
package nxx1

import "github.com/goki/mat32"

// Params are the Noisy X/(X+1) response function parameters.
type Params struct {
	Thr          float32 `def:"0.5" desc:"threshold subtracted from each input before the response"`
	Gain         float32 `def:"100,80,40,20" min:"0" desc:"gain of the response -- lower values give more graded responses"`
	NVar         float32 `def:"0.005,0.01" min:"0" desc:"variance of the Gaussian noise kernel convolved with x/(x+1) -- sets the curvature near threshold"`
	SigMult      float32 `def:"0.33" view:"-" json:"-" desc:"multiplier on the sigmoid used below threshold"`
	SigMultPow   float32 `def:"0.8" view:"-" json:"-" desc:"power of gain * nvar in the effective sigmoid multiplier"`
	SigGain      float32 `def:"3" view:"-" json:"-" desc:"gain of the sigmoid used below threshold"`
	InterpRange  float32 `def:"0.01" view:"-" json:"-" desc:"range above threshold over which the response is interpolated"`
	GainCorRange float32 `def:"10" view:"-" json:"-" desc:"range in units of nvar over which the gain is corrected"`
	GainCor      float32 `def:"0.1" view:"-" json:"-" desc:"amount of gain correction"`

	SigGainNVar float32 `view:"-" json:"-" desc:"SigGain / NVar"`
	SigMultEff  float32 `view:"-" json:"-" desc:"SigMult * pow(Gain * NVar, SigMultPow)"`
	SigValAt0   float32 `view:"-" json:"-" desc:"0.5 * SigMultEff"`
	InterpVal   float32 `view:"-" json:"-" desc:"response at InterpRange minus SigValAt0"`
}

func NewParams() *Params {
	xp := &Params{}
	xp.Defaults()
	return xp
}

// Update must be called after any changes to parameters.
func (xp *Params) Update() {
	xp.SigGainNVar = xp.SigGain / xp.NVar
	xp.SigMultEff = xp.SigMult * mat32.Pow(xp.Gain*xp.NVar, xp.SigMultPow)
	xp.SigValAt0 = 0.5 * xp.SigMultEff
	xp.InterpVal = xp.XX1GainCor(xp.InterpRange) - xp.SigValAt0
}

func (xp *Params) Defaults() {
	xp.Thr = 0.5
	xp.Gain = 100
	xp.NVar = 0.005
	xp.SigMult = 0.33
	xp.SigMultPow = 0.8
	xp.SigGain = 3.0
	xp.InterpRange = 0.01
	xp.GainCorRange = 10.0
	xp.GainCor = 0.1
	xp.Update()
}

// XX1 computes the basic x/(x+1) function
func (xp *Params) XX1(x float32) float32 { return x / (x + 1) }

// XX1GainCor computes x/(x+1) of the gain-scaled input, with the gain
// reduced within GainCorRange of zero.
func (xp *Params) XX1GainCor(x float32) float32 {
	gainCorFact := (xp.GainCorRange - (x / xp.NVar)) / xp.GainCorRange
	if gainCorFact < 0 {
		return xp.XX1(xp.Gain * x)
	}
	newGain := xp.Gain * (1 - xp.GainCor*gainCorFact)
	return xp.XX1(newGain * x)
}

// NoisyXX1 computes the approximation of x/(x+1) convolved with Gaussian
// noise of variance NVar. Less accurate for NVar above .01 with large gains.
func (xp *Params) NoisyXX1(x float32) float32 {
	switch {
	case x < 0:
		return xp.SigMultEff / (1 + mat32.Exp(-(x * xp.SigGainNVar)))
	case x < xp.InterpRange:
		interp := 1 - ((xp.InterpRange - x) / xp.InterpRange)
		return xp.SigValAt0 + interp*xp.InterpVal
	default:
		return xp.XX1GainCor(x)
	}
}

// Xfer replaces each value v with NoisyXX1(v - Thr).
func (xp *Params) Xfer(vals []float32) {
	for i, v := range vals {
		vals[i] = xp.NoisyXX1(v - xp.Thr)
	}
}
