// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package fffb provides feedforward (FF) and feedback (FB) pooled inhibition
(FFFB) applied to the activity of a whole sheet.

The FF term follows the average (or maximum) summed projection input and
the FB term follows the average activity, integrated over a few settling
cycles. The result is a graded k-Winners-Take-All dynamic with roughly a
fixed fraction of the sheet active, used in place of explicit lateral
inhibitory projections.
*/
package fffb

import "github.com/goki/mat32"

// Params parameterizes feedforward (FF) and feedback (FB) inhibition
// based on average (or maximum) input (FF) and activity (FB)
type Params struct {
	On       bool    `desc:"enable this level of inhibition"`
	Gi       float32 `min:"0" def:"1.8" desc:"overall inhibition gain, scaling both the ff and fb factors uniformly"`
	FF       float32 `viewif:"On" min:"0" def:"1" desc:"overall inhibitory contribution from feedforward inhibition, multiplying the average input"`
	FB       float32 `viewif:"On" min:"0" def:"1" desc:"overall inhibitory contribution from feedback inhibition, multiplying the average activity"`
	FBTau    float32 `viewif:"On" min:"0" def:"1.4,3,5" desc:"time constant in cycles for integrating feedback inhibition"`
	MaxVsAvg float32 `viewif:"On" def:"0,0.5,1" desc:"proportion of the maximum vs. average input used in the feedforward term: 0 = all average, 1 = all max"`
	FF0      float32 `viewif:"On" def:"0.1" desc:"feedforward zero point for the average input, below which there is no FF inhibition"`

	FBDt float32 `inactive:"+" view:"-" json:"-" xml:"-" desc:"rate = 1 / tau"`
}

func (fb *Params) Update() {
	fb.FBDt = 1 / fb.FBTau
}

func (fb *Params) Defaults() {
	fb.Gi = 1.8
	fb.FF = 1
	fb.FB = 1
	fb.FBTau = 1.4
	fb.MaxVsAvg = 0
	fb.FF0 = 0.1
	fb.Update()
}

// FFInhib returns the feedforward inhibition from the average and max input
func (fb *Params) FFInhib(avgGe, maxGe float32) float32 {
	ffNetin := avgGe + fb.MaxVsAvg*(maxGe-avgGe)
	var ffi float32
	if ffNetin > fb.FF0 {
		ffi = fb.FF * (ffNetin - fb.FF0)
	}
	return ffi
}

// FBInhib computes feedback inhibition as a function of average activity
func (fb *Params) FBInhib(avgAct float32) float32 {
	return fb.FB * avgAct
}

// FBUpdt updates feedback inhibition using the time-integration rate constant
func (fb *Params) FBUpdt(fbi *float32, newFbi float32) {
	*fbi += fb.FBDt * (newFbi - *fbi)
}

// Inhib is the full inhibition computation for the given state, which
// must have Ge and Act updated to the current pool statistics.
func (fb *Params) Inhib(inh *Inhib) {
	if !fb.On {
		inh.Init()
		return
	}
	ffi := fb.FFInhib(inh.Ge.Avg, inh.Ge.Max)
	fbi := fb.FBInhib(inh.Act.Avg)

	inh.FFi = ffi
	fb.FBUpdt(&inh.FBi, fbi)
	inh.Gi = fb.Gi * (ffi + inh.FBi)
}

// Xfer applies pooled FFFB inhibition to a sheet's summed projection
// input. Starting from the rectified input, each of Cycles settling
// cycles recomputes the inhibition from the input and current activity
// statistics and sets
//
//	act = Gain * max(ge - gi, 0)
//
// It satisfies cf.XferFn and is typically the first sheet output function.
type Xfer struct {
	Params
	Cycles int     `def:"5" min:"1" desc:"number of settling cycles per call"`
	Gain   float32 `def:"1" desc:"gain of the activity above inhibition"`

	Inhib Inhib     `view:"-" desc:"inhibition state after the last call"`
	ge    []float32 `view:"-"`
}

func NewXfer() *Xfer {
	xf := &Xfer{}
	xf.Defaults()
	return xf
}

func (xf *Xfer) Defaults() {
	xf.Params.Defaults()
	xf.On = true
	xf.Cycles = 5
	xf.Gain = 1
}

func (xf *Xfer) Xfer(vals []float32) {
	if !xf.On || len(vals) == 0 {
		return
	}
	xf.Update()
	xf.ge = append(xf.ge[:0], vals...)
	xf.Inhib.Init()
	xf.Inhib.Ge.UpdateVals(xf.ge)
	for i, v := range vals {
		vals[i] = mat32.Max(v, 0)
	}
	for range max(xf.Cycles, 1) {
		xf.Inhib.Act.UpdateVals(vals)
		xf.Params.Inhib(&xf.Inhib)
		for i, ge := range xf.ge {
			vals[i] = xf.Gain * mat32.Max(ge-xf.Inhib.Gi, 0)
		}
	}
}
