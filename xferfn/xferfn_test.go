// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xferfn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ioam/topographica-sub002/cf"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

const difTol = 1.0e-6

func TestPiecewiseLinear(t *testing.T) {
	vals := []float32{-1, 0.2, 0.5, 0.8, 2}
	NewPiecewiseLinear(0.2, 0.8).Xfer(vals)
	assert.InDeltaSlice(t, []float32{0, 0, 0.5, 1, 1}, vals, difTol)
}

func TestBinaryThreshold(t *testing.T) {
	vals := []float32{0.1, 0.25, 0.9}
	(&BinaryThreshold{Thr: 0.25}).Xfer(vals)
	assert.Equal(t, []float32{0, 1, 1}, vals)
}

func TestDivisiveNormalize(t *testing.T) {
	vals := []float32{3, -4}
	NewDivisiveNormalizeL2().Xfer(vals)
	assert.InDeltaSlice(t, []float32{0.6, -0.8}, vals, difTol)
	l2 := math.Sqrt(float64(vals[0]*vals[0] + vals[1]*vals[1]))
	assert.InDelta(t, 1, l2, difTol)

	vals = []float32{1, -4, 2}
	(&DivisiveNormalizeLinf{Norm: 2}).Xfer(vals)
	assert.InDeltaSlice(t, []float32{0.5, -2, 1}, vals, difTol)

	zero := []float32{0, 0}
	NewDivisiveNormalizeL2().Xfer(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestHalfRectify(t *testing.T) {
	hr := NewHalfRectify()
	hr.TInit = 0.25
	hr.Gain = 2
	vals := []float32{0, 0.25, 0.5, 1}
	hr.Xfer(vals)
	assert.InDeltaSlice(t, []float32{0, 0, 0.5, 1.5}, vals, difTol)

	hr = NewHalfRectify()
	hr.RandomInit = true
	hr.Seed = 3
	hr.Xfer(make([]float32, 100))
	for i, th := range hr.T {
		if th < -0.1 || th > 0.1 {
			t.Errorf("threshold %d out of range: %g", i, th)
		}
	}
	again := NewHalfRectify()
	again.RandomInit = true
	again.Seed = 3
	again.Xfer(make([]float32, 100))
	assert.Equal(t, hr.T, again.T)
}

func TestHomeostaticResponse(t *testing.T) {
	hr := NewHomeostaticResponse()
	hr.Smoothing = 0.5
	hr.Lrate = 1
	hr.Target = 0.1
	hr.TInit = 0.1

	vals := []float32{0.5, 0.05}
	hr.Xfer(vals)
	// first call: thresholds not yet adapted
	assert.InDeltaSlice(t, []float32{0.4, 0}, vals, difTol)

	vals = []float32{0.5, 0.05}
	hr.Xfer(vals)
	// avg = 0.5 * prev + 0.5 * 0.1, t += avg - 0.1
	assert.InDeltaSlice(t, []float32{0.25, 0.05}, hr.YAvg, difTol)
	assert.InDeltaSlice(t, []float32{0.25, 0.05}, hr.T, difTol)
	assert.InDeltaSlice(t, []float32{0.25, 0}, vals, difTol)

	hr.OverridePlasticity(false)
	prev := append([]float32(nil), hr.T...)
	hr.Xfer([]float32{1, 1})
	assert.Equal(t, prev, hr.T)
	hr.RestorePlasticity()
	assert.True(t, hr.Plastic)
}

func TestSheetPlasticityReachesOutFns(t *testing.T) {
	sh := cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 4)
	hr := NewHomeostaticResponse()
	sh.OutFns = []cf.XferFn{hr}
	sh.OverridePlasticity(false)
	assert.False(t, hr.Plastic)
	sh.RestorePlasticity()
	assert.True(t, hr.Plastic)
}
