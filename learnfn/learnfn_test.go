// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package learnfn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioam/topographica-sub002/cf"
	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

const difTol = 1.0e-6

// testPrjn returns a built projection from an 8x8 sheet onto a 3x3 sheet
// with 3x3 CFs masked to a 5-cell disk and all weights 1.
func testPrjn(t *testing.T, lfn cf.PrjnLearningFn) (src, recv *cf.Sheet, pj *cf.Prjn) {
	src = cf.NewSheet("Input", sheetcoords.NewBBoxRadius(0.5), 8)
	recv = cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 3)
	pj = cf.NewPrjn("Aff", src, recv)
	pj.NominalBounds = sheetcoords.NewBBoxRadius(0.125)
	pj.CFShape = patgen.NewDisk(0.3, 0)
	pj.AutosizeMask = false
	pj.LearningFn = lfn
	require.NoError(t, pj.Build())
	require.Equal(t, 5, pj.NUnits())
	return
}

func constVals(n int, v float32) []float32 {
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = v
	}
	return vals
}

func assertMasked(t *testing.T, pj *cf.Prjn) {
	t.Helper()
	for i, c := range pj.CFs {
		for wi, m := range c.Mask {
			if m == 0 && c.Weights[wi] != 0 {
				t.Errorf("CF %d: masked weight %d is %g", i, wi, c.Weights[wi])
			}
		}
	}
}

func TestBCMFixed(t *testing.T) {
	bc := NewBCMFixed()
	wts := []float32{0, 0.2}
	bc.Learn([]float32{1, 1}, 1, wts, 1)
	assert.InDeltaSlice(t, []float32{0.5, 0.7}, wts, difTol)

	wts = []float32{0.05, 1}
	bc.Learn([]float32{1, 1}, 0.25, wts, 1)
	assert.InDeltaSlice(t, []float32{0, 0.9375}, wts, difTol)

	src, recv, pj := testPrjn(t, cf.NewLearnPlugin(bc))
	pj.Lrate = 1
	src.SetActivity(constVals(src.Len(), 1))
	for range 3 {
		recv.Activate()
		recv.Learn()
	}
	assertMasked(t, pj)
}

func TestEuclideanHebbian(t *testing.T) {
	src, recv, pj := testPrjn(t, EuclideanHebbian{})
	pj.Lrate = 0.5
	src.SetActivity(constVals(src.Len(), 0.5))
	recv.Activate()
	assert.InDelta(t, 2.5, recv.Activity()[4], difTol)
	recv.Learn()
	// rate = 0.5 * 2.5, w = 1 + 1.25 * (0.5 - 1)
	for wi, w := range pj.CFs[4].Weights {
		want := 0.375 * pj.CFs[4].Mask[wi]
		assert.InDelta(t, want, w, difTol, "weight %d", wi)
	}
	assertMasked(t, pj)
}

func TestTrace(t *testing.T) {
	tr := NewTrace()
	src, recv, pj := testPrjn(t, tr)
	in := constVals(src.Len(), 0)
	out := constVals(recv.Len(), 1)
	it := pj.Iter(false)

	tr.PrjnLearn(it, in, out, 1)
	assert.InDelta(t, 0.5, tr.Traces[0], difTol)
	assert.InDelta(t, 0.9, pj.CFs[0].Weights[4], difTol)

	tr.PrjnLearn(it, in, out, 1)
	assert.InDelta(t, 0.75, tr.Traces[0], difTol)
	assert.InDelta(t, 0.765, pj.CFs[0].Weights[4], difTol)
	assertMasked(t, pj)
}

func TestPluginScaled(t *testing.T) {
	ps := NewPluginScaled(cf.Hebbian{})
	src, recv, pj := testPrjn(t, ps)
	scale := constVals(recv.Len(), 1)
	scale[4] = 2
	ps.SetScale(scale)
	ps.PrjnLearn(pj.Iter(false), constVals(src.Len(), 1), constVals(recv.Len(), 1), 1)
	assert.InDelta(t, 1.2, pj.CFs[0].Weights[4], difTol)
	assert.InDelta(t, 1.4, pj.CFs[4].Weights[4], difTol)
	assertMasked(t, pj)
}

func TestHomeoSynaptic(t *testing.T) {
	hs := NewHomeoSynaptic(cf.Hebbian{})
	src, recv, pj := testPrjn(t, hs)
	hs.PrjnLearn(pj.Iter(false), constVals(src.Len(), 1), constVals(recv.Len(), 1), 1)
	assert.InDelta(t, 0.1045, hs.Avgs[0], 1e-9)
	// normalized to 0.2, plus 0.2 from Hebbian, then divided by the homeostatic norm
	want := 0.4 / (1 + 0.01*(0.1045-0.1)/0.1)
	assert.InDelta(t, want, pj.CFs[0].Weights[4], difTol)
	assert.Equal(t, float32(0), pj.CFs[0].Weights[0])
}

func TestOutstarHebbian(t *testing.T) {
	oh := NewOutstarHebbian()
	src, recv, pj := testPrjn(t, oh)
	oh.PrjnLearn(pj.Iter(false), constVals(src.Len(), 1), constVals(recv.Len(), 1), 0)
	require.Len(t, oh.OutSums, src.Len())
	assert.InDelta(t, 1, oh.OutSums[4*8+4], difTol)
	assert.InDelta(t, 2, oh.OutSums[4*8+5], difTol)
	assert.InDelta(t, 0, oh.OutSums[5*8+5], difTol)
}
