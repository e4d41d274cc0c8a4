// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"bytes"
	"errors"
	"testing"

	"github.com/emer/emergent/prjn"
	"github.com/emer/emergent/weights"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioam/topographica-sub002/cf"
	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

const difTol = 1.0e-6

var diskMask5 = []float32{0, 1, 0, 1, 1, 1, 0, 1, 0}

// testSheets returns an 8x8 source sheet and a 3x3 receiving sheet over
// the same area.
func testSheets() (src, recv *cf.Sheet) {
	src = cf.NewSheet("Input", sheetcoords.NewBBoxRadius(0.5), 8)
	recv = cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 3)
	return
}

// testPrjn returns an unbuilt sparse projection with 3x3 CFs masked to a
// 5-cell disk.
func testPrjn(name string, src, recv *cf.Sheet) *Prjn {
	pj := NewPrjn(name, src, recv)
	pj.NominalBounds = sheetcoords.NewBBoxRadius(0.125)
	pj.CFShape = patgen.NewDisk(0.3, 0)
	pj.AutosizeMask = false
	return pj
}

func fillSeq(vals []float32) {
	for i := range vals {
		vals[i] = float32(i%5) * 0.25
	}
}

func TestMatrixTriplets(t *testing.T) {
	m := NewMatrix(4, 3)
	err := m.SetTriplets(
		[]int32{3, 0, 1, 0, 2, 1},
		[]int32{2, 0, 0, 0, 1, 2},
		[]float32{0.5, 1, 0, 2, 0.25, 0.75})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 4}, m.Ptr)
	assert.Equal(t, []int32{0, 2, 1, 3}, m.Si)
	assert.Equal(t, []float32{3, 0.25, 0.75, 0.5}, m.Wt)

	si, ri, wt := m.Triplets()
	assert.Equal(t, []int32{0, 2, 1, 3}, si)
	assert.Equal(t, []int32{0, 1, 2, 2}, ri)
	assert.Equal(t, m.Wt, wt)

	m.SetRecv(1, []int32{0, 1, 3}, []float32{1, 0, 2})
	assert.Equal(t, []int32{0, 1, 3, 5}, m.Ptr)
	si1, wt1 := m.Recv(1)
	assert.Equal(t, []int32{0, 3}, si1)
	assert.Equal(t, []float32{1, 2}, wt1)

	m.Wt[0] = 0
	m.Compress()
	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, []int32{0, 0, 2, 4}, m.Ptr)

	assert.Error(t, m.SetTriplets([]int32{4}, []int32{0}, []float32{1}))
	assert.Error(t, m.SetTriplets([]int32{0}, []int32{0, 1}, []float32{1}))
}

func TestBuild(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.LearnOutFns = []PrjnOutputFn{OutIdentity{}}
	require.NoError(t, pj.Build())

	assert.Equal(t, 5, pj.NUnits())
	assert.Equal(t, 45, pj.NConns())
	assert.Equal(t, 45*12, pj.NBytes())
	for ri := range pj.HasCF {
		c, ok := pj.CF(ri)
		require.True(t, ok, "CF %d", ri)
		if diff := cmp.Diff(diskMask5, c.Weights()); diff != "" {
			t.Errorf("CF %d weights (-want +got):\n%s", ri, diff)
		}
		if diff := cmp.Diff(diskMask5, c.Mask()); diff != "" {
			t.Errorf("CF %d mask (-want +got):\n%s", ri, diff)
		}
	}
	c, _ := pj.CF(8)
	assert.Equal(t, [4]int{5, 8, 5, 8}, c.InputSliceTuple())
	assert.Equal(t, "SparsePrjn ", pj.Class())
}

func TestDefaultNormalization(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	require.NoError(t, pj.Build())
	for ri := range pj.HasCF {
		c, _ := pj.CF(ri)
		assert.InDelta(t, 1, cf.SumAbs(c.Weights()), difTol, "CF %d", ri)
	}
	assert.False(t, pj.HasNormTotal)
}

func TestCFSetWeights(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.LearnOutFns = []PrjnOutputFn{OutIdentity{}}
	require.NoError(t, pj.Build())

	c, _ := pj.CF(4)
	wts := c.Weights()
	wts[1] = 0
	wts[4] = 3
	c.SetWeights(wts)
	assert.Equal(t, 4, c.NConns())
	assert.Equal(t, 44, pj.NConns())
	assert.Equal(t, []float32{0, 0, 0, 1, 3, 1, 0, 1, 0}, c.Weights())
	assert.InDelta(t, 6, c.NormTotal(), difTol)

	c.SetNormTotal(10)
	assert.True(t, pj.HasNormTotal)
	assert.InDelta(t, 10, c.NormTotal(), difTol)
	other, _ := pj.CF(0)
	assert.InDelta(t, 5, other.NormTotal(), difTol)

	wts[4] = -2
	c.SetWeights(wts)
	assert.True(t, pj.HasNormTotal)
	assert.InDelta(t, 5, c.NormTotal(), difTol, "stale total replaced by new weights")
	assert.InDelta(t, 5, other.NormTotal(), difTol)
	other.SetNormTotal(7)
	assert.InDelta(t, 7, other.NormTotal(), difTol)
	assert.InDelta(t, 5, c.NormTotal(), difTol)
}

// denseAndSparse returns equivalent dense and sparse projections onto
// separate, identically named receiving sheets.
func denseAndSparse(t *testing.T) (src, drecv, srecv *cf.Sheet, dp *cf.Prjn, sp *Prjn) {
	src = cf.NewSheet("Input", sheetcoords.NewBBoxRadius(0.5), 8)
	drecv = cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 3)
	srecv = cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 3)

	dp = cf.NewPrjn("Aff", src, drecv)
	dp.NominalBounds = sheetcoords.NewBBoxRadius(0.125)
	dp.CFShape = patgen.NewDisk(0.3, 0)
	dp.AutosizeMask = false
	dp.WtsGen = patgen.NewUniformRandom()
	dp.LearnOutFns = []cf.PrjnOutputFn{cf.NewOutPlugin(cf.NewDivisiveNormalizeL1())}
	dp.Lrate = 1

	sp = testPrjn("Aff", src, srecv)
	sp.WtsGen = patgen.NewUniformRandom()
	sp.Lrate = 1

	require.NoError(t, dp.Build())
	require.NoError(t, sp.Build())
	return
}

func TestMatchesDense(t *testing.T) {
	src, drecv, srecv, dp, sp := denseAndSparse(t)
	in := make([]float32, src.Len())
	fillSeq(in)
	src.SetActivity(in)

	for step := range 3 {
		drecv.Activate()
		srecv.Activate()
		assert.InDeltaSlice(t, drecv.Activity(), srecv.Activity(), difTol, "step %d activity", step)
		drecv.Learn()
		srecv.Learn()
		for ri, dcf := range dp.CFs {
			scf, _ := sp.CF(ri)
			assert.InDeltaSlice(t, dcf.Weights, scf.Weights(), difTol, "step %d CF %d", step, ri)
		}
	}
	assert.Equal(t, dp.NConns(), sp.NConns())
}

func TestPluginsMatchSparseFns(t *testing.T) {
	src, _, srecv, _, sp := denseAndSparse(t)
	in := make([]float32, src.Len())
	fillSeq(in)
	src.SetActivity(in)

	srecv.Activate()
	want := append([]float32(nil), sp.Act...)
	sp.ResponseFn = &RespPlugin{Fn: cf.DotProduct{}}
	srecv.Activate()
	assert.InDeltaSlice(t, want, sp.Act, difTol)

	tr := sp.ExportTriplets()
	sp.LearnWts()
	sp.LearnOutFns[0].PrjnOutput(sp, false)
	_, _, wantWts := sp.Wts.Triplets()

	require.NoError(t, sp.ImportTriplets(tr))
	sp.LearningFn = &LearnPlugin{Fn: cf.Hebbian{}}
	sp.LearnOutFns = []PrjnOutputFn{&OutPlugin{Fn: cf.NewDivisiveNormalizeL1()}}
	sp.LearnWts()
	sp.ApplyLearnOutFns(false)
	_, _, gotWts := sp.Wts.Triplets()
	assert.InDeltaSlice(t, wantWts, gotWts, difTol)
}

func TestJointNormWithDense(t *testing.T) {
	src, recv := testSheets()
	dp := cf.NewPrjn("Dense", src, recv)
	dp.NominalBounds = sheetcoords.NewBBoxRadius(0.125)
	dp.CFShape = patgen.NewDisk(0.3, 0)
	dp.AutosizeMask = false
	dp.LearnOutFns = []cf.PrjnOutputFn{cf.NewOutPlugin(cf.NewDivisiveNormalizeL1())}
	dp.NormGroup = "Afferent"
	sp := testPrjn("Sparse", src, recv)
	sp.NormGroup = "Afferent"
	require.NoError(t, recv.Build())

	recv.Activate()
	recv.Learn()
	for ri, dcf := range dp.CFs {
		scf, _ := sp.CF(ri)
		assert.InDelta(t, 0.5, cf.SumAbs(dcf.Weights), difTol, "dense CF %d", ri)
		assert.InDelta(t, 0.5, cf.SumAbs(scf.Weights()), difTol, "sparse CF %d", ri)
	}
}

func TestDivNormL1TinyTotal(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.LearnOutFns = []PrjnOutputFn{OutIdentity{}}
	require.NoError(t, pj.Build())

	c, _ := pj.CF(4)
	wts := c.Weights()
	for wi := range wts {
		wts[wi] *= 1e-15
	}
	c.SetWeights(wts)
	want := c.Weights()
	NewDivNormL1().PrjnOutput(pj, false)
	assert.Equal(t, want, c.Weights())
	other, _ := pj.CF(0)
	assert.InDelta(t, 1, cf.SumAbs(other.Weights()), difTol)
}

func TestThreadsBitIdentical(t *testing.T) {
	run := func(nthr int) [][]float32 {
		src, recv := testSheets()
		recv.NThreads = nthr
		dp := cf.NewPrjn("Dense", src, recv)
		dp.NominalBounds = sheetcoords.NewBBoxRadius(0.125)
		dp.CFShape = patgen.NewDisk(0.3, 0)
		dp.AutosizeMask = false
		dp.WtsGen = patgen.NewUniformRandom()
		dp.LearnOutFns = []cf.PrjnOutputFn{cf.NewOutPlugin(cf.NewDivisiveNormalizeL1())}
		dp.Lrate = 0.4
		dp.NormGroup = "Afferent"
		sp := testPrjn("Sparse", src, recv)
		sp.WtsGen = patgen.NewUniformRandom()
		sp.Lrate = 0.4
		sp.NormGroup = "Afferent"
		solo := testPrjn("Solo", src, recv)
		solo.WtsGen = patgen.NewUniformRandom()
		solo.Lrate = 0.7
		require.NoError(t, recv.Build())

		in := make([]float32, src.Len())
		for step := range 4 {
			for i := range in {
				in[i] = float32((i*3+step)%11) / 11
			}
			src.SetActivity(in)
			recv.Activate()
			recv.Learn()
		}
		res := [][]float32{recv.Activity()}
		for _, c := range dp.CFs {
			res = append(res, c.Weights)
		}
		for _, pj := range []*Prjn{sp, solo} {
			_, _, wt := pj.Wts.Triplets()
			res = append(res, wt)
		}
		return res
	}
	want := run(1)
	for _, nthr := range []int{2, 4} {
		if diff := cmp.Diff(want, run(nthr)); diff != "" {
			t.Errorf("NThreads %d differs from serial learning (-serial +parallel):\n%s", nthr, diff)
		}
	}
}

func TestPattern(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pat := prjn.NewUnifRnd()
	pat.PCon = 0.5
	pj.Pattern = pat
	pj.LearnOutFns = []PrjnOutputFn{OutIdentity{}}
	require.NoError(t, pj.Build())

	assert.Less(t, pj.NConns(), 45)
	for ri := 0; ri < pj.Wts.NRecv; ri++ {
		si, _ := pj.Wts.Recv(ri)
		for _, s := range si {
			assert.True(t, pj.Allowed(int(s), ri), "connection %d -> %d", s, ri)
		}
	}
}

func TestPrune(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.WtsGen = patgen.NewUniformRandom()
	pr := NewPrune()
	pr.Interval = 2
	pj.LearnOutFns = []PrjnOutputFn{pr}
	require.NoError(t, pj.Build())
	assert.Equal(t, 45, pr.InitConns)

	pj.ApplyLearnOutFns(false)
	assert.Equal(t, 45, pj.NConns(), "pruned before the interval")
	pj.ApplyLearnOutFns(false)
	assert.Equal(t, 36, pj.NConns())
	for ri := range pj.HasCF {
		c, _ := pj.CF(ri)
		assert.Equal(t, 4, c.NConns(), "CF %d", ri)
	}
}

func TestSproutRetractCounts(t *testing.T) {
	sr := NewSproutRetract()
	sprout, pruneIdx := sr.Counts(10, 10, 100, 100)
	assert.Equal(t, 0, sprout)
	assert.Equal(t, 11, pruneIdx)

	sprout, pruneIdx = sr.Counts(10, 10, 5, 100)
	assert.Equal(t, 6, sprout)
	assert.Equal(t, 96, pruneIdx)
}

func TestSproutRetract(t *testing.T) {
	src := cf.NewSheet("Input", sheetcoords.NewBBoxRadius(0.5), 8)
	recv := cf.NewSheet("V1", sheetcoords.NewBBoxRadius(0.5), 1)
	pj := NewPrjn("Aff", src, recv)
	pj.NominalBounds = sheetcoords.NewBBoxRadius(0.4375)
	pj.WtsGen = patgen.NewUniformRandom()
	sr := NewSproutRetract()
	sr.Interval = 1
	sr.DiskMask = false
	pj.LearnOutFns = []PrjnOutputFn{sr}
	require.NoError(t, pj.Build())

	c, _ := pj.CF(0)
	area := c.Slice().Area()
	require.Equal(t, area, sr.InitConns)
	prev := pj.NConns()
	for range 20 {
		pj.ApplyLearnOutFns(false)
		c, _ = pj.CF(0)
		for wi, w := range c.Weights() {
			if w < 0 {
				t.Errorf("negative weight %d: %g", wi, w)
			}
		}
	}
	density := float64(pj.NConns()) / float64(area)
	if density >= 0.75 || density <= 0.15 {
		t.Errorf("density %g did not move toward the target from 1 (%d of %d)", density, pj.NConns(), prev)
	}
}

func TestTriplets(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.WtsGen = patgen.NewUniformRandom()
	require.NoError(t, pj.Build())
	tr := pj.ExportTriplets()
	assert.Equal(t, []int{8, 8}, tr.SendShape)
	assert.Equal(t, []int{3, 3}, tr.RecvShape)
	assert.Len(t, tr.Wt, 45)

	_, recv2 := testSheets()
	pj2 := testPrjn("Aff2", src, recv2)
	require.NoError(t, pj2.Build())
	require.NoError(t, pj2.ImportTriplets(tr))
	if diff := cmp.Diff(pj.Wts, pj2.Wts); diff != "" {
		t.Errorf("imported weights (-want +got):\n%s", diff)
	}

	bad := *tr
	bad.RecvShape = []int{2, 2}
	err := pj2.ImportTriplets(&bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cf.ErrShape))
}

func TestWtsJSON(t *testing.T) {
	src, recv := testSheets()
	pj := testPrjn("Aff", src, recv)
	pj.WtsGen = patgen.NewUniformRandom()
	pj.Strength = 2.5
	require.NoError(t, pj.Build())

	var b bytes.Buffer
	pj.WriteWtsJSON(&b, 0)

	_, recv2 := testSheets()
	pj2 := testPrjn("Aff", src, recv2)
	require.NoError(t, pj2.Build())
	require.NoError(t, pj2.ReadWtsJSON(&b))
	assert.Equal(t, float32(2.5), pj2.Strength)
	assert.Equal(t, pj.Wts.Si, pj2.Wts.Si)
	assert.InDeltaSlice(t, pj.Wts.Wt, pj2.Wts.Wt, 1e-3)

	err := pj2.SetWts(&weights.Prjn{Rs: []weights.Recv{{Ri: 0, Si: []int{63}, Wt: []float32{1}}}})
	assert.Error(t, err)
}
