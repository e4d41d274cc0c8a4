// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patgen

import (
	"testing"

	"github.com/emer/emergent/erand"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

const difTol = float32(1.0e-6)

// 5x5 grid with 0.2 spacing, centered on the origin
func testParams() *Params {
	return &Params{
		Bounds:   sheetcoords.NewBBoxRadius(0.5),
		XDensity: 5,
		YDensity: 5,
		Rows:     5,
		Cols:     5,
	}
}

func TestConstantMask(t *testing.T) {
	p := testParams()
	p.Mask = make([]float32, 25)
	p.Mask[12] = 1
	out := NewConstant().Generate(p)
	for i, v := range out {
		want := float32(0)
		if i == 12 {
			want = 1
		}
		if v != want {
			t.Errorf("cell %d: %g != %g", i, v, want)
		}
	}
}

func TestDiskHardEdge(t *testing.T) {
	p := testParams()
	// radius 0.2 covers the center and its 4 neighbors at distance 0.2
	out := NewDisk(0.4+1e-9, 0).Generate(p)
	n := 0
	for _, v := range out {
		if v > 0 {
			n++
		}
	}
	assert.Equal(t, 5, n)
	assert.Equal(t, float32(1), out[12])
	assert.Equal(t, float32(0), out[0])
}

func TestGaussianPeak(t *testing.T) {
	p := testParams()
	out := NewGaussian(0.2).Generate(p)
	assert.Equal(t, float32(1), out[12])
	if out[11] >= out[12] || out[11] != out[13] {
		t.Errorf("gaussian not symmetric or not peaked: %v", out[10:15])
	}
	// aspect stretches along x
	wide := NewGaussian(0.2).WithSize(0.2, 3).Generate(p)
	if wide[11] <= out[11] {
		t.Errorf("aspect 3 should widen x: %g <= %g", wide[11], out[11])
	}
	if d := wide[7] - out[7]; d > difTol || d < -difTol {
		t.Errorf("aspect should not change y profile: %g vs %g", wide[7], out[7])
	}
}

func TestRectangle(t *testing.T) {
	p := testParams()
	out := NewRectangle(0.25).WithSize(0.25, 3).Generate(p)
	// height covers only the center row, width 0.75 covers 3 columns
	want := make([]float32, 25)
	want[11], want[12], want[13] = 1, 1, 1
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("rectangle mismatch (-want +got):\n%s", diff)
	}
}

func TestRandomDeterministic(t *testing.T) {
	rg := NewUniformRandom()
	p := testParams()
	p.Name = "V1-LGNOn-V1_CF (0.10000, -0.20000)"
	a := rg.Generate(p)
	b := rg.Generate(p)
	assert.Equal(t, a, b)
	for _, v := range a {
		if v < 0 || v >= 1 {
			t.Errorf("uniform value out of range: %g", v)
		}
	}

	// unnamed calls in between do not perturb named draws
	rg.Generate(testParams())
	rg.Generate(testParams())
	assert.Equal(t, a, rg.Generate(p))

	p.Name = "V1-LGNOn-V1_CF (0.10000, 0.00000)"
	assert.NotEqual(t, a, rg.Generate(p))
}

func TestRandomGaussianMean(t *testing.T) {
	rg := &Random{}
	rg.Rnd.Dist = erand.Gaussian
	rg.Rnd.Mean = 0.5
	rg.Rnd.Var = 0.01
	p := &Params{Bounds: sheetcoords.NewBBoxRadius(0.5), XDensity: 40, YDensity: 40, Rows: 40, Cols: 40, Name: "g"}
	out := rg.Generate(p)
	sum := float32(0)
	for _, v := range out {
		sum += v
	}
	avg := sum / float32(len(out))
	if avg < 0.49 || avg > 0.51 {
		t.Errorf("gaussian mean off: %g", avg)
	}
}

func TestProduct(t *testing.T) {
	p := testParams()
	p.Mask = make([]float32, 25)
	for i := range p.Mask {
		p.Mask[i] = 1
	}
	p.Mask[12] = 0
	c := &Constant{Scale: 0.5}
	out := NewProduct(c, NewGaussian(0.2)).Generate(p)
	assert.Equal(t, float32(0), out[12])
	g := NewGaussian(0.2).Generate(testParams())
	if d := out[11] - 0.5*g[11]; d > difTol || d < -difTol {
		t.Errorf("product: %g != %g", out[11], 0.5*g[11])
	}
}

func TestSeedFromLabel(t *testing.T) {
	assert.Equal(t, SeedFromLabel("a"), SeedFromLabel("a"))
	assert.NotEqual(t, SeedFromLabel("a"), SeedFromLabel("b"))
}
