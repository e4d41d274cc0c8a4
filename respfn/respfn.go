// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package respfn provides projection response functions beyond the dot
// product in package cf.
package respfn

import (
	"math"

	"github.com/ioam/topographica-sub002/cf"
)

// EuclideanDistance responds most strongly to the unit whose weights are
// closest to its input: act = (maxDist - dist) * strength, where maxDist
// is the largest distance over the processed units.
type EuclideanDistance struct{}

func (EuclideanDistance) PrjnResponse(it *cf.Iter, in, act []float32, strength float32) {
	idxs := it.Indexes()
	dists := make([]float64, len(idxs))
	maxd := 0.0
	for k, i := range idxs {
		c := it.CFs[i]
		d := 0.0
		for wi, x := range c.InputMatrix(in, it.SrcCols) {
			df := float64(x - c.Weights[wi])
			d += df * df
		}
		dists[k] = math.Sqrt(d)
		maxd = max(maxd, dists[k])
	}
	for k, i := range idxs {
		act[i] = float32(maxd-dists[k]) * strength
	}
}

// ActivityBased scales a single-CF response by a function of the average
// input to the CF, relative to the largest input anywhere, so a
// connection can excite or inhibit depending on the input level. The
// factor is the generalized logistic (Richards) curve
//
//	L + U / (1 + exp(-R * (x - 2M)))^(1/B)
type ActivityBased struct {
	Fn cf.ResponseFn `desc:"response applied to each CF"`
	L  float64       `def:"-1.3" desc:"value at infinity"`
	U  float64       `def:"1.2" desc:"(U + L) is the value at minus infinity"`
	M  float64       `def:"0.25" desc:"time of maximum growth"`
	R  float64       `def:"-200" desc:"growth rate"`
	B  float64       `def:"2" desc:"position of maximum growth"`
}

func NewActivityBased() *ActivityBased {
	ab := &ActivityBased{}
	ab.Defaults()
	return ab
}

func (ab *ActivityBased) Defaults() {
	ab.Fn = cf.DotProduct{}
	ab.L = -1.3
	ab.U = 1.2
	ab.M = 0.25
	ab.R = -200
	ab.B = 2
}

// Strength returns the factor for relative average input x.
func (ab *ActivityBased) Strength(x float64) float64 {
	return ab.L + ab.U/math.Pow(1+math.Exp(-ab.R*(x-2*ab.M)), 1/ab.B)
}

func (ab *ActivityBased) PrjnResponse(it *cf.Iter, in, act []float32, strength float32) {
	norm := float32(0)
	for _, v := range in {
		norm = max(norm, v)
	}
	for i, c := range it.All() {
		x := c.InputMatrix(in, it.SrcCols)
		x0 := 0.0
		if norm != 0 && len(x) > 0 {
			sum := 0.0
			for _, v := range x {
				sum += float64(v)
			}
			x0 = sum / float64(len(x)) / float64(norm)
		}
		act[i] = ab.Fn.Response(x, c.Weights) * float32(ab.Strength(x0))
	}
	for i := range act {
		act[i] *= strength
	}
}

var (
	_ cf.PrjnResponseFn = EuclideanDistance{}
	_ cf.PrjnResponseFn = (*ActivityBased)(nil)
)
