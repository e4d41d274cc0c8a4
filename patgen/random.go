// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patgen

import (
	"math"
	"math/rand/v2"

	"github.com/emer/emergent/erand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Random draws every cell independently from the distribution described by
// Rnd. Uniform draws lie in Mean +/- Var; Gaussian uses Var as the standard
// deviation; Gamma and Beta use Var and Par as their two shape parameters;
// Binomial uses Par trials of probability Var; Poisson uses Var as the rate;
// Mean returns Mean.
type Random struct {
	Rnd  erand.RndParams `view:"inline" desc:"distribution of the values"`
	Seed uint64          `desc:"mixed into every label-derived seed and seeds the shared stream used for unnamed calls"`

	src *rand.PCG
}

// NewUniformRandom returns a generator of values uniform in [0, 1).
func NewUniformRandom() *Random {
	rg := &Random{}
	rg.Rnd.Dist = erand.Uniform
	rg.Rnd.Mean = 0.5
	rg.Rnd.Var = 0.5
	return rg
}

// source returns the random source for p: derived from p.Name when set,
// otherwise the generator's own stream.
func (rg *Random) source(p *Params) rand.Source {
	if p.Name != "" {
		return rand.NewPCG(SeedFromLabel(p.Name), rg.Seed)
	}
	if rg.src == nil {
		rg.src = rand.NewPCG(rg.Seed, 0)
	}
	return rg.src
}

// Sampler returns a draw function for the configured distribution.
func (rg *Random) Sampler(src rand.Source) func() float64 {
	rp := &rg.Rnd
	switch rp.Dist {
	case erand.Gaussian:
		return distuv.Normal{Mu: rp.Mean, Sigma: rp.Var, Src: src}.Rand
	case erand.Gamma:
		g := distuv.Gamma{Alpha: rp.Var, Beta: rp.Par, Src: src}
		return func() float64 { return rp.Mean + g.Rand() }
	case erand.Beta:
		b := distuv.Beta{Alpha: rp.Var, Beta: rp.Par, Src: src}
		return func() float64 { return rp.Mean + b.Rand() }
	case erand.Binomial:
		b := distuv.Binomial{N: rp.Par, P: rp.Var, Src: src}
		return func() float64 { return rp.Mean + b.Rand() }
	case erand.Poisson:
		pd := distuv.Poisson{Lambda: rp.Var, Src: src}
		return func() float64 { return rp.Mean + pd.Rand() }
	case erand.Mean:
		return func() float64 { return rp.Mean }
	default:
		u := distuv.Uniform{Min: rp.Mean - rp.Var, Max: rp.Mean + rp.Var, Src: src}
		if u.Min == u.Max {
			return func() float64 { return rp.Mean }
		}
		return u.Rand
	}
}

func (rg *Random) Generate(p *Params) []float32 {
	draw := rg.Sampler(rg.source(p))
	out := make([]float32, p.Len())
	for i := range out {
		v := draw()
		if math.IsNaN(v) {
			v = 0
		}
		out[i] = float32(v)
	}
	p.ApplyMask(out)
	return out
}
