// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patgen

import (
	"math"

	"github.com/goki/mat32"
)

// Constant is a uniform pattern.
type Constant struct {
	Scale float32 `def:"1" desc:"value of every cell"`
}

func NewConstant() *Constant {
	return &Constant{Scale: 1}
}

func (cg *Constant) Generate(p *Params) []float32 {
	return p.Eval(func(px, py float64) float32 { return cg.Scale })
}

// Gaussian is a two-dimensional Gaussian bump.
type Gaussian struct {
	Size   float64 `def:"0.155" desc:"twice the standard deviation along y"`
	Aspect float64 `def:"1" desc:"ratio of the x standard deviation to the y one"`
	Orient float64 `desc:"rotation in radians"`
	Scale  float32 `def:"1" desc:"peak value"`
}

func NewGaussian(size float64) *Gaussian {
	return &Gaussian{Size: size, Aspect: 1, Scale: 1}
}

func (gg *Gaussian) WithSize(size, aspect float64) Generator {
	ng := *gg
	ng.Size, ng.Aspect = size, aspect
	return &ng
}

func (gg *Gaussian) Generate(p *Params) []float32 {
	ysig := gg.Size / 2
	xsig := gg.Aspect * ysig
	return p.Eval(func(px, py float64) float32 {
		px, py = rotate(px, py, gg.Orient)
		if xsig == 0 || ysig == 0 {
			if px == 0 && py == 0 {
				return gg.Scale
			}
			return 0
		}
		return gg.Scale * float32(math.Exp(-(px*px/(2*xsig*xsig) + py*py/(2*ysig*ysig))))
	})
}

// Disk is a filled circle of diameter Size with a Gaussian fall-off of
// width Smoothing beyond the edge.
type Disk struct {
	Size      float64 `def:"0.5" desc:"diameter"`
	Aspect    float64 `def:"1" desc:"ratio of width to height"`
	Smoothing float64 `def:"0.1" desc:"width of the Gaussian fall-off outside the disk -- 0 gives a hard edge"`
	Scale     float32 `def:"1" desc:"value inside the disk"`
}

func NewDisk(size, smoothing float64) *Disk {
	return &Disk{Size: size, Aspect: 1, Smoothing: smoothing, Scale: 1}
}

func (dg *Disk) WithSize(size, aspect float64) Generator {
	nd := *dg
	nd.Size, nd.Aspect = size, aspect
	return &nd
}

func (dg *Disk) Generate(p *Params) []float32 {
	rad := dg.Size / 2
	sigsq := dg.Smoothing * dg.Smoothing
	return p.Eval(func(px, py float64) float32 {
		if dg.Aspect != 0 {
			px /= dg.Aspect
		}
		out := math.Sqrt(px*px+py*py) - rad
		if out <= 0 {
			return dg.Scale
		}
		if sigsq == 0 {
			return 0
		}
		return dg.Scale * float32(math.Exp(-out*out/(2*sigsq)))
	})
}

// Rectangle is a filled rectangle of height Size and width Size * Aspect.
type Rectangle struct {
	Size   float64 `def:"0.5" desc:"height"`
	Aspect float64 `def:"1" desc:"ratio of width to height"`
	Orient float64 `desc:"rotation in radians"`
	Scale  float32 `def:"1" desc:"value inside the rectangle"`
}

func NewRectangle(size float64) *Rectangle {
	return &Rectangle{Size: size, Aspect: 1, Scale: 1}
}

func (rg *Rectangle) WithSize(size, aspect float64) Generator {
	nr := *rg
	nr.Size, nr.Aspect = size, aspect
	return &nr
}

func (rg *Rectangle) Generate(p *Params) []float32 {
	hh := rg.Size / 2
	hw := rg.Size * rg.Aspect / 2
	return p.Eval(func(px, py float64) float32 {
		px, py = rotate(px, py, rg.Orient)
		if math.Abs(px) <= hw && math.Abs(py) <= hh {
			return rg.Scale
		}
		return 0
	})
}

// Product multiplies the patterns of several generators together, e.g.,
// a Gaussian envelope over random weights.
type Product struct {
	Gens []Generator `desc:"generators whose outputs are multiplied"`
}

func NewProduct(gens ...Generator) *Product {
	return &Product{Gens: gens}
}

func (pg *Product) Generate(p *Params) []float32 {
	up := p.Unmasked()
	out := make([]float32, p.Len())
	for i := range out {
		out[i] = 1
	}
	for _, g := range pg.Gens {
		v := g.Generate(up)
		for i := range out {
			out[i] *= v[i]
		}
	}
	p.ApplyMask(out)
	return out
}

// Clip restricts the output of a generator to [Min, Max].
type Clip struct {
	Gen Generator `desc:"generator to clip"`
	Min float32   `desc:"lower bound"`
	Max float32   `def:"1" desc:"upper bound"`
}

func (cg *Clip) Generate(p *Params) []float32 {
	out := cg.Gen.Generate(p)
	for i, v := range out {
		out[i] = mat32.Clamp(v, cg.Min, cg.Max)
	}
	return out
}
