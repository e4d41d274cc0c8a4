// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"log"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/goki/ki/ints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

// Prune removes, every Interval calls, the connections of each CF whose
// weight is at or below the given percentile of its nonzero weights.
// The first call records the initial number of connections.
type Prune struct {
	Interval   int     `def:"1000" min:"1" desc:"number of calls between pruning steps"`
	Percentile float64 `def:"10" min:"0" max:"100" desc:"percentile of each CF's weights at or below which connections are removed"`

	InitConns int `view:"-" desc:"number of connections at the first call"`
	ncall     int
}

func NewPrune() *Prune {
	return &Prune{Interval: 1000, Percentile: 10}
}

func (pr *Prune) PrjnOutput(pj *Prjn, activeOnly bool) {
	n := pr.ncall
	pr.ncall++
	if n == 0 {
		pr.InitConns = pj.NConns()
		return
	}
	if n%max(pr.Interval, 1) != 0 {
		return
	}
	m := pj.Wts
	for ri := 0; ri < m.NRecv; ri++ {
		_, wt := m.Recv(ri)
		if len(wt) == 0 {
			continue
		}
		sorted := make([]float64, len(wt))
		for k, w := range wt {
			sorted[k] = float64(w)
		}
		sort.Float64s(sorted)
		thr := stat.Quantile(pr.Percentile/100, stat.LinInterp, sorted, nil)
		for k, w := range wt {
			if float64(w) <= thr {
				wt[k] = 0
			}
		}
	}
	m.Compress()
	pj.HasNormTotal = false
	if pr.InitConns > 0 {
		log.Printf("sparse.Prjn %s has %g%% of initial connections\n", pj.Nm, 100*float64(pj.NConns())/float64(pr.InitConns))
	}
}

// SproutRetract removes and adds connections every Interval calls so that
// each CF's density converges on TargetSparsity. The number of changes
// is a piecewise linear function of the distance from the target: the
// full TurnoverRate applies at 0 and 100% density, falling to zero at the
// target, plus a constant ResidualTurnover. Above the target most of the
// changes are retractions, below it sproutings.
//
// Retraction removes the lowest weights. Sprouting blurs the existing
// weights with a Gaussian kernel of width KernelSigma (in cells), weights
// the result by uniform noise, and grows new connections at the most
// likely unconnected locations, starting at the CF's smallest weight.
type SproutRetract struct {
	Interval         int     `def:"1000" min:"1" desc:"number of calls between sprout/retract steps"`
	ResidualTurnover float64 `def:"0.01" min:"0" max:"1" desc:"constant turnover rate independent of the current sparsity"`
	TurnoverRate     float64 `def:"0.1" min:"0" max:"1" desc:"proportion of connections changed per step at 0 or 100% density"`
	TargetSparsity   float64 `def:"0.15" min:"0" max:"1" desc:"density at which sprouting and retraction balance"`
	KernelSigma      float64 `def:"1" min:"0" max:"10" desc:"standard deviation in cells of the Gaussian used to spread sprouting"`
	DiskMask         bool    `def:"true" desc:"limit sprouting to the disk inscribed in the CF"`
	Seed             uint64  `def:"42" desc:"seed of the sprouting noise"`

	InitConns int `view:"-" desc:"number of connections at the first call"`
	ncall     int
	rnd       distuv.Uniform
}

func NewSproutRetract() *SproutRetract {
	return &SproutRetract{Interval: 1000, ResidualTurnover: 0.01, TurnoverRate: 0.1, TargetSparsity: 0.15, KernelSigma: 1, DiskMask: true, Seed: 42}
}

// Counts returns the number of connections to sprout and the index into
// the ascending sorted weights below which weights are retracted, for a
// rows x cols CF with nnz connections and nmask locations inside the
// sprouting mask.
func (sr *SproutRetract) Counts(rows, cols, nnz, nmask int) (sprout, pruneIdx int) {
	maxUnits := rows * cols
	density := float64(nnz) / float64(nmask)
	delta := density - sr.TargetSparsity
	var rel float64
	if delta > 0 {
		rel = delta / (1 - sr.TargetSparsity)
	} else {
		rel = delta / sr.TargetSparsity
	}
	deltaUnits := (math.Abs(sr.TurnoverRate*rel) + sr.ResidualTurnover) * float64(nmask)
	pruneFactor := 0.5 + 0.5*rel
	pruneCount := int(deltaUnits * pruneFactor)
	pruneIdx = (maxUnits - nnz) + pruneCount
	sprout = int(deltaUnits * (1 - pruneFactor))
	return
}

func (sr *SproutRetract) PrjnOutput(pj *Prjn, activeOnly bool) {
	n := sr.ncall
	sr.ncall++
	if n == 0 {
		sr.InitConns = pj.NConns()
		sr.rnd = distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(sr.Seed, 0)}
		return
	}
	if n%max(sr.Interval, 1) != 0 {
		return
	}
	nsprout, nprune, total, masked := 0, 0, 0, 0
	bl := NewBuilder(pj.Wts.NSend, pj.Wts.NRecv)
	for ri := range pj.HasCF {
		if !pj.HasCF[ri] {
			bl.Add(nil, nil)
			continue
		}
		c, _ := pj.CF(ri)
		sl := c.Slice()
		rows, cols := sl.Shape()
		wts := c.Weights()
		disk := sr.diskMask(rows, cols)
		nmask := len(wts)
		if disk != nil {
			nmask = 0
			for _, v := range disk {
				if v != 0 {
					nmask++
				}
			}
		}
		masked += nmask
		free := make([]float32, len(wts))
		nnz := 0
		for wi, w := range wts {
			if w > 0 {
				nnz++
			} else {
				free[wi] = 1
			}
		}
		sprout, pruneIdx := sr.Counts(rows, cols, nnz, max(nmask, 1))
		sr.retract(wts, pruneIdx)
		npp := countNonZero(wts)
		nprune += nnz - npp
		sr.sprout(pj, ri, sl, wts, free, disk, sprout)
		nps := countNonZero(wts)
		nsprout += nps - npp
		total += nps
		si, wt := pj.denseToConns(ri, wts)
		bl.Add(si, wt)
	}
	pj.Wts = bl.Matrix()
	pj.HasNormTotal = false
	if masked > 0 {
		log.Printf("sparse.Prjn %s pruned by %d and sprouted %d, connection is now %g%% dense\n", pj.Nm, nprune, nsprout, 100*float64(total)/float64(masked))
	}
}

// diskMask returns the disk inscribed in a rows x cols CF, or nil.
func (sr *SproutRetract) diskMask(rows, cols int) []float32 {
	if !sr.DiskMask {
		return nil
	}
	return patgen.NewDisk(1, 0).Generate(&patgen.Params{
		Bounds:   sheetcoords.NewBBoxRadius(0.5),
		XDensity: float64(cols),
		YDensity: float64(rows),
		Rows:     rows,
		Cols:     cols,
	})
}

// retract zeros the weights below the weight at index idx of the sorted
// weights.
func (sr *SproutRetract) retract(wts []float32, idx int) {
	if len(wts) == 0 {
		return
	}
	sorted := make([]float64, len(wts))
	for i, w := range wts {
		sorted[i] = float64(w)
	}
	sort.Float64s(sorted)
	thr := float32(sorted[ints.MaxInt(ints.MinInt(idx, len(sorted)-1), 0)])
	for i, w := range wts {
		if w < thr {
			wts[i] = 0
		}
	}
}

// sprout grows up to count connections at the free locations of wts
// with the highest blurred, noisy weight.
func (sr *SproutRetract) sprout(pj *Prjn, ri int, sl sheetcoords.Slice, wts, free, disk []float32, count int) {
	if count <= 0 {
		return
	}
	initWt := float32(math.MaxFloat32)
	for _, w := range wts {
		if w != 0 && w < initWt {
			initWt = w
		}
	}
	if initWt == math.MaxFloat32 {
		return
	}
	rows, cols := sl.Shape()
	blur := gaussianBlur(wts, rows, cols, sr.KernelSigma)
	bmin, bmax := floats.Min(blur), floats.Max(blur)
	scols := pj.Send.Coords.Cols
	prob := make([]float64, len(blur))
	for i, b := range blur {
		if bmax != 0 {
			b = (b - bmin) / bmax
		}
		p := b * sr.rnd.Rand() * float64(free[i])
		if disk != nil {
			p *= float64(disk[i])
		}
		r, c := sl.R1+i/cols, sl.C1+i%cols
		if !pj.Allowed(r*scols+c, ri) {
			p = 0
		}
		prob[i] = p
	}
	idx := make([]int, len(prob))
	floats.Argsort(prob, idx)
	for k := len(idx) - 1; k >= 0 && count > 0; k-- {
		if prob[k] <= 0 {
			break
		}
		wts[idx[k]] = initWt
		count--
	}
}

// gaussianBlur convolves a rows x cols matrix with a separable Gaussian
// of standard deviation sigma, truncated at 4 sigma, reflecting at the
// edges.
func gaussianBlur(vals []float32, rows, cols int, sigma float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	if sigma <= 0 {
		return out
	}
	rad := int(4*sigma + 0.5)
	kern := make([]float64, 2*rad+1)
	for k := range kern {
		d := float64(k - rad)
		kern[k] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kern), kern)
	tmp := make([]float64, len(out))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s := 0.0
			for k, kv := range kern {
				s += kv * out[r*cols+reflect(c+k-rad, cols)]
			}
			tmp[r*cols+c] = s
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s := 0.0
			for k, kv := range kern {
				s += kv * tmp[reflect(r+k-rad, rows)*cols+c]
			}
			out[r*cols+c] = s
		}
	}
	return out
}

// reflect maps i into [0, n) by reflecting about the edges, repeating
// the edge value.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

func countNonZero(vals []float32) int {
	n := 0
	for _, v := range vals {
		if v != 0 {
			n++
		}
	}
	return n
}
