// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/params"
	"github.com/emer/emergent/timer"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"github.com/goki/kigen/ordmap"

	"github.com/ioam/topographica-sub002/sheetcoords"
)

// Sheet is a two-dimensional array of units with continuous coordinates,
// receiving any number of projections.
type Sheet struct {
	Nm                     string              `desc:"name of the sheet -- must be unique within a model"`
	Cls                    string              `desc:"space-separated class names, for params styling"`
	Coords                 *sheetcoords.Coords `desc:"coordinate system, which determines the shape"`
	Act                    *etensor.Float32    `desc:"activity of each unit, shape [rows, cols]"`
	Mask                   []float32           `desc:"sheet mask: units with a zero entry are not processed"`
	AllowSkipNonResponding bool                `desc:"allow projections to skip units with zero activity when they request the active units mask"`
	NeighMask              NeighborhoodMask    `view:"inline" desc:"optional mask that limits processing to the neighborhood of active units"`
	OutFns                 []XferFn            `view:"-" desc:"applied to the summed activity after each activation"`
	Plastic                bool                `def:"true" desc:"whether Learn changes anything"`
	NThreads               int                 `def:"1" desc:"number of goroutines used for per-unit loops -- results do not depend on it"`
	Prjns                  []Projection        `view:"-" desc:"incoming projections, in activation order"`
	ActStats               minmax.AvgMax32     `inactive:"+" desc:"average and max activity after the last activation"`
	FunTimes               map[string]*timer.Time `view:"-" desc:"timers for each major function"`

	plastStack []bool
}

// NewSheet returns a sheet with the given nominal bounds and density.
func NewSheet(name string, bounds sheetcoords.BBox, density float64) *Sheet {
	sh := &Sheet{Nm: name}
	sh.Defaults()
	sh.SetCoords(sheetcoords.NewCoords(bounds, density, 0))
	return sh
}

func (sh *Sheet) Defaults() {
	sh.Plastic = true
	sh.NThreads = 1
	sh.NeighMask.Defaults()
	sh.FunTimes = make(map[string]*timer.Time)
}

// SetCoords sets the coordinate system and allocates the activity and mask.
func (sh *Sheet) SetCoords(cs *sheetcoords.Coords) {
	sh.Coords = cs
	sh.Act = etensor.NewFloat32([]int{cs.Rows, cs.Cols}, nil, []string{"Row", "Col"})
	sh.Mask = make([]float32, cs.Len())
	sh.ResetMask()
}

// ResetMask marks every unit as valid.
func (sh *Sheet) ResetMask() {
	for i := range sh.Mask {
		sh.Mask[i] = 1
	}
}

func (sh *Sheet) Name() string     { return sh.Nm }
func (sh *Sheet) TypeName() string { return "Sheet" }
func (sh *Sheet) Class() string    { return sh.TypeName() + " " + sh.Cls }

// Label satisfies the Labeler interface for the name of the sheet.
func (sh *Sheet) Label() string { return sh.Nm }

// Shape returns rows, cols.
func (sh *Sheet) Shape() (rows, cols int) { return sh.Coords.Shape() }

// Len returns the number of units.
func (sh *Sheet) Len() int { return sh.Coords.Len() }

// Activity returns the row-major activity values.
func (sh *Sheet) Activity() []float32 { return sh.Act.Values }

// SetActivity copies vals into the activity, e.g., to present an input
// pattern on a sheet with no incoming projections.
func (sh *Sheet) SetActivity(vals []float32) {
	if len(vals) != len(sh.Act.Values) {
		panic(fmt.Sprintf("cf.Sheet %s SetActivity: %d values for %d units", sh.Nm, len(vals), len(sh.Act.Values)))
	}
	copy(sh.Act.Values, vals)
	sh.updtActStats()
}

// AddPrjn adds an incoming projection.
func (sh *Sheet) AddPrjn(pj Projection) {
	sh.Prjns = append(sh.Prjns, pj)
}

// Groups returns the incoming projections grouped by their joint
// normalization key, in order of first appearance. The projections that
// are normalized on their own are under the empty key.
func (sh *Sheet) Groups() *ordmap.Map[string, *JointNorm] {
	gps := ordmap.New[string, *JointNorm]()
	for _, pj := range sh.Prjns {
		key := pj.JointNormGroup()
		jn, ok := gps.ValByKey(key)
		if !ok {
			jn = &JointNorm{Name: key, Recv: sh}
			gps.Add(key, jn)
		}
		jn.Prjns = append(jn.Prjns, pj)
	}
	return gps
}

// PrjnByName returns the incoming projection with the given name.
func (sh *Sheet) PrjnByName(name string) (Projection, error) {
	for _, pj := range sh.Prjns {
		if pj.Name() == name {
			return pj, nil
		}
	}
	return nil, fmt.Errorf("cf.Sheet %s: projection named %q not found", sh.Nm, name)
}

// JointNorm returns the joint normalization group with the given key.
func (sh *Sheet) JointNorm(key string) (*JointNorm, bool) {
	return sh.Groups().ValByKey(key)
}

// Build builds all incoming projections.
func (sh *Sheet) Build() error {
	var errs []string
	for _, pj := range sh.Prjns {
		if err := pj.Build(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cf.Sheet %s Build:\n%s", sh.Nm, strings.Join(errs, "\n"))
	}
	return nil
}

// Activate activates every incoming projection from the current activity
// of its source, sums the projection activities into the sheet activity,
// and applies the sheet's output functions.
func (sh *Sheet) Activate() {
	sh.FunTimerStart("Activate")
	for _, pj := range sh.Prjns {
		pj.Activate(pj.SendSheet().Activity())
	}
	act := sh.Act.Values
	clear(act)
	for _, pj := range sh.Prjns {
		for i, v := range pj.Activity() {
			act[i] += v
		}
	}
	for _, of := range sh.OutFns {
		of.Xfer(act)
	}
	if sh.NeighMask.On {
		sh.NeighMask.Calc(sh)
	}
	sh.updtActStats()
	sh.FunTimerStop("Activate")
}

func (sh *Sheet) updtActStats() {
	sh.ActStats.Init()
	for i, v := range sh.Act.Values {
		sh.ActStats.UpdateVal(v, int32(i))
	}
	sh.ActStats.CalcAvg()
}

// Learn, if the sheet is plastic, calls LearnWts on every plastic incoming
// projection and then applies the learn output functions, per joint
// normalization group: projections in a named group are normalized
// jointly; the others individually.
func (sh *Sheet) Learn() {
	if !sh.Plastic || len(sh.Prjns) == 0 {
		return
	}
	sh.FunTimerStart("Learn")
	for _, pj := range sh.Prjns {
		if pj.IsPlastic() {
			pj.LearnWts()
		}
	}
	sh.FunTimerStop("Learn")
	sh.FunTimerStart("LearnOutFns")
	for _, kv := range sh.Groups().Order {
		jn := kv.Val
		if kv.Key == "" {
			for _, pj := range jn.Prjns {
				if pj.IsPlastic() {
					pj.ApplyLearnOutFns(true)
				}
			}
			continue
		}
		jn.Apply(true)
	}
	sh.FunTimerStop("LearnOutFns")
}

// OverridePlasticity sets the plasticity of the sheet and of all its
// incoming projections, saving the current state for RestorePlasticity.
func (sh *Sheet) OverridePlasticity(plastic bool) {
	sh.plastStack = append(sh.plastStack, sh.Plastic)
	sh.Plastic = plastic
	for _, pj := range sh.Prjns {
		pj.OverridePlasticity(plastic)
	}
	for _, of := range sh.OutFns {
		if pl, ok := of.(Plasticer); ok {
			pl.OverridePlasticity(plastic)
		}
	}
}

// RestorePlasticity undoes the last OverridePlasticity.
func (sh *Sheet) RestorePlasticity() {
	n := len(sh.plastStack)
	if n == 0 {
		log.Printf("cf.Sheet %s RestorePlasticity: no saved state\n", sh.Nm)
		return
	}
	sh.Plastic = sh.plastStack[n-1]
	sh.plastStack = sh.plastStack[:n-1]
	for _, pj := range sh.Prjns {
		pj.RestorePlasticity()
	}
	for _, of := range sh.OutFns {
		if pl, ok := of.(Plasticer); ok {
			pl.RestorePlasticity()
		}
	}
}

// Plasticer is implemented by functions with adaptive state, e.g.,
// homeostatic thresholds, whose plasticity follows the sheet's.
type Plasticer interface {
	OverridePlasticity(plastic bool)
	RestorePlasticity()
}

// ApplyParams applies the param sheet to this sheet and its incoming
// projections. Returns true if any params were set.
func (sh *Sheet) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	applied, err := pars.Apply(sh, setMsg)
	var errs []string
	if err != nil {
		errs = append(errs, err.Error())
	}
	for _, pj := range sh.Prjns {
		app, err := pj.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return applied, fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return applied, nil
}

// SizeReport returns a string reporting the size of each incoming
// projection and the total.
func (sh *Sheet) SizeReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s:\t Units: %d\t Dims: %dx%d\n", sh.Nm, sh.Len(), sh.Coords.Rows, sh.Coords.Cols)
	nconns, nb := 0, 0
	for _, pj := range sh.Prjns {
		b.WriteString(pj.SizeReport())
		nconns += pj.NConns()
		nb += pj.NBytes()
	}
	fmt.Fprintf(&b, "%14s:\t Conns: %d\t Mem: %s\n", "Total", nconns, (datasize.ByteSize)(nb).HumanReadable())
	return b.String()
}

// FunTimerStart starts the timer for the given function name, creating it.
func (sh *Sheet) FunTimerStart(fun string) {
	if sh.FunTimes == nil {
		sh.FunTimes = make(map[string]*timer.Time)
	}
	ft, ok := sh.FunTimes[fun]
	if !ok {
		ft = &timer.Time{}
		sh.FunTimes[fun] = ft
	}
	ft.Start()
}

// FunTimerStop stops the timer for the given function name, which must
// have been started.
func (sh *Sheet) FunTimerStop(fun string) {
	sh.FunTimes[fun].Stop()
}

// TimerReport reports the time spent in each function.
func (sh *Sheet) TimerReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TimerReport: %v, NThreads: %v\n", sh.Nm, sh.NThreads)
	fmt.Fprintf(&b, "\tFunction Name\tTotal Secs\tPct\n")
	fnms := make([]string, 0, len(sh.FunTimes))
	for k := range sh.FunTimes {
		fnms = append(fnms, k)
	}
	sort.Strings(fnms)
	tot := 0.0
	for _, fn := range fnms {
		tot += sh.FunTimes[fn].TotalSecs()
	}
	for _, fn := range fnms {
		secs := sh.FunTimes[fn].TotalSecs()
		pct := 0.0
		if tot > 0 {
			pct = 100 * secs / tot
		}
		fmt.Fprintf(&b, "\t%v \t%6.4g\t%6.4g\n", fn, secs, pct)
	}
	fmt.Fprintf(&b, "\tTotal   \t%6.4g\n", tot)
	return b.String()
}

// NeighborhoodMask restricts the sheet mask to units that have at least
// one unit above Thr within Radius (in sheet coordinates).
type NeighborhoodMask struct {
	On     bool    `desc:"recompute the sheet mask after each activation"`
	Thr    float32 `def:"1e-05" viewif:"On" desc:"activity above which a unit counts as active"`
	Radius float64 `def:"0.05" viewif:"On" desc:"neighborhood radius in sheet coordinates"`
}

func (nm *NeighborhoodMask) Defaults() {
	nm.Thr = 1e-05
	nm.Radius = 0.05
}

// Calc recomputes the mask of sh.
func (nm *NeighborhoodMask) Calc(sh *Sheet) {
	_, rc := sh.Coords.Sheet2MatrixIdx(nm.Radius, 0)
	_, zc := sh.Coords.Sheet2MatrixIdx(0, 0)
	rad := rc - zc
	if rad < 0 {
		rad = -rad
	}
	rows, cols := sh.Shape()
	act := sh.Act.Values
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			on := float32(0)
		nbr:
			for rr := max(0, r-rad); rr < min(rows, r+rad+1); rr++ {
				for cc := max(0, c-rad); cc < min(cols, c+rad+1); cc++ {
					if act[rr*cols+cc] > nm.Thr {
						on = 1
						break nbr
					}
				}
			}
			sh.Mask[r*cols+c] = on
		}
	}
}
