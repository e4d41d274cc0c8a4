// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package sparse provides a connection field projection that stores only
the nonzero weights of all CFs in one compressed matrix, for large sheets
where CFs are sparse or rewire over time.

The projection has the same contract as the dense cf.Prjn and can be
mixed with dense projections on a cf.Sheet, including in joint
normalization groups. Its response, learning and output functions work
directly on the sparse storage; plugin forms apply the single-CF
functions of package cf to dense views of each CF. Prune and
SproutRetract change the connectivity itself.
*/
package sparse

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/params"
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"

	"github.com/ioam/topographica-sub002/cf"
	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

// Prjn is a connection field projection storing only the nonzero weights,
// as one sparse Matrix for all CFs. Each receiving unit keeps the input
// region of its CF, and dense views of a CF are made on demand.
type Prjn struct {
	Nm              string           `desc:"name of the projection"`
	Cls             string           `desc:"space-separated class names, for params styling"`
	Send            *cf.Sheet        `desc:"sending (source) sheet"`
	Recv            *cf.Sheet        `desc:"receiving (destination) sheet"`
	NominalBounds   sheetcoords.BBox `desc:"nominal CF bounds, centered on the origin"`
	WtsGen          patgen.Generator `view:"-" desc:"generator of the initial weights"`
	CFShape         patgen.Generator `view:"-" desc:"generator of the CF shape mask"`
	CoordMapper     cf.CoordMapper   `view:"-" desc:"maps receiving unit coordinates to CF centers on the source sheet"`
	Pattern         prjn.Pattern     `view:"-" desc:"optional connectivity pattern -- only connections it allows are kept"`
	ResponseFn      PrjnResponseFn   `view:"-" desc:"computes the activity from the input"`
	LearningFn      PrjnLearningFn   `view:"-" desc:"updates the weights"`
	LearnOutFns     []PrjnOutputFn   `view:"-" desc:"applied to the weights after learning"`
	InputFns        []cf.XferFn      `view:"-" desc:"applied to a copy of the input before the response"`
	OutFns          []cf.XferFn      `view:"-" desc:"applied to the projection activity"`
	WtsOutFns       []cf.XferFn      `view:"-" desc:"applied to each CF's weights when it is created"`
	Lrate           float32          `def:"0" min:"0" desc:"learning rate of the whole CF, divided among its connections"`
	Strength        float32          `def:"1" desc:"multiplies the activity"`
	MinMatrixRadius int              `def:"1" min:"0" desc:"minimum radius of the slice template in cells"`
	MaskThreshold   float32          `def:"0.5" desc:"shape mask values below this are zeroed"`
	AutosizeMask    bool             `def:"true" desc:"resize the CF shape to the bounds template"`
	ApplyOutFnsInit bool             `def:"true" desc:"apply the learn output functions to the initial weights"`
	SameCFShape     bool             `def:"true" desc:"one shape mask for all CFs"`
	AllowNullCFs    bool             `def:"false" desc:"leave receiving units whose CF falls off the source sheet unconnected instead of failing"`
	HashFormat      string           `def:"{name}-{src}-{dest}" desc:"format of the random seed label"`
	NormGroup       string           `desc:"projections on the same receiving sheet with the same non-empty NormGroup are normalized jointly"`
	Plastic         bool             `def:"true" desc:"whether learning changes the weights"`

	Tmpl         *cf.Template        `view:"-" desc:"CF template fitted to the source sheet"`
	Wts          *Matrix             `view:"-" desc:"weights, one column per receiving unit"`
	Slices       []sheetcoords.Slice `view:"-" desc:"input region of each receiving unit's CF"`
	HasCF        []bool              `view:"-" desc:"false for receiving units without a CF"`
	Act          []float32           `view:"-" desc:"activity of this projection, one value per receiving unit"`
	InputBuf     []float32           `view:"-" desc:"input of the last Activate, used by learning"`
	NormTotal    []float64           `view:"-" desc:"per-unit norm totals, valid when HasNormTotal"`
	HasNormTotal bool                `view:"-" desc:"whether NormTotal holds current values"`

	cons       *etensor.Bits
	plastStack []bool
}

// NewPrjn returns a sparse projection from send to recv with default
// parameters, added to recv's projections. Call Build to create the CFs.
func NewPrjn(name string, send, recv *cf.Sheet) *Prjn {
	pj := &Prjn{Nm: name, Send: send, Recv: recv}
	pj.Defaults()
	recv.AddPrjn(pj)
	return pj
}

func (pj *Prjn) Defaults() {
	pj.NominalBounds = sheetcoords.NewBBoxRadius(0.1)
	pj.WtsGen = patgen.NewConstant()
	pj.CFShape = patgen.NewConstant()
	pj.CoordMapper = cf.IdentityMapper{}
	pj.ResponseFn = DotProduct{}
	pj.LearningFn = Hebbian{}
	pj.LearnOutFns = []PrjnOutputFn{NewDivNormL1()}
	pj.Lrate = 0
	pj.Strength = 1
	pj.MinMatrixRadius = 1
	pj.MaskThreshold = 0.5
	pj.AutosizeMask = true
	pj.ApplyOutFnsInit = true
	pj.SameCFShape = true
	pj.HashFormat = "{name}-{src}-{dest}"
	pj.Plastic = true
}

// Update must be called after any changes to parameters.
func (pj *Prjn) Update() {
	if pj.MinMatrixRadius < 0 {
		pj.MinMatrixRadius = 0
	}
	if pj.Lrate < 0 {
		pj.Lrate = 0
	}
}

func (pj *Prjn) Name() string         { return pj.Nm }
func (pj *Prjn) TypeName() string     { return "Prjn" }
func (pj *Prjn) Class() string        { return cf.Sparse.String() + "Prjn " + pj.Cls }
func (pj *Prjn) Label() string        { return pj.Nm }
func (pj *Prjn) SendSheet() *cf.Sheet { return pj.Send }
func (pj *Prjn) RecvSheet() *cf.Sheet { return pj.Recv }

func (pj *Prjn) Activity() []float32    { return pj.Act }
func (pj *Prjn) JointNormGroup() string { return pj.NormGroup }
func (pj *Prjn) IsPlastic() bool        { return pj.Plastic }

// NUnits returns the number of unmasked units in a typical CF.
func (pj *Prjn) NUnits() int {
	if pj.Tmpl == nil {
		return 0
	}
	return pj.Tmpl.NUnits
}

// SeedLabel returns the label that seeds the CFs' random weights.
func (pj *Prjn) SeedLabel() string {
	return strings.NewReplacer("{name}", pj.Nm, "{src}", pj.Send.Name(), "{dest}", pj.Recv.Name()).Replace(pj.HashFormat)
}

func (pj *Prjn) String() string {
	return fmt.Sprintf("%s: %s -> %s (sparse)", pj.Nm, pj.Send.Name(), pj.Recv.Name())
}

// Validate tests for non-nil settings for the projection -- returns error
// message or nil if no problems (and logs them if logmsg = true).
func (pj *Prjn) Validate(logmsg bool) error {
	var emsg []string
	if pj.Send == nil || pj.Recv == nil {
		emsg = append(emsg, "Send and Recv must be set")
	}
	if pj.WtsGen == nil || pj.CFShape == nil {
		emsg = append(emsg, "WtsGen and CFShape must be set")
	}
	if pj.ResponseFn == nil || pj.LearningFn == nil {
		emsg = append(emsg, "ResponseFn and LearningFn must be set")
	}
	if pj.NominalBounds.Width() <= 0 || pj.NominalBounds.Height() <= 0 {
		emsg = append(emsg, fmt.Sprintf("NominalBounds %v has no area", pj.NominalBounds))
	}
	if len(emsg) == 0 {
		return nil
	}
	err := fmt.Errorf("sparse.Prjn %s Validate: %s", pj.Nm, strings.Join(emsg, "; "))
	if logmsg {
		log.Println(err)
	}
	return err
}

// Build fits the template to the source sheet, creates each CF densely
// and stores its nonzero weights.
func (pj *Prjn) Build() error {
	if err := pj.Validate(false); err != nil {
		return err
	}
	src := pj.Send.Coords
	nsend, nrecv := pj.Send.Len(), pj.Recv.Len()
	pj.Tmpl = cf.NewTemplate(pj.NominalBounds, src, pj.CFShape, pj.MinMatrixRadius, pj.AutosizeMask, pj.MaskThreshold)
	pj.Slices = make([]sheetcoords.Slice, nrecv)
	pj.HasCF = make([]bool, nrecv)
	pj.Act = make([]float32, nrecv)
	pj.NormTotal = make([]float64, nrecv)
	pj.HasNormTotal = false
	pj.InputBuf = nil
	pj.cons = nil
	if pj.Pattern != nil {
		_, _, pj.cons = pj.Pattern.Connect(&pj.Send.Act.Shape, &pj.Recv.Act.Shape, pj.Send == pj.Recv)
	}
	xs, ys := pj.Recv.Coords.SheetCoordsOfIdxGrid()
	cols := pj.Recv.Coords.Cols
	label := pj.SeedLabel()
	bl := NewBuilder(nsend, nrecv)
	for ri := 0; ri < nrecv; ri++ {
		x, y := pj.CoordMapper.Map(xs[ri%cols], ys[ri/cols])
		mask := pj.Tmpl.Mask
		if !pj.SameCFShape {
			mask = cf.CreateMask(pj.CFShape, pj.Tmpl.Bounds, pj.Tmpl.Slice, src, pj.AutosizeMask, pj.MaskThreshold)
		}
		dcf, err := cf.NewConnectionField(pj.Send, x, y, pj.Tmpl.Slice, pj.WtsGen, mask, label, pj.WtsOutFns)
		if err != nil {
			var nerr *cf.NullCFError
			if errors.As(err, &nerr) && pj.AllowNullCFs {
				log.Printf("sparse.Prjn %s: null CF at receiving unit %d: %v\n", pj.Nm, ri, err)
				bl.Add(nil, nil)
				continue
			}
			return fmt.Errorf("sparse.Prjn %s Build: %w", pj.Nm, err)
		}
		pj.Slices[ri] = dcf.Slice
		pj.HasCF[ri] = true
		si, wt := pj.denseToConns(ri, dcf.Weights)
		bl.Add(si, wt)
	}
	pj.Wts = bl.Matrix()
	if pj.ApplyOutFnsInit {
		pj.ApplyLearnOutFns(false)
	}
	return nil
}

// Allowed returns whether the connectivity Pattern, if any, allows a
// connection from si onto ri.
func (pj *Prjn) Allowed(si, ri int) bool {
	if pj.cons == nil {
		return true
	}
	return pj.cons.Values.Index(ri*pj.Wts.NSend + si)
}

// denseToConns converts dense weights over the CF region of ri into
// sorted source indexes and values, dropping zeros and connections the
// Pattern does not allow.
func (pj *Prjn) denseToConns(ri int, wts []float32) ([]int32, []float32) {
	sl := pj.Slices[ri]
	scols := pj.Send.Coords.Cols
	nsend := pj.Send.Len()
	si := make([]int32, 0, len(wts))
	wt := make([]float32, 0, len(wts))
	wi := 0
	for r := sl.R1; r < sl.R2; r++ {
		for c := sl.C1; c < sl.C2; c++ {
			s := r*scols + c
			if w := wts[wi]; w != 0 && (pj.cons == nil || pj.cons.Values.Index(ri*nsend+s)) {
				si = append(si, int32(s))
				wt = append(wt, w)
			}
			wi++
		}
	}
	return si, wt
}

// Indexes returns the receiving units to process: units with a CF that
// are valid in the sheet mask and, if activeOnly and the sheet allows
// skipping, active.
func (pj *Prjn) Indexes(activeOnly bool) []int {
	sh := pj.Recv
	skip := activeOnly && sh.AllowSkipNonResponding
	act := sh.Activity()
	idxs := make([]int, 0, len(pj.HasCF))
	for i, has := range pj.HasCF {
		if !has || sh.Mask[i] == 0 || (skip && act[i] == 0) {
			continue
		}
		idxs = append(idxs, i)
	}
	return idxs
}

// Par calls fun for each index, split across Recv.NThreads goroutines.
// Each index is visited by exactly one goroutine.
func (pj *Prjn) Par(idxs []int, fun func(ri int)) {
	nthr := pj.Recv.NThreads
	if nthr <= 1 || len(idxs) < 2*nthr {
		for _, ri := range idxs {
			fun(ri)
		}
		return
	}
	var wg sync.WaitGroup
	per := (len(idxs) + nthr - 1) / nthr
	for st := 0; st < len(idxs); st += per {
		blk := idxs[st:min(st+per, len(idxs))]
		wg.Add(1)
		go func(blk []int) {
			defer wg.Done()
			for _, ri := range blk {
				fun(ri)
			}
		}(blk)
	}
	wg.Wait()
}

// Activate computes the projection activity from in, the source activity,
// which is kept for learning.
func (pj *Prjn) Activate(in []float32) {
	if len(in) != pj.Send.Len() {
		panic(fmt.Sprintf("sparse.Prjn %s Activate: %v: input has %d values, source sheet %s has %d units", pj.Nm, cf.ErrShape, len(in), pj.Send.Name(), pj.Send.Len()))
	}
	if len(pj.InputFns) > 0 {
		in = append([]float32(nil), in...)
		for _, fn := range pj.InputFns {
			fn.Xfer(in)
		}
	}
	pj.InputBuf = in
	clear(pj.Act)
	pj.ResponseFn.PrjnResponse(pj, in, pj.Act)
	for _, fn := range pj.OutFns {
		fn.Xfer(pj.Act)
	}
}

// LearnWts runs the learning function on the last input and the current
// receiving activity.
func (pj *Prjn) LearnWts() {
	if pj.InputBuf == nil || !pj.Plastic {
		return
	}
	pj.LearningFn.PrjnLearn(pj, pj.InputBuf, pj.Recv.Activity())
}

// Learn runs LearnWts and then the learn output functions.
func (pj *Prjn) Learn() {
	pj.LearnWts()
	if pj.Plastic {
		pj.ApplyLearnOutFns(true)
	}
}

// ApplyLearnOutFns applies the learn output functions in order.
func (pj *Prjn) ApplyLearnOutFns(activeOnly bool) {
	for _, of := range pj.LearnOutFns {
		of.PrjnOutput(pj, activeOnly)
	}
}

// CalcNormTotals sets NormTotal to the sum of absolute weights of every
// receiving unit.
func (pj *Prjn) CalcNormTotals() {
	for ri := range pj.NormTotal {
		_, wt := pj.Wts.Recv(ri)
		pj.NormTotal[ri] = cf.SumAbs(wt)
	}
	pj.HasNormTotal = true
}

func (pj *Prjn) AddNormTotals(tot []float64, use []bool) {
	if !pj.HasNormTotal {
		pj.CalcNormTotals()
	}
	for ri, u := range use {
		if u && pj.HasCF[ri] {
			tot[ri] += pj.NormTotal[ri]
		}
	}
}

func (pj *Prjn) SetNormTotals(tot []float64, use []bool) {
	if !pj.HasNormTotal {
		pj.CalcNormTotals()
	}
	for ri, u := range use {
		if u && pj.HasCF[ri] {
			pj.NormTotal[ri] = tot[ri]
		}
	}
}

// OverridePlasticity sets Plastic, saving the current value.
func (pj *Prjn) OverridePlasticity(plastic bool) {
	pj.plastStack = append(pj.plastStack, pj.Plastic)
	pj.Plastic = plastic
}

// RestorePlasticity undoes the last OverridePlasticity.
func (pj *Prjn) RestorePlasticity() {
	n := len(pj.plastStack)
	if n == 0 {
		log.Printf("sparse.Prjn %s RestorePlasticity: no saved state\n", pj.Nm)
		return
	}
	pj.Plastic = pj.plastStack[n-1]
	pj.plastStack = pj.plastStack[:n-1]
}

// ApplyParams applies given parameter style Sheet to this projection.
// Calls Update if anything set.
func (pj *Prjn) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(pj, setMsg)
	if app {
		pj.Update()
	}
	return app, err
}

// NConns returns the number of stored (nonzero) connections.
func (pj *Prjn) NConns() int {
	if pj.Wts == nil {
		return 0
	}
	return pj.Wts.NNZ()
}

// NBytes estimates the memory used, with each connection stored as a
// 32-bit source index, receiving index and weight.
func (pj *Prjn) NBytes() int {
	return pj.NConns() * (3 * 4)
}

// SizeReport returns the number of connections and memory used.
func (pj *Prjn) SizeReport() string {
	return fmt.Sprintf("%14s:\t Send: %s\t NUnits: %d\t Conns: %d\t Mem: %s\n",
		pj.Nm, pj.Send.Name(), pj.NUnits(), pj.NConns(), (datasize.ByteSize)(pj.NBytes()).HumanReadable())
}

var _ cf.Projection = (*Prjn)(nil)
