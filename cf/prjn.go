// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/params"

	"github.com/ioam/topographica-sub002/patgen"
	"github.com/ioam/topographica-sub002/sheetcoords"
)

// ErrShape is wrapped by errors about inconsistent shapes.
var ErrShape = errors.New("cf: shape mismatch")

// CoordMapper maps the sheet coordinates of a receiving unit to the
// location of its connection field on the source sheet.
type CoordMapper interface {
	Map(x, y float64) (float64, float64)
}

// IdentityMapper places each CF at the receiving unit's own coordinates.
type IdentityMapper struct{}

func (IdentityMapper) Map(x, y float64) (float64, float64) { return x, y }

// Prjn is a dense connection field projection: one ConnectionField per
// receiving unit, each covering a local region of the sending sheet.
type Prjn struct {
	Nm              string           `desc:"name of the projection"`
	Cls             string           `desc:"space-separated class names, for params styling"`
	Send            *Sheet           `desc:"sending (source) sheet"`
	Recv            *Sheet           `desc:"receiving (destination) sheet"`
	Typ             PrjnTypes        `desc:"type of projection"`
	NominalBounds   sheetcoords.BBox `desc:"nominal CF bounds, centered on the origin -- fitted to the source sheet as an odd-sized slice"`
	WtsGen          patgen.Generator `view:"-" desc:"generator of the initial weights"`
	CFShape         patgen.Generator `view:"-" desc:"generator of the CF shape mask"`
	CoordMapper     CoordMapper      `view:"-" desc:"maps receiving unit coordinates to CF centers on the source sheet"`
	ResponseFn      PrjnResponseFn   `view:"-" desc:"computes the activity from the input"`
	LearningFn      PrjnLearningFn   `view:"-" desc:"updates the weights"`
	LearnOutFns     []PrjnOutputFn   `view:"-" desc:"applied to the weights after learning, e.g., normalization"`
	InputFns        []XferFn         `view:"-" desc:"applied to a copy of the input before the response"`
	OutFns          []XferFn         `view:"-" desc:"applied to the projection activity"`
	WtsOutFns       []XferFn         `view:"-" desc:"applied to each CF's weights when it is created"`
	Lrate           float32          `def:"0" min:"0" desc:"learning rate of the whole CF, divided among its connections"`
	Strength        float32          `def:"1" desc:"multiplies the activity"`
	MinMatrixRadius int              `def:"1" min:"0" desc:"minimum radius of the slice template in cells"`
	MaskThreshold   float32          `def:"0.5" desc:"shape mask values below this are zeroed"`
	AutosizeMask    bool             `def:"true" desc:"resize the CF shape to the bounds template"`
	ApplyOutFnsInit bool             `def:"true" desc:"apply the learn output functions to the initial weights"`
	SameCFShape     bool             `def:"true" desc:"one shape mask for all CFs -- otherwise CFShape is evaluated for each CF"`
	AllowNullCFs    bool             `def:"false" desc:"keep CFs that fall entirely off the source sheet as nil instead of failing"`
	HashFormat      string           `def:"{name}-{src}-{dest}" desc:"format of the random seed label, with {name}, {src} and {dest} replaced"`
	NormGroup       string           `desc:"projections on the same receiving sheet with the same non-empty NormGroup are normalized jointly"`
	Plastic         bool             `def:"true" desc:"whether learning changes the weights"`
	UseFastPaths    bool             `def:"true" desc:"use the optimized forms of the standard functions -- same results"`

	Tmpl     *Template          `view:"-" desc:"CF template fitted to the source sheet"`
	CFs      []*ConnectionField `view:"-" desc:"one CF per receiving unit, row-major, nil for null CFs"`
	Act      []float32          `view:"-" desc:"activity of this projection, one value per receiving unit"`
	InputBuf []float32          `view:"-" desc:"input of the last Activate, used by learning"`
	X        []float64          `view:"-" desc:"source sheet x coordinate of each CF center"`
	Y        []float64          `view:"-" desc:"source sheet y coordinate of each CF center"`

	plastStack []bool
}

// NewPrjn returns a projection from send to recv with default parameters,
// added to recv's projections. Call Build to create the CFs.
func NewPrjn(name string, send, recv *Sheet) *Prjn {
	pj := &Prjn{Nm: name, Send: send, Recv: recv}
	pj.Defaults()
	recv.AddPrjn(pj)
	return pj
}

func (pj *Prjn) Defaults() {
	pj.Typ = Dense
	pj.NominalBounds = sheetcoords.NewBBoxRadius(0.1)
	pj.WtsGen = patgen.NewConstant()
	pj.CFShape = patgen.NewConstant()
	pj.CoordMapper = IdentityMapper{}
	pj.ResponseFn = NewRespPlugin(DotProduct{})
	pj.LearningFn = NewLearnPlugin(Hebbian{})
	pj.LearnOutFns = []PrjnOutputFn{NewOutPlugin(IdentityXF{})}
	pj.Lrate = 0
	pj.Strength = 1
	pj.MinMatrixRadius = 1
	pj.MaskThreshold = 0.5
	pj.AutosizeMask = true
	pj.ApplyOutFnsInit = true
	pj.SameCFShape = true
	pj.HashFormat = "{name}-{src}-{dest}"
	pj.Plastic = true
	pj.UseFastPaths = true
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

func (pj *Prjn) Name() string      { return pj.Nm }
func (pj *Prjn) TypeName() string  { return "Prjn" }
func (pj *Prjn) Class() string     { return pj.Typ.String() + "Prjn " + pj.Cls }
func (pj *Prjn) Label() string     { return pj.Nm }
func (pj *Prjn) SendSheet() *Sheet { return pj.Send }
func (pj *Prjn) RecvSheet() *Sheet { return pj.Recv }

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

// String satisfies fmt.Stringer for the projection.
func (pj *Prjn) String() string {
	return fmt.Sprintf("%s: %s -> %s", pj.Nm, pj.Send.Name(), pj.Recv.Name())
}

// Validate tests for non-nil settings for the projection -- returns error
// message or nil if no problems (and logs them if logmsg = true).
func (pj *Prjn) Validate(logmsg bool) error {
	var emsg []string
	if pj.Send == nil {
		emsg = append(emsg, "Send is nil")
	}
	if pj.Recv == nil {
		emsg = append(emsg, "Recv is nil")
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
	err := fmt.Errorf("cf.Prjn %s Validate: %s", pj.Nm, strings.Join(emsg, "; "))
	if logmsg {
		log.Println(err)
	}
	return err
}

// Build fits the template to the source sheet and creates one CF per
// receiving unit.
func (pj *Prjn) Build() error {
	if err := pj.Validate(false); err != nil {
		return err
	}
	src := pj.Send.Coords
	pj.Tmpl = NewTemplate(pj.NominalBounds, src, pj.CFShape, pj.MinMatrixRadius, pj.AutosizeMask, pj.MaskThreshold)
	n := pj.Recv.Len()
	pj.CFs = make([]*ConnectionField, n)
	pj.Act = make([]float32, n)
	pj.InputBuf = nil
	pj.X = make([]float64, n)
	pj.Y = make([]float64, n)
	xs, ys := pj.Recv.Coords.SheetCoordsOfIdxGrid()
	cols := pj.Recv.Coords.Cols
	label := pj.SeedLabel()
	for i := range pj.CFs {
		x, y := pj.CoordMapper.Map(xs[i%cols], ys[i/cols])
		pj.X[i], pj.Y[i] = x, y
		mask := pj.Tmpl.Mask
		if !pj.SameCFShape {
			mask = CreateMask(pj.CFShape, pj.Tmpl.Bounds, pj.Tmpl.Slice, src, pj.AutosizeMask, pj.MaskThreshold)
		}
		cf, err := NewConnectionField(pj.Send, x, y, pj.Tmpl.Slice, pj.WtsGen, mask, label, pj.WtsOutFns)
		if err != nil {
			var nerr *NullCFError
			if errors.As(err, &nerr) && pj.AllowNullCFs {
				log.Printf("cf.Prjn %s: null CF at receiving unit %d: %v\n", pj.Nm, i, err)
				continue
			}
			return fmt.Errorf("cf.Prjn %s Build: %w", pj.Nm, err)
		}
		pj.CFs[i] = cf
	}
	if pj.ApplyOutFnsInit {
		pj.ApplyLearnOutFns(false)
	}
	return nil
}

// Iter returns a fresh iterator over the CFs.
func (pj *Prjn) Iter(activeUnitsMask bool) *Iter {
	return NewIter(pj, activeUnitsMask, false)
}

func (pj *Prjn) respFn() PrjnResponseFn {
	if pj.UseFastPaths {
		return FastResponse(pj.ResponseFn)
	}
	return pj.ResponseFn
}

func (pj *Prjn) learnFn() PrjnLearningFn {
	if pj.UseFastPaths {
		return FastLearning(pj.LearningFn)
	}
	return pj.LearningFn
}

func (pj *Prjn) outFn(of PrjnOutputFn) PrjnOutputFn {
	if pj.UseFastPaths {
		return FastOutput(of)
	}
	return of
}

// Activate computes the projection activity from in, the source activity,
// which is kept for learning.
func (pj *Prjn) Activate(in []float32) {
	if len(in) != pj.Send.Len() {
		panic(fmt.Sprintf("cf.Prjn %s Activate: %v: input has %d values, source sheet %s has %d units", pj.Nm, ErrShape, len(in), pj.Send.Name(), pj.Send.Len()))
	}
	if len(pj.InputFns) > 0 {
		in = append([]float32(nil), in...)
		for _, fn := range pj.InputFns {
			fn.Xfer(in)
		}
	}
	pj.InputBuf = in
	clear(pj.Act)
	pj.respFn().PrjnResponse(pj.Iter(false), in, pj.Act, pj.Strength)
	for _, fn := range pj.OutFns {
		fn.Xfer(pj.Act)
	}
}

// LearnWts runs the learning function on the last input and the current
// receiving activity. Does nothing before the first Activate or when the
// projection is not plastic.
func (pj *Prjn) LearnWts() {
	if pj.InputBuf == nil || !pj.Plastic {
		return
	}
	pj.learnFn().PrjnLearn(pj.Iter(false), pj.InputBuf, pj.Recv.Activity(), pj.Lrate)
}

// Learn runs LearnWts and then the learn output functions, for a
// projection that is normalized on its own.
func (pj *Prjn) Learn() {
	pj.LearnWts()
	if pj.Plastic {
		pj.ApplyLearnOutFns(true)
	}
}

// ApplyLearnOutFns applies the learn output functions in order.
func (pj *Prjn) ApplyLearnOutFns(activeUnitsMask bool) {
	for _, of := range pj.LearnOutFns {
		pj.outFn(of).PrjnOutput(pj.Iter(activeUnitsMask))
	}
}

func (pj *Prjn) AddNormTotals(tot []float64, use []bool) {
	for i, cf := range pj.CFs {
		if cf != nil && use[i] {
			tot[i] += cf.NormTotal()
		}
	}
}

func (pj *Prjn) SetNormTotals(tot []float64, use []bool) {
	for i, cf := range pj.CFs {
		if cf != nil && use[i] {
			cf.SetNormTotal(tot[i])
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
		log.Printf("cf.Prjn %s RestorePlasticity: no saved state\n", pj.Nm)
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

// NConns returns the number of unmasked connections over all CFs that
// the sheet mask lets through.
func (pj *Prjn) NConns() int {
	n := 0
	for _, cf := range pj.Iter(false).All() {
		n += cf.NConns()
	}
	return n
}

// NBytes returns the memory used by the activity and the weights and
// masks of all CFs.
func (pj *Prjn) NBytes() int {
	n := 4 * len(pj.Act)
	for _, cf := range pj.CFs {
		if cf != nil {
			n += 4 * (len(cf.Weights) + len(cf.Mask))
		}
	}
	return n
}

// SizeReport returns the number of connections and memory used.
func (pj *Prjn) SizeReport() string {
	return fmt.Sprintf("%14s:\t Send: %s\t NUnits: %d\t Conns: %d\t Mem: %s\n",
		pj.Nm, pj.Send.Name(), pj.NUnits(), pj.NConns(), (datasize.ByteSize)(pj.NBytes()).HumanReadable())
}
