// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/emer/emergent/weights"

	"github.com/ioam/topographica-sub002/cf"
)

// Triplets is the portable form of a sparse projection's weights: every
// connection as (sending index, receiving index, weight), plus the shapes
// of both sheets.
type Triplets struct {
	SendShape []int     `json:"SendShape" yaml:"SendShape"`
	RecvShape []int     `json:"RecvShape" yaml:"RecvShape"`
	Si        []int32   `json:"Si" yaml:"Si"`
	Ri        []int32   `json:"Ri" yaml:"Ri"`
	Wt        []float32 `json:"Wt" yaml:"Wt"`
}

// ExportTriplets returns the weights as triplets.
func (pj *Prjn) ExportTriplets() *Triplets {
	tr := &Triplets{}
	sr, sc := pj.Send.Shape()
	rr, rc := pj.Recv.Shape()
	tr.SendShape = []int{sr, sc}
	tr.RecvShape = []int{rr, rc}
	tr.Si, tr.Ri, tr.Wt = pj.Wts.Triplets()
	return tr
}

// ImportTriplets replaces the weights with the given triplets, which
// must have been exported from sheets of the same shapes. The norm
// totals are invalidated.
func (pj *Prjn) ImportTriplets(tr *Triplets) error {
	sr, sc := pj.Send.Shape()
	rr, rc := pj.Recv.Shape()
	if !slices.Equal(tr.SendShape, []int{sr, sc}) || !slices.Equal(tr.RecvShape, []int{rr, rc}) {
		return fmt.Errorf("sparse.Prjn %s ImportTriplets: %w: shapes %v -> %v, projection is %dx%d -> %dx%d", pj.Nm, cf.ErrShape, tr.SendShape, tr.RecvShape, sr, sc, rr, rc)
	}
	m := NewMatrix(pj.Send.Len(), pj.Recv.Len())
	if err := m.SetTriplets(tr.Si, tr.Ri, tr.Wt); err != nil {
		return fmt.Errorf("sparse.Prjn %s ImportTriplets: %w", pj.Nm, err)
	}
	pj.Wts = m
	pj.HasNormTotal = false
	return nil
}

// WriteWtsJSON writes the stored weights in the emergent weights JSON
// format, with Si indexes into the source sheet.
func (pj *Prjn) WriteWtsJSON(w io.Writer, depth int) {
	meta := map[string]string{
		"Strength": fmt.Sprintf("%g", pj.Strength),
		"Lrate":    fmt.Sprintf("%g", pj.Lrate),
	}
	rs := make([]weights.Recv, 0, pj.Wts.NRecv)
	for ri, has := range pj.HasCF {
		if !has {
			continue
		}
		si, wt := pj.Wts.Recv(ri)
		pr := weights.Recv{Ri: ri, N: len(si), Si: make([]int, len(si)), Wt: append([]float32(nil), wt...)}
		for k, s := range si {
			pr.Si[k] = int(s)
		}
		rs = append(rs, pr)
	}
	cf.WritePrjnWtsJSON(w, depth, pj.Send.Name(), meta, rs)
}

// ReadWtsJSON reads the weights written by WriteWtsJSON.
func (pj *Prjn) ReadWtsJSON(r io.Reader) error {
	pw, err := weights.PrjnReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	return pj.SetWts(pw)
}

// SetWts sets the connections of each receiving unit listed from decoded
// values. Connections outside a unit's CF region are an error.
func (pj *Prjn) SetWts(pw *weights.Prjn) error {
	if pw.MetaData != nil {
		if s, ok := pw.MetaData["Strength"]; ok {
			if v, err := strconv.ParseFloat(s, 32); err == nil {
				pj.Strength = float32(v)
			}
		}
		if s, ok := pw.MetaData["Lrate"]; ok {
			if v, err := strconv.ParseFloat(s, 32); err == nil {
				pj.Lrate = float32(v)
			}
		}
	}
	scols := pj.Send.Coords.Cols
	var err error
	for i := range pw.Rs {
		pr := &pw.Rs[i]
		if pr.Ri < 0 || pr.Ri >= len(pj.HasCF) || !pj.HasCF[pr.Ri] {
			err = fmt.Errorf("sparse.Prjn %s SetWts: no CF for receiving unit %d", pj.Nm, pr.Ri)
			continue
		}
		c, _ := pj.CF(pr.Ri)
		sl := c.Slice()
		wts := make([]float32, sl.Area())
		for ci, si := range pr.Si {
			r, col := si/scols, si%scols
			if r < sl.R1 || r >= sl.R2 || col < sl.C1 || col >= sl.C2 {
				err = fmt.Errorf("sparse.Prjn %s SetWts: source unit %d is outside the CF of receiving unit %d", pj.Nm, si, pr.Ri)
				continue
			}
			wts[(r-sl.R1)*sl.Cols()+(col-sl.C1)] = pr.Wt[ci]
		}
		c.SetWeights(wts)
	}
	pj.HasNormTotal = false
	return err
}
