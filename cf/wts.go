// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/emer/emergent/weights"
	"github.com/goki/ki/indent"
)

// WriteWtsJSON writes the unmasked weights of every CF in the emergent
// weights JSON format, with Si indexes into the source sheet.
func (pj *Prjn) WriteWtsJSON(w io.Writer, depth int) {
	meta := map[string]string{
		"Strength": fmt.Sprintf("%g", pj.Strength),
		"Lrate":    fmt.Sprintf("%g", pj.Lrate),
	}
	scols := pj.Send.Coords.Cols
	rs := make([]weights.Recv, 0, len(pj.CFs))
	for ri, cf := range pj.CFs {
		if cf == nil {
			continue
		}
		pr := weights.Recv{Ri: ri}
		sl := cf.Slice
		wi := 0
		for r := sl.R1; r < sl.R2; r++ {
			for c := sl.C1; c < sl.C2; c++ {
				if cf.Mask[wi] != 0 {
					pr.Si = append(pr.Si, r*scols+c)
					pr.Wt = append(pr.Wt, cf.Weights[wi])
				}
				wi++
			}
		}
		pr.N = len(pr.Si)
		rs = append(rs, pr)
	}
	WritePrjnWtsJSON(w, depth, pj.Send.Name(), meta, rs)
}

// WritePrjnWtsJSON writes one projection's weights. The closing brace is
// left unterminated as the caller adds a comma or newline.
func WritePrjnWtsJSON(w io.Writer, depth int, from string, meta map[string]string, rs []weights.Recv) {
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"From\": %q,\n", from)))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("\"MetaData\": {\n"))
	depth++
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("%q: %q", k, meta[k])))
		if i < len(keys)-1 {
			w.Write([]byte(",\n"))
		} else {
			w.Write([]byte("\n"))
		}
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("},\n"))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("\"Rs\": [\n"))
	depth++
	for i := range rs {
		pr := &rs[i]
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("{\n"))
		depth++
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"Ri\": %v,\n", pr.Ri)))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"N\": %v,\n", len(pr.Si))))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Si\": [ "))
		for ci, si := range pr.Si {
			w.Write([]byte(strconv.Itoa(si)))
			writeSep(w, ci, len(pr.Si))
		}
		w.Write([]byte("],\n"))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Wt\": [ "))
		for ci, wt := range pr.Wt {
			w.Write([]byte(strconv.FormatFloat(float64(wt), 'g', weights.Prec, 32)))
			writeSep(w, ci, len(pr.Wt))
		}
		w.Write([]byte("]\n"))
		depth--
		w.Write(indent.TabBytes(depth))
		if i == len(rs)-1 {
			w.Write([]byte("}\n"))
		} else {
			w.Write([]byte("},\n"))
		}
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("]\n"))
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}"))
}

func writeSep(w io.Writer, ci, n int) {
	if ci == n-1 {
		w.Write([]byte(" "))
	} else {
		w.Write([]byte(", "))
	}
}

// ReadWtsJSON reads the weights written by WriteWtsJSON.
func (pj *Prjn) ReadWtsJSON(r io.Reader) error {
	pw, err := weights.PrjnReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	return pj.SetWts(pw)
}

// SetWts sets the weights from decoded values. Connections that are not
// in a CF's region are an error; masked connections stay zero.
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
		if pr.Ri < 0 || pr.Ri >= len(pj.CFs) || pj.CFs[pr.Ri] == nil {
			err = fmt.Errorf("cf.Prjn %s SetWts: no CF for receiving unit %d", pj.Nm, pr.Ri)
			continue
		}
		cf := pj.CFs[pr.Ri]
		sl := cf.Slice
		for ci, si := range pr.Si {
			r, c := si/scols, si%scols
			if r < sl.R1 || r >= sl.R2 || c < sl.C1 || c >= sl.C2 {
				err = fmt.Errorf("cf.Prjn %s SetWts: source unit %d is outside the CF of receiving unit %d", pj.Nm, si, pr.Ri)
				continue
			}
			wi := (r-sl.R1)*sl.Cols() + (c - sl.C1)
			cf.Weights[wi] = pr.Wt[ci] * cf.Mask[wi]
		}
		cf.DelNormTotal()
	}
	return err
}
