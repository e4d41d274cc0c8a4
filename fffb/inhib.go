// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fffb

import "github.com/emer/etable/minmax"

// Inhib contains state values for computed FFFB inhibition
type Inhib struct {

	// computed feedforward inhibition
	FFi float32

	// computed feedback inhibition (total)
	FBi float32

	// overall value of the inhibition, subtracted from the input
	Gi float32

	// average and max input values, which drive FF inhibition
	Ge AvgMax

	// average and max activity values, which drive FB inhibition
	Act AvgMax
}

func (fi *Inhib) Init() {
	fi.Zero()
	fi.Ge.Init()
	fi.Act.Init()
}

// Zero clears inhibition but does not affect Ge, Act averages
func (fi *Inhib) Zero() {
	fi.FFi = 0
	fi.FBi = 0
	fi.Gi = 0
}

// Decay reduces inhibition values by given decay proportion
func (fi *Inhib) Decay(decay float32) {
	fi.Ge.Max -= decay * fi.Ge.Max
	fi.Ge.Avg -= decay * fi.Ge.Avg
	fi.Act.Max -= decay * fi.Act.Max
	fi.Act.Avg -= decay * fi.Act.Avg
	fi.FFi -= decay * fi.FFi
	fi.FBi -= decay * fi.FBi
	fi.Gi -= decay * fi.Gi
}

// AvgMax holds pooled average and max statistics over a set of values.
type AvgMax struct {
	minmax.AvgMax32
}

// UpdateVals recomputes the statistics from vals.
func (am *AvgMax) UpdateVals(vals []float32) {
	am.Init()
	for i, v := range vals {
		am.UpdateVal(v, int32(i))
	}
	am.CalcAvg()
}
