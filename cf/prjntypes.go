// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cf

import "github.com/goki/ki/kit"

// PrjnTypes is the storage type of a connection field projection.
type PrjnTypes int

//go:generate stringer -type=PrjnTypes

var KiT_PrjnTypes = kit.Enums.AddEnum(PrjnTypesN, kit.NotBitFlag, nil)

func (ev PrjnTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *PrjnTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The projection types
const (
	// Dense stores every CF as a full weights matrix and mask over its
	// input region.
	Dense PrjnTypes = iota

	// Sparse stores only the nonzero weights of each CF.
	Sparse

	PrjnTypesN
)
