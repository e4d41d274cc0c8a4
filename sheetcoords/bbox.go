// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sheetcoords

import "fmt"

// BBox is an axis-aligned bounding box in continuous sheet coordinates,
// given as left, bottom, right, top.
type BBox struct {
	L float64 `desc:"left edge"`
	B float64 `desc:"bottom edge"`
	R float64 `desc:"right edge"`
	T float64 `desc:"top edge"`
}

// NewBBox returns a box with the given edges.
func NewBBox(l, b, r, t float64) BBox {
	return BBox{L: l, B: b, R: r, T: t}
}

// NewBBoxRadius returns a square box of given radius centered on the origin.
func NewBBoxRadius(rad float64) BBox {
	return BBox{L: -rad, B: -rad, R: rad, T: rad}
}

// LBRT returns the four edges.
func (bb BBox) LBRT() (l, b, r, t float64) {
	return bb.L, bb.B, bb.R, bb.T
}

func (bb BBox) Width() float64  { return bb.R - bb.L }
func (bb BBox) Height() float64 { return bb.T - bb.B }

// Centroid returns the center point of the box.
func (bb BBox) Centroid() (x, y float64) {
	return (bb.L + bb.R) / 2, (bb.B + bb.T) / 2
}

// Translate returns the box moved by (dx, dy).
func (bb BBox) Translate(dx, dy float64) BBox {
	return BBox{L: bb.L + dx, B: bb.B + dy, R: bb.R + dx, T: bb.T + dy}
}

// Contains returns true if point (x, y) is inside the box, edges included.
func (bb BBox) Contains(x, y float64) bool {
	return x >= bb.L && x <= bb.R && y >= bb.B && y <= bb.T
}

// ContainsBBoxInclusive returns true if ob lies within bb, shared edges allowed.
func (bb BBox) ContainsBBoxInclusive(ob BBox) bool {
	return ob.L >= bb.L && ob.B >= bb.B && ob.R <= bb.R && ob.T <= bb.T
}

// ContainsBBoxExclusive returns true if ob lies within bb and is not
// identical to it.
func (bb BBox) ContainsBBoxExclusive(ob BBox) bool {
	return bb.ContainsBBoxInclusive(ob) && bb != ob
}

func (bb BBox) String() string {
	return fmt.Sprintf("BBox(l=%g, b=%g, r=%g, t=%g)", bb.L, bb.B, bb.R, bb.T)
}
