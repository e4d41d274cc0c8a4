// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"fmt"
	"sort"
)

// Matrix holds the weights of a sparse projection in compressed sparse
// column form: the connections onto receiving unit ri are
// Si[Ptr[ri]:Ptr[ri+1]] (sorted source indexes) with values
// Wt[Ptr[ri]:Ptr[ri+1]]. Only nonzero weights are stored.
type Matrix struct {
	NSend int       `desc:"number of sending units"`
	NRecv int       `desc:"number of receiving units"`
	Ptr   []int32   `desc:"start of each receiving unit's connections, NRecv+1 entries"`
	Si    []int32   `desc:"sending unit index of each connection"`
	Wt    []float32 `desc:"weight of each connection"`
}

// NewMatrix returns an empty matrix.
func NewMatrix(nsend, nrecv int) *Matrix {
	return &Matrix{NSend: nsend, NRecv: nrecv, Ptr: make([]int32, nrecv+1)}
}

// NNZ returns the number of stored connections.
func (m *Matrix) NNZ() int {
	return len(m.Si)
}

// Recv returns the connections onto receiving unit ri. The slices alias
// the matrix.
func (m *Matrix) Recv(ri int) (si []int32, wt []float32) {
	st, ed := m.Ptr[ri], m.Ptr[ri+1]
	return m.Si[st:ed], m.Wt[st:ed]
}

// Builder appends receiving units' connections in order.
type Builder struct {
	m  *Matrix
	ri int
}

// NewBuilder returns a builder of an nsend x nrecv matrix.
func NewBuilder(nsend, nrecv int) *Builder {
	m := &Matrix{NSend: nsend, NRecv: nrecv, Ptr: make([]int32, 1, nrecv+1)}
	return &Builder{m: m}
}

// Add appends the connections of the next receiving unit, skipping zero
// weights. si must be sorted.
func (bl *Builder) Add(si []int32, wt []float32) {
	m := bl.m
	for k, s := range si {
		if wt[k] != 0 {
			m.Si = append(m.Si, s)
			m.Wt = append(m.Wt, wt[k])
		}
	}
	m.Ptr = append(m.Ptr, int32(len(m.Si)))
	bl.ri++
}

// Matrix returns the built matrix. Receiving units not added have no
// connections.
func (bl *Builder) Matrix() *Matrix {
	for bl.ri < bl.m.NRecv {
		bl.Add(nil, nil)
	}
	return bl.m
}

// SetRecv replaces the connections onto receiving unit ri, skipping
// zero weights. si must be sorted.
func (m *Matrix) SetRecv(ri int, si []int32, wt []float32) {
	st, ed := m.Ptr[ri], m.Ptr[ri+1]
	nsi := make([]int32, 0, len(m.Si)-int(ed-st)+len(si))
	nwt := make([]float32, 0, cap(nsi))
	nsi = append(nsi, m.Si[:st]...)
	nwt = append(nwt, m.Wt[:st]...)
	for k, s := range si {
		if wt[k] != 0 {
			nsi = append(nsi, s)
			nwt = append(nwt, wt[k])
		}
	}
	delta := int32(len(nsi)) - ed
	nsi = append(nsi, m.Si[ed:]...)
	nwt = append(nwt, m.Wt[ed:]...)
	m.Si, m.Wt = nsi, nwt
	for r := ri + 1; r <= m.NRecv; r++ {
		m.Ptr[r] += delta
	}
}

// Compress removes connections whose weight has become zero.
func (m *Matrix) Compress() {
	n := int32(0)
	st := int32(0)
	for ri := 0; ri < m.NRecv; ri++ {
		ed := m.Ptr[ri+1]
		for k := st; k < ed; k++ {
			if m.Wt[k] != 0 {
				m.Si[n] = m.Si[k]
				m.Wt[n] = m.Wt[k]
				n++
			}
		}
		st = ed
		m.Ptr[ri+1] = n
	}
	m.Si = m.Si[:n]
	m.Wt = m.Wt[:n]
}

// Triplets returns every connection as (sending index, receiving index,
// weight), ordered by receiving then sending index.
func (m *Matrix) Triplets() (si, ri []int32, wt []float32) {
	si = append([]int32(nil), m.Si...)
	wt = append([]float32(nil), m.Wt...)
	ri = make([]int32, len(si))
	for r := 0; r < m.NRecv; r++ {
		for k := m.Ptr[r]; k < m.Ptr[r+1]; k++ {
			ri[k] = int32(r)
		}
	}
	return
}

// SetTriplets replaces the contents with the given connections, in any
// order. Duplicate connections are summed and zero weights dropped.
func (m *Matrix) SetTriplets(si, ri []int32, wt []float32) error {
	if len(si) != len(ri) || len(si) != len(wt) {
		return fmt.Errorf("sparse.Matrix SetTriplets: %d sending, %d receiving and %d weight values", len(si), len(ri), len(wt))
	}
	ord := make([]int, len(si))
	for k := range ord {
		if si[k] < 0 || int(si[k]) >= m.NSend || ri[k] < 0 || int(ri[k]) >= m.NRecv {
			return fmt.Errorf("sparse.Matrix SetTriplets: connection (%d, %d) is outside %dx%d", si[k], ri[k], m.NSend, m.NRecv)
		}
		ord[k] = k
	}
	sort.SliceStable(ord, func(a, b int) bool {
		ka, kb := ord[a], ord[b]
		if ri[ka] != ri[kb] {
			return ri[ka] < ri[kb]
		}
		return si[ka] < si[kb]
	})
	m.Ptr = make([]int32, m.NRecv+1)
	m.Si = make([]int32, 0, len(si))
	m.Wt = make([]float32, 0, len(si))
	for j, k := range ord {
		if j > 0 {
			pk := ord[j-1]
			if ri[pk] == ri[k] && si[pk] == si[k] {
				m.Wt[len(m.Wt)-1] += wt[k]
				continue
			}
		}
		m.Si = append(m.Si, si[k])
		m.Wt = append(m.Wt, wt[k])
		m.Ptr[ri[k]+1]++
	}
	for r := 1; r <= m.NRecv; r++ {
		m.Ptr[r] += m.Ptr[r-1]
	}
	m.Compress()
	return nil
}
