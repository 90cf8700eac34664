// Package mpo describes Ising models as Matrix Product Operators, the input of tensor network ground state searches.
//
// Each site tensor has the axes (left, right, up, down), see Figure 35 of
// The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock.
// Physical index 0 is spin up, Z = +1, which is binary variable 1.
package mpo

import (
	"fmt"

	"github.com/fumin/tensor"

	"github.com/fumin/kpising"
)

const (
	leftAxis  = 0
	rightAxis = 1
	upAxis    = 2
	downAxis  = 3
)

var (
	identity = [][]complex64{
		{1, 0},
		{0, 1},
	}
	pauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
)

// Ising returns the MPO of H = offset + sum_i h_i Z_i + sum_{i<j} J_ij Z_i Z_j.
//
// The bond channels are: 0 the Hamiltonian is complete, i+1 Z_i was placed and waits for its partner,
// and N+1 nothing was placed yet. The bond dimension is thus N+2, enough for all-to-all couplings.
func Ising(m *kpising.Model) []*tensor.Dense {
	n := m.NumSpins()
	done, start := 0, n+1
	all := make([]int, n+2)
	for i := range all {
		all[i] = i
	}

	mpo := make([]*tensor.Dense, 0, n)
	for k := range n {
		rows, cols := all, all
		if k == 0 {
			rows = []int{start}
		}
		if k == n-1 {
			cols = []int{done}
		}

		w := newSite(rows, cols)
		w.add(done, done, identity, 1)
		w.add(start, start, identity, 1)
		for i := range k {
			w.add(i+1, i+1, identity, 1)
			w.add(i+1, done, pauliZ, complex(float32(m.Couplings.At(i, k)+m.Couplings.At(k, i)), 0))
		}
		w.add(start, k+1, pauliZ, 1)
		w.add(start, done, pauliZ, complex(float32(m.Fields.AtVec(k)), 0))
		if k == 0 {
			w.add(start, done, identity, complex(float32(m.Offset), 0))
		}
		mpo = append(mpo, w.t)
	}
	return mpo
}

// Diagonal returns <s|H|s> for the computational basis state s.
func Diagonal(mpo []*tensor.Dense, spins []int8) complex64 {
	if len(mpo) != len(spins) {
		panic(fmt.Sprintf("%d %d", len(mpo), len(spins)))
	}

	v := []complex64{1}
	for k, w := range mpo {
		shape := w.Shape()
		if shape[leftAxis] != len(v) {
			panic(fmt.Sprintf("%d %#v %d", k, shape, len(v)))
		}
		phys := 0
		if spins[k] < 0 {
			phys = 1
		}

		next := make([]complex64, shape[rightAxis])
		for a, va := range v {
			if va == 0 {
				continue
			}
			for b := range next {
				next[b] += va * w.At(a, b, phys, phys)
			}
		}
		v = next
	}

	if len(v) != 1 {
		panic(fmt.Sprintf("%d", len(v)))
	}
	return v[0]
}

// site is an MPO tensor restricted to some of the bond channels.
type site struct {
	t *tensor.Dense
	// rows and cols map bond channels to indices along the left and right axes.
	rows map[int]int
	cols map[int]int
}

func newSite(rows, cols []int) site {
	s := site{t: tensor.Zeros(len(rows), len(cols), 2, 2), rows: make(map[int]int), cols: make(map[int]int)}
	for i, r := range rows {
		s.rows[r] = i
	}
	for i, c := range cols {
		s.cols[c] = i
	}
	return s
}

// add adds c*op to the operator from channel a to channel b, if both are present.
func (s site) add(a, b int, op [][]complex64, c complex64) {
	i, ok := s.rows[a]
	if !ok {
		return
	}
	j, ok := s.cols[b]
	if !ok {
		return
	}
	for u, row := range op {
		for d, v := range row {
			if v == 0 {
				continue
			}
			ijud := []int{i, j, u, d}
			s.t.SetAt(ijud, s.t.At(ijud...)+c*v)
		}
	}
}
