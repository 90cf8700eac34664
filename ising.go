// Package kpising maps knapsack problems onto Ising spin glasses.
//
// Binary variables x in {0, 1} become spins s in {-1, +1} through x = (1+s)/2.
// A QUBO objective x^T Q x then turns into the Ising energy
//
//	offset + sum_i h_i s_i + sum_{i<j} J_ij s_i s_j
//
// which can be handed to an external quantum or quantum-inspired solver.
package kpising

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrLength = errors.New("length mismatch")
)

// A Model is an Ising spin glass.
type Model struct {
	// Offset is the constant energy, needed to recover the cost of the original problem.
	Offset float64
	// Fields are the one-qubit couplings, aka longitudinal magnetic fields.
	Fields *mat.VecDense
	// Couplings are the two-qubit couplings, strictly upper triangular.
	Couplings *mat.Dense
}

func newModel(n int) *Model {
	return &Model{Fields: mat.NewVecDense(n, nil), Couplings: mat.NewDense(n, n, nil)}
}

// NumSpins returns the number of spins.
func (m *Model) NumSpins() int {
	return m.Fields.Len()
}

// FromQUBO returns the Ising model whose energy equals x^T Q x at every spin state.
// Both triangles of q contribute, for an upper triangular q this is the usual mapping.
func FromQUBO(q mat.Matrix) (*Model, error) {
	n, c := q.Dims()
	if n != c {
		return nil, errors.Wrapf(ErrLength, "%dx%d", n, c)
	}

	m := newModel(n)
	for i := range n {
		qii := q.At(i, i)
		m.Offset += 0.5 * qii
		m.Fields.SetVec(i, m.Fields.AtVec(i)+0.5*qii)
		for j := i + 1; j < n; j++ {
			qij := q.At(i, j) + q.At(j, i)
			if qij == 0 {
				continue
			}
			m.Offset += 0.25 * qij
			m.Fields.SetVec(i, m.Fields.AtVec(i)+0.25*qij)
			m.Fields.SetVec(j, m.Fields.AtVec(j)+0.25*qij)
			m.Couplings.Set(i, j, 0.25*qij)
		}
	}
	return m, nil
}

// Energy returns the energy of a spin state.
func (m *Model) Energy(spins []int8) (float64, error) {
	if len(spins) != m.NumSpins() {
		return math.NaN(), errors.Wrapf(ErrLength, "%d spins, expected %d", len(spins), m.NumSpins())
	}
	s := mat.NewVecDense(len(spins), nil)
	for i, si := range spins {
		s.SetVec(i, float64(si))
	}
	return m.Offset + mat.Dot(m.Fields, s) + mat.Inner(s, m.Couplings, s), nil
}

// Equal reports whether m and b have the same couplings up to tol.
func (m *Model) Equal(b *Model, tol float64) bool {
	if m.NumSpins() != b.NumSpins() {
		return false
	}
	if !scalar.EqualWithinAbsOrRel(m.Offset, b.Offset, tol, tol) {
		return false
	}
	if !mat.EqualApprox(m.Fields, b.Fields, tol) {
		return false
	}
	return mat.EqualApprox(m.Couplings, b.Couplings, tol)
}

// Spins maps binary variables onto spins, s = 2x - 1.
func Spins(x []byte) []int8 {
	s := make([]int8, len(x))
	for i, b := range x {
		switch b {
		case 0:
			s[i] = -1
		default:
			s[i] = 1
		}
	}
	return s
}

// Binary maps spins onto binary variables, x = (1+s)/2.
func Binary(s []int8) []byte {
	x := make([]byte, len(s))
	for i, si := range s {
		if si > 0 {
			x[i] = 1
		}
	}
	return x
}

// symmetric returns the full coupling matrix J + J^T, as row slices.
func (m *Model) symmetric() [][]float64 {
	n := m.NumSpins()
	sym := make([][]float64, n)
	for i := range sym {
		sym[i] = make([]float64, n)
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			v := m.Couplings.At(i, j) + m.Couplings.At(j, i)
			sym[i][j] = v
			sym[j][i] = v
		}
	}
	return sym
}
