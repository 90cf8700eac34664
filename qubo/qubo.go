// Package qubo formulates knapsack instances as Quadratic Unconstrained Binary Optimization problems.
//
// Variables are arranged along a chain: first one binary per item telling whether it is packed,
// followed by the slack binaries b_l whose weighted sum sum_l c_l b_l ranges over [0, capacity].
// The coefficients are c_l = 2^l for l < NumSlack-1 and SlackPrefactor for the last one.
// The objective is
//
//	penalty * (sum_j w_j x_j - sum_l c_l b_l)^2 - sum_j p_j x_j
//
// stored as an upper triangular matrix Q with objective x^T Q x.
package qubo

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/kpising/knapsack"
)

const (
	// DefaultPenalty is the conventional penalty constant.
	DefaultPenalty = 1.0
)

var (
	ErrLength   = errors.New("length mismatch")
	ErrCapacity = errors.New("capacity must be positive")
	ErrSlack    = errors.New("slack value out of range")
)

// bitLength returns floor(log2(capacity)).
func bitLength(capacity int) int {
	return bits.Len(uint(capacity)) - 1
}

// NumSlack returns the number of slack binaries, floor(log2(capacity)) + 1.
func NumSlack(capacity int) int {
	return bitLength(capacity) + 1
}

// SlackPrefactor returns the coefficient of the last slack binary, capacity + 1 - 2^floor(log2(capacity)).
// It lets the slack reach exactly capacity when capacity+1 is not a power of two.
func SlackPrefactor(capacity int) int {
	return capacity + 1 - 1<<bitLength(capacity)
}

// SlackCoefficients returns the coefficients c_l of the slack binaries.
func SlackCoefficients(capacity int) []int {
	n := NumSlack(capacity)
	cs := make([]int, 0, n)
	for l := range n - 1 {
		cs = append(cs, 1<<l)
	}
	cs = append(cs, SlackPrefactor(capacity))
	return cs
}

// New returns the QUBO matrix of the knapsack instance with the given profits, weights and capacity.
func New(profits, weights []int, capacity int, penalty float64) (*mat.Dense, error) {
	if len(profits) != len(weights) {
		return nil, errors.Wrapf(ErrLength, "%d profits %d weights", len(profits), len(weights))
	}
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrCapacity, "%d", capacity)
	}

	nItems := len(profits)
	nSlack := NumSlack(capacity)
	n := nItems + nSlack
	last := n - 1
	prefactor := float64(SlackPrefactor(capacity))
	q := mat.NewDense(n, n, nil)

	// Diagonal elements.
	for j := range nItems {
		wj := float64(weights[j])
		q.Set(j, j, penalty*wj*wj-float64(profits[j]))
	}
	for l := range nSlack - 1 {
		q.Set(nItems+l, nItems+l, penalty*math.Pow(4, float64(l)))
	}
	q.Set(last, last, penalty*prefactor*prefactor)

	// Item-item interactions.
	for j := range nItems {
		for jj := j + 1; jj < nItems; jj++ {
			q.Set(j, jj, 2*penalty*float64(weights[j])*float64(weights[jj]))
		}
	}
	// Slack-slack interactions.
	for l := range nSlack - 1 {
		for ll := l + 1; ll < nSlack-1; ll++ {
			q.Set(nItems+l, nItems+ll, 2*penalty*math.Pow(2, float64(l+ll)))
		}
		q.Set(nItems+l, last, penalty*math.Pow(2, float64(l+1))*prefactor)
	}
	// Item-slack interactions.
	for j := range nItems {
		wj := float64(weights[j])
		for l := range nSlack - 1 {
			q.Set(j, nItems+l, -2*penalty*math.Pow(2, float64(l))*wj)
		}
		q.Set(j, last, -2*penalty*prefactor*wj)
	}

	return q, nil
}

// FromInstance returns the QUBO matrix of inst.
func FromInstance(inst knapsack.Instance, penalty float64) (*mat.Dense, error) {
	if err := inst.Check(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	q, err := New(inst.Profits, inst.Weights, inst.Capacity, penalty)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return q, nil
}

// Evaluate returns x^T Q x.
func Evaluate(q mat.Matrix, x []byte) (float64, error) {
	r, c := q.Dims()
	if r != c || r != len(x) {
		return math.NaN(), errors.Wrapf(ErrLength, "%dx%d matrix %d bits", r, c, len(x))
	}
	v := mat.NewVecDense(len(x), nil)
	for i, b := range x {
		v.SetVec(i, float64(b))
	}
	return mat.Inner(v, q, v), nil
}

// EncodeSlack returns the slack binaries whose weighted sum is v, for 0 <= v <= capacity.
func EncodeSlack(capacity, v int) ([]byte, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrCapacity, "%d", capacity)
	}
	if v < 0 || v > capacity {
		return nil, errors.Wrapf(ErrSlack, "%d not in [0, %d]", v, capacity)
	}

	n := NumSlack(capacity)
	b := make([]byte, n)
	// The first n-1 binaries alone reach 2^(n-1)-1.
	if v >= 1<<(n-1) {
		b[n-1] = 1
		v -= SlackPrefactor(capacity)
	}
	for l := range n - 1 {
		b[l] = byte((v >> l) & 1)
	}
	return b, nil
}

// Assignment returns the full binary vector of an item selection.
// When the selection fits, the slack encodes its total weight and the objective equals minus its profit.
// Otherwise the slack is set to capacity, the closest it can get.
func Assignment(inst knapsack.Instance, items []byte) ([]byte, error) {
	_, w, err := knapsack.CheckCapacity(inst.Weights, items, inst.Capacity)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	slack, err := EncodeSlack(inst.Capacity, min(w, inst.Capacity))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	x := make([]byte, 0, len(items)+len(slack))
	x = append(x, items...)
	x = append(x, slack...)
	return x, nil
}
