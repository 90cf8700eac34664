package kpising

import (
	"github.com/pkg/errors"

	"github.com/fumin/kpising/knapsack"
	"github.com/fumin/kpising/qubo"
)

// An Encoder computes the Ising model of a knapsack instance.
type Encoder interface {
	Encode(inst knapsack.Instance, penalty float64) (*Model, error)
}

// MatrixEncoder builds the QUBO matrix first and maps it onto spins.
type MatrixEncoder struct{}

func (MatrixEncoder) Encode(inst knapsack.Instance, penalty float64) (*Model, error) {
	q, err := qubo.FromInstance(inst, penalty)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	m, err := FromQUBO(q)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

// DirectEncoder computes the couplings in closed form without the QUBO matrix.
//
// Writing a for the signed coefficients (w_1, ..., w_n, -c_0, ..., -c_{M-1}) of the constraint
// and A for their sum, the objective penalty * (a.x)^2 - p.x becomes
//
//	J_ij   = penalty/2 * a_i a_j
//	h_i    = penalty/2 * a_i A - p_i/2
//	offset = penalty/4 * (sum_i a_i^2 + A^2) - sum_i p_i / 2
//
// where p_i is zero for the slack spins.
type DirectEncoder struct{}

func (DirectEncoder) Encode(inst knapsack.Instance, penalty float64) (*Model, error) {
	if err := inst.Check(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	// a are the signed constraint coefficients, p the profits padded with zeros.
	nItems := inst.NumItems()
	cs := qubo.SlackCoefficients(inst.Capacity)
	n := nItems + len(cs)
	a := make([]float64, 0, n)
	p := make([]float64, n)
	for j, wj := range inst.Weights {
		a = append(a, float64(wj))
		p[j] = float64(inst.Profits[j])
	}
	for _, c := range cs {
		a = append(a, -float64(c))
	}

	var sumA, sumA2, sumP float64
	for i, ai := range a {
		sumA += ai
		sumA2 += ai * ai
		sumP += p[i]
	}

	m := newModel(n)
	m.Offset = 0.25*penalty*(sumA2+sumA*sumA) - 0.5*sumP
	for i, ai := range a {
		m.Fields.SetVec(i, 0.5*penalty*ai*sumA-0.5*p[i])
		for j := i + 1; j < n; j++ {
			m.Couplings.Set(i, j, 0.5*penalty*ai*a[j])
		}
	}
	return m, nil
}

// Encode computes the Ising model of inst with the default matrix encoder.
func Encode(inst knapsack.Instance, penalty float64) (*Model, error) {
	m, err := MatrixEncoder{}.Encode(inst, penalty)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

// SafePenalty returns a penalty large enough for the ground state to be an optimal packing:
// any infeasible selection then pays more than the total profit it could gain.
func SafePenalty(inst knapsack.Instance) float64 {
	return float64(inst.TotalProfit() + 1)
}
