package kpising

import (
	"github.com/pkg/errors"

	"github.com/fumin/kpising/knapsack"
)

// A Solution is a spin state read back as a packing.
type Solution struct {
	// Items has one 0/1 entry per item, the slack spins are dropped.
	Items    []byte
	Profit   int
	Weight   int
	Feasible bool
	Energy   float64
}

// Report decodes a spin state of the Ising model of inst.
func Report(inst knapsack.Instance, m *Model, spins []int8) (Solution, error) {
	if len(spins) < inst.NumItems() {
		return Solution{}, errors.Wrapf(ErrLength, "%d spins %d items", len(spins), inst.NumItems())
	}
	e, err := m.Energy(spins)
	if err != nil {
		return Solution{}, errors.Wrap(err, "")
	}

	sol := Solution{Items: Binary(spins[:inst.NumItems()]), Energy: e}
	sol.Profit, err = knapsack.TotalProfit(inst.Profits, sol.Items)
	if err != nil {
		return Solution{}, errors.Wrap(err, "")
	}
	sol.Feasible, sol.Weight, err = knapsack.CheckCapacity(inst.Weights, sol.Items, inst.Capacity)
	if err != nil {
		return Solution{}, errors.Wrap(err, "")
	}
	return sol, nil
}
