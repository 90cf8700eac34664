package mpo

import (
	"fmt"
	"math"
	"testing"

	"github.com/fumin/kpising"
	"github.com/fumin/kpising/knapsack"
)

func TestIsing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		inst    knapsack.Instance
		penalty float64
	}{
		{inst: knapsack.Instance{Profits: []int{1}, Weights: []int{1}, Capacity: 1}, penalty: 2},
		{inst: knapsack.Instance{Profits: []int{10, 10}, Weights: []int{6, 6}, Capacity: 10}, penalty: 1},
		{inst: knapsack.Instance{Profits: []int{7, 3, 9}, Weights: []int{4, 5, 6}, Capacity: 11}, penalty: 0.5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.inst), func(t *testing.T) {
			t.Parallel()
			m, err := kpising.Encode(test.inst, test.penalty)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			n := m.NumSpins()
			mpo := Ising(m)
			if len(mpo) != n {
				t.Fatalf("%d, expected %d", len(mpo), n)
			}
			for k, w := range mpo {
				shape := w.Shape()
				left, right := n+2, n+2
				if k == 0 {
					left = 1
				}
				if k == n-1 {
					right = 1
				}
				if fmt.Sprint(shape) != fmt.Sprint([]int{left, right, 2, 2}) {
					t.Fatalf("%d %v", k, shape)
				}
			}

			spins := make([]int8, n)
			for idx := range 1 << n {
				for j := range n {
					spins[j] = int8(1 - 2*((idx>>j)&1))
				}
				want, err := m.Energy(spins)
				if err != nil {
					t.Fatalf("%+v", err)
				}
				e := Diagonal(mpo, spins)
				if math.Abs(float64(real(e))-want) > 1e-4*math.Max(math.Abs(want), 1) || imag(e) != 0 {
					t.Fatalf("%v %v, expected %f", spins, e, want)
				}
			}
		})
	}
}

func TestIsingOffDiagonal(t *testing.T) {
	t.Parallel()
	inst := knapsack.Instance{Profits: []int{7, 3}, Weights: []int{4, 5}, Capacity: 6}
	m, err := kpising.Encode(inst, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// The Hamiltonian is diagonal, so every site operator is diagonal.
	for k, w := range Ising(m) {
		for ijud, v := range w.All() {
			if ijud[upAxis] != ijud[downAxis] && v != 0 {
				t.Fatalf("%d %v %v", k, ijud, v)
			}
		}
	}
}
