// Package knapsack implements 0/1 knapsack instances, their flat file format and evaluation of item selections.
package knapsack

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrLength      = errors.New("length mismatch")
	ErrEmpty       = errors.New("no items")
	ErrCapacity    = errors.New("capacity must be positive")
	ErrNegative    = errors.New("negative profit or weight")
	ErrItemWeight  = errors.New("non-triviality condition on individual weight violated")
	ErrTotalWeight = errors.New("non-triviality condition on total weight violated")
	ErrTooLarge    = errors.New("instance too large for dynamic programming")
)

// An Instance is a 0/1 knapsack problem.
// Item j has profit Profits[j] and weight Weights[j].
type Instance struct {
	Profits  []int
	Weights  []int
	Capacity int
}

// NumItems returns the number of items.
func (inst Instance) NumItems() int {
	return len(inst.Profits)
}

// TotalWeight returns the weight of all items together.
func (inst Instance) TotalWeight() int {
	var w int
	for _, wj := range inst.Weights {
		w += wj
	}
	return w
}

// TotalProfit returns the profit of all items together.
func (inst Instance) TotalProfit() int {
	var p int
	for _, pj := range inst.Profits {
		p += pj
	}
	return p
}

// Check validates what is needed to encode the instance.
func (inst Instance) Check() error {
	if len(inst.Profits) != len(inst.Weights) {
		return errors.Wrapf(ErrLength, "%d profits %d weights", len(inst.Profits), len(inst.Weights))
	}
	if len(inst.Profits) == 0 {
		return errors.Wrap(ErrEmpty, "")
	}
	if inst.Capacity <= 0 {
		return errors.Wrapf(ErrCapacity, "%d", inst.Capacity)
	}
	for j := range inst.Profits {
		if inst.Profits[j] < 0 || inst.Weights[j] < 0 {
			return errors.Wrapf(ErrNegative, "item %d profit %d weight %d", j, inst.Profits[j], inst.Weights[j])
		}
	}
	return nil
}

// Validate is Check plus the non-triviality conditions:
// no single item exceeds the capacity, and all items together do.
func (inst Instance) Validate() error {
	if err := inst.Check(); err != nil {
		return errors.Wrap(err, "")
	}
	for j, wj := range inst.Weights {
		if wj > inst.Capacity {
			return errors.Wrapf(ErrItemWeight, "item %d weight %d capacity %d", j, wj, inst.Capacity)
		}
	}
	if w := inst.TotalWeight(); w <= inst.Capacity {
		return errors.Wrapf(ErrTotalWeight, "total %d capacity %d", w, inst.Capacity)
	}
	return nil
}

func (inst Instance) String() string {
	return fmt.Sprintf("{n: %d, C: %d, p: %v, w: %v}", inst.NumItems(), inst.Capacity, inst.Profits, inst.Weights)
}

// TotalProfit returns the profit of the items selected by x.
// The j-th entry of x is 1 if item j is packed, 0 otherwise.
func TotalProfit(profits []int, x []byte) (int, error) {
	if len(profits) != len(x) {
		return -1, errors.Wrapf(ErrLength, "%d profits %d bits", len(profits), len(x))
	}
	return dot(profits, x), nil
}

// CheckCapacity reports whether the items selected by x fit into the knapsack, together with their weight.
func CheckCapacity(weights []int, x []byte, capacity int) (bool, int, error) {
	if len(weights) != len(x) {
		return false, -1, errors.Wrapf(ErrLength, "%d weights %d bits", len(weights), len(x))
	}
	w := dot(weights, x)
	return w <= capacity, w, nil
}

// MaxOptimalCells bounds the items times capacity table Optimal is willing to fill.
const MaxOptimalCells = 1 << 32

// Optimal solves the instance exactly by dynamic programming over the capacity.
// It returns the best profit and one selection attaining it.
// Memory is one row of profits plus one bit per item and weight.
func Optimal(inst Instance) (int, []byte, error) {
	if err := inst.Check(); err != nil {
		return -1, nil, errors.Wrap(err, "")
	}
	n, c := inst.NumItems(), inst.Capacity
	cells := uint64(n) * uint64(c+1)
	if cells > MaxOptimalCells {
		return -1, nil, errors.Wrapf(ErrTooLarge, "%d items capacity %d", n, c)
	}

	// best[k] is the best profit within weight k using the items seen so far.
	best := make([]int, c+1)
	// keep has bit j*(c+1)+k set if item j improved best[k].
	keep := make([]uint64, (cells+63)/64)
	for j := range n {
		pj, wj := inst.Profits[j], inst.Weights[j]
		for k := c; k >= wj; k-- {
			if v := best[k-wj] + pj; v > best[k] {
				best[k] = v
				bit := uint64(j)*uint64(c+1) + uint64(k)
				keep[bit/64] |= 1 << (bit % 64)
			}
		}
	}

	x := make([]byte, n)
	k := c
	for j := n - 1; j >= 0; j-- {
		bit := uint64(j)*uint64(c+1) + uint64(k)
		if keep[bit/64]&(1<<(bit%64)) != 0 {
			x[j] = 1
			k -= inst.Weights[j]
		}
	}
	return best[c], x, nil
}

func dot(v []int, x []byte) int {
	var s int
	for i, b := range x {
		s += v[i] * int(b)
	}
	return s
}
