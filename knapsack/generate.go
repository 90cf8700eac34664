package knapsack

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
)

var (
	ErrClasses  = errors.New("the classes parameter of the generator must be greater than 1")
	ErrFraction = errors.New("the fraction parameter of the generator must be in [0, 1]")
	ErrSmall    = errors.New("the upper bound for profits and weights must be smaller than the knapsack capacity")
	ErrNumItems = errors.New("the number of items must be positive")
)

// GenerateOptions are options for the instance generator.
type GenerateOptions struct {
	classes  int
	fraction float64
	epsilon  float64
	small    int
}

// NewGenerateOptions returns the default generator options.
func NewGenerateOptions() GenerateOptions {
	opt := GenerateOptions{}
	opt.classes = 2
	opt.fraction = 0.1
	opt.epsilon = 0
	opt.small = 10
	return opt
}

// Classes sets the number of profit/weight tiers.
// Items in tier g have profits and weights around capacity/2^(g+1).
func (opt GenerateOptions) Classes(c int) GenerateOptions {
	opt.classes = c
	return opt
}

// Fraction sets the fraction of items drawn uniformly from [1, small].
func (opt GenerateOptions) Fraction(f float64) GenerateOptions {
	opt.fraction = f
	return opt
}

// Epsilon shifts the tiers, profits and weights in tier g are around (1/2^(g+1) + epsilon) * capacity.
func (opt GenerateOptions) Epsilon(e float64) GenerateOptions {
	opt.epsilon = e
	return opt
}

// Small sets the upper bound of the uniform noise added to every profit and weight.
func (opt GenerateOptions) Small(s int) GenerateOptions {
	opt.small = s
	return opt
}

func (opt GenerateOptions) validate(capacity int) error {
	if opt.classes < 2 {
		return errors.Wrapf(ErrClasses, "%d", opt.classes)
	}
	if !(0 <= opt.fraction && opt.fraction <= 1) {
		return errors.Wrapf(ErrFraction, "%f", opt.fraction)
	}
	if opt.small >= capacity {
		return errors.Wrapf(ErrSmall, "small %d capacity %d", opt.small, capacity)
	}
	if opt.small < 1 {
		return errors.Wrapf(ErrSmall, "small %d", opt.small)
	}
	return nil
}

// Generate creates a random instance with numItems items and the given capacity.
// All randomness is drawn from rng, so equal seeds give equal instances.
//
// The instance is validated before it is returned, so a failing generation never produces output.
func Generate(rng *rand.Rand, numItems, capacity int, options ...GenerateOptions) (Instance, error) {
	opt := NewGenerateOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if numItems <= 0 {
		return Instance{}, errors.Wrapf(ErrNumItems, "%d", numItems)
	}
	if capacity <= 0 {
		return Instance{}, errors.Wrapf(ErrCapacity, "%d", capacity)
	}
	if err := opt.validate(capacity); err != nil {
		return Instance{}, errors.Wrap(err, "")
	}

	inst := Instance{Profits: make([]int, 0, numItems), Weights: make([]int, 0, numItems), Capacity: capacity}
	numSmall := int(float64(numItems) * opt.fraction)
	perClass := (numItems - numSmall) / opt.classes
	denominator := 2.0
	for range opt.classes {
		for range perClass {
			num1 := uniform(rng, opt.small)
			num2 := uniform(rng, opt.small)
			pj := int((1/denominator+opt.epsilon)*float64(capacity) + float64(num1))
			wj := int((1/denominator+opt.epsilon)*float64(capacity) + float64(num2))
			if wj > capacity {
				return Instance{}, errors.Wrapf(ErrItemWeight, "item %d weight %d capacity %d", len(inst.Weights), wj, capacity)
			}
			inst.Profits = append(inst.Profits, pj)
			inst.Weights = append(inst.Weights, wj)
		}
		denominator *= 2
	}
	for len(inst.Profits) < numItems {
		inst.Profits = append(inst.Profits, uniform(rng, opt.small))
		inst.Weights = append(inst.Weights, uniform(rng, opt.small))
	}

	if w := inst.TotalWeight(); w <= capacity {
		return Instance{}, errors.Wrapf(ErrTotalWeight, "total %d capacity %d", w, capacity)
	}
	return inst, nil
}

// FileName returns the conventional file name of a generated instance.
func FileName(numItems, capacity int, id string) string {
	return fmt.Sprintf("kp_instance_n_%d_C_%d%s", numItems, capacity, id)
}

// uniform returns an integer in [1, n].
func uniform(rng *rand.Rand, n int) int {
	return 1 + rng.IntN(n)
}
