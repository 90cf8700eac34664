package qubo

import (
	"bytes"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/kpising/knapsack"
)

func TestSlack(t *testing.T) {
	t.Parallel()
	tests := []struct {
		capacity     int
		numSlack     int
		prefactor    int
		coefficients []int
	}{
		{capacity: 1, numSlack: 1, prefactor: 1, coefficients: []int{1}},
		{capacity: 7, numSlack: 3, prefactor: 4, coefficients: []int{1, 2, 4}},
		{capacity: 8, numSlack: 4, prefactor: 1, coefficients: []int{1, 2, 4, 1}},
		{capacity: 10, numSlack: 4, prefactor: 3, coefficients: []int{1, 2, 4, 3}},
		{capacity: 15, numSlack: 4, prefactor: 8, coefficients: []int{1, 2, 4, 8}},
		{capacity: 100, numSlack: 7, prefactor: 37, coefficients: []int{1, 2, 4, 8, 16, 32, 37}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d", test.capacity), func(t *testing.T) {
			t.Parallel()
			if n := NumSlack(test.capacity); n != test.numSlack {
				t.Fatalf("%d, expected %d", n, test.numSlack)
			}
			if p := SlackPrefactor(test.capacity); p != test.prefactor {
				t.Fatalf("%d, expected %d", p, test.prefactor)
			}
			cs := SlackCoefficients(test.capacity)
			if !slices.Equal(cs, test.coefficients) {
				t.Fatalf("%v, expected %v", cs, test.coefficients)
			}

			// Every value in [0, capacity] is reachable.
			for v := 0; v <= test.capacity; v++ {
				b, err := EncodeSlack(test.capacity, v)
				if err != nil {
					t.Fatalf("%+v", err)
				}
				var sum int
				for l, bl := range b {
					sum += cs[l] * int(bl)
				}
				if sum != v {
					t.Fatalf("%v sums to %d, expected %d", b, sum, v)
				}
			}
			if _, err := EncodeSlack(test.capacity, test.capacity+1); !errors.Is(err, ErrSlack) {
				t.Fatalf("%+v", err)
			}
			if _, err := EncodeSlack(test.capacity, -1); !errors.Is(err, ErrSlack) {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	q, err := New([]int{10, 10}, []int{6, 6}, 10, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// Variables x0 x1 b0 b1 b2 b3 with slack coefficients 1 2 4 3.
	expected := mat.NewDense(6, 6, []float64{
		26, 72, -12, -24, -48, -36,
		0, 26, -12, -24, -48, -36,
		0, 0, 1, 4, 8, 6,
		0, 0, 0, 4, 16, 12,
		0, 0, 0, 0, 16, 24,
		0, 0, 0, 0, 0, 9,
	})
	if !mat.Equal(q, expected) {
		t.Fatalf("\n%v\nexpected\n%v", mat.Formatted(q), mat.Formatted(expected))
	}

	tests := []struct {
		items     []byte
		slack     []byte
		objective float64
	}{
		// Item 0 alone weighs 6 = 1*0 + 2*1 + 4*1 + 3*0.
		{items: []byte{1, 0}, slack: []byte{0, 1, 1, 0}, objective: -10},
		// Both items weigh 12, the slack reaches at most 10.
		{items: []byte{1, 1}, slack: []byte{1, 1, 1, 1}, objective: 4 - 20},
		{items: []byte{0, 0}, slack: []byte{0, 0, 0, 0}, objective: 0},
		// A wrong slack is penalized.
		{items: []byte{1, 0}, slack: []byte{0, 0, 0, 0}, objective: 36 - 10},
	}
	for _, test := range tests {
		x := append(slices.Clone(test.items), test.slack...)
		v, err := Evaluate(q, x)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if v != test.objective {
			t.Fatalf("%v %f, expected %f", x, v, test.objective)
		}
	}

	if _, err := New([]int{1, 2}, []int{1}, 10, 1); !errors.Is(err, ErrLength) {
		t.Fatalf("%+v", err)
	}
	if _, err := New([]int{1}, []int{1}, 0, 1); !errors.Is(err, ErrCapacity) {
		t.Fatalf("%+v", err)
	}
	if _, err := Evaluate(q, []byte{1, 0}); !errors.Is(err, ErrLength) {
		t.Fatalf("%+v", err)
	}
}

func TestPowerOfTwoCapacity(t *testing.T) {
	t.Parallel()
	inst := knapsack.Instance{Profits: []int{5, 4, 3}, Weights: []int{5, 4, 3}, Capacity: 8}
	q, err := FromInstance(inst, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if r, c := q.Dims(); r != 7 || c != 7 {
		t.Fatalf("%d %d", r, c)
	}
	// The last slack binary has prefactor 1.
	if v := q.At(6, 6); v != 2 {
		t.Fatalf("%f", v)
	}
	for _, v := range q.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%v", mat.Formatted(q))
		}
	}

	// Slack values cover exactly [0, 8].
	maxSlack := 0
	for _, c := range SlackCoefficients(inst.Capacity) {
		maxSlack += c
	}
	if maxSlack != inst.Capacity {
		t.Fatalf("%d", maxSlack)
	}
}

// TestObjective checks, for random instances and every item selection, that the objective
// equals minus the profit when the selection fits, and is strictly larger otherwise whatever the slack.
func TestObjective(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(9, 9))
	for i := range 20 {
		n := 1 + rng.IntN(5)
		inst := knapsack.Instance{Capacity: 1 + rng.IntN(20)}
		for range n {
			inst.Profits = append(inst.Profits, rng.IntN(10))
			inst.Weights = append(inst.Weights, rng.IntN(12))
		}
		penalty := 0.5 + rng.Float64()*3
		t.Run(fmt.Sprintf("%d %v %f", i, inst, penalty), func(t *testing.T) {
			t.Parallel()
			testObjective(t, inst, penalty)
		})
	}
}

func testObjective(t *testing.T, inst knapsack.Instance, penalty float64) {
	q, err := FromInstance(inst, penalty)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	n := inst.NumItems()
	nSlack := NumSlack(inst.Capacity)
	items := make([]byte, n)
	for i := range 1 << n {
		for j := range n {
			items[j] = byte((i >> j) & 1)
		}
		profit, err := knapsack.TotalProfit(inst.Profits, items)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		ok, _, err := knapsack.CheckCapacity(inst.Weights, items, inst.Capacity)
		if err != nil {
			t.Fatalf("%+v", err)
		}

		if ok {
			x, err := Assignment(inst, items)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			v, err := Evaluate(q, x)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if math.Abs(v+float64(profit)) > 1e-6 {
				t.Fatalf("%v %f, expected %d", x, v, -profit)
			}
			continue
		}

		x := make([]byte, n+nSlack)
		copy(x, items)
		for s := range 1 << nSlack {
			for l := range nSlack {
				x[n+l] = byte((s >> l) & 1)
			}
			v, err := Evaluate(q, x)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if v <= -float64(profit) {
				t.Fatalf("%v %f, expected above %d", x, v, -profit)
			}
		}
	}
}

func TestQbsolv(t *testing.T) {
	t.Parallel()
	q, err := New([]int{7, 3, 9}, []int{4, 5, 6}, 11, 1.5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var b bytes.Buffer
	if err := WriteQbsolv(&b, q, "knapsack"); err != nil {
		t.Fatalf("%+v", err)
	}
	read, err := ReadQbsolv(&b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !mat.Equal(read, q) {
		t.Fatalf("\n%v\nexpected\n%v", mat.Formatted(read), mat.Formatted(q))
	}

	// Lower triangular entries are folded onto the upper triangle.
	sym := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b.Reset()
	if err := WriteQbsolv(&b, sym); err != nil {
		t.Fatalf("%+v", err)
	}
	read, err = ReadQbsolv(&b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if expected := mat.NewDense(2, 2, []float64{1, 5, 0, 4}); !mat.Equal(read, expected) {
		t.Fatalf("%v", mat.Formatted(read))
	}

	for _, s := range []string{"", "0 0 1\n", "p qubo 0 2 1 0\n0 0\n", "p qubo 0 2 1 0\n0 5 1\n", "p qubo 0 x 1 0\n", "p qubo 0 9223372036854775807 1 0\n0 0 1\n"} {
		if _, err := ReadQbsolv(bytes.NewBufferString(s)); !errors.Is(err, ErrFormat) {
			t.Fatalf("%q %+v", s, err)
		}
	}
}
