package kpising

import (
	"math"
	"math/bits"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

const (
	// chunkBits is the log2 of the number of states a worker scans before recomputing the energy from scratch.
	chunkBits = 16

	// DefaultMaxSpins is the default largest model GroundState accepts.
	DefaultMaxSpins = 26
)

var (
	ErrTooManySpins = errors.New("too many spins for exact enumeration")
)

// GroundStateOptions are options for the exact ground state search.
type GroundStateOptions struct {
	maxSpins int
	workers  int
}

// NewGroundStateOptions returns the default ground state search options.
func NewGroundStateOptions() GroundStateOptions {
	opt := GroundStateOptions{}
	opt.maxSpins = DefaultMaxSpins
	opt.workers = runtime.NumCPU()
	return opt
}

// MaxSpins sets the largest model the search accepts.
func (opt GroundStateOptions) MaxSpins(n int) GroundStateOptions {
	opt.maxSpins = n
	return opt
}

// Workers sets the number of goroutines scanning the states.
func (opt GroundStateOptions) Workers(n int) GroundStateOptions {
	opt.workers = max(n, 1)
	return opt
}

// A State is a spin configuration and its energy.
type State struct {
	Spins  []int8
	Energy float64
}

// GroundState finds the lowest energy state of m by enumerating all 2^N spin states.
// Among states of equal energy, the one with the smallest index is returned,
// where the index reads the binary variables as a number with the first spin most significant.
func GroundState(m *Model, options ...GroundStateOptions) (State, error) {
	opt := NewGroundStateOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	n := m.NumSpins()
	if n > opt.maxSpins || n >= 63 {
		return State{}, errors.Wrapf(ErrTooManySpins, "%d > %d", n, opt.maxSpins)
	}
	if n == 0 {
		return State{Spins: []int8{}, Energy: m.Offset}, nil
	}

	sym := m.symmetric()
	numStates := uint64(1) << n
	chunk := uint64(1) << min(chunkBits, n)
	chunks := make(chan uint64)
	go func() {
		defer close(chunks)
		for from := uint64(0); from < numStates; from += chunk {
			chunks <- from
		}
	}()

	type result struct {
		index  uint64
		energy float64
	}
	results := make([]result, opt.workers)
	var wg sync.WaitGroup
	for w := range opt.workers {
		results[w] = result{energy: math.Inf(1)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newScanner(m, sym)
			for from := range chunks {
				idx, e := s.scan(from, from+chunk)
				if better(e, idx, results[w].energy, results[w].index) {
					results[w] = result{index: idx, energy: e}
				}
			}
		}()
	}
	wg.Wait()

	best := results[0]
	for _, r := range results[1:] {
		if better(r.energy, r.index, best.energy, best.index) {
			best = r
		}
	}

	spins := make([]int8, n)
	indexSpins(spins, best.index)
	// Recompute to drop the rounding accumulated by incremental updates.
	e, err := m.Energy(spins)
	if err != nil {
		return State{}, errors.Wrap(err, "")
	}
	return State{Spins: spins, Energy: e}, nil
}

// energyTol absorbs the rounding of incremental energy updates when comparing states.
const energyTol = 1e-9

func better(e float64, idx uint64, bestE float64, bestIdx uint64) bool {
	if math.IsInf(bestE, 1) {
		return e < bestE || idx < bestIdx
	}
	tol := energyTol * max(1, math.Abs(bestE))
	switch {
	case e < bestE-tol:
		return true
	case e > bestE+tol:
		return false
	default:
		return idx < bestIdx
	}
}

// scanner walks a range of states in Gray code order, flipping one spin at a time.
type scanner struct {
	m   *Model
	sym [][]float64

	spins []int8
	// local[i] is h_i + sum_j sym[i][j] s_j.
	local []float64
}

func newScanner(m *Model, sym [][]float64) *scanner {
	n := m.NumSpins()
	return &scanner{m: m, sym: sym, spins: make([]int8, n), local: make([]float64, n)}
}

// scan returns the best state index and energy among the Gray codes of [from, to).
// from must be a multiple of to-from, which is a power of two.
func (s *scanner) scan(from, to uint64) (uint64, float64) {
	n := len(s.spins)
	gray := from ^ (from >> 1)
	indexSpins(s.spins, gray)
	e, _ := s.m.Energy(s.spins)
	for i := range n {
		s.local[i] = s.m.Fields.AtVec(i)
		for j, sj := range s.spins {
			s.local[i] += s.sym[i][j] * float64(sj)
		}
	}

	bestIdx, bestE := gray, e
	for g := from + 1; g < to; g++ {
		// Gray codes of g-1 and g differ in the lowest set bit of g.
		bit := bits.TrailingZeros64(g)
		k := n - 1 - bit
		sk := float64(s.spins[k])
		e -= 2 * sk * s.local[k]
		for i, v := range s.sym[k] {
			s.local[i] -= 2 * v * sk
		}
		s.spins[k] = -s.spins[k]

		gray ^= 1 << bit
		if better(e, gray, bestE, bestIdx) {
			bestIdx, bestE = gray, e
		}
	}
	return bestIdx, bestE
}

// indexSpins sets spins to the state with the given index, first spin most significant.
func indexSpins(spins []int8, idx uint64) {
	n := len(spins)
	for i := range spins {
		switch (idx >> (n - 1 - i)) & 1 {
		case 1:
			spins[i] = 1
		default:
			spins[i] = -1
		}
	}
}

// spinsIndex is the inverse of indexSpins.
func spinsIndex(spins []int8) uint64 {
	var idx uint64
	for _, s := range spins {
		idx <<= 1
		if s > 0 {
			idx |= 1
		}
	}
	return idx
}
