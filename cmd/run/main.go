// Command run encodes a directory of knapsack instances as Ising models, solves the small ones exactly,
// and prints a csv comparison with the dynamic programming optimum.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/kpising"
	"github.com/fumin/kpising/knapsack"
	"github.com/fumin/kpising/mpo"
	"github.com/fumin/kpising/qubo"
	"github.com/fumin/kpising/store"
)

const (
	extQbsolv = ".qubo"
	extQubist = ".qubist"
)

var (
	dataDir  = flag.String("d", filepath.Join("data", "small"), "instance directory")
	dbPath   = flag.String("db", filepath.Join("runs", "kpising.db"), "sqlite database")
	penalty  = flag.Float64("penalty", 0, "penalty constant, 0 picks one that guarantees feasible ground states")
	method   = flag.String("method", "matrix", "encoding method, matrix or direct")
	outDir   = flag.String("o", "", "directory for qbsolv and qubist files, none if empty")
	maxSpins = flag.Int("maxspins", kpising.DefaultMaxSpins, "largest model solved exactly")
)

var encoders = map[string]kpising.Encoder{
	"matrix": kpising.MatrixEncoder{},
	"direct": kpising.DirectEncoder{},
}

type result struct {
	name     string
	inst     knapsack.Instance
	spins    int
	solved   bool
	sol      kpising.Solution
	optimum  int
	duration time.Duration
}

func (r result) record() []string {
	rec := []string{r.name, strconv.Itoa(r.inst.NumItems()), strconv.Itoa(r.inst.Capacity), strconv.Itoa(r.spins), "", "", "", "", ""}
	if r.optimum >= 0 {
		rec[8] = strconv.Itoa(r.optimum)
	}
	if r.solved {
		rec[4] = strconv.FormatFloat(r.sol.Energy, 'g', -1, 64)
		rec[5] = strconv.Itoa(r.sol.Profit)
		rec[6] = strconv.Itoa(r.sol.Weight)
		rec[7] = strconv.FormatBool(r.sol.Feasible)
	}
	return rec
}

func solve(ctx context.Context, db *store.Store, named knapsack.Named, enc kpising.Encoder) (result, error) {
	inst := named.Instance
	r := result{name: named.Name, inst: inst}
	if err := inst.Validate(); err != nil {
		log.Printf("%s: %v", named.Name, err)
	}
	p := *penalty
	if p == 0 {
		p = kpising.SafePenalty(inst)
	}

	q, err := qubo.FromInstance(inst, p)
	if err != nil {
		return result{}, errors.Wrap(err, "")
	}
	m, err := enc.Encode(inst, p)
	if err != nil {
		return result{}, errors.Wrap(err, "")
	}
	r.spins = m.NumSpins()
	if err := db.PutInstance(ctx, named.Name, inst); err != nil {
		return result{}, errors.Wrap(err, "")
	}
	if err := db.PutQUBO(ctx, named.Name, p, q); err != nil {
		return result{}, errors.Wrap(err, "")
	}
	if *outDir != "" {
		if err := writeHandoff(*outDir, named.Name, q, m); err != nil {
			return result{}, errors.Wrap(err, "")
		}
	}

	r.optimum, _, err = knapsack.Optimal(inst)
	switch {
	case errors.Is(err, knapsack.ErrTooLarge):
		log.Printf("%s: %v", named.Name, err)
	case err != nil:
		return result{}, errors.Wrap(err, "")
	}

	if r.spins > *maxSpins {
		return r, nil
	}
	start := time.Now()
	state, err := kpising.GroundState(m, kpising.NewGroundStateOptions().MaxSpins(*maxSpins))
	if err != nil {
		return result{}, errors.Wrap(err, "")
	}
	r.duration = time.Since(start)
	r.sol, err = kpising.Report(inst, m, state.Spins)
	if err != nil {
		return result{}, errors.Wrap(err, "")
	}
	r.solved = true
	if err := db.PutSolution(ctx, named.Name, store.Solution{Method: *method, Penalty: p, Solution: r.sol}); err != nil {
		return result{}, errors.Wrap(err, "")
	}

	// Check the tensor network description against the exact energy.
	e := real(mpo.Diagonal(mpo.Ising(m), state.Spins))
	if math.Abs(float64(e)-state.Energy) > 1e-3*math.Max(math.Abs(state.Energy), 1) {
		log.Printf("%s: mpo energy %f, expected %f", named.Name, e, state.Energy)
	}
	return r, nil
}

// handoffComments describe the instance, including the Ising offset that the qubist file cannot hold.
func handoffComments(name string, m *kpising.Model) []string {
	return []string{name, fmt.Sprintf("ising offset %s", strconv.FormatFloat(m.Offset, 'g', -1, 64))}
}

func writeHandoff(dir, name string, q *mat.Dense, m *kpising.Model) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	qf, err := os.Create(filepath.Join(dir, name+extQbsolv))
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := qubo.WriteQbsolv(qf, q, handoffComments(name, m)...); err != nil {
		qf.Close()
		return errors.Wrap(err, "")
	}
	if err := qf.Close(); err != nil {
		return errors.Wrap(err, "")
	}

	mf, err := os.Create(filepath.Join(dir, name+extQubist))
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := kpising.WriteQubist(mf, m); err != nil {
		mf.Close()
		return errors.Wrap(err, "")
	}
	if err := mf.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	enc, ok := encoders[*method]
	if !ok {
		return errors.Errorf("unknown method %q", *method)
	}
	insts, err := knapsack.LoadDir(*dataDir)
	if err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()
	db, err := store.Open(ctx, *dbPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"name", "n", "capacity", "spins", "energy", "profit", "weight", "feasible", "optimum"}); err != nil {
		return errors.Wrap(err, "")
	}
	for _, named := range insts {
		r, err := solve(ctx, db, named, enc)
		if err != nil {
			return errors.Wrap(err, named.Name)
		}
		if err := w.Write(r.record()); err != nil {
			return errors.Wrap(err, "")
		}
		w.Flush()
		if r.solved {
			log.Printf("%s: %d spins solved in %v", r.name, r.spins, r.duration)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
