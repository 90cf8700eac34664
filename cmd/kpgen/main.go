// Command kpgen generates a random knapsack instance file.
package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fumin/kpising/knapsack"
)

var (
	numItems = flag.Int("n", 10, "number of items")
	capacity = flag.Int("c", 100, "knapsack capacity")
	classes  = flag.Int("classes", 2, "number of profit and weight tiers")
	fraction = flag.Float64("fraction", 0.1, "fraction of items with small profits and weights")
	epsilon  = flag.Float64("epsilon", 0, "tier shift")
	small    = flag.Int("small", 10, "upper bound of small profits and weights")
	seed     = flag.Uint64("seed", 0, "random seed")
	id       = flag.String("id", "", "suffix of the file name")
	outDir   = flag.String("d", filepath.Join("data", "small"), "output directory")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	opt := knapsack.NewGenerateOptions().Classes(*classes).Fraction(*fraction).Epsilon(*epsilon).Small(*small)
	rng := rand.New(rand.NewPCG(*seed, uint64(*numItems)<<32|uint64(*capacity)))
	inst, err := knapsack.Generate(rng, *numItems, *capacity, opt)
	if err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.MkdirAll(*outDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	fpath := filepath.Join(*outDir, knapsack.FileName(*numItems, *capacity, *id))
	if err := knapsack.WriteFile(fpath, inst); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%s total weight %d", fpath, inst.TotalWeight())
	return nil
}
