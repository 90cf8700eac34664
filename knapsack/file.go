package knapsack

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrFormat = errors.New("malformed instance file")
)

// Datasets are the subdirectories of an instance collection.
var Datasets = []string{"small", "medium", "large"}

// Write writes inst in the flat text format:
// the number of items, one "<index> <profit> <weight>" line per item, and the capacity.
func Write(w io.Writer, inst Instance) error {
	if len(inst.Profits) != len(inst.Weights) {
		return errors.Wrapf(ErrLength, "%d profits %d weights", len(inst.Profits), len(inst.Weights))
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", inst.NumItems()); err != nil {
		return errors.Wrap(err, "")
	}
	for j := range inst.Profits {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", j, inst.Profits[j], inst.Weights[j]); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if _, err := fmt.Fprintf(bw, "%d\n", inst.Capacity); err != nil {
		return errors.Wrap(err, "")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Read parses an instance in the format written by Write.
func Read(r io.Reader) (Instance, error) {
	s := bufio.NewScanner(r)
	lineNo := 0
	next := func() ([]string, error) {
		for s.Scan() {
			lineNo++
			fs := strings.Fields(s.Text())
			if len(fs) == 0 {
				continue
			}
			return fs, nil
		}
		if err := s.Err(); err != nil {
			return nil, errors.Wrap(err, "")
		}
		return nil, io.EOF
	}
	ints := func(fs []string, want int) ([]int, error) {
		if len(fs) != want {
			return nil, errors.Wrapf(ErrFormat, "line %d: %d fields, expected %d", lineNo, len(fs), want)
		}
		vs := make([]int, 0, want)
		for _, f := range fs {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "line %d: %v", lineNo, err)
			}
			vs = append(vs, v)
		}
		return vs, nil
	}

	fs, err := next()
	if err == io.EOF {
		return Instance{}, errors.Wrap(ErrFormat, "empty")
	}
	if err != nil {
		return Instance{}, errors.Wrap(err, "")
	}
	header, err := ints(fs, 1)
	if err != nil {
		return Instance{}, errors.Wrap(err, "")
	}
	n := header[0]
	if n < 0 {
		return Instance{}, errors.Wrapf(ErrFormat, "%d items", n)
	}

	var inst Instance
	for j := range n {
		fs, err := next()
		if err == io.EOF {
			return Instance{}, errors.Wrapf(ErrFormat, "%d items, expected %d", j, n)
		}
		if err != nil {
			return Instance{}, errors.Wrap(err, "")
		}
		item, err := ints(fs, 3)
		if err != nil {
			return Instance{}, errors.Wrap(err, "")
		}
		inst.Profits = append(inst.Profits, item[1])
		inst.Weights = append(inst.Weights, item[2])
	}

	fs, err = next()
	if err == io.EOF {
		return Instance{}, errors.Wrap(ErrFormat, "missing capacity")
	}
	if err != nil {
		return Instance{}, errors.Wrap(err, "")
	}
	c, err := ints(fs, 1)
	if err != nil {
		return Instance{}, errors.Wrap(err, "")
	}
	inst.Capacity = c[0]

	fs, err = next()
	switch {
	case err == io.EOF:
	case err != nil:
		return Instance{}, errors.Wrap(err, "")
	default:
		return Instance{}, errors.Wrapf(ErrFormat, "line %d: trailing %q", lineNo, strings.Join(fs, " "))
	}
	return inst, nil
}

// ReadFile reads the instance stored at fpath.
func ReadFile(fpath string) (Instance, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return Instance{}, errors.Wrap(err, "")
	}
	defer f.Close()

	inst, err := Read(f)
	if err != nil {
		return Instance{}, errors.Wrap(err, fpath)
	}
	return inst, nil
}

// WriteFile writes inst to fpath.
// The file is written to a temporary path first and renamed on success,
// so fpath either holds the complete instance or is left untouched.
func WriteFile(fpath string, inst Instance) error {
	f, err := os.CreateTemp(filepath.Dir(fpath), "."+filepath.Base(fpath)+".*")
	if err != nil {
		return errors.Wrap(err, "")
	}
	tmpPath := f.Name()

	err = Write(f, inst)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err == nil {
		if err1 := os.Rename(tmpPath, fpath); err1 != nil {
			err = errors.Wrap(err1, "")
		}
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// A Named instance remembers the file it was loaded from.
type Named struct {
	Name string
	Instance
}

// LoadDir loads every instance file in dir whose name starts with "kp", sorted by name.
func LoadDir(dir string) ([]Named, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	insts := make([]Named, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), "kp") {
			continue
		}
		inst, err := ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		insts = append(insts, Named{Name: ent.Name(), Instance: inst})
	}
	slices.SortFunc(insts, func(a, b Named) int { return strings.Compare(a.Name, b.Name) })
	return insts, nil
}

// LoadDataset loads the instances of one of the Datasets under root.
func LoadDataset(root, dataset string) ([]Named, error) {
	if !slices.Contains(Datasets, dataset) {
		return nil, errors.Errorf("unknown dataset %q, expected one of %v", dataset, Datasets)
	}
	insts, err := LoadDir(filepath.Join(root, dataset))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return insts, nil
}
