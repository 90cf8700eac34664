package qubo

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// MaxVariables bounds the size of a matrix read from a file, a dense matrix of this size takes 512MB.
	MaxVariables = 1 << 13
)

var (
	ErrFormat = errors.New("malformed qbsolv file")
)

// WriteQbsolv writes q in the qbsolv ".qubo" format.
// Entries below the diagonal are folded onto the upper triangle.
func WriteQbsolv(w io.Writer, q mat.Matrix, comments ...string) error {
	n, c := q.Dims()
	if n != c {
		return errors.Wrapf(ErrLength, "%dx%d", n, c)
	}

	var numNodes, numCouplers int
	for i := range n {
		if q.At(i, i) != 0 {
			numNodes++
		}
		for j := i + 1; j < n; j++ {
			if q.At(i, j)+q.At(j, i) != 0 {
				numCouplers++
			}
		}
	}

	bw := bufio.NewWriter(w)
	for _, c := range comments {
		fmt.Fprintf(bw, "c %s\n", c)
	}
	fmt.Fprintf(bw, "p qubo 0 %d %d %d\n", n, numNodes, numCouplers)
	for i := range n {
		if v := q.At(i, i); v != 0 {
			fmt.Fprintf(bw, "%d %d %s\n", i, i, formatFloat(v))
		}
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if v := q.At(i, j) + q.At(j, i); v != 0 {
				fmt.Fprintf(bw, "%d %d %s\n", i, j, formatFloat(v))
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// ReadQbsolv reads an upper triangular QUBO matrix in the qbsolv ".qubo" format.
func ReadQbsolv(r io.Reader) (*mat.Dense, error) {
	var q *mat.Dense
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		fs := strings.Fields(s.Text())
		if len(fs) == 0 {
			continue
		}
		switch fs[0] {
		case "c":
			continue
		case "p":
			if len(fs) != 6 || fs[1] != "qubo" {
				return nil, errors.Wrapf(ErrFormat, "line %d: %q", lineNo, s.Text())
			}
			if q != nil {
				return nil, errors.Wrapf(ErrFormat, "line %d: second header", lineNo)
			}
			n, err := strconv.Atoi(fs[3])
			if err != nil || n <= 0 || n > MaxVariables {
				return nil, errors.Wrapf(ErrFormat, "line %d: %q", lineNo, s.Text())
			}
			q = mat.NewDense(n, n, nil)
			continue
		}

		if q == nil {
			return nil, errors.Wrapf(ErrFormat, "line %d: entry before header", lineNo)
		}
		if len(fs) != 3 {
			return nil, errors.Wrapf(ErrFormat, "line %d: %q", lineNo, s.Text())
		}
		i, err := strconv.Atoi(fs[0])
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "line %d: %v", lineNo, err)
		}
		j, err := strconv.Atoi(fs[1])
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "line %d: %v", lineNo, err)
		}
		v, err := strconv.ParseFloat(fs[2], 64)
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "line %d: %v", lineNo, err)
		}
		n, _ := q.Dims()
		if i < 0 || j < 0 || i >= n || j >= n {
			return nil, errors.Wrapf(ErrFormat, "line %d: index out of range %d", lineNo, n)
		}
		if i > j {
			i, j = j, i
		}
		q.Set(i, j, q.At(i, j)+v)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if q == nil {
		return nil, errors.Wrap(ErrFormat, "missing header")
	}
	return q, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
