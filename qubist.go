package kpising

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/kpising/qubo"
)

var (
	ErrFormat = errors.New("malformed qubist file")
)

// WriteQubist writes the fields and couplings of m in the Qubist format:
// a "<spins> <lines>" header followed by "i i h_i" and "i j J_ij" lines.
// The offset has no place in the format and is not written.
func WriteQubist(w io.Writer, m *Model) error {
	n := m.NumSpins()
	lines := make([]string, 0)
	for i := range n {
		if h := m.Fields.AtVec(i); h != 0 {
			lines = append(lines, fmt.Sprintf("%d %d %s", i, i, formatFloat(h)))
		}
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if v := m.Couplings.At(i, j) + m.Couplings.At(j, i); v != 0 {
				lines = append(lines, fmt.Sprintf("%d %d %s", i, j, formatFloat(v)))
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", n, len(lines))
	for _, l := range lines {
		fmt.Fprintln(bw, l)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// ReadQubist reads a model written by WriteQubist. Its offset is zero.
func ReadQubist(r io.Reader) (*Model, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, errors.Wrap(err, "")
		}
		return nil, errors.Wrap(ErrFormat, "empty")
	}
	header := strings.Fields(s.Text())
	if len(header) != 2 {
		return nil, errors.Wrapf(ErrFormat, "header %q", s.Text())
	}
	n, err := strconv.Atoi(header[0])
	if err != nil || n <= 0 || n > qubo.MaxVariables {
		return nil, errors.Wrapf(ErrFormat, "header %q", s.Text())
	}

	m := newModel(n)
	lineNo := 1
	for s.Scan() {
		lineNo++
		fs := strings.Fields(s.Text())
		if len(fs) == 0 {
			continue
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
		if i < 0 || j < 0 || i >= n || j >= n {
			return nil, errors.Wrapf(ErrFormat, "line %d: index out of range %d", lineNo, n)
		}

		switch {
		case i == j:
			m.Fields.SetVec(i, m.Fields.AtVec(i)+v)
		default:
			if i > j {
				i, j = j, i
			}
			m.Couplings.Set(i, j, m.Couplings.At(i, j)+v)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
