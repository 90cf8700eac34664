package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumin/kpising"
	"github.com/fumin/kpising/knapsack"
	"github.com/fumin/kpising/qubo"
)

func TestWriteHandoff(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	inst := knapsack.Instance{Profits: []int{10, 10}, Weights: []int{6, 6}, Capacity: 10}
	q, err := qubo.FromInstance(inst, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m, err := kpising.FromQUBO(q)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := writeHandoff(dir, "kp", q, m); err != nil {
		t.Fatalf("%+v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "kp"+extQbsolv))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// The offset 16.5 is lost in the qubist file, so the qbsolv comments carry it.
	if !strings.HasPrefix(string(b), "c kp\nc ising offset 16.5\np qubo 0 6 ") {
		t.Fatalf("%s", b)
	}
	read, err := qubo.ReadQbsolv(strings.NewReader(string(b)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if read.At(0, 0) != q.At(0, 0) {
		t.Fatalf("%f, expected %f", read.At(0, 0), q.At(0, 0))
	}

	f, err := os.Open(filepath.Join(dir, "kp"+extQubist))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer f.Close()
	qm, err := kpising.ReadQubist(f)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	qm.Offset = m.Offset
	if !qm.Equal(m, 0) {
		t.Fatalf("%v, expected %v", qm, m)
	}
}
