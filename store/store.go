// Package store keeps knapsack instances, their QUBO matrices and solutions in an sqlite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/kpising"
	"github.com/fumin/kpising/knapsack"
)

const (
	tableInstance  = "instance"
	tableItem      = "item"
	tableQUBO      = "qubo"
	tableQUBOEntry = "qubo_entry"
	tableSolution  = "solution"
)

var (
	ErrNotFound = errors.New("not found")
)

// A Store is an sqlite database of knapsack runs.
type Store struct {
	Path string

	db *sql.DB
}

// A Solution is a decoded solver answer for an instance.
type Solution struct {
	Method  string
	Penalty float64
	kpising.Solution
}

// Open opens the database at path, creating the tables if necessary.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// sqlite serializes writers anyway, a single connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if err := prepareDB(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, path)
	}
	return &Store{Path: path, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutInstance saves inst under name, replacing any previous instance of that name.
func (s *Store) PutInstance(ctx context.Context, name string, inst knapsack.Instance) error {
	if err := inst.Check(); err != nil {
		return errors.Wrap(err, name)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, capacity) VALUES (?, ?)`, tableInstance)
		if _, err := tx.ExecContext(ctx, sqlStr, name, inst.Capacity); err != nil {
			return errors.Wrap(err, sqlStr)
		}
		sqlStr = fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableItem)
		if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
			return errors.Wrap(err, sqlStr)
		}
		sqlStr = fmt.Sprintf(`INSERT INTO %s (name, i, profit, weight) VALUES (?, ?, ?, ?)`, tableItem)
		for i, p := range inst.Profits {
			if _, err := tx.ExecContext(ctx, sqlStr, name, i, p, inst.Weights[i]); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%s %d", sqlStr, i))
			}
		}
		return nil
	})
}

// Instance returns the instance saved under name.
func (s *Store) Instance(ctx context.Context, name string) (knapsack.Instance, error) {
	var inst knapsack.Instance
	sqlStr := fmt.Sprintf(`SELECT capacity FROM %s WHERE name=?`, tableInstance)
	err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&inst.Capacity)
	switch {
	case err == sql.ErrNoRows:
		return knapsack.Instance{}, errors.Wrap(ErrNotFound, name)
	case err != nil:
		return knapsack.Instance{}, errors.Wrap(err, "")
	}

	sqlStr = fmt.Sprintf(`SELECT profit, weight FROM %s WHERE name=? ORDER BY i`, tableItem)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return knapsack.Instance{}, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var p, w int
		if err := rows.Scan(&p, &w); err != nil {
			return knapsack.Instance{}, errors.Wrap(err, "")
		}
		inst.Profits = append(inst.Profits, p)
		inst.Weights = append(inst.Weights, w)
	}
	if err := rows.Err(); err != nil {
		return knapsack.Instance{}, errors.Wrap(err, "")
	}
	return inst, nil
}

// Names returns the names of all saved instances in sorted order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	sqlStr := fmt.Sprintf(`SELECT name FROM %s ORDER BY name`, tableInstance)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return names, nil
}

// PutQUBO saves the non-zero entries of the square matrix q, built with penalty, for the instance name.
func (s *Store) PutQUBO(ctx context.Context, name string, penalty float64, q mat.Matrix) error {
	r, c := q.Dims()
	if r != c {
		return errors.Errorf("%d %d", r, c)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, size, penalty) VALUES (?, ?, ?)`, tableQUBO)
		if _, err := tx.ExecContext(ctx, sqlStr, name, r, penalty); err != nil {
			return errors.Wrap(err, sqlStr)
		}
		sqlStr = fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableQUBOEntry)
		if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
			return errors.Wrap(err, sqlStr)
		}
		sqlStr = fmt.Sprintf(`INSERT INTO %s (name, i, j, v) VALUES (?, ?, ?, ?)`, tableQUBOEntry)
		for i := range r {
			for j := range c {
				v := q.At(i, j)
				if v == 0 {
					continue
				}
				if _, err := tx.ExecContext(ctx, sqlStr, name, i, j, v); err != nil {
					return errors.Wrap(err, fmt.Sprintf("%s %d %d", sqlStr, i, j))
				}
			}
		}
		return nil
	})
}

// QUBO returns the matrix and penalty saved for the instance name.
func (s *Store) QUBO(ctx context.Context, name string) (*mat.Dense, float64, error) {
	var size int
	var penalty float64
	sqlStr := fmt.Sprintf(`SELECT size, penalty FROM %s WHERE name=?`, tableQUBO)
	err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&size, &penalty)
	switch {
	case err == sql.ErrNoRows:
		return nil, -1, errors.Wrap(ErrNotFound, name)
	case err != nil:
		return nil, -1, errors.Wrap(err, "")
	}

	q := mat.NewDense(size, size, nil)
	sqlStr = fmt.Sprintf(`SELECT i, j, v FROM %s WHERE name=? ORDER BY i, j`, tableQUBOEntry)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, -1, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var i, j int
		var v float64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, -1, errors.Wrap(err, "")
		}
		q.Set(i, j, v)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, errors.Wrap(err, "")
	}
	return q, penalty, nil
}

// PutSolution appends sol to the solutions of the instance name.
func (s *Store) PutSolution(ctx context.Context, name string, sol Solution) error {
	sqlStr := fmt.Sprintf(`INSERT INTO %s (name, method, penalty, items, profit, weight, feasible, energy) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, tableSolution)
	args := []any{name, sol.Method, sol.Penalty, formatItems(sol.Items), sol.Profit, sol.Weight, sol.Feasible, sol.Energy}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}
	return nil
}

// Solutions returns the solutions of the instance name in insertion order.
func (s *Store) Solutions(ctx context.Context, name string) ([]Solution, error) {
	sqlStr := fmt.Sprintf(`SELECT method, penalty, items, profit, weight, feasible, energy FROM %s WHERE name=? ORDER BY id`, tableSolution)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	sols := make([]Solution, 0)
	for rows.Next() {
		var sol Solution
		var items string
		if err := rows.Scan(&sol.Method, &sol.Penalty, &items, &sol.Profit, &sol.Weight, &sol.Feasible, &sol.Energy); err != nil {
			return nil, errors.Wrap(err, "")
		}
		sol.Items, err = parseItems(items)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		sols = append(sols, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return sols, nil
}

func (s *Store) withTx(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func formatItems(x []byte) string {
	var b strings.Builder
	for _, xi := range x {
		b.WriteByte('0' + xi)
	}
	return b.String()
}

func parseItems(s string) ([]byte, error) {
	x := make([]byte, len(s))
	for i, c := range []byte(s) {
		if c != '0' && c != '1' {
			return nil, errors.Errorf("%q", s)
		}
		x[i] = c - '0'
	}
	return x, nil
}

func prepareDB(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, capacity INTEGER) STRICT`, tableInstance),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, i INTEGER, profit INTEGER, weight INTEGER, PRIMARY KEY (name, i)) STRICT`, tableItem),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, size INTEGER, penalty REAL) STRICT`, tableQUBO),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, i INTEGER, j INTEGER, v REAL, PRIMARY KEY (name, i, j)) STRICT`, tableQUBOEntry),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, method TEXT, penalty REAL, items TEXT, profit INTEGER, weight INTEGER, feasible INTEGER, energy REAL) STRICT`, tableSolution),
	}
	for _, sqlStr := range stmts {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}
