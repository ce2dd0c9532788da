// Package posterior holds the merged draws of every sampling chain.
package posterior

import (
	"fmt"
	"slices"
	"strings"
)

// Table stores draws column-major. Rows are grouped by chain: chain c owns
// rows [c*iterations, (c+1)*iterations).
type Table struct {
	columns    []string
	index      map[string]int
	data       [][]float64
	chains     int
	iterations int
}

// NewTable preallocates a table for the given columns and chain layout.
func NewTable(columns []string, chains, iterations int) (*Table, error) {
	if len(columns) == 0 || chains < 1 || iterations < 1 {
		return nil, fmt.Errorf("%w: %d columns, %d chains, %d iterations", ErrShape, len(columns), chains, iterations)
	}
	t := &Table{
		columns:    slices.Clone(columns),
		index:      make(map[string]int, len(columns)),
		data:       make([][]float64, len(columns)),
		chains:     chains,
		iterations: iterations,
	}
	rows := chains * iterations
	for i, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c)
		}
		t.index[c] = i
		t.data[i] = make([]float64, rows)
	}
	return t, nil
}

// Rows returns chains times iterations.
func (t *Table) Rows() int { return t.chains * t.iterations }

// Chains returns the number of chains.
func (t *Table) Chains() int { return t.chains }

// Iterations returns the recorded iterations per chain.
func (t *Table) Iterations() int { return t.iterations }

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// ColumnIndex resolves a column name to its position.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Store writes one draw. Distinct chains touch disjoint rows, so chains may
// store concurrently.
func (t *Table) Store(col, chain, iter int, v float64) {
	t.data[col][chain*t.iterations+iter] = v
}

// Column returns a copy of every draw of a scalar column or an indexed
// element such as "mean[2]".
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return slices.Clone(t.data[i]), nil
}

// ChainColumn returns the draws of one chain for a column.
func (t *Table) ChainColumn(name string, chain int) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if chain < 0 || chain >= t.chains {
		return nil, fmt.Errorf("%w: chain %d of %d", ErrShape, chain, t.chains)
	}
	lo := chain * t.iterations
	return slices.Clone(t.data[i][lo : lo+t.iterations]), nil
}

// Vector returns every element column of an indexed parameter, in index
// order.
func (t *Table) Vector(name string) ([][]float64, error) {
	var out [][]float64
	for k := 1; ; k++ {
		i, ok := t.index[fmt.Sprintf("%s[%d]", name, k)]
		if !ok {
			break
		}
		out = append(out, slices.Clone(t.data[i]))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no elements of %q", ErrUnknownColumn, name)
	}
	return out, nil
}

// Base strips the element suffix from a column name.
func Base(column string) string {
	if i := strings.IndexByte(column, '['); i >= 0 {
		return column[:i]
	}
	return column
}
