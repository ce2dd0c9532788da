// Package dataset loads per-institution rating files and merges them into one
// indexed dataset.
package dataset

import (
	"fmt"
	"slices"
)

// Registry is a bidirectional label <-> 1-based index table. It is validated
// when built and never mutated afterwards.
type Registry struct {
	labels []string
	index  map[string]int
}

// NewRegistry builds a registry whose index order is the order of labels.
// Empty and duplicate labels are rejected.
func NewRegistry(labels []string) (*Registry, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: registry needs at least one label", ErrRegistry)
	}
	r := &Registry{
		labels: slices.Clone(labels),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("%w: empty label at position %d", ErrRegistry, i+1)
		}
		if _, dup := r.index[l]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrRegistry, l)
		}
		r.index[l] = i + 1
	}
	return r, nil
}

// Index returns the 1-based index of label.
func (r *Registry) Index(label string) (int, bool) {
	i, ok := r.index[label]
	return i, ok
}

// Name returns the label at 1-based index i.
func (r *Registry) Name(i int) (string, bool) {
	if i < 1 || i > len(r.labels) {
		return "", false
	}
	return r.labels[i-1], true
}

// Len returns the number of labels.
func (r *Registry) Len() int { return len(r.labels) }

// Names returns the labels in index order.
func (r *Registry) Names() []string { return slices.Clone(r.labels) }
