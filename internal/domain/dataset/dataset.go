package dataset

import (
	"slices"
)

// Institution is one configured source: a display name and the abbreviation
// that names its rating file.
type Institution struct {
	Name   string
	Abbrev string
}

// RatingRecord is one professor rating tagged with its grouping indices.
// All indices are 1-based.
type RatingRecord struct {
	Institution      string
	Department       string
	Rating           float64
	InstitutionIndex int
	DepartmentIndex  int
	// NestedIndex identifies the (institution, department) pair.
	NestedIndex int
}

// Dataset is the merged, indexed collection of every institution's records.
// It is immutable once returned by Combine.
type Dataset struct {
	records      []RatingRecord
	institutions *Registry
	abbrevs      []string
	departments  *Registry
	nested       *Registry
	nestedParent []int
	perInst      []int
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns a copy of the merged records in load order.
func (d *Dataset) Records() []RatingRecord { return slices.Clone(d.records) }

// Institutions returns the institution registry in configured order.
func (d *Dataset) Institutions() *Registry { return d.institutions }

// Abbrev returns the abbreviation of the institution at 1-based index i.
func (d *Dataset) Abbrev(i int) string {
	if i < 1 || i > len(d.abbrevs) {
		return ""
	}
	return d.abbrevs[i-1]
}

// Departments returns the registry of distinct department labels, sorted.
func (d *Dataset) Departments() *Registry { return d.departments }

// Nested returns the registry of (institution, department) groups. Labels
// have the form "<abbrev>/<department>".
func (d *Dataset) Nested() *Registry { return d.nested }

// NestedParents maps each nested group (position i -> group i+1) to its
// 1-based institution index.
func (d *Dataset) NestedParents() []int { return slices.Clone(d.nestedParent) }

// InstitutionCounts returns the number of records loaded per institution, in
// configured order.
func (d *Dataset) InstitutionCounts() []int { return slices.Clone(d.perInst) }

// Ratings returns the rating column.
func (d *Dataset) Ratings() []float64 {
	out := make([]float64, len(d.records))
	for i, r := range d.records {
		out[i] = r.Rating
	}
	return out
}

// InstitutionIndices returns each record's institution index.
func (d *Dataset) InstitutionIndices() []int {
	return d.column(func(r RatingRecord) int { return r.InstitutionIndex })
}

// DepartmentIndices returns each record's department index.
func (d *Dataset) DepartmentIndices() []int {
	return d.column(func(r RatingRecord) int { return r.DepartmentIndex })
}

// NestedIndices returns each record's (institution, department) group index.
func (d *Dataset) NestedIndices() []int {
	return d.column(func(r RatingRecord) int { return r.NestedIndex })
}

func (d *Dataset) column(f func(RatingRecord) int) []int {
	out := make([]int, len(d.records))
	for i, r := range d.records {
		out[i] = f(r)
	}
	return out
}
