package model

import (
	"fmt"
	"strings"

	"github.com/okian/bayesrate/internal/domain/dataset"
)

// Parameter names shared by every topology.
const (
	PopulationMean       = "population_mean"
	ObservationPrecision = "precision"
	PopulationPrecision  = "population_precision"
	GroupMean            = "mean"
	InstitutionMean      = "institution_mean"
	InstitutionPrecision = "institution_precision"
)

const (
	observationGroup = "rating"
	populationGroup  = "population"
)

// Grouping carries the labels and index arrays a topology may reference.
// Observation arrays are parallel to the ratings; all indices are 1-based.
type Grouping struct {
	Institutions []string
	Departments  []string
	Nested       []string
	// NestedParent maps nested group i+1 to its institution index.
	NestedParent []int

	Institution []int
	Department  []int
	NestedDept  []int
}

// GroupingFrom extracts a Grouping from a combined dataset.
func GroupingFrom(ds *dataset.Dataset) Grouping {
	return Grouping{
		Institutions: ds.Institutions().Names(),
		Departments:  ds.Departments().Names(),
		Nested:       ds.Nested().Names(),
		NestedParent: ds.NestedParents(),
		Institution:  ds.InstitutionIndices(),
		Department:   ds.DepartmentIndices(),
		NestedDept:   ds.NestedIndices(),
	}
}

// Level is one tier of group means above the observations.
type Level struct {
	// Mean names the parameter holding the members' means.
	Mean string
	// Group names what a member stands for.
	Group  string
	Labels []string
	// Precision names the parameter governing spread of members around
	// their parent. Empty for the population level.
	Precision string
	// Parent maps member i+1 to its parent in the next level.
	Parent []int
}

// Size returns the number of members.
func (l Level) Size() int { return len(l.Labels) }

// Indexed reports whether the level's mean is a vector parameter.
func (l Level) Indexed() bool { return l.Group != populationGroup }

// Spec is a structured model description: observations, then levels from
// the lowest grouping up to the population mean.
type Spec struct {
	Topology Topology
	Hyper    Hyper
	// Observations is the number of ratings.
	Observations int
	// ObservationParent maps rating i+1 to its member in Levels[0].
	ObservationParent []int
	Levels            []Level
}

// IndexArray is one named child-to-parent mapping.
type IndexArray struct {
	Name  string
	Index []int
}

// Parameter is one monitorable quantity.
type Parameter struct {
	Name    string
	Width   int
	Indexed bool
}

// Columns returns the posterior column names of p.
func (p Parameter) Columns() []string {
	if !p.Indexed {
		return []string{p.Name}
	}
	out := make([]string, p.Width)
	for i := range out {
		out[i] = fmt.Sprintf("%s[%d]", p.Name, i+1)
	}
	return out
}

// Build assembles the model description for topology t and checks every
// index against its level size.
func Build(t Topology, h Hyper, g Grouping) (*Spec, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	population := Level{Mean: PopulationMean, Group: populationGroup, Labels: []string{populationGroup}}
	var (
		obs    []int
		levels []Level
	)
	switch t {
	case Flat:
		n := max(len(g.Institution), len(g.Department), len(g.NestedDept))
		obs = ones(n)
		levels = []Level{population}
	case ByInstitution:
		obs = g.Institution
		levels = []Level{
			{Mean: GroupMean, Group: "institution", Labels: g.Institutions, Precision: PopulationPrecision, Parent: ones(len(g.Institutions))},
			population,
		}
	case ByDepartment:
		obs = g.Department
		levels = []Level{
			{Mean: GroupMean, Group: "department", Labels: g.Departments, Precision: PopulationPrecision, Parent: ones(len(g.Departments))},
			population,
		}
	case DepartmentWithinInstitution:
		obs = g.NestedDept
		levels = []Level{
			{Mean: GroupMean, Group: "department", Labels: g.Nested, Precision: InstitutionPrecision, Parent: g.NestedParent},
			{Mean: InstitutionMean, Group: "institution", Labels: g.Institutions, Precision: PopulationPrecision, Parent: ones(len(g.Institutions))},
			population,
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownTopology, t)
	}

	s := &Spec{
		Topology:          t,
		Hyper:             h,
		Observations:      len(obs),
		ObservationParent: obs,
		Levels:            levels,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Spec) validate() error {
	if s.Observations == 0 {
		return ErrNoObservations
	}
	if err := checkIndex(observationGroup+"->"+s.Levels[0].Group, s.ObservationParent, s.Levels[0].Size()); err != nil {
		return err
	}
	for i, l := range s.Levels {
		if l.Size() == 0 {
			return fmt.Errorf("%w: level %s has no members", ErrIndexOutOfRange, l.Group)
		}
		if i == len(s.Levels)-1 {
			break
		}
		if len(l.Parent) != l.Size() {
			return fmt.Errorf("%w: %s has %d members but %d parent entries", ErrIndexOutOfRange, l.Group, l.Size(), len(l.Parent))
		}
		if err := checkIndex(l.Group+"->"+s.Levels[i+1].Group, l.Parent, s.Levels[i+1].Size()); err != nil {
			return err
		}
	}

	known := make(map[string]bool)
	for _, p := range s.Precisions() {
		known[p] = true
	}
	for name := range s.Hyper.Overrides {
		if !known[name] {
			return fmt.Errorf("%w: override for unknown precision %q", ErrInvalidHyper, name)
		}
	}
	return nil
}

func checkIndex(name string, idx []int, size int) error {
	for i, v := range idx {
		if v < 1 || v > size {
			return fmt.Errorf("%w: %s[%d] = %d not in [1, %d]", ErrIndexOutOfRange, name, i+1, v, size)
		}
	}
	return nil
}

func ones(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Population returns the top level.
func (s *Spec) Population() Level { return s.Levels[len(s.Levels)-1] }

// Members returns the lowest grouping level, or false for the flat model.
func (s *Spec) Members() (Level, bool) {
	if len(s.Levels) < 2 {
		return Level{}, false
	}
	return s.Levels[0], true
}

// Precisions lists precision parameter names from observations upward.
func (s *Spec) Precisions() []string {
	out := []string{ObservationPrecision}
	for _, l := range s.Levels {
		if l.Precision != "" {
			out = append(out, l.Precision)
		}
	}
	return out
}

// IndexArrays names every child-to-parent mapping the model references.
func (s *Spec) IndexArrays() []IndexArray {
	out := []IndexArray{{Name: observationGroup + "->" + s.Levels[0].Group, Index: s.ObservationParent}}
	for i := 0; i < len(s.Levels)-1; i++ {
		out = append(out, IndexArray{Name: s.Levels[i].Group + "->" + s.Levels[i+1].Group, Index: s.Levels[i].Parent})
	}
	return out
}

// Parameters lists every monitorable parameter, means bottom-up then
// precisions.
func (s *Spec) Parameters() []Parameter {
	var out []Parameter
	for _, l := range s.Levels {
		out = append(out, Parameter{Name: l.Mean, Width: l.Size(), Indexed: l.Indexed()})
	}
	for _, p := range s.Precisions() {
		out = append(out, Parameter{Name: p, Width: 1})
	}
	return out
}

// Parameter looks up a monitorable parameter by name.
func (s *Spec) Parameter(name string) (Parameter, bool) {
	for _, p := range s.Parameters() {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// String renders the model in BUGS notation.
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString("model {\n")
	fmt.Fprintf(&b, "  for (i in 1:%d) {\n    %s[i] ~ dnorm(%s, %s)\n  }\n",
		s.Observations, observationGroup, s.parentRef(0, observationGroup, "i"), ObservationPrecision)
	for i, l := range s.Levels {
		if !l.Indexed() {
			continue
		}
		fmt.Fprintf(&b, "  for (j in 1:%d) {\n    %s[j] ~ dnorm(%s, %s)\n  }\n",
			l.Size(), l.Mean, s.parentRef(i+1, l.Group, "j"), l.Precision)
	}
	fmt.Fprintf(&b, "  %s ~ dnorm(%g, %g)\n", PopulationMean, s.Hyper.Mean.Mode, s.Hyper.Mean.Precision)
	for _, p := range s.Precisions() {
		g := s.Hyper.GammaFor(p)
		fmt.Fprintf(&b, "  %s ~ dgamma(%g, %g)\n", p, g.Shape, g.Rate)
	}
	b.WriteString("}\n")
	return b.String()
}

// parentRef renders the mean a child of group refers to in Levels[level].
func (s *Spec) parentRef(level int, group, v string) string {
	parent := s.Levels[level]
	if !parent.Indexed() {
		return parent.Mean
	}
	return fmt.Sprintf("%s[%s_%s[%s]]", parent.Mean, group, parent.Group, v)
}
