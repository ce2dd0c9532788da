// Package model builds structured descriptions of the hierarchical normal
// models fit to the rating data. Descriptions carry no engine syntax; the
// sampler translates them at its own boundary.
package model

import (
	"fmt"
	"strings"
)

// Topology selects which grouping levels sit between ratings and the
// population mean.
type Topology int

// Supported topologies.
const (
	Flat Topology = iota + 1
	ByInstitution
	ByDepartment
	DepartmentWithinInstitution
)

var topologyNames = map[Topology]string{
	Flat:                        "flat",
	ByInstitution:               "institution",
	ByDepartment:                "department",
	DepartmentWithinInstitution: "department_within_institution",
}

// String returns the configuration tag of t.
func (t Topology) String() string {
	if s, ok := topologyNames[t]; ok {
		return s
	}
	return fmt.Sprintf("topology(%d)", int(t))
}

// ParseTopology maps a configuration tag to a Topology.
func ParseTopology(s string) (Topology, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for t, name := range topologyNames {
		if name == tag {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTopology, s)
}

// NormalPrior is a normal distribution parameterized by mode and precision.
type NormalPrior struct {
	Mode      float64
	Precision float64
}

// GammaPrior is a gamma distribution parameterized by shape and rate.
type GammaPrior struct {
	Shape float64
	Rate  float64
}

// Hyper holds the fixed hyperprior constants of one model variant.
type Hyper struct {
	// Mean is the prior on the population mean.
	Mean NormalPrior
	// Precision is the prior shared by every precision parameter.
	Precision GammaPrior
	// Overrides replaces Precision for individual precision parameters.
	Overrides map[string]GammaPrior
}

// GammaFor returns the prior of the named precision parameter.
func (h Hyper) GammaFor(param string) GammaPrior {
	if g, ok := h.Overrides[param]; ok {
		return g
	}
	return h.Precision
}

// Validate rejects non-positive precisions, shapes and rates.
func (h Hyper) Validate() error {
	if !(h.Mean.Precision > 0) {
		return fmt.Errorf("%w: population mean precision %g", ErrInvalidHyper, h.Mean.Precision)
	}
	check := func(name string, g GammaPrior) error {
		if !(g.Shape > 0) || !(g.Rate > 0) {
			return fmt.Errorf("%w: %s gamma(%g, %g)", ErrInvalidHyper, name, g.Shape, g.Rate)
		}
		return nil
	}
	if err := check("default", h.Precision); err != nil {
		return err
	}
	for name, g := range h.Overrides {
		if err := check(name, g); err != nil {
			return err
		}
	}
	return nil
}
