// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
//   - Every run-time constant (priors, sampler tuning, file paths) lives here
//     and is threaded explicitly through the pipeline; no package keeps
//     ambient global state.
//   - Defaults come from New; Load layers a YAML file and env vars on top.
package config

import (
	"runtime"
)

// Institution maps a display name to the abbreviation used in file names.
// The order of Config.Institutions fixes the institution index.
type Institution struct {
	Name   string `koanf:"name"   validate:"required"`
	Abbrev string `koanf:"abbrev" validate:"required,alphanum"`
}

// Prior holds the hyperprior constants of one model variant.
type Prior struct {
	// Mode and Precision of the normal prior on the population mean.
	Mode      float64 `koanf:"mode"`
	Precision float64 `koanf:"precision" validate:"gt=0"`

	// Shape and Rate of the gamma prior shared by every precision parameter.
	Shape float64 `koanf:"shape" validate:"gt=0"`
	Rate  float64 `koanf:"rate"  validate:"gt=0"`
}

// Variant is one model run: a topology plus its own priors and sampler budget.
type Variant struct {
	Name       string `koanf:"name"       validate:"required"`
	Topology   string `koanf:"topology"   validate:"required,oneof=flat institution department department_within_institution"`
	Chains     int    `koanf:"chains"     validate:"gte=1"`
	Adapt      int    `koanf:"adapt"      validate:"gte=0"`
	Iterations int    `koanf:"iterations" validate:"gte=2"`
	Prior      Prior  `koanf:"prior"`
}

// Columns names the CSV header columns that must be present.
type Columns struct {
	Department string `koanf:"department" validate:"required"`
	Rating     string `koanf:"rating"     validate:"required"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// DataDir holds one CSV file per institution.
	DataDir string `koanf:"data_dir" validate:"required"`

	// FilePattern builds a file name from an institution abbreviation; it must
	// contain exactly one %s verb.
	FilePattern string `koanf:"file_pattern" validate:"required,contains=%s"`

	// ExcludeUnrated drops records whose rating is exactly zero.
	ExcludeUnrated bool `koanf:"exclude_unrated"`

	// Columns names the required CSV columns.
	Columns Columns `koanf:"columns"`

	// Institutions in index order.
	Institutions []Institution `koanf:"institutions" validate:"required,min=1,dive"`

	// OutputDir receives composite images.
	OutputDir string `koanf:"output_dir" validate:"required"`

	// ReportDir receives the per-variant summary file; empty disables it.
	ReportDir string `koanf:"report_dir"`

	// ReportFormat selects the summary file encoding.
	ReportFormat string `koanf:"report_format" validate:"oneof=json yaml"`

	// ArchivePath is the SQLite run archive; empty disables archiving.
	ArchivePath string `koanf:"archive_path"`

	// MetricsFile receives a Prometheus textfile after each run; empty disables it.
	MetricsFile string `koanf:"metrics_file"`

	// HDRMass is the probability mass of every highest density region.
	HDRMass float64 `koanf:"hdr_mass" validate:"gt=0,lt=1"`

	// GridColumns is the column count of composite images.
	GridColumns int `koanf:"grid_columns" validate:"gte=1"`

	// Seed is the base seed; chain k uses Seed+k.
	Seed int64 `koanf:"seed"`

	// Parallelism bounds concurrently running chains.
	Parallelism int `koanf:"parallelism" validate:"gte=1"`

	// RHatWarn is the potential scale reduction above which a warning is logged.
	RHatWarn float64 `koanf:"rhat_warn" validate:"gt=1"`

	// Variants run in order by the run command.
	Variants []Variant `koanf:"variants" validate:"required,min=1,dive"`
}

// New creates a Config populated with defaults.
func New() *Config {
	informative := Prior{Mode: 3.6, Precision: 0.5, Shape: 2, Rate: 2}
	vague := Prior{Mode: 3.5, Precision: 0.5, Shape: 0.01, Rate: 0.01}

	return &Config{
		LogLevel:    "info",
		DataDir:     "data",
		FilePattern: "rmp_%s.csv",
		Columns: Columns{
			Department: "Department",
			Rating:     "Rating",
		},
		Institutions: []Institution{
			{Name: "Acadia University", Abbrev: "acadia"},
			{Name: "Carleton University", Abbrev: "carleton"},
			{Name: "Memorial University of Newfoundland", Abbrev: "mun"},
			{Name: "Mount Allison University", Abbrev: "mta"},
			{Name: "Mount Saint Vincent University", Abbrev: "msvu"},
		},
		OutputDir:    "plots",
		ReportDir:    "reports",
		ReportFormat: "json",
		HDRMass:      0.95,
		GridColumns:  3,
		Seed:         20250414,
		Parallelism:  runtime.NumCPU(),
		RHatWarn:     1.1,
		Variants: []Variant{
			{Name: "flat", Topology: "flat", Chains: 5, Adapt: 2500, Iterations: 10_000, Prior: informative},
			{Name: "institution", Topology: "institution", Chains: 5, Adapt: 2500, Iterations: 25_000, Prior: informative},
			{Name: "department", Topology: "department", Chains: 5, Adapt: 2500, Iterations: 40_000, Prior: vague},
			{Name: "department_within_institution", Topology: "department_within_institution", Chains: 5, Adapt: 2500, Iterations: 50_000, Prior: vague},
		},
	}
}

// Variant returns the variant called name.
func (c *Config) Variant(name string) (Variant, bool) {
	for _, v := range c.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantNames lists configured variants in run order.
func (c *Config) VariantNames() []string {
	names := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		names[i] = v.Name
	}
	return names
}
