// Package types contains the run summary types shared by reporting and
// archiving.
package types

import "time"

// Interval is one HDR segment.
type Interval struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// ParameterSummary is the HDR estimate and diagnostics of one posterior column.
type ParameterSummary struct {
	Parameter string     `json:"parameter" yaml:"parameter"`
	Label     string     `json:"label" yaml:"label"`
	Mass      float64    `json:"mass" yaml:"mass"`
	Intervals []Interval `json:"intervals" yaml:"intervals"`
	Mode      float64    `json:"mode" yaml:"mode"`
	Center    float64    `json:"center" yaml:"center"`
	Width     float64    `json:"width" yaml:"width"`
	Mean      float64    `json:"mean" yaml:"mean"`
	SD        float64    `json:"sd" yaml:"sd"`
	// RHat is omitted for single-chain runs.
	RHat *float64 `json:"rhat,omitempty" yaml:"rhat,omitempty"`
}

// RunSummary describes one completed variant run.
type RunSummary struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	Variant    string             `json:"variant" yaml:"variant"`
	Topology   string             `json:"topology" yaml:"topology"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	Duration   time.Duration      `json:"duration_ns" yaml:"duration_ns"`
	Records    int                `json:"records" yaml:"records"`
	Chains     int                `json:"chains" yaml:"chains"`
	Adapt      int                `json:"adapt" yaml:"adapt"`
	Iterations int                `json:"iterations" yaml:"iterations"`
	Seed       int64              `json:"seed" yaml:"seed"`
	Model      string             `json:"model" yaml:"model"`
	Image      string             `json:"image" yaml:"image"`
	Parameters []ParameterSummary `json:"parameters" yaml:"parameters"`
}
