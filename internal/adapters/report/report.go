// Package report prints HDR summaries to the console and writes run
// summary files.
package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/okian/bayesrate/internal/domain/types"
	"github.com/okian/bayesrate/pkg/logger"
)

// Supported summary formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

// Reporter writes per-parameter lines and run summaries.
type Reporter struct {
	out      io.Writer
	dir      string
	format   string
	rhatWarn float64
	logger   logger.Logger
}

// New creates a Reporter writing lines to stdout and summaries as JSON
// under "reports".
func New(opts ...Option) *Reporter {
	r := &Reporter{
		out:      os.Stdout,
		dir:      "reports",
		format:   FormatJSON,
		rhatWarn: 1.1,
		logger:   logger.Get().Named("report"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Line prints the human-readable estimate of one parameter.
func (r *Reporter) Line(p types.ParameterSummary, estimate fmt.Stringer) error {
	label := ""
	if p.Label != "" && p.Label != p.Parameter {
		label = " (" + p.Label + ")"
	}
	_, err := fmt.Fprintf(r.out, "%s%s: %s\n", p.Parameter, label, estimate)
	return err
}

// Table renders the run's parameters as a bordered table. R-hat values
// above the warning level are highlighted.
func (r *Reporter) Table(run *types.RunSummary) string {
	rows := make([][]string, len(run.Parameters))
	warn := make([]bool, len(run.Parameters))
	for i, p := range run.Parameters {
		rhat := "-"
		if p.RHat != nil {
			rhat = strconv.FormatFloat(*p.RHat, 'f', 3, 64)
			warn[i] = *p.RHat > r.rhatWarn || math.IsInf(*p.RHat, 0)
		}
		rows[i] = []string{
			p.Parameter,
			p.Label,
			intervals(p.Intervals),
			fmtFloat(p.Mode),
			fmtFloat(p.Mean),
			fmtFloat(p.SD),
			rhat,
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("parameter", "label", fmt.Sprintf("%g%% HDR", massPercent(run)), "mode", "mean", "sd", "r-hat").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 6 && row >= 0 && row < len(warn) && warn[row]:
				return warnStyle
			default:
				return cellStyle
			}
		})
	return fmt.Sprintf("%s: %s (%d records, %d chains x %d iterations)\n%s\n",
		run.Variant, run.RunID, run.Records, run.Chains, run.Iterations, t.Render())
}

// Print writes the table to the console writer.
func (r *Reporter) Print(run *types.RunSummary) error {
	_, err := io.WriteString(r.out, r.Table(run))
	return err
}

// WriteSummary writes <dir>/<variant>_summary.<format> and returns its path.
func (r *Reporter) WriteSummary(ctx context.Context, run *types.RunSummary) (string, error) {
	var (
		data []byte
		err  error
	)
	switch r.format {
	case FormatYAML:
		data, err = yaml.Marshal(run)
	case FormatJSON:
		data, err = json.MarshalIndent(run, "", "  ")
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, r.format)
	}
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %w", ErrWriteSummary, r.format, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWriteSummary, r.dir, err)
	}
	path := filepath.Join(r.dir, run.Variant+"_summary."+r.format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWriteSummary, path, err)
	}
	r.logger.Info(ctx, "summary written", logger.String("path", path), logger.String("format", r.format))
	return path, nil
}

func intervals(ivs []types.Interval) string {
	if len(ivs) == 0 {
		return "-"
	}
	s := ""
	for i, iv := range ivs {
		if i > 0 {
			s += " U "
		}
		s += fmt.Sprintf("[%s, %s]", fmtFloat(iv.Lo), fmtFloat(iv.Hi))
	}
	return s
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func massPercent(run *types.RunSummary) float64 {
	if len(run.Parameters) == 0 {
		return 0
	}
	return math.Round(run.Parameters[0].Mass*1000) / 10
}
