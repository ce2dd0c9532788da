package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/bayesrate/pkg/logger"
	"github.com/okian/bayesrate/pkg/metrics"
)

// Rating bounds of the source site's five-point scale. Zero marks "no ratings".
const (
	minRating = 0.0
	maxRating = 5.0
)

type combiner struct {
	dir            string
	pattern        string
	deptColumn     string
	ratingColumn   string
	excludeUnrated bool
	logger         logger.Logger
}

// Combine loads every institution's rating file in configured order and merges
// them into one Dataset. Any missing or malformed file aborts the whole load.
func Combine(ctx context.Context, institutions []Institution, opts ...Option) (*Dataset, error) {
	c := &combiner{
		dir:          ".",
		pattern:      "rmp_%s.csv",
		deptColumn:   "Department",
		ratingColumn: "Rating",
		logger:       logger.Get().Named("dataset"),
	}
	for _, opt := range opts {
		opt(c)
	}

	names := make([]string, len(institutions))
	abbrevs := make([]string, len(institutions))
	for i, inst := range institutions {
		names[i] = inst.Name
		abbrevs[i] = inst.Abbrev
	}
	instReg, err := NewRegistry(names)
	if err != nil {
		return nil, fmt.Errorf("institutions: %w", err)
	}

	ds := &Dataset{
		institutions: instReg,
		abbrevs:      abbrevs,
		perInst:      make([]int, len(institutions)),
	}

	for i, inst := range institutions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(c.dir, fmt.Sprintf(c.pattern, inst.Abbrev))
		rows, err := c.load(path, inst.Name, i+1)
		if err != nil {
			metrics.RecordError("dataset", errorType(err))
			return nil, err
		}
		ds.records = append(ds.records, rows...)
		ds.perInst[i] = len(rows)
		metrics.UpdateDatasetRecords(inst.Name, len(rows))
		c.logger.Debug(ctx, "loaded rating file",
			logger.String("institution", inst.Name),
			logger.String("path", path),
			logger.Int("records", len(rows)),
		)
	}

	if len(ds.records) == 0 {
		return nil, ErrEmpty
	}
	if err := ds.assignDepartments(); err != nil {
		return nil, err
	}

	metrics.UpdateDatasetGroups("institution", instReg.Len())
	metrics.UpdateDatasetGroups("department", ds.departments.Len())
	metrics.UpdateDatasetGroups("nested_department", ds.nested.Len())
	c.logger.Info(ctx, "dataset combined",
		logger.Int("records", len(ds.records)),
		logger.Int("institutions", instReg.Len()),
		logger.Int("departments", ds.departments.Len()),
		logger.Int("nested_departments", ds.nested.Len()),
	)
	return ds, nil
}

// load parses one institution file.
func (c *combiner) load(path, institution string, index int) ([]RatingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingFile, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: no header", ErrMalformed, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	deptCol := slices.Index(header, c.deptColumn)
	ratingCol := slices.Index(header, c.ratingColumn)
	if deptCol < 0 || ratingCol < 0 {
		return nil, fmt.Errorf("%w: %s: header %v lacks %q or %q", ErrMalformed, path, header, c.deptColumn, c.ratingColumn)
	}

	var out []RatingRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
		}

		dept := strings.TrimSpace(row[deptCol])
		if dept == "" {
			return nil, fmt.Errorf("%w: %s:%d: empty %s", ErrMalformed, path, line, c.deptColumn)
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(row[ratingCol]), 64)
		if err != nil || math.IsNaN(rating) || rating < minRating || rating > maxRating {
			return nil, fmt.Errorf("%w: %s:%d: rating %q outside [%g, %g]", ErrMalformed, path, line, row[ratingCol], minRating, maxRating)
		}
		if c.excludeUnrated && rating == 0 {
			continue
		}

		out = append(out, RatingRecord{
			Institution:      institution,
			Department:       dept,
			Rating:           rating,
			InstitutionIndex: index,
		})
	}
	return out, nil
}

// assignDepartments derives department indices from the sorted distinct
// labels, and nested indices from distinct (institution, department) pairs
// sorted by institution index then label. Sorting keeps indices independent
// of file and row order.
func (d *Dataset) assignDepartments() error {
	type pair struct {
		inst int
		dept string
	}

	deptSet := make(map[string]struct{})
	pairSet := make(map[pair]struct{})
	for _, r := range d.records {
		deptSet[r.Department] = struct{}{}
		pairSet[pair{r.InstitutionIndex, r.Department}] = struct{}{}
	}

	depts := make([]string, 0, len(deptSet))
	for k := range deptSet {
		depts = append(depts, k)
	}
	slices.Sort(depts)

	pairs := make([]pair, 0, len(pairSet))
	for k := range pairSet {
		pairs = append(pairs, k)
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		if a.inst != b.inst {
			return a.inst - b.inst
		}
		return strings.Compare(a.dept, b.dept)
	})

	deptReg, err := NewRegistry(depts)
	if err != nil {
		return fmt.Errorf("departments: %w", err)
	}
	labels := make([]string, len(pairs))
	parents := make([]int, len(pairs))
	for i, p := range pairs {
		labels[i] = d.Abbrev(p.inst) + "/" + p.dept
		parents[i] = p.inst
	}
	nestedReg, err := NewRegistry(labels)
	if err != nil {
		return fmt.Errorf("nested departments: %w", err)
	}

	for i := range d.records {
		r := &d.records[i]
		r.DepartmentIndex, _ = deptReg.Index(r.Department)
		r.NestedIndex, _ = nestedReg.Index(d.Abbrev(r.InstitutionIndex) + "/" + r.Department)
	}

	d.departments = deptReg
	d.nested = nestedReg
	d.nestedParent = parents
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrMissingFile):
		return "missing_file"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
