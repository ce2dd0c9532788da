// Package synthdata writes synthetic per-institution rating files in the
// layout the dataset combiner reads.
package synthdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/bayesrate/pkg/logger"
)

// Header matches the scraper's output schema.
var Header = []string{"Name", "Rating", "Would Take Again (%)", "Difficulty", "Department"}

// Institution describes one synthetic source.
type Institution struct {
	Abbrev string
	// Mean and SD of the normal ratings are drawn from before clamping to [0, 5].
	Mean  float64
	SD    float64
	Count int
	// Departments are assigned round-robin. Empty uses "General".
	Departments []string
}

// Config holds generator settings.
type Config struct {
	Dir     string
	Pattern string
	Seed    uint64
	// UnratedShare is the fraction of professors written with rating 0.
	UnratedShare float64
	Institutions []Institution
}

// Stats summarizes what was written.
type Stats struct {
	Files   int
	Records int
	Unrated int
}

// Generate writes one CSV per institution. Output depends only on cfg.
func Generate(ctx context.Context, cfg Config) (Stats, error) {
	var stats Stats
	if cfg.Pattern == "" {
		cfg.Pattern = "rmp_%s.csv"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return stats, fmt.Errorf("create %s: %w", cfg.Dir, err)
	}

	for k, inst := range cfg.Institutions {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		path := filepath.Join(cfg.Dir, fmt.Sprintf(cfg.Pattern, inst.Abbrev))
		unrated, err := writeInstitution(path, inst, cfg.Seed+uint64(k), cfg.UnratedShare)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Records += inst.Count
		stats.Unrated += unrated
		logger.Get().Info(ctx, "synthetic ratings written",
			logger.String("path", path),
			logger.Int("records", inst.Count),
			logger.Float64("mean", inst.Mean),
		)
	}
	return stats, nil
}

func writeInstitution(path string, inst Institution, seed uint64, unratedShare float64) (int, error) {
	src := rand.NewPCG(seed, seed^0x5bd1e995)
	rating := distuv.Normal{Mu: inst.Mean, Sigma: inst.SD, Src: src}
	difficulty := distuv.Normal{Mu: 3, Sigma: 0.8, Src: src}
	coin := distuv.Uniform{Min: 0, Max: 1, Src: src}
	depts := inst.Departments
	if len(depts) == 0 {
		depts = []string{"General"}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	var unrated int
	for i := range inst.Count {
		r := clamp(round1(rating.Rand()), 0.1, 5)
		takeAgain := strconv.Itoa(int(math.Round(clamp(r*20, 0, 100))))
		if coin.Rand() < unratedShare {
			r, takeAgain = 0, ""
			unrated++
		}
		name := "Prof " + uuid.NewSHA1(uuid.NameSpaceOID, []byte(inst.Abbrev+"/"+strconv.Itoa(i))).String()[:8]
		row := []string{
			name,
			strconv.FormatFloat(r, 'f', 1, 64),
			takeAgain,
			strconv.FormatFloat(clamp(round1(difficulty.Rand()), 1, 5), 'f', 1, 64),
			depts[i%len(depts)],
		}
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}
	return unrated, f.Close()
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func clamp(x, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, x)) }
