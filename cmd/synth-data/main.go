// Command synth-data writes synthetic rating files for every configured
// institution so the pipeline can run without scraped data.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/okian/bayesrate/internal/config"
	"github.com/okian/bayesrate/internal/synthdata"
	"github.com/okian/bayesrate/pkg/logger"
)

// Default generator settings.
const (
	defaultCount        = 200
	defaultSD           = 0.9
	defaultUnratedShare = 0.05
	defaultSeed         = 1
	lowestMean          = 3.0
	highestMean         = 4.2
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newCommand(os.Stdout).Run(ctx, os.Args)
	stop()
	if err != nil {
		logger.Get().Error(context.Background(), "synth-data failed", logger.Error(err))
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "synth-data",
		Usage:  "Write synthetic per-institution rating files",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", Sources: cli.EnvVars(config.ConfigPathEnv)},
			&cli.StringFlag{Name: "dir", Usage: "Output directory (default: data_dir)"},
			&cli.IntFlag{Name: "count", Value: defaultCount, Usage: "Professors per institution"},
			&cli.FloatSliceFlag{Name: "mean", Usage: "True mean rating per institution, in configured order; one value applies to all"},
			&cli.FloatFlag{Name: "sd", Value: defaultSD, Usage: "Rating standard deviation before clamping"},
			&cli.FloatFlag{Name: "unrated-share", Value: defaultUnratedShare, Usage: "Fraction of professors written with rating 0"},
			&cli.StringSliceFlag{Name: "department", Usage: "Department labels assigned round-robin; repeatable"},
			&cli.Uint64Flag{Name: "seed", Value: defaultSeed, Usage: "Generator seed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.LoadFile(ctx, cmd.String("config"))
			if err != nil {
				return err
			}
			gen, err := generatorConfig(cfg, cmd)
			if err != nil {
				return err
			}
			stats, err := synthdata.Generate(ctx, gen)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "wrote %d files, %d records (%d unrated) to %s\n",
				stats.Files, stats.Records, stats.Unrated, gen.Dir)
			return err
		},
	}
}

func generatorConfig(cfg *config.Config, cmd *cli.Command) (synthdata.Config, error) {
	n := len(cfg.Institutions)
	means := cmd.FloatSlice("mean")
	switch len(means) {
	case 0:
		means = spread(n, lowestMean, highestMean)
	case 1:
		one := means[0]
		means = make([]float64, n)
		for i := range means {
			means[i] = one
		}
	case n:
	default:
		return synthdata.Config{}, fmt.Errorf("got %d means for %d institutions", len(means), n)
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.DataDir
	}
	gen := synthdata.Config{
		Dir:          dir,
		Pattern:      cfg.FilePattern,
		Seed:         cmd.Uint64("seed"),
		UnratedShare: cmd.Float("unrated-share"),
	}
	for i, inst := range cfg.Institutions {
		gen.Institutions = append(gen.Institutions, synthdata.Institution{
			Abbrev:      inst.Abbrev,
			Mean:        means[i],
			SD:          cmd.Float("sd"),
			Count:       cmd.Int("count"),
			Departments: cmd.StringSlice("department"),
		})
	}
	return gen, nil
}

// spread returns n evenly spaced values from lo to hi.
func spread(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = (lo + hi) / 2
		return out
	}
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
