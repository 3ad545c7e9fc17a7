package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/config"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/linalg"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/charts"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/marketdata"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/optimization"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/utils"
)

// Output file names inside the configured output directory.
const (
	PricesChart     = "prices.png"
	CumulativeChart = "cumulative.png"
	FrontierChart   = "frontier.png"
)

type runCmd struct {
	symbols string
	dataDir string
	outDir  string
	points  int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "compute the efficient frontier and write the charts" }
func (*runCmd) Usage() string {
	return `run [-symbols AAPL,MSFT] [-data <dir>] [-out <dir>] [-points <n>]

  Loads <data>/<SYMBOL>.csv for every symbol, computes the global minimum
  variance portfolio and the efficient frontier, and writes prices.png,
  cumulative.png and frontier.png into the output directory.
  Flags override FRONTIER_SYMBOLS, FRONTIER_DATA_DIR, FRONTIER_OUTPUT_DIR and
  FRONTIER_POINTS.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", "", "Comma-separated symbols")
	f.StringVar(&c.dataDir, "data", "", "Directory holding the price CSV files")
	f.StringVar(&c.outDir, "out", "", "Directory the charts are written to")
	f.IntVar(&c.points, "points", 0, "Number of frontier points")
}

// apply returns a copy of cfg with the non-empty flags applied.
func (c *runCmd) apply(cfg *config.Config) (*config.Config, error) {
	out := *cfg
	if c.symbols != "" {
		out.Symbols = nil
		for _, s := range strings.Split(c.symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out.Symbols = append(out.Symbols, s)
			}
		}
	}
	if c.dataDir != "" {
		dir, err := filepath.Abs(c.dataDir)
		if err != nil {
			return nil, err
		}
		out.DataDir = dir
	}
	if c.outDir != "" {
		dir, err := filepath.Abs(c.outDir)
		if err != nil {
			return nil, err
		}
		out.OutputDir = dir
	}
	if c.points != 0 {
		out.Points = c.points
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	if err := out.RequireSymbols(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *runCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := fromArgs(args)
	if a == nil {
		return subcommands.ExitFailure
	}

	cfg, err := c.apply(a.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a.log.Info().
		Str("data_dir", cfg.DataDir).
		Strs("symbols", cfg.Symbols).
		Str("output_dir", cfg.OutputDir).
		Msg("Starting efficient frontier run")

	result, err := run(cfg, a.log)
	if err != nil {
		a.log.Error().Err(err).Msg("Efficient frontier run failed")
		return subcommands.ExitFailure
	}

	a.log.Info().
		Float64("gmv_return", result.GMV.Return).
		Float64("gmv_stdev", result.GMV.Stdev).
		Floats64("gmv_weights", result.GMV.Weights).
		Int("frontier_points", len(result.Frontier)).
		Strs("charts", result.Charts).
		Msg("Efficient frontier run complete")

	fmt.Fprintf(a.out, "Global minimum variance: return %.6f, stdev %.6f\n", result.GMV.Return, result.GMV.Stdev)
	for i, sym := range result.Symbols {
		fmt.Fprintf(a.out, "  %-10s mean %+.6f  weight %+.4f\n", sym, result.Mean[i], result.GMV.Weights[i])
	}
	for _, p := range result.Charts {
		fmt.Fprintln(a.out, p)
	}
	return subcommands.ExitSuccess
}

// summary is what a run produced.
type summary struct {
	Symbols  []string
	Mean     []float64
	GMV      optimization.FrontierPoint
	Frontier []optimization.FrontierPoint
	Charts   []string
}

func run(cfg *config.Config, log zerolog.Logger) (*summary, error) {
	loader := marketdata.NewLoader(cfg.DataDir, log)
	mvo := optimization.NewMVOptimizer(linalg.Default, log)
	chartService := charts.NewService(log)

	done := utils.Track("load_prices", log)
	prices, err := loader.LoadPrices(cfg.Symbols)
	done()
	if err != nil {
		return nil, err
	}
	done = utils.Track("statistics", log)
	returns := marketdata.Returns(prices)

	mean, err := marketdata.MeanReturns(returns)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean returns: %w", err)
	}
	cov, err := marketdata.Covariance(returns)
	if err != nil {
		return nil, fmt.Errorf("failed to compute covariance: %w", err)
	}
	done()

	timer := utils.NewTimer("frontier", log)
	gmv, err := mvo.Evaluate(mean, cov, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compute global minimum variance portfolio: %w", err)
	}
	for i, sym := range prices.Symbols {
		log.Info().
			Str("symbol", sym).
			Float64("mean_return", mean[i]).
			Float64("gmv_weight", gmv.Weights[i]).
			Msg("Asset")
	}

	targets, err := mvo.FrontierTargets(mean, cov, cfg.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to build frontier targets: %w", err)
	}
	frontier, err := mvo.EfficientFrontier(mean, cov, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to compute efficient frontier: %w", err)
	}
	timer.Stop()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	renders := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{PricesChart, func() ([]byte, error) { return chartService.PriceHistory(prices) }},
		{CumulativeChart, func() ([]byte, error) { return chartService.CumulativeChange(prices) }},
		{FrontierChart, func() ([]byte, error) { return chartService.EfficientFrontier(frontier, &gmv) }},
	}

	defer utils.Track("charts", log)()
	written := make([]string, 0, len(renders))
	for _, r := range renders {
		png, err := r.render()
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", r.name, err)
		}
		path := filepath.Join(cfg.OutputDir, r.name)
		if err := os.WriteFile(path, png, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Debug().Str("path", path).Int("bytes", len(png)).Msg("Wrote chart")
		written = append(written, path)
	}

	return &summary{
		Symbols:  prices.Symbols,
		Mean:     mean,
		GMV:      gmv,
		Frontier: frontier,
		Charts:   written,
	}, nil
}
