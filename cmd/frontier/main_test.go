package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/config"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
)

// writeRandomWalk writes a monthly Yahoo-style CSV with a seeded random walk.
func writeRandomWalk(t *testing.T, dir, symbol string, seed int64, drift, vol float64, months int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Adj Close,Volume\n")
	price := 100.0
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,%.4f,1000\n",
			start.AddDate(0, i, 0).Format("2006-01-02"), price, price, price, price, price)
		price *= 1 + drift + vol*rng.NormFloat64()
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))

	writeRandomWalk(t, data, "AAA", 1, 0.010, 0.04, 36)
	writeRandomWalk(t, data, "BBB", 2, 0.006, 0.02, 36)
	writeRandomWalk(t, data, "CCC", 3, 0.015, 0.07, 36)

	return &config.Config{
		DataDir:   data,
		Symbols:   []string{"AAA", "BBB", "CCC"},
		OutputDir: filepath.Join(dir, "out", "charts"),
		Points:    20,
		LogLevel:  "debug",
	}
}

func TestRun_WritesChartsAndFrontier(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer

	result, err := run(cfg, zerolog.New(&buf))
	require.NoError(t, err)

	assert.Equal(t, cfg.Symbols, result.Symbols)
	require.Len(t, result.Mean, 3)
	assert.InDelta(t, 1.0, floats.Sum(result.GMV.Weights), 1e-9)
	require.Len(t, result.Frontier, cfg.Points)

	for _, p := range result.Frontier {
		assert.GreaterOrEqual(t, p.Stdev, result.GMV.Stdev-1e-12)
		assert.InDelta(t, 1.0, floats.Sum(p.Weights), 1e-9)
	}

	require.Len(t, result.Charts, 3)
	for _, name := range []string{PricesChart, CumulativeChart, FrontierChart} {
		body, err := os.ReadFile(filepath.Join(cfg.OutputDir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")), name)
	}

	assert.Contains(t, buf.String(), `"symbol":"BBB"`)
}

func TestRun_MissingSymbolFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Symbols = append(cfg.Symbols, "ZZZ")

	_, err := run(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrMissingData)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "nothing is written when loading fails")
}

func TestRun_CollinearAssetsAreSingular(t *testing.T) {
	cfg := testConfig(t)

	// DDD moves exactly with AAA, so the covariance matrix cannot be inverted.
	body, err := os.ReadFile(filepath.Join(cfg.DataDir, "AAA.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "DDD.csv"), body, 0o644))
	cfg.Symbols = []string{"AAA", "BBB", "DDD"}

	_, err = run(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrSingularMatrix)
}

func execute(t *testing.T, cfg *config.Config, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	fs := flag.NewFlagSet("frontier", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "frontier")
	for _, c := range commands() {
		commander.Register(c, "")
	}
	require.NoError(t, fs.Parse(args))

	var out bytes.Buffer
	status := commander.Execute(context.Background(), &app{cfg: cfg, log: zerolog.Nop(), out: &out})
	return status, out.String()
}

func TestRunCmd_FlagsOverrideConfig(t *testing.T) {
	cfg := testConfig(t)
	outDir := filepath.Join(t.TempDir(), "flagged")
	symbols := cfg.Symbols
	cfg.Symbols = nil

	status, out := execute(t, cfg, "run", "-symbols", strings.Join(symbols, ","), "-out", outDir, "-points", "5")
	require.Equal(t, subcommands.ExitSuccess, status)

	assert.Contains(t, out, "Global minimum variance")
	assert.Contains(t, out, filepath.Join(outDir, FrontierChart))
	assert.Nil(t, cfg.Symbols, "flags must not mutate the loaded config")
}

func TestRunCmd_UsageErrors(t *testing.T) {
	cfg := testConfig(t)

	cfg.Symbols = nil
	status, _ := execute(t, cfg, "run")
	assert.Equal(t, subcommands.ExitUsageError, status, "no symbols configured")

	status, _ = execute(t, testConfig(t), "run", "-points", "1")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestBondCmd(t *testing.T) {
	status, out := execute(t, &config.Config{}, "bond", "-times", "1,2,3", "-cashflows", "5,5,105", "-rate", "0.05")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "price    100.000000")
	assert.Contains(t, out, "duration 2.859410")

	status, _ = execute(t, &config.Config{}, "bond", "-times", "1,x", "-cashflows", "5,105")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, _ = execute(t, &config.Config{}, "bond", "-times", "1,2", "-cashflows", "5,105", "-rate", "-1")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestBootstrapCmd(t *testing.T) {
	status, out := execute(t, &config.Config{}, "bootstrap", "-cashflows", "100,5;0,105", "-prices", "98,95")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "df 0.934762")
	assert.Contains(t, out, "df 0.904762")

	status, out = execute(t, &config.Config{}, "bootstrap", "-cashflows", "100,5;0,105", "-prices", "98,95", "-times", "1,2")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "zero 0.069791")

	status, _ = execute(t, &config.Config{}, "bootstrap", "-cashflows", "1,1;1,1", "-prices", "1,1")
	assert.Equal(t, subcommands.ExitFailure, status)

	status, _ = execute(t, &config.Config{}, "bootstrap", "-cashflows", "", "-prices", "1")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestBootstrapCurve_Singular(t *testing.T) {
	var out bytes.Buffer
	err := bootstrapCurve(&out, zerolog.Nop(), [][]float64{{1, 1}, {1, 1}}, []float64{1, 1}, nil)
	assert.ErrorIs(t, err, domain.ErrSingularMatrix)
	assert.Empty(t, out.String())
}

func TestParseRows(t *testing.T) {
	rows, err := parseRows("100, 5; 0 ,105")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{100, 5}, {0, 105}}, rows)

	_, err = parseRows("1,2;;3,4")
	assert.Error(t, err)
}
