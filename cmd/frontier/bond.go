package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/linalg"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/bonds"
)

type bondCmd struct {
	times     string
	cashflows string
	rate      float64
}

func (*bondCmd) Name() string     { return "bond" }
func (*bondCmd) Synopsis() string { return "price a cashflow schedule and measure its duration" }
func (*bondCmd) Usage() string {
	return `bond -times 1,2,3 -cashflows 5,5,105 -rate 0.05

  Prints the present value of the schedule discounted at the periodic rate and
  its duration. Times are in periods.
`
}

func (c *bondCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.times, "times", "", "Comma-separated payment times (required)")
	f.StringVar(&c.cashflows, "cashflows", "", "Comma-separated cashflows (required)")
	f.Float64Var(&c.rate, "rate", 0, "Periodic discount rate")
}

func (c *bondCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := fromArgs(args)
	if a == nil {
		return subcommands.ExitFailure
	}

	times, err := parseFloats(c.times)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -times: %v\n", err)
		return subcommands.ExitUsageError
	}
	cashflows, err := parseFloats(c.cashflows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -cashflows: %v\n", err)
		return subcommands.ExitUsageError
	}

	if err := priceBond(a.out, a.log, times, cashflows, c.rate); err != nil {
		a.log.Error().Err(err).Msg("Bond analytics failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func priceBond(out io.Writer, log zerolog.Logger, times, cashflows []float64, rate float64) error {
	schedule, err := bonds.NewSchedule(times, cashflows)
	if err != nil {
		return err
	}

	price, err := bonds.Price(schedule, rate)
	if err != nil {
		return err
	}
	duration, err := bonds.Duration(schedule, rate)
	if err != nil {
		return err
	}

	log.Debug().
		Int("cashflows", schedule.Len()).
		Float64("rate", rate).
		Float64("price", price).
		Float64("duration", duration).
		Msg("Priced bond")

	fmt.Fprintf(out, "price    %.6f\n", price)
	fmt.Fprintf(out, "duration %.6f\n", duration)
	return nil
}

type bootstrapCmd struct {
	cashflows string
	prices    string
	times     string
}

func (*bootstrapCmd) Name() string     { return "bootstrap" }
func (*bootstrapCmd) Synopsis() string { return "imply discount factors from bond prices" }
func (*bootstrapCmd) Usage() string {
	return `bootstrap -cashflows "100,5;0,105" -prices 98,95 [-times 1,2]

  Solves C·x = p where C has one row per bond (rows separated by ';') and one
  column per payment date. Prints one discount factor per date and, when
  -times is given, the matching periodic zero rate.
`
}

func (c *bootstrapCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cashflows, "cashflows", "", "Cashflow matrix, rows separated by ';' (required)")
	f.StringVar(&c.prices, "prices", "", "Comma-separated bond prices (required)")
	f.StringVar(&c.times, "times", "", "Comma-separated payment times for zero rates")
}

func (c *bootstrapCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := fromArgs(args)
	if a == nil {
		return subcommands.ExitFailure
	}

	rows, err := parseRows(c.cashflows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -cashflows: %v\n", err)
		return subcommands.ExitUsageError
	}
	prices, err := parseFloats(c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -prices: %v\n", err)
		return subcommands.ExitUsageError
	}
	var times []float64
	if c.times != "" {
		if times, err = parseFloats(c.times); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -times: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	if err := bootstrapCurve(a.out, a.log, rows, prices, times); err != nil {
		a.log.Error().Err(err).Msg("Bootstrap failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func bootstrapCurve(out io.Writer, log zerolog.Logger, rows [][]float64, prices, times []float64) error {
	cashflows, err := linalg.FromRows(rows)
	if err != nil {
		return err
	}

	dfs, err := bonds.Bootstrap(linalg.Default, cashflows, prices)
	if err != nil {
		return err
	}
	factors := dfs.RawVector().Data

	var zeros []float64
	if times != nil {
		if zeros, err = bonds.ZeroRates(times, factors); err != nil {
			return err
		}
	}

	log.Debug().
		Int("dates", len(factors)).
		Floats64("discount_factors", factors).
		Msg("Bootstrapped discount factors")

	for i, df := range factors {
		if zeros != nil {
			fmt.Fprintf(out, "t=%-8g df %.6f  zero %.6f\n", times[i], df, zeros[i])
			continue
		}
		fmt.Fprintf(out, "%-3d df %.6f\n", i+1, df)
	}
	return nil
}

// parseFloats parses a comma-separated list of numbers.
func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty list")
	}
	parts := strings.Split(s, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

// parseRows parses ';'-separated rows of comma-separated numbers.
func parseRows(s string) ([][]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty matrix")
	}
	var rows [][]float64
	for i, line := range strings.Split(s, ";") {
		row, err := parseFloats(line)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
