// Package main is the entry point for the efficient frontier tool.
//
// The run command loads monthly adjusted-close prices for the configured
// symbols, derives mean returns and the covariance matrix, computes the global
// minimum variance portfolio and the efficient frontier around it, and writes
// three PNG charts (prices, cumulative change, frontier) to the output
// directory. The bond and bootstrap commands expose the fixed-income analytics.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/config"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/pkg/logger"
)

// app is handed to every command through Execute's variadic arguments.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer
}

// fromArgs recovers the app passed to Commander.Execute.
func fromArgs(args []interface{}) *app {
	if len(args) == 0 {
		return nil
	}
	a, _ := args[0].(*app)
	return a
}

func commands() []subcommands.Command {
	return []subcommands.Command{
		&runCmd{},
		&bondCmd{},
		&bootstrapCmd{},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands() {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background(), &app{cfg: cfg, log: log, out: os.Stdout})))
}
