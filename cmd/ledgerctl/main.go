package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/simaogato/portfolio-ledger/internal/config"
	"github.com/simaogato/portfolio-ledger/internal/logger"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	cli struct {
		Version  kong.VersionFlag `help:"Show version information"`
		LogLevel string           `help:"Override LOG_LEVEL." default:""`

		Import    ImportCmd    `cmd:"" help:"Import broker events from a JSON file."`
		Portfolio PortfolioCmd `cmd:"" help:"Show an owner's balances and holdings."`
		Recalc    RecalcCmd    `cmd:"" help:"Rebuild an owner's balances from the transaction history."`
		Remove    RemoveCmd    `cmd:"" help:"Remove a transaction and recompute the balances."`
		Seed      SeedCmd      `cmd:"" help:"Create empty portfolios for the given owners."`
		Migrate   MigrateCmd   `cmd:"" help:"Apply the database schema."`
	}
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("ledgerctl"),
		kong.Description("Operator tool for the portfolio ledger."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	// Logs go to stderr so command output stays machine readable
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Output: ctx.Stderr})
	ctx.Bind(cfg, log)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		Version = "dev"
	}
	return fmt.Sprintf("ledgerctl %s", Version)
}
