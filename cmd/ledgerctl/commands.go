package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/portfolio-ledger/internal/app"
	"github.com/simaogato/portfolio-ledger/internal/config"
)

type ImportCmd struct {
	File []byte `help:"JSON file with a list of events." arg:"" type:"filecontent"`
}

func (cmd *ImportCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	events, err := decodeEvents(cmd.File)
	if err != nil {
		return err
	}

	return withApp(cfg, log, false, func(runCtx context.Context, a *app.App) error {
		batch, err := a.Ingest.ImportBatch(runCtx, events)
		if err != nil {
			return err
		}

		failures := make([]map[string]any, 0, len(batch.Failures))
		for _, f := range batch.Failures {
			failures = append(failures, map[string]any{"index": f.Index, "owner_id": f.OwnerID, "error": f.Err.Error()})
		}
		return printJSON(ctx.Stdout, map[string]any{
			"events":     len(events),
			"ingested":   batch.Ingested,
			"duplicates": batch.Duplicates,
			"failures":   failures,
		})
	})
}

type PortfolioCmd struct {
	Owner int64 `help:"Owner id." arg:""`
}

func (cmd *PortfolioCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	return withApp(cfg, log, false, func(runCtx context.Context, a *app.App) error {
		summary, err := a.Dashboard.GetSummary(runCtx, cmd.Owner)
		if err != nil {
			return err
		}
		return printJSON(ctx.Stdout, summary)
	})
}

type RecalcCmd struct {
	Owner int64 `help:"Owner id." arg:""`
}

func (cmd *RecalcCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	return withApp(cfg, log, false, func(runCtx context.Context, a *app.App) error {
		portfolio, err := a.Ingest.Recalculate(runCtx, cmd.Owner)
		if err != nil {
			return err
		}
		return printJSON(ctx.Stdout, portfolio.Balances())
	})
}

type RemoveCmd struct {
	Owner       int64  `help:"Owner id." arg:""`
	Transaction string `help:"Transaction id." arg:""`
}

func (cmd *RemoveCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	txID, err := uuid.Parse(cmd.Transaction)
	if err != nil {
		return fmt.Errorf("invalid transaction id: %w", err)
	}

	return withApp(cfg, log, false, func(runCtx context.Context, a *app.App) error {
		portfolio, err := a.Ingest.RemoveTransaction(runCtx, cmd.Owner, txID)
		if err != nil {
			return err
		}
		return printJSON(ctx.Stdout, portfolio.Balances())
	})
}

type SeedCmd struct {
	Owners []int64 `help:"Owner ids; defaults to SEED_OWNERS." arg:"" optional:""`
}

func (cmd *SeedCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	owners := cmd.Owners
	if len(owners) == 0 {
		owners = cfg.SeedOwners
	}
	if len(owners) == 0 {
		return errors.New("no owners given and SEED_OWNERS is empty")
	}

	return withApp(cfg, log, false, func(runCtx context.Context, a *app.App) error {
		created, err := a.Seeder.Seed(runCtx, owners)
		if err != nil {
			return err
		}
		return printJSON(ctx.Stdout, map[string]int{"created": created, "owners": len(owners)})
	})
}

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(ctx *kong.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("migrate requires STORAGE=%s", config.StoragePostgres)
	}
	return withApp(cfg, log, true, func(context.Context, *app.App) error {
		log.Info().Msg("Schema applied")
		return nil
	})
}

// errMemoryStorage is returned for STORAGE=memory: each invocation would start from an empty store
var errMemoryStorage = fmt.Errorf("ledgerctl requires STORAGE=%s, the memory store does not outlive a command", config.StoragePostgres)

func withApp(cfg *config.Config, log zerolog.Logger, migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	if cfg.Storage == config.StorageMemory {
		return errMemoryStorage
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
