package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/rota-badges/app"
	"github.com/Black-And-White-Club/rota-badges/app/modules/badge"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/eventbus"
	"github.com/Black-And-White-Club/rota-badges/app/shared/observability"
	"github.com/Black-And-White-Club/rota-badges/config"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cliApp := &cli.App{
		Name:    "badges",
		Usage:   "badge awarding engine",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			backfillCommand(),
			exportCommand(),
			pingCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func load(c *cli.Context) (*config.Config, observability.Observability, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, observability.Observability{}, fmt.Errorf("failed to load config: %w", err)
	}
	obs := observability.Init(observability.Config{
		ServiceName: "rota-badges",
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
		Version:     version,
	})
	return cfg, obs, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, event handlers and queue workers",
		Action: func(c *cli.Context) error {
			cfg, obs, err := load(c)
			if err != nil {
				return err
			}

			application := &app.App{}
			if err := application.Initialize(c.Context, cfg, obs); err != nil {
				return err
			}
			obs.Logger.Info("Starting rota-badges", attr.String("version", version))

			runErr := application.Run(c.Context)
			application.Close()
			return runErr
		},
	}
}

// cliModule wires the badge module without HTTP or event handlers. When NATS
// is configured, new awards are still published.
type cliModule struct {
	*badge.Module
	channels badge.Channels
	bus      eventbus.EventBus
}

func newCLIModule(c *cli.Context, cfg *config.Config, obs observability.Observability) (*cliModule, error) {
	channels := app.OpenChannels(cfg)

	var bus eventbus.EventBus
	if cfg.NATS.URL != "" {
		var err error
		bus, err = eventbus.NewNATSEventBus(c.Context, cfg.NATS.URL, "rota-badges-cli", obs.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create event bus: %w", err)
		}
	}

	module, err := badge.NewBadgeModule(c.Context, cfg, obs, channels, bus, nil, nil)
	if err != nil {
		return nil, err
	}
	return &cliModule{Module: module, channels: channels, bus: bus}, nil
}

func (m *cliModule) close() {
	_ = m.Module.Close()
	if m.bus != nil {
		_ = m.bus.Close()
	}
	if m.channels.Privileged != nil {
		_ = m.channels.Privileged.Close()
	}
	if m.channels.Restricted != nil {
		_ = m.channels.Restricted.Close()
	}
}

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "evaluate every active member and award what they qualify for",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "team", Usage: "limit the run to one team id"},
			&cli.StringFlag{Name: "as-of", Usage: `evaluation date, e.g. "2026-09-30" or "last friday"`},
			&cli.BoolFlag{Name: "enqueue", Usage: "enqueue one queue job per member instead of running inline"},
		},
		Action: func(c *cli.Context) error {
			cfg, obs, err := load(c)
			if err != nil {
				return err
			}
			teamID, err := parseTeam(c.String("team"))
			if err != nil {
				return err
			}
			asOf, err := ParseAsOf(c.String("as-of"), time.Now())
			if err != nil {
				return err
			}

			m, err := newCLIModule(c, cfg, obs)
			if err != nil {
				return err
			}
			defer m.close()

			if c.Bool("enqueue") {
				if !asOf.IsZero() {
					return fmt.Errorf("--as-of cannot be combined with --enqueue")
				}
				return enqueueAll(c.Context, m, teamID)
			}

			summary, err := m.BadgeService.BackfillAll(c.Context, teamID, asOf)
			fmt.Fprintf(c.App.Writer, "as of %s: %d members, %d processed, %d skipped, %d awarded, %d failed\n",
				summary.AsOf.Format(time.DateOnly), summary.Members, summary.Processed,
				summary.Skipped, summary.Awarded, len(summary.Failures))
			for _, f := range summary.Failures {
				fmt.Fprintf(c.App.Writer, "  %s: %v\n", f.MemberID, f.Err)
			}
			return err
		},
	}
}

func enqueueAll(ctx context.Context, m *cliModule, teamID *uuid.UUID) error {
	if m.Queue == nil {
		return fmt.Errorf("queue is disabled; set queue.enabled or QUEUE_ENABLED")
	}
	db := m.channels.Primary()
	if db == nil {
		return fmt.Errorf("no database configured")
	}

	members, err := badgedb.NewRepository(db).ListActiveMembers(ctx, db, teamID)
	if err != nil {
		return err
	}
	queued := 0
	for i := range members {
		member := members[i].ToDomain()
		if !member.HasAccount() {
			continue
		}
		if err := m.Queue.EnqueueCheck(ctx, member.ID, member.TeamID); err != nil {
			return fmt.Errorf("enqueue %s: %w", member.ID, err)
		}
		queued++
	}
	fmt.Printf("queued %d of %d members\n", queued, len(members))
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write a team leaderboard and the badge catalog to an XLSX workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "team", Required: true, Usage: "team id"},
			&cli.StringFlag{Name: "out", Value: "leaderboard.xlsx", Usage: "output file"},
		},
		Action: func(c *cli.Context) error {
			cfg, obs, err := load(c)
			if err != nil {
				return err
			}
			teamID, err := uuid.Parse(c.String("team"))
			if err != nil {
				return fmt.Errorf("invalid --team: %w", err)
			}

			m, err := newCLIModule(c, cfg, obs)
			if err != nil {
				return err
			}
			defer m.close()

			f, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			if err := m.BadgeService.ExportLeaderboard(c.Context, teamID, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
			return nil
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "check every configured database channel",
		Action: func(c *cli.Context) error {
			cfg, obs, err := load(c)
			if err != nil {
				return err
			}
			m, err := newCLIModule(c, cfg, obs)
			if err != nil {
				return err
			}
			defer m.close()

			health, err := m.BadgeService.Ping(c.Context)
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(health); encErr != nil {
				return encErr
			}
			return err
		},
	}
}

func parseTeam(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --team: %w", err)
	}
	return &id, nil
}
