package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/vigild/vigild/internal/config"
	"github.com/vigild/vigild/internal/daemon"
	"github.com/vigild/vigild/internal/engine"
	"github.com/vigild/vigild/internal/oracle"
	"github.com/vigild/vigild/internal/registry"
	"github.com/vigild/vigild/internal/server"
	"github.com/vigild/vigild/internal/store"
	"github.com/vigild/vigild/internal/sweep"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	BuildType = "local"
)

func Execute(args []string) error {
	app := cli.App{
		Name:      "vigild",
		HelpName:  "vigild",
		Usage:     "dead-man's switch daemon for custodial asset control",
		Version:   fmt.Sprintf("%s-%s", version, BuildType),
		UsageText: "vigild [options]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, c",
				Usage: "path to the JSON config file",
			},
			cli.StringFlag{
				Name:  "listen, l",
				Usage: "listen address override",
			},
			cli.StringFlag{
				Name:  "data-dir, d",
				Usage: "data directory override",
			},
		},
		Action: run,
		Commands: []cli.Command{
			{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "prints the daemon version",
				Action: func(ctx *cli.Context) error {
					fmt.Printf("%s %s\nBuild: %s=%s date=%s\n", ctx.App.Name, ctx.App.Version, BuildType, commit, date)
					return nil
				},
			},
		},
	}
	return app.Run(args)
}

func run(cliCtx *cli.Context) error {
	l := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(afero.NewOsFs(), cliCtx.String("config"))
	if err != nil {
		return err
	}
	if v := cliCtx.String("listen"); v != "" {
		cfg.ListenAddr = v
	}
	if v := cliCtx.String("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = base + "/vigild"
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	reg := registry.New(db)
	notifier := server.NewRPCNotifier(l)
	eng := engine.New(ctx, engine.Config{
		Workers:      cfg.Workers,
		Target:       cfg.Target(),
		CycleTimeout: cfg.CycleTimeout.Std(),
	}, engine.Dependencies{
		Delegations: db,
		Oracle:      buildOracle(cfg, policy, l),
		Planner:     buildPlanner(cfg, l),
		Notifier:    notifier,
		Registry:    reg,
	}, l)

	checks, err := db.OutstandingChecks()
	if err != nil {
		return fmt.Errorf("load outstanding checks: %w", err)
	}
	eng.Recover(checks)
	l.Printf("vigild: recovered %d outstanding checks", len(checks))

	rpc := server.NewRPCServer(&server.RPCConfig{
		Secret:    cfg.RPCSecret,
		Version:   version,
		Commit:    commit,
		BuildType: BuildType,
	}, eng)
	srv := server.NewServer(cfg.ListenAddr, l, rpc, notifier)

	runner, err := daemon.New(&daemon.Config{
		ReconcileCron:   cfg.ReconcileCron,
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
	}, &daemon.Dependencies{
		Serve:     srv.Start,
		Shutdown:  srv.Shutdown,
		Reconcile: reconcileFunc(db, reg, eng, l),
	}, l)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		l.Println("vigild: shutting down")
		if err := runner.Shutdown(); err != nil {
			l.Printf("vigild: shutdown: %v", err)
		}
		cancel()
	}()

	return runner.Start(ctx)
}

func buildOracle(cfg *config.Config, policy oracle.FailurePolicy, l *log.Logger) *oracle.Oracle {
	var chain oracle.ChainActivitySource = inertChainSource{}
	if cfg.OnchainSourceURL != "" {
		chain = oracle.NewHTTPChainSource(cfg.OnchainSourceURL, nil)
	}
	var social oracle.SocialActivitySource = inertSocialSource{}
	if cfg.SocialSourceURL != "" {
		social = oracle.NewHTTPSocialSource(cfg.SocialSourceURL, nil)
	}
	return oracle.New(chain, social, oracle.Config{
		Deadline: cfg.OracleDeadline.Std(),
		Policy:   policy,
	}, l)
}

func buildPlanner(cfg *config.Config, l *log.Logger) *sweep.Planner {
	var balances sweep.BalanceSource = inertBalanceSource{}
	if cfg.BalanceSourceURL != "" {
		balances = sweep.NewHTTPBalanceSource(cfg.BalanceSourceURL, nil)
	}
	var quotes sweep.QuoteSource = inertQuoteSource{}
	if cfg.QuoteSourceURL != "" {
		quotes = sweep.NewHTTPQuoteSource(cfg.QuoteSourceURL, nil)
	}
	return sweep.New(balances, quotes, cfg.Chains, cfg.GasAllowList(), l)
}

// reconcileFunc heals drift between the durable store and the in-memory
// scheduler: rows the registry does not know about (external writes, a
// crashed arm path) are reinstated through the normal recovery gate.
func reconcileFunc(db *store.Store, reg *registry.Registry, eng *engine.Engine, l *log.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		checks, err := db.OutstandingChecks()
		if err != nil {
			return err
		}
		var missing []registry.ScheduledCheck
		for _, c := range checks {
			if _, armed := reg.Outstanding(c.UserAddress); !armed {
				missing = append(missing, c)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		l.Printf("vigild: reconcile reinstating %d checks", len(missing))
		eng.Recover(missing)
		return nil
	}
}

func main() {
	if err := Execute(os.Args); err != nil {
		fmt.Printf("vigild: %s\n", err.Error())
		os.Exit(1)
	}
}
