// Command agent runs the market-making engine: one orchestrator loop that
// claims a persisted run job per trading agent and executes a full cycle
// (mirror sync, beforeRun, entry/maker/exit dispatch) against a configured
// exchange client. Mirrors the teacher's cmd/scanner/main.go flag surface
// and startup sequence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverbend/marketmaker/config"
	"github.com/riverbend/marketmaker/internal/adapters/restexchange"
	"github.com/riverbend/marketmaker/internal/adapters/storage"
	"github.com/riverbend/marketmaker/internal/allocator"
	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/mirror"
	"github.com/riverbend/marketmaker/internal/orchestrator"
	"github.com/riverbend/marketmaker/internal/ports"
	"github.com/riverbend/marketmaker/internal/report"
	"github.com/riverbend/marketmaker/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle per agent and exit")
	paused := flag.Bool("paused", false, "start any newly-created agent paused")
	agentID := flag.String("agent", "", "only run this agent ID (default: all agents in storage)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	format := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full table report (default: one-line compact)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *format != "" {
		cfg.Log.Format = *format
	}
	setupLogger(cfg.Log)

	slog.Info("marketmaker starting", "config", *configPath, "once", *once, "agent", *agentID)

	store, err := storage.Open(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := restexchange.New(restexchange.Config{
		BaseURL:   cfg.API.BaseURL,
		WSURL:     cfg.API.WSURL,
		APIKey:    cfg.API.APIKey,
		APISecret: cfg.API.APISecret,
		RateLimit: cfg.API.RateLimit(),
		Timeout:   cfg.API.Timeout(),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.LoadMarkets(ctx); err != nil {
		slog.Warn("initial LoadMarkets failed, precision metadata unavailable until it succeeds", "err", err)
	}

	exchange, err := loadOrCreateExchange(ctx, store, cfg)
	if err != nil {
		slog.Error("failed to load exchange", "err", err)
		os.Exit(1)
	}

	agents, err := agentsToRun(ctx, store, exchange, cfg, *agentID, *paused)
	if err != nil {
		slog.Error("failed to load agents", "err", err)
		os.Exit(1)
	}
	if len(agents) == 0 {
		slog.Error("no agents to run", "agent_filter", *agentID)
		os.Exit(1)
	}

	reg := strategy.NewRegistry()
	reg.Register(strategy.DefaultStrategy{})

	console := report.NewConsole(*table)

	if *once {
		for _, agent := range agents {
			runCycleOnce(ctx, store, client, exchange, agent, cfg, reg, console)
		}
		slog.Info("marketmaker: once mode complete")
		return
	}

	orch := orchestrator.New(store, cfg.Orchestrator.PollEvery)
	interval := time.Duration(cfg.Orchestrator.RunEveryMinutes) * time.Minute

	for _, agent := range agents {
		agent := agent
		jobName := "run_agent:" + agent.ID
		orch.RegisterProcessor(jobName, func(ctx context.Context, _ map[string]any) error {
			return runCycle(ctx, store, client, exchange, agent, cfg, reg, console)
		})
		if err := orchestrator.CreateRepeatingJob(ctx, store, jobName, interval, map[string]any{"agent_id": agent.ID}); err != nil {
			slog.Error("failed to schedule agent job", "agent", agent.ID, "err", err)
			os.Exit(1)
		}
	}

	if err := orch.Start(ctx); err != nil {
		slog.Error("orchestrator failed to start", "err", err)
		os.Exit(1)
	}

	slog.Info("marketmaker running", "agents", len(agents), "poll_every", cfg.Orchestrator.PollEvery)
	<-ctx.Done()
	orch.Stop()
	slog.Info("marketmaker stopped cleanly")
}

// loadOrCreateExchange fetches the configured exchange entity, bootstrapping
// it from the YAML config on first run.
func loadOrCreateExchange(ctx context.Context, store ports.Storage, cfg *config.Config) (*domain.Exchange, error) {
	e, err := store.GetExchange(ctx, cfg.Exchange.ID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, domain.ErrEntityNotFound) {
		return nil, fmt.Errorf("loadOrCreateExchange: %w", err)
	}

	e = domain.NewExchange(cfg.Exchange.ID, cfg.Exchange.Name, cfg.Exchange.Fiat)
	e.Fee = cfg.Exchange.Fee
	e.Simulation = cfg.Exchange.Simulation
	e.ForceAutoCancel = cfg.Exchange.ForceAutoCancel
	e.MaxSyncAge = cfg.Exchange.MaxSyncAge()
	for currency, amount := range cfg.Exchange.Reserves {
		e.Reserves[currency] = amount
	}
	for market, amount := range cfg.Exchange.MinDealAmounts {
		e.MinDealAmounts[market] = amount
	}

	if err := store.SaveExchange(ctx, e); err != nil {
		return nil, fmt.Errorf("loadOrCreateExchange: save: %w", err)
	}
	return e, nil
}

// agentsToRun returns the agents a run should cover: either the single
// -agent flag match, or every agent persisted against this exchange,
// bootstrapping one default agent if storage is empty.
func agentsToRun(ctx context.Context, store ports.Storage, e *domain.Exchange, cfg *config.Config, only string, startPaused bool) ([]*domain.TradingAgent, error) {
	if only != "" {
		a, err := store.GetAgent(ctx, only)
		if errors.Is(err, domain.ErrEntityNotFound) {
			a = domain.NewTradingAgent(only, e.ID, cfg.Strategy.Name)
			a.FiatCurrency = e.Fiat
			a.Paused = startPaused
			if err := store.SaveAgent(ctx, a); err != nil {
				return nil, err
			}
			return []*domain.TradingAgent{a}, nil
		}
		if err != nil {
			return nil, err
		}
		return []*domain.TradingAgent{a}, nil
	}

	all, err := store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return all, nil
	}

	a := domain.NewTradingAgent("default", e.ID, cfg.Strategy.Name)
	a.FiatCurrency = e.Fiat
	a.Paused = startPaused
	if err := store.SaveAgent(ctx, a); err != nil {
		return nil, err
	}
	return []*domain.TradingAgent{a}, nil
}

// runCycle runs one agent cycle, periodically refreshing the market
// universe via the allocator, then persists the mutated agent/exchange and
// prints a status line.
func runCycle(ctx context.Context, store ports.Storage, client ports.ExchangeClient, e *domain.Exchange, agent *domain.TradingAgent, cfg *config.Config, reg strategy.Registry, console *report.Console) error {
	if err := allocator.Allocate(ctx, client, agent, 0); err != nil {
		slog.Warn("allocator run failed", "agent", agent.ID, "err", err)
	}

	m := mirror.New(e, client, mirror.DefaultConfig())
	if err := strategy.RunAgentCycle(ctx, m, agent, reg, cfg.MarketOptions); err != nil {
		slog.Error("agent cycle failed", "agent", agent.ID, "err", err)
	}

	if err := store.SaveExchange(ctx, e); err != nil {
		slog.Error("failed to save exchange", "err", err)
		return err
	}
	if err := store.SaveAgent(ctx, agent); err != nil {
		slog.Error("failed to save agent", "err", err)
		return err
	}

	total, _ := m.GetTotalBalance(true, nil, true)
	console.ReportAgent(agent, e, total)
	return nil
}

// runCycleOnce wraps runCycle for -once mode, where a failed cycle should
// be visible on exit but shouldn't prevent later agents in the batch from
// running.
func runCycleOnce(ctx context.Context, store ports.Storage, client ports.ExchangeClient, e *domain.Exchange, agent *domain.TradingAgent, cfg *config.Config, reg strategy.Registry, console *report.Console) {
	if err := runCycle(ctx, store, client, e, agent, cfg, reg, console); err != nil {
		slog.Error("once-mode cycle failed", "agent", agent.ID, "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
