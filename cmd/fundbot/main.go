package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/fundbot/config"
	"github.com/alejandrodnm/fundbot/internal/adapters/buylog"
	"github.com/alejandrodnm/fundbot/internal/adapters/danjuan"
	"github.com/alejandrodnm/fundbot/internal/adapters/eastmoney"
	"github.com/alejandrodnm/fundbot/internal/adapters/notify"
	"github.com/alejandrodnm/fundbot/internal/adapters/pricesource"
	"github.com/alejandrodnm/fundbot/internal/adapters/storage"
	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/ports"
	"github.com/alejandrodnm/fundbot/internal/runner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	fund := flag.String("fund", "", "restrict to these fund codes (comma-separated)")
	backtest := flag.Bool("backtest", false, "simulate the strategy instead of deciding today")
	report := flag.Bool("history", false, "print stored decision history instead of deciding")
	from := flag.String("from", "", "backtest start date (YYYY-MM-DD)")
	to := flag.String("to", "", "backtest end date (YYYY-MM-DD, default: yesterday)")
	table := flag.Bool("table", false, "print full diagnostics table (default: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	funds := selectFunds(cfg, *fund)
	if len(funds) == 0 {
		slog.Error("no funds selected", "catalog", len(cfg.Funds), "filter", *fund)
		os.Exit(1)
	}

	slog.Info("fundbot starting",
		"config", *configPath,
		"funds", len(funds),
		"backtest", *backtest,
	)

	valuation := danjuan.NewClient(cfg.API.DanjuanBase)
	prices := eastmoney.NewClient(cfg.API.EastmoneyAPIBase, cfg.API.EastmoneyLiveBase)

	repo, err := buylog.NewFileRepo(cfg.Engine.BuylogDir)
	if err != nil {
		slog.Error("failed to open buy log dir", "err", err, "dir", cfg.Engine.BuylogDir)
		os.Exit(1)
	}

	history, err := storage.NewSQLiteHistory(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open history", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer history.Close()

	notifier := notify.NewConsole(*table || *backtest)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		runHistory(ctx, history, notifier, funds, *from, *to)
		return
	}

	sources := func(inst domain.Instrument) (ports.PriceSource, error) {
		if inst.IsComposite() {
			return pricesource.NewWeightedComposite(prices, inst.Components)
		}
		return pricesource.NewSingleFund(prices, inst.FID, inst.SplitAdjusted), nil
	}

	r := runner.New(
		runner.Config{
			BaseCapital: cfg.Engine.BaseCapital,
			MinHistory:  cfg.Engine.MinHistory,
			Workers:     cfg.Engine.Workers,
		},
		funds, valuation, sources, repo, history, notifier,
	)

	if *backtest {
		runBacktest(ctx, r, *from, *to)
		return
	}

	if _, err := r.RunDaily(ctx); err != nil {
		slog.Error("daily run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("fundbot finished cleanly")
}

func runBacktest(ctx context.Context, r *runner.Runner, from, to string) {
	if from == "" {
		slog.Error("backtest requires -from (YYYY-MM-DD)")
		os.Exit(1)
	}
	begin, err := domain.ParseDay(from)
	if err != nil {
		slog.Error("bad -from date", "err", err)
		os.Exit(1)
	}

	end := domain.Today().AddDays(-1)
	if to != "" {
		end, err = domain.ParseDay(to)
		if err != nil {
			slog.Error("bad -to date", "err", err)
			os.Exit(1)
		}
	}

	results, err := r.RunBacktest(ctx, begin, end)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}
	slog.Info("backtest complete", "funds_tested", len(results))
}

// runHistory consulta el histórico de decisiones de los fondos seleccionados
// y lo imprime por consola. -from acota el rango; sin él, los últimos 90 días.
func runHistory(ctx context.Context, history *storage.SQLiteHistory, console *notify.Console, funds []domain.Instrument, from, to string) {
	end := domain.Today()
	begin := end.AddDays(-90)
	var err error
	if from != "" {
		begin, err = domain.ParseDay(from)
		if err != nil {
			slog.Error("bad -from date", "err", err)
			os.Exit(1)
		}
	}
	if to != "" {
		end, err = domain.ParseDay(to)
		if err != nil {
			slog.Error("bad -to date", "err", err)
			os.Exit(1)
		}
	}

	for _, inst := range funds {
		diags, err := history.GetDecisions(ctx, inst.FID, begin.Time(), end.Time())
		if err != nil {
			slog.Error("history query failed", "fid", inst.FID, "err", err)
			os.Exit(1)
		}
		if err := console.NotifyHistory(ctx, diags); err != nil {
			slog.Warn("notifier error", "fid", inst.FID, "err", err)
		}
	}
}

// selectFunds filtra el catálogo con el flag -fund (lista de códigos).
func selectFunds(cfg *config.Config, filter string) []domain.Instrument {
	all := cfg.Instruments()
	if filter == "" {
		return all
	}

	wanted := make(map[string]bool)
	for _, fid := range strings.Split(filter, ",") {
		wanted[strings.TrimSpace(fid)] = true
	}

	var out []domain.Instrument
	for _, inst := range all {
		if wanted[inst.FID] {
			out = append(out, inst)
		}
	}
	return out
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
