// Package runner orquesta el motor de decisión sobre el catálogo completo:
// construye un Engine por fondo, ejecuta la decisión diaria o el backtest y
// reparte los resultados entre el histórico y el notificador.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/engine"
	"github.com/alejandrodnm/fundbot/internal/ports"
)

// SourceFactory construye la fuente de precios de un instrumento
// (fondo simple o compuesto).
type SourceFactory func(inst domain.Instrument) (ports.PriceSource, error)

// Config contiene los parámetros compartidos por todos los fondos.
type Config struct {
	BaseCapital int
	MinHistory  int
	// Workers es el número de fondos procesados en paralelo. <= 0 usa 4.
	Workers int
	// Now permite inyectar el reloj en tests. nil = time.Now.
	Now func() time.Time
}

// Runner ejecuta el catálogo de fondos contra los proveedores de datos.
type Runner struct {
	cfg       Config
	funds     []domain.Instrument
	valuation ports.ValuationProvider
	sources   SourceFactory
	repo      ports.BuyLogRepo
	history   ports.History // opcional: nil desactiva el histórico
	notifier  ports.Notifier
}

// New crea el runner. history puede ser nil.
func New(
	cfg Config,
	funds []domain.Instrument,
	valuation ports.ValuationProvider,
	sources SourceFactory,
	repo ports.BuyLogRepo,
	history ports.History,
	notifier ports.Notifier,
) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{
		cfg:       cfg,
		funds:     funds,
		valuation: valuation,
		sources:   sources,
		repo:      repo,
		history:   history,
		notifier:  notifier,
	}
}

// RunDaily decide la compra de hoy para todos los fondos del catálogo,
// extendiendo antes cada buy log hasta ayer. Un fondo que falla se salta con
// un warning; el resto del catálogo no se ve afectado.
func (r *Runner) RunDaily(ctx context.Context) ([]domain.Decision, error) {
	start := time.Now()
	decisions := r.decideConcurrent(ctx)

	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].Diagnostics.FID < decisions[j].Diagnostics.FID
	})

	r.saveRun(ctx, "daily", decisions)

	if err := r.notifier.NotifyDaily(ctx, decisions); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("daily run complete",
		"funds", len(r.funds),
		"decided", len(decisions),
		"buys", countBuys(decisions),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return decisions, nil
}

// RunBacktest simula la estrategia de cada fondo en el rango dado.
func (r *Runner) RunBacktest(ctx context.Context, begin, end domain.Day) ([]domain.BacktestResult, error) {
	results := make([]domain.BacktestResult, 0, len(r.funds))
	for _, inst := range r.funds {
		res, log, err := r.backtestFund(ctx, inst, begin, end)
		if err != nil {
			slog.Warn("backtest failed", "fid", inst.FID, "err", err)
			continue
		}
		results = append(results, res)
		r.saveRun(ctx, "backtest", logDecisions(inst, log))
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("runner.RunBacktest: no fund produced results")
	}

	if err := r.notifier.NotifyBacktest(ctx, results); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	return results, nil
}

// decideConcurrent reparte los fondos entre workers; cada fondo es
// independiente (Engine propio), así que no comparten estado mutable.
func (r *Runner) decideConcurrent(ctx context.Context) []domain.Decision {
	workCh := make(chan domain.Instrument, len(r.funds))
	resultCh := make(chan domain.Decision, len(r.funds))

	done := make(chan struct{})
	for i := 0; i < r.cfg.Workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for inst := range workCh {
				dec, err := r.decideFund(ctx, inst)
				if err != nil {
					slog.Warn("fund skipped", "fid", inst.FID, "err", err)
					continue
				}
				resultCh <- dec
			}
		}()
	}

	for _, inst := range r.funds {
		workCh <- inst
	}
	close(workCh)

	go func() {
		for i := 0; i < r.cfg.Workers; i++ {
			<-done
		}
		close(resultCh)
	}()

	decisions := make([]domain.Decision, 0, len(r.funds))
	for dec := range resultCh {
		decisions = append(decisions, dec)
	}
	return decisions
}

// decideFund carga las series del fondo, extiende su buy log hasta ayer y
// decide la compra de hoy, anotando la línea de agua del capital.
func (r *Runner) decideFund(ctx context.Context, inst domain.Instrument) (domain.Decision, error) {
	eng, store, err := r.buildEngine(inst)
	if err != nil {
		return domain.Decision{}, err
	}
	if err := eng.Load(ctx); err != nil {
		return domain.Decision{}, err
	}

	today := domain.DayOf(r.cfg.Now())
	log, err := store.EnsureRange(ctx, today.AddDays(-1))
	if err != nil {
		return domain.Decision{}, err
	}

	dec, err := eng.DecideToday(ctx)
	if err != nil {
		return domain.Decision{}, err
	}

	dec.Diagnostics.BuyWater, dec.Diagnostics.BuyWaterSamples =
		engine.WaterLevel(log, today, dec.Record.Capital)
	return dec, nil
}

func (r *Runner) backtestFund(ctx context.Context, inst domain.Instrument, begin, end domain.Day) (domain.BacktestResult, domain.BuyLog, error) {
	eng, store, err := r.buildEngine(inst)
	if err != nil {
		return domain.BacktestResult{}, nil, err
	}
	if err := eng.Load(ctx); err != nil {
		return domain.BacktestResult{}, nil, err
	}

	sim := engine.NewSimulator(eng, store)
	res, err := sim.Run(ctx, begin, end)
	if err != nil {
		return domain.BacktestResult{}, nil, err
	}

	log, err := store.EnsureRange(ctx, end)
	if err != nil {
		return domain.BacktestResult{}, nil, err
	}
	return res, log, nil
}

func (r *Runner) buildEngine(inst domain.Instrument) (*engine.Engine, *engine.BuyLogStore, error) {
	src, err := r.sources(inst)
	if err != nil {
		return nil, nil, fmt.Errorf("runner: fund %s: %w", inst.FID, err)
	}
	eng, err := engine.New(inst, r.valuation, src, engine.Config{
		BaseCapital: float64(r.cfg.BaseCapital),
		MinHistory:  r.cfg.MinHistory,
		Now:         r.cfg.Now,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, engine.NewBuyLogStore(eng, r.repo), nil
}

// saveRun persiste la ejecución en el histórico si está configurado.
// Un fallo de persistencia no tumba la ejecución: warning y seguir.
func (r *Runner) saveRun(ctx context.Context, mode string, decisions []domain.Decision) {
	if r.history == nil || len(decisions) == 0 {
		return
	}
	runID := uuid.NewString()
	if err := r.history.SaveRun(ctx, runID, mode, decisions); err != nil {
		slog.Warn("history save failed", "run_id", runID, "mode", mode, "err", err)
		return
	}
	slog.Debug("run saved", "run_id", runID, "mode", mode, "decisions", len(decisions))
}

// logDecisions convierte un buy log en decisiones mínimas para el histórico.
// Los diagnósticos completos solo existen para la decisión del día.
func logDecisions(inst domain.Instrument, log domain.BuyLog) []domain.Decision {
	recs := log.Sorted()
	out := make([]domain.Decision, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domain.Decision{
			Record: rec,
			Diagnostics: domain.Diagnostics{
				FID:  inst.FID,
				Name: inst.Name,
				Date: rec.Date,
			},
		})
	}
	return out
}

func countBuys(decisions []domain.Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Record.IsBuy() {
			n++
		}
	}
	return n
}
