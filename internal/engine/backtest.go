package engine

// backtest.go — simulador longtime: reproduce la compra diaria sobre un rango
// histórico vía el buy log y mide el resultado con el precio del último día.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// DataGapError indica que falta el precio de una fecha dentro del rango del
// backtest. Fatal para esa simulación: un hueco no se puede estimar.
type DataGapError struct {
	FID  string
	Date domain.Day
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap: fund %s has no price for %s", e.FID, e.Date)
}

// Simulator ejecuta backtests de la estrategia de un fondo.
// Procesamiento secuencial por fecha: el rastreador de mejor ganancia y la
// extensión incremental del log dependen del orden cronológico.
type Simulator struct {
	engine *Engine
	store  *BuyLogStore
}

// NewSimulator crea un Simulator sobre un motor ya cargado y su buy log store.
func NewSimulator(engine *Engine, store *BuyLogStore) *Simulator {
	return &Simulator{engine: engine, store: store}
}

// Run simula la compra diaria en [begin, end] y devuelve el resumen.
//
// Acumula capital e importes por orden cronológico, registra el mejor punto
// de liquidación (máxima ganancia latente) y calcula la rentabilidad final
// con el precio del último día hábil del rango, neta de la comisión plana.
func (s *Simulator) Run(ctx context.Context, begin, end domain.Day) (domain.BacktestResult, error) {
	start := time.Now()
	inst := s.engine.Instrument()

	log, err := s.store.EnsureRange(ctx, end)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("engine.Run: backtest %s: %w", inst.FID, err)
	}

	cal := s.engine.Calendar()
	prices := s.engine.Prices()

	// Sin ninguna ganancia latente positiva, el mejor día es el comienzo del rango.
	res := domain.BacktestResult{FID: inst.FID, Begin: begin, End: end, BestGainDay: begin}
	for d := begin; !d.After(end); d = d.AddDays(1) {
		if !cal.Has(d) {
			continue
		}
		rec, ok := log[d]
		if !ok {
			// Día hábil anterior al lanzamiento o saltado por ventana vacía.
			continue
		}
		res.Days++
		res.TotalCapital += rec.Capital
		res.TotalAmount += rec.Amount
		if rec.IsBuy() {
			res.BuyDays++
		}

		if res.TotalCapital > 0 {
			nav, ok := prices[d]
			if !ok {
				return domain.BacktestResult{}, &DataGapError{FID: inst.FID, Date: d}
			}
			gain := (nav.Cum*res.TotalAmount - float64(res.TotalCapital)) / float64(res.TotalCapital) * 100
			if gain > res.BestGainPct {
				res.BestGainPct = gain
				res.BestGainDay = d
			}
		}
	}

	last, ok := cal.On(end)
	if !ok {
		return domain.BacktestResult{}, &DataGapError{FID: inst.FID, Date: end}
	}
	res.FinalPrice = prices[last].Cum

	if res.TotalCapital > 0 {
		capital := float64(res.TotalCapital)
		// FeeRateBp está en puntos básicos: 50 bp = 0.50% del capital.
		fee := capital * inst.FeeRateBp / 10000
		res.FinalReturnPct = (res.TotalAmount*res.FinalPrice - capital - fee) / capital * 100
	}
	if res.TotalAmount > 0 {
		res.AverageCost = float64(res.TotalCapital) / res.TotalAmount
	}
	res.TotalAmount = round2(res.TotalAmount)

	slog.Info("backtest complete",
		"fid", inst.FID,
		"begin", begin,
		"end", end,
		"capital", res.TotalCapital,
		"return_pct", fmt.Sprintf("%.2f", res.FinalReturnPct),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
