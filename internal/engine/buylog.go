package engine

// buylog.go — extensión incremental del buy log persistido.
//
// El log es lo que abarata los backtests repetidos y la ejecución diaria:
// sin él cada invocación rederivaría toda la historia multianual. Solo se
// computan los días que faltan; los días ya decididos son inmutables.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/ports"
)

// buyWaterWindowDays es la ventana del nivel de agua del buy log: 5 años.
const buyWaterWindowDays = 365 * 5

// BuyLogStore mantiene el buy log de un fondo: carga el persistido, computa
// solo el hueco pendiente y lo extiende de forma idempotente.
type BuyLogStore struct {
	engine *Engine
	repo   ports.BuyLogRepo
}

// NewBuyLogStore crea el store sobre un motor ya cargado y un repositorio.
func NewBuyLogStore(engine *Engine, repo ports.BuyLogRepo) *BuyLogStore {
	return &BuyLogStore{engine: engine, repo: repo}
}

// EnsureRange garantiza que el buy log cubre hasta end y lo devuelve completo.
//
//   - Sin log persistido (o corrupto): recomputa cada día hábil desde el 1 de
//     enero del año de lanzamiento hasta end y persiste el resultado entero.
//   - Log vigente con fecha máxima M >= end: lo devuelve sin recomputar nada.
//   - M < end: computa solo (M, end], fusiona y persiste. Extender dos veces
//     hasta el mismo end deja el archivo byte a byte idéntico.
//
// end se recorta a ayer: la decisión de hoy refleja una estimación en
// movimiento y nunca se persiste. Solo se registran días hábiles; los días
// hábiles sin compra se registran con capital 0.
func (s *BuyLogStore) EnsureRange(ctx context.Context, end domain.Day) (domain.BuyLog, error) {
	fid := s.engine.Instrument().FID

	yesterday := domain.DayOf(s.engine.now()).AddDays(-1)
	if end.After(yesterday) {
		end = yesterday
	}

	log, err := s.repo.Load(fid)
	switch {
	case err == nil:
		// sigue abajo
	case errors.Is(err, ports.ErrLogNotFound):
		slog.Info("no buy log yet, computing from inception", "fid", fid, "end", end)
		return s.recomputeAll(ctx, end)
	default:
		var parseErr *ports.ParseError
		if errors.As(err, &parseErr) {
			slog.Warn("buy log corrupt, recomputing from inception", "fid", fid, "err", parseErr)
			return s.recomputeAll(ctx, end)
		}
		// I/O real (permisos, disco...): no lo disfrazamos de "primer fetch".
		return nil, fmt.Errorf("engine.EnsureRange: fund %s: %w", fid, err)
	}

	max, ok := log.MaxDay()
	if !ok {
		slog.Warn("buy log empty, recomputing from inception", "fid", fid)
		return s.recomputeAll(ctx, end)
	}
	if !end.After(max) {
		slog.Debug("buy log cache hit", "fid", fid, "max", max, "end", end)
		return log, nil
	}

	gap, err := s.computeRange(ctx, max.AddDays(1), end)
	if err != nil {
		return nil, err
	}
	log.Merge(gap)
	if err := s.repo.Save(fid, log); err != nil {
		return nil, fmt.Errorf("engine.EnsureRange: fund %s: save: %w", fid, err)
	}
	slog.Info("buy log extended", "fid", fid, "from", max, "to", end, "new_records", len(gap))
	return log, nil
}

// recomputeAll computa todo el rango desde el lanzamiento y sobreescribe el store.
func (s *BuyLogStore) recomputeAll(ctx context.Context, end domain.Day) (domain.BuyLog, error) {
	fid := s.engine.Instrument().FID
	log, err := s.computeRange(ctx, s.engine.Instrument().InceptionDay(), end)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(fid, log); err != nil {
		return nil, fmt.Errorf("engine.recomputeAll: fund %s: save: %w", fid, err)
	}
	return log, nil
}

// computeRange decide cada día hábil de [begin, end] en orden cronológico.
// Los días con ventana estadística vacía (muy cerca del lanzamiento) se saltan.
func (s *BuyLogStore) computeRange(ctx context.Context, begin, end domain.Day) (domain.BuyLog, error) {
	cal := s.engine.Calendar()
	log := make(domain.BuyLog)
	for d := begin; !d.After(end); d = d.AddDays(1) {
		if !cal.Has(d) {
			continue
		}
		dec, err := s.engine.DecideOn(ctx, d)
		if err != nil {
			if errors.Is(err, ErrInsufficientWindow) {
				slog.Debug("skipping day with empty window", "fid", s.engine.Instrument().FID, "date", d)
				continue
			}
			return nil, err
		}
		log[d] = dec.Record
	}
	return log, nil
}

// WaterLevel calcula el nivel de agua del capital de hoy entre los capitales
// no nulos registrados en los últimos 5 años del buy log.
func WaterLevel(log domain.BuyLog, today domain.Day, capital int) (float64, int) {
	if capital <= 0 {
		return 0, 0
	}
	from := today.AddDays(-buyWaterWindowDays)
	capitals := make([]int, 0, len(log))
	for _, rec := range log.Sorted() {
		if rec.Date.Before(from) || !rec.Date.Before(today) {
			continue
		}
		if rec.Capital > 0 {
			capitals = append(capitals, rec.Capital)
		}
	}
	capitals = append(capitals, capital)
	return domain.BuyWater(capitals)
}
