package engine

// engine.go — motor de decisión diaria: resuelve los datos del día (precio,
// ratio, estadísticos de ventana) y delega el peso en la variante de
// estrategia del fondo.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/ports"
)

const (
	// defaultMinHistory es el mínimo de días de negociación para operar.
	// Con menos historia los percentiles y las medias no son fiables y los
	// pesos degeneran; el motor devuelve decisión cero, no error.
	defaultMinHistory = 650

	// Percentiles de diagnóstico de la línea de agua de la ratio.
	waterBuy = 30
	waterMid = 50
	waterHi  = 70
	waterTop = 90
)

// Config contiene los parámetros del motor.
type Config struct {
	// BaseCapital es el importe base diario antes de aplicar el peso.
	BaseCapital float64
	// MinHistory es el mínimo de días de negociación para operar.
	MinHistory int
	// Now permite inyectar el reloj en tests. nil = time.Now.
	Now func() time.Time
}

// Engine decide la compra diaria de un instrumento.
// Carga las series una vez (Load) y después decide fechas en orden; no es
// seguro para uso concurrente, pero instrumentar varios fondos en paralelo
// con un Engine por fondo sí lo es.
type Engine struct {
	inst      domain.Instrument
	strategy  Strategy
	valuation ports.ValuationProvider
	source    ports.PriceSource

	ratios domain.ValuationSeries
	prices domain.PriceSeries
	cal    domain.Calendar

	base       float64
	minHistory int
	now        func() time.Time
}

// New crea un Engine para el instrumento con sus proveedores de datos.
func New(inst domain.Instrument, valuation ports.ValuationProvider, source ports.PriceSource, cfg Config) (*Engine, error) {
	strat, err := NewStrategy(inst.Strategy.Variant)
	if err != nil {
		return nil, fmt.Errorf("engine.New: fund %s: %w", inst.FID, err)
	}
	if cfg.BaseCapital <= 0 {
		cfg.BaseCapital = 100
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = defaultMinHistory
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		inst:       inst,
		strategy:   strat,
		valuation:  valuation,
		source:     source,
		base:       cfg.BaseCapital,
		minHistory: cfg.MinHistory,
		now:        cfg.Now,
	}, nil
}

// Instrument devuelve el instrumento del motor.
func (e *Engine) Instrument() domain.Instrument { return e.inst }

// Calendar devuelve el calendario de negociación. Válido tras Load.
func (e *Engine) Calendar() domain.Calendar { return e.cal }

// Prices devuelve la serie de precios cargada. Válida tras Load.
func (e *Engine) Prices() domain.PriceSeries { return e.prices }

// Load obtiene la serie de precios y, si el fondo sigue un índice, la de
// ratios, y deriva el calendario por intersección de ambas. El calendario se
// recalcula en cada Load; siempre intersección, nunca unión.
func (e *Engine) Load(ctx context.Context) error {
	prices, err := e.source.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("engine.Load: fund %s: price history: %w", e.inst.FID, err)
	}
	e.prices = prices
	e.cal = domain.CalendarOf(prices)

	if e.inst.HasIndex() {
		ratios, err := e.valuation.FetchValuation(ctx, e.inst.IndexCode, e.inst.Kind)
		if err != nil {
			return fmt.Errorf("engine.Load: fund %s: valuation %s: %w", e.inst.FID, e.inst.IndexCode, err)
		}
		e.ratios = ratios
		e.cal = e.cal.Intersect(ratios)
	}

	slog.Debug("series loaded",
		"fid", e.inst.FID,
		"prices", len(e.prices),
		"ratios", len(e.ratios),
		"trading_days", e.cal.Len(),
	)
	return nil
}

// DecideOn decide la compra para una fecha histórica concreta.
// Las fechas no hábiles devuelven decisión cero sin error.
func (e *Engine) DecideOn(ctx context.Context, date domain.Day) (domain.Decision, error) {
	if zero, ok := e.refuseShortHistory(date); ok {
		return zero, nil
	}
	if !e.cal.Has(date) {
		return e.zeroDecision(date, "non-trading day"), nil
	}
	nav, ok := e.prices[date]
	if !ok {
		// El calendario se deriva de los precios; si esto ocurre hay un bug de carga.
		return domain.Decision{}, fmt.Errorf("engine.DecideOn: fund %s: no price for trading day %s", e.inst.FID, date)
	}
	return e.decide(date, nav.Cum)
}

// DecideToday decide la compra de hoy con la estimación intradía.
// Una cotización con fecha distinta de hoy significa festivo: decisión cero,
// no error. El registro de hoy nunca se persiste.
func (e *Engine) DecideToday(ctx context.Context) (domain.Decision, error) {
	today := domain.DayOf(e.now())
	if zero, ok := e.refuseShortHistory(today); ok {
		return zero, nil
	}

	quote, err := e.source.LiveQuote(ctx)
	if err != nil {
		slog.Warn("live quote unavailable", "fid", e.inst.FID, "err", err)
		return e.zeroDecision(today, "live quote unavailable"), nil
	}
	if domain.DayOf(quote.Time) != today {
		return e.zeroDecision(today, "stale quote (holiday)"), nil
	}
	if quote.Nav.Cum <= 0 {
		return e.zeroDecision(today, "live quote unavailable"), nil
	}
	return e.decide(today, quote.Nav.Cum)
}

// decide resuelve ratio y estadísticos para la fecha y aplica la estrategia.
func (e *Engine) decide(date domain.Day, price float64) (domain.Decision, error) {
	diag := domain.Diagnostics{
		FID:   e.inst.FID,
		Name:  e.inst.Name,
		Date:  date,
		Price: price,
	}
	params := e.inst.Strategy

	avg, err := AvgPrice(e.prices, e.cal, date, params.AvgDays)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("engine.decide: fund %s: %s: avg price: %w", e.inst.FID, date, err)
	}
	diag.AvgPrice = avg

	window := PriceWindow(e.prices, e.cal, date, params.AvgDays, price)
	diag.Rank, diag.RankWindow = PriceRank(window, price)

	if e.inst.HasIndex() {
		if err := e.resolveRatio(date, &diag); err != nil {
			return domain.Decision{}, err
		}
	}

	weight := e.strategy.Weight(Inputs{
		Price:          price,
		AvgPrice:       avg,
		Ratio:          diag.Ratio,
		RatioWatermark: diag.Watermark30,
		Rank:           diag.Rank,
		Params:         params,
	})
	diag.Weight = weight
	diag.RatioWeight = domain.WeightRatio(diag.Ratio, diag.Watermark30, params.RatioExponent)
	diag.PriceWeight = domain.WeightPrice(price, avg, params.PriceExponent)
	if weight == 0 {
		diag.Reason = "weight zero (not cheap enough)"
	}

	capital := domain.CapitalFor(e.base, weight)
	return domain.Decision{
		Record: domain.DecisionRecord{
			Date:    date,
			Capital: capital,
			Amount:  domain.AmountFor(capital, price),
		},
		Diagnostics: diag,
	}, nil
}

// resolveRatio busca la ratio vigente (la más reciente estrictamente anterior
// a la fecha, hasta 30 días atrás: el feed de valoración puede retrasarse) y
// calcula las líneas de agua de la ventana larga.
func (e *Engine) resolveRatio(date domain.Day, diag *domain.Diagnostics) error {
	for i := 1; i <= 30; i++ {
		if v, ok := e.ratios[date.AddDays(-i)]; ok && v > 0 {
			diag.Ratio = v
			break
		}
	}

	wm, err := Watermark(e.ratios, e.cal, date, waterBuy, e.inst.Strategy.WatermarkDays)
	if err != nil {
		return fmt.Errorf("engine.decide: fund %s: %s: ratio watermark: %w", e.inst.FID, date, err)
	}
	diag.Watermark30 = wm

	// Percentiles adicionales, solo informativos: misma ventana, nunca fallan
	// si el 30 no falló.
	diag.Watermark50, _ = Watermark(e.ratios, e.cal, date, waterMid, e.inst.Strategy.WatermarkDays)
	diag.Watermark70, _ = Watermark(e.ratios, e.cal, date, waterHi, e.inst.Strategy.WatermarkDays)
	diag.Watermark90, _ = Watermark(e.ratios, e.cal, date, waterTop, e.inst.Strategy.WatermarkDays)
	return nil
}

// refuseShortHistory devuelve la decisión cero de "historia insuficiente"
// cuando el calendario no alcanza el mínimo configurado.
func (e *Engine) refuseShortHistory(date domain.Day) (domain.Decision, bool) {
	if e.cal.Len() >= e.minHistory {
		return domain.Decision{}, false
	}
	slog.Debug("history too short, refusing to trade",
		"fid", e.inst.FID,
		"trading_days", e.cal.Len(),
		"min", e.minHistory,
	)
	return e.zeroDecision(date, "insufficient history"), true
}

func (e *Engine) zeroDecision(date domain.Day, reason string) domain.Decision {
	return domain.Decision{
		Record: domain.DecisionRecord{Date: date},
		Diagnostics: domain.Diagnostics{
			FID:    e.inst.FID,
			Name:   e.inst.Name,
			Date:   date,
			Reason: reason,
		},
	}
}
