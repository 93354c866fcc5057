package ports

import (
	"context"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// ValuationProvider obtiene la serie histórica de ratios de valoración (PE/PB)
// de un índice desde el proveedor remoto.
type ValuationProvider interface {
	// FetchValuation devuelve la serie completa de ratios del índice.
	// El proveedor puede rellenar huecos de calendario hacia adelante; el
	// calendario de negociación se deriva después por intersección con los precios.
	FetchValuation(ctx context.Context, indexCode string, kind domain.ValuationKind) (domain.ValuationSeries, error)
}

// PriceSource obtiene los precios de un instrumento: la serie histórica de
// valores liquidativos y la estimación intradía.
// Dos implementaciones: fondo simple (un solo fid) y compuesto (fondo de
// fondos con pesos fijos).
type PriceSource interface {
	// LoadHistory devuelve la serie completa de valores liquidativos.
	LoadHistory(ctx context.Context) (domain.PriceSeries, error)

	// LiveQuote devuelve la estimación intradía con su marca temporal.
	// El llamador decide si la marca es de hoy; una cotización de otro día
	// significa festivo, no error.
	LiveQuote(ctx context.Context) (domain.LiveQuote, error)
}
