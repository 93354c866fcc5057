// Package pricesource implementa ports.PriceSource sobre los datos de
// Eastmoney: fondos simples y fondos de fondos compuestos por pesos fijos.
package pricesource

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/fundbot/internal/adapters/eastmoney"
	"github.com/alejandrodnm/fundbot/internal/domain"
)

// SingleFund es la fuente de precios de un fondo individual.
type SingleFund struct {
	client *eastmoney.Client
	fid    string
	// splitAdjusted marca fondos cuyo acumulado se deriva multiplicando por
	// la ratio acumulado/unitario (splits) en vez de sumando la diferencia
	// (dividendos).
	splitAdjusted bool

	history domain.PriceSeries
}

// NewSingleFund crea la fuente de precios de un fondo.
func NewSingleFund(client *eastmoney.Client, fid string, splitAdjusted bool) *SingleFund {
	return &SingleFund{client: client, fid: fid, splitAdjusted: splitAdjusted}
}

// LoadHistory implementa ports.PriceSource. La serie queda cacheada para
// derivar el ajuste dividendo/split de la estimación intradía.
func (s *SingleFund) LoadHistory(ctx context.Context) (domain.PriceSeries, error) {
	series, err := s.client.FetchNavHistory(ctx, s.fid)
	if err != nil {
		return nil, err
	}
	s.history = series
	return series, nil
}

// LiveQuote implementa ports.PriceSource: estimación intradía del valor
// unitario, con el acumulado derivado del último ajuste conocido.
// La estimación intradía solo trae el valor unitario; el acumulado
// equivalente se reconstruye con el delta (o la ratio) del último día
// publicado.
func (s *SingleFund) LiveQuote(ctx context.Context) (domain.LiveQuote, error) {
	if s.history == nil {
		if _, err := s.LoadHistory(ctx); err != nil {
			return domain.LiveQuote{}, err
		}
	}

	unit, ts, err := s.client.FetchLiveEstimate(ctx, s.fid)
	if err != nil {
		return domain.LiveQuote{}, err
	}

	latest, ok := latestNav(s.history)
	if !ok {
		return domain.LiveQuote{}, fmt.Errorf("pricesource.LiveQuote: %s: no nav history", s.fid)
	}

	cum := unit + (latest.Cum - latest.Unit)
	if s.splitAdjusted && latest.Unit > 0 {
		cum = unit * (latest.Cum / latest.Unit)
	}
	return domain.LiveQuote{Nav: domain.Nav{Unit: unit, Cum: cum}, Time: ts}, nil
}

// latestNav devuelve el valor liquidativo del día más reciente de la serie.
func latestNav(series domain.PriceSeries) (domain.Nav, bool) {
	var max domain.Day
	found := false
	for d := range series {
		if !found || d.After(max) {
			max = d
			found = true
		}
	}
	if !found {
		return domain.Nav{}, false
	}
	return series[max], true
}
