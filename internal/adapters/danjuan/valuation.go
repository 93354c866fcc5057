package danjuan

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// Los timestamps de Danjuan son medianoche hora de China; convertir en UTC
// movería la fecha al día anterior.
var beijing = time.FixedZone("CST", 8*60*60)

// pbePoint es un punto de la serie de valoración del API.
// Según el endpoint viene relleno el campo pe o el pb.
type pbePoint struct {
	TS int64   `json:"ts"` // epoch en milisegundos
	PE float64 `json:"pe"`
	PB float64 `json:"pb"`
}

// pbeResponse es la respuesta de index_eva/{pe|pb}_history/{code}.
type pbeResponse struct {
	Data struct {
		PEGrowths []pbePoint `json:"index_eva_pe_growths"`
		PBGrowths []pbePoint `json:"index_eva_pb_growths"`
	} `json:"data"`
}

// FetchValuation implementa ports.ValuationProvider: devuelve la serie
// histórica completa de ratios del índice.
//
// Los huecos de calendario se rellenan hacia adelante con el último valor
// conocido: la serie resultante cubre todos los días entre el primero y el
// último reportado. El calendario de negociación no sale de aquí, sino de la
// intersección con los días de precio del fondo.
func (c *Client) FetchValuation(ctx context.Context, indexCode string, kind domain.ValuationKind) (domain.ValuationSeries, error) {
	if kind != domain.ValuationPE && kind != domain.ValuationPB {
		return nil, fmt.Errorf("danjuan.FetchValuation: unsupported valuation kind %q", kind)
	}

	url := fmt.Sprintf("%s/djapi/index_eva/%s_history/%s?day=all", c.base, kind, indexCode)
	var resp pbeResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("danjuan.FetchValuation: %s: %w", indexCode, err)
	}

	points := resp.Data.PEGrowths
	value := func(p pbePoint) float64 { return p.PE }
	if kind == domain.ValuationPB {
		points = resp.Data.PBGrowths
		value = func(p pbePoint) float64 { return p.PB }
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("danjuan.FetchValuation: %s: empty %s series", indexCode, kind)
	}

	series := make(domain.ValuationSeries, len(points))
	var min, max domain.Day
	for i, p := range points {
		d := domain.DayOf(time.Unix(p.TS/1000, 0).In(beijing))
		series[d] = value(p)
		if i == 0 || d.Before(min) {
			min = d
		}
		if i == 0 || d.After(max) {
			max = d
		}
	}

	forwardFill(series, min, max)
	return series, nil
}

// forwardFill rellena cada día ausente con el valor del día anterior.
func forwardFill(series domain.ValuationSeries, min, max domain.Day) {
	for d := min.AddDays(1); !d.After(max); d = d.AddDays(1) {
		if _, ok := series[d]; !ok {
			series[d] = series[d.AddDays(-1)]
		}
	}
}
