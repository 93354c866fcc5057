package pricesource

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/fundbot/internal/adapters/eastmoney"
	"github.com/alejandrodnm/fundbot/internal/domain"
)

// WeightedComposite es la fuente de precios de un fondo de fondos: agrega
// varias fuentes simples con pesos porcentuales fijos.
// Composición, no herencia: el motor no distingue un compuesto de un simple.
type WeightedComposite struct {
	components []compositeComponent
}

type compositeComponent struct {
	source  *SingleFund
	percent float64
}

// NewWeightedComposite crea la fuente compuesta a partir del catálogo.
func NewWeightedComposite(client *eastmoney.Client, components []domain.ComponentWeight) (*WeightedComposite, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("pricesource.NewWeightedComposite: no components")
	}
	comps := make([]compositeComponent, 0, len(components))
	for _, c := range components {
		if c.Percent <= 0 {
			return nil, fmt.Errorf("pricesource.NewWeightedComposite: component %s: non-positive weight %v", c.FID, c.Percent)
		}
		comps = append(comps, compositeComponent{
			source:  NewSingleFund(client, c.FID, false),
			percent: c.Percent,
		})
	}
	return &WeightedComposite{components: comps}, nil
}

// LoadHistory implementa ports.PriceSource: la serie sintética del compuesto.
//
// Solo se valoran los días presentes en TODOS los componentes (intersección,
// nunca unión): un día con algún componente sin publicar produciría una suma
// parcial que parecería una caída de precio.
func (w *WeightedComposite) LoadHistory(ctx context.Context) (domain.PriceSeries, error) {
	series := make([]domain.PriceSeries, len(w.components))
	for i, c := range w.components {
		s, err := c.source.LoadHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("pricesource.LoadHistory: component %s: %w", c.source.fid, err)
		}
		series[i] = s
	}

	out := make(domain.PriceSeries)
	for d := range series[0] {
		nav := domain.Nav{}
		complete := true
		for i, s := range series {
			v, ok := s[d]
			if !ok {
				complete = false
				break
			}
			nav.Unit += v.Unit * w.components[i].percent / 100
			nav.Cum += v.Cum * w.components[i].percent / 100
		}
		if complete {
			out[d] = domain.Nav{Unit: round4(nav.Unit), Cum: round4(nav.Cum)}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pricesource.LoadHistory: empty composite intersection")
	}
	return out, nil
}

// LiveQuote implementa ports.PriceSource: la suma ponderada de las
// estimaciones de los componentes. La marca temporal es la más antigua de
// todas: si cualquier componente está obsoleto, el compuesto entero lo está.
func (w *WeightedComposite) LiveQuote(ctx context.Context) (domain.LiveQuote, error) {
	var quote domain.LiveQuote
	for i, c := range w.components {
		q, err := c.source.LiveQuote(ctx)
		if err != nil {
			return domain.LiveQuote{}, fmt.Errorf("pricesource.LiveQuote: component %s: %w", c.source.fid, err)
		}
		quote.Nav.Unit += q.Nav.Unit * c.percent / 100
		quote.Nav.Cum += q.Nav.Cum * c.percent / 100
		if i == 0 || q.Time.Before(quote.Time) {
			quote.Time = q.Time
		}
	}
	quote.Nav.Unit = round4(quote.Nav.Unit)
	quote.Nav.Cum = round4(quote.Nav.Cum)
	return quote, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
