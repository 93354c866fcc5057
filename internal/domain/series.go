package domain

import (
	"sort"
	"time"
)

// Nav es el par de valores liquidativos de un fondo en una fecha.
type Nav struct {
	// Unit es el valor liquidativo unitario (precio de suscripción).
	Unit float64
	// Cum es el valor liquidativo acumulado: reinvierte dividendos, y es la
	// base correcta para calcular rentabilidad real.
	Cum float64
}

// ValuationSeries mapea fecha → ratio de valoración (PE o PB según el índice).
// Solo contiene los días que el proveedor reporta; los huecos no se rellenan aquí.
type ValuationSeries map[Day]float64

// PriceSeries mapea fecha → valores liquidativos del fondo.
type PriceSeries map[Day]Nav

// LiveQuote es la estimación intradía del valor liquidativo de un fondo.
// El valor acumulado se deriva del unitario aplicando el último ajuste
// conocido por dividendos o splits.
type LiveQuote struct {
	Nav Nav
	// Time es la marca temporal que reporta el proveedor. Si su fecha no es
	// hoy, la cotización está obsoleta (festivo) y no debe usarse.
	Time time.Time
}

// IsFresh devuelve true si la cotización corresponde al día de hoy.
func (q LiveQuote) IsFresh() bool {
	return DayOf(q.Time) == Today()
}

// Calendar es el conjunto de días de negociación de un instrumento: la
// intersección de los dominios de todas las series cargadas para él.
// Es la única noción de "día hábil" que usa el motor.
type Calendar map[Day]struct{}

// NewCalendar crea un calendario con los días dados.
func NewCalendar(days ...Day) Calendar {
	c := make(Calendar, len(days))
	for _, d := range days {
		c[d] = struct{}{}
	}
	return c
}

// CalendarOf crea un calendario a partir del dominio de una PriceSeries.
func CalendarOf(prices PriceSeries) Calendar {
	c := make(Calendar, len(prices))
	for d := range prices {
		c[d] = struct{}{}
	}
	return c
}

// Has devuelve true si d es un día de negociación.
func (c Calendar) Has(d Day) bool {
	_, ok := c[d]
	return ok
}

// Len devuelve el número de días de negociación.
func (c Calendar) Len() int { return len(c) }

// Intersect devuelve la intersección con el dominio de otra serie de valoración.
// Debe aplicarse en cada carga de serie: nunca unión.
func (c Calendar) Intersect(vs ValuationSeries) Calendar {
	out := make(Calendar)
	for d := range c {
		if _, ok := vs[d]; ok {
			out[d] = struct{}{}
		}
	}
	return out
}

// IntersectPrices devuelve la intersección con el dominio de otra serie de precios.
func (c Calendar) IntersectPrices(ps PriceSeries) Calendar {
	out := make(Calendar)
	for d := range c {
		if _, ok := ps[d]; ok {
			out[d] = struct{}{}
		}
	}
	return out
}

// backscanDays limita la búsqueda hacia atrás de un día hábil.
// Cubre con margen el cierre más largo del mercado (festivos + vacaciones).
const backscanDays = 30

// Prev devuelve el día de negociación anterior a d (estrictamente), buscando
// hacia atrás hasta 30 días de calendario. ok=false si no hay ninguno.
func (c Calendar) Prev(d Day) (Day, bool) {
	for i := 1; i <= backscanDays; i++ {
		prev := d.AddDays(-i)
		if c.Has(prev) {
			return prev, true
		}
	}
	return Day{}, false
}

// On devuelve el día de negociación vigente en d: d si es hábil, o el hábil
// anterior más cercano, buscando hacia atrás hasta 30 días. ok=false si no hay.
func (c Calendar) On(d Day) (Day, bool) {
	if c.Has(d) {
		return d, true
	}
	return c.Prev(d)
}

// Sorted devuelve los días de negociación ordenados ascendentemente.
func (c Calendar) Sorted() []Day {
	days := make([]Day, 0, len(c))
	for d := range c {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
