package domain

import (
	"fmt"
	"time"
)

// DayLayout es el formato de fecha usado en todo el sistema (buy log, config, flags).
const DayLayout = "2006-01-02"

// Day es una fecha de calendario sin componente horario.
// Se construye siempre normalizada a medianoche UTC, por lo que dos Day con la
// misma fecha son comparables con == y sirven como clave de mapa.
type Day struct {
	t time.Time
}

// NewDay crea un Day a partir de año, mes y día.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf trunca un time.Time a su fecha de calendario.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// Today devuelve la fecha de hoy.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parsea una fecha en formato YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("domain.ParseDay: %q: %w", s, err)
	}
	return DayOf(t), nil
}

// AddDays devuelve la fecha desplazada n días (n puede ser negativo).
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Before devuelve true si d es anterior a other.
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }

// After devuelve true si d es posterior a other.
func (d Day) After(other Day) bool { return d.t.After(other.t) }

// Sub devuelve el número de días de calendario entre d y other (d - other).
func (d Day) Sub(other Day) int {
	return int(d.t.Sub(other.t) / (24 * time.Hour))
}

// Year devuelve el año de la fecha.
func (d Day) Year() int { return d.t.Year() }

// IsZero devuelve true si el Day no fue inicializado.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Time devuelve la fecha como time.Time a medianoche UTC.
func (d Day) Time() time.Time { return d.t }

// String devuelve la fecha en formato YYYY-MM-DD.
func (d Day) String() string { return d.t.Format(DayLayout) }
