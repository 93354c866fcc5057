package engine

// watermark.go — estadísticos de ventana móvil sobre series diarias.
//
// Todos operan sobre datos estrictamente históricos (la fecha de referencia
// queda fuera: su ratio todavía no es definitivo) y solo sobre fechas que
// pertenecen al calendario de negociación.

import (
	"errors"
	"sort"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// ErrInsufficientWindow indica que la ventana filtrada quedó vacía: no hay
// datos históricos suficientes para el estadístico pedido. El llamador debe
// saltarse la decisión de esa fecha.
var ErrInsufficientWindow = errors.New("insufficient data in window")

// windowValues recolecta los valores de la serie para las fechas
// ref-1 .. ref-windowDays que pertenecen al calendario.
func windowValues(get func(domain.Day) (float64, bool), cal domain.Calendar, ref domain.Day, windowDays int) []float64 {
	values := make([]float64, 0, windowDays)
	for i := 1; i <= windowDays; i++ {
		d := ref.AddDays(-i)
		if !cal.Has(d) {
			continue
		}
		if v, ok := get(d); ok {
			values = append(values, v)
		}
	}
	return values
}

// percentileIndex devuelve el índice del percentil n sobre una lista ordenada
// de longitud length.
//
// Convención fija: length*n/100 SIN el -1 final, recortado al rango válido.
// Las dos variantes coexistieron históricamente y desplazan cada línea de agua
// un puesto; todo el sistema usa esta de forma uniforme.
func percentileIndex(length, n int) int {
	idx := length * n / 100
	if idx >= length {
		idx = length - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Watermark devuelve la línea de agua del percentil n de una serie de
// valoración, sobre la ventana de windowDays días de calendario anteriores a
// ref. Devuelve ErrInsufficientWindow si la ventana filtrada queda vacía.
func Watermark(series domain.ValuationSeries, cal domain.Calendar, ref domain.Day, n, windowDays int) (float64, error) {
	values := windowValues(func(d domain.Day) (float64, bool) {
		v, ok := series[d]
		return v, ok
	}, cal, ref, windowDays)
	if len(values) == 0 {
		return 0, ErrInsufficientWindow
	}
	sort.Float64s(values)
	return values[percentileIndex(len(values), n)], nil
}

// AvgPrice devuelve la media aritmética del valor liquidativo acumulado en la
// ventana de windowDays días anteriores a ref.
func AvgPrice(prices domain.PriceSeries, cal domain.Calendar, ref domain.Day, windowDays int) (float64, error) {
	values := cumWindow(prices, cal, ref, windowDays)
	if len(values) == 0 {
		return 0, ErrInsufficientWindow
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values)), nil
}

// PriceWindow devuelve los valores acumulados de la ventana ordenados
// descendentemente (el más caro primero), con el precio vigente incluido.
func PriceWindow(prices domain.PriceSeries, cal domain.Calendar, ref domain.Day, windowDays int, current float64) []float64 {
	values := cumWindow(prices, cal, ref, windowDays)
	values = append(values, current)
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values
}

// PriceRank devuelve el nivel de agua del precio vigente dentro de la ventana:
// 0 = el más barato de la ventana, cercano a 1 = el más caro.
// El segundo valor es el tamaño de la muestra.
func PriceRank(window []float64, current float64) (float64, int) {
	n := len(window)
	if n == 0 {
		return 0, 0
	}
	idx := indexOf(window, current)
	return 1 - float64(idx+1)/float64(n), n
}

func cumWindow(prices domain.PriceSeries, cal domain.Calendar, ref domain.Day, windowDays int) []float64 {
	return windowValues(func(d domain.Day) (float64, bool) {
		nav, ok := prices[d]
		return nav.Cum, ok
	}, cal, ref, windowDays)
}

// indexOf devuelve la primera posición de v en la lista (lista pequeña, lineal).
func indexOf(values []float64, v float64) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return 0
}
