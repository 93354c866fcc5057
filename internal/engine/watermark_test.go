package engine_test

import (
	"testing"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) domain.Day {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seriesOf construye una serie de valoración con días consecutivos terminando
// la víspera de ref.
func seriesOf(ref domain.Day, values ...float64) (domain.ValuationSeries, domain.Calendar) {
	series := make(domain.ValuationSeries, len(values))
	cal := make(domain.Calendar, len(values))
	for i, v := range values {
		d := ref.AddDays(-(len(values) - i))
		series[d] = v
		cal[d] = struct{}{}
	}
	return series, cal
}

func TestWatermark_PercentileConvention(t *testing.T) {
	ref := day("2024-06-10")
	series, cal := seriesOf(ref, 10, 6, 8)

	// Con [6 8 10]: índice del percentil 50 = 3*50/100 = 1 → 8 (no 6)
	wm, err := engine.Watermark(series, cal, ref, 50, 30)
	require.NoError(t, err)
	assert.Equal(t, 8.0, wm)

	wm, err = engine.Watermark(series, cal, ref, 30, 30)
	require.NoError(t, err)
	assert.Equal(t, 6.0, wm)

	// El índice se recorta al final de la lista
	wm, err = engine.Watermark(series, cal, ref, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, 10.0, wm)
}

func TestWatermark_Monotonic(t *testing.T) {
	ref := day("2024-06-10")
	series, cal := seriesOf(ref, 14, 9, 11, 8, 13, 10, 12, 7, 15, 6)

	prev := 0.0
	for _, n := range []int{30, 50, 70, 90} {
		wm, err := engine.Watermark(series, cal, ref, n, 30)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, wm, prev, "percentil %d", n)
		prev = wm
	}
}

func TestWatermark_ExcludesRefDay(t *testing.T) {
	ref := day("2024-06-10")
	series, cal := seriesOf(ref, 8, 8, 8)

	// Un valor extremo en la propia fecha de referencia no cuenta
	series[ref] = 1000
	cal[ref] = struct{}{}

	wm, err := engine.Watermark(series, cal, ref, 90, 30)
	require.NoError(t, err)
	assert.Equal(t, 8.0, wm)
}

func TestWatermark_EmptyWindow(t *testing.T) {
	ref := day("2024-06-10")
	series, cal := seriesOf(ref, 8, 9, 10)

	// Ventana que no alcanza ningún día con datos
	_, err := engine.Watermark(series, cal, ref.AddDays(365), 30, 30)
	assert.ErrorIs(t, err, engine.ErrInsufficientWindow)
}

func TestAvgPrice(t *testing.T) {
	ref := day("2024-06-10")
	prices := domain.PriceSeries{}
	cal := domain.Calendar{}
	for i, cum := range []float64{1.0, 2.0, 3.0} {
		d := ref.AddDays(-(i + 1))
		prices[d] = domain.Nav{Unit: cum, Cum: cum}
		cal[d] = struct{}{}
	}

	avg, err := engine.AvgPrice(prices, cal, ref, 30)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, avg, 1e-9)

	_, err = engine.AvgPrice(prices, cal, ref.AddDays(-300), 30)
	assert.ErrorIs(t, err, engine.ErrInsufficientWindow)
}

func TestPriceRank(t *testing.T) {
	ref := day("2024-06-10")
	prices := domain.PriceSeries{}
	cal := domain.Calendar{}
	for i, cum := range []float64{10, 9, 7} {
		d := ref.AddDays(-(i + 1))
		prices[d] = domain.Nav{Unit: cum, Cum: cum}
		cal[d] = struct{}{}
	}

	// Ventana descendente con el precio vigente incluido: [10 9 8 7]
	window := engine.PriceWindow(prices, cal, ref, 30, 8)
	require.Equal(t, []float64{10, 9, 8, 7}, window)

	rank, n := engine.PriceRank(window, 8)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.25, rank, 1e-9)

	// El más barato de la ventana puntúa 0
	window = engine.PriceWindow(prices, cal, ref, 30, 5)
	rank, _ = engine.PriceRank(window, 5)
	assert.Zero(t, rank)

	// El más caro se acerca a 1
	window = engine.PriceWindow(prices, cal, ref, 30, 20)
	rank, _ = engine.PriceRank(window, 20)
	assert.InDelta(t, 0.75, rank, 1e-9)
}
