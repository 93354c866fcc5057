package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_Intersect(t *testing.T) {
	prices := domain.PriceSeries{
		day("2024-01-02"): {Unit: 1, Cum: 1},
		day("2024-01-03"): {Unit: 1, Cum: 1},
		day("2024-01-04"): {Unit: 1, Cum: 1},
	}
	ratios := domain.ValuationSeries{
		day("2024-01-03"): 10,
		day("2024-01-04"): 11,
		day("2024-01-05"): 12,
	}

	cal := domain.CalendarOf(prices).Intersect(ratios)

	assert.Equal(t, 2, cal.Len())
	assert.False(t, cal.Has(day("2024-01-02")), "solo precio: fuera")
	assert.True(t, cal.Has(day("2024-01-03")))
	assert.False(t, cal.Has(day("2024-01-05")), "solo ratio: fuera")
}

func TestCalendar_PrevAndOn(t *testing.T) {
	cal := domain.NewCalendar(day("2024-01-05"), day("2024-01-12"))

	// Prev es estrictamente anterior, saltando el hueco
	prev, ok := cal.Prev(day("2024-01-12"))
	require.True(t, ok)
	assert.Equal(t, day("2024-01-05"), prev)

	// On devuelve el propio día si es hábil
	on, ok := cal.On(day("2024-01-12"))
	require.True(t, ok)
	assert.Equal(t, day("2024-01-12"), on)

	// y el hábil anterior si no lo es
	on, ok = cal.On(day("2024-01-14"))
	require.True(t, ok)
	assert.Equal(t, day("2024-01-12"), on)

	// más de 30 días de hueco: se rinde
	_, ok = cal.Prev(day("2024-03-20"))
	assert.False(t, ok)
}

func TestCalendar_Sorted(t *testing.T) {
	cal := domain.NewCalendar(day("2024-01-12"), day("2024-01-02"), day("2024-01-05"))

	days := cal.Sorted()
	require.Len(t, days, 3)
	assert.Equal(t, day("2024-01-02"), days[0])
	assert.Equal(t, day("2024-01-12"), days[2])
}

func TestLiveQuote_IsFresh(t *testing.T) {
	fresh := domain.LiveQuote{Time: time.Now()}
	assert.True(t, fresh.IsFresh())

	stale := domain.LiveQuote{Time: time.Now().AddDate(0, 0, -1)}
	assert.False(t, stale.IsFresh(), "cotización de ayer = festivo")
}
