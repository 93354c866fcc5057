package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/alejandrodnm/fundbot/internal/adapters/notify"
	"github.com/alejandrodnm/fundbot/internal/domain"
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

func sampleDecisions() []domain.Decision {
	return []domain.Decision{
		{
			Record: domain.DecisionRecord{Date: day("2024-06-03"), Capital: 150, Amount: 75.19},
			Diagnostics: domain.Diagnostics{
				FID: "100038", Name: "CSI 300", Date: day("2024-06-03"),
				Ratio: 11.5, Watermark30: 12.0, Watermark50: 13.0,
				Watermark70: 14.0, Watermark90: 15.0,
				Price: 1.9950, AvgPrice: 2.1, Weight: 1.5,
				BuyWater: 0.8, BuyWaterSamples: 42,
			},
		},
		{
			Record: domain.DecisionRecord{Date: day("2024-06-03")},
			Diagnostics: domain.Diagnostics{
				FID: "001594", Name: "Banks", Date: day("2024-06-03"),
				Reason: "ratio above watermark",
			},
		},
	}
}

func TestConsole_DailyCompact(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, console.NotifyDaily(context.Background(), sampleDecisions()))
	out := buf.String()

	// resumen y una entrada por compra; los fondos sin compra no aparecen
	assert.Contains(t, out, "2 funds → buy:1")
	assert.Contains(t, out, "100038 CSI 300 ¥150 @1.9950 w1.50")
	assert.NotContains(t, out, "001594")
}

func TestConsole_DailyTable(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, console.NotifyDaily(context.Background(), sampleDecisions()))
	out := buf.String()

	assert.Contains(t, out, "buy:1 skip:1")
	assert.Contains(t, out, "12.00/13.00/14.00/15.00")
	assert.Contains(t, out, "ratio above watermark")
	// la línea de agua solo se muestra con muestras suficientes
	assert.Contains(t, out, "0.80")
	assert.Contains(t, out, "n/a (0)")
}

func TestConsole_DailyEmpty(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, console.NotifyDaily(context.Background(), nil))
	assert.Contains(t, buf.String(), "no decisions computed")
}

func TestConsole_History(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, true)

	diags := []domain.Diagnostics{
		{
			FID: "100038", Name: "CSI 300", Date: day("2024-06-03"),
			Ratio: 11.5, Watermark30: 12.0, Watermark50: 13.0,
			Watermark70: 14.0, Watermark90: 15.0,
			Price: 1.9950, AvgPrice: 2.1, Weight: 1.5,
			BuyWater: 0.8, BuyWaterSamples: 42,
		},
		{
			FID: "100038", Name: "CSI 300", Date: day("2024-06-04"),
			Reason: "ratio above watermark",
		},
	}

	require.NoError(t, console.NotifyHistory(context.Background(), diags))
	out := buf.String()

	assert.Contains(t, out, "100038 CSI 300 — 2 stored decisions (2024-06-03 to 2024-06-04)")
	assert.Contains(t, out, "12.00/13.00/14.00/15.00")
	assert.Contains(t, out, "ratio above watermark")
}

func TestConsole_HistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, console.NotifyHistory(context.Background(), nil))
	assert.Contains(t, buf.String(), "No stored decisions")
}

func TestConsole_Backtest(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, true)

	results := []domain.BacktestResult{{
		FID:            "100038",
		Begin:          day("2024-01-02"),
		End:            day("2024-06-28"),
		TotalCapital:   12000,
		TotalAmount:    6100.55,
		AverageCost:    1.9670,
		FinalPrice:     2.1500,
		FinalReturnPct: 9.25,
		BestGainPct:    14.80,
		BestGainDay:    day("2024-05-20"),
		Days:           120,
		BuyDays:        87,
	}}

	require.NoError(t, console.NotifyBacktest(context.Background(), results))
	out := buf.String()

	assert.Contains(t, out, "=== BACKTEST — 2024-01-02 to 2024-06-28 ===")
	assert.Contains(t, out, "Trading days: 120 (87 with buys)")
	assert.Contains(t, out, "return 9.25% net of fees")
	assert.Contains(t, out, "Best exit:    14.80% on 2024-05-20")
}

func TestConsole_BacktestEmpty(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, console.NotifyBacktest(context.Background(), nil))
	assert.Contains(t, buf.String(), "No backtest results available")
}
