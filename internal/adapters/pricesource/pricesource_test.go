package pricesource_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/fundbot/internal/adapters/eastmoney"
	"github.com/alejandrodnm/fundbot/internal/adapters/pricesource"
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

// fakeEastmoney sirve histórico y estimación intradía por fondo.
type fakeEastmoney struct {
	history map[string]string // fid → filas LSJZList
	live    map[string]string // fid → payload fundgz
}

func (f *fakeEastmoney) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/f10/lsjz", func(w http.ResponseWriter, r *http.Request) {
		rows := f.history[r.URL.Query().Get("fundCode")]
		fmt.Fprintf(w, `jQuery({"TotalCount":2,"Data":{"LSJZList":[%s]}})`, rows)
	})
	mux.HandleFunc("/js/", func(w http.ResponseWriter, r *http.Request) {
		fid := r.URL.Path[len("/js/") : len(r.URL.Path)-len(".js")]
		fmt.Fprintf(w, "jsonpgz(%s);", f.live[fid])
	})
	return mux
}

func newClient(t *testing.T, fake *fakeEastmoney) *eastmoney.Client {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return eastmoney.NewClient(server.URL, server.URL)
}

func TestSingleFund_LiveQuote_DividendDelta(t *testing.T) {
	fake := &fakeEastmoney{
		history: map[string]string{
			"100038": `{"FSRQ":"2024-06-03","DWJZ":"1.0000","LJJZ":"2.0000"}`,
		},
		live: map[string]string{
			"100038": `{"fundcode":"100038","gsz":"1.1000","gztime":"2024-06-04 14:30"}`,
		},
	}

	src := pricesource.NewSingleFund(newClient(t, fake), "100038", false)
	quote, err := src.LiveQuote(context.Background())
	require.NoError(t, err)

	// acumulado = estimación + (acumulado − unitario) del último día publicado
	assert.InDelta(t, 1.1, quote.Nav.Unit, 1e-9)
	assert.InDelta(t, 2.1, quote.Nav.Cum, 1e-9)
	assert.Equal(t, day("2024-06-04"), domain.DayOf(quote.Time))
}

func TestSingleFund_LiveQuote_SplitRatio(t *testing.T) {
	fake := &fakeEastmoney{
		history: map[string]string{
			"161725": `{"FSRQ":"2024-06-03","DWJZ":"1.0000","LJJZ":"2.0000"}`,
		},
		live: map[string]string{
			"161725": `{"fundcode":"161725","gsz":"1.1000","gztime":"2024-06-04 14:30"}`,
		},
	}

	src := pricesource.NewSingleFund(newClient(t, fake), "161725", true)
	quote, err := src.LiveQuote(context.Background())
	require.NoError(t, err)

	// acumulado = estimación × (acumulado / unitario): ajuste multiplicativo
	assert.InDelta(t, 2.2, quote.Nav.Cum, 1e-9)
}

func TestWeightedComposite_LoadHistory_IntersectionOnly(t *testing.T) {
	fake := &fakeEastmoney{
		history: map[string]string{
			"AAA": `{"FSRQ":"2024-01-02","DWJZ":"1.0","LJJZ":"1.0"},
			        {"FSRQ":"2024-01-03","DWJZ":"2.0","LJJZ":"2.0"}`,
			"BBB": `{"FSRQ":"2024-01-03","DWJZ":"4.0","LJJZ":"4.0"},
			        {"FSRQ":"2024-01-04","DWJZ":"5.0","LJJZ":"5.0"}`,
		},
	}

	src, err := pricesource.NewWeightedComposite(newClient(t, fake), []domain.ComponentWeight{
		{FID: "AAA", Percent: 60},
		{FID: "BBB", Percent: 40},
	})
	require.NoError(t, err)

	series, err := src.LoadHistory(context.Background())
	require.NoError(t, err)

	// solo el día presente en ambos componentes se valora
	require.Len(t, series, 1)
	nav := series[day("2024-01-03")]
	assert.InDelta(t, 2.0*0.6+4.0*0.4, nav.Unit, 1e-9)
}

func TestWeightedComposite_LiveQuote(t *testing.T) {
	fake := &fakeEastmoney{
		history: map[string]string{
			"AAA": `{"FSRQ":"2024-06-03","DWJZ":"1.0","LJJZ":"1.0"}`,
			"BBB": `{"FSRQ":"2024-06-03","DWJZ":"2.0","LJJZ":"2.0"}`,
		},
		live: map[string]string{
			"AAA": `{"fundcode":"AAA","gsz":"1.0","gztime":"2024-06-04 14:30"}`,
			"BBB": `{"fundcode":"BBB","gsz":"2.0","gztime":"2024-06-03 15:00"}`,
		},
	}

	src, err := pricesource.NewWeightedComposite(newClient(t, fake), []domain.ComponentWeight{
		{FID: "AAA", Percent: 50},
		{FID: "BBB", Percent: 50},
	})
	require.NoError(t, err)

	quote, err := src.LiveQuote(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.5, quote.Nav.Unit, 1e-9)
	// la marca temporal más antigua manda: si un componente está obsoleto,
	// el compuesto entero lo está
	assert.Equal(t, day("2024-06-03"), domain.DayOf(quote.Time))
}

func TestWeightedComposite_Validation(t *testing.T) {
	client := eastmoney.NewClient("http://unused.invalid", "http://unused.invalid")

	_, err := pricesource.NewWeightedComposite(client, nil)
	assert.Error(t, err, "sin componentes")

	_, err = pricesource.NewWeightedComposite(client, []domain.ComponentWeight{
		{FID: "AAA", Percent: 0},
	})
	assert.Error(t, err, "peso no positivo")
}
