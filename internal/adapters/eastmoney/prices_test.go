package eastmoney_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alejandrodnm/fundbot/internal/adapters/eastmoney"
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

func TestFetchNavHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/f10/lsjz", r.URL.Path)
		assert.Equal(t, "100038", r.URL.Query().Get("fundCode"))
		assert.Contains(t, r.Header.Get("Referer"), "jjjz_100038")

		fmt.Fprint(w, `jQuery({"TotalCount":2,"Data":{"LSJZList":[
			{"FSRQ":"2024-06-04","DWJZ":"1.2340","LJJZ":"2.1100"},
			{"FSRQ":"2024-06-03","DWJZ":"1.2280","LJJZ":"2.1040"}
		]}})`)
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	series, err := client.FetchNavHistory(context.Background(), "100038")
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, domain.Nav{Unit: 1.234, Cum: 2.11}, series[day("2024-06-04")])
	assert.Equal(t, domain.Nav{Unit: 1.228, Cum: 2.104}, series[day("2024-06-03")])
}

func TestFetchNavHistory_RefetchesFullPage(t *testing.T) {
	var pageSizes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := r.URL.Query().Get("pageSize")
		pageSizes = append(pageSizes, size)

		rows := make([]string, 0, 25)
		n := 20
		if size == "25" {
			n = 25
		}
		for i := 0; i < n; i++ {
			rows = append(rows, fmt.Sprintf(`{"FSRQ":"2024-05-%02d","DWJZ":"1.0","LJJZ":"1.0"}`, i+1))
		}
		fmt.Fprintf(w, `jQuery({"TotalCount":25,"Data":{"LSJZList":[%s]}})`, strings.Join(rows, ","))
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	series, err := client.FetchNavHistory(context.Background(), "100038")
	require.NoError(t, err)

	// primera página solo para leer TotalCount; la segunda trae todo
	assert.Equal(t, []string{"20", "25"}, pageSizes)
	assert.Len(t, series, 25)
}

func TestFetchNavHistory_SkipsRowsWithoutValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `jQuery({"TotalCount":2,"Data":{"LSJZList":[
			{"FSRQ":"2024-06-04","DWJZ":"1.2340","LJJZ":"2.1100"},
			{"FSRQ":"2024-06-03","DWJZ":"","LJJZ":""}
		]}})`)
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	series, err := client.FetchNavHistory(context.Background(), "100038")
	require.NoError(t, err)

	assert.Len(t, series, 1, "la fila suspendida se descarta")
}

func TestFetchNavHistory_EmptyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `jQuery({"TotalCount":0,"Data":{"LSJZList":[]}})`)
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	_, err := client.FetchNavHistory(context.Background(), "100038")
	assert.Error(t, err)
}

func TestFetchLiveEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/js/100038.js", r.URL.Path)
		fmt.Fprint(w, `jsonpgz({"fundcode":"100038","gsz":"1.2345","gztime":"2024-06-03 14:30"});`)
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	estimate, ts, err := client.FetchLiveEstimate(context.Background(), "100038")
	require.NoError(t, err)

	assert.Equal(t, 1.2345, estimate)
	assert.Equal(t, day("2024-06-03"), domain.DayOf(ts))
	assert.Equal(t, 14, ts.Hour())
}

func TestFetchLiveEstimate_BadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>error</html>`)
	}))
	defer server.Close()

	client := eastmoney.NewClient(server.URL, server.URL)
	_, _, err := client.FetchLiveEstimate(context.Background(), "100038")
	assert.Error(t, err)
}
