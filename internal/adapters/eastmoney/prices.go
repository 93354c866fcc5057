package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// historyPageSize es el tamaño de la primera página: solo sirve para leer
// TotalCount y repetir la petición pidiendo todo de una vez.
const historyPageSize = 20

// gzTimeLayout es el formato de la marca temporal de la estimación intradía.
const gzTimeLayout = "2006-01-02 15:04"

// navRow es una fila del histórico f10/lsjz. Los valores vienen como strings.
type navRow struct {
	Date string `json:"FSRQ"` // fecha YYYY-MM-DD
	Unit string `json:"DWJZ"` // valor liquidativo unitario
	Cum  string `json:"LJJZ"` // valor liquidativo acumulado
}

// historyResponse es la respuesta JSONP de f10/lsjz.
type historyResponse struct {
	TotalCount int `json:"TotalCount"`
	Data       struct {
		Rows []navRow `json:"LSJZList"`
	} `json:"Data"`
}

// liveResponse es la respuesta JSONP de fundgz: la estimación intradía.
type liveResponse struct {
	FundCode string `json:"fundcode"`
	Estimate string `json:"gsz"`    // estimación del valor unitario
	Time     string `json:"gztime"` // "YYYY-MM-DD HH:MM"
}

// FetchNavHistory devuelve la serie completa de valores liquidativos del fondo.
// Las filas sin valor (suspensiones, fondos recién lanzados) se descartan.
func (c *Client) FetchNavHistory(ctx context.Context, fid string) (domain.PriceSeries, error) {
	referer := fmt.Sprintf("http://fundf10.eastmoney.com/jjjz_%s.html", fid)

	first, err := c.fetchHistoryPage(ctx, fid, referer, historyPageSize)
	if err != nil {
		return nil, fmt.Errorf("eastmoney.FetchNavHistory: %s: %w", fid, err)
	}

	resp := first
	if first.TotalCount > historyPageSize {
		resp, err = c.fetchHistoryPage(ctx, fid, referer, first.TotalCount)
		if err != nil {
			return nil, fmt.Errorf("eastmoney.FetchNavHistory: %s: %w", fid, err)
		}
	}

	series := make(domain.PriceSeries, len(resp.Data.Rows))
	for _, row := range resp.Data.Rows {
		d, err := domain.ParseDay(row.Date)
		if err != nil {
			return nil, fmt.Errorf("eastmoney.FetchNavHistory: %s: bad date %q", fid, row.Date)
		}
		unit, err1 := strconv.ParseFloat(row.Unit, 64)
		cum, err2 := strconv.ParseFloat(row.Cum, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		series[d] = domain.Nav{Unit: unit, Cum: cum}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("eastmoney.FetchNavHistory: %s: empty nav history", fid)
	}
	return series, nil
}

// fetchHistoryPage pide una página del histórico con el pageSize dado.
func (c *Client) fetchHistoryPage(ctx context.Context, fid, referer string, pageSize int) (*historyResponse, error) {
	url := fmt.Sprintf("%s/f10/lsjz?callback=jQuery&pageIndex=1&pageSize=%d&startDate=&endDate=&fundCode=%s",
		c.apiBase, pageSize, fid)
	payload, err := c.getJSONP(ctx, url, referer)
	if err != nil {
		return nil, err
	}
	var resp historyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &resp, nil
}

// FetchLiveEstimate devuelve la estimación intradía del valor unitario con la
// marca temporal que reporta el proveedor. La frescura la juzga el llamador:
// una marca de otro día significa festivo, no error.
func (c *Client) FetchLiveEstimate(ctx context.Context, fid string) (float64, time.Time, error) {
	url := fmt.Sprintf("%s/js/%s.js", c.liveBase, fid)
	payload, err := c.getJSONP(ctx, url, "")
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("eastmoney.FetchLiveEstimate: %s: %w", fid, err)
	}

	var resp liveResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, time.Time{}, fmt.Errorf("eastmoney.FetchLiveEstimate: %s: decode: %w", fid, err)
	}
	estimate, err := strconv.ParseFloat(resp.Estimate, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("eastmoney.FetchLiveEstimate: %s: bad estimate %q", fid, resp.Estimate)
	}
	ts, err := time.Parse(gzTimeLayout, resp.Time)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("eastmoney.FetchLiveEstimate: %s: bad timestamp %q", fid, resp.Time)
	}
	return estimate, ts, nil
}
