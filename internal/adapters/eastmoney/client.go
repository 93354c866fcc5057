package eastmoney

// client.go — HTTP client de los APIs de Eastmoney (histórico de valores
// liquidativos y estimación intradía). Ambos endpoints responden JSONP: un
// callback de jQuery envolviendo el JSON real, que extraemos por regex.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPIBase  = "http://api.fund.eastmoney.com"
	defaultLiveBase = "http://fundgz.1234567.com.cn"

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.130 Safari/537.36"

	requestsPerSec = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// jsonpRe extrae el objeto JSON del envoltorio callback(...).
var jsonpRe = regexp.MustCompile(`(?s)[^(]*\((\{.*\})\)`)

// Client es el HTTP client de Eastmoney.
type Client struct {
	http     *http.Client
	apiBase  string
	liveBase string
	limiter  *rate.Limiter
}

// NewClient crea un Client. Con bases vacías usa los URLs de producción.
func NewClient(apiBase, liveBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if liveBase == "" {
		liveBase = defaultLiveBase
	}
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		apiBase:  apiBase,
		liveBase: liveBase,
		limiter:  rate.NewLimiter(requestsPerSec, 2),
	}
}

// getJSONP hace un GET y devuelve el JSON desenvuelto del callback.
// El API exige Referer de la página de la ficha del fondo.
func (c *Client) getJSONP(ctx context.Context, url, referer string) ([]byte, error) {
	body, err := c.get(ctx, url, referer)
	if err != nil {
		return nil, err
	}
	m := jsonpRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("no JSONP payload in response: %.80s", body)
	}
	return m[1], nil
}

// get hace un GET con rate limiting y backoff exponencial ante 429 y 5xx.
func (c *Client) get(ctx context.Context, url, referer string) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUA)
		if referer != "" {
			req.Header.Set("Referer", referer)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("eastmoney retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
