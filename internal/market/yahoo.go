package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultYahooBaseURL  = "https://query1.finance.yahoo.com"
	FallbackYahooBaseURL = "https://query2.finance.yahoo.com"

	yahooUserAgent = "Mozilla/5.0"
	maxAttempts    = 3
	retryPause     = 150 * time.Millisecond
)

type YahooProvider struct {
	baseURL string
	client  *http.Client
}

type chartResp struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

// Some symbols carry only one of the two previous close fields.
type chartMeta struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	PreviousClose      *float64 `json:"previousClose"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &YahooProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *YahooProvider) GetQuote(ctx context.Context, query string) (Snapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Snapshot{}, fmt.Errorf("query is empty")
	}

	endpoint := p.baseURL + "/v8/finance/chart/" + url.PathEscape(query)
	u, err := url.Parse(endpoint)
	if err != nil {
		return Snapshot{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("interval", "1d")
	q.Set("range", "1d")
	u.RawQuery = q.Encode()

	var payload chartResp
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		payload, lastErr = p.fetch(ctx, u.String())
		if lastErr == nil {
			break
		}
		if !shouldRetry(lastErr) || attempt == maxAttempts-1 {
			return Snapshot{}, lastErr
		}
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(retryPause):
		}
	}

	if e := payload.Chart.Error; e != nil {
		return Snapshot{}, fmt.Errorf("yahoo error %s: %s", e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return Snapshot{}, fmt.Errorf("%s: %w", query, ErrEmptyResult)
	}
	meta := payload.Chart.Result[0].Meta
	price := valueOf(meta.RegularMarketPrice)
	if price == 0 {
		return Snapshot{}, fmt.Errorf("%s: %w", query, ErrNoPrice)
	}
	prevClose := valueOf(meta.ChartPreviousClose)
	if prevClose == 0 {
		prevClose = valueOf(meta.PreviousClose)
	}
	if prevClose == 0 {
		return Snapshot{}, fmt.Errorf("%s: %w", query, ErrNoPreviousClose)
	}

	ts := meta.RegularMarketTime
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return Snapshot{
		Symbol:    query,
		Price:     price,
		PrevClose: prevClose,
		TS:        ts,
	}, nil
}

func (p *YahooProvider) fetch(ctx context.Context, endpoint string) (chartResp, error) {
	var payload chartResp

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return payload, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return payload, fmt.Errorf("request yahoo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return payload, fmt.Errorf("request yahoo: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return payload, fmt.Errorf("decode yahoo: %w", err)
	}
	return payload, nil
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer") {
		return true
	}
	return false
}
