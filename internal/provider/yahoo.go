package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/resilience"
)

// YahooProvider fetches bars from the Yahoo Finance public chart API.
type YahooProvider struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooProvider creates a provider with optional proxy support.
func NewYahooProvider(proxyURL string, symbolMap map[string]string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if symbolMap == nil {
		symbolMap = map[string]string{}
	}
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL:   "https://query1.finance.yahoo.com",
		SymbolMap: symbolMap,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloatPtr(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	default:
		return nil
	}
}

func at(values []interface{}, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return toFloatPtr(values[i])
}

// Fetch retrieves bars for symbol over the given period. Responses with no
// rows yield an empty slice and a nil error.
func (p *YahooProvider) Fetch(ctx context.Context, symbol, period string, interval model.Interval) ([]Row, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		p.BaseURL, url.PathEscape(p.yahooSymbol(symbol)), string(interval), period)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("yahoo request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		httpErr := fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
		// Client errors other than throttling will not heal on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(httpErr)
		}
		return nil, httpErr
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, resilience.Permanent(fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, nil // no data for this symbol/range
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]
	var adjClose []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	rows := make([]Row, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		row := Row{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      at(quote.Open, i),
			High:      at(quote.High, i),
			Low:       at(quote.Low, i),
			Close:     at(quote.Close, i),
			AdjClose:  at(adjClose, i),
			Volume:    at(quote.Volume, i),
		}
		if row.Open == nil && row.High == nil && row.Low == nil && row.Close == nil {
			continue // skip null bars (holidays etc.)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	return rows, nil
}
