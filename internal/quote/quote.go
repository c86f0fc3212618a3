package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSymbolNotFound covers every lookup failure mode: network errors,
// non-2xx responses and malformed payloads all look the same to the user.
var ErrSymbolNotFound = errors.New("symbol not found")

type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Client looks up live quotes from the external price service. Every call
// is a fresh round trip; there is no cache.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type quoteResponse struct {
	CompanyName *string          `json:"companyName"`
	LatestPrice *decimal.Decimal `json:"latestPrice"`
	Symbol      *string          `json:"symbol"`
}

// Lookup fetches the current quote for a symbol. The caller is expected to
// have trimmed and upper-cased the symbol already.
func (c *Client) Lookup(ctx context.Context, symbol string) (Quote, error) {
	u := fmt.Sprintf("%s/stable/stock/%s/quote?token=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, ErrSymbolNotFound
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, ErrSymbolNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quote{}, ErrSymbolNotFound
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, ErrSymbolNotFound
	}
	if body.CompanyName == nil || body.LatestPrice == nil || body.Symbol == nil {
		return Quote{}, ErrSymbolNotFound
	}
	if body.LatestPrice.IsNegative() {
		return Quote{}, ErrSymbolNotFound
	}

	return Quote{
		Symbol: *body.Symbol,
		Name:   *body.CompanyName,
		Price:  *body.LatestPrice,
	}, nil
}
