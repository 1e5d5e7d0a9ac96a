package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"farmlink/internal/cache"
	"farmlink/internal/config"
	"farmlink/internal/models"
)

const marketService = "market"

var errInvalidJSON = errors.New("upstream returned invalid JSON")

// MarketClient proxies the data.gov.in mandi price resource.
type MarketClient struct {
	doer       Doer
	baseURL    string
	apiKey     string
	resourceID string
	timeout    time.Duration
}

// NewMarketClient configures a client from cfg. doer defaults to
// http.DefaultClient.
func NewMarketClient(cfg *config.Config, doer Doer) *MarketClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &MarketClient{
		doer:       doer,
		baseURL:    strings.TrimRight(cfg.MarketBaseURL, "/"),
		apiKey:     cfg.MarketAPIKey,
		resourceID: cfg.MarketResourceID,
		timeout:    cfg.UpstreamTimeout(),
	}
}

// MarketQuery filters the price records.
type MarketQuery struct {
	Commodity string
	State     string
	District  string
	Limit     int
	Offset    int
}

// MarketPrices is the proxied result.
type MarketPrices struct {
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

type marketResponse struct {
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

// Prices returns the mandi price records matching q.
func (c *MarketClient) Prices(ctx context.Context, q MarketQuery) (*MarketPrices, error) {
	if c.apiKey == "" {
		return nil, missingKeyError(marketService)
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("limit", strconv.Itoa(q.Limit))
	values.Set("offset", strconv.Itoa(q.Offset))
	for name, v := range map[string]string{"commodity": q.Commodity, "state": q.State, "district": q.District} {
		if v = strings.TrimSpace(v); v != "" {
			values.Set("filters["+name+"]", v)
		}
	}

	var out MarketPrices
	err := cache.Aside(ctx, cache.MarketKey(values.Encode()), &out, cache.MarketTTL, func() error {
		values.Set("api-key", c.apiKey)
		body, err := get(ctx, c.doer, c.timeout, marketService, "prices", c.baseURL+"/resource/"+c.resourceID, values)
		if err != nil {
			return err
		}
		var resp marketResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return models.NewUpstreamError(marketService, 0, errInvalidJSON)
		}
		if resp.Records == nil {
			resp.Records = []map[string]any{}
		}
		out = MarketPrices(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
