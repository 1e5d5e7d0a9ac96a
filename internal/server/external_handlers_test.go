package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"farmlink/internal/config"
	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func respondWith(status int, body string) doerFunc {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	}
}

func withUpstreamKeys(cfg *config.Config) {
	cfg.OpenWeatherAPIKey = "weather-key"
	cfg.OpenWeatherBaseURL = "https://weather.example"
	cfg.MarketAPIKey = "market-key"
	cfg.MarketBaseURL = "https://market.example"
	cfg.MarketResourceID = "mandi"
}

func TestWeatherProxy(t *testing.T) {
	var seen *http.Request
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return respondWith(http.StatusOK, `{"main":{"temp":31.5}}`)(req)
	})
	env := newTestEnv(t, withUpstreamKeys, WithHTTPClient(doer))

	status, raw := env.do(t, http.MethodGet, "/api/weather/current?lat=19.99&lon=73.78", "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"main":{"temp":31.5}}`, string(raw))
	require.NotNil(t, seen)
	assert.Equal(t, "weather-key", seen.URL.Query().Get("appid"))

	status, raw = env.do(t, http.MethodGet, "/api/weather/forecast?lat=abc&lon=73.78", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, raw))
}

func TestWeatherProxy_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, withUpstreamKeys, WithHTTPClient(respondWith(http.StatusInternalServerError, `{}`)))

	status, raw := env.do(t, http.MethodGet, "/api/weather/current?lat=19.99&lon=73.78", "", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, models.CodeUpstreamFailure, errorCode(t, raw))
}

func TestMarketProxy(t *testing.T) {
	doer := respondWith(http.StatusOK, `{"total":1,"count":1,"records":[{"commodity":"Onion","modal_price":"1800"}]}`)
	env := newTestEnv(t, withUpstreamKeys, WithHTTPClient(doer))

	status, raw := env.do(t, http.MethodGet, "/api/market/prices?commodity=Onion&state=Maharashtra", "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"modal_price":"1800"`)
}

func TestMarketProxy_MissingKey(t *testing.T) {
	env := newTestEnv(t, nil, WithHTTPClient(respondWith(http.StatusOK, `{}`)))

	status, raw := env.do(t, http.MethodGet, "/api/market/prices?commodity=Onion", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, models.CodeUpstreamFailure, errorCode(t, raw))
}
