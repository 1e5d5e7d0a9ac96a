package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"farmlink/internal/cache"
	"farmlink/internal/config"
	"farmlink/internal/models"
)

const weatherService = "weather"

// WeatherClient proxies the OpenWeatherMap current and forecast endpoints.
type WeatherClient struct {
	doer    Doer
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewWeatherClient configures a client from cfg. doer defaults to
// http.DefaultClient.
func NewWeatherClient(cfg *config.Config, doer Doer) *WeatherClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &WeatherClient{
		doer:    doer,
		baseURL: strings.TrimRight(cfg.OpenWeatherBaseURL, "/"),
		apiKey:  cfg.OpenWeatherAPIKey,
		timeout: cfg.UpstreamTimeout(),
	}
}

// Coordinates is a validated latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// ParseCoordinates validates the lat and lon query values.
func ParseCoordinates(lat, lon string) (Coordinates, error) {
	fields := map[string]string{}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		fields["lat"] = "must be a number between -90 and 90"
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil || lo < -180 || lo > 180 {
		fields["lon"] = "must be a number between -180 and 180"
	}
	if len(fields) > 0 {
		return Coordinates{}, models.NewFieldValidationError(fields)
	}
	return Coordinates{Lat: la, Lon: lo}, nil
}

// Current returns the upstream current-weather body verbatim.
func (c *WeatherClient) Current(ctx context.Context, at Coordinates) (json.RawMessage, error) {
	return c.fetch(ctx, "current", "/data/2.5/weather", at)
}

// Forecast returns the upstream 5-day forecast body verbatim.
func (c *WeatherClient) Forecast(ctx context.Context, at Coordinates) (json.RawMessage, error) {
	return c.fetch(ctx, "forecast", "/data/2.5/forecast", at)
}

func (c *WeatherClient) fetch(ctx context.Context, kind, path string, at Coordinates) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, missingKeyError(weatherService)
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(at.Lon, 'f', 4, 64))
	q.Set("units", "metric")

	var out json.RawMessage
	err := cache.Aside(ctx, cache.WeatherKey(kind, q.Encode()), &out, cache.WeatherTTL, func() error {
		q.Set("appid", c.apiKey)
		body, err := get(ctx, c.doer, c.timeout, weatherService, kind, c.baseURL+path, q)
		if err != nil {
			return err
		}
		if !json.Valid(body) {
			return models.NewUpstreamError(weatherService, 0, errInvalidJSON)
		}
		out = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
