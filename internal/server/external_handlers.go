package server

import (
	"context"
	"encoding/json"

	"farmlink/internal/external"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentWeather handles GET /api/weather/current
// @Summary Current weather
// @Description OpenWeatherMap current conditions, passed through verbatim
// @Tags weather
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /weather/current [get]
func (s *Server) GetCurrentWeather(c *fiber.Ctx) error {
	return s.weatherResponse(c, s.weather.Current)
}

// GetWeatherForecast handles GET /api/weather/forecast
// @Summary Weather forecast
// @Description OpenWeatherMap 5 day forecast, passed through verbatim
// @Tags weather
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /weather/forecast [get]
func (s *Server) GetWeatherForecast(c *fiber.Ctx) error {
	return s.weatherResponse(c, s.weather.Forecast)
}

func (s *Server) weatherResponse(c *fiber.Ctx, fetch func(ctx context.Context, at external.Coordinates) (json.RawMessage, error)) error {
	at, err := external.ParseCoordinates(c.Query("lat"), c.Query("lon"))
	if err != nil {
		return respondError(c, err)
	}
	body, err := fetch(c.UserContext(), at)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// GetMarketPrices handles GET /api/market/prices
// @Summary Mandi prices
// @Description data.gov.in commodity prices filtered by commodity, state and district
// @Tags market
// @Produce json
// @Param commodity query string false "Commodity"
// @Param state query string false "State"
// @Param district query string false "District"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} external.MarketPrices
// @Failure 502 {object} models.ErrorResponse
// @Router /market/prices [get]
func (s *Server) GetMarketPrices(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	prices, err := s.market.Prices(c.UserContext(), external.MarketQuery{
		Commodity: c.Query("commodity"),
		State:     c.Query("state"),
		District:  c.Query("district"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(prices)
}
