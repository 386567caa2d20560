package main

import (
	"github.com/climalink/climalink/weather"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

var errNoRPC = fiber.NewError(fiber.StatusServiceUnavailable, "eligibility is not available: no RPC node configured")

// @summary		Get current weather
// @description	Current conditions at the given coordinates, proxied from OpenWeatherMap.
// @id			api_get_current
// @tags		weather
// @Produce		json
// @success		200	{object}	models.Current
// @failure		400	{object}	weather.Error
// @failure		500	{object}	weather.Error
// @param		latitude	query	number	true	"Latitude in degrees, -90..90"
// @param		longitude	query	number	true	"Longitude in degrees, -180..180"
// @router		/current [get]
func (s *Server) GetCurrent(c *fiber.Ctx) error {
	lat, lon, err := weather.ParseCoordinates(c.Query("latitude"), c.Query("longitude"))
	if err != nil {
		return err
	}
	res, err := s.weather.Current(c.UserContext(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(&res)
}

// @summary		Get weather forecast
// @description	Daily forecast at the given coordinates. Confidence decreases with the distance in days.
// @id			api_get_forecast
// @tags		weather
// @Produce		json
// @success		200	{object}	models.Forecast
// @failure		400	{object}	weather.Error
// @failure		500	{object}	weather.Error
// @param		latitude	query	number	true	"Latitude in degrees, -90..90"
// @param		longitude	query	number	true	"Longitude in degrees, -180..180"
// @router		/forecast [get]
func (s *Server) GetForecast(c *fiber.Ctx) error {
	lat, lon, err := weather.ParseCoordinates(c.Query("latitude"), c.Query("longitude"))
	if err != nil {
		return err
	}
	res, err := s.weather.Forecast(c.UserContext(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(&res)
}

// @summary		Get account eligibility
// @description	Resolves the role of an account and whether it may join the DAO.
// @id			api_get_eligibility
// @tags		eligibility
// @Produce		json
// @success		200	{object}	eligibility.Snapshot
// @failure		400	{object}	weather.Error
// @failure		503	{object}	weather.Error
// @param		address	query	string	true	"Account address, 0x-prefixed"
// @router		/eligibility [get]
func (s *Server) GetEligibility(c *fiber.Ctx) error {
	if s.reader == nil {
		return errNoRPC
	}
	address := c.Query("address")
	if !common.IsHexAddress(address) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid address")
	}
	account := common.HexToAddress(address)
	if !s.networkOK.Load() {
		snap := s.eligibility.Unavailable(account)
		return c.JSON(&snap)
	}
	snap := s.eligibility.Resolve(c.UserContext(), account)
	return c.JSON(&snap)
}

func HealthCheck(c *fiber.Ctx) error {
	return c.SendString("OK")
}
