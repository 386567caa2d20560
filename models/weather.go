package models

import "time"

// Current is the payload of GET /api/current.
type Current struct {
	Latitude         float64   `json:"latitude" msgpack:"lat"`
	Longitude        float64   `json:"longitude" msgpack:"lon"`
	Temperature      float64   `json:"temperature" msgpack:"t"`
	Humidity         float64   `json:"humidity" msgpack:"h"`
	WeatherCondition string    `json:"weatherCondition" msgpack:"wc"`
	Timestamp        time.Time `json:"timestamp" msgpack:"ts"`
	Confidence       int       `json:"confidence" msgpack:"c"`
} // @name Current

// ForecastEntry is one point of a forecast.
type ForecastEntry struct {
	Timestamp        time.Time `json:"timestamp" msgpack:"ts"`
	Temperature      float64   `json:"temperature" msgpack:"t"`
	Humidity         float64   `json:"humidity" msgpack:"h"`
	WeatherCondition string    `json:"weatherCondition" msgpack:"wc"`
	Confidence       int       `json:"confidence" msgpack:"c"`
} // @name ForecastEntry

// Forecast is the payload of GET /api/forecast.
type Forecast struct {
	Latitude  float64         `json:"latitude" msgpack:"lat"`
	Longitude float64         `json:"longitude" msgpack:"lon"`
	Forecast  []ForecastEntry `json:"forecast" msgpack:"f"`
} // @name Forecast
