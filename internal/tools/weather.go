package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// WeatherClient reads the current temperature from weatherstack.
type WeatherClient struct {
	svc      *httpService
	baseURL  string
	apiKey   string
	location string
}

// WeatherConfig configures WeatherClient.
type WeatherConfig struct {
	BaseURL  string
	APIKey   string
	Location string
	HTTP     HTTPConfig
}

// NewWeatherClient returns a client for cfg.Location.
func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.weatherstack.com"
	}
	return &WeatherClient{
		svc:      newHTTPService("weatherstack", cfg.HTTP),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		location: cfg.Location,
	}
}

type weatherResponse struct {
	Success *bool `json:"success"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
	Current *struct {
		Temperature *float64 `json:"temperature"`
	} `json:"current"`
}

// CurrentTemperature returns today's temperature in degrees Celsius as text.
func (c *WeatherClient) CurrentTemperature(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("access_key", c.apiKey)
	q.Set("query", c.location)

	var resp weatherResponse
	if err := c.svc.getJSON(ctx, c.baseURL+"/current?"+q.Encode(), nil, &resp); err != nil {
		return "", err
	}

	// weatherstack отвечает 200 даже на ошибки, признак ошибки в теле
	if resp.Error != nil {
		return "", &ExternalServiceError{
			Service: c.svc.name,
			Err:     fmt.Errorf("%s (code %d): %s", resp.Error.Type, resp.Error.Code, resp.Error.Info),
		}
	}
	if resp.Current == nil || resp.Current.Temperature == nil {
		return "", &ExternalServiceError{Service: c.svc.name, Err: fmt.Errorf("response has no current temperature")}
	}

	return strconv.FormatFloat(*resp.Current.Temperature, 'f', -1, 64), nil
}
