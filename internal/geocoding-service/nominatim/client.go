package nominatim

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Place é um item da resposta JSON do /search (coordenadas vêm como texto).
type Place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type ReversePlace struct {
	DisplayName string         `json:"display_name"`
	Address     map[string]any `json:"address,omitempty"`
}

// UpstreamError: resposta fora de 2xx.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("geocoding upstream http %d", e.Status) }

// Client consulta um serviço compatível com Nominatim.
type Client struct {
	http         *resty.Client
	countryCodes string
}

func New(baseURL, userAgent, countryCodes string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
		countryCodes: countryCodes,
	}
}

// Search retorna no máximo um resultado para a consulta livre q.
func (c *Client) Search(ctx context.Context, q string) ([]Place, error) {
	var out []Place
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":       "json",
			"q":            q,
			"limit":        "1",
			"countrycodes": c.countryCodes,
		}).
		SetResult(&out).
		Get("/search")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &UpstreamError{Status: res.StatusCode()}
	}
	return out, nil
}

// Reverse resolve o endereço de uma coordenada.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*ReversePlace, error) {
	var out ReversePlace
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "json",
			"lat":            strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":            strconv.FormatFloat(lng, 'f', -1, 64),
			"addressdetails": "1",
		}).
		SetResult(&out).
		Get("/reverse")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &UpstreamError{Status: res.StatusCode()}
	}
	return &out, nil
}
