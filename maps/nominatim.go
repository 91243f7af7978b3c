// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/kinderfleet/kinderfleet/helper/pointer"
	"github.com/kinderfleet/kinderfleet/structs"
)

// NominatimConfig configures a Nominatim geocoding client.
type NominatimConfig struct {
	// Address is the Nominatim base URL, e.g.
	// "https://nominatim.openstreetmap.org".
	Address string

	// Email identifies the operator per the Nominatim usage policy.
	Email string

	Logger hclog.Logger
}

// NominatimGeocoder implements Geocoder against a Nominatim server.
type NominatimGeocoder struct {
	address string
	email   string
	client  *http.Client
	logger  hclog.Logger
}

// NewNominatimGeocoder creates a geocoder backed by a Nominatim server.
func NewNominatimGeocoder(config *NominatimConfig) (*NominatimGeocoder, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("missing Nominatim address")
	}
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}

	return &NominatimGeocoder{
		address: strings.TrimRight(config.Address, "/"),
		email:   config.Email,
		client:  cleanhttp.DefaultPooledClient(),
		logger:  logger.Named("nominatim"),
	}, nil
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup resolves an address to coordinates. A response with no candidates
// returns (nil, nil): the address stays ungeocoded rather than failing the
// caller.
func (g *NominatimGeocoder) Lookup(ctx context.Context, address string) (*structs.Coordinates, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.email != "" {
		params.Set("email", g.email)
	}

	reqURL := g.address + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode request: %v", structs.ErrPortFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocode request returned status %d", structs.ErrPortFailure, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: geocode decode: %v", structs.ErrPortFailure, err)
	}
	if len(results) == 0 {
		g.logger.Debug("no geocode candidates", "address", address)
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode returned bad latitude %q", structs.ErrPortFailure, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode returned bad longitude %q", structs.ErrPortFailure, results[0].Lon)
	}

	return pointer.Of(structs.Coordinates{Lat: lat, Lon: lon}), nil
}
