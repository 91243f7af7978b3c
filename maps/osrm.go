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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kinderfleet/kinderfleet/structs"
)

// osrmCacheSize bounds the matrix LRU. Rosters are small; the planner asks
// for the same cluster matrices repeatedly across re-plans of a date.
const osrmCacheSize = 128

// OSRMConfig configures an OSRM table-service client.
type OSRMConfig struct {
	// Address is the OSRM base URL, e.g. "https://router.project-osrm.org".
	Address string

	Logger hclog.Logger
}

// OSRMProvider implements TimeMatrixProvider against the OSRM /table
// endpoint. Responses are cached by the exact location list.
type OSRMProvider struct {
	address string
	client  *http.Client
	logger  hclog.Logger
	cache   *lru.Cache[string, [][]float64]
}

// NewOSRMProvider creates a time-matrix provider backed by an OSRM server.
func NewOSRMProvider(config *OSRMConfig) (*OSRMProvider, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("missing OSRM address")
	}
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}

	cache, err := lru.New[string, [][]float64](osrmCacheSize)
	if err != nil {
		return nil, err
	}

	return &OSRMProvider{
		address: strings.TrimRight(config.Address, "/"),
		client:  cleanhttp.DefaultPooledClient(),
		logger:  logger.Named("osrm"),
		cache:   cache,
	}, nil
}

// osrmTableResponse is the subset of the OSRM table response we consume.
type osrmTableResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Durations [][]float64 `json:"durations"`
}

// Matrix fetches pairwise driving durations in seconds.
func (p *OSRMProvider) Matrix(ctx context.Context, locations []structs.Coordinates) ([][]float64, error) {
	key := matrixCacheKey(locations)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	coords := make([]string, len(locations))
	for i, loc := range locations {
		// OSRM wants lon,lat order.
		coords[i] = strconv.FormatFloat(loc.Lon, 'f', 6, 64) + "," +
			strconv.FormatFloat(loc.Lat, 'f', 6, 64)
	}

	reqURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=duration",
		p.address, url.PathEscape(strings.Join(coords, ";")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: osrm table request: %v", structs.ErrPortFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: osrm table request returned status %d", structs.ErrPortFailure, resp.StatusCode)
	}

	var table osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("%w: osrm table decode: %v", structs.ErrPortFailure, err)
	}
	if table.Code != "Ok" {
		return nil, fmt.Errorf("%w: osrm table: %s %s", structs.ErrPortFailure, table.Code, table.Message)
	}
	if len(table.Durations) != len(locations) {
		return nil, fmt.Errorf("%w: osrm table returned %d rows for %d locations",
			structs.ErrPortFailure, len(table.Durations), len(locations))
	}
	for i, row := range table.Durations {
		// Unroutable pairs come back as null rows.
		if len(row) != len(locations) {
			return nil, fmt.Errorf("%w: osrm table row %d has %d entries for %d locations",
				structs.ErrPortFailure, i, len(row), len(locations))
		}
	}

	p.cache.Add(key, table.Durations)
	return table.Durations, nil
}

func matrixCacheKey(locations []structs.Coordinates) string {
	var sb strings.Builder
	for _, loc := range locations {
		fmt.Fprintf(&sb, "%.6f,%.6f;", loc.Lat, loc.Lon)
	}
	return sb.String()
}
