// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package agent

import (
	"fmt"
	"os"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"

	"github.com/kinderfleet/kinderfleet/planner"
	"github.com/kinderfleet/kinderfleet/structs"
)

// Config is the agent configuration, loaded once at startup from an HCL
// file with env var overrides for port credentials.
type Config struct {
	// BindAddr and HTTPPort locate the GraphQL listener.
	BindAddr string `hcl:"bind_addr"`
	HTTPPort int    `hcl:"http_port"`

	LogLevel string `hcl:"log_level"`

	// Depot is the facility location every route starts and ends at.
	Depot *DepotConfig `hcl:"depot"`

	// CapacityHeuristic sizes geographic clusters during planning.
	CapacityHeuristic int `hcl:"capacity_heuristic"`

	// OSRM configures the driving-time port. Optional: without it the
	// planner estimates travel times from great-circle distance.
	OSRM *OSRMEndpointConfig `hcl:"osrm"`

	// Nominatim configures the geocoding port. Optional: without it
	// geocodeAddress and address-geocoding on child creation fail with
	// PORT_FAILURE.
	Nominatim *NominatimEndpointConfig `hcl:"nominatim"`
}

// DepotConfig is the facility position in WGS-84 degrees.
type DepotConfig struct {
	Lat float64 `hcl:"lat"`
	Lon float64 `hcl:"lon"`
}

// OSRMEndpointConfig locates an OSRM table service.
type OSRMEndpointConfig struct {
	Address string `hcl:"address"`
}

// NominatimEndpointConfig locates a Nominatim server.
type NominatimEndpointConfig struct {
	Address string `hcl:"address"`
	Email   string `hcl:"email"`
}

// DefaultConfig returns the baseline configuration before file and env
// merging.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:          "127.0.0.1",
		HTTPPort:          4980,
		LogLevel:          "INFO",
		CapacityHeuristic: planner.DefaultCapacityHeuristic,
	}
}

// DevConfig returns the overrides applied in development mode: a built-in
// depot and chattier logging, so the agent runs without a config file.
func DevConfig() *Config {
	return &Config{
		LogLevel: "DEBUG",
		Depot:    &DepotConfig{Lat: 47.6062, Lon: -122.3321},
	}
}

// LoadConfigFile parses an HCL configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	var config Config
	if err := hcl.Decode(&config, string(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}
	return &config, nil
}

// Merge layers b on top of the receiver, returning a new config. Zero
// values in b leave the receiver's values in place.
func (c *Config) Merge(b *Config) *Config {
	result := *c
	if b == nil {
		return &result
	}

	if b.BindAddr != "" {
		result.BindAddr = b.BindAddr
	}
	if b.HTTPPort != 0 {
		result.HTTPPort = b.HTTPPort
	}
	if b.LogLevel != "" {
		result.LogLevel = b.LogLevel
	}
	if b.Depot != nil {
		depot := *b.Depot
		result.Depot = &depot
	}
	if b.CapacityHeuristic != 0 {
		result.CapacityHeuristic = b.CapacityHeuristic
	}
	if b.OSRM != nil {
		osrm := *b.OSRM
		result.OSRM = &osrm
	}
	if b.Nominatim != nil {
		nominatim := *b.Nominatim
		result.Nominatim = &nominatim
	}
	return &result
}

// MergeEnv applies the environment overrides used for port endpoints and
// credentials.
func (c *Config) MergeEnv() {
	if addr := os.Getenv("KINDERFLEET_OSRM_ADDR"); addr != "" {
		c.OSRM = &OSRMEndpointConfig{Address: addr}
	}
	if addr := os.Getenv("KINDERFLEET_NOMINATIM_ADDR"); addr != "" {
		if c.Nominatim == nil {
			c.Nominatim = &NominatimEndpointConfig{}
		}
		c.Nominatim.Address = addr
	}
	if email := os.Getenv("KINDERFLEET_NOMINATIM_EMAIL"); email != "" {
		if c.Nominatim == nil {
			c.Nominatim = &NominatimEndpointConfig{}
		}
		c.Nominatim.Email = email
	}
}

// Validate checks the merged configuration is runnable.
func (c *Config) Validate() error {
	var mErr multierror.Error
	if c.BindAddr == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing bind_addr"))
	}
	// Port zero asks the kernel for an ephemeral port, used in tests.
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("invalid http_port %d", c.HTTPPort))
	}
	if c.Depot == nil {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing depot block"))
	}
	if c.CapacityHeuristic < 0 {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("capacity_heuristic must be positive"))
	}
	return mErr.ErrorOrNil()
}

// DepotCoordinates returns the depot as planner coordinates.
func (c *Config) DepotCoordinates() structs.Coordinates {
	if c.Depot == nil {
		return structs.Coordinates{}
	}
	return structs.Coordinates{Lat: c.Depot.Lat, Lon: c.Depot.Lon}
}
