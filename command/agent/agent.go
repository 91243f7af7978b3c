// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package agent wires the planner core to its runtime surfaces: the state
// store, the geo ports, the GraphQL HTTP endpoint, and configuration.
package agent

import (
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"
	"oss.indeed.com/go/libtime"

	"github.com/kinderfleet/kinderfleet/maps"
	"github.com/kinderfleet/kinderfleet/planner"
	"github.com/kinderfleet/kinderfleet/routes"
	"github.com/kinderfleet/kinderfleet/state"
)

// Agent owns every long-lived component of the service.
type Agent struct {
	config *Config
	logger hclog.Logger

	state    *state.StateStore
	planner  *planner.Planner
	editor   *routes.Editor
	geocoder maps.Geocoder
	clock    libtime.Clock

	httpServer *HTTPServer

	shutdown     bool
	shutdownLock sync.Mutex
}

// NewAgent builds and starts an agent from a validated config.
func NewAgent(config *Config, logger hclog.Logger) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = logger.Named("agent")

	setupMetrics()

	store, err := state.NewStateStore(&state.StateStoreConfig{Logger: logger})
	if err != nil {
		return nil, err
	}

	a := &Agent{
		config: config,
		logger: logger,
		state:  store,
		clock:  libtime.SystemClock(),
	}

	var matrix maps.TimeMatrixProvider
	if config.OSRM != nil {
		provider, err := maps.NewOSRMProvider(&maps.OSRMConfig{
			Address: config.OSRM.Address,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("osrm setup failed: %v", err)
		}
		matrix = provider
	} else {
		logger.Warn("no OSRM endpoint configured, travel times fall back to great-circle estimates")
	}

	if config.Nominatim != nil {
		geocoder, err := maps.NewNominatimGeocoder(&maps.NominatimConfig{
			Address: config.Nominatim.Address,
			Email:   config.Nominatim.Email,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("nominatim setup failed: %v", err)
		}
		a.geocoder = geocoder
	}

	a.planner = planner.New(&planner.Config{
		Logger:            logger,
		State:             store,
		Matrix:            matrix,
		Depot:             config.DepotCoordinates(),
		CapacityHeuristic: config.CapacityHeuristic,
	})
	a.editor = routes.NewEditor(logger, store)

	httpServer, err := NewHTTPServer(a, config)
	if err != nil {
		return nil, err
	}
	a.httpServer = httpServer

	return a, nil
}

// setupMetrics installs the in-memory telemetry sink.
func setupMetrics() {
	inmem := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inmem)
	metrics.NewGlobal(metrics.DefaultConfig("kinderfleet"), inmem)
}

// State exposes the state store for queries.
func (a *Agent) State() *state.StateStore {
	return a.state
}

// HTTPAddr returns the bound address of the HTTP listener.
func (a *Agent) HTTPAddr() string {
	return a.httpServer.Addr
}

// Shutdown terminates the agent and its listeners.
func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()

	if a.shutdown {
		return nil
	}
	a.logger.Info("requesting shutdown")
	if a.httpServer != nil {
		a.httpServer.Shutdown()
	}
	a.shutdown = true
	a.logger.Info("shutdown complete")
	return nil
}
