// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package planner

import (
	"context"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/kinderfleet/kinderfleet/helper/uuid"
	"github.com/kinderfleet/kinderfleet/maps"
	"github.com/kinderfleet/kinderfleet/state"
	"github.com/kinderfleet/kinderfleet/structs"
)

// Unroutable reasons surfaced to callers. The wording is part of the
// external contract.
const (
	ReasonNoInfantDriver = "No infant-certified driver available"
	ReasonNoInfantSeat   = "No vehicle with infant seat available"
	ReasonNoToddlerSeat  = "No vehicle with toddler seat available"
	ReasonNoTransport    = "No compatible transport available"
)

// UnroutableChild pairs a child the planner could not place with the
// reason.
type UnroutableChild struct {
	Child  *structs.Child
	Reason string
}

// PlanningResult is the outcome of planning one calendar date.
type PlanningResult struct {
	Routes     []*structs.Route
	Unroutable []*UnroutableChild
}

// Config configures a Planner.
type Config struct {
	Logger hclog.Logger
	State  *state.StateStore

	// Matrix is the driving-time port; nil means great-circle estimation
	// only.
	Matrix maps.TimeMatrixProvider

	// Depot is the facility location every route starts and ends at.
	Depot structs.Coordinates

	// CapacityHeuristic sizes geographic clusters; zero takes the default.
	CapacityHeuristic int
}

// Planner drives the pipeline for a date: wipe, match, partition, cluster,
// sequence, materialize. One write transaction wraps the whole run, so a
// concurrent planner for the same date serializes behind it and a fault
// leaves no partial route set.
type Planner struct {
	logger            hclog.Logger
	state             *state.StateStore
	sequencer         *Sequencer
	capacityHeuristic int
}

// New creates a planner.
func New(config *Config) *Planner {
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}
	logger = logger.Named("planner")

	heuristic := config.CapacityHeuristic
	if heuristic <= 0 {
		heuristic = DefaultCapacityHeuristic
	}

	return &Planner{
		logger:            logger,
		state:             config.State,
		sequencer:         NewSequencer(logger, config.Depot, config.Matrix),
		capacityHeuristic: heuristic,
	}
}

// PlanDay atomically rewrites the planned routes for a date. Existing
// routes on that date are destroyed first, manually assigned ones included:
// planning is a full rewrite and callers must understand that.
func (p *Planner) PlanDay(ctx context.Context, date string) (*PlanningResult, error) {
	defer metrics.MeasureSince([]string{"planner", "plan_day"}, time.Now())

	if err := structs.ValidateDate(date); err != nil {
		return nil, err
	}

	var result *PlanningResult
	err := p.state.WithTxn(ctx, func(tx *state.Txn) error {
		var err error
		result, err = p.planDayTxn(ctx, tx, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("planned routes for date", "date", date,
		"routes", len(result.Routes), "unroutable", len(result.Unroutable))
	metrics.IncrCounter([]string{"planner", "unroutable_children"}, float32(len(result.Unroutable)))
	return result, nil
}

func (p *Planner) planDayTxn(ctx context.Context, tx *state.Txn, date string) (*PlanningResult, error) {
	// Wipe the date. Stops go first, then their routes.
	existing, err := tx.RoutesByDate(date)
	if err != nil {
		return nil, err
	}
	for _, route := range existing {
		if err := tx.DeleteRoute(route.ID); err != nil {
			return nil, err
		}
	}

	children, err := tx.Children()
	if err != nil {
		return nil, err
	}
	drivers, err := tx.Drivers()
	if err != nil {
		return nil, err
	}
	vehicles, err := tx.Vehicles()
	if err != nil {
		return nil, err
	}

	eligibility := Match(p.logger, children, drivers, vehicles)

	result := &PlanningResult{}
	var routable []*structs.Child
	for _, child := range children {
		if len(eligibility[child.ID]) > 0 {
			routable = append(routable, child)
			continue
		}
		result.Unroutable = append(result.Unroutable, &UnroutableChild{
			Child:  child,
			Reason: unroutableReason(child, drivers, vehicles),
		})
	}

	counter := 1
	for _, workload := range Partition(routable, eligibility) {
		for _, cluster := range Cluster(workload, p.capacityHeuristic) {
			ordered, err := p.sequencer.Order(ctx, cluster)
			if err != nil {
				return nil, err
			}

			route := &structs.Route{
				ID:     uuid.Generate(),
				Name:   fmt.Sprintf("Route %d - %s", counter, workload.Label),
				Date:   date,
				Status: structs.RouteStatusPlanning,
			}
			counter++

			if err := tx.UpsertRoute(route); err != nil {
				return nil, err
			}
			for i, child := range ordered {
				stop := &structs.Stop{
					ID:       uuid.Generate(),
					RouteID:  route.ID,
					ChildID:  child.ID,
					Sequence: i + 1,
					Type:     structs.StopTypePickup,
					Status:   structs.StopStatusPending,
				}
				if err := tx.UpsertStop(stop); err != nil {
					return nil, err
				}
			}

			// Re-read so the result carries the committed indexes.
			fresh, err := tx.RouteByID(route.ID)
			if err != nil {
				return nil, err
			}
			result.Routes = append(result.Routes, fresh)
		}
	}

	return result, nil
}

// unroutableReason diagnoses why a child has no eligible transport,
// narrowing to the specific pool shortage where the category allows it.
func unroutableReason(child *structs.Child, drivers []*structs.Driver, vehicles []*structs.Vehicle) string {
	switch child.Category {
	case structs.ChildCategoryInfant:
		if !anyDriverWith(drivers, structs.DriverCapabilityInfantCertified) {
			return ReasonNoInfantDriver
		}
		if !anyVehicleWith(vehicles, structs.VehicleEquipmentInfantSeat) {
			return ReasonNoInfantSeat
		}
		return ReasonNoTransport
	case structs.ChildCategoryToddler:
		if !anyVehicleWith(vehicles, structs.VehicleEquipmentToddlerSeat) {
			return ReasonNoToddlerSeat
		}
		return ReasonNoTransport
	default:
		return ReasonNoTransport
	}
}

func anyDriverWith(drivers []*structs.Driver, capability string) bool {
	for _, driver := range drivers {
		if driver.HasCapability(capability) {
			return true
		}
	}
	return false
}

func anyVehicleWith(vehicles []*structs.Vehicle, equipment string) bool {
	for _, vehicle := range vehicles {
		if vehicle.HasEquipment(equipment) {
			return true
		}
	}
	return false
}
