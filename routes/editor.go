// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package routes implements the manual route editor: the transactional
// mutations an operator uses to refine a generated plan or build a route by
// hand. Every operation either commits fully or leaves state untouched, and
// each maintains the sequence densification invariant (stop sequences are
// always a contiguous 1..N enumeration).
package routes

import (
	"context"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/kinderfleet/kinderfleet/helper/uuid"
	"github.com/kinderfleet/kinderfleet/state"
	"github.com/kinderfleet/kinderfleet/structs"
)

// Editor applies manual route mutations against the state store.
type Editor struct {
	logger hclog.Logger
	state  *state.StateStore
}

// NewEditor creates a manual route editor.
func NewEditor(logger hclog.Logger, store *state.StateStore) *Editor {
	if logger == nil {
		logger = hclog.Default()
	}
	return &Editor{
		logger: logger.Named("route_editor"),
		state:  store,
	}
}

// CreateManualRoute creates an empty route in planning status with no
// driver or vehicle.
func (e *Editor) CreateManualRoute(ctx context.Context, name, date string) (*structs.Route, error) {
	defer metrics.MeasureSince([]string{"routes", "create_manual"}, time.Now())

	if name == "" {
		return nil, structs.NewBadInputError("missing route name")
	}
	if err := structs.ValidateDate(date); err != nil {
		return nil, err
	}

	route := &structs.Route{
		ID:     uuid.Generate(),
		Name:   name,
		Date:   date,
		Status: structs.RouteStatusPlanning,
	}

	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		return tx.UpsertRoute(route)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("created manual route", "route_id", route.ID, "date", date)
	return route, nil
}

// DeleteRoute removes a route and all its stops. Status is not policed:
// operators may delete in-progress or completed routes.
func (e *Editor) DeleteRoute(ctx context.Context, routeID string) error {
	defer metrics.MeasureSince([]string{"routes", "delete"}, time.Now())

	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		return tx.DeleteRoute(routeID)
	})
	if err != nil {
		return err
	}

	e.logger.Info("deleted route", "route_id", routeID)
	return nil
}

// AddStopToRoute appends a pending pickup stop for the child at the end of
// the route. A child may appear at most once per route; a duplicate is
// rejected as bad input.
func (e *Editor) AddStopToRoute(ctx context.Context, routeID, childID string) (*structs.Route, error) {
	defer metrics.MeasureSince([]string{"routes", "add_stop"}, time.Now())

	var route *structs.Route
	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		var err error
		route, err = tx.RouteByID(routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return structs.ErrRouteNotFound
		}

		child, err := tx.ChildByID(childID)
		if err != nil {
			return err
		}
		if child == nil {
			return structs.ErrChildNotFound
		}

		stops, err := tx.StopsByRoute(routeID)
		if err != nil {
			return err
		}
		for _, stop := range stops {
			if stop.ChildID == childID {
				return structs.NewBadInputError("child %s already has a stop on route %s", childID, routeID)
			}
		}

		return tx.UpsertStop(&structs.Stop{
			ID:       uuid.Generate(),
			RouteID:  routeID,
			ChildID:  childID,
			Sequence: len(stops) + 1,
			Type:     structs.StopTypePickup,
			Status:   structs.StopStatusPending,
		})
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// RemoveStopFromRoute deletes a stop and densifies the owning route's
// sequences back to 1..N, preserving the surviving stops' relative order.
func (e *Editor) RemoveStopFromRoute(ctx context.Context, stopID string) (*structs.Route, error) {
	defer metrics.MeasureSince([]string{"routes", "remove_stop"}, time.Now())

	var route *structs.Route
	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		stop, err := tx.StopByID(stopID)
		if err != nil {
			return err
		}
		if stop == nil {
			return structs.ErrStopNotFound
		}

		route, err = tx.RouteByID(stop.RouteID)
		if err != nil {
			return err
		}
		if route == nil {
			return structs.ErrRouteNotFound
		}

		if err := tx.DeleteStop(stopID); err != nil {
			return err
		}

		// Densify. StopsByRoute returns survivors in prior sequence order.
		survivors, err := tx.StopsByRoute(stop.RouteID)
		if err != nil {
			return err
		}
		for i, survivor := range survivors {
			if survivor.Sequence == i+1 {
				continue
			}
			updated := survivor.Copy()
			updated.Sequence = i + 1
			if err := tx.UpsertStop(updated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// ReorderStops rewrites the route's stop sequences to follow the given
// order. The ID list must be exactly a permutation of the route's stops;
// anything else would leave stale sequences behind and is rejected as bad
// input.
func (e *Editor) ReorderStops(ctx context.Context, routeID string, stopIDs []string) (*structs.Route, error) {
	defer metrics.MeasureSince([]string{"routes", "reorder_stops"}, time.Now())

	if len(stopIDs) == 0 {
		return nil, structs.NewBadInputError("missing stop ids")
	}

	var route *structs.Route
	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		var err error
		route, err = tx.RouteByID(routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return structs.ErrRouteNotFound
		}

		stops, err := tx.StopsByRoute(routeID)
		if err != nil {
			return err
		}

		byID := make(map[string]*structs.Stop, len(stops))
		for _, stop := range stops {
			byID[stop.ID] = stop
		}
		if len(stopIDs) != len(stops) {
			return structs.NewBadInputError("stop ids must cover all %d stops of route %s, got %d",
				len(stops), routeID, len(stopIDs))
		}

		seen := make(map[string]bool, len(stopIDs))
		for i, stopID := range stopIDs {
			stop, ok := byID[stopID]
			if !ok {
				return structs.NewBadInputError("stop %s does not belong to route %s", stopID, routeID)
			}
			if seen[stopID] {
				return structs.NewBadInputError("duplicate stop id %s", stopID)
			}
			seen[stopID] = true

			if stop.Sequence == i+1 {
				continue
			}
			updated := stop.Copy()
			updated.Sequence = i + 1
			if err := tx.UpsertStop(updated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// AssignDriverAndVehicle commits a driver and vehicle to a route and moves
// it from planning to assigned. A driver or vehicle serves at most one
// route per date; conflicts fail before anything mutates.
func (e *Editor) AssignDriverAndVehicle(ctx context.Context, routeID, driverID, vehicleID string) (*structs.Route, error) {
	defer metrics.MeasureSince([]string{"routes", "assign"}, time.Now())

	var updated *structs.Route
	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		route, err := tx.RouteByID(routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return structs.ErrRouteNotFound
		}

		driver, err := tx.DriverByID(driverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return structs.ErrDriverNotFound
		}

		vehicle, err := tx.VehicleByID(vehicleID)
		if err != nil {
			return err
		}
		if vehicle == nil {
			return structs.ErrVehicleNotFound
		}

		sameDate, err := tx.RoutesByDate(route.Date)
		if err != nil {
			return err
		}
		for _, other := range sameDate {
			if other.ID == route.ID {
				continue
			}
			if other.DriverID == driverID {
				return structs.ErrDriverAlreadyAssigned
			}
			if other.VehicleID == vehicleID {
				return structs.ErrVehicleAlreadyAssigned
			}
		}

		updated = route.Copy()
		updated.DriverID = driverID
		updated.VehicleID = vehicleID
		if updated.Status == structs.RouteStatusPlanning {
			updated.Status = structs.RouteStatusAssigned
		}
		return tx.UpsertRoute(updated)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("assigned driver and vehicle", "route_id", routeID,
		"driver_id", driverID, "vehicle_id", vehicleID)
	return updated, nil
}

// CompleteStop marks a stop completed. The driver-facing surface calls this
// as the run progresses.
func (e *Editor) CompleteStop(ctx context.Context, stopID string) (*structs.Stop, error) {
	defer metrics.MeasureSince([]string{"routes", "complete_stop"}, time.Now())

	var updated *structs.Stop
	err := e.state.WithTxn(ctx, func(tx *state.Txn) error {
		stop, err := tx.StopByID(stopID)
		if err != nil {
			return err
		}
		if stop == nil {
			return structs.ErrStopNotFound
		}

		updated = stop.Copy()
		updated.Status = structs.StopStatusCompleted
		return tx.UpsertStop(updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
