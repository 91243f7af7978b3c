// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package state

import (
	"fmt"
	"sort"

	"github.com/kinderfleet/kinderfleet/structs"
)

// UpsertRoute inserts or replaces a route record.
func (tx *Txn) UpsertRoute(route *structs.Route) error {
	existing, err := tx.First(TableRoutes, indexID, route.ID)
	if err != nil {
		return fmt.Errorf("route lookup failed: %v", err)
	}

	route = route.Copy()
	if existing != nil {
		route.CreateIndex = existing.(*structs.Route).CreateIndex
	} else {
		route.CreateIndex = tx.Index
	}
	route.ModifyIndex = tx.Index

	if err := tx.Insert(TableRoutes, route); err != nil {
		return fmt.Errorf("route insert failed: %v", err)
	}
	return tx.bumpIndex(TableRoutes)
}

// DeleteRoute removes a route and cascades to its stops.
func (tx *Txn) DeleteRoute(id string) error {
	existing, err := tx.First(TableRoutes, indexID, id)
	if err != nil {
		return fmt.Errorf("route lookup failed: %v", err)
	}
	if existing == nil {
		return structs.ErrRouteNotFound
	}

	// The route exclusively owns its stops.
	if _, err := tx.DeleteAll(TableStops, indexRoute, id); err != nil {
		return fmt.Errorf("stop cascade delete failed: %v", err)
	}

	if err := tx.Delete(TableRoutes, existing); err != nil {
		return fmt.Errorf("route delete failed: %v", err)
	}
	if err := tx.bumpIndex(TableStops); err != nil {
		return err
	}
	return tx.bumpIndex(TableRoutes)
}

// RouteByID looks up a route, returning nil when absent.
func (tx *Txn) RouteByID(id string) (*structs.Route, error) {
	out, err := tx.First(TableRoutes, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("route lookup failed: %v", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*structs.Route), nil
}

// Routes returns all routes ordered by ID.
func (tx *Txn) Routes() ([]*structs.Route, error) {
	iter, err := tx.Get(TableRoutes, indexID)
	if err != nil {
		return nil, fmt.Errorf("routes lookup failed: %v", err)
	}
	var out []*structs.Route
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Route))
	}
	return out, nil
}

// RoutesByDate returns all routes on a calendar date, ordered by ID.
func (tx *Txn) RoutesByDate(date string) ([]*structs.Route, error) {
	iter, err := tx.Get(TableRoutes, indexDate, date)
	if err != nil {
		return nil, fmt.Errorf("routes lookup failed: %v", err)
	}
	var out []*structs.Route
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Route))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RouteByDriverAndDate returns the route a driver is assigned to on a date,
// or nil. The assignment invariant guarantees at most one.
func (tx *Txn) RouteByDriverAndDate(driverID, date string) (*structs.Route, error) {
	routes, err := tx.RoutesByDate(date)
	if err != nil {
		return nil, err
	}
	for _, route := range routes {
		if route.DriverID == driverID {
			return route, nil
		}
	}
	return nil, nil
}

// UpsertStop inserts or replaces a stop record.
func (tx *Txn) UpsertStop(stop *structs.Stop) error {
	existing, err := tx.First(TableStops, indexID, stop.ID)
	if err != nil {
		return fmt.Errorf("stop lookup failed: %v", err)
	}

	stop = stop.Copy()
	if existing != nil {
		stop.CreateIndex = existing.(*structs.Stop).CreateIndex
	} else {
		stop.CreateIndex = tx.Index
	}
	stop.ModifyIndex = tx.Index

	if err := tx.Insert(TableStops, stop); err != nil {
		return fmt.Errorf("stop insert failed: %v", err)
	}
	return tx.bumpIndex(TableStops)
}

// DeleteStop removes a single stop. Densification of the surviving
// sequences is the editor's responsibility.
func (tx *Txn) DeleteStop(id string) error {
	existing, err := tx.First(TableStops, indexID, id)
	if err != nil {
		return fmt.Errorf("stop lookup failed: %v", err)
	}
	if existing == nil {
		return structs.ErrStopNotFound
	}
	if err := tx.Delete(TableStops, existing); err != nil {
		return fmt.Errorf("stop delete failed: %v", err)
	}
	return tx.bumpIndex(TableStops)
}

// StopByID looks up a stop, returning nil when absent.
func (tx *Txn) StopByID(id string) (*structs.Stop, error) {
	out, err := tx.First(TableStops, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("stop lookup failed: %v", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*structs.Stop), nil
}

// StopsByRoute returns a route's stops in visit order.
func (tx *Txn) StopsByRoute(routeID string) ([]*structs.Stop, error) {
	iter, err := tx.Get(TableStops, indexRoute, routeID)
	if err != nil {
		return nil, fmt.Errorf("stops lookup failed: %v", err)
	}
	var out []*structs.Stop
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Stop))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// The read-only snapshot accessors below serve the query surface. They
// observe a consistent MVCC snapshot without blocking writers.

func (s *StateStore) ChildByID(id string) (*structs.Child, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.ChildByID(id)
}

func (s *StateStore) Children() ([]*structs.Child, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.Children()
}

func (s *StateStore) DriverByID(id string) (*structs.Driver, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.DriverByID(id)
}

func (s *StateStore) Drivers() ([]*structs.Driver, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.Drivers()
}

func (s *StateStore) VehicleByID(id string) (*structs.Vehicle, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.VehicleByID(id)
}

func (s *StateStore) Vehicles() ([]*structs.Vehicle, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.Vehicles()
}

func (s *StateStore) RouteByID(id string) (*structs.Route, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.RouteByID(id)
}

func (s *StateStore) RoutesByDate(date string) ([]*structs.Route, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.RoutesByDate(date)
}

func (s *StateStore) RouteByDriverAndDate(driverID, date string) (*structs.Route, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.RouteByDriverAndDate(driverID, date)
}

func (s *StateStore) StopByID(id string) (*structs.Stop, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.StopByID(id)
}

func (s *StateStore) StopsByRoute(routeID string) ([]*structs.Stop, error) {
	tx := s.ReadTxn()
	defer tx.Abort()
	return tx.StopsByRoute(routeID)
}
