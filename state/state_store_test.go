// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package state

import (
	"context"
	"errors"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/kinderfleet/kinderfleet/ci"
	"github.com/kinderfleet/kinderfleet/structs"
)

func mockChild(id string) *structs.Child {
	return &structs.Child{
		ID:       id,
		Name:     "Child " + id,
		Category: structs.ChildCategoryPreschool,
	}
}

func mockRoute(id, date string) *structs.Route {
	return &structs.Route{
		ID:     id,
		Name:   "Route " + id,
		Date:   date,
		Status: structs.RouteStatusPlanning,
	}
}

func mockStop(id, routeID, childID string, seq int) *structs.Stop {
	return &structs.Stop{
		ID:       id,
		RouteID:  routeID,
		ChildID:  childID,
		Sequence: seq,
		Type:     structs.StopTypePickup,
		Status:   structs.StopStatusPending,
	}
}

func TestStateStore_ChildCRUD(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	child := mockChild("c1")
	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.UpsertChild(child)
	}))

	out, err := store.ChildByID("c1")
	must.NoError(t, err)
	must.NotNil(t, out)
	must.Eq(t, "Child c1", out.Name)
	must.Eq(t, out.CreateIndex, out.ModifyIndex)
	created := out.CreateIndex

	// Update preserves CreateIndex and advances ModifyIndex.
	child.Name = "Renamed"
	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.UpsertChild(child)
	}))
	out, err = store.ChildByID("c1")
	must.NoError(t, err)
	must.Eq(t, "Renamed", out.Name)
	must.Eq(t, created, out.CreateIndex)
	must.Greater(t, created, out.ModifyIndex)

	// The caller's struct is not aliased by the store.
	child.Name = "Mutated after upsert"
	out, err = store.ChildByID("c1")
	must.NoError(t, err)
	must.Eq(t, "Renamed", out.Name)

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.DeleteChild("c1")
	}))
	out, err = store.ChildByID("c1")
	must.NoError(t, err)
	must.Nil(t, out)

	// Deleting again reports not found.
	err = store.WithTxn(ctx, func(tx *Txn) error {
		return tx.DeleteChild("c1")
	})
	must.ErrorIs(t, err, structs.ErrChildNotFound)
}

func TestStateStore_WithTxn_Rollback(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTxn(ctx, func(tx *Txn) error {
		if err := tx.UpsertChild(mockChild("c1")); err != nil {
			return err
		}
		return boom
	})
	must.ErrorIs(t, err, boom)

	// Nothing committed.
	out, err := store.ChildByID("c1")
	must.NoError(t, err)
	must.Nil(t, out)
}

func TestStateStore_WithTxn_CanceledContext(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WithTxn(ctx, func(tx *Txn) error {
		return tx.UpsertChild(mockChild("c1"))
	})
	must.ErrorIs(t, err, context.Canceled)

	out, err := store.ChildByID("c1")
	must.NoError(t, err)
	must.Nil(t, out)
}

func TestStateStore_TableIndex(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	idx, err := store.Index(TableChildren)
	must.NoError(t, err)
	must.Zero(t, idx)

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.UpsertChild(mockChild("c1"))
	}))

	idx, err = store.Index(TableChildren)
	must.NoError(t, err)
	must.Positive(t, idx)

	// A second write advances the index.
	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.UpsertChild(mockChild("c2"))
	}))
	idx2, err := store.Index(TableChildren)
	must.NoError(t, err)
	must.Greater(t, idx, idx2)
}

func TestStateStore_RoutesByDate(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		for _, route := range []*structs.Route{
			mockRoute("r2", "2025-06-01"),
			mockRoute("r1", "2025-06-01"),
			mockRoute("r3", "2025-06-02"),
		} {
			if err := tx.UpsertRoute(route); err != nil {
				return err
			}
		}
		return nil
	}))

	routes, err := store.RoutesByDate("2025-06-01")
	must.NoError(t, err)
	must.Len(t, 2, routes)
	must.Eq(t, "r1", routes[0].ID)
	must.Eq(t, "r2", routes[1].ID)

	routes, err = store.RoutesByDate("2025-06-03")
	must.NoError(t, err)
	must.Len(t, 0, routes)
}

func TestStateStore_RouteByDriverAndDate(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	assigned := mockRoute("r1", "2025-06-01")
	assigned.DriverID = "d1"
	assigned.VehicleID = "v1"
	assigned.Status = structs.RouteStatusAssigned

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		if err := tx.UpsertRoute(assigned); err != nil {
			return err
		}
		return tx.UpsertRoute(mockRoute("r2", "2025-06-01"))
	}))

	route, err := store.RouteByDriverAndDate("d1", "2025-06-01")
	must.NoError(t, err)
	must.NotNil(t, route)
	must.Eq(t, "r1", route.ID)

	route, err = store.RouteByDriverAndDate("d1", "2025-06-02")
	must.NoError(t, err)
	must.Nil(t, route)

	route, err = store.RouteByDriverAndDate("d9", "2025-06-01")
	must.NoError(t, err)
	must.Nil(t, route)
}

func TestStateStore_DeleteRoute_CascadesStops(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		if err := tx.UpsertRoute(mockRoute("r1", "2025-06-01")); err != nil {
			return err
		}
		if err := tx.UpsertRoute(mockRoute("r2", "2025-06-01")); err != nil {
			return err
		}
		for _, stop := range []*structs.Stop{
			mockStop("s1", "r1", "c1", 1),
			mockStop("s2", "r1", "c2", 2),
			mockStop("s3", "r2", "c3", 1),
		} {
			if err := tx.UpsertStop(stop); err != nil {
				return err
			}
		}
		return nil
	}))

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		return tx.DeleteRoute("r1")
	}))

	stops, err := store.StopsByRoute("r1")
	must.NoError(t, err)
	must.Len(t, 0, stops)

	// The sibling route is untouched.
	stops, err = store.StopsByRoute("r2")
	must.NoError(t, err)
	must.Len(t, 1, stops)

	err = store.WithTxn(ctx, func(tx *Txn) error {
		return tx.DeleteRoute("r1")
	})
	must.ErrorIs(t, err, structs.ErrRouteNotFound)
}

func TestStateStore_StopsByRoute_VisitOrder(t *testing.T) {
	ci.Parallel(t)
	store := TestStateStore(t)
	ctx := context.Background()

	must.NoError(t, store.WithTxn(ctx, func(tx *Txn) error {
		if err := tx.UpsertRoute(mockRoute("r1", "2025-06-01")); err != nil {
			return err
		}
		// Inserted out of order on purpose.
		for _, stop := range []*structs.Stop{
			mockStop("s3", "r1", "c3", 3),
			mockStop("s1", "r1", "c1", 1),
			mockStop("s2", "r1", "c2", 2),
		} {
			if err := tx.UpsertStop(stop); err != nil {
				return err
			}
		}
		return nil
	}))

	stops, err := store.StopsByRoute("r1")
	must.NoError(t, err)
	must.Len(t, 3, stops)
	for i, stop := range stops {
		must.Eq(t, i+1, stop.Sequence)
	}
}
