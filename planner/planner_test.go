// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package planner

import (
	"context"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/kinderfleet/kinderfleet/ci"
	"github.com/kinderfleet/kinderfleet/helper/testlog"
	"github.com/kinderfleet/kinderfleet/state"
	"github.com/kinderfleet/kinderfleet/structs"
)

const testDate = "2025-06-02"

func testPlanner(t *testing.T, store *state.StateStore) *Planner {
	return New(&Config{
		Logger: testlog.HCLogger(t),
		State:  store,
		Depot:  testDepot,
	})
}

func seed(t *testing.T, store *state.StateStore, children []*structs.Child, drivers []*structs.Driver, vehicles []*structs.Vehicle) {
	t.Helper()
	err := store.WithTxn(context.Background(), func(tx *state.Txn) error {
		for _, child := range children {
			if err := tx.UpsertChild(child); err != nil {
				return err
			}
		}
		for _, driver := range drivers {
			if err := tx.UpsertDriver(driver); err != nil {
				return err
			}
		}
		for _, vehicle := range vehicles {
			if err := tx.UpsertVehicle(vehicle); err != nil {
				return err
			}
		}
		return nil
	})
	must.NoError(t, err)
}

func TestPlanner_PlanDay_InfantRoute(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	infant := childAt("c1", 47.61, -122.34)
	infant.Category = structs.ChildCategoryInfant

	seed(t, store,
		[]*structs.Child{infant},
		[]*structs.Driver{
			testDriver("d1", structs.DriverCapabilityInfantCertified),
			testDriver("d2"),
		},
		[]*structs.Vehicle{
			testVehicle("v1", structs.VehicleEquipmentInfantSeat),
			testVehicle("v2"),
		},
	)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 1, result.Routes)
	must.Len(t, 0, result.Unroutable)

	route := result.Routes[0]
	must.Eq(t, "Route 1 - Infant", route.Name)
	must.Eq(t, testDate, route.Date)
	must.Eq(t, structs.RouteStatusPlanning, route.Status)
	must.False(t, route.Assigned())

	stops, err := store.StopsByRoute(route.ID)
	must.NoError(t, err)
	must.Len(t, 1, stops)
	must.Eq(t, "c1", stops[0].ChildID)
	must.Eq(t, 1, stops[0].Sequence)
	must.Eq(t, structs.StopTypePickup, stops[0].Type)
	must.Eq(t, structs.StopStatusPending, stops[0].Status)
}

func TestPlanner_PlanDay_SequencesByDistance(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	seed(t, store,
		[]*structs.Child{
			childAt("far", 47.70, -122.38),
			childAt("near", 47.61, -122.34),
			childAt("mid", 47.65, -122.36),
		},
		[]*structs.Driver{testDriver("d1")},
		[]*structs.Vehicle{testVehicle("v1")},
	)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 1, result.Routes)

	stops, err := store.StopsByRoute(result.Routes[0].ID)
	must.NoError(t, err)
	must.Len(t, 3, stops)
	must.Eq(t, "near", stops[0].ChildID)
	must.Eq(t, "mid", stops[1].ChildID)
	must.Eq(t, "far", stops[2].ChildID)
}

func TestPlanner_PlanDay_UnroutableReasons(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name     string
		category string
		drivers  []*structs.Driver
		vehicles []*structs.Vehicle
		reason   string
	}{
		{
			name:     "infant_no_certified_driver",
			category: structs.ChildCategoryInfant,
			drivers:  []*structs.Driver{testDriver("d1")},
			vehicles: []*structs.Vehicle{testVehicle("v1", structs.VehicleEquipmentInfantSeat)},
			reason:   ReasonNoInfantDriver,
		},
		{
			name:     "infant_no_seat",
			category: structs.ChildCategoryInfant,
			drivers:  []*structs.Driver{testDriver("d1", structs.DriverCapabilityInfantCertified)},
			vehicles: []*structs.Vehicle{testVehicle("v1")},
			reason:   ReasonNoInfantSeat,
		},
		{
			name:     "toddler_no_seat",
			category: structs.ChildCategoryToddler,
			drivers:  []*structs.Driver{testDriver("d1", structs.DriverCapabilityToddlerTrained)},
			vehicles: []*structs.Vehicle{testVehicle("v1")},
			reason:   ReasonNoToddlerSeat,
		},
		{
			name:     "toddler_no_trained_driver",
			category: structs.ChildCategoryToddler,
			drivers:  []*structs.Driver{testDriver("d1")},
			vehicles: []*structs.Vehicle{testVehicle("v1", structs.VehicleEquipmentToddlerSeat)},
			reason:   ReasonNoTransport,
		},
		{
			name:     "preschool_no_pools",
			category: structs.ChildCategoryPreschool,
			reason:   ReasonNoTransport,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := state.TestStateStore(t)
			seed(t, store, []*structs.Child{testChild("c1", tc.category)}, tc.drivers, tc.vehicles)

			result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
			must.NoError(t, err)
			must.Len(t, 0, result.Routes)
			must.Len(t, 1, result.Unroutable)
			must.Eq(t, "c1", result.Unroutable[0].Child.ID)
			must.Eq(t, tc.reason, result.Unroutable[0].Reason)
		})
	}
}

func TestPlanner_PlanDay_EmptyRoster(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 0, result.Routes)
	must.Len(t, 0, result.Unroutable)
}

func TestPlanner_PlanDay_InvalidDate(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	_, err := testPlanner(t, store).PlanDay(context.Background(), "06/02/2025")
	must.Error(t, err)
	must.True(t, structs.IsBadInput(err))
}

func TestPlanner_PlanDay_ReplacesExistingRoutes(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	seed(t, store,
		[]*structs.Child{childAt("c1", 47.61, -122.34)},
		[]*structs.Driver{testDriver("d1")},
		[]*structs.Vehicle{testVehicle("v1")},
	)

	// A manually assigned route on the date is not spared.
	manual := &structs.Route{
		ID:        "manual",
		Name:      "Morning special",
		Date:      testDate,
		Status:    structs.RouteStatusAssigned,
		DriverID:  "d1",
		VehicleID: "v1",
	}
	must.NoError(t, store.WithTxn(context.Background(), func(tx *state.Txn) error {
		if err := tx.UpsertRoute(manual); err != nil {
			return err
		}
		return tx.UpsertStop(&structs.Stop{
			ID: "manual-stop", RouteID: "manual", ChildID: "c1",
			Sequence: 1, Type: structs.StopTypePickup, Status: structs.StopStatusPending,
		})
	}))

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 1, result.Routes)

	routes, err := store.RoutesByDate(testDate)
	must.NoError(t, err)
	must.Len(t, 1, routes)
	must.NotEq(t, "manual", routes[0].ID)

	// The manual route's stops were cascaded away.
	stop, err := store.StopByID("manual-stop")
	must.NoError(t, err)
	must.Nil(t, stop)
}

func TestPlanner_PlanDay_Idempotent(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	infants := []*structs.Child{}
	for i, pos := range [][2]float64{
		{47.61, -122.34}, {47.63, -122.30}, {47.58, -122.36}, {47.66, -122.32},
	} {
		child := childAt(string(rune('a'+i)), pos[0], pos[1])
		child.Category = structs.ChildCategoryInfant
		infants = append(infants, child)
	}
	others := []*structs.Child{
		childAt("p1", 47.55, -122.28),
		childAt("p2", 47.69, -122.40),
	}

	seed(t, store,
		append(infants, others...),
		[]*structs.Driver{
			testDriver("d1", structs.DriverCapabilityInfantCertified),
			testDriver("d2"),
		},
		[]*structs.Vehicle{
			testVehicle("v1", structs.VehicleEquipmentInfantSeat),
			testVehicle("v2"),
		},
	)

	p := testPlanner(t, store)
	first, err := p.PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	firstPlan := planShape(t, store, first)

	second, err := p.PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	secondPlan := planShape(t, store, second)

	// Same inputs, same plan: identical route names carrying identical
	// child sequences.
	must.Eq(t, firstPlan, secondPlan)

	// The first run's routes were wiped, not kept alongside.
	for _, route := range first.Routes {
		stale, err := store.RouteByID(route.ID)
		must.NoError(t, err)
		must.Nil(t, stale)
	}
}

// planShape flattens a planning result into route name -> ordered child IDs.
func planShape(t *testing.T, store *state.StateStore, result *PlanningResult) map[string][]string {
	t.Helper()
	shape := make(map[string][]string, len(result.Routes))
	for _, route := range result.Routes {
		stops, err := store.StopsByRoute(route.ID)
		must.NoError(t, err)
		var children []string
		for _, stop := range stops {
			children = append(children, stop.ChildID)
		}
		shape[route.Name] = children
	}
	return shape
}

func TestPlanner_PlanDay_MultipleWorkloads(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	infant := childAt("i1", 47.61, -122.34)
	infant.Category = structs.ChildCategoryInfant
	preschool := childAt("p1", 47.63, -122.30)

	seed(t, store,
		[]*structs.Child{infant, preschool},
		[]*structs.Driver{
			testDriver("d1", structs.DriverCapabilityInfantCertified),
			testDriver("d2"),
		},
		[]*structs.Vehicle{testVehicle("v1", structs.VehicleEquipmentInfantSeat)},
	)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)

	// The infant is serviceable only by d1; the preschooler by both
	// drivers. Distinct driver sets mean distinct workloads and routes.
	must.Len(t, 2, result.Routes)
	must.Len(t, 0, result.Unroutable)

	names := []string{result.Routes[0].Name, result.Routes[1].Name}
	must.SliceContains(t, names, "Route 1 - Infant")
	must.SliceContains(t, names, "Route 2 - Preschool")
}

func TestPlanner_PlanDay_CategorySplit(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	infant := childAt("i1", 47.61, -122.33)
	infant.Category = structs.ChildCategoryInfant
	toddler := childAt("t1", 47.62, -122.34)
	toddler.Category = structs.ChildCategoryToddler
	preschool := childAt("p1", 47.63, -122.35)

	seed(t, store,
		[]*structs.Child{infant, toddler, preschool},
		[]*structs.Driver{
			testDriver("d1", structs.DriverCapabilityInfantCertified),
			testDriver("d2", structs.DriverCapabilityToddlerTrained),
		},
		[]*structs.Vehicle{
			testVehicle("v1", structs.VehicleEquipmentInfantSeat),
			testVehicle("v2", structs.VehicleEquipmentToddlerSeat),
		},
	)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 0, result.Unroutable)

	// Three distinct eligible-driver sets, one single-stop route each.
	must.Len(t, 3, result.Routes)
	byChild := map[string]string{}
	for _, route := range result.Routes {
		stops, err := store.StopsByRoute(route.ID)
		must.NoError(t, err)
		must.Len(t, 1, stops)
		byChild[stops[0].ChildID] = route.Name
	}
	must.StrContains(t, byChild["i1"], "Infant")
	must.StrContains(t, byChild["t1"], "Toddler")
	must.StrContains(t, byChild["p1"], "Preschool")
}

func TestPlanner_PlanDay_CoordlessChildrenRouted(t *testing.T) {
	ci.Parallel(t)
	store := state.TestStateStore(t)

	seed(t, store,
		[]*structs.Child{
			childAt("a", 47.61, -122.34),
			testChild("nc", structs.ChildCategoryPreschool),
		},
		[]*structs.Driver{testDriver("d1")},
		[]*structs.Vehicle{testVehicle("v1")},
	)

	result, err := testPlanner(t, store).PlanDay(context.Background(), testDate)
	must.NoError(t, err)
	must.Len(t, 1, result.Routes)
	must.Len(t, 0, result.Unroutable)

	stops, err := store.StopsByRoute(result.Routes[0].ID)
	must.NoError(t, err)
	must.Len(t, 2, stops)
	// The coordless child trails the geocoded one.
	must.Eq(t, "nc", stops[1].ChildID)
}
