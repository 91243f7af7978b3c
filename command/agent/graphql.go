// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package agent

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/kinderfleet/kinderfleet/helper/uuid"
	"github.com/kinderfleet/kinderfleet/planner"
	"github.com/kinderfleet/kinderfleet/state"
	"github.com/kinderfleet/kinderfleet/structs"
)

const dateFormat = "2006-01-02"

// codedError decorates resolver errors with the externally visible error
// code, surfaced through the GraphQL extensions block.
type codedError struct {
	err error
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": structs.ErrorCode(e.err)}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return &codedError{err: err}
}

// stringEnum builds a GraphQL enum whose names and values are the lowercase
// wire strings. The wire values are part of the external contract.
func stringEnum(name string, values ...string) *graphql.Enum {
	cfg := graphql.EnumConfig{
		Name:   name,
		Values: graphql.EnumValueConfigMap{},
	}
	for _, v := range values {
		cfg.Values[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(cfg)
}

// newSchema builds the full GraphQL schema over the agent's components.
func newSchema(a *Agent) (graphql.Schema, error) {
	categoryEnum := stringEnum("ChildCategory",
		structs.ChildCategoryInfant,
		structs.ChildCategoryToddler,
		structs.ChildCategoryPreschool,
		structs.ChildCategoryOutOfSchoolCare,
	)
	capabilityEnum := stringEnum("DriverCapability",
		structs.DriverCapabilityInfantCertified,
		structs.DriverCapabilityToddlerTrained,
		structs.DriverCapabilitySpecialNeeds,
	)
	equipmentEnum := stringEnum("VehicleEquipment",
		structs.VehicleEquipmentInfantSeat,
		structs.VehicleEquipmentToddlerSeat,
		structs.VehicleEquipmentBoosterSeat,
		structs.VehicleEquipmentWheelchairLift,
	)
	stopTypeEnum := stringEnum("StopType",
		structs.StopTypePickup,
		structs.StopTypeDropoff,
	)
	stopStatusEnum := stringEnum("StopStatus",
		structs.StopStatusPending,
		structs.StopStatusCompleted,
	)
	routeStatusEnum := stringEnum("RouteStatus",
		structs.RouteStatusPlanning,
		structs.RouteStatusAssigned,
		structs.RouteStatusInProgress,
		structs.RouteStatusCompleted,
	)

	coordinatesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinates",
		Fields: graphql.Fields{
			"latitude": {
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Coordinates).Lat, nil
				},
			},
			"longitude": {
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Coordinates).Lon, nil
				},
			},
		},
	})

	childType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Child",
		Fields: graphql.Fields{
			"id": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).ID, nil
				},
			},
			"name": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).Name, nil
				},
			},
			"street": {
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).Street, nil
				},
			},
			"city": {
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).City, nil
				},
			},
			"state": {
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).State, nil
				},
			},
			"latitude": {
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					child := p.Source.(*structs.Child)
					if child.Coordinates == nil {
						return nil, nil
					}
					return child.Coordinates.Lat, nil
				},
			},
			"longitude": {
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					child := p.Source.(*structs.Child)
					if child.Coordinates == nil {
						return nil, nil
					}
					return child.Coordinates.Lon, nil
				},
			},
			"category": {
				Type: graphql.NewNonNull(categoryEnum),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Child).Category, nil
				},
			},
		},
	})

	driverType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Driver",
		Fields: graphql.Fields{
			"id": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Driver).ID, nil
				},
			},
			"name": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Driver).Name, nil
				},
			},
			"capabilities": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(capabilityEnum))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Driver).Capabilities, nil
				},
			},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"id": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Vehicle).ID, nil
				},
			},
			"name": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Vehicle).Name, nil
				},
			},
			"capacity": {
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Vehicle).Capacity, nil
				},
			},
			"equipment": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(equipmentEnum))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Vehicle).Equipment, nil
				},
			},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"id": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).ID, nil
				},
			},
			"sequence": {
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).Sequence, nil
				},
			},
			"type": {
				Type: graphql.NewNonNull(stopTypeEnum),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).Type, nil
				},
			},
			"status": {
				Type: graphql.NewNonNull(stopStatusEnum),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).Status, nil
				},
			},
			"childId": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).ChildID, nil
				},
			},
			"routeId": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Stop).RouteID, nil
				},
			},
			"child": {
				Type: childType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					child, err := a.state.ChildByID(p.Source.(*structs.Stop).ChildID)
					if err != nil {
						return nil, wrapErr(err)
					}
					if child == nil {
						return nil, nil
					}
					return child, nil
				},
			},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id": {
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Route).ID, nil
				},
			},
			"name": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Route).Name, nil
				},
			},
			"date": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Route).Date, nil
				},
			},
			"status": {
				Type: graphql.NewNonNull(routeStatusEnum),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*structs.Route).Status, nil
				},
			},
			"driverId": {
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route := p.Source.(*structs.Route)
					if route.DriverID == "" {
						return nil, nil
					}
					return route.DriverID, nil
				},
			},
			"vehicleId": {
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route := p.Source.(*structs.Route)
					if route.VehicleID == "" {
						return nil, nil
					}
					return route.VehicleID, nil
				},
			},
			"stops": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(stopType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stops, err := a.state.StopsByRoute(p.Source.(*structs.Route).ID)
					if err != nil {
						return nil, wrapErr(err)
					}
					return stops, nil
				},
			},
		},
	})

	unroutableChildType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UnroutableChild",
		Fields: graphql.Fields{
			"child": {
				Type: graphql.NewNonNull(childType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*planner.UnroutableChild).Child, nil
				},
			},
			"reason": {
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*planner.UnroutableChild).Reason, nil
				},
			},
		},
	})

	planningResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlanningResult",
		Fields: graphql.Fields{
			"generatedRoutes": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(routeType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*planner.PlanningResult).Routes, nil
				},
			},
			"unroutableChildren": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(unroutableChildType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*planner.PlanningResult).Unroutable, nil
				},
			},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"children": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(childType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					children, err := a.state.Children()
					return children, wrapErr(err)
				},
			},
			"child": {
				Type: childType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					child, err := a.state.ChildByID(p.Args["id"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if child == nil {
						return nil, nil
					}
					return child, nil
				},
			},
			"drivers": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(driverType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					drivers, err := a.state.Drivers()
					return drivers, wrapErr(err)
				},
			},
			"driver": {
				Type: driverType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					driver, err := a.state.DriverByID(p.Args["id"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if driver == nil {
						return nil, nil
					}
					return driver, nil
				},
			},
			"vehicles": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(vehicleType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					vehicles, err := a.state.Vehicles()
					return vehicles, wrapErr(err)
				},
			},
			"vehicle": {
				Type: vehicleType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					vehicle, err := a.state.VehicleByID(p.Args["id"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if vehicle == nil {
						return nil, nil
					}
					return vehicle, nil
				},
			},
			"routes": {
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(routeType))),
				Args: graphql.FieldConfigArgument{
					"date": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					date := p.Args["date"].(string)
					if err := structs.ValidateDate(date); err != nil {
						return nil, wrapErr(err)
					}
					routes, err := a.state.RoutesByDate(date)
					return routes, wrapErr(err)
				},
			},
			"route": {
				Type: routeType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.state.RouteByID(p.Args["id"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if route == nil {
						return nil, nil
					}
					return route, nil
				},
			},
			"geocodeAddress": {
				Type: coordinatesType,
				Args: graphql.FieldConfigArgument{
					"address": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					if a.geocoder == nil {
						return nil, wrapErr(fmt.Errorf("%w: no geocoder configured", structs.ErrPortFailure))
					}
					coords, err := a.geocoder.Lookup(p.Context, p.Args["address"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if coords == nil {
						return nil, nil
					}
					return coords, nil
				},
			},
			"getMyAssignedRoute": {
				Type: routeType,
				Args: graphql.FieldConfigArgument{
					"date": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					principal, err := requireDriver(p.Context)
					if err != nil {
						return nil, wrapErr(err)
					}
					date, _ := p.Args["date"].(string)
					if date == "" {
						date = a.clock.Now().Format(dateFormat)
					} else if err := structs.ValidateDate(date); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.state.RouteByDriverAndDate(principal.ID, date)
					if err != nil {
						return nil, wrapErr(err)
					}
					if route == nil || route.Status == structs.RouteStatusPlanning {
						return nil, nil
					}
					return route, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"planAllDailyRoutes": {
				Type: graphql.NewNonNull(planningResultType),
				Args: graphql.FieldConfigArgument{
					"date": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					result, err := a.planner.PlanDay(p.Context, p.Args["date"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					return result, nil
				},
			},
			"createManualRoute": {
				Type: graphql.NewNonNull(routeType),
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.editor.CreateManualRoute(p.Context,
						p.Args["name"].(string), p.Args["date"].(string))
					return route, wrapErr(err)
				},
			},
			"addStopToRoute": {
				Type: graphql.NewNonNull(routeType),
				Args: graphql.FieldConfigArgument{
					"routeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"childId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.editor.AddStopToRoute(p.Context,
						p.Args["routeId"].(string), p.Args["childId"].(string))
					return route, wrapErr(err)
				},
			},
			"removeStopFromRoute": {
				Type: graphql.NewNonNull(routeType),
				Args: graphql.FieldConfigArgument{
					"stopId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.editor.RemoveStopFromRoute(p.Context, p.Args["stopId"].(string))
					return route, wrapErr(err)
				},
			},
			"reorderStops": {
				Type: graphql.NewNonNull(routeType),
				Args: graphql.FieldConfigArgument{
					"routeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"stopIds": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.editor.ReorderStops(p.Context,
						p.Args["routeId"].(string), stringList(p.Args["stopIds"]))
					return route, wrapErr(err)
				},
			},
			"assignDriverAndVehicleToRoute": {
				Type: graphql.NewNonNull(routeType),
				Args: graphql.FieldConfigArgument{
					"routeId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"driverId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"vehicleId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					route, err := a.editor.AssignDriverAndVehicle(p.Context,
						p.Args["routeId"].(string), p.Args["driverId"].(string), p.Args["vehicleId"].(string))
					return route, wrapErr(err)
				},
			},
			"deleteRoute": {
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"routeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					if err := a.editor.DeleteRoute(p.Context, p.Args["routeId"].(string)); err != nil {
						return nil, wrapErr(err)
					}
					return true, nil
				},
			},
			"completeStop": {
				Type: graphql.NewNonNull(stopType),
				Args: graphql.FieldConfigArgument{
					"stopId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					principal, err := requireDriver(p.Context)
					if err != nil {
						return nil, wrapErr(err)
					}
					stop, err := a.state.StopByID(p.Args["stopId"].(string))
					if err != nil {
						return nil, wrapErr(err)
					}
					if stop == nil {
						return nil, wrapErr(structs.ErrStopNotFound)
					}
					route, err := a.state.RouteByID(stop.RouteID)
					if err != nil {
						return nil, wrapErr(err)
					}
					if route == nil || route.DriverID != principal.ID {
						return nil, wrapErr(structs.ErrPermissionDenied)
					}
					updated, err := a.editor.CompleteStop(p.Context, stop.ID)
					return updated, wrapErr(err)
				},
			},
			"createChild": {
				Type: graphql.NewNonNull(childType),
				Args: graphql.FieldConfigArgument{
					"name":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"street":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"city":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"state":    &graphql.ArgumentConfig{Type: graphql.String},
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(categoryEnum)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					return a.createChild(p)
				},
			},
			"deleteChild": {
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
						return tx.DeleteChild(p.Args["id"].(string))
					})
					if err != nil {
						return nil, wrapErr(err)
					}
					return true, nil
				},
			},
			"createDriver": {
				Type: graphql.NewNonNull(driverType),
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"capabilities": &graphql.ArgumentConfig{
						Type: graphql.NewList(graphql.NewNonNull(capabilityEnum)),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					return a.createDriver(p)
				},
			},
			"deleteDriver": {
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
						return tx.DeleteDriver(p.Args["id"].(string))
					})
					if err != nil {
						return nil, wrapErr(err)
					}
					return true, nil
				},
			},
			"createVehicle": {
				Type: graphql.NewNonNull(vehicleType),
				Args: graphql.FieldConfigArgument{
					"name":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"capacity": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"equipment": &graphql.ArgumentConfig{
						Type: graphql.NewList(graphql.NewNonNull(equipmentEnum)),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					return a.createVehicle(p)
				},
			},
			"deleteVehicle": {
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireAdmin(p.Context); err != nil {
						return nil, wrapErr(err)
					}
					err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
						return tx.DeleteVehicle(p.Args["id"].(string))
					})
					if err != nil {
						return nil, wrapErr(err)
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// createChild materializes a child record, geocoding the address when a
// geocoder is configured. Geocoding is best effort: a port failure or an
// unresolvable address leaves the child without coordinates rather than
// failing the creation.
func (a *Agent) createChild(p graphql.ResolveParams) (interface{}, error) {
	child := &structs.Child{
		ID:       uuid.Generate(),
		Name:     p.Args["name"].(string),
		Street:   p.Args["street"].(string),
		City:     p.Args["city"].(string),
		Category: p.Args["category"].(string),
	}
	if st, ok := p.Args["state"].(string); ok {
		child.State = st
	}

	if a.geocoder != nil {
		parts := []string{child.Street, child.City}
		if child.State != "" {
			parts = append(parts, child.State)
		}
		address := strings.Join(parts, ", ")
		coords, err := a.geocoder.Lookup(p.Context, address)
		switch {
		case err != nil:
			a.logger.Warn("geocoding failed, creating child without coordinates",
				"child", child.Name, "error", err)
		case coords == nil:
			a.logger.Warn("address did not geocode, creating child without coordinates",
				"child", child.Name, "address", address)
		default:
			child.Coordinates = coords
		}
	}

	if err := child.Validate(); err != nil {
		return nil, wrapErr(structs.NewBadInputError("%s", err.Error()))
	}
	err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
		return tx.UpsertChild(child)
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	fresh, err := a.state.ChildByID(child.ID)
	return fresh, wrapErr(err)
}

func (a *Agent) createDriver(p graphql.ResolveParams) (interface{}, error) {
	driver := &structs.Driver{
		ID:           uuid.Generate(),
		Name:         p.Args["name"].(string),
		Capabilities: stringList(p.Args["capabilities"]),
	}
	if err := driver.Validate(); err != nil {
		return nil, wrapErr(structs.NewBadInputError("%s", err.Error()))
	}
	err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
		return tx.UpsertDriver(driver)
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	fresh, err := a.state.DriverByID(driver.ID)
	return fresh, wrapErr(err)
}

func (a *Agent) createVehicle(p graphql.ResolveParams) (interface{}, error) {
	vehicle := &structs.Vehicle{
		ID:        uuid.Generate(),
		Name:      p.Args["name"].(string),
		Capacity:  p.Args["capacity"].(int),
		Equipment: stringList(p.Args["equipment"]),
	}
	if err := vehicle.Validate(); err != nil {
		return nil, wrapErr(structs.NewBadInputError("%s", err.Error()))
	}
	err := a.state.WithTxn(p.Context, func(tx *state.Txn) error {
		return tx.UpsertVehicle(vehicle)
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	fresh, err := a.state.VehicleByID(vehicle.ID)
	return fresh, wrapErr(err)
}

// stringList coerces a GraphQL list argument into []string.
func stringList(arg interface{}) []string {
	raw, ok := arg.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
