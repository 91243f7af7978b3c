// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package planner implements the daily planning pipeline: eligibility
// matching, compatibility partitioning, geographic clustering, sequence
// optimization, and the transactional materialization that ties them
// together. The stages are pure functions over plain records; only the
// orchestrator and the time-matrix port touch the outside world.
package planner

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/kinderfleet/kinderfleet/structs"
)

// TransportOption is a (driver, vehicle) pair competent to carry a child.
type TransportOption struct {
	DriverID  string
	VehicleID string
}

// EligibilityMap maps a child ID to its eligible transport options. An
// empty set marks the child unroutable against the current pools.
type EligibilityMap map[string][]TransportOption

// categoryRequirements lists the driver capabilities and vehicle equipment
// a care category demands. Categories absent from the table demand nothing.
type categoryRequirements struct {
	Capabilities []string
	Equipment    []string
}

var requirementsByCategory = map[string]categoryRequirements{
	structs.ChildCategoryInfant: {
		Capabilities: []string{structs.DriverCapabilityInfantCertified},
		Equipment:    []string{structs.VehicleEquipmentInfantSeat},
	},
	structs.ChildCategoryToddler: {
		Capabilities: []string{structs.DriverCapabilityToddlerTrained},
		Equipment:    []string{structs.VehicleEquipmentToddlerSeat},
	},
}

// RequirementsForCategory returns the capability and equipment demands for
// a care category. Preschool and out-of-school-care demand nothing.
func RequirementsForCategory(category string) (capabilities, equipment []string) {
	req := requirementsByCategory[category]
	return req.Capabilities, req.Equipment
}

// Match enumerates, for every child, the (driver, vehicle) pairs that
// satisfy the child's category requirements. The candidate set is the full
// Cartesian product of the pools; no pre-pairing is assumed. Children whose
// eligible set comes up empty are logged; the orchestrator turns them into
// the unroutable list.
func Match(logger hclog.Logger, children []*structs.Child, drivers []*structs.Driver, vehicles []*structs.Vehicle) EligibilityMap {
	eligibility := make(EligibilityMap, len(children))

	for _, child := range children {
		requiredCaps, requiredEquip := RequirementsForCategory(child.Category)

		var options []TransportOption
		for _, driver := range drivers {
			if !driver.HasAllCapabilities(requiredCaps) {
				continue
			}
			for _, vehicle := range vehicles {
				if !vehicle.HasAllEquipment(requiredEquip) {
					continue
				}
				options = append(options, TransportOption{
					DriverID:  driver.ID,
					VehicleID: vehicle.ID,
				})
			}
		}

		if len(options) == 0 {
			logger.Warn("no eligible transport for child",
				"child_id", child.ID, "category", child.Category)
		}
		eligibility[child.ID] = options
	}

	return eligibility
}
