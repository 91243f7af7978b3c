// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package planner

import (
	"sort"

	"github.com/kinderfleet/kinderfleet/structs"
)

// MixedCategoriesLabel names workloads whose children span care categories.
const MixedCategoriesLabel = "Mixed Categories"

// Workload is a maximal group of children sharing an identical set of
// eligible drivers. Any transport option drawn from that set can service
// the whole group together, which is what lets a workload become routes.
type Workload struct {
	// Key is the sorted, comma-joined eligible driver IDs. It is a value
	// identity: two children with the same drivers land in the same
	// workload regardless of option order.
	Key string

	// Label is informational and flows into generated route names.
	Label string

	Children []*structs.Child
}

// Partition groups routable children into workloads keyed by their eligible
// driver set. Children with an empty eligible set are skipped; the
// orchestrator has already flagged them unroutable. Output order is
// deterministic (sorted by key).
func Partition(children []*structs.Child, eligibility EligibilityMap) []*Workload {
	byKey := make(map[string]*Workload)

	for _, child := range children {
		options := eligibility[child.ID]
		if len(options) == 0 {
			continue
		}

		key := workloadKey(options)
		workload, ok := byKey[key]
		if !ok {
			workload = &Workload{Key: key}
			byKey[key] = workload
		}
		workload.Children = append(workload.Children, child)
	}

	workloads := make([]*Workload, 0, len(byKey))
	for _, workload := range byKey {
		workload.Label = workloadLabel(workload.Children)
		workloads = append(workloads, workload)
	}
	sort.Slice(workloads, func(i, j int) bool { return workloads[i].Key < workloads[j].Key })
	return workloads
}

// workloadKey derives the deterministic, order-independent driver-set key.
func workloadKey(options []TransportOption) string {
	drivers := make([]string, 0, len(options))
	for _, opt := range options {
		drivers = append(drivers, opt.DriverID)
	}
	return structs.JoinSet(drivers)
}

// workloadLabel is the shared category's display name, or the mixed label
// when the children span categories.
func workloadLabel(children []*structs.Child) string {
	if len(children) == 0 {
		return MixedCategoriesLabel
	}
	category := children[0].Category
	for _, child := range children[1:] {
		if child.Category != category {
			return MixedCategoriesLabel
		}
	}
	return structs.CategoryDisplayName(category)
}
