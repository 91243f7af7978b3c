// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package planner

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/kinderfleet/kinderfleet/maps"
	"github.com/kinderfleet/kinderfleet/structs"
)

// bruteForceLimit is the largest location count (depot included) we solve
// exactly. Above it, the constructive heuristics stand alone.
const bruteForceLimit = 6

// Sequencer solves the per-cluster open TSP: best visit order starting from
// and returning to the depot, with the depot endpoints stripped from the
// result.
type Sequencer struct {
	logger hclog.Logger
	depot  structs.Coordinates

	// matrix is the driving-time port. Nil, or any failure, falls back to
	// great-circle estimation.
	matrix maps.TimeMatrixProvider
}

// NewSequencer creates a sequencer rooted at the depot.
func NewSequencer(logger hclog.Logger, depot structs.Coordinates, matrix maps.TimeMatrixProvider) *Sequencer {
	return &Sequencer{
		logger: logger.Named("sequencer"),
		depot:  depot,
		matrix: matrix,
	}
}

// Order returns the cluster's children in optimal visit order. Children
// without coordinates are excluded from optimization and appended verbatim.
func (s *Sequencer) Order(ctx context.Context, children []*structs.Child) ([]*structs.Child, error) {
	var withCoords, withoutCoords []*structs.Child
	for _, child := range children {
		if child.HasCoordinates() {
			withCoords = append(withCoords, child)
		} else {
			withoutCoords = append(withoutCoords, child)
		}
	}

	if len(withCoords) == 0 {
		return append([]*structs.Child(nil), children...), nil
	}

	locations := make([]structs.Coordinates, 0, len(withCoords)+1)
	locations = append(locations, s.depot)
	for _, child := range withCoords {
		locations = append(locations, *child.Coordinates)
	}

	matrix, err := s.timeMatrix(ctx, locations)
	if err != nil {
		return nil, err
	}

	tour := bestTour(matrix)

	ordered := make([]*structs.Child, 0, len(children))
	for _, idx := range tour {
		ordered = append(ordered, withCoords[idx-1])
	}
	return append(ordered, withoutCoords...), nil
}

// timeMatrix obtains driving times from the port, recovering from port
// faults with the great-circle estimate. Only context cancellation is
// surfaced to the caller.
func (s *Sequencer) timeMatrix(ctx context.Context, locations []structs.Coordinates) ([][]float64, error) {
	if s.matrix != nil {
		matrix, err := s.matrix.Matrix(ctx, locations)
		if err == nil && squareMatrix(matrix, len(locations)) {
			return matrix, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("time matrix port failed, falling back to great-circle estimate",
			"locations", len(locations), "error", err)
		metrics.IncrCounter([]string{"planner", "matrix_fallback"}, 1)
	}
	return maps.EstimateMatrix(locations), nil
}

// squareMatrix reports whether matrix is n x n. Providers can hand back
// ragged or nil rows (OSRM emits null duration rows for unroutable pairs),
// and those are port faults, not usable matrices.
func squareMatrix(matrix [][]float64, n int) bool {
	if len(matrix) != n {
		return false
	}
	for _, row := range matrix {
		if len(row) != n {
			return false
		}
	}
	return true
}

// bestTour runs every candidate solver and keeps the tour with the minimum
// total time, first-generated winning ties. Tours are location indices with
// the depot (index 0) endpoints already stripped.
func bestTour(matrix [][]float64) []int {
	n := len(matrix)
	if n <= 1 {
		return nil
	}

	candidates := [][]int{
		nearestNeighborTour(matrix),
		greedyTour(matrix),
	}
	if n <= bruteForceLimit {
		if exact := bruteForceTour(matrix); exact != nil {
			candidates = append(candidates, exact)
		}
	}

	best := candidates[0]
	bestTime := tourTime(matrix, best)
	for _, tour := range candidates[1:] {
		if t := tourTime(matrix, tour); t < bestTime {
			best, bestTime = tour, t
		}
	}
	return best
}

// tourTime is the closed-tour cost depot -> stops -> depot.
func tourTime(matrix [][]float64, tour []int) float64 {
	total := 0.0
	prev := 0
	for _, idx := range tour {
		total += matrix[prev][idx]
		prev = idx
	}
	total += matrix[prev][0]
	return total
}

// nearestNeighborTour repeatedly visits the closest unvisited location,
// starting from the depot.
func nearestNeighborTour(matrix [][]float64) []int {
	n := len(matrix)
	visited := make([]bool, n)
	visited[0] = true

	tour := make([]int, 0, n-1)
	current := 0
	for len(tour) < n-1 {
		next, nextTime := -1, 0.0
		for candidate := 1; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			if next == -1 || matrix[current][candidate] < nextTime {
				next, nextTime = candidate, matrix[current][candidate]
			}
		}
		visited[next] = true
		tour = append(tour, next)
		current = next
	}
	return tour
}

// greedyTour picks the nearest unvisited node from the current node. In
// this depot-rooted formulation it coincides with nearest-neighbor; it is
// retained as a second seed so a future replacement can diverge without
// touching the selection logic.
func greedyTour(matrix [][]float64) []int {
	return nearestNeighborTour(matrix)
}

// bruteForceTour enumerates every permutation of the non-depot locations
// and returns the cheapest, first-generated winning ties.
func bruteForceTour(matrix [][]float64) []int {
	n := len(matrix)
	nodes := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		nodes = append(nodes, i)
	}

	var best []int
	bestTime := 0.0
	permute(nodes, 0, func(perm []int) {
		t := tourTime(matrix, perm)
		if best == nil || t < bestTime {
			best = append(best[:0], perm...)
			bestTime = t
		}
	})
	return best
}

// permute visits every permutation of nodes[k:] in place.
func permute(nodes []int, k int, visit func([]int)) {
	if k == len(nodes) {
		visit(nodes)
		return
	}
	for i := k; i < len(nodes); i++ {
		nodes[k], nodes[i] = nodes[i], nodes[k]
		permute(nodes, k+1, visit)
		nodes[k], nodes[i] = nodes[i], nodes[k]
	}
}
