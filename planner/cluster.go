// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package planner

import (
	"math"

	"github.com/kinderfleet/kinderfleet/structs"
)

// DefaultCapacityHeuristic is the average-vehicle-capacity constant that
// sizes clusters. It deliberately ignores true per-vehicle capacity;
// capacity-aware clustering is a VRP extension that is out of scope.
const DefaultCapacityHeuristic = 10

// kmeansMaxIterations bounds Lloyd iteration. Rosters are tiny; convergence
// in practice takes a handful of passes.
const kmeansMaxIterations = 100

// Cluster subdivides a workload into geographic clusters of roughly
// capacityHeuristic children each, using k-means on raw (lat, lon) degrees.
// Raw degrees are acceptable for the small urban regions a facility serves.
// Children without coordinates cannot be placed geometrically: they ride
// along in the first cluster, or form their own when nothing has
// coordinates.
func Cluster(workload *Workload, capacityHeuristic int) [][]*structs.Child {
	if capacityHeuristic <= 0 {
		capacityHeuristic = DefaultCapacityHeuristic
	}

	var withCoords, withoutCoords []*structs.Child
	for _, child := range workload.Children {
		if child.HasCoordinates() {
			withCoords = append(withCoords, child)
		} else {
			withoutCoords = append(withoutCoords, child)
		}
	}

	if len(withCoords) == 0 {
		if len(workload.Children) == 0 {
			return nil
		}
		return [][]*structs.Child{workload.Children}
	}

	k := int(math.Ceil(float64(len(withCoords)) / float64(capacityHeuristic)))
	if k > len(withCoords) {
		k = len(withCoords)
	}
	if k < 1 {
		k = 1
	}
	if k == 1 {
		return [][]*structs.Child{workload.Children}
	}

	points := make([][2]float64, len(withCoords))
	for i, child := range withCoords {
		points[i] = [2]float64{child.Coordinates.Lat, child.Coordinates.Lon}
	}

	assignments := kmeans(points, k)

	clusters := make([][]*structs.Child, k)
	for i, child := range withCoords {
		c := assignments[i]
		clusters[c] = append(clusters[c], child)
	}

	// Drop clusters k-means left empty.
	out := clusters[:0]
	for _, cluster := range clusters {
		if len(cluster) > 0 {
			out = append(out, cluster)
		}
	}

	if len(withoutCoords) > 0 {
		if len(out) > 0 {
			out[0] = append(out[0], withoutCoords...)
		} else {
			out = append(out, withoutCoords)
		}
	}
	return out
}

// kmeans runs Lloyd iteration over 2-D points and returns the per-point
// cluster assignment. Initialization spreads the centroids across the input
// by index, which keeps the whole pipeline deterministic for identical
// inputs. Distance ties resolve to the lowest centroid index.
func kmeans(points [][2]float64, k int) []int {
	centroids := make([][2]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = points[c*len(points)/k]
	}

	assignments := make([]int, len(points))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := squaredDistance(p, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; an empty centroid keeps its position.
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c][0] = sums[c][0] / float64(counts[c])
				centroids[c][1] = sums[c][1] / float64(counts[c])
			}
		}
	}
	return assignments
}

func squaredDistance(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
