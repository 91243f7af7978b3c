// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package maps holds the geographic ports the planner consumes: address
// geocoding and pairwise driving-time estimation, plus the great-circle
// fallback used when no matrix provider is reachable.
package maps

import (
	"context"
	"math"

	"github.com/kinderfleet/kinderfleet/structs"
)

// Geocoder resolves a free-form address to coordinates. Implementations
// return (nil, nil) for lookups that succeed but carry too little
// confidence to act on.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (*structs.Coordinates, error)
}

// TimeMatrixProvider produces a square matrix of pairwise driving times in
// seconds for the given locations. Providers may fail; callers fall back to
// great-circle estimation.
type TimeMatrixProvider interface {
	Matrix(ctx context.Context, locations []structs.Coordinates) ([][]float64, error)
}

// TimeMatrixFunc adapts a plain function to TimeMatrixProvider.
type TimeMatrixFunc func(ctx context.Context, locations []structs.Coordinates) ([][]float64, error)

func (f TimeMatrixFunc) Matrix(ctx context.Context, locations []structs.Coordinates) ([][]float64, error) {
	return f(ctx, locations)
}

// GeocoderFunc adapts a plain function to Geocoder.
type GeocoderFunc func(ctx context.Context, address string) (*structs.Coordinates, error)

func (f GeocoderFunc) Lookup(ctx context.Context, address string) (*structs.Coordinates, error) {
	return f(ctx, address)
}

const (
	earthRadiusKm = 6371.0

	// FallbackSpeedKPH is the assumed average driving speed when estimating
	// travel time from great-circle distance.
	FallbackSpeedKPH = 40.0
)

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b structs.Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EstimateMatrix builds a pairwise travel-time matrix from great-circle
// distances at FallbackSpeedKPH. Entries are whole seconds; the diagonal is
// zero.
func EstimateMatrix(locations []structs.Coordinates) [][]float64 {
	n := len(locations)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			if i == j {
				continue
			}
			km := HaversineKm(locations[i], locations[j])
			matrix[i][j] = math.Round(km / FallbackSpeedKPH * 3600)
		}
	}
	return matrix
}
