// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the request principal is missing
	// or of the wrong kind for the operation.
	ErrPermissionDenied = errors.New("permission denied")

	ErrChildNotFound   = errors.New("child not found")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrRouteNotFound   = errors.New("route not found")
	ErrStopNotFound    = errors.New("stop not found")

	// ErrDriverAlreadyAssigned and ErrVehicleAlreadyAssigned guard the
	// date-level invariant that a driver or vehicle serves at most one route
	// per calendar date.
	ErrDriverAlreadyAssigned  = errors.New("driver already assigned to a route on this date")
	ErrVehicleAlreadyAssigned = errors.New("vehicle already assigned to a route on this date")

	// ErrPlanConflict is returned when a transaction aborts because of
	// concurrent planning activity.
	ErrPlanConflict = errors.New("concurrent plan detected")

	// ErrPortFailure wraps faults from external ports when no fallback
	// applies (the time-matrix path recovers via great-circle estimation,
	// geocoding does not).
	ErrPortFailure = errors.New("external port failure")
)

// Error codes surfaced to API callers. Clients dispatch on these, so the
// values are part of the external contract.
const (
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeBadInput               = "BAD_INPUT"
	ErrCodeDriverAlreadyAssigned  = "DRIVER_ALREADY_ASSIGNED"
	ErrCodeVehicleAlreadyAssigned = "VEHICLE_ALREADY_ASSIGNED"
	ErrCodePortFailure            = "PORT_FAILURE"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeInternal               = "INTERNAL"
)

// BadInputError marks malformed caller input: bad dates, empty stop ID
// lists, stop sets that are not a permutation of the route, and so on.
type BadInputError struct {
	Message string
}

func (e *BadInputError) Error() string {
	return e.Message
}

// NewBadInputError formats a BadInputError.
func NewBadInputError(format string, args ...any) error {
	return &BadInputError{Message: fmt.Sprintf(format, args...)}
}

// IsBadInput reports whether err is a BadInputError anywhere in its chain.
func IsBadInput(err error) bool {
	var bie *BadInputError
	return errors.As(err, &bie)
}

// ErrorCode maps an error chain to the externally visible code taxonomy.
// Unrecognized errors report as INTERNAL rather than leaking detail.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return ErrCodeUnauthenticated
	case errors.Is(err, ErrChildNotFound),
		errors.Is(err, ErrDriverNotFound),
		errors.Is(err, ErrVehicleNotFound),
		errors.Is(err, ErrRouteNotFound),
		errors.Is(err, ErrStopNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrDriverAlreadyAssigned):
		return ErrCodeDriverAlreadyAssigned
	case errors.Is(err, ErrVehicleAlreadyAssigned):
		return ErrCodeVehicleAlreadyAssigned
	case errors.Is(err, ErrPlanConflict):
		return ErrCodeConflict
	case errors.Is(err, ErrPortFailure):
		return ErrCodePortFailure
	case IsBadInput(err):
		return ErrCodeBadInput
	default:
		return ErrCodeInternal
	}
}
