// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/kinderfleet/kinderfleet/ci"
)

func TestErrorCode(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name string
		err  error
		exp  string
	}{
		{"nil", nil, ""},
		{"permission", ErrPermissionDenied, ErrCodeUnauthenticated},
		{"child", ErrChildNotFound, ErrCodeNotFound},
		{"driver", ErrDriverNotFound, ErrCodeNotFound},
		{"vehicle", ErrVehicleNotFound, ErrCodeNotFound},
		{"route", ErrRouteNotFound, ErrCodeNotFound},
		{"stop", ErrStopNotFound, ErrCodeNotFound},
		{"driver_assigned", ErrDriverAlreadyAssigned, ErrCodeDriverAlreadyAssigned},
		{"vehicle_assigned", ErrVehicleAlreadyAssigned, ErrCodeVehicleAlreadyAssigned},
		{"conflict", ErrPlanConflict, ErrCodeConflict},
		{"port", ErrPortFailure, ErrCodePortFailure},
		{"bad_input", NewBadInputError("nope"), ErrCodeBadInput},
		{"wrapped", fmt.Errorf("lookup: %w", ErrRouteNotFound), ErrCodeNotFound},
		{"unknown", errors.New("boom"), ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			must.Eq(t, tc.exp, ErrorCode(tc.err))
		})
	}
}

func TestIsBadInput(t *testing.T) {
	ci.Parallel(t)

	must.False(t, IsBadInput(nil))
	must.False(t, IsBadInput(errors.New("boom")))
	must.True(t, IsBadInput(NewBadInputError("bad %s", "date")))
	must.True(t, IsBadInput(fmt.Errorf("outer: %w", NewBadInputError("inner"))))
}
