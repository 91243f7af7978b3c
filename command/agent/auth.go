// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package agent

import (
	"context"
	"net/http"

	"github.com/kinderfleet/kinderfleet/structs"
)

// Identity and session handling live outside this service. An
// authenticating proxy forwards the verified principal in these headers;
// the core only dispatches on kind and ID.
const (
	headerPrincipalKind = "X-Kinderfleet-Principal-Kind"
	headerPrincipalID   = "X-Kinderfleet-Principal-ID"
)

const (
	PrincipalKindAdmin  = "admin"
	PrincipalKindDriver = "driver"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind string
	ID   string
}

type principalContextKey struct{}

// WithPrincipal attaches a principal to a request context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the request principal, nil when absent.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// principalFromRequest reads the forwarded principal headers, nil when
// missing or malformed.
func principalFromRequest(req *http.Request) *Principal {
	kind := req.Header.Get(headerPrincipalKind)
	id := req.Header.Get(headerPrincipalID)
	if id == "" || (kind != PrincipalKindAdmin && kind != PrincipalKindDriver) {
		return nil
	}
	return &Principal{Kind: kind, ID: id}
}

// requireAdmin returns the admin principal or ErrPermissionDenied.
func requireAdmin(ctx context.Context) (*Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.Kind != PrincipalKindAdmin {
		return nil, structs.ErrPermissionDenied
	}
	return p, nil
}

// requireDriver returns the driver principal or ErrPermissionDenied.
func requireDriver(ctx context.Context) (*Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.Kind != PrincipalKindDriver {
		return nil, structs.ErrPermissionDenied
	}
	return p, nil
}
