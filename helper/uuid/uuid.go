// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package uuid generates the opaque string identifiers used for every
// persisted entity.
package uuid

import (
	"github.com/hashicorp/go-uuid"
)

// Generate returns a random UUID string. Generation can only fail if the
// host's entropy source is broken, in which case nothing else works either.
func Generate() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		panic(err)
	}
	return id
}
