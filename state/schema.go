// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package state

import (
	"github.com/hashicorp/go-memdb"
)

const (
	TableChildren = "children"
	TableDrivers  = "drivers"
	TableVehicles = "vehicles"
	TableRoutes   = "routes"
	TableStops    = "stops"

	tableIndex = "index"
)

const (
	indexID    = "id"
	indexDate  = "date"
	indexRoute = "route"
)

// IndexEntry tracks the latest write index per table, mirroring the entity
// CreateIndex/ModifyIndex bookkeeping.
type IndexEntry struct {
	Key   string
	Value uint64
}

// stateStoreSchema returns the full memdb schema: the five entity tables
// plus the index bookkeeping table.
func stateStoreSchema() *memdb.DBSchema {
	db := &memdb.DBSchema{
		Tables: make(map[string]*memdb.TableSchema),
	}

	schemas := []func() *memdb.TableSchema{
		indexTableSchema,
		childTableSchema,
		driverTableSchema,
		vehicleTableSchema,
		routeTableSchema,
		stopTableSchema,
	}

	for _, fn := range schemas {
		schema := fn()
		if _, ok := db.Tables[schema.Name]; ok {
			panic("duplicate table name: " + schema.Name)
		}
		db.Tables[schema.Name] = schema
	}
	return db
}

func indexTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableIndex,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field:     "Key",
					Lowercase: true,
				},
			},
		},
	}
}

func childTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: TableChildren,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
		},
	}
}

func driverTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: TableDrivers,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
		},
	}
}

func vehicleTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: TableVehicles,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
		},
	}
}

func routeTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: TableRoutes,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
			// date supports the day-level wipe in planning and the
			// cross-route assignment conflict checks.
			indexDate: {
				Name:         indexDate,
				AllowMissing: false,
				Unique:       false,
				Indexer: &memdb.StringFieldIndex{
					Field: "Date",
				},
			},
		},
	}
}

func stopTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: TableStops,
		Indexes: map[string]*memdb.IndexSchema{
			indexID: {
				Name:         indexID,
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
			// route supports the cascade delete and ordered stop listing.
			indexRoute: {
				Name:         indexRoute,
				AllowMissing: false,
				Unique:       false,
				Indexer: &memdb.StringFieldIndex{
					Field: "RouteID",
				},
			},
		},
	}
}
