// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package state

import (
	"context"
	"fmt"
	"sync/atomic"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-memdb"

	"github.com/kinderfleet/kinderfleet/structs"
)

// StateStoreConfig is used to configure a new state store.
type StateStoreConfig struct {
	Logger hclog.Logger
}

// StateStore is the transactional repository for all planner entities. It is
// backed by go-memdb, which gives MVCC snapshot reads and serialized write
// transactions: every mutation happens inside WithTxn and either commits
// fully or leaves no trace. The single writer lock subsumes the per-route
// and per-date serialization the manual editor and planner require.
type StateStore struct {
	logger hclog.Logger
	db     *memdb.MemDB

	// nextTxnIndex is the monotonic write index handed to each write
	// transaction, recorded on entities as CreateIndex/ModifyIndex.
	nextTxnIndex uint64
}

// NewStateStore creates an empty state store.
func NewStateStore(config *StateStoreConfig) (*StateStore, error) {
	db, err := memdb.NewMemDB(stateStoreSchema())
	if err != nil {
		return nil, fmt.Errorf("state store setup failed: %v", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}

	return &StateStore{
		logger: logger.Named("state_store"),
		db:     db,
	}, nil
}

// Txn wraps a memdb transaction with typed entity operations. Write
// transactions carry the index assigned for this commit.
type Txn struct {
	*memdb.Txn

	// Index is the write index for this transaction, zero for reads.
	Index uint64
}

// WithTxn runs fn inside a single write transaction. The transaction aborts
// if fn errors or the context deadline has passed, so callers never observe
// partially applied mutations.
func (s *StateStore) WithTxn(ctx context.Context, fn func(tx *Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Acquiring the writer lock does not watch ctx; a caller whose
	// deadline expires while queued still waits for the lock and is then
	// aborted by the post-fn check. Writes are short enough that the wait
	// is bounded by the longest plan of a single date.
	txn := &Txn{
		Txn:   s.db.Txn(true),
		Index: atomic.AddUint64(&s.nextTxnIndex, 1),
	}
	defer txn.Abort()

	if err := fn(txn); err != nil {
		return err
	}

	// A deadline that expired while fn ran means the caller already gave
	// up; abort rather than commit work nobody is waiting for.
	if err := ctx.Err(); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// ReadTxn returns a read-only snapshot transaction.
func (s *StateStore) ReadTxn() *Txn {
	return &Txn{Txn: s.db.Txn(false)}
}

// Index returns the latest write index recorded for a table.
func (s *StateStore) Index(table string) (uint64, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	out, err := txn.First(tableIndex, indexID, table)
	if err != nil {
		return 0, err
	}
	if out == nil {
		return 0, nil
	}
	return out.(*IndexEntry).Value, nil
}

// bumpIndex records a write against a table within the transaction.
func (tx *Txn) bumpIndex(table string) error {
	if err := tx.Insert(tableIndex, &IndexEntry{Key: table, Value: tx.Index}); err != nil {
		return fmt.Errorf("index update failed: %v", err)
	}
	return nil
}

// UpsertChild inserts or replaces a child record.
func (tx *Txn) UpsertChild(child *structs.Child) error {
	existing, err := tx.First(TableChildren, indexID, child.ID)
	if err != nil {
		return fmt.Errorf("child lookup failed: %v", err)
	}

	child = child.Copy()
	if existing != nil {
		child.CreateIndex = existing.(*structs.Child).CreateIndex
	} else {
		child.CreateIndex = tx.Index
	}
	child.ModifyIndex = tx.Index

	if err := tx.Insert(TableChildren, child); err != nil {
		return fmt.Errorf("child insert failed: %v", err)
	}
	return tx.bumpIndex(TableChildren)
}

// DeleteChild removes a child by ID.
func (tx *Txn) DeleteChild(id string) error {
	existing, err := tx.First(TableChildren, indexID, id)
	if err != nil {
		return fmt.Errorf("child lookup failed: %v", err)
	}
	if existing == nil {
		return structs.ErrChildNotFound
	}
	if err := tx.Delete(TableChildren, existing); err != nil {
		return fmt.Errorf("child delete failed: %v", err)
	}
	return tx.bumpIndex(TableChildren)
}

// ChildByID looks up a child, returning nil when absent.
func (tx *Txn) ChildByID(id string) (*structs.Child, error) {
	out, err := tx.First(TableChildren, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("child lookup failed: %v", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*structs.Child), nil
}

// Children returns all children ordered by ID.
func (tx *Txn) Children() ([]*structs.Child, error) {
	iter, err := tx.Get(TableChildren, indexID)
	if err != nil {
		return nil, fmt.Errorf("children lookup failed: %v", err)
	}
	var out []*structs.Child
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Child))
	}
	return out, nil
}

// UpsertDriver inserts or replaces a driver record.
func (tx *Txn) UpsertDriver(driver *structs.Driver) error {
	existing, err := tx.First(TableDrivers, indexID, driver.ID)
	if err != nil {
		return fmt.Errorf("driver lookup failed: %v", err)
	}

	driver = driver.Copy()
	if existing != nil {
		driver.CreateIndex = existing.(*structs.Driver).CreateIndex
	} else {
		driver.CreateIndex = tx.Index
	}
	driver.ModifyIndex = tx.Index

	if err := tx.Insert(TableDrivers, driver); err != nil {
		return fmt.Errorf("driver insert failed: %v", err)
	}
	return tx.bumpIndex(TableDrivers)
}

// DeleteDriver removes a driver by ID.
func (tx *Txn) DeleteDriver(id string) error {
	existing, err := tx.First(TableDrivers, indexID, id)
	if err != nil {
		return fmt.Errorf("driver lookup failed: %v", err)
	}
	if existing == nil {
		return structs.ErrDriverNotFound
	}
	if err := tx.Delete(TableDrivers, existing); err != nil {
		return fmt.Errorf("driver delete failed: %v", err)
	}
	return tx.bumpIndex(TableDrivers)
}

// DriverByID looks up a driver, returning nil when absent.
func (tx *Txn) DriverByID(id string) (*structs.Driver, error) {
	out, err := tx.First(TableDrivers, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("driver lookup failed: %v", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*structs.Driver), nil
}

// Drivers returns all drivers ordered by ID.
func (tx *Txn) Drivers() ([]*structs.Driver, error) {
	iter, err := tx.Get(TableDrivers, indexID)
	if err != nil {
		return nil, fmt.Errorf("drivers lookup failed: %v", err)
	}
	var out []*structs.Driver
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Driver))
	}
	return out, nil
}

// UpsertVehicle inserts or replaces a vehicle record.
func (tx *Txn) UpsertVehicle(vehicle *structs.Vehicle) error {
	existing, err := tx.First(TableVehicles, indexID, vehicle.ID)
	if err != nil {
		return fmt.Errorf("vehicle lookup failed: %v", err)
	}

	vehicle = vehicle.Copy()
	if existing != nil {
		vehicle.CreateIndex = existing.(*structs.Vehicle).CreateIndex
	} else {
		vehicle.CreateIndex = tx.Index
	}
	vehicle.ModifyIndex = tx.Index

	if err := tx.Insert(TableVehicles, vehicle); err != nil {
		return fmt.Errorf("vehicle insert failed: %v", err)
	}
	return tx.bumpIndex(TableVehicles)
}

// DeleteVehicle removes a vehicle by ID.
func (tx *Txn) DeleteVehicle(id string) error {
	existing, err := tx.First(TableVehicles, indexID, id)
	if err != nil {
		return fmt.Errorf("vehicle lookup failed: %v", err)
	}
	if existing == nil {
		return structs.ErrVehicleNotFound
	}
	if err := tx.Delete(TableVehicles, existing); err != nil {
		return fmt.Errorf("vehicle delete failed: %v", err)
	}
	return tx.bumpIndex(TableVehicles)
}

// VehicleByID looks up a vehicle, returning nil when absent.
func (tx *Txn) VehicleByID(id string) (*structs.Vehicle, error) {
	out, err := tx.First(TableVehicles, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("vehicle lookup failed: %v", err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*structs.Vehicle), nil
}

// Vehicles returns all vehicles ordered by ID.
func (tx *Txn) Vehicles() ([]*structs.Vehicle, error) {
	iter, err := tx.Get(TableVehicles, indexID)
	if err != nil {
		return nil, fmt.Errorf("vehicles lookup failed: %v", err)
	}
	var out []*structs.Vehicle
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		out = append(out, raw.(*structs.Vehicle))
	}
	return out, nil
}
