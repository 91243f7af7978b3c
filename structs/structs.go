// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"
)

const (
	// ChildCategoryInfant through ChildCategoryOutOfSchoolCare are the care
	// categories a child can be enrolled under. The category drives which
	// driver capabilities and vehicle equipment a transport requires.
	ChildCategoryInfant          = "infant"
	ChildCategoryToddler         = "toddler"
	ChildCategoryPreschool       = "preschool"
	ChildCategoryOutOfSchoolCare = "out_of_school_care"
)

const (
	DriverCapabilityInfantCertified = "infant_certified"
	DriverCapabilityToddlerTrained  = "toddler_trained"
	DriverCapabilitySpecialNeeds    = "special_needs"
)

const (
	VehicleEquipmentInfantSeat     = "infant_seat"
	VehicleEquipmentToddlerSeat    = "toddler_seat"
	VehicleEquipmentBoosterSeat    = "booster_seat"
	VehicleEquipmentWheelchairLift = "wheelchair_lift"
)

const (
	RouteStatusPlanning   = "planning"    // Planning means the route has no driver or vehicle yet
	RouteStatusAssigned   = "assigned"    // Assigned means a driver and vehicle are committed
	RouteStatusInProgress = "in_progress" // InProgress means the driver started the run
	RouteStatusCompleted  = "completed"   // Completed means every stop was serviced
)

const (
	StopTypePickup  = "pickup"
	StopTypeDropoff = "dropoff"
)

const (
	StopStatusPending   = "pending"
	StopStatusCompleted = "completed"
)

// validChildCategories holds the accepted wire values for a child category.
var validChildCategories = []string{
	ChildCategoryInfant,
	ChildCategoryToddler,
	ChildCategoryPreschool,
	ChildCategoryOutOfSchoolCare,
}

// categoryDisplayNames maps wire categories to the human labels used in
// generated route names.
var categoryDisplayNames = map[string]string{
	ChildCategoryInfant:          "Infant",
	ChildCategoryToddler:         "Toddler",
	ChildCategoryPreschool:       "Preschool",
	ChildCategoryOutOfSchoolCare: "Out of School Care",
}

// CategoryDisplayName returns the human readable label for a category wire
// value, or the wire value itself if it is unknown.
func CategoryDisplayName(category string) string {
	if name, ok := categoryDisplayNames[category]; ok {
		return name
	}
	return category
}

// ValidChildCategory reports whether the given wire value names a known care
// category.
func ValidChildCategory(category string) bool {
	for _, c := range validChildCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ValidateDate checks that a date string is an ISO calendar date
// (YYYY-MM-DD). Everything downstream of validation treats the string as an
// opaque key.
func ValidateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return NewBadInputError("invalid date %q: must be YYYY-MM-DD", date)
	}
	return nil
}

// Coordinates is a WGS-84 position in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

func (c *Coordinates) Copy() *Coordinates {
	if c == nil {
		return nil
	}
	nc := *c
	return &nc
}

// Child is a routed passenger. Coordinates are optional; children without a
// geocoded home address still ride, they are just excluded from geometric
// optimization.
type Child struct {
	ID     string
	Name   string
	Street string
	City   string
	State  string

	// Coordinates is nil until the home address has been geocoded.
	Coordinates *Coordinates

	// Category is the care category, one of the ChildCategory* values.
	Category string

	CreateIndex uint64
	ModifyIndex uint64
}

func (c *Child) Copy() *Child {
	if c == nil {
		return nil
	}
	nc := *c
	nc.Coordinates = c.Coordinates.Copy()
	return &nc
}

// HasCoordinates reports whether the child's home address has been geocoded.
func (c *Child) HasCoordinates() bool {
	return c.Coordinates != nil
}

func (c *Child) Validate() error {
	var mErr multierror.Error
	if c.Name == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing child name"))
	}
	if !ValidChildCategory(c.Category) {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("invalid child category %q", c.Category))
	}
	return mErr.ErrorOrNil()
}

// Driver is a member of the driver pool.
type Driver struct {
	ID   string
	Name string

	// Capabilities holds DriverCapability* values. Order is not meaningful;
	// membership is what matters.
	Capabilities []string

	CreateIndex uint64
	ModifyIndex uint64
}

func (d *Driver) Copy() *Driver {
	if d == nil {
		return nil
	}
	nd := *d
	nd.Capabilities = append([]string(nil), d.Capabilities...)
	return &nd
}

// HasCapability reports whether the driver holds the given capability.
func (d *Driver) HasCapability(capability string) bool {
	return set.From(d.Capabilities).Contains(capability)
}

// HasAllCapabilities reports whether the driver holds every required
// capability.
func (d *Driver) HasAllCapabilities(required []string) bool {
	caps := set.From(d.Capabilities)
	for _, c := range required {
		if !caps.Contains(c) {
			return false
		}
	}
	return true
}

func (d *Driver) Validate() error {
	var mErr multierror.Error
	if d.Name == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing driver name"))
	}
	return mErr.ErrorOrNil()
}

// Vehicle is a member of the vehicle pool.
type Vehicle struct {
	ID   string
	Name string

	// Capacity is the seat count, always positive.
	Capacity int

	// Equipment holds VehicleEquipment* values.
	Equipment []string

	CreateIndex uint64
	ModifyIndex uint64
}

func (v *Vehicle) Copy() *Vehicle {
	if v == nil {
		return nil
	}
	nv := *v
	nv.Equipment = append([]string(nil), v.Equipment...)
	return &nv
}

// HasEquipment reports whether the vehicle carries the given equipment.
func (v *Vehicle) HasEquipment(equipment string) bool {
	return set.From(v.Equipment).Contains(equipment)
}

// HasAllEquipment reports whether the vehicle carries every required piece of
// equipment.
func (v *Vehicle) HasAllEquipment(required []string) bool {
	eq := set.From(v.Equipment)
	for _, e := range required {
		if !eq.Contains(e) {
			return false
		}
	}
	return true
}

func (v *Vehicle) Validate() error {
	var mErr multierror.Error
	if v.Name == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing vehicle name"))
	}
	if v.Capacity <= 0 {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("vehicle capacity must be positive, got %d", v.Capacity))
	}
	return mErr.ErrorOrNil()
}

// Route is one day's run for a single driver/vehicle pair, starting and
// ending at the depot. Its stops live in their own table and reference the
// route by ID.
type Route struct {
	ID   string
	Name string

	// Date is the ISO calendar date (YYYY-MM-DD) this route runs on.
	Date string

	// Status is one of the RouteStatus* values.
	Status string

	// DriverID and VehicleID are empty until assignment.
	DriverID  string
	VehicleID string

	CreateIndex uint64
	ModifyIndex uint64
}

func (r *Route) Copy() *Route {
	if r == nil {
		return nil
	}
	nr := *r
	return &nr
}

// Assigned reports whether the route has a committed driver and vehicle.
func (r *Route) Assigned() bool {
	return r.DriverID != "" && r.VehicleID != ""
}

func (r *Route) Validate() error {
	var mErr multierror.Error
	if r.Name == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("missing route name"))
	}
	if err := ValidateDate(r.Date); err != nil {
		mErr.Errors = append(mErr.Errors, err)
	}
	return mErr.ErrorOrNil()
}

// Stop is a single visit on a route. Sequences within a route are always a
// contiguous 1..N enumeration; the editor densifies after deletions.
type Stop struct {
	ID      string
	RouteID string
	ChildID string

	// Sequence is the 1-based visit position within the route.
	Sequence int

	// Type is StopTypePickup or StopTypeDropoff. The planner only emits
	// pickups; the dropoff leg is a separate pass that does not exist yet.
	Type string

	// Status is StopStatusPending until the driver completes the visit.
	Status string

	CreateIndex uint64
	ModifyIndex uint64
}

func (s *Stop) Copy() *Stop {
	if s == nil {
		return nil
	}
	ns := *s
	return &ns
}

// JoinSet serializes a string set as a sorted, comma separated value. The
// result is independent of input order and duplicates, which makes it
// usable as a set identity key.
func JoinSet(items []string) string {
	unique := set.From(items).Slice()
	sort.Strings(unique)
	return strings.Join(unique, ",")
}
