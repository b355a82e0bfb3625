package metering

import (
	"fmt"
	"strings"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UtilityType is what a meter measures
type UtilityType string

const (
	UtilityElectricity UtilityType = "ELECTRICITY"
	UtilityWater       UtilityType = "WATER"
	UtilityInternet    UtilityType = "INTERNET"
)

// IsValid checks if the utility type is known
func (u UtilityType) IsValid() bool {
	switch u {
	case UtilityElectricity, UtilityWater, UtilityInternet:
		return true
	}
	return false
}

// MeterStatus is the operational state of a meter
type MeterStatus string

const (
	MeterActive      MeterStatus = "ACTIVE"
	MeterInactive    MeterStatus = "INACTIVE"
	MeterMaintenance MeterStatus = "MAINTENANCE"
)

// IsValid checks if the meter status is known
func (s MeterStatus) IsValid() bool {
	switch s {
	case MeterActive, MeterInactive, MeterMaintenance:
		return true
	}
	return false
}

// LocationType is the level of the property hierarchy a meter is installed at
type LocationType string

const (
	LocationProperty   LocationType = "PROPERTY"
	LocationFloor      LocationType = "FLOOR"
	LocationRentalUnit LocationType = "RENTAL_UNIT"
)

// Location references exactly one property, floor or rental unit, matching Type
type Location struct {
	Type         LocationType
	PropertyID   *uuid.UUID
	FloorID      *uuid.UUID
	RentalUnitID *uuid.UUID
}

// Validate checks that exactly the reference named by Type is set
func (l Location) Validate() error {
	set := 0
	for _, id := range []*uuid.UUID{l.PropertyID, l.FloorID, l.RentalUnitID} {
		if id != nil {
			set++
		}
	}
	if set != 1 {
		return shared.NewValidationError("INVALID_LOCATION", "meter must reference exactly one location")
	}

	var ok bool
	switch l.Type {
	case LocationProperty:
		ok = l.PropertyID != nil
	case LocationFloor:
		ok = l.FloorID != nil
	case LocationRentalUnit:
		ok = l.RentalUnitID != nil
	default:
		return shared.NewValidationError("INVALID_LOCATION", fmt.Sprintf("unknown location type %q", l.Type))
	}
	if !ok {
		return shared.NewValidationError("INVALID_LOCATION",
			fmt.Sprintf("location reference does not match location type %s", l.Type))
	}
	return nil
}

// Meter is a utility meter with a starting reading and a per-unit rate
type Meter struct {
	shared.TenantAggregateRoot
	Name           string
	UtilityType    UtilityType
	Location       Location
	InitialReading decimal.Decimal
	UnitRate       decimal.Decimal
	Status         MeterStatus
}

// NewMeter creates an ACTIVE meter
func NewMeter(tenantID uuid.UUID, name string, utility UtilityType, loc Location, initial, rate decimal.Decimal) (*Meter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "meter name is required")
	}
	if !utility.IsValid() {
		return nil, shared.NewValidationError("INVALID_UTILITY_TYPE", fmt.Sprintf("unknown utility type %q", utility))
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if initial.IsNegative() || rate.IsNegative() {
		return nil, shared.NewValidationError("INVALID_METER", "initial reading and unit rate cannot be negative")
	}
	return &Meter{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		UtilityType:         utility,
		Location:            loc,
		InitialReading:      initial,
		UnitRate:            rate,
		Status:              MeterActive,
	}, nil
}

// CheckAcceptsReadings returns a StateError unless the meter is ACTIVE
func (m *Meter) CheckAcceptsReadings() error {
	if m.Status != MeterActive {
		return shared.NewStateError("METER_NOT_ACTIVE", fmt.Sprintf("meter %s is %s", m.ID, m.Status))
	}
	return nil
}
