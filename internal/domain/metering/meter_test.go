package metering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLocation_Validate(t *testing.T) {
	id := uuid.New()
	other := uuid.New()

	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{"property", Location{Type: LocationProperty, PropertyID: &id}, false},
		{"floor", Location{Type: LocationFloor, FloorID: &id}, false},
		{"rental unit", Location{Type: LocationRentalUnit, RentalUnitID: &id}, false},
		{"none set", Location{Type: LocationFloor}, true},
		{"two set", Location{Type: LocationFloor, FloorID: &id, PropertyID: &other}, true},
		{"type mismatch", Location{Type: LocationProperty, FloorID: &id}, true},
		{"unknown type", Location{Type: "WING", FloorID: &id}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewMeter_Validation(t *testing.T) {
	id := uuid.New()
	loc := Location{Type: LocationProperty, PropertyID: &id}

	_, err := NewMeter(uuid.New(), " ", UtilityWater, loc, dec("0"), dec("1"))
	assert.Error(t, err)
	_, err = NewMeter(uuid.New(), "W-1", "GAS", loc, dec("0"), dec("1"))
	assert.Error(t, err)
	_, err = NewMeter(uuid.New(), "W-1", UtilityWater, loc, dec("-1"), dec("1"))
	assert.Error(t, err)

	m, err := NewMeter(uuid.New(), "W-1", UtilityWater, loc, dec("0"), dec("1"))
	assert.NoError(t, err)
	assert.Equal(t, MeterActive, m.Status)
}
