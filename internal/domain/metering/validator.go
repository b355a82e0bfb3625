package metering

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/rentledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAnomalyThreshold is the consumption above which a reading needs explicit confirmation
var DefaultAnomalyThreshold = decimal.NewFromInt(500)

// Candidate is a reading submitted for validation
type Candidate struct {
	MeterID     uuid.UUID
	Value       decimal.Decimal
	ReadingDate time.Time
	// Confirmed overrides the anomaly check
	Confirmed bool
}

// Validator enforces monotonic readings per meter and flags anomalous consumption
type Validator struct {
	threshold decimal.Decimal
}

// NewValidator creates a validator. A non-positive threshold falls back to the default.
func NewValidator(threshold decimal.Decimal) *Validator {
	if !threshold.IsPositive() {
		threshold = DefaultAnomalyThreshold
	}
	return &Validator{threshold: threshold}
}

// Threshold returns the anomaly threshold in use
func (v *Validator) Threshold() decimal.Decimal {
	return v.threshold
}

// Validate checks one candidate against the meter's existing readings and
// returns the reading to persist.
func (v *Validator) Validate(m *Meter, existing []Reading, c Candidate) (*Reading, error) {
	if err := m.CheckAcceptsReadings(); err != nil {
		return nil, err
	}
	if c.Value.IsNegative() {
		return nil, shared.NewValidationError("NEGATIVE_READING", "reading cannot be negative")
	}
	date := shared.DateOf(c.ReadingDate)

	previous := m.InitialReading
	var next *decimal.Decimal
	for i := range existing {
		r := existing[i]
		switch {
		case r.ReadingDate.Equal(date):
			return nil, shared.NewConflictError("DUPLICATE_READING",
				fmt.Sprintf("meter %s already has a reading on %s", m.ID, date.Format(time.DateOnly)))
		case r.ReadingDate.Before(date):
			previous = decimal.Max(previous, r.Value)
		default:
			if next == nil || r.Value.LessThan(*next) {
				val := r.Value
				next = &val
			}
		}
	}

	if c.Value.LessThan(previous) {
		return nil, shared.NewValidationError("NON_MONOTONIC_READING",
			fmt.Sprintf("reading %s is below previous reading %s", c.Value, previous))
	}
	if next != nil && c.Value.GreaterThan(*next) {
		return nil, shared.NewValidationError("NON_MONOTONIC_READING",
			fmt.Sprintf("reading %s is above later reading %s", c.Value, *next))
	}

	consumption := c.Value.Sub(previous)
	if consumption.GreaterThan(v.threshold) && !c.Confirmed {
		return nil, shared.NewConflictError("ANOMALOUS_CONSUMPTION",
			fmt.Sprintf("consumption %s exceeds %s; confirm to accept", consumption, v.threshold))
	}
	return newReading(m, c.Value, date, previous), nil
}

// ValidateBatch validates candidates as one unit. Candidates for the same meter
// are checked in date order so each chains off the previously accepted one.
// Results are reported in input order.
func (v *Validator) ValidateBatch(meters map[uuid.UUID]*Meter, existing map[uuid.UUID][]Reading, candidates []Candidate) shared.BatchOutcome[*Reading] {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := candidates[order[a]], candidates[order[b]]
		if ca.MeterID != cb.MeterID {
			return ca.MeterID.String() < cb.MeterID.String()
		}
		return ca.ReadingDate.Before(cb.ReadingDate)
	})

	history := make(map[uuid.UUID][]Reading, len(existing))
	for id, rs := range existing {
		history[id] = append([]Reading(nil), rs...)
	}

	accepted := make([]*Reading, len(candidates))
	failures := make([]error, len(candidates))
	for _, idx := range order {
		c := candidates[idx]
		m, ok := meters[c.MeterID]
		if !ok {
			failures[idx] = shared.NewNotFoundError("meter", c.MeterID)
			continue
		}
		r, err := v.Validate(m, history[c.MeterID], c)
		if err != nil {
			failures[idx] = err
			continue
		}
		accepted[idx] = r
		history[c.MeterID] = append(history[c.MeterID], *r)
	}

	var outcome shared.BatchOutcome[*Reading]
	for i := range candidates {
		outcome.Add(i, accepted[i], failures[i])
	}
	return outcome
}
