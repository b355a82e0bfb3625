package models

import (
	"time"

	"github.com/erp/rentledger/internal/domain/billing"
	"github.com/erp/rentledger/internal/domain/lease"
	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeaseModel is the persistence model for the Lease aggregate root
type LeaseModel struct {
	TenantAggregateModel
	RentalUnitID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"type:varchar(200);not null"`
	StartDate    datatypes.Date  `gorm:"not null"`
	EndDate      datatypes.Date  `gorm:"not null"`
	RentAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TermsMonth   int             `gorm:"not null"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status       lease.Status    `gorm:"type:varchar(20);not null;index"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"`
}

func (LeaseModel) TableName() string {
	return "leases"
}

func (m *LeaseModel) ToDomain() *lease.Lease {
	return &lease.Lease{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		SoftDeletable:       fromDeletedAt(m.DeletedAt),
		RentalUnitID:        m.RentalUnitID,
		Name:                m.Name,
		StartDate:           Day(m.StartDate),
		EndDate:             Day(m.EndDate),
		RentAmount:          m.RentAmount,
		TermsMonth:          m.TermsMonth,
		Balance:             m.Balance,
		Status:              m.Status,
	}
}

func (m *LeaseModel) FromDomain(l *lease.Lease) {
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	m.RentalUnitID = l.RentalUnitID
	m.Name = l.Name
	m.StartDate = Date(l.StartDate)
	m.EndDate = Date(l.EndDate)
	m.RentAmount = l.RentAmount
	m.TermsMonth = l.TermsMonth
	m.Balance = l.Balance
	m.Status = l.Status
	m.DeletedAt = toDeletedAt(l.DeletedAt)
}

// PaymentScheduleModel is one expected payment produced by schedule generation
type PaymentScheduleModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	LeaseID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	BillingID      uuid.UUID          `gorm:"type:uuid;not null"`
	DueDate        datatypes.Date     `gorm:"not null"`
	ExpectedAmount decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Type           lease.ScheduleType `gorm:"column:schedule_type;type:varchar(20);not null"`
	CreatedAt      time.Time          `gorm:"not null"`
}

func (PaymentScheduleModel) TableName() string {
	return "payment_schedules"
}

func (m *PaymentScheduleModel) ToDomain() lease.PaymentSchedule {
	return lease.PaymentSchedule{
		ID:             m.ID,
		LeaseID:        m.LeaseID,
		BillingID:      m.BillingID,
		DueDate:        Day(m.DueDate),
		ExpectedAmount: m.ExpectedAmount,
		Type:           m.Type,
		CreatedAt:      m.CreatedAt,
	}
}

func (m *PaymentScheduleModel) FromDomain(s lease.PaymentSchedule) {
	m.ID = s.ID
	m.LeaseID = s.LeaseID
	m.BillingID = s.BillingID
	m.DueDate = Date(s.DueDate)
	m.ExpectedAmount = s.ExpectedAmount
	m.Type = s.Type
	m.CreatedAt = s.CreatedAt
}

// BillingModel is the persistence model for the Billing aggregate root
type BillingModel struct {
	TenantAggregateModel
	LeaseID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillingType     billing.Type    `gorm:"type:varchar(20);not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PenaltyAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status          billing.Status  `gorm:"type:varchar(20);not null;index"`
	DueDate         datatypes.Date  `gorm:"not null;index"`
	BillingDate     datatypes.Date  `gorm:"not null"`
	Notes           string          `gorm:"type:text"`
	SourceBillingID *uuid.UUID      `gorm:"type:uuid;index"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
}

func (BillingModel) TableName() string {
	return "billings"
}

func (m *BillingModel) ToDomain() *billing.Billing {
	return &billing.Billing{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		SoftDeletable:       fromDeletedAt(m.DeletedAt),
		LeaseID:             m.LeaseID,
		Type:                m.BillingType,
		Amount:              m.Amount,
		PaidAmount:          m.PaidAmount,
		PenaltyAmount:       m.PenaltyAmount,
		Balance:             m.Balance,
		Status:              m.Status,
		DueDate:             Day(m.DueDate),
		BillingDate:         Day(m.BillingDate),
		Notes:               m.Notes,
		SourceBillingID:     m.SourceBillingID,
	}
}

func (m *BillingModel) FromDomain(b *billing.Billing) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.LeaseID = b.LeaseID
	m.BillingType = b.Type
	m.Amount = b.Amount
	m.PaidAmount = b.PaidAmount
	m.PenaltyAmount = b.PenaltyAmount
	m.Balance = b.Balance
	m.Status = b.Status
	m.DueDate = Date(b.DueDate)
	m.BillingDate = Date(b.BillingDate)
	m.Notes = b.Notes
	m.SourceBillingID = b.SourceBillingID
	m.DeletedAt = toDeletedAt(b.DeletedAt)
}

// PenaltyConfigModel stores one penalty rule per tenant and billing type
type PenaltyConfigModel struct {
	ID                   uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID             uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_penalty_config_tenant_type,priority:1"`
	BillingType          billing.Type        `gorm:"type:varchar(20);not null;uniqueIndex:idx_penalty_config_tenant_type,priority:2"`
	GracePeriod          int                 `gorm:"not null;default:0"`
	PenaltyPercentage    decimal.Decimal     `gorm:"type:decimal(9,4);not null"`
	CompoundPeriod       int                 `gorm:"not null;default:0"`
	MaxPenaltyPercentage decimal.NullDecimal `gorm:"type:decimal(9,4)"`
	CreatedAt            time.Time           `gorm:"not null"`
	UpdatedAt            time.Time           `gorm:"not null"`
}

func (PenaltyConfigModel) TableName() string {
	return "penalty_configs"
}

func (m *PenaltyConfigModel) ToDomain() *billing.PenaltyConfig {
	cfg := &billing.PenaltyConfig{
		ID:                m.ID,
		TenantID:          m.TenantID,
		BillingType:       m.BillingType,
		GracePeriod:       m.GracePeriod,
		PenaltyPercentage: m.PenaltyPercentage,
		CompoundPeriod:    m.CompoundPeriod,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.MaxPenaltyPercentage.Valid {
		capPct := m.MaxPenaltyPercentage.Decimal
		cfg.MaxPenaltyPercentage = &capPct
	}
	return cfg
}

func (m *PenaltyConfigModel) FromDomain(c *billing.PenaltyConfig) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.BillingType = c.BillingType
	m.GracePeriod = c.GracePeriod
	m.PenaltyPercentage = c.PenaltyPercentage
	m.CompoundPeriod = c.CompoundPeriod
	m.MaxPenaltyPercentage = decimal.NullDecimal{}
	if c.MaxPenaltyPercentage != nil {
		m.MaxPenaltyPercentage = decimal.NewNullDecimal(*c.MaxPenaltyPercentage)
	}
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	TenantAggregateModel
	Amount          decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Method          payment.Method           `gorm:"type:varchar(30);not null"`
	PaidBy          string                   `gorm:"type:varchar(200)"`
	PaidAt          time.Time                `gorm:"not null;index"`
	ReferenceNumber string                   `gorm:"type:varchar(100)"`
	Notes           string                   `gorm:"type:text"`
	ReceiptURL      string                   `gorm:"type:varchar(500)"`
	RevertedAt      *time.Time               `gorm:"index"`
	RevertReason    string                   `gorm:"type:varchar(500)"`
	Allocations     []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

func (PaymentModel) TableName() string {
	return "payments"
}

func (m *PaymentModel) ToDomain() *payment.Payment {
	p := &payment.Payment{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Amount:              m.Amount,
		Method:              m.Method,
		PaidBy:              m.PaidBy,
		PaidAt:              m.PaidAt,
		ReferenceNumber:     m.ReferenceNumber,
		Notes:               m.Notes,
		ReceiptURL:          m.ReceiptURL,
		RevertedAt:          m.RevertedAt,
		RevertReason:        m.RevertReason,
		Allocations:         make([]payment.Allocation, len(m.Allocations)),
	}
	for i, a := range m.Allocations {
		p.Allocations[i] = a.ToDomain()
	}
	return p
}

func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Amount = p.Amount
	m.Method = p.Method
	m.PaidBy = p.PaidBy
	m.PaidAt = p.PaidAt
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
	m.ReceiptURL = p.ReceiptURL
	m.RevertedAt = p.RevertedAt
	m.RevertReason = p.RevertReason
	m.Allocations = make([]PaymentAllocationModel, len(p.Allocations))
	for i, a := range p.Allocations {
		m.Allocations[i].FromDomain(a)
	}
}

// PaymentAllocationModel is the share of a payment applied to one billing
type PaymentAllocationModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillingID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

func (m *PaymentAllocationModel) ToDomain() payment.Allocation {
	return payment.Allocation{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		BillingID: m.BillingID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}
}

func (m *PaymentAllocationModel) FromDomain(a payment.Allocation) {
	m.ID = a.ID
	m.PaymentID = a.PaymentID
	m.BillingID = a.BillingID
	m.Amount = a.Amount
	m.CreatedAt = a.CreatedAt
}

// MeterModel is the persistence model for the Meter aggregate root.
// Exactly one of the location id columns is set, matching LocationType.
type MeterModel struct {
	TenantAggregateModel
	Name           string                `gorm:"type:varchar(200);not null"`
	UtilityType    metering.UtilityType  `gorm:"type:varchar(20);not null"`
	LocationType   metering.LocationType `gorm:"type:varchar(20);not null"`
	PropertyID     *uuid.UUID            `gorm:"type:uuid"`
	FloorID        *uuid.UUID            `gorm:"type:uuid"`
	RentalUnitID   *uuid.UUID            `gorm:"type:uuid;index"`
	InitialReading decimal.Decimal       `gorm:"type:decimal(18,3);not null"`
	UnitRate       decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status         metering.MeterStatus  `gorm:"type:varchar(20);not null"`
}

func (MeterModel) TableName() string {
	return "meters"
}

func (m *MeterModel) ToDomain() *metering.Meter {
	return &metering.Meter{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Name:                m.Name,
		UtilityType:         m.UtilityType,
		Location: metering.Location{
			Type:         m.LocationType,
			PropertyID:   m.PropertyID,
			FloorID:      m.FloorID,
			RentalUnitID: m.RentalUnitID,
		},
		InitialReading: m.InitialReading,
		UnitRate:       m.UnitRate,
		Status:         m.Status,
	}
}

func (m *MeterModel) FromDomain(mt *metering.Meter) {
	m.FromDomainTenantAggregateRoot(mt.TenantAggregateRoot)
	m.Name = mt.Name
	m.UtilityType = mt.UtilityType
	m.LocationType = mt.Location.Type
	m.PropertyID = mt.Location.PropertyID
	m.FloorID = mt.Location.FloorID
	m.RentalUnitID = mt.Location.RentalUnitID
	m.InitialReading = mt.InitialReading
	m.UnitRate = mt.UnitRate
	m.Status = mt.Status
}

// ReadingModel is one meter reading. A meter has at most one reading per day.
type ReadingModel struct {
	ID              uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	MeterID         uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_reading_meter_date,priority:1"`
	Value           decimal.Decimal       `gorm:"column:reading;type:decimal(18,3);not null"`
	ReadingDate     datatypes.Date        `gorm:"not null;uniqueIndex:idx_reading_meter_date,priority:2"`
	PreviousReading decimal.Decimal       `gorm:"type:decimal(18,3);not null"`
	Consumption     decimal.Decimal       `gorm:"type:decimal(18,3);not null"`
	ReviewStatus    metering.ReviewStatus `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time             `gorm:"not null"`
	UpdatedAt       time.Time             `gorm:"not null"`
}

func (ReadingModel) TableName() string {
	return "meter_readings"
}

func (m *ReadingModel) ToDomain() metering.Reading {
	return metering.Reading{
		ID:              m.ID,
		TenantID:        m.TenantID,
		MeterID:         m.MeterID,
		Value:           m.Value,
		ReadingDate:     Day(m.ReadingDate),
		PreviousReading: m.PreviousReading,
		Consumption:     m.Consumption,
		ReviewStatus:    m.ReviewStatus,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (m *ReadingModel) FromDomain(r *metering.Reading) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.MeterID = r.MeterID
	m.Value = r.Value
	m.ReadingDate = Date(r.ReadingDate)
	m.PreviousReading = r.PreviousReading
	m.Consumption = r.Consumption
	m.ReviewStatus = r.ReviewStatus
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// All lists every ledger model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&LeaseModel{},
		&PaymentScheduleModel{},
		&BillingModel{},
		&PenaltyConfigModel{},
		&PaymentModel{},
		&PaymentAllocationModel{},
		&MeterModel{},
		&ReadingModel{},
	}
}
