package persistence

import (
	"context"

	"github.com/erp/rentledger/internal/domain/metering"
	"github.com/erp/rentledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMeterRepository implements metering.MeterRepository using GORM
type GormMeterRepository struct {
	db *gorm.DB
}

// NewGormMeterRepository creates a new GormMeterRepository
func NewGormMeterRepository(db *gorm.DB) *GormMeterRepository {
	return &GormMeterRepository{db: db}
}

func (r *GormMeterRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*metering.Meter, error) {
	var m models.MeterModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		return nil, findError("find meter", "meter", id, err)
	}
	return m.ToDomain(), nil
}

func (r *GormMeterRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*metering.Meter, error) {
	out := make(map[uuid.UUID]*metering.Meter, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.MeterModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&rows).Error; err != nil {
		return nil, dbError("find meters", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

func (r *GormMeterRepository) Create(ctx context.Context, m *metering.Meter) error {
	var row models.MeterModel
	row.FromDomain(m)
	return dbError("create meter", r.db.WithContext(ctx).Create(&row).Error)
}

// GormReadingRepository implements metering.ReadingRepository using GORM
type GormReadingRepository struct {
	db *gorm.DB
}

// NewGormReadingRepository creates a new GormReadingRepository
func NewGormReadingRepository(db *gorm.DB) *GormReadingRepository {
	return &GormReadingRepository{db: db}
}

func (r *GormReadingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*metering.Reading, error) {
	var m models.ReadingModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		return nil, findError("find reading", "reading", id, err)
	}
	reading := m.ToDomain()
	return &reading, nil
}

// FindByMeters locks the meter rows first. Reading submissions for the same
// meter then serialize on that lock, which keeps consumption chains intact.
func (r *GormReadingRepository) FindByMeters(ctx context.Context, tenantID uuid.UUID, meterIDs []uuid.UUID) (map[uuid.UUID][]metering.Reading, error) {
	out := make(map[uuid.UUID][]metering.Reading, len(meterIDs))
	if len(meterIDs) == 0 {
		return out, nil
	}
	db := r.db.WithContext(ctx)

	var locked []uuid.UUID
	if err := db.Model(&models.MeterModel{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, meterIDs).
		Order("id").
		Pluck("id", &locked).Error; err != nil {
		return nil, dbError("lock meters", err)
	}

	var rows []models.ReadingModel
	if err := db.Where("tenant_id = ? AND meter_id IN ?", tenantID, meterIDs).
		Order("meter_id, reading_date").
		Find(&rows).Error; err != nil {
		return nil, dbError("find readings", err)
	}
	for i := range rows {
		out[rows[i].MeterID] = append(out[rows[i].MeterID], rows[i].ToDomain())
	}
	return out, nil
}

// Create inserts readings. A second reading for a meter on the same day
// violates idx_reading_meter_date and surfaces as a Conflict.
func (r *GormReadingRepository) Create(ctx context.Context, readings ...*metering.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	rows := make([]models.ReadingModel, len(readings))
	for i, reading := range readings {
		rows[i].FromDomain(reading)
	}
	return dbError("create readings", r.db.WithContext(ctx).Create(&rows).Error)
}

func (r *GormReadingRepository) Save(ctx context.Context, reading *metering.Reading) error {
	var m models.ReadingModel
	m.FromDomain(reading)
	return dbError("save reading", r.db.WithContext(ctx).Save(&m).Error)
}

var (
	_ metering.MeterRepository   = (*GormMeterRepository)(nil)
	_ metering.ReadingRepository = (*GormReadingRepository)(nil)
)
