package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/fieldops/services/delivery/internal/database"
	"example.com/fieldops/services/delivery/internal/models"

	"gorm.io/gorm"
)

// DateFilter narrows a date column to an exact day or a calendar range.
// Start and End are inclusive; any of the three may be nil.
type DateFilter struct {
	Exact *time.Time
	Start *time.Time
	End   *time.Time
}

// RecordFilter holds the list query for delivery records
type RecordFilter struct {
	WorkNumber           string
	InstallationNumber   string
	DocumentType         models.DocumentType
	CreatedByID          *uint
	DeliveryDate         DateFilter
	DeliveryToSupervisor DateFilter
	WorkCompleted        DateFilter
	Search               string
	Ordering             string // validated column name, optional "-" prefix
	Page                 int
	PageSize             int
}

// orderableColumns is the whitelist of columns a caller may order by
var orderableColumns = map[string]bool{
	"delivery_date":               true,
	"delivery_to_supervisor_date": true,
	"work_completed_date":         true,
	"created_at":                  true,
	"updated_at":                  true,
}

// OrderableColumn reports whether records can be ordered by the given column
func OrderableColumn(name string) bool {
	return orderableColumns[name]
}

// DeliveryRepository provides data access for delivery records and API keys
type DeliveryRepository interface {
	CreateRecord(ctx context.Context, record *models.DeliveryRecord) error
	UpdateRecord(ctx context.Context, record *models.DeliveryRecord) error
	FindRecordByID(ctx context.Context, id string) (*models.DeliveryRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]*models.DeliveryRecord, int64, error)

	// APIKey operations
	CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id uint) error
}

// deliveryRepo is an implementation of the DeliveryRepository interface
type deliveryRepo struct {
	db database.DB
}

// NewDeliveryRepository creates a new delivery repository instance
func NewDeliveryRepository(db database.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

func (r *deliveryRepo) CreateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Omit("CreatedBy").Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *deliveryRepo) UpdateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Omit("CreatedBy").Save(record).Error
}

func (r *deliveryRepo) FindRecordByID(ctx context.Context, id string) (*models.DeliveryRecord, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var record models.DeliveryRecord
	err = gormDB.WithContext(ctx).
		Preload("CreatedBy").
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *deliveryRepo) DeleteRecord(ctx context.Context, id string) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).Where("id = ?", id).Delete(&models.DeliveryRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *deliveryRepo) ListRecords(ctx context.Context, filter RecordFilter) ([]*models.DeliveryRecord, int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := gormDB.WithContext(ctx).Model(&models.DeliveryRecord{})

	if filter.WorkNumber != "" {
		query = query.Where("work_number = ?", filter.WorkNumber)
	}
	if filter.InstallationNumber != "" {
		query = query.Where("installation_number = ?", filter.InstallationNumber)
	}
	if filter.DocumentType != "" {
		query = query.Where("document_type = ?", filter.DocumentType)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}

	query = applyDateFilter(query, "delivery_date", filter.DeliveryDate)
	query = applyDateFilter(query, "delivery_to_supervisor_date", filter.DeliveryToSupervisor)
	query = applyDateFilter(query, "work_completed_date", filter.WorkCompleted)

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where(
			"work_number ILIKE ? OR installation_number ILIKE ? OR notes ILIKE ?",
			term, term, term,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.Ordering))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var records []*models.DeliveryRecord
	if err := query.Preload("CreatedBy").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// applyDateFilter adds exact and range clauses for a date column
func applyDateFilter(query *gorm.DB, column string, f DateFilter) *gorm.DB {
	if f.Exact != nil {
		query = query.Where(fmt.Sprintf("%s = ?", column), *f.Exact)
	}
	if f.Start != nil {
		query = query.Where(fmt.Sprintf("%s >= ?", column), *f.Start)
	}
	if f.End != nil {
		query = query.Where(fmt.Sprintf("%s <= ?", column), *f.End)
	}
	return query
}

// orderClause maps a validated ordering expression to a SQL order clause.
// Default is newest deliveries first.
func orderClause(ordering string) string {
	if ordering == "" {
		return "delivery_date DESC"
	}
	column := ordering
	desc := false
	if column[0] == '-' {
		column = column[1:]
		desc = true
	}
	if !orderableColumns[column] {
		return "delivery_date DESC"
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// APIKey operations implementation

func (r *deliveryRepo) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *deliveryRepo) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKey models.APIKey
	if err := gormDB.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

func (r *deliveryRepo) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Save(apiKey).Error
}

func (r *deliveryRepo) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKeys []*models.APIKey
	if err := gormDB.WithContext(ctx).Find(&apiKeys).Error; err != nil {
		return nil, err
	}
	return apiKeys, nil
}

func (r *deliveryRepo) DeleteAPIKey(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Delete(&models.APIKey{}, id).Error
}
