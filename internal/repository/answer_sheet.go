package repository

import (
	"context"
	"errors"

	"example.com/fieldops/services/delivery/internal/database"
	"example.com/fieldops/services/delivery/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerSheetRepository provides data access for answer-sheet entries
type AnswerSheetRepository interface {
	UpsertEntries(ctx context.Context, entries []*models.AnswerEntry) error
	ReplaceEntries(ctx context.Context, installationNumber string, entries []*models.AnswerEntry) error
	CreateEntry(ctx context.Context, entry *models.AnswerEntry) error
	FindByInstallation(ctx context.Context, installationNumber string) ([]*models.AnswerEntry, error)
	FindAll(ctx context.Context) ([]*models.AnswerEntry, error)
	ExistsForInstallation(ctx context.Context, installationNumber string) (bool, error)
	DeleteByInstallation(ctx context.Context, installationNumber string) (int64, error)
}

// answerSheetRepo is an implementation of the AnswerSheetRepository interface
type answerSheetRepo struct {
	db database.DB
}

// NewAnswerSheetRepository creates a new answer-sheet repository instance
func NewAnswerSheetRepository(db database.DB) AnswerSheetRepository {
	return &answerSheetRepo{db: db}
}

// upsertConflict describes the replace-on-save semantics of the composite
// (installation_number, question_id) key.
var upsertConflict = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "installation_number"},
		{Name: "question_id"},
	},
	DoUpdates: clause.AssignmentColumns([]string{
		"answer_text",
		"comment_text",
		"technician_name",
		"last_updated_at",
	}),
}

func (r *answerSheetRepo) UpsertEntries(ctx context.Context, entries []*models.AnswerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Clauses(upsertConflict).Create(entries).Error
}

// ReplaceEntries deletes every entry for the installation and writes the new
// batch inside one transaction, so readers never observe a half-replaced sheet.
func (r *answerSheetRepo) ReplaceEntries(ctx context.Context, installationNumber string, entries []*models.AnswerEntry) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("installation_number = ?", installationNumber).
			Delete(&models.AnswerEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Clauses(upsertConflict).Create(entries).Error
	})
}

func (r *answerSheetRepo) CreateEntry(ctx context.Context, entry *models.AnswerEntry) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *answerSheetRepo) FindByInstallation(ctx context.Context, installationNumber string) ([]*models.AnswerEntry, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var entries []*models.AnswerEntry
	err = gormDB.WithContext(ctx).
		Where("installation_number = ?", installationNumber).
		Order("question_id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *answerSheetRepo) FindAll(ctx context.Context) ([]*models.AnswerEntry, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var entries []*models.AnswerEntry
	err = gormDB.WithContext(ctx).
		Order("installation_number, question_id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *answerSheetRepo) ExistsForInstallation(ctx context.Context, installationNumber string) (bool, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return false, err
	}

	var count int64
	err = gormDB.WithContext(ctx).
		Model(&models.AnswerEntry{}).
		Where("installation_number = ?", installationNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *answerSheetRepo) DeleteByInstallation(ctx context.Context, installationNumber string) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := gormDB.WithContext(ctx).
		Where("installation_number = ?", installationNumber).
		Delete(&models.AnswerEntry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
