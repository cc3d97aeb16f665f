package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/sirupsen/logrus"
)

// AnswerBatchInput holds one submitted answer sheet. Question ids arrive as
// JSON object keys, so they are strings until validated.
type AnswerBatchInput struct {
	InstallationNumber string
	TechnicianName     string
	Answers            map[string]string
	Comments           map[string]string
}

// AnswerSheet is the assembled view of one installation's answers
type AnswerSheet struct {
	InstallationNumber string
	TechnicianName     string
	Answers            map[int]string
	Comments           map[int]string
	LastUpdatedAt      time.Time
}

// AnswerSheetService defines the business logic for installation answer sheets
type AnswerSheetService interface {
	SubmitBatch(ctx context.Context, input AnswerBatchInput) error
	ReplaceBatch(ctx context.Context, input AnswerBatchInput) error
	Fetch(ctx context.Context, installationNumber string) (*AnswerSheet, error)
	FetchAll(ctx context.Context) ([]*models.AnswerEntry, error)
	CreateInstallation(ctx context.Context, installationNumber string) error
	DeleteByInstallation(ctx context.Context, installationNumber string) error
}

// answerSheetService is an implementation of the AnswerSheetService interface
type answerSheetService struct {
	repo repository.AnswerSheetRepository
	log  *logrus.Logger
}

// NewAnswerSheetService creates a new answer-sheet service instance
func NewAnswerSheetService(repo repository.AnswerSheetRepository, log *logrus.Logger) AnswerSheetService {
	if log == nil {
		log = logrus.New()
	}
	return &answerSheetService{repo: repo, log: log}
}

// SubmitBatch upserts each submitted answer keyed by (installation, question)
func (s *answerSheetService) SubmitBatch(ctx context.Context, input AnswerBatchInput) error {
	entries, err := s.buildEntries(input)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

// ReplaceBatch clears the installation's previous sheet and writes the new
// one, so stale answers from a different question set never survive a
// resubmission.
func (s *answerSheetService) ReplaceBatch(ctx context.Context, input AnswerBatchInput) error {
	entries, err := s.buildEntries(input)
	if err != nil {
		return err
	}

	if err := s.repo.ReplaceEntries(ctx, input.InstallationNumber, entries); err != nil {
		return fmt.Errorf("failed to replace answers: %w", err)
	}
	return nil
}

func (s *answerSheetService) Fetch(ctx context.Context, installationNumber string) (*AnswerSheet, error) {
	entries, err := s.repo.FindByInstallation(ctx, installationNumber)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	sheet := &AnswerSheet{
		InstallationNumber: installationNumber,
		Answers:            map[int]string{},
		Comments:           map[int]string{},
	}
	for _, entry := range entries {
		if entry.LastUpdatedAt.After(sheet.LastUpdatedAt) {
			sheet.LastUpdatedAt = entry.LastUpdatedAt
		}
		if entry.TechnicianName != nil && *entry.TechnicianName != "" {
			sheet.TechnicianName = *entry.TechnicianName
		}
		// The reservation row holds no answer
		if entry.QuestionID == models.PlaceholderQuestionID {
			continue
		}
		sheet.Answers[entry.QuestionID] = entry.AnswerText
		if entry.CommentText != nil {
			sheet.Comments[entry.QuestionID] = *entry.CommentText
		}
	}
	return sheet, nil
}

func (s *answerSheetService) FetchAll(ctx context.Context) ([]*models.AnswerEntry, error) {
	entries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// CreateInstallation reserves an installation number by writing the
// placeholder entry. Reserving an installation that already has entries is a
// conflict.
func (s *answerSheetService) CreateInstallation(ctx context.Context, installationNumber string) error {
	if installationNumber == "" {
		return NewValidationError("installation_number", "this field is required")
	}

	exists, err := s.repo.ExistsForInstallation(ctx, installationNumber)
	if err != nil {
		return fmt.Errorf("failed to check installation: %w", err)
	}
	if exists {
		return ErrConflict
	}

	entry := &models.AnswerEntry{
		InstallationNumber: installationNumber,
		QuestionID:         models.PlaceholderQuestionID,
		AnswerText:         "",
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		if err == repository.ErrDuplicateKey {
			// Lost a race against a concurrent reservation
			return ErrConflict
		}
		return fmt.Errorf("failed to reserve installation: %w", err)
	}
	return nil
}

func (s *answerSheetService) DeleteByInstallation(ctx context.Context, installationNumber string) error {
	deleted, err := s.repo.DeleteByInstallation(ctx, installationNumber)
	if err != nil {
		return fmt.Errorf("failed to delete answers: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	s.log.WithFields(logrus.Fields{
		"installation": installationNumber,
		"deleted":      deleted,
	}).Info("Deleted installation answer sheet")
	return nil
}

// buildEntries validates a batch and converts it into answer entries
func (s *answerSheetService) buildEntries(input AnswerBatchInput) ([]*models.AnswerEntry, error) {
	fields := map[string]string{}

	if input.InstallationNumber == "" {
		fields["installation_number"] = "this field is required"
	}
	if input.TechnicianName == "" {
		fields["technician_name"] = "this field is required"
	}
	if len(input.Answers) == 0 {
		fields["answers"] = "at least one answer is required"
	}

	entries := make([]*models.AnswerEntry, 0, len(input.Answers))
	for rawID, answer := range input.Answers {
		questionID, err := strconv.Atoi(rawID)
		if err != nil || questionID <= models.PlaceholderQuestionID {
			fields["answers"] = fmt.Sprintf("%q is not a valid question id", rawID)
			continue
		}

		technician := input.TechnicianName
		entry := &models.AnswerEntry{
			InstallationNumber: input.InstallationNumber,
			QuestionID:         questionID,
			AnswerText:         answer,
			TechnicianName:     &technician,
		}
		if comment, ok := input.Comments[rawID]; ok {
			entry.CommentText = &comment
		}
		entries = append(entries, entry)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return entries, nil
}
