package service

import (
	"context"
	"testing"
	"time"

	"example.com/fieldops/services/delivery/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock answer-sheet repository for testing
type MockAnswerSheetRepository struct {
	mock.Mock
}

func (m *MockAnswerSheetRepository) UpsertEntries(ctx context.Context, entries []*models.AnswerEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockAnswerSheetRepository) ReplaceEntries(ctx context.Context, installationNumber string, entries []*models.AnswerEntry) error {
	args := m.Called(ctx, installationNumber, entries)
	return args.Error(0)
}

func (m *MockAnswerSheetRepository) CreateEntry(ctx context.Context, entry *models.AnswerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAnswerSheetRepository) FindByInstallation(ctx context.Context, installationNumber string) ([]*models.AnswerEntry, error) {
	args := m.Called(ctx, installationNumber)
	return args.Get(0).([]*models.AnswerEntry), args.Error(1)
}

func (m *MockAnswerSheetRepository) FindAll(ctx context.Context) ([]*models.AnswerEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.AnswerEntry), args.Error(1)
}

func (m *MockAnswerSheetRepository) ExistsForInstallation(ctx context.Context, installationNumber string) (bool, error) {
	args := m.Called(ctx, installationNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnswerSheetRepository) DeleteByInstallation(ctx context.Context, installationNumber string) (int64, error) {
	args := m.Called(ctx, installationNumber)
	return args.Get(0).(int64), args.Error(1)
}

func TestReplaceBatch(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("ReplaceEntries", mock.Anything, "880123", mock.AnythingOfType("[]*models.AnswerEntry")).Return(nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.ReplaceBatch(context.Background(), AnswerBatchInput{
		InstallationNumber: "880123",
		TechnicianName:     "R. Mendes",
		Answers:            map[string]string{"1": "yes", "2": "no"},
		Comments:           map[string]string{"2": "breaker already replaced"},
	})
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	entries := mockRepo.Calls[0].Arguments.Get(2).([]*models.AnswerEntry)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.Equal(t, "880123", entry.InstallationNumber)
		require.NotNil(t, entry.TechnicianName)
		require.Equal(t, "R. Mendes", *entry.TechnicianName)
		if entry.QuestionID == 2 {
			require.NotNil(t, entry.CommentText)
			require.Equal(t, "breaker already replaced", *entry.CommentText)
		}
	}
}

func TestSubmitBatchValidation(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.SubmitBatch(context.Background(), AnswerBatchInput{})
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "installation_number")
	require.Contains(t, ve.Fields, "technician_name")
	require.Contains(t, ve.Fields, "answers")

	mockRepo.AssertNotCalled(t, "UpsertEntries", mock.Anything, mock.Anything)
}

func TestSubmitBatchRejectsBadQuestionID(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.SubmitBatch(context.Background(), AnswerBatchInput{
		InstallationNumber: "880123",
		TechnicianName:     "R. Mendes",
		Answers:            map[string]string{"not-a-number": "yes"},
	})
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "answers")
}

func TestFetchAssemblesSheet(t *testing.T) {
	older := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 21, 9, 30, 0, 0, time.UTC)
	technician := "R. Mendes"
	comment := "left with neighbor"

	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("FindByInstallation", mock.Anything, "880123").Return([]*models.AnswerEntry{
		{InstallationNumber: "880123", QuestionID: models.PlaceholderQuestionID, LastUpdatedAt: older},
		{InstallationNumber: "880123", QuestionID: 1, AnswerText: "yes", TechnicianName: &technician, LastUpdatedAt: older},
		{InstallationNumber: "880123", QuestionID: 2, AnswerText: "no", CommentText: &comment, TechnicianName: &technician, LastUpdatedAt: newer},
	}, nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	sheet, err := svc.Fetch(context.Background(), "880123")
	require.NoError(t, err)
	require.Equal(t, "R. Mendes", sheet.TechnicianName)
	require.Equal(t, newer, sheet.LastUpdatedAt)

	// The reservation row never surfaces as an answer
	require.Equal(t, map[int]string{1: "yes", 2: "no"}, sheet.Answers)
	require.Equal(t, map[int]string{2: "left with neighbor"}, sheet.Comments)
}

func TestFetchNotFound(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("FindByInstallation", mock.Anything, "999999").Return([]*models.AnswerEntry{}, nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	_, err := svc.Fetch(context.Background(), "999999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInstallationConflict(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("ExistsForInstallation", mock.Anything, "880123").Return(true, nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.CreateInstallation(context.Background(), "880123")
	require.ErrorIs(t, err, ErrConflict)
	mockRepo.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
}

func TestCreateInstallationReservesPlaceholder(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("ExistsForInstallation", mock.Anything, "880124").Return(false, nil)
	mockRepo.On("CreateEntry", mock.Anything, mock.AnythingOfType("*models.AnswerEntry")).Return(nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.CreateInstallation(context.Background(), "880124")
	require.NoError(t, err)

	entry := mockRepo.Calls[1].Arguments.Get(1).(*models.AnswerEntry)
	require.Equal(t, "880124", entry.InstallationNumber)
	require.Equal(t, models.PlaceholderQuestionID, entry.QuestionID)
}

func TestDeleteByInstallationNotFound(t *testing.T) {
	mockRepo := new(MockAnswerSheetRepository)
	mockRepo.On("DeleteByInstallation", mock.Anything, "999999").Return(int64(0), nil)

	svc := NewAnswerSheetService(mockRepo, logrus.New())

	err := svc.DeleteByInstallation(context.Background(), "999999")
	require.ErrorIs(t, err, ErrNotFound)
}
