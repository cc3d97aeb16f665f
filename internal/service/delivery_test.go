package service

import (
	"context"
	"testing"

	"example.com/fieldops/services/delivery/internal/imagecodec"
	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock repository for testing
type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) CreateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDeliveryRepository) UpdateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDeliveryRepository) FindRecordByID(ctx context.Context, id string) (*models.DeliveryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryRecord), args.Error(1)
}

func (m *MockDeliveryRepository) DeleteRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDeliveryRepository) ListRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DeliveryRecord, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.DeliveryRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockDeliveryRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockDeliveryRepository) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockDeliveryRepository) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockDeliveryRepository) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.APIKey), args.Error(1)
}

func (m *MockDeliveryRepository) DeleteAPIKey(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestDeliveryService(t *testing.T, repo repository.DeliveryRepository) DeliveryService {
	t.Helper()
	svc, err := NewDeliveryService(DeliveryServiceConfig{
		Repository: repo,
		Logger:     logrus.New(),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateRecord(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("CreateRecord", mock.Anything, mock.AnythingOfType("*models.DeliveryRecord")).Return(nil)

	svc := newTestDeliveryService(t, mockRepo)

	principal := &models.APIKey{ID: 42, AuthorizationLevel: models.WriterAuthLevel}
	record, err := svc.CreateRecord(context.Background(), CreateRecordInput{
		WorkOrderID:        "OBR-2024-001",
		WorkNumber:         "4471",
		InstallationNumber: "880123",
		DeliveryDate:       "2024-05-20",
	}, principal)

	require.NoError(t, err)
	require.NotNil(t, record)

	// The service assigns the identity
	_, err = uuid.Parse(record.ID)
	require.NoError(t, err)

	require.Equal(t, "OBR-2024-001", record.WorkOrderID)
	require.Equal(t, models.DocumentTypeDirectWorkInvoice, record.DocumentType)
	require.Equal(t, []string{}, imagecodec.DecodeList(record.AdditionalImages))
	require.NotNil(t, record.CreatedByID)
	require.Equal(t, uint(42), *record.CreatedByID)

	mockRepo.AssertExpectations(t)
}

func TestCreateRecordValidation(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	svc := newTestDeliveryService(t, mockRepo)

	_, err := svc.CreateRecord(context.Background(), CreateRecordInput{
		DeliveryDate: "20-05-2024",
		DocumentType: "unknown-type",
	}, nil)

	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "work_order_id")
	require.Contains(t, ve.Fields, "work_number")
	require.Contains(t, ve.Fields, "installation_number")
	require.Contains(t, ve.Fields, "delivery_date")
	require.Contains(t, ve.Fields, "document_type")

	// Nothing reaches the repository on invalid input
	mockRepo.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestUpdateRecordForbidden(t *testing.T) {
	ownerID := uint(1)
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("FindRecordByID", mock.Anything, "rec-1").Return(&models.DeliveryRecord{
		ID:          "rec-1",
		CreatedByID: &ownerID,
	}, nil)

	svc := newTestDeliveryService(t, mockRepo)

	notes := "tentative notes"
	intruder := &models.APIKey{ID: 2, AuthorizationLevel: models.WriterAuthLevel}
	_, err := svc.UpdateRecord(context.Background(), "rec-1", UpdateRecordInput{Notes: &notes}, true, intruder)

	require.ErrorIs(t, err, ErrForbidden)
	mockRepo.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything)
}

func TestUpdateRecordPartial(t *testing.T) {
	ownerID := uint(1)
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("FindRecordByID", mock.Anything, "rec-1").Return(&models.DeliveryRecord{
		ID:                 "rec-1",
		WorkOrderID:        "OBR-2024-001",
		WorkNumber:         "4471",
		InstallationNumber: "880123",
		CreatedByID:        &ownerID,
	}, nil)
	mockRepo.On("UpdateRecord", mock.Anything, mock.AnythingOfType("*models.DeliveryRecord")).Return(nil)

	svc := newTestDeliveryService(t, mockRepo)

	notes := "door code changed"
	owner := &models.APIKey{ID: ownerID, AuthorizationLevel: models.WriterAuthLevel}
	record, err := svc.UpdateRecord(context.Background(), "rec-1", UpdateRecordInput{Notes: &notes}, true, owner)

	require.NoError(t, err)
	require.Equal(t, "door code changed", *record.Notes)
	// Untouched fields keep their stored values
	require.Equal(t, "OBR-2024-001", record.WorkOrderID)
	require.Equal(t, "4471", record.WorkNumber)

	mockRepo.AssertExpectations(t)
}

func TestUpdateRecordFullRequiresFields(t *testing.T) {
	ownerID := uint(1)
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("FindRecordByID", mock.Anything, "rec-1").Return(&models.DeliveryRecord{
		ID:          "rec-1",
		CreatedByID: &ownerID,
	}, nil)

	svc := newTestDeliveryService(t, mockRepo)

	owner := &models.APIKey{ID: ownerID, AuthorizationLevel: models.WriterAuthLevel}
	_, err := svc.UpdateRecord(context.Background(), "rec-1", UpdateRecordInput{}, false, owner)

	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "work_order_id")
	require.Contains(t, ve.Fields, "delivery_date")
	mockRepo.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything)
}

func TestDeleteRecordNotFound(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("FindRecordByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	svc := newTestDeliveryService(t, mockRepo)

	err := svc.DeleteRecord(context.Background(), "missing", &models.APIKey{ID: 1, AuthorizationLevel: models.SudoAuthLevel})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendImagesKeepsOrder(t *testing.T) {
	existing := imagecodec.EncodeList([]string{"data:image/png;base64,Zmlyc3Q="})

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("FindRecordByID", mock.Anything, "rec-1").Return(&models.DeliveryRecord{
		ID:               "rec-1",
		AdditionalImages: existing,
	}, nil)
	mockRepo.On("UpdateRecord", mock.Anything, mock.AnythingOfType("*models.DeliveryRecord")).Return(nil)

	svc := newTestDeliveryService(t, mockRepo)

	record, err := svc.AppendImages(context.Background(), "rec-1", []UploadedImage{
		{Data: []byte("second"), MimeType: "image/jpeg"},
		{Data: []byte("third"), MimeType: "image/jpeg"},
	})

	require.NoError(t, err)
	images := imagecodec.DecodeList(record.AdditionalImages)
	require.Len(t, images, 3)
	require.Equal(t, "data:image/png;base64,Zmlyc3Q=", images[0])
	require.Equal(t, "data:image/jpeg;base64,c2Vjb25k", images[1])
	require.Equal(t, "data:image/jpeg;base64,dGhpcmQ=", images[2])

	mockRepo.AssertExpectations(t)
}
