package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock repository for auth middleware testing
type MockAuthRepository struct {
	mock.Mock
}

func (m *MockAuthRepository) CreateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuthRepository) UpdateRecord(ctx context.Context, record *models.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuthRepository) FindRecordByID(ctx context.Context, id string) (*models.DeliveryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryRecord), args.Error(1)
}

func (m *MockAuthRepository) DeleteRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuthRepository) ListRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DeliveryRecord, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.DeliveryRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuthRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockAuthRepository) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockAuthRepository) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockAuthRepository) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.APIKey), args.Error(1)
}

func (m *MockAuthRepository) DeleteAPIKey(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupAuthRouter(repo repository.DeliveryRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OptionalAPIKeyAuth(repo, logrus.New()))
	router.GET("/probe", func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			c.JSON(http.StatusOK, gin.H{"principal": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"principal": principal.Name})
	})
	return router
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	mockRepo := new(MockAuthRepository)
	router := setupAuthRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertNotCalled(t, "GetAPIKeyByKey", mock.Anything, mock.Anything)
}

func TestOptionalAuthRejectsUnknownKey(t *testing.T) {
	mockRepo := new(MockAuthRepository)
	mockRepo.On("GetAPIKeyByKey", mock.Anything, "bogus").Return(nil, repository.ErrNotFound)

	router := setupAuthRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthRejectsMalformedHeader(t *testing.T) {
	mockRepo := new(MockAuthRepository)
	router := setupAuthRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthResolvesPrincipal(t *testing.T) {
	mockRepo := new(MockAuthRepository)
	mockRepo.On("GetAPIKeyByKey", mock.Anything, "valid-key").Return(&models.APIKey{
		ID:                 7,
		Key:                "valid-key",
		Name:               "field-app",
		AuthorizationLevel: models.WriterAuthLevel,
	}, nil)
	mockRepo.On("UpdateAPIKey", mock.Anything, mock.AnythingOfType("*models.APIKey")).Return(nil).Maybe()

	router := setupAuthRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer valid-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "field-app")
}

func TestOptionalAuthRejectsExpiredKey(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	mockRepo := new(MockAuthRepository)
	mockRepo.On("GetAPIKeyByKey", mock.Anything, "stale-key").Return(&models.APIKey{
		ID:                 8,
		Key:                "stale-key",
		Name:               "old-app",
		AuthorizationLevel: models.WriterAuthLevel,
		ExpiresAt:          &expired,
	}, nil)

	router := setupAuthRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer stale-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
