package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock answer-sheet service for testing
type MockAnswerSheetService struct {
	mock.Mock
}

func (m *MockAnswerSheetService) SubmitBatch(ctx context.Context, input service.AnswerBatchInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockAnswerSheetService) ReplaceBatch(ctx context.Context, input service.AnswerBatchInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockAnswerSheetService) Fetch(ctx context.Context, installationNumber string) (*service.AnswerSheet, error) {
	args := m.Called(ctx, installationNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerSheet), args.Error(1)
}

func (m *MockAnswerSheetService) FetchAll(ctx context.Context) ([]*models.AnswerEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AnswerEntry), args.Error(1)
}

func (m *MockAnswerSheetService) CreateInstallation(ctx context.Context, installationNumber string) error {
	args := m.Called(ctx, installationNumber)
	return args.Error(0)
}

func (m *MockAnswerSheetService) DeleteByInstallation(ctx context.Context, installationNumber string) error {
	args := m.Called(ctx, installationNumber)
	return args.Error(0)
}

func setupAnswerSheetRouter(svc service.AnswerSheetService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAnswerSheetHandler(svc, logrus.New())

	router := gin.New()
	router.POST("/formulario/salvar", handler.SaveSheet)
	router.GET("/formulario/obter/:numeroInstalacao", handler.GetSheet)
	router.GET("/formulario/todos", handler.ListSheets)
	router.POST("/formulario/instalacao", handler.CreateInstallation)
	router.DELETE("/formulario/deletar/:numeroInstalacao", handler.DeleteSheet)
	return router
}

func TestSaveSheetEndpoint(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("ReplaceBatch", mock.Anything, mock.AnythingOfType("service.AnswerBatchInput")).Return(nil)

	router := setupAnswerSheetRouter(mockSvc)

	body := `{
		"numeroInstalacao": "880123",
		"tecnico": "R. Mendes",
		"respostas": {"1": "yes", "2": "no"},
		"comentarios": {"2": "breaker already replaced"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/formulario/salvar", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	input := mockSvc.Calls[0].Arguments.Get(1).(service.AnswerBatchInput)
	require.Equal(t, "880123", input.InstallationNumber)
	require.Equal(t, "R. Mendes", input.TechnicianName)
	require.Equal(t, map[string]string{"1": "yes", "2": "no"}, input.Answers)
	require.Equal(t, map[string]string{"2": "breaker already replaced"}, input.Comments)
}

func TestGetSheetEndpoint(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("Fetch", mock.Anything, "880123").Return(&service.AnswerSheet{
		InstallationNumber: "880123",
		TechnicianName:     "R. Mendes",
		Answers:            map[int]string{1: "yes"},
		Comments:           map[int]string{},
		LastUpdatedAt:      time.Date(2024, 5, 21, 9, 30, 0, 0, time.UTC),
	}, nil)

	router := setupAnswerSheetRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/formulario/obter/880123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		InstallationNumber string            `json:"numeroInstalacao"`
		Technician         string            `json:"tecnico"`
		Answers            map[string]string `json:"respostas"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "880123", resp.InstallationNumber)
	require.Equal(t, "R. Mendes", resp.Technician)
	require.Equal(t, map[string]string{"1": "yes"}, resp.Answers)
}

func TestGetSheetNotFound(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("Fetch", mock.Anything, "999999").Return(nil, service.ErrNotFound)

	router := setupAnswerSheetRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/formulario/obter/999999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSheetsSkipsPlaceholders(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("FetchAll", mock.Anything).Return([]*models.AnswerEntry{
		{InstallationNumber: "880123", QuestionID: models.PlaceholderQuestionID},
		{InstallationNumber: "880123", QuestionID: 1, AnswerText: "yes"},
	}, nil)

	router := setupAnswerSheetRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/formulario/todos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	require.Equal(t, "yes", resp[0]["resposta"])
}

func TestCreateInstallationConflictEndpoint(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("CreateInstallation", mock.Anything, "880123").Return(service.ErrConflict)

	router := setupAnswerSheetRouter(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/formulario/instalacao", bytes.NewBufferString(`{"numeroInstalacao": "880123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteSheetEndpoint(t *testing.T) {
	mockSvc := new(MockAnswerSheetService)
	mockSvc.On("DeleteByInstallation", mock.Anything, "880123").Return(nil)

	router := setupAnswerSheetRouter(mockSvc)

	req := httptest.NewRequest(http.MethodDelete, "/formulario/deletar/880123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}
