package handlers

import (
	"net/http"
	"strconv"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnswerSheetHandler handles HTTP requests for installation answer sheets
type AnswerSheetHandler struct {
	service service.AnswerSheetService
	log     *logrus.Logger
}

// NewAnswerSheetHandler creates a new answer-sheet handler instance
func NewAnswerSheetHandler(svc service.AnswerSheetService, log *logrus.Logger) *AnswerSheetHandler {
	return &AnswerSheetHandler{service: svc, log: log}
}

// answerBatchPayload is the JSON body of an answer sheet submission
type answerBatchPayload struct {
	InstallationNumber string            `json:"numeroInstalacao"`
	TechnicianName     string            `json:"tecnico"`
	Answers            map[string]string `json:"respostas"`
	Comments           map[string]string `json:"comentarios"`
}

func (p *answerBatchPayload) toInput() service.AnswerBatchInput {
	return service.AnswerBatchInput{
		InstallationNumber: p.InstallationNumber,
		TechnicianName:     p.TechnicianName,
		Answers:            p.Answers,
		Comments:           p.Comments,
	}
}

// answerEntryResponse is the external representation of one stored answer
type answerEntryResponse struct {
	InstallationNumber string  `json:"numeroInstalacao"`
	QuestionID         int     `json:"perguntaId"`
	Answer             string  `json:"resposta"`
	Comment            *string `json:"comentario"`
	Technician         *string `json:"tecnico"`
	LastUpdatedAt      string  `json:"ultimaAtualizacao"`
}

// SaveSheet handles POST /formulario/salvar/. Submitting a sheet replaces
// whatever was stored for the installation before.
func (h *AnswerSheetHandler) SaveSheet(c *gin.Context) {
	var payload answerBatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.service.ReplaceBatch(c.Request.Context(), payload.toInput()); err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"installation": payload.InstallationNumber,
		"answers":      len(payload.Answers),
	}).Info("Answer sheet saved")
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetSheet handles GET /formulario/obter/:numeroInstalacao/
func (h *AnswerSheetHandler) GetSheet(c *gin.Context) {
	sheet, err := h.service.Fetch(c.Request.Context(), c.Param("numeroInstalacao"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	answers := make(map[string]string, len(sheet.Answers))
	for id, answer := range sheet.Answers {
		answers[strconv.Itoa(id)] = answer
	}
	comments := make(map[string]string, len(sheet.Comments))
	for id, comment := range sheet.Comments {
		comments[strconv.Itoa(id)] = comment
	}

	c.JSON(http.StatusOK, gin.H{
		"numeroInstalacao":  sheet.InstallationNumber,
		"tecnico":           sheet.TechnicianName,
		"respostas":         answers,
		"comentarios":       comments,
		"ultimaAtualizacao": sheet.LastUpdatedAt,
	})
}

// ListSheets handles GET /formulario/todos/
func (h *AnswerSheetHandler) ListSheets(c *gin.Context) {
	entries, err := h.service.FetchAll(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	responses := make([]answerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		if entry.QuestionID == models.PlaceholderQuestionID {
			continue
		}
		responses = append(responses, answerEntryResponse{
			InstallationNumber: entry.InstallationNumber,
			QuestionID:         entry.QuestionID,
			Answer:             entry.AnswerText,
			Comment:            entry.CommentText,
			Technician:         entry.TechnicianName,
			LastUpdatedAt:      entry.LastUpdatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, responses)
}

// CreateInstallation handles POST /formulario/instalacao/
func (h *AnswerSheetHandler) CreateInstallation(c *gin.Context) {
	var payload struct {
		InstallationNumber string `json:"numeroInstalacao"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.service.CreateInstallation(c.Request.Context(), payload.InstallationNumber); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// DeleteSheet handles DELETE /formulario/deletar/:numeroInstalacao/
func (h *AnswerSheetHandler) DeleteSheet(c *gin.Context) {
	if err := h.service.DeleteByInstallation(c.Request.Context(), c.Param("numeroInstalacao")); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
