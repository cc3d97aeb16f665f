package routes

import (
	"example.com/fieldops/services/delivery/api/handlers"
	"example.com/fieldops/services/delivery/api/middleware"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes configures all API routes. The record routes resolve the
// Bearer token into a principal when one is sent; anonymous requests are
// allowed and ownership checks happen in the service layer. The answer
// sheet routes are open, field devices submit without credentials.
func SetupRoutes(
	router *gin.Engine,
	repo repository.DeliveryRepository,
	deliveryHandler *handlers.DeliveryHandler,
	answerSheetHandler *handlers.AnswerSheetHandler,
	healthHandler *handlers.HealthHandler,
	log *logrus.Logger,
) {
	router.GET("/health", healthHandler.Check)

	registros := router.Group("/registros")
	registros.Use(middleware.OptionalAPIKeyAuth(repo, log))
	{
		registros.POST("", deliveryHandler.CreateRecord)
		registros.GET("", deliveryHandler.ListRecords)
		registros.GET("/:id", deliveryHandler.GetRecord)
		registros.PUT("/:id", deliveryHandler.UpdateRecord)
		registros.PATCH("/:id", deliveryHandler.PatchRecord)
		registros.DELETE("/:id", deliveryHandler.DeleteRecord)
		registros.POST("/:id/upload_images", deliveryHandler.UploadImages)
		registros.GET("/:id/images", deliveryHandler.GetRecordImages)
	}

	formulario := router.Group("/formulario")
	{
		formulario.POST("/salvar", answerSheetHandler.SaveSheet)
		formulario.GET("/obter/:numeroInstalacao", answerSheetHandler.GetSheet)
		formulario.GET("/todos", answerSheetHandler.ListSheets)
		formulario.POST("/instalacao", answerSheetHandler.CreateInstallation)
		formulario.DELETE("/deletar/:numeroInstalacao", answerSheetHandler.DeleteSheet)
	}
}
