package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"example.com/fieldops/services/delivery/api/middleware"
	"example.com/fieldops/services/delivery/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeliveryHandler handles HTTP requests for delivery records
type DeliveryHandler struct {
	service service.DeliveryService
	log     *logrus.Logger
}

// NewDeliveryHandler creates a new delivery handler instance
func NewDeliveryHandler(svc service.DeliveryService, log *logrus.Logger) *DeliveryHandler {
	return &DeliveryHandler{service: svc, log: log}
}

// CreateRecord handles POST /registros/
func (h *DeliveryHandler) CreateRecord(c *gin.Context) {
	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	principal := middleware.PrincipalFromContext(c)
	record, err := h.service.CreateRecord(c.Request.Context(), payload.toCreateInput(), principal)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"record_id":   record.ID,
		"work_number": record.WorkNumber,
	}).Info("Delivery record created")
	c.JSON(http.StatusCreated, toRecordResponse(record))
}

// ListRecords handles GET /registros/
func (h *DeliveryHandler) ListRecords(c *gin.Context) {
	filter := parseRecordFilter(c, h.log)

	records, total, err := h.service.ListRecords(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    total,
		"next":     pageLink(c, filter.Page, filter.PageSize, total, 1),
		"previous": pageLink(c, filter.Page, filter.PageSize, total, -1),
		"results":  toRecordResponses(records),
	})
}

// GetRecord handles GET /registros/:id/
func (h *DeliveryHandler) GetRecord(c *gin.Context) {
	record, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(record))
}

// UpdateRecord handles PUT /registros/:id/
func (h *DeliveryHandler) UpdateRecord(c *gin.Context) {
	h.update(c, false)
}

// PatchRecord handles PATCH /registros/:id/
func (h *DeliveryHandler) PatchRecord(c *gin.Context) {
	h.update(c, true)
}

func (h *DeliveryHandler) update(c *gin.Context, partial bool) {
	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	principal := middleware.PrincipalFromContext(c)
	record, err := h.service.UpdateRecord(c.Request.Context(), c.Param("id"), payload.toUpdateInput(), partial, principal)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(record))
}

// DeleteRecord handles DELETE /registros/:id/
func (h *DeliveryHandler) DeleteRecord(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if err := h.service.DeleteRecord(c.Request.Context(), c.Param("id"), principal); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImages handles POST /registros/:id/upload_images/. Images arrive as
// multipart files named imagem_0, imagem_1, ... and are appended to the
// record's additional images.
func (h *DeliveryHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data"})
		return
	}

	var images []service.UploadedImage
	for i := 0; ; i++ {
		files, ok := form.File[fmt.Sprintf("imagem_%d", i)]
		if !ok || len(files) == 0 {
			break
		}
		file := files[0]

		reader, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read imagem_%d", i)})
			return
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read imagem_%d", i)})
			return
		}

		images = append(images, service.UploadedImage{
			Data:     data,
			MimeType: file.Header.Get("Content-Type"),
		})
	}

	if len(images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image fields found, expected imagem_0, imagem_1, ..."})
		return
	}

	record, err := h.service.AppendImages(c.Request.Context(), c.Param("id"), images)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	response := toRecordImagesResponse(record)
	h.log.WithFields(logrus.Fields{
		"record_id": record.ID,
		"received":  len(images),
		"total":     len(response.AdditionalImages),
	}).Info("Images appended to record")
	c.JSON(http.StatusOK, gin.H{
		"id":               response.ID,
		"imagem":           response.PrimaryImage,
		"imagens":          response.AdditionalImages,
		"imagensRecebidas": len(images),
		"imagensTotal":     len(response.AdditionalImages),
	})
}

// GetRecordImages handles GET /registros/:id/images/
func (h *DeliveryHandler) GetRecordImages(c *gin.Context) {
	record, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRecordImagesResponse(record))
}

// pageLink builds the next (direction 1) or previous (direction -1) page
// URL for the pagination envelope, or nil when there is no such page.
func pageLink(c *gin.Context, page, pageSize int, total int64, direction int) *string {
	target := page + direction
	if target < 1 {
		return nil
	}
	if direction > 0 && int64(page*pageSize) >= total {
		return nil
	}

	link := *c.Request.URL
	query, _ := url.ParseQuery(link.RawQuery)
	query.Set("page", strconv.Itoa(target))
	link.RawQuery = query.Encode()
	result := link.String()
	return &result
}
