package handlers

import (
	"time"

	"example.com/fieldops/services/delivery/internal/imagecodec"
	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/service"
)

// payloadDateLayout is the calendar-date format used on the wire
const payloadDateLayout = "2006-01-02"

// externalFieldNames maps internal field names to the names the API speaks.
// The external contract predates this service and is kept verbatim so
// existing mobile clients need no changes.
var externalFieldNames = map[string]string{
	"work_order_id":               "obraId",
	"work_number":                 "numeroObra",
	"installation_number":         "numeroInstalacao",
	"delivery_date":               "dataEntrega",
	"delivery_to_supervisor_date": "entregueEncarregado",
	"work_completed_date":         "trabalhoConcluido",
	"signature_image":             "assinatura",
	"primary_image":               "imagem",
	"additional_images":           "imagens",
	"notes":                       "notas",
	"document_type":               "tipoDocumento",
	"technician_name":             "tecnico",
	"answers":                     "respostas",
	"comments":                    "comentarios",
}

// recordPayload is the JSON body of a record create or update request.
// Every field is a pointer so a partial update can distinguish "absent"
// from "set to empty".
type recordPayload struct {
	WorkOrderID              *string  `json:"obraId"`
	WorkNumber               *string  `json:"numeroObra"`
	InstallationNumber       *string  `json:"numeroInstalacao"`
	DeliveryDate             *string  `json:"dataEntrega"`
	DeliveryToSupervisorDate *string  `json:"entregueEncarregado"`
	WorkCompletedDate        *string  `json:"trabalhoConcluido"`
	SignatureImage           *string  `json:"assinatura"`
	PrimaryImage             *string  `json:"imagem"`
	AdditionalImages         []string `json:"imagens"`
	Notes                    *string  `json:"notas"`
	DocumentType             *string  `json:"tipoDocumento"`
}

func (p *recordPayload) toCreateInput() service.CreateRecordInput {
	input := service.CreateRecordInput{
		DeliveryToSupervisorDate: p.DeliveryToSupervisorDate,
		WorkCompletedDate:        p.WorkCompletedDate,
		SignatureImage:           p.SignatureImage,
		PrimaryImage:             p.PrimaryImage,
		AdditionalImages:         p.AdditionalImages,
		Notes:                    p.Notes,
	}
	if p.WorkOrderID != nil {
		input.WorkOrderID = *p.WorkOrderID
	}
	if p.WorkNumber != nil {
		input.WorkNumber = *p.WorkNumber
	}
	if p.InstallationNumber != nil {
		input.InstallationNumber = *p.InstallationNumber
	}
	if p.DeliveryDate != nil {
		input.DeliveryDate = *p.DeliveryDate
	}
	if p.DocumentType != nil {
		input.DocumentType = *p.DocumentType
	}
	return input
}

func (p *recordPayload) toUpdateInput() service.UpdateRecordInput {
	return service.UpdateRecordInput{
		WorkOrderID:              p.WorkOrderID,
		WorkNumber:               p.WorkNumber,
		InstallationNumber:       p.InstallationNumber,
		DeliveryDate:             p.DeliveryDate,
		DeliveryToSupervisorDate: p.DeliveryToSupervisorDate,
		WorkCompletedDate:        p.WorkCompletedDate,
		SignatureImage:           p.SignatureImage,
		PrimaryImage:             p.PrimaryImage,
		AdditionalImages:         p.AdditionalImages,
		Notes:                    p.Notes,
		DocumentType:             p.DocumentType,
	}
}

// recordResponse is the external representation of a delivery record
type recordResponse struct {
	ID                       string    `json:"id"`
	WorkOrderID              string    `json:"obraId"`
	WorkNumber               string    `json:"numeroObra"`
	InstallationNumber       string    `json:"numeroInstalacao"`
	DeliveryDate             string    `json:"dataEntrega"`
	DeliveryToSupervisorDate *string   `json:"entregueEncarregado"`
	WorkCompletedDate        *string   `json:"trabalhoConcluido"`
	SignatureImage           *string   `json:"assinatura"`
	PrimaryImage             *string   `json:"imagem"`
	AdditionalImages         []string  `json:"imagens"`
	Notes                    *string   `json:"notas"`
	DocumentType             string    `json:"tipoDocumento"`
	CreatedBy                *string   `json:"criadoPor"`
	CreatedAt                time.Time `json:"criadoEm"`
	UpdatedAt                time.Time `json:"atualizadoEm"`
}

func toRecordResponse(record *models.DeliveryRecord) recordResponse {
	resp := recordResponse{
		ID:                       record.ID,
		WorkOrderID:              record.WorkOrderID,
		WorkNumber:               record.WorkNumber,
		InstallationNumber:       record.InstallationNumber,
		DeliveryDate:             record.DeliveryDate.Format(payloadDateLayout),
		DeliveryToSupervisorDate: formatOptionalDate(record.DeliveryToSupervisorDate),
		WorkCompletedDate:        formatOptionalDate(record.WorkCompletedDate),
		SignatureImage:           record.SignatureImage,
		PrimaryImage:             record.PrimaryImage,
		AdditionalImages:         imagecodec.DecodeList(record.AdditionalImages),
		Notes:                    record.Notes,
		DocumentType:             string(record.DocumentType),
		CreatedAt:                record.CreatedAt,
		UpdatedAt:                record.UpdatedAt,
	}
	if record.CreatedBy != nil {
		name := record.CreatedBy.Name
		resp.CreatedBy = &name
	}
	return resp
}

func toRecordResponses(records []*models.DeliveryRecord) []recordResponse {
	responses := make([]recordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toRecordResponse(record))
	}
	return responses
}

// recordImagesResponse carries only the image payloads of a record
type recordImagesResponse struct {
	ID               string   `json:"id"`
	PrimaryImage     *string  `json:"imagem"`
	AdditionalImages []string `json:"imagens"`
}

func toRecordImagesResponse(record *models.DeliveryRecord) recordImagesResponse {
	return recordImagesResponse{
		ID:               record.ID,
		PrimaryImage:     record.PrimaryImage,
		AdditionalImages: imagecodec.DecodeList(record.AdditionalImages),
	}
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(payloadDateLayout)
	return &formatted
}
