package models

import (
	"time"
)

// DocumentType is an enum for the document kinds a delivery record can carry
type DocumentType string

const (
	// DocumentTypeDirectWorkInvoice represents direct work billed to an invoice
	DocumentTypeDirectWorkInvoice DocumentType = "direct-work-to-invoice"
	// DocumentTypeDirectWorkContract represents direct work under a contract
	DocumentTypeDirectWorkContract DocumentType = "direct-work-contract"
	// DocumentTypeConstructionWork represents construction work
	DocumentTypeConstructionWork DocumentType = "construction-work"
	// DocumentTypeMaterialRequisition represents a material requisition
	DocumentTypeMaterialRequisition DocumentType = "material-requisition"
	// DocumentTypeWasteRemoval represents a waste removal request
	DocumentTypeWasteRemoval DocumentType = "waste-removal-request"
	// DocumentTypeVacationScheduling represents vacation scheduling paperwork
	DocumentTypeVacationScheduling DocumentType = "vacation-scheduling"
	// DocumentTypeOther represents any other document
	DocumentTypeOther DocumentType = "other"
)

// IsValid reports whether the document type is one of the known values
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeDirectWorkInvoice, DocumentTypeDirectWorkContract,
		DocumentTypeConstructionWork, DocumentTypeMaterialRequisition,
		DocumentTypeWasteRemoval, DocumentTypeVacationScheduling,
		DocumentTypeOther:
		return true
	}
	return false
}

// DeliveryRecord model represents a single delivery record with its attachments.
// Images are stored as self-describing data URIs in text columns; the
// additional images live in a JSON-array-in-text column so the record stays
// atomically consistent with its attachments in a single write.
type DeliveryRecord struct {
	ID                       string       `json:"id" gorm:"primaryKey;Column:id"`
	WorkOrderID              string       `json:"work_order_id" gorm:"Column:work_order_id"`
	WorkNumber               string       `json:"work_number" gorm:"index;Column:work_number"`
	InstallationNumber       string       `json:"installation_number" gorm:"index;Column:installation_number"`
	DeliveryDate             time.Time    `json:"delivery_date" gorm:"type:date;Column:delivery_date"`
	DeliveryToSupervisorDate *time.Time   `json:"delivery_to_supervisor_date" gorm:"type:date;Column:delivery_to_supervisor_date"`
	WorkCompletedDate        *time.Time   `json:"work_completed_date" gorm:"type:date;Column:work_completed_date"`
	SignatureImage           *string      `json:"signature_image" gorm:"type:text;Column:signature_image"`
	PrimaryImage             *string      `json:"primary_image" gorm:"type:text;Column:primary_image"`
	AdditionalImages         string       `json:"additional_images" gorm:"type:text;Column:additional_images"`
	Notes                    *string      `json:"notes" gorm:"type:text;Column:notes"`
	DocumentType             DocumentType `json:"document_type" gorm:"Column:document_type;default:'direct-work-to-invoice'"`
	CreatedBy                *APIKey      `json:"created_by" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	CreatedByID              *uint        `json:"created_by_id" gorm:"Column:created_by_id"`
	CreatedAt                time.Time    `json:"created_at" gorm:"Column:created_at"`
	UpdatedAt                time.Time    `json:"updated_at" gorm:"Column:updated_at"`
}

// TableName overrides the default table name
func (DeliveryRecord) TableName() string {
	return "delivery_records"
}

// AnswerEntry model represents one answer of an installation's answer sheet.
// The (installation_number, question_id) pair is unique; resubmitting an
// answer for the same pair replaces the previous one.
type AnswerEntry struct {
	ID                 uint      `json:"id" gorm:"primarykey"`
	InstallationNumber string    `json:"installation_number" gorm:"uniqueIndex:idx_installation_question;Column:installation_number"`
	QuestionID         int       `json:"question_id" gorm:"uniqueIndex:idx_installation_question;Column:question_id"`
	AnswerText         string    `json:"answer_text" gorm:"type:text;Column:answer_text"`
	CommentText        *string   `json:"comment_text" gorm:"type:text;Column:comment_text"`
	TechnicianName     *string   `json:"technician_name" gorm:"Column:technician_name"`
	RecordedAt         time.Time `json:"recorded_at" gorm:"autoCreateTime;Column:recorded_at"`
	LastUpdatedAt      time.Time `json:"last_updated_at" gorm:"autoUpdateTime;Column:last_updated_at"`
}

// TableName overrides the default table name
func (AnswerEntry) TableName() string {
	return "answer_entries"
}

// PlaceholderQuestionID is the question id of the reservation row written by
// CreateInstallation before any real answers exist.
const PlaceholderQuestionID = 0
