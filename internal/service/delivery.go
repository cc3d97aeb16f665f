package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/fieldops/services/delivery/internal/cache"
	"example.com/fieldops/services/delivery/internal/imagecodec"
	"example.com/fieldops/services/delivery/internal/messaging"
	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"
	"example.com/fieldops/services/delivery/internal/search"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// dateLayout is the calendar-date wire format for all record date fields
const dateLayout = "2006-01-02"

// recordCacheTTL bounds how long a record summary stays cached
const recordCacheTTL = 24 * time.Hour

// CreateRecordInput holds the raw fields of a record creation request.
// Dates arrive as strings so the service owns parse errors.
type CreateRecordInput struct {
	WorkOrderID              string
	WorkNumber               string
	InstallationNumber       string
	DeliveryDate             string
	DeliveryToSupervisorDate *string
	WorkCompletedDate        *string
	SignatureImage           *string
	PrimaryImage             *string
	AdditionalImages         []string
	Notes                    *string
	DocumentType             string
}

// UpdateRecordInput holds the fields of an update request. Nil means
// "not provided"; on a partial update the stored value is kept.
type UpdateRecordInput struct {
	WorkOrderID              *string
	WorkNumber               *string
	InstallationNumber       *string
	DeliveryDate             *string
	DeliveryToSupervisorDate *string
	WorkCompletedDate        *string
	SignatureImage           *string
	PrimaryImage             *string
	AdditionalImages         []string
	Notes                    *string
	DocumentType             *string
}

// UploadedImage is one binary image received in a multipart upload
type UploadedImage struct {
	Data     []byte
	MimeType string
}

// DeliveryService defines the business logic for delivery records
type DeliveryService interface {
	CreateRecord(ctx context.Context, input CreateRecordInput, principal *models.APIKey) (*models.DeliveryRecord, error)
	GetRecord(ctx context.Context, id string) (*models.DeliveryRecord, error)
	ListRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DeliveryRecord, int64, error)
	UpdateRecord(ctx context.Context, id string, input UpdateRecordInput, partial bool, principal *models.APIKey) (*models.DeliveryRecord, error)
	DeleteRecord(ctx context.Context, id string, principal *models.APIKey) error
	AppendImages(ctx context.Context, id string, images []UploadedImage) (*models.DeliveryRecord, error)
}

// deliveryService is an implementation of the DeliveryService interface
type deliveryService struct {
	repo    repository.DeliveryRepository
	cache   cache.RedisClient
	bus     messaging.ServiceBusClient
	indexer search.RecordIndexer
	log     *logrus.Logger
}

// DeliveryServiceConfig holds the dependencies of the delivery service
type DeliveryServiceConfig struct {
	Repository repository.DeliveryRepository
	Cache      cache.RedisClient
	Messaging  messaging.ServiceBusClient
	Indexer    search.RecordIndexer
	Logger     *logrus.Logger
}

// NewDeliveryService creates a new delivery service instance
func NewDeliveryService(cfg DeliveryServiceConfig) (DeliveryService, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &deliveryService{
		repo:    cfg.Repository,
		cache:   cfg.Cache,
		bus:     cfg.Messaging,
		indexer: cfg.Indexer,
		log:     cfg.Logger,
	}, nil
}

func (s *deliveryService) CreateRecord(ctx context.Context, input CreateRecordInput, principal *models.APIKey) (*models.DeliveryRecord, error) {
	fields := map[string]string{}

	if input.WorkOrderID == "" {
		fields["work_order_id"] = "this field is required"
	}
	if input.WorkNumber == "" {
		fields["work_number"] = "this field is required"
	}
	if input.InstallationNumber == "" {
		fields["installation_number"] = "this field is required"
	}

	deliveryDate, err := parseRequiredDate(input.DeliveryDate)
	if err != nil {
		fields["delivery_date"] = err.Error()
	}
	supervisorDate, err := parseOptionalDate(input.DeliveryToSupervisorDate)
	if err != nil {
		fields["delivery_to_supervisor_date"] = err.Error()
	}
	completedDate, err := parseOptionalDate(input.WorkCompletedDate)
	if err != nil {
		fields["work_completed_date"] = err.Error()
	}

	documentType := models.DocumentTypeDirectWorkInvoice
	if input.DocumentType != "" {
		documentType = models.DocumentType(input.DocumentType)
		if !documentType.IsValid() {
			fields["document_type"] = fmt.Sprintf("%q is not a valid document type", input.DocumentType)
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	additional := input.AdditionalImages
	if additional == nil {
		additional = []string{}
	}

	record := &models.DeliveryRecord{
		ID:                       uuid.New().String(),
		WorkOrderID:              input.WorkOrderID,
		WorkNumber:               input.WorkNumber,
		InstallationNumber:       input.InstallationNumber,
		DeliveryDate:             deliveryDate,
		DeliveryToSupervisorDate: supervisorDate,
		WorkCompletedDate:        completedDate,
		SignatureImage:           input.SignatureImage,
		PrimaryImage:             input.PrimaryImage,
		AdditionalImages:         imagecodec.EncodeList(additional),
		Notes:                    input.Notes,
		DocumentType:             documentType,
	}
	if principal != nil {
		record.CreatedByID = &principal.ID
		record.CreatedBy = principal
	}

	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.afterWrite(ctx, record, messaging.EventRecordCreated)
	return record, nil
}

func (s *deliveryService) GetRecord(ctx context.Context, id string) (*models.DeliveryRecord, error) {
	// Try the cache first
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, recordCacheKey(id))
		if err == nil {
			var record models.DeliveryRecord
			if err := json.Unmarshal([]byte(cached), &record); err == nil {
				return &record, nil
			}
		} else if !cache.IsMiss(err) {
			s.log.WithError(err).Warn("Failed to read record from cache")
		}
	}

	record, err := s.repo.FindRecordByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cacheRecord(ctx, record)
	return record, nil
}

func (s *deliveryService) ListRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DeliveryRecord, int64, error) {
	return s.repo.ListRecords(ctx, filter)
}

func (s *deliveryService) UpdateRecord(ctx context.Context, id string, input UpdateRecordInput, partial bool, principal *models.APIKey) (*models.DeliveryRecord, error) {
	record, err := s.repo.FindRecordByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !CanModify(principal, record) {
		return nil, ErrForbidden
	}

	fields := map[string]string{}

	if !partial {
		// A full update must restate the required fields
		if input.WorkOrderID == nil || *input.WorkOrderID == "" {
			fields["work_order_id"] = "this field is required"
		}
		if input.WorkNumber == nil || *input.WorkNumber == "" {
			fields["work_number"] = "this field is required"
		}
		if input.InstallationNumber == nil || *input.InstallationNumber == "" {
			fields["installation_number"] = "this field is required"
		}
		if input.DeliveryDate == nil || *input.DeliveryDate == "" {
			fields["delivery_date"] = "this field is required"
		}
	}

	if input.WorkOrderID != nil {
		if *input.WorkOrderID == "" {
			fields["work_order_id"] = "this field may not be blank"
		} else {
			record.WorkOrderID = *input.WorkOrderID
		}
	}
	if input.WorkNumber != nil {
		if *input.WorkNumber == "" {
			fields["work_number"] = "this field may not be blank"
		} else {
			record.WorkNumber = *input.WorkNumber
		}
	}
	if input.InstallationNumber != nil {
		if *input.InstallationNumber == "" {
			fields["installation_number"] = "this field may not be blank"
		} else {
			record.InstallationNumber = *input.InstallationNumber
		}
	}
	if input.DeliveryDate != nil && *input.DeliveryDate != "" {
		parsed, err := parseRequiredDate(*input.DeliveryDate)
		if err != nil {
			fields["delivery_date"] = err.Error()
		} else {
			record.DeliveryDate = parsed
		}
	}
	if input.DeliveryToSupervisorDate != nil {
		parsed, err := parseOptionalDate(input.DeliveryToSupervisorDate)
		if err != nil {
			fields["delivery_to_supervisor_date"] = err.Error()
		} else {
			record.DeliveryToSupervisorDate = parsed
		}
	}
	if input.WorkCompletedDate != nil {
		parsed, err := parseOptionalDate(input.WorkCompletedDate)
		if err != nil {
			fields["work_completed_date"] = err.Error()
		} else {
			record.WorkCompletedDate = parsed
		}
	}
	if input.DocumentType != nil {
		documentType := models.DocumentType(*input.DocumentType)
		if !documentType.IsValid() {
			fields["document_type"] = fmt.Sprintf("%q is not a valid document type", *input.DocumentType)
		} else {
			record.DocumentType = documentType
		}
	}
	if input.SignatureImage != nil {
		record.SignatureImage = input.SignatureImage
	}
	if input.PrimaryImage != nil {
		record.PrimaryImage = input.PrimaryImage
	}
	if input.AdditionalImages != nil {
		record.AdditionalImages = imagecodec.EncodeList(input.AdditionalImages)
	}
	if input.Notes != nil {
		record.Notes = input.Notes
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	record.UpdatedAt = time.Now()
	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.afterWrite(ctx, record, messaging.EventRecordUpdated)
	return record, nil
}

func (s *deliveryService) DeleteRecord(ctx context.Context, id string, principal *models.APIKey) error {
	record, err := s.repo.FindRecordByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return err
	}

	if !CanModify(principal, record) {
		return ErrForbidden
	}

	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, recordCacheKey(id)); err != nil {
			s.log.WithError(err).Warn("Failed to invalidate record cache")
		}
	}
	if s.indexer != nil {
		if err := s.indexer.RemoveRecord(ctx, id); err != nil {
			s.log.WithError(err).Warn("Failed to remove record from search index")
		}
	}
	s.publishEvent(ctx, record, messaging.EventRecordDeleted)
	return nil
}

func (s *deliveryService) AppendImages(ctx context.Context, id string, images []UploadedImage) (*models.DeliveryRecord, error) {
	record, err := s.repo.FindRecordByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	current := imagecodec.DecodeList(record.AdditionalImages)
	for _, img := range images {
		current = append(current, imagecodec.Encode(img.Data, img.MimeType))
	}
	record.AdditionalImages = imagecodec.EncodeList(current)

	record.UpdatedAt = time.Now()
	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist appended images: %w", err)
	}

	s.afterWrite(ctx, record, messaging.EventRecordImagesAppended)
	return record, nil
}

// afterWrite refreshes the side channels after a successful write. All of
// them are best-effort: a cache, index, or bus failure never fails the call.
func (s *deliveryService) afterWrite(ctx context.Context, record *models.DeliveryRecord, eventType string) {
	s.cacheRecord(ctx, record)
	if s.indexer != nil {
		if err := s.indexer.IndexRecord(ctx, record); err != nil {
			s.log.WithError(err).Warn("Failed to index record")
		}
	}
	s.publishEvent(ctx, record, eventType)
}

func (s *deliveryService) cacheRecord(ctx context.Context, record *models.DeliveryRecord) {
	if s.cache == nil {
		return
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, recordCacheKey(record.ID), string(recordJSON), recordCacheTTL); err != nil {
		s.log.WithError(err).Warn("Failed to cache record")
	}
}

func (s *deliveryService) publishEvent(ctx context.Context, record *models.DeliveryRecord, eventType string) {
	if s.bus == nil {
		return
	}
	event := messaging.RecordEvent{
		Type:       eventType,
		RecordID:   record.ID,
		WorkNumber: record.WorkNumber,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.bus.SendMessage(ctx, event, record.ID); err != nil {
		s.log.WithError(err).Warn("Failed to publish record event")
	}
}

func recordCacheKey(id string) string {
	return fmt.Sprintf("record:%s", id)
}

func parseRequiredDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("this field is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date has wrong format, expected YYYY-MM-DD")
	}
	return parsed, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("date has wrong format, expected YYYY-MM-DD")
	}
	return &parsed, nil
}
