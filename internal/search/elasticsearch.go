// Package search projects delivery record summaries into Elasticsearch.
// The relational store remains the source of truth for list and search
// endpoints; the index is a best-effort projection for external analytics.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/fieldops/services/delivery/config"
	"example.com/fieldops/services/delivery/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// RecordIndexer indexes delivery record summaries
type RecordIndexer interface {
	IndexRecord(ctx context.Context, record *models.DeliveryRecord) error
	RemoveRecord(ctx context.Context, recordID string) error
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// noopIndexer is used when Elasticsearch is not configured
type noopIndexer struct{}

func (noopIndexer) IndexRecord(ctx context.Context, record *models.DeliveryRecord) error {
	return nil
}

func (noopIndexer) RemoveRecord(ctx context.Context, recordID string) error {
	return nil
}

// NewRecordIndexer creates an Elasticsearch-backed indexer, or a no-op
// indexer when the integration is disabled.
func NewRecordIndexer(cfg config.ElasticConfig) (RecordIndexer, error) {
	if !cfg.Enabled {
		return noopIndexer{}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

// IndexRecord indexes a delivery record summary. Image payloads are left out
// of the document on purpose; they would bloat the index for no search value.
func (c *ElasticClient) IndexRecord(ctx context.Context, record *models.DeliveryRecord) error {
	doc := map[string]interface{}{
		"id":                  record.ID,
		"work_order_id":       record.WorkOrderID,
		"work_number":         record.WorkNumber,
		"installation_number": record.InstallationNumber,
		"delivery_date":       record.DeliveryDate.Format("2006-01-02"),
		"document_type":       record.DocumentType,
		"created_at":          record.CreatedAt.Format(time.RFC3339),
		"updated_at":          record.UpdatedAt.Format(time.RFC3339),
	}
	if record.Notes != nil {
		doc["notes"] = *record.Notes
	}
	if record.CreatedByID != nil {
		doc["created_by_id"] = *record.CreatedByID
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal record document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: record.ID,
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to execute Elasticsearch index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return fmt.Errorf("failed to parse Elasticsearch error response: %w", err)
		}
		return fmt.Errorf("elasticsearch index error: %v", e)
	}
	return nil
}

// RemoveRecord removes a delivery record from the index
func (c *ElasticClient) RemoveRecord(ctx context.Context, recordID string) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: recordID,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to execute Elasticsearch delete request: %w", err)
	}
	defer res.Body.Close()

	// A missing document is fine; the projection is best-effort
	if res.IsError() && res.StatusCode != 404 {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return fmt.Errorf("failed to parse Elasticsearch error response: %w", err)
		}
		return fmt.Errorf("elasticsearch delete error: %v", e)
	}
	return nil
}
