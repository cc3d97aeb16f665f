package service

import (
	"example.com/fieldops/services/delivery/internal/models"
)

// CanModify reports whether the principal may mutate or delete the record.
// Elevated keys may always modify; otherwise only the record's creator may.
// An anonymous-created record (nil CreatedByID) is only modifiable by an
// elevated principal.
func CanModify(principal *models.APIKey, record *models.DeliveryRecord) bool {
	if principal == nil || record == nil {
		return false
	}
	if principal.IsElevated() {
		return true
	}
	if record.CreatedByID == nil {
		return false
	}
	return *record.CreatedByID == principal.ID
}
