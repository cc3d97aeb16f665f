package handlers

import (
	"strconv"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// orderingFields maps external ordering names to record columns
var orderingFields = map[string]string{
	"data_entrega":         "delivery_date",
	"entregue_encarregado": "delivery_to_supervisor_date",
	"trabalho_concluido":   "work_completed_date",
	"criado_em":            "created_at",
	"atualizado_em":        "updated_at",
}

// parseRecordFilter extracts the list query from the request. Malformed
// date filters are logged and dropped rather than failing the request, so
// a bad filter degrades to a broader listing.
func parseRecordFilter(c *gin.Context, log *logrus.Logger) repository.RecordFilter {
	filter := repository.RecordFilter{
		WorkNumber:         c.Query("numero_obra"),
		InstallationNumber: c.Query("numero_instalacao"),
		Search:             c.Query("search"),
		Page:               1,
		PageSize:           defaultPageSize,
	}

	if docType := c.Query("tipo_documento"); docType != "" {
		filter.DocumentType = models.DocumentType(docType)
	}
	if createdBy := c.Query("criado_por"); createdBy != "" {
		if id, err := strconv.ParseUint(createdBy, 10, 32); err == nil {
			uintID := uint(id)
			filter.CreatedByID = &uintID
		} else {
			log.WithField("criado_por", createdBy).Warn("Ignoring non-numeric creator filter")
		}
	}

	filter.DeliveryDate = parseDateFilter(c, log, "data_entrega")
	filter.DeliveryToSupervisor = parseDateFilter(c, log, "entregue_encarregado")
	filter.WorkCompleted = parseDateFilter(c, log, "trabalho_concluido")

	filter.Ordering = parseOrdering(c.Query("ordering"))

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		if size > maxPageSize {
			size = maxPageSize
		}
		filter.PageSize = size
	}

	return filter
}

// parseDateFilter reads the exact, _inicio and _fim variants of a date
// query parameter. Unparseable values are skipped.
func parseDateFilter(c *gin.Context, log *logrus.Logger, param string) repository.DateFilter {
	var f repository.DateFilter
	f.Exact = parseFilterDate(c, log, param)
	f.Start = parseFilterDate(c, log, param+"_inicio")
	f.End = parseFilterDate(c, log, param+"_fim")
	return f
}

func parseFilterDate(c *gin.Context, log *logrus.Logger, param string) *time.Time {
	value := c.Query(param)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(payloadDateLayout, value)
	if err != nil {
		log.WithFields(logrus.Fields{
			"param": param,
			"value": value,
		}).Warn("Ignoring malformed date filter")
		return nil
	}
	return &parsed
}

// parseOrdering translates an external ordering name to a column, keeping
// the "-" descending prefix. Unknown names fall back to the default order.
func parseOrdering(ordering string) string {
	if ordering == "" {
		return ""
	}
	prefix := ""
	name := ordering
	if name[0] == '-' {
		prefix = "-"
		name = name[1:]
	}
	column, ok := orderingFields[name]
	if !ok {
		// Column names are accepted directly, the repository whitelists them
		if !repository.OrderableColumn(name) {
			return ""
		}
		column = name
	}
	return prefix + column
}
