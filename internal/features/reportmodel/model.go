package reportmodel

import (
	"time"

	"go-reports/pkg/utils"

	"github.com/google/uuid"
)

// ReportModel is a named, versioned report configuration bound to a
// map-server layer. The custom field schema is a free-form document
// describing the fields a report of this model carries.
type ReportModel struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	LayerID           string         `json:"layer_id"`
	CustomFieldSchema map[string]any `json:"custom_field_schema"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedBy         string         `json:"updated_by"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ReportModelInput is the write payload for create and update.
type ReportModelInput struct {
	Name              string         `json:"name"`
	LayerID           string         `json:"layer_id"`
	CustomFieldSchema map[string]any `json:"custom_field_schema"`
}

// TJSViewName derives the name of the materialized TJS view from the
// model name.
func (m *ReportModel) TJSViewName() string {
	return "tjs_view_" + utils.Slugify(m.Name)
}
