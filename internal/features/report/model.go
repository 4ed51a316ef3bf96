package report

import (
	"time"

	"github.com/google/uuid"
)

// Report is one end-user submission against a report model: a bag of
// custom field values attached to a feature of the model's layer.
type Report struct {
	ID            uuid.UUID      `json:"id"`
	ReportModelID uuid.UUID      `json:"report_model_id"`
	FeatureID     string         `json:"feature_id"`
	CustomFields  map[string]any `json:"custom_fields"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedBy     string         `json:"updated_by"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ReportInput is the write payload for create and update.
type ReportInput struct {
	ReportModelID uuid.UUID      `json:"report_model_id"`
	FeatureID     string         `json:"feature_id"`
	CustomFields  map[string]any `json:"custom_fields"`
}
