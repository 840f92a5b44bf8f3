package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique pipeline job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewForecastID generates a unique forecast ID with the "fct_" prefix
func NewForecastID() string {
	return "fct_" + uuid.New().String()
}

// NewActionID generates a unique action recommendation ID with the "act_" prefix
func NewActionID() string {
	return "act_" + uuid.New().String()
}

// NewAlertID generates a unique alert ID with the "alr_" prefix
func NewAlertID() string {
	return "alr_" + uuid.New().String()
}
