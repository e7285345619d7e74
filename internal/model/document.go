package model

import (
	"strings"
	"time"
)

// DocumentStatus tracks the lifecycle of one uploaded spreadsheet.
type DocumentStatus string

const (
	DocStatusPending    DocumentStatus = "pending"
	DocStatusProcessing DocumentStatus = "processing"
	DocStatusProcessed  DocumentStatus = "processed"
	DocStatusError      DocumentStatus = "error"
)

// DocumentType selects the field-mapping alias table variant, derived from
// filename keywords at ingest time.
type DocumentType string

const (
	DocTypeDefault    DocumentType = "default"
	DocTypeETD        DocumentType = "etd"
	DocTypeOutstation DocumentType = "outstation"
)

// DocumentTypeFromFilename derives the mapping variant from a filename hint.
func DocumentTypeFromFilename(name string) DocumentType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "outstation"):
		return DocTypeOutstation
	case strings.Contains(lower, "etd"):
		return DocTypeETD
	default:
		return DocTypeDefault
	}
}

// Document is the stored record for one uploaded spreadsheet. Its status is
// the single piece of shared mutable state external callers may poll.
type Document struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	Type          DocumentType   `json:"type"`
	Status        DocumentStatus `json:"status"`
	ShipmentCount int            `json:"shipment_count"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PersistenceOutcome is the per-bundle persistence result.
type PersistenceOutcome struct {
	LoadNumber string `json:"load_number"`
	Success    bool   `json:"success"`
	ShipmentID string `json:"shipment_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DocumentSummary aggregates per-bundle outcomes for a whole document.
// Processed + Failed always equals TotalBundles.
type DocumentSummary struct {
	DocumentID   string               `json:"document_id"`
	TotalBundles int                  `json:"total_bundles"`
	Processed    int                  `json:"processed"`
	Failed       int                  `json:"failed"`
	Outcomes     []PersistenceOutcome `json:"outcomes,omitempty"`
	Errors       []string             `json:"errors,omitempty"`
	ReviewNotes  []string             `json:"review_notes,omitempty"`
}

// Record folds one persistence outcome into the summary.
func (s *DocumentSummary) Record(o PersistenceOutcome) {
	s.TotalBundles++
	if o.Success {
		s.Processed++
	} else {
		s.Failed++
		if o.Error != "" {
			s.Errors = append(s.Errors, o.Error)
		}
	}
	s.Outcomes = append(s.Outcomes, o)
}
