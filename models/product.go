package models

import "fmt"

// CurationStatus is the workflow state of a scraped product.
type CurationStatus string

const (
	StatusPending    CurationStatus = "pending"
	StatusProcessing CurationStatus = "processing"
	StatusCurated    CurationStatus = "curated"
	StatusRejected   CurationStatus = "rejected"
	StatusPublished  CurationStatus = "published"
)

// IsTerminal reports whether no further transition may leave the status.
func (s CurationStatus) IsTerminal() bool {
	return s == StatusRejected
}

// HasCuratedData reports whether curated_data must be present in this status.
func (s CurationStatus) HasCuratedData() bool {
	return s == StatusCurated || s == StatusPublished
}

// Valid reports whether s is one of the known statuses.
func (s CurationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCurated, StatusRejected, StatusPublished:
		return true
	}
	return false
}

// transitions lists the allowed target statuses per source status.
// Reject is handled separately since it is accepted from any status.
var transitions = map[CurationStatus][]CurationStatus{
	StatusPending:    {StatusProcessing, StatusCurated},
	StatusProcessing: {StatusCurated, StatusPending},
	StatusCurated:    {StatusCurated, StatusPublished},
}

// CanTransition reports whether from -> to is an edge of the curation state machine.
func CanTransition(from, to CurationStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusRejected {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanAdminTransition is CanTransition for operations requested directly by an
// admin. A processing product belongs to its curation job until the job is
// reconciled, so only reject may leave it.
func CanAdminTransition(from, to CurationStatus) bool {
	if from == StatusProcessing && to != StatusRejected {
		return false
	}
	return CanTransition(from, to)
}

// ScrapedProduct is a listing ingested by the scraper and owned by the record store.
type ScrapedProduct struct {
	ID              string                 `json:"id"`
	Source          string                 `json:"source"`
	SourceURL       string                 `json:"source_url,omitempty"`
	ExternalID      string                 `json:"external_id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Price           float64                `json:"price"`
	Currency        string                 `json:"currency"`
	Brand           string                 `json:"brand,omitempty"`
	Category        string                 `json:"category,omitempty"`
	Images          []string               `json:"images"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	CurationStatus  CurationStatus         `json:"curation_status"`
	CuratedData     *CuratedData           `json:"curated_data"`
	ConfidenceScore *float64               `json:"confidence_score"`
	Notes           string                 `json:"notes,omitempty"`
}

// CheckInvariant verifies that curated_data is present exactly when the status requires it.
func (p *ScrapedProduct) CheckInvariant() error {
	if p.CurationStatus.HasCuratedData() != (p.CuratedData != nil) {
		return fmt.Errorf("product %s: curated_data presence does not match status %q", p.ID, p.CurationStatus)
	}
	return nil
}

// StatusUpdate is the body of the record store's curation-status PATCH.
type StatusUpdate struct {
	CurationStatus  CurationStatus `json:"curation_status"`
	ExpectedStatus  CurationStatus `json:"expected_status,omitempty"`
	CuratedData     *CuratedData   `json:"curated_data"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}
