package models

import "time"

// JobStatus is the lifecycle state reported by the curation job runner.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job will not change status again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CurationJob is one asynchronous bulk-curation request as reported by the job runner.
type CurationJob struct {
	JobID      string          `json:"job_id"`
	ProductIDs []string        `json:"product_ids,omitempty"`
	Status     JobStatus       `json:"status"`
	TenantID   string          `json:"tenant_id,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	Error      string          `json:"error,omitempty"`
	Results    []JobItemResult `json:"results,omitempty"`
}

// JobItemResult is the per-product outcome of a completed job.
type JobItemResult struct {
	ProductID   string       `json:"product_id"`
	Success     bool         `json:"success"`
	CuratedData *CuratedData `json:"curated_data,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// TrackedJob is the BFF-side record of a submitted job awaiting reconciliation.
type TrackedJob struct {
	JobID        string     `json:"job_id"`
	ProductIDs   []string   `json:"product_ids"`
	TenantID     string     `json:"tenant_id,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	SettledIDs   []string   `json:"settled_ids,omitempty"`
	Reconciled   bool       `json:"reconciled"`
	ReconciledAt *time.Time `json:"reconciled_at,omitempty"`
}

// Unsettled returns the products whose job result has not been applied yet.
func (j *TrackedJob) Unsettled() []string {
	settled := make(map[string]struct{}, len(j.SettledIDs))
	for _, id := range j.SettledIDs {
		settled[id] = struct{}{}
	}
	out := make([]string, 0, len(j.ProductIDs))
	for _, id := range j.ProductIDs {
		if _, ok := settled[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Settle records ids as applied. The job is reconciled once no product is
// left unsettled. Ids outside the job are ignored.
func (j *TrackedJob) Settle(ids []string, at time.Time) {
	pending := make(map[string]struct{})
	for _, id := range j.Unsettled() {
		pending[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := pending[id]; ok {
			j.SettledIDs = append(j.SettledIDs, id)
			delete(pending, id)
		}
	}
	if len(pending) == 0 && !j.Reconciled {
		j.Reconciled = true
		j.ReconciledAt = &at
	}
}
