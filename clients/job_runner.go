package clients

import (
	"context"
	"net/http"
	"net/url"

	apperrors "curation-bff/common/errors"
	"curation-bff/models"
)

const curationJobsPath = "/api/v1/curation/jobs"

// JobRunnerClient submits and polls asynchronous curation jobs.
type JobRunnerClient struct {
	gateway *GatewayClient
}

func NewJobRunnerClient(gateway *GatewayClient) *JobRunnerClient {
	return &JobRunnerClient{gateway: gateway}
}

type submitJobRequest struct {
	ProductIDs    []string `json:"product_ids"`
	CurationNotes string   `json:"curation_notes,omitempty"`
	TenantID      string   `json:"tenant_id,omitempty"`
}

// Submit hands productIDs to the job runner and returns the accepted job.
func (j *JobRunnerClient) Submit(ctx context.Context, productIDs []string, notes string) (*models.CurationJob, error) {
	body := submitJobRequest{ProductIDs: productIDs, CurationNotes: notes}
	if creds, ok := CredentialsFrom(ctx); ok {
		body.TenantID = creds.TenantID
	}

	var job models.CurationJob
	if err := j.gateway.ForwardJSON(ctx, http.MethodPost, curationJobsPath, ForwardOptions{Body: body, Mode: ModeGlobal}, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, apperrors.InternalProxy(errMissingField("job_id"))
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if len(job.ProductIDs) == 0 {
		job.ProductIDs = productIDs
	}
	job.TenantID = body.TenantID
	return &job, nil
}

// Get polls one job. An upstream 404 becomes NotFound.
func (j *JobRunnerClient) Get(ctx context.Context, jobID string) (*models.CurationJob, error) {
	var job models.CurationJob
	err := j.gateway.ForwardJSON(ctx, http.MethodGet, curationJobsPath+"/"+url.PathEscape(jobID), ForwardOptions{Mode: ModeGlobal}, &job)
	if err != nil {
		if IsUpstreamStatus(err, http.StatusNotFound) {
			return nil, apperrors.NotFound("Curation job %s not found", jobID)
		}
		return nil, err
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	// results are only meaningful once the job has completed
	if job.Status != models.JobStatusCompleted {
		job.Results = nil
	}
	return &job, nil
}
