package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "curation-bff/common/errors"
	"curation-bff/events"
	"curation-bff/models"
	"curation-bff/repository"

	"go.uber.org/zap"
)

// settledError marks an item failure that a later pass cannot change, such as
// a reverted product or one that was rejected while the job ran.
type settledError struct{ err error }

func (e settledError) Error() string { return e.err.Error() }
func (e settledError) Unwrap() error { return e.err }

func isSettled(err error) bool {
	var se settledError
	return err == nil || errors.As(err, &se) || apperrors.IsKind(err, apperrors.KindNotFound)
}

// ReconcileJob applies a finished job's results to the record store. Jobs
// still pending or running are reported unchanged. Items that fail for a
// retryable reason (store errors, a busy product lock) keep the job open and
// are listed in RetryIDs; the next call only processes those.
func (s *curationServiceImpl) ReconcileJob(ctx context.Context, jobID string) (*ReconcileOutcome, error) {
	if jobID == "" {
		return nil, apperrors.InvalidArgument("job_id is required")
	}

	tracked, err := s.Tracker.Get(ctx, jobID)
	switch {
	case errors.Is(err, repository.ErrJobNotTracked):
		tracked = nil
	case err != nil:
		return nil, apperrors.InternalProxy(err)
	}

	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := &ReconcileOutcome{JobID: jobID, Status: job.Status}

	if tracked != nil && tracked.Reconciled {
		out.AlreadyReconciled = true
		return out, nil
	}
	if !job.Status.IsTerminal() {
		return out, nil
	}

	ids := jobProductIDs(tracked, job)
	results := make(map[string]models.JobItemResult, len(job.Results))
	for _, r := range job.Results {
		results[r.ProductID] = r
	}

	var mu sync.Mutex
	settled := make(map[string]bool, len(ids))
	out.Result = s.coordinator.Run(ctx, "reconcile_job", ids, func(ctx context.Context, id string) error {
		err := s.withLock(ctx, id, func() error {
			item, ok := results[id]
			switch {
			case job.Status == models.JobStatusFailed:
				return s.revertToPending(ctx, id, jobID, jobFailure(job.Error))
			case !ok:
				return s.revertToPending(ctx, id, jobID, "no result reported for product")
			case !item.Success || item.CuratedData == nil:
				return s.revertToPending(ctx, id, jobID, jobFailure(item.Error))
			}
			return s.applyJobResult(ctx, id, jobID, *item.CuratedData)
		})
		if isSettled(err) {
			mu.Lock()
			settled[id] = true
			mu.Unlock()
		}
		return err
	})
	out.Applied = true

	done := make([]string, 0, len(ids))
	for _, id := range ids {
		if settled[id] {
			done = append(done, id)
		} else {
			out.RetryIDs = append(out.RetryIDs, id)
		}
	}

	if tracked != nil {
		if _, err := s.Tracker.Settle(ctx, jobID, done); err != nil {
			s.Logger.Error("failed to settle job results", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	s.Logger.Info("curation job reconciled",
		zap.String("job_id", jobID),
		zap.String("status", string(job.Status)),
		zap.Int("applied", out.Result.SuccessfulCount),
		zap.Int("failed", out.Result.FailedCount),
		zap.Strings("retry_ids", out.RetryIDs),
	)
	return out, nil
}

func (s *curationServiceImpl) applyJobResult(ctx context.Context, id, jobID string, data models.CuratedData) error {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(p.CurationStatus, models.StatusCurated) {
		return settledError{apperrors.InvalidState("Product %s is '%s'; job %s result not applied", id, p.CurationStatus, jobID)}
	}
	return s.applyCuration(ctx, p, aiCuration(p, data, jobID), jobID)
}

// revertToPending returns a processing product to pending so it can be
// resubmitted. The item is reported as failed with reason once the revert
// has been written.
func (s *curationServiceImpl) revertToPending(ctx context.Context, id, jobID, reason string) error {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if models.CanTransition(p.CurationStatus, models.StatusPending) {
		err := s.Store.UpdateStatus(ctx, id, models.StatusUpdate{
			CurationStatus: models.StatusPending,
			ExpectedStatus: p.CurationStatus,
			Notes:          fmt.Sprintf("Curation job %s failed: %s", jobID, reason),
		})
		if err != nil {
			return err
		}
		s.Events.Publish(ctx, events.CurationEvent{
			EventType:  events.EventProductReverted,
			ProductID:  id,
			FromStatus: p.CurationStatus,
			ToStatus:   models.StatusPending,
			JobID:      jobID,
		})
	}
	return settledError{errors.New(reason)}
}

func jobFailure(msg string) string {
	if msg == "" {
		return "curation job reported a failure"
	}
	return msg
}

func jobProductIDs(tracked *models.TrackedJob, job *models.CurationJob) []string {
	if tracked != nil && len(tracked.ProductIDs) > 0 {
		return tracked.Unsettled()
	}
	if len(job.ProductIDs) > 0 {
		return job.ProductIDs
	}
	ids := make([]string, 0, len(job.Results))
	for _, r := range job.Results {
		ids = append(ids, r.ProductID)
	}
	return ids
}
