package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "curation-bff/common/errors"
	"curation-bff/events"
	"curation-bff/models"
	awspkg "curation-bff/pkg/aws"
	"curation-bff/repository"

	"go.uber.org/zap"
)

const (
	defaultRejectNotes = "Rechazado por el administrador"

	msgFallbackCurated = "Producto categorizado con el servicio de categorización (fallback). No es una curación completa."
	msgSimpleCurated   = "Producto curado mediante proceso simplificado (sin IA)."
	msgPublished       = "Producto publicado en el catálogo global."
	msgRejected        = "Producto rechazado."
	msgJobSubmitted    = "Trabajo de curación enviado. Consulte su estado con el job_id."
)

// CurationOutcome is the result of a single-product curation.
type CurationOutcome struct {
	ProductID string
	Result    models.CurationResult
	Message   string
}

// PublishOutcome is the result of publishing one product.
type PublishOutcome struct {
	ProductID       string
	GlobalProductID string
	Status          models.CurationStatus
	Message         string
}

// RejectOutcome is the result of rejecting one product.
type RejectOutcome struct {
	ProductID string
	Status    models.CurationStatus
	Message   string
}

// SubmitOutcome is the accepted asynchronous job.
type SubmitOutcome struct {
	JobID      string
	Status     models.JobStatus
	ProductIDs []string
	Message    string
}

// ReconcileOutcome reports what a reconciliation pass applied.
type ReconcileOutcome struct {
	JobID             string
	Status            models.JobStatus
	Applied           bool
	AlreadyReconciled bool
	Result            *models.BulkOperationResult
	// RetryIDs failed for a retryable reason and stay attached to the job.
	RetryIDs          []string
}

// CurationService moves single products through the curation state machine.
type CurationService interface {
	CurateSingle(ctx context.Context, productID string) (*CurationOutcome, error)
	CurateSimple(ctx context.Context, productID string) (*CurationOutcome, error)
	SubmitAsyncCuration(ctx context.Context, productIDs []string, notes string) (*SubmitOutcome, error)
	GetJobStatus(ctx context.Context, jobID string) (*models.CurationJob, error)
	Publish(ctx context.Context, productID string) (*PublishOutcome, error)
	Reject(ctx context.Context, productID, notes string) (*RejectOutcome, error)
	ReconcileJob(ctx context.Context, jobID string) (*ReconcileOutcome, error)
}

// Dependencies groups the collaborators of the curation services.
type Dependencies struct {
	Store       RecordStore
	Jobs        JobRunner
	Categorizer Categorizer
	Catalog     Catalog
	Tracker     repository.JobTracker
	Lock        repository.TransitionLock
	Events      events.Publisher
	Metrics     *awspkg.MetricsClient
	Logger      *zap.Logger
}

type curationServiceImpl struct {
	Dependencies
	coordinator *BulkCoordinator
}

// newCurationService fills nil optional collaborators with in-memory or
// no-op implementations.
func newCurationService(deps Dependencies, coordinator *BulkCoordinator) *curationServiceImpl {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tracker == nil {
		deps.Tracker = repository.NewMemoryJobTracker(24 * time.Hour)
	}
	if deps.Lock == nil {
		deps.Lock = repository.NewMemoryTransitionLock(30 * time.Second)
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if coordinator == nil {
		coordinator = NewBulkCoordinator(1, deps.Logger)
	}
	return &curationServiceImpl{Dependencies: deps, coordinator: coordinator}
}

// CurateSingle curates one product through the synchronous categorizer.
func (s *curationServiceImpl) CurateSingle(ctx context.Context, productID string) (*CurationOutcome, error) {
	var out *CurationOutcome
	err := s.withLock(ctx, productID, func() error {
		var err error
		out, err = s.curateFallbackLocked(ctx, productID)
		return err
	})
	return out, err
}

func (s *curationServiceImpl) curateFallbackLocked(ctx context.Context, productID string) (*CurationOutcome, error) {
	if err := s.ensureNoPendingJob(ctx, productID); err != nil {
		return nil, err
	}
	p, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !models.CanAdminTransition(p.CurationStatus, models.StatusCurated) {
		return nil, apperrors.InvalidState("Product %s cannot be curated from status '%s'", productID, p.CurationStatus)
	}

	cat, err := s.Categorizer.Categorize(ctx, p)
	if err != nil {
		return nil, err
	}
	result := fallbackCuration(p, cat)
	if err := s.applyCuration(ctx, p, result, ""); err != nil {
		return nil, err
	}
	return &CurationOutcome{ProductID: productID, Result: result, Message: msgFallbackCurated}, nil
}

// CurateSimple curates a pending product offline from its scraped fields.
func (s *curationServiceImpl) CurateSimple(ctx context.Context, productID string) (*CurationOutcome, error) {
	var out *CurationOutcome
	err := s.withLock(ctx, productID, func() error {
		var err error
		out, err = s.curateSimpleLocked(ctx, productID)
		return err
	})
	return out, err
}

func (s *curationServiceImpl) curateSimpleLocked(ctx context.Context, productID string) (*CurationOutcome, error) {
	if err := s.ensureNoPendingJob(ctx, productID); err != nil {
		return nil, err
	}
	p, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.CurationStatus != models.StatusPending {
		return nil, apperrors.InvalidState("Product %s must be 'pending' to curate (current status: '%s')", productID, p.CurationStatus)
	}

	result := simpleCuration(p)
	if err := s.applyCuration(ctx, p, result, ""); err != nil {
		return nil, err
	}
	return &CurationOutcome{ProductID: productID, Result: result, Message: msgSimpleCurated}, nil
}

// applyCuration persists result as the product's curated data and moves it to curated.
func (s *curationServiceImpl) applyCuration(ctx context.Context, p *models.ScrapedProduct, result models.CurationResult, jobID string) error {
	data := result.Data
	update := models.StatusUpdate{
		CurationStatus: models.StatusCurated,
		ExpectedStatus: p.CurationStatus,
		CuratedData:    &data,
		Notes:          data.Notes,
	}
	if result.Kind != models.KindSimple {
		score := data.ConfidenceScore
		update.ConfidenceScore = &score
	}
	if err := s.Store.UpdateStatus(ctx, p.ID, update); err != nil {
		return err
	}

	s.Logger.Info("product curated",
		zap.String("product_id", p.ID),
		zap.String("kind", string(result.Kind)),
		zap.String("from_status", string(p.CurationStatus)),
	)
	s.Events.Publish(ctx, events.CurationEvent{
		EventType:  events.EventProductCurated,
		ProductID:  p.ID,
		FromStatus: p.CurationStatus,
		ToStatus:   models.StatusCurated,
		Kind:       result.Kind,
		JobID:      jobID,
	})
	s.recordCount(awspkg.MetricCurationsApplied, map[string]string{"Kind": string(result.Kind)})

	p.CurationStatus = models.StatusCurated
	p.CuratedData = &data
	return nil
}

// SubmitAsyncCuration hands products to the job runner and tracks the job
// until its results are reconciled. Product statuses are left to the runner.
func (s *curationServiceImpl) SubmitAsyncCuration(ctx context.Context, productIDs []string, notes string) (*SubmitOutcome, error) {
	ids, err := normalizeIDs(productIDs, models.MaxAsyncBatch)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := s.ensureNoPendingJob(ctx, id); err != nil {
			return nil, err
		}
	}

	job, err := s.Jobs.Submit(ctx, ids, notes)
	if err != nil {
		return nil, err
	}

	tracked := models.TrackedJob{
		JobID:       job.JobID,
		ProductIDs:  ids,
		TenantID:    job.TenantID,
		Notes:       notes,
		SubmittedAt: time.Now().UTC(),
	}
	// the runner already accepted the job, so a tracking failure is only logged
	if err := s.Tracker.Track(ctx, tracked); err != nil {
		s.Logger.Error("failed to track curation job",
			zap.String("job_id", job.JobID),
			zap.Strings("product_ids", ids),
			zap.Error(err),
		)
	}

	s.Logger.Info("curation job submitted", zap.String("job_id", job.JobID), zap.Int("products", len(ids)))
	s.Events.Publish(ctx, events.CurationEvent{
		EventType:  events.EventJobSubmitted,
		JobID:      job.JobID,
		ProductIDs: ids,
	})
	s.recordValue(awspkg.MetricCurationJobsQueued, float64(len(ids)), nil)

	return &SubmitOutcome{JobID: job.JobID, Status: job.Status, ProductIDs: ids, Message: msgJobSubmitted}, nil
}

// GetJobStatus reads the job from the runner without side effects.
func (s *curationServiceImpl) GetJobStatus(ctx context.Context, jobID string) (*models.CurationJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, apperrors.InvalidArgument("job_id is required")
	}
	return s.Jobs.Get(ctx, jobID)
}

// Publish creates the curated product in the global catalog, then marks it
// published. A failed catalog create leaves the status untouched.
func (s *curationServiceImpl) Publish(ctx context.Context, productID string) (*PublishOutcome, error) {
	var out *PublishOutcome
	err := s.withLock(ctx, productID, func() error {
		p, err := s.Store.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		out, err = s.publishLocked(ctx, p)
		return err
	})
	return out, err
}

func (s *curationServiceImpl) publishLocked(ctx context.Context, p *models.ScrapedProduct) (*PublishOutcome, error) {
	if !models.CanAdminTransition(p.CurationStatus, models.StatusPublished) {
		return nil, apperrors.InvalidState("Product %s must be 'curated' to publish (current status: '%s')", p.ID, p.CurationStatus)
	}
	if p.CuratedData == nil {
		return nil, apperrors.InvalidState("Product %s is 'curated' but has no curated_data", p.ID)
	}

	globalID, err := s.Catalog.CreateProduct(ctx, models.NewCatalogProduct(p))
	if err != nil {
		s.Logger.Warn("catalog create failed, status unchanged", zap.String("product_id", p.ID), zap.Error(err))
		return nil, err
	}

	err = s.Store.UpdateStatus(ctx, p.ID, models.StatusUpdate{
		CurationStatus: models.StatusPublished,
		ExpectedStatus: models.StatusCurated,
		CuratedData:    p.CuratedData,
		Notes:          fmt.Sprintf("Published to global catalog as %s", globalID),
	})
	if err != nil {
		// the catalog entry exists; operators need the id to repair the record
		s.Logger.Error("catalog product created but status update failed",
			zap.String("product_id", p.ID),
			zap.String("global_product_id", globalID),
			zap.Error(err),
		)
		return nil, err
	}

	s.Logger.Info("product published", zap.String("product_id", p.ID), zap.String("global_product_id", globalID))
	s.Events.Publish(ctx, events.CurationEvent{
		EventType:       events.EventProductPublished,
		ProductID:       p.ID,
		FromStatus:      models.StatusCurated,
		ToStatus:        models.StatusPublished,
		GlobalProductID: globalID,
	})
	s.recordCount(awspkg.MetricProductsPublished, nil)

	p.CurationStatus = models.StatusPublished
	return &PublishOutcome{
		ProductID:       p.ID,
		GlobalProductID: globalID,
		Status:          models.StatusPublished,
		Message:         msgPublished,
	}, nil
}

// Reject moves a product to rejected regardless of its current status.
func (s *curationServiceImpl) Reject(ctx context.Context, productID, notes string) (*RejectOutcome, error) {
	var out *RejectOutcome
	err := s.withLock(ctx, productID, func() error {
		var err error
		out, err = s.rejectLocked(ctx, productID, notes)
		return err
	})
	return out, err
}

func (s *curationServiceImpl) rejectLocked(ctx context.Context, productID, notes string) (*RejectOutcome, error) {
	if strings.TrimSpace(notes) == "" {
		notes = defaultRejectNotes
	}
	err := s.Store.UpdateStatus(ctx, productID, models.StatusUpdate{
		CurationStatus: models.StatusRejected,
		Notes:          notes,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("product rejected", zap.String("product_id", productID))
	s.Events.Publish(ctx, events.CurationEvent{
		EventType: events.EventProductRejected,
		ProductID: productID,
		ToStatus:  models.StatusRejected,
	})
	s.recordCount(awspkg.MetricProductsRejected, nil)

	return &RejectOutcome{ProductID: productID, Status: models.StatusRejected, Message: msgRejected}, nil
}

// withLock runs fn while holding the product's transition lock.
func (s *curationServiceImpl) withLock(ctx context.Context, productID string, fn func() error) error {
	if strings.TrimSpace(productID) == "" {
		return apperrors.InvalidArgument("product_id is required")
	}
	release, err := s.Lock.Acquire(ctx, productID)
	if errors.Is(err, repository.ErrLocked) {
		return apperrors.InvalidState("Another curation operation is in progress for product %s", productID)
	}
	if err != nil {
		return apperrors.InternalProxy(err)
	}
	defer release()
	return fn()
}

// ensureNoPendingJob blocks direct curation while a submitted job may still
// write results for the product.
func (s *curationServiceImpl) ensureNoPendingJob(ctx context.Context, productID string) error {
	jobID, pending, err := s.Tracker.PendingJobFor(ctx, productID)
	if err != nil {
		return apperrors.InternalProxy(err)
	}
	if pending {
		return apperrors.InvalidState("Product %s is awaiting curation job %s", productID, jobID)
	}
	return nil
}

func (s *curationServiceImpl) recordCount(metric string, dims map[string]string) {
	s.recordValue(metric, 1, dims)
}

func (s *curationServiceImpl) recordValue(metric string, value float64, dims map[string]string) {
	if !s.Metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Metrics.RecordValue(ctx, metric, value, dims)
	}()
}

// validateBatch enforces the non-empty and maximum size rules of a batch.
func validateBatch(ids []string, limit int) error {
	if len(ids) == 0 {
		return apperrors.InvalidArgument("product_ids must be a non-empty array")
	}
	if len(ids) > limit {
		return apperrors.InvalidArgument("Too many products: %d (maximum %d per request)", len(ids), limit)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apperrors.InvalidArgument("product_ids must not contain empty values")
		}
	}
	return nil
}

// normalizeIDs validates a batch of ids, dropping duplicates while keeping order.
func normalizeIDs(ids []string, limit int) ([]string, error) {
	if err := validateBatch(ids, limit); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
