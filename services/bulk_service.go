package services

import (
	"context"
	"net/http"
	"strings"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"
	"curation-bff/events"
	"curation-bff/models"
	awspkg "curation-bff/pkg/aws"

	"go.uber.org/zap"
)

// CurateMode selects the direct curation path used by BulkCurate.
type CurateMode string

const (
	CurateModeSimple   CurateMode = "simple"
	CurateModeFallback CurateMode = "fallback"
)

const defaultApproveNotes = "Aprobado en lote"

// BulkService applies one action to many products, isolating per-item failures.
type BulkService interface {
	BulkApprove(ctx context.Context, productIDs []string, notes string) (*models.BulkOperationResult, error)
	BulkReject(ctx context.Context, productIDs []string, notes string) (*models.BulkOperationResult, error)
	BulkDelete(ctx context.Context, productIDs []string, confirm bool) (*models.BulkOperationResult, error)
	BulkCurate(ctx context.Context, productIDs []string, mode CurateMode) (*models.BulkOperationResult, error)
}

type bulkServiceImpl struct {
	curation    *curationServiceImpl
	autoApprove bool
}

// New wires the curation and bulk services over one set of collaborators so
// they share the transition lock and job tracker. With autoApprove set,
// bulk-approved items are published to the global catalog; otherwise they
// stop at curated.
func New(deps Dependencies, coordinator *BulkCoordinator, autoApprove bool) (CurationService, BulkService) {
	curation := newCurationService(deps, coordinator)
	return curation, &bulkServiceImpl{curation: curation, autoApprove: autoApprove}
}

func (b *bulkServiceImpl) BulkApprove(ctx context.Context, productIDs []string, notes string) (*models.BulkOperationResult, error) {
	if err := validateBatch(productIDs, models.MaxBulkApprove); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		notes = defaultApproveNotes
	}
	return b.run(ctx, "bulk_approve", productIDs, func(ctx context.Context, id string) error {
		return b.curation.withLock(ctx, id, func() error {
			return b.approveLocked(ctx, id, notes)
		})
	}), nil
}

func (b *bulkServiceImpl) approveLocked(ctx context.Context, id, notes string) error {
	s := b.curation
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case p.CurationStatus == models.StatusPublished:
		return nil
	case p.CurationStatus == models.StatusCurated:
	case !models.CanAdminTransition(p.CurationStatus, models.StatusCurated):
		return apperrors.InvalidState("Product %s is '%s' and cannot be approved", id, p.CurationStatus)
	default:
		if err := s.ensureNoPendingJob(ctx, id); err != nil {
			return err
		}
		result := simpleCuration(p)
		if p.CuratedData != nil {
			result.Data = *p.CuratedData
		}
		result.Data.Notes = kindNote(result.Kind, notes)
		if err := s.applyCuration(ctx, p, result, ""); err != nil {
			return err
		}
	}

	if !b.autoApprove {
		return nil
	}
	_, err = s.publishLocked(ctx, p)
	return err
}

func (b *bulkServiceImpl) BulkReject(ctx context.Context, productIDs []string, notes string) (*models.BulkOperationResult, error) {
	if err := validateBatch(productIDs, models.MaxBulkReject); err != nil {
		return nil, err
	}
	return b.run(ctx, "bulk_reject", productIDs, func(ctx context.Context, id string) error {
		_, err := b.curation.Reject(ctx, id, notes)
		return err
	}), nil
}

// BulkDelete removes products irrespective of status. Ids already gone count
// as deleted, so repeating a delete reports the same successes.
func (b *bulkServiceImpl) BulkDelete(ctx context.Context, productIDs []string, confirm bool) (*models.BulkOperationResult, error) {
	if !confirm {
		return nil, apperrors.InvalidArgument("Bulk delete requires explicit confirmation (confirm: true)")
	}
	if err := validateBatch(productIDs, models.MaxBulkDelete); err != nil {
		return nil, err
	}

	s := b.curation
	return b.run(ctx, "bulk_delete", productIDs, func(ctx context.Context, id string) error {
		err := s.Store.DeleteProduct(ctx, id)
		if clients.IsUpstreamStatus(err, http.StatusNotFound) || apperrors.IsKind(err, apperrors.KindNotFound) {
			s.Logger.Debug("product already deleted", zap.String("product_id", id))
			return nil
		}
		if err != nil {
			return err
		}
		s.Events.Publish(ctx, events.CurationEvent{EventType: events.EventProductDeleted, ProductID: id})
		return nil
	}), nil
}

func (b *bulkServiceImpl) BulkCurate(ctx context.Context, productIDs []string, mode CurateMode) (*models.BulkOperationResult, error) {
	if mode == "" {
		mode = CurateModeSimple
	}
	if mode != CurateModeSimple && mode != CurateModeFallback {
		return nil, apperrors.InvalidArgument("Unknown curation mode '%s' (expected 'simple' or 'fallback')", mode)
	}
	if err := validateBatch(productIDs, models.MaxBulkCurate); err != nil {
		return nil, err
	}

	s := b.curation
	return b.run(ctx, "bulk_curate_"+string(mode), productIDs, func(ctx context.Context, id string) error {
		var err error
		if mode == CurateModeFallback {
			_, err = s.CurateSingle(ctx, id)
		} else {
			_, err = s.CurateSimple(ctx, id)
		}
		return err
	}), nil
}

func (b *bulkServiceImpl) run(ctx context.Context, op string, ids []string, fn ItemFunc) *models.BulkOperationResult {
	result := b.curation.coordinator.Run(ctx, op, ids, fn)
	if result.FailedCount > 0 {
		b.curation.recordValue(awspkg.MetricBulkItemsFailed, float64(result.FailedCount), map[string]string{"Operation": op})
	}
	return result
}
