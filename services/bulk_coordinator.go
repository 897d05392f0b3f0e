package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "curation-bff/common/errors"
	"curation-bff/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ItemFunc applies one bulk action to one product id.
type ItemFunc func(ctx context.Context, id string) error

// BulkCoordinator runs an ItemFunc over a batch and attributes each failure
// to its id. Items run one at a time unless a concurrency above 1 is set;
// either way results keep input order.
type BulkCoordinator struct {
	concurrency int
	logger      *zap.Logger
}

func NewBulkCoordinator(concurrency int, logger *zap.Logger) *BulkCoordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkCoordinator{concurrency: concurrency, logger: logger}
}

// Run never fails as a whole. Every id lands in exactly one of the result lists.
func (b *BulkCoordinator) Run(ctx context.Context, op string, ids []string, fn ItemFunc) *models.BulkOperationResult {
	errs := make([]error, len(ids))

	if b.concurrency == 1 {
		for i, id := range ids {
			errs[i] = b.runItem(ctx, op, id, fn)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(b.concurrency)
		for i, id := range ids {
			i, id := i, id
			g.Go(func() error {
				errs[i] = b.runItem(ctx, op, id, fn)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := models.NewBulkOperationResult(len(ids))
	for i, id := range ids {
		if errs[i] != nil {
			result.AddFailure(id, errs[i])
			continue
		}
		result.AddSuccess(id)
	}

	b.logger.Info("bulk operation finished",
		zap.String("operation", op),
		zap.Int("total", result.TotalCount),
		zap.Int("successful", result.SuccessfulCount),
		zap.Int("failed", result.FailedCount),
	)
	return result
}

// runItem calls fn, turning a panic into an item failure and hiding
// internal error detail from the result.
func (b *BulkCoordinator) runItem(ctx context.Context, op, id string, fn ItemFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bulk item panicked", zap.String("operation", op), zap.String("product_id", id), zap.Any("panic", r))
			err = errors.New(apperrors.InternalProxy(nil).Message)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, id); err != nil {
		b.logger.Warn("bulk item failed", zap.String("operation", op), zap.String("product_id", id), zap.Error(err))
		return itemError(err)
	}
	return nil
}

func itemError(err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		return err
	}
	if appErr.Kind == apperrors.KindUpstream {
		return fmt.Errorf("%s (upstream status %d)", appErr.Message, appErr.Code)
	}
	return errors.New(appErr.Message)
}
