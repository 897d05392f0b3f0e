package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"curation-bff/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrJobNotTracked is returned when no record exists for a job id.
var ErrJobNotTracked = errors.New("curation job is not tracked")

// JobTracker records submitted curation jobs until their results have been
// applied to the record store.
type JobTracker interface {
	Track(ctx context.Context, job models.TrackedJob) error
	Get(ctx context.Context, jobID string) (*models.TrackedJob, error)
	// PendingJobFor returns the un-reconciled job a product is waiting on.
	PendingJobFor(ctx context.Context, productID string) (string, bool, error)
	// Settle records the job results applied for productIDs and releases
	// those products. The job is reconciled once every product is settled.
	Settle(ctx context.Context, jobID string, productIDs []string) (*models.TrackedJob, error)
}

// maxSettleAttempts bounds optimistic retries when a concurrent writer
// touches the job record.
const maxSettleAttempts = 5

func jobKey(jobID string) string {
	return fmt.Sprintf("curation:job:%s", jobID)
}

func productKey(productID string) string {
	return fmt.Sprintf("curation:product:%s", productID)
}

// clearPointer deletes a product pointer only if it still names the job.
var clearPointer = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisJobTracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisJobTracker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisJobTracker {
	return &RedisJobTracker{client: client, ttl: ttl, logger: logger}
}

func (t *RedisJobTracker) Track(ctx context.Context, job models.TrackedJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal tracked job: %w", err)
	}

	pipe := t.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.JobID), payload, t.ttl)
	for _, id := range job.ProductIDs {
		pipe.Set(ctx, productKey(id), job.JobID, t.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track job %s: %w", job.JobID, err)
	}

	t.logger.Debug("curation job tracked",
		zap.String("job_id", job.JobID),
		zap.Int("products", len(job.ProductIDs)),
		zap.Duration("ttl", t.ttl),
	)
	return nil
}

func (t *RedisJobTracker) Get(ctx context.Context, jobID string) (*models.TrackedJob, error) {
	raw, err := t.client.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotTracked
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked job %s: %w", jobID, err)
	}

	var job models.TrackedJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode tracked job %s: %w", jobID, err)
	}
	return &job, nil
}

func (t *RedisJobTracker) PendingJobFor(ctx context.Context, productID string) (string, bool, error) {
	jobID, err := t.client.Get(ctx, productKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup job for product %s: %w", productID, err)
	}
	return jobID, true, nil
}

func (t *RedisJobTracker) Settle(ctx context.Context, jobID string, productIDs []string) (*models.TrackedJob, error) {
	key := jobKey(jobID)
	var job models.TrackedJob

	settle := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrJobNotTracked
		}
		if err != nil {
			return fmt.Errorf("get tracked job %s: %w", jobID, err)
		}
		job = models.TrackedJob{}
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("decode tracked job %s: %w", jobID, err)
		}

		job.Settle(productIDs, time.Now().UTC())
		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal tracked job: %w", err)
		}
		// keep the record around so repeated reconcile calls are answered from it
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, t.ttl)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxSettleAttempts; attempt++ {
		err = t.client.Watch(ctx, settle, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, ErrJobNotTracked) {
			return nil, err
		}
		return nil, fmt.Errorf("settle job %s: %w", jobID, err)
	}

	for _, id := range productIDs {
		if err := clearPointer.Run(ctx, t.client, []string{productKey(id)}, jobID).Err(); err != nil && !errors.Is(err, redis.Nil) {
			t.logger.Warn("failed to clear product job pointer",
				zap.String("job_id", jobID),
				zap.String("product_id", id),
				zap.Error(err),
			)
		}
	}
	return &job, nil
}

type memoryEntry struct {
	job       models.TrackedJob
	expiresAt time.Time
}

type pointerEntry struct {
	jobID     string
	expiresAt time.Time
}

// MemoryJobTracker is the single-process tracker used when Redis is not configured.
type MemoryJobTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	jobs     map[string]memoryEntry
	pointers map[string]pointerEntry
	now      func() time.Time
}

func NewMemoryJobTracker(ttl time.Duration) *MemoryJobTracker {
	return &MemoryJobTracker{
		ttl:      ttl,
		jobs:     make(map[string]memoryEntry),
		pointers: make(map[string]pointerEntry),
		now:      time.Now,
	}
}

func (t *MemoryJobTracker) Track(_ context.Context, job models.TrackedJob) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exp := t.now().Add(t.ttl)
	job.ProductIDs = append([]string(nil), job.ProductIDs...)
	t.jobs[job.JobID] = memoryEntry{job: job, expiresAt: exp}
	for _, id := range job.ProductIDs {
		t.pointers[id] = pointerEntry{jobID: job.JobID, expiresAt: exp}
	}
	return nil
}

func (t *MemoryJobTracker) Get(_ context.Context, jobID string) (*models.TrackedJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobID]
	if !ok || t.now().After(e.expiresAt) {
		delete(t.jobs, jobID)
		return nil, ErrJobNotTracked
	}
	job := e.job
	return &job, nil
}

func (t *MemoryJobTracker) PendingJobFor(_ context.Context, productID string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pointers[productID]
	if !ok || t.now().After(p.expiresAt) {
		delete(t.pointers, productID)
		return "", false, nil
	}
	return p.jobID, true, nil
}

func (t *MemoryJobTracker) Settle(_ context.Context, jobID string, productIDs []string) (*models.TrackedJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobID]
	if !ok || t.now().After(e.expiresAt) {
		return nil, ErrJobNotTracked
	}
	e.job.Settle(productIDs, t.now().UTC())
	t.jobs[jobID] = e

	for _, id := range productIDs {
		if p, ok := t.pointers[id]; ok && p.jobID == jobID {
			delete(t.pointers, id)
		}
	}
	job := e.job
	job.SettledIDs = append([]string(nil), e.job.SettledIDs...)
	return &job, nil
}
