package services

import (
	"context"
	"sync"
	"time"

	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/logger"
	"golang.org/x/sync/semaphore"
)

// Per-task states. A task moves PENDING → IN_FLIGHT → SUCCEEDED, or loops
// through RETRYING → IN_FLIGHT until retries are exhausted and it lands on
// FAILED. Tracked per task for logging; the batch result only reports
// terminal outcomes.
const (
	TaskPending   = "PENDING"
	TaskInFlight  = "IN_FLIGHT"
	TaskRetrying  = "RETRYING"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
)

// linkTask is one unit of work: create one link of the given type for the
// given vendor.
type linkTask struct {
	index    int
	vendorID *uint
	linkType models.LinkType
}

// TaskFailure records one link that could not be persisted, with enough
// detail (intended uid, vendor, type, error kind) for an operator to
// resubmit just the missing links.
type TaskFailure struct {
	UID      string          `json:"uid"`
	VendorID *uint           `json:"vendor_id"`
	LinkType models.LinkType `json:"link_type"`
	Kind     store.ErrorKind `json:"error_kind"`
	Error    string          `json:"error"`
	Attempts int             `json:"attempts"`
}

// BatchResult is the settled outcome of one batch execution. Requested
// always equals Succeeded+Failed; Links holds exactly the records that
// were persisted.
type BatchResult struct {
	BatchID           string              `json:"batch_id"`
	Requested         int                 `json:"requested"`
	Succeeded         int                 `json:"succeeded"`
	Failed            int                 `json:"failed"`
	Links             []models.SurveyLink `json:"links"`
	Failures          []TaskFailure       `json:"failures,omitempty"`
	TimedOut          bool                `json:"timed_out,omitempty"`
	ThresholdExceeded bool                `json:"threshold_exceeded,omitempty"`
	Duration          time.Duration       `json:"-"`
}

// FailureRatio returns failed/requested, 0 for an empty batch.
func (r *BatchResult) FailureRatio() float64 {
	if r.Requested == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Requested)
}

// linkWriter is the slice of the store the orchestrator needs.
type linkWriter interface {
	Ping(ctx context.Context) error
	CreateSurveyLink(ctx context.Context, link *models.SurveyLink) error
}

// BatchOrchestrator executes a distribution plan against the store with
// bounded concurrency. Unbounded fan-out against a rate-limited store is
// what loses links at the 1000+ scale, so every create runs under a
// semaphore sized from config. Each Run call gets its own semaphore;
// concurrent batches never share in-flight slots.
type BatchOrchestrator struct {
	store linkWriter
	uids  UIDGenerator
	cfg   config.GenerationConfig
}

func NewBatchOrchestrator(st linkWriter, uids UIDGenerator, cfg config.GenerationConfig) *BatchOrchestrator {
	return &BatchOrchestrator{store: st, uids: uids, cfg: cfg}
}

// Run executes the plan and returns a settled accounting of every task.
// Per-task errors never propagate: they are classified, retried where
// retryable, and recorded in Failures when exhausted. The only top-level
// error is an unreachable store detected before any task starts.
//
// The batch is bounded by the configured timeout; on expiry, tasks not yet
// started are recorded as failures and the result carries TimedOut rather
// than an opaque error.
func (o *BatchOrchestrator) Run(ctx context.Context, plan []Allocation, bc BuildContext) (*BatchResult, error) {
	start := time.Now()

	if err := o.store.Ping(ctx); err != nil {
		return nil, err
	}

	tasks := expandPlan(plan)
	result := &BatchResult{
		BatchID:   bc.BatchID,
		Requested: len(tasks),
		Links:     make([]models.SurveyLink, 0, len(tasks)),
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.BatchTimeout())
	defer cancel()

	sem := semaphore.NewWeighted(int64(o.cfg.Concurrency))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	logger.Info().
		Str("batch_id", bc.BatchID).
		Uint("project_id", bc.ProjectID).
		Int("requested", result.Requested).
		Int("concurrency", o.cfg.Concurrency).
		Msg("batch executing")

	for _, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Deadline hit before this task could start. It is abandoned,
			// not silently dropped: account for it and keep draining the
			// remaining tasks the same way.
			mu.Lock()
			result.Failures = append(result.Failures, TaskFailure{
				VendorID: task.vendorID,
				LinkType: task.linkType,
				Kind:     store.KindTransient,
				Error:    "batch timeout before task start",
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(task linkTask) {
			defer wg.Done()
			defer sem.Release(1)

			link, failure := o.runTask(ctx, task, bc)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				result.Failures = append(result.Failures, *failure)
				return
			}
			result.Links = append(result.Links, *link)
		}(task)
	}

	wg.Wait()

	result.Succeeded = len(result.Links)
	result.Failed = result.Requested - result.Succeeded
	result.TimedOut = ctx.Err() != nil
	result.ThresholdExceeded = result.FailureRatio() > o.cfg.FailureThreshold
	result.Duration = time.Since(start)

	event := logger.Info()
	if result.Failed > 0 {
		event = logger.Warn()
	}
	event.
		Str("batch_id", bc.BatchID).
		Int("requested", result.Requested).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("timed_out", result.TimedOut).
		Dur("duration", result.Duration).
		Msg("batch settled")

	return result, nil
}

// runTask creates one link, retrying transient store errors with
// exponential backoff and regenerating the uid on conflict. Returns the
// persisted link or a terminal failure, never both.
func (o *BatchOrchestrator) runTask(ctx context.Context, task linkTask, bc BuildContext) (*models.SurveyLink, *TaskFailure) {
	uid := o.uids.Generate()
	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, &TaskFailure{
				UID:      uid,
				VendorID: task.vendorID,
				LinkType: task.linkType,
				Kind:     store.KindTransient,
				Error:    "batch timeout while in flight",
				Attempts: attempts,
			}
		}

		attempts++
		link := BuildLink(bc, uid, task.vendorID, task.linkType)

		err := o.store.CreateSurveyLink(ctx, &link)
		if err == nil {
			return &link, nil
		}
		lastErr = err

		switch store.KindOf(err) {
		case store.KindConflict:
			// uid collision within the project: never overwrite, take a
			// fresh uid and try again immediately.
			logger.Debug().
				Str("batch_id", bc.BatchID).
				Str("uid", uid).
				Str("task_state", TaskRetrying).
				Msg("uid conflict, regenerating")
			uid = o.uids.Generate()
		case store.KindTransient:
			logger.Debug().
				Str("batch_id", bc.BatchID).
				Str("uid", uid).
				Str("task_state", TaskRetrying).
				Int("attempt", attempts).
				Msg("transient store error, backing off")
			select {
			case <-ctx.Done():
			case <-time.After(o.backoff(attempt)):
			}
		default:
			// Validation, not-found, unknown: terminal for this task.
			return nil, &TaskFailure{
				UID:      uid,
				VendorID: task.vendorID,
				LinkType: task.linkType,
				Kind:     store.KindOf(err),
				Error:    err.Error(),
				Attempts: attempts,
			}
		}
	}

	return nil, &TaskFailure{
		UID:      uid,
		VendorID: task.vendorID,
		LinkType: task.linkType,
		Kind:     store.KindOf(lastErr),
		Error:    lastErr.Error(),
		Attempts: attempts,
	}
}

// backoff doubles the base delay per attempt: base, 2x, 4x, ...
func (o *BatchOrchestrator) backoff(attempt int) time.Duration {
	return o.cfg.RetryBaseDelay() * time.Duration(1<<attempt)
}

// expandPlan flattens allocations into one task per link.
func expandPlan(plan []Allocation) []linkTask {
	var tasks []linkTask
	for _, alloc := range plan {
		for i := 0; i < alloc.Quantity; i++ {
			tasks = append(tasks, linkTask{
				index:    len(tasks),
				vendorID: alloc.VendorID,
				linkType: alloc.LinkType,
			})
		}
	}
	return tasks
}
