package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"beatmatcher/internal/config"
	"beatmatcher/internal/logging"
	"beatmatcher/internal/queue"
	"beatmatcher/internal/services"
)

// Summary reports what a run did with the queue.
type Summary struct {
	Processed int
	Completed int
	Rejected  int
	Failed    int
	Aborted   bool
}

// Manager coordinates queue processing across a bounded worker pool.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	stages   []pipelineStage
	observer Observer
	gate     *RateGate

	dryRun bool

	failures atomic.Int64

	completed atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
	processed atomic.Int64
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithObserver registers progress callbacks for a run.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithDryRun stops each task after scoring without downloading anything.
func WithDryRun(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.dryRun = enabled
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages StageSet, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		stages:   stages.pipeline(),
		observer: nopObserver{},
		gate:     &RateGate{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drains the pending queue with the configured worker count and
// returns once every claimed task reached a terminal status. Cancelling
// ctx fails the remaining pending tasks; hitting the failure cap aborts
// the batch the same way.
func (m *Manager) Run(ctx context.Context, runID string) (Summary, error) {
	workers := m.cfg.Workflow.MaxConcurrentTasks
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.logger.Info("run started",
		logging.String("run_id", runID),
		logging.Int("workers", workers),
		logging.Bool("dry_run", m.dryRun))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(runCtx, cancel, runID)
		}()
	}
	wg.Wait()

	summary := Summary{
		Processed: int(m.processed.Load()),
		Completed: int(m.completed.Load()),
		Rejected:  int(m.rejected.Load()),
		Failed:    int(m.failed.Load()),
	}

	// Workers stopped while pending tasks remain in one of two cases:
	// outside cancellation or the failure cap. Either way the leftovers
	// must not stay pending.
	cleanupCtx := context.Background()
	if ctx.Err() != nil {
		count, err := m.store.FailPending(cleanupCtx, queue.FailureCancelled, queue.CancelledMessage)
		if err != nil {
			m.logger.Error("failed to mark cancelled tasks", logging.Error(err))
		}
		summary.Failed += int(count)
		m.logger.Info("run cancelled", logging.String("run_id", runID), logging.Int64("abandoned", count))
		return summary, ctx.Err()
	}
	if m.failureLimitReached() {
		summary.Aborted = true
		count, err := m.store.FailPending(cleanupCtx, queue.FailureBatchAborted, queue.BatchAbortedMessage)
		if err != nil {
			m.logger.Error("failed to mark aborted tasks", logging.Error(err))
		}
		summary.Failed += int(count)
		m.logger.Warn("run aborted at failure limit",
			logging.String("run_id", runID),
			logging.Int("failures", int(m.failures.Load())),
			logging.Int64("abandoned", count))
		return summary, fmt.Errorf("aborted after %d failures", m.failures.Load())
	}

	m.logger.Info("run finished",
		logging.String("run_id", runID),
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("rejected", summary.Rejected),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (m *Manager) worker(ctx context.Context, abort context.CancelFunc, runID string) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := m.store.Claim(ctx, runID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("claim failed", logging.Error(err))
			return
		}
		if task == nil {
			return
		}

		m.processed.Add(1)
		m.observer.TaskStarted(task)
		m.processTask(ctx, task)
		m.observer.TaskFinished(task)

		switch task.Status {
		case queue.StatusCompleted:
			m.completed.Add(1)
		case queue.StatusRejected:
			m.rejected.Add(1)
		case queue.StatusFailed:
			m.failed.Add(1)
			if m.failures.Add(1) >= int64(m.maxFailures()) {
				abort()
				return
			}
		}
	}
}

func (m *Manager) processTask(ctx context.Context, task *queue.Task) {
	taskCtx := services.WithTaskID(ctx, task.ID)
	logger := logging.WithContext(taskCtx, m.logger)

	if m.shortCircuitCompleted(taskCtx, task) {
		return
	}

	for _, stg := range m.stages {
		if ctx.Err() != nil {
			task.SetFailed(queue.FailureCancelled, queue.CancelledMessage)
			m.persist(taskCtx, task)
			return
		}
		if queue.IsTerminalStatus(task.Status) {
			break
		}

		stageCtx := services.WithStage(taskCtx, stg.name)
		task.Status = stg.status
		if err := m.runStage(stageCtx, stg, task); err != nil {
			if errors.Is(err, context.Canceled) {
				task.SetFailed(queue.FailureCancelled, queue.CancelledMessage)
				m.persist(taskCtx, task)
				return
			}
			task.SetFailed(services.FailureKind(err), err.Error())
			m.persist(stageCtx, task)
			logging.WithContext(stageCtx, m.logger).Error("stage failed",
				logging.String(logging.FieldTrack, task.Label()),
				logging.Error(err))
			return
		}

		if m.dryRun && stg.status == queue.StatusScoring {
			if !queue.IsTerminalStatus(task.Status) {
				task.Status = queue.StatusCompleted
				task.SetProgress("Dry run", fmt.Sprintf("Would download %s", task.MapName), 100)
			}
			m.persist(taskCtx, task)
			logger.Info("dry run stop",
				logging.String(logging.FieldTrack, task.Label()),
				logging.String("decision", task.Decision))
			return
		}
	}

	if !queue.IsTerminalStatus(task.Status) {
		task.Status = queue.StatusCompleted
		task.SetProgress("Completed", fmt.Sprintf("Placed in %s", task.Bucket), 100)
	}
	m.persist(taskCtx, task)
}

// runStage drives one handler through prepare and execute, persisting the
// task around each step. Rate-limited errors pause every worker and the
// stage retries after the gate clears.
func (m *Manager) runStage(ctx context.Context, stg pipelineStage, task *queue.Task) error {
	if stg.handler == nil {
		return fmt.Errorf("stage %s has no handler", stg.name)
	}

	start := time.Now()
	logger := logging.WithContext(ctx, m.logger)

	if err := m.gate.Wait(ctx); err != nil {
		return err
	}
	if err := stg.handler.Prepare(ctx, task); err != nil {
		return err
	}
	m.persist(ctx, task)

	attempts := m.cfg.Workflow.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if waitErr := m.gate.Wait(ctx); waitErr != nil {
			return waitErr
		}
		err = stg.handler.Execute(ctx, task)
		if err == nil {
			break
		}
		if !errors.Is(err, services.ErrRateLimited) {
			return err
		}
		pause, _ := services.RetryAfterFromError(err)
		if pause <= 0 {
			pause = time.Duration(m.cfg.Workflow.RateLimitPauseSeconds) * time.Second
		}
		logger.Warn("rate limited, pausing all workers",
			logging.String(logging.FieldTrack, task.Label()),
			logging.Duration("pause", pause))
		m.gate.Pause(pause)
	}
	if err != nil {
		return err
	}

	m.persist(ctx, task)
	logger.Info("stage completed",
		logging.String(logging.FieldStage, stg.name),
		logging.String(logging.FieldTrack, task.Label()),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

// shortCircuitCompleted skips tracks whose key already produced a placed
// archive in an earlier run, as long as that archive still exists.
func (m *Manager) shortCircuitCompleted(ctx context.Context, task *queue.Task) bool {
	if task.TrackKey == "" {
		return false
	}
	previous, err := m.store.FindCompletedByKey(ctx, task.TrackKey)
	if err != nil {
		m.logger.Warn("completion lookup failed", logging.Error(err))
		return false
	}
	if previous == nil || previous.ID == task.ID || previous.FinalPath == "" {
		return false
	}
	if _, statErr := os.Stat(previous.FinalPath); statErr != nil {
		return false
	}

	task.Status = queue.StatusCompleted
	task.Decision = previous.Decision
	task.MapID = previous.MapID
	task.MapName = previous.MapName
	task.Bucket = previous.Bucket
	task.FinalPath = previous.FinalPath
	task.SetProgress("Completed", fmt.Sprintf("Already in library: %s", previous.FinalPath), 100)
	m.persist(ctx, task)
	logging.WithContext(ctx, m.logger).Info("track already in library",
		logging.String(logging.FieldTrack, task.Label()),
		logging.String("final_path", previous.FinalPath))
	return true
}

func (m *Manager) persist(ctx context.Context, task *queue.Task) {
	// Persistence must survive run cancellation so terminal states stick.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := m.store.Update(ctx, task); err != nil {
		m.logger.Error("failed to persist task",
			logging.Int64(logging.FieldTaskID, task.ID),
			logging.Error(err))
	}
}

func (m *Manager) maxFailures() int {
	if m.cfg.Workflow.MaxFailures <= 0 {
		return 1
	}
	return m.cfg.Workflow.MaxFailures
}

func (m *Manager) failureLimitReached() bool {
	return m.failures.Load() >= int64(m.maxFailures())
}
