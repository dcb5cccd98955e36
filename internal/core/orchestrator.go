package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobRecorder persists the outcome of each job.
type JobRecorder interface {
	RecordJob(ctx context.Context, result *JobResult) error
}

// EventSender publishes job outcomes to external listeners.
type EventSender interface {
	SendJobDelivered(result *JobResult)
	SendJobFailed(result *JobResult)
}

type OrchestratorOptions struct {
	Renderer   *Renderer
	Dispatcher Deliverer
	Resolver   *Resolver
	Recorder   JobRecorder
	Events     EventSender
	Observer   Observer
	Logger     *zap.Logger
	NewID      func() string
}

// Orchestrator runs one job end to end: render, resolve targets, deliver
// with failover. It never reports partial success.
type Orchestrator struct {
	renderer   *Renderer
	dispatcher Deliverer
	resolver   *Resolver
	recorder   JobRecorder
	events     EventSender
	observer   Observer
	logger     *zap.Logger
	newID      func() string
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		renderer:   opts.Renderer,
		dispatcher: opts.Dispatcher,
		resolver:   opts.Resolver,
		recorder:   opts.Recorder,
		events:     opts.Events,
		observer:   opts.Observer,
		logger:     opts.Logger,
		newID:      opts.NewID,
	}
}

// Targets exposes the current candidate list for a kind.
func (o *Orchestrator) Targets(kind JobKind) []PrinterTarget {
	return o.resolver.ResolveTargets(kind)
}

// Submit assumes the caller has validated required fields. The returned
// result is always non-nil; err is set when the job failed.
func (o *Orchestrator) Submit(ctx context.Context, job Job) (*JobResult, error) {
	start := time.Now()
	result := &JobResult{
		JobID:  o.newID(),
		Kind:   job.Kind(),
		Copies: CopiesFor(job),
	}
	log := o.logger.With(zap.String("job_id", result.JobID), zap.String("kind", string(result.Kind)))

	err := o.run(ctx, job, result, log)

	result.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = JobStatusFailed
		result.Error = err.Error()
		log.Error("job failed", zap.Int("attempts", result.Attempts), zap.Error(err))
	} else {
		result.Status = JobStatusDelivered
		log.Info("job delivered",
			zap.String("target", result.Target),
			zap.Int("copies", result.Copies),
			zap.Int("attempts", result.Attempts),
		)
	}

	o.observer.JobFinished(result.Kind, result.Status, time.Since(start))
	o.record(ctx, result, log)
	o.publish(result)

	return result, err
}

func (o *Orchestrator) run(ctx context.Context, job Job, result *JobResult, log *zap.Logger) error {
	data, err := o.renderer.Render(job)
	if err != nil {
		return fmt.Errorf("render %s: %w", result.Kind, err)
	}

	rendered := &RenderedJob{
		ID:      result.JobID,
		Kind:    result.Kind,
		Data:    data,
		Copies:  result.Copies,
		Targets: o.resolver.ResolveTargets(result.Kind),
	}
	log.Debug("job rendered", zap.Int("bytes", len(data)), zap.Int("targets", len(rendered.Targets)))

	target, attempts, err := o.resolver.RunWithFailover(ctx, o.dispatcher, rendered)
	result.Attempts = attempts
	if err != nil {
		return err
	}
	result.Target = target.Address
	result.Delivered = result.Copies
	return nil
}

func (o *Orchestrator) record(ctx context.Context, result *JobResult, log *zap.Logger) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordJob(context.WithoutCancel(ctx), result); err != nil {
		log.Warn("failed to record job", zap.Error(err))
	}
}

func (o *Orchestrator) publish(result *JobResult) {
	if o.events == nil {
		return
	}
	if result.Status == JobStatusDelivered {
		o.events.SendJobDelivered(result)
	} else {
		o.events.SendJobFailed(result)
	}
}
