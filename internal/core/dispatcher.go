package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Observer receives delivery events, e.g. for metrics.
type Observer interface {
	CopyDelivered(kind JobKind, address string, elapsed time.Duration)
	CopyFailed(kind JobKind, address string)
	TargetFailed(kind JobKind, address string)
	JobFinished(kind JobKind, status JobStatus, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CopyDelivered(JobKind, string, time.Duration)  {}
func (nopObserver) CopyFailed(JobKind, string)                    {}
func (nopObserver) TargetFailed(JobKind, string)                  {}
func (nopObserver) JobFinished(JobKind, JobStatus, time.Duration) {}

type DispatcherOptions struct {
	TempDir     string
	FilePrefix  string
	Transmitter Transmitter
	Observer    Observer
	Logger      *zap.Logger
}

// Dispatcher delivers N copies of a rendered buffer to a single target, one
// spool file per copy.
type Dispatcher struct {
	tempDir     string
	prefix      string
	transmitter Transmitter
	observer    Observer
	logger      *zap.Logger
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.FilePrefix == "" {
		opts.FilePrefix = "printjob"
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Dispatcher{
		tempDir:     opts.TempDir,
		prefix:      opts.FilePrefix,
		transmitter: opts.Transmitter,
		observer:    opts.Observer,
		logger:      opts.Logger,
	}
}

// Deliver sends every copy sequentially and stops at the first failure. The
// returned count is the number of copies accepted before that failure.
// Cancelling ctx does not interrupt a copy in flight.
func (d *Dispatcher) Deliver(ctx context.Context, job *RenderedJob, address string) (int, error) {
	ctx = context.WithoutCancel(ctx)
	log := d.logger.With(
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("target", address),
	)

	log.Info("delivering copies", zap.Int("copies", job.Copies))

	for copyNum := 1; copyNum <= job.Copies; copyNum++ {
		start := time.Now()
		if err := d.deliverCopy(ctx, job, address, copyNum, log); err != nil {
			d.observer.CopyFailed(job.Kind, address)
			log.Error("copy failed", zap.Int("copy", copyNum), zap.Error(err))
			return copyNum - 1, &TransmitError{Target: address, Copy: copyNum, Err: err}
		}
		d.observer.CopyDelivered(job.Kind, address, time.Since(start))
		log.Info("copy delivered", zap.Int("copy", copyNum))
	}
	return job.Copies, nil
}

func (d *Dispatcher) deliverCopy(ctx context.Context, job *RenderedJob, address string, copyNum int, log *zap.Logger) error {
	pattern := fmt.Sprintf("%s-%s-%d-%d-*.tmp", d.prefix, shortID(job.ID), time.Now().UnixNano(), copyNum)
	f, err := os.CreateTemp(d.tempDir, pattern)
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("failed to remove spool file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	if _, err := f.Write(job.Data); err != nil {
		f.Close()
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close spool file: %w", err)
	}

	return d.transmitter.Transmit(ctx, path, address)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "job"
	}
	return id
}
