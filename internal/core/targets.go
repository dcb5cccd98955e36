package core

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type PrinterTarget struct {
	Host    string `json:"host,omitempty"`
	Share   string `json:"share,omitempty"`
	Address string `json:"address"`
}

// ShareAddress builds the UNC path of a printer shared from host.
func ShareAddress(host, share string) string {
	return `\\` + host + `\` + share
}

// TargetSet lists the printer shares for one job kind, primary first, plus
// any network printers tried after the shares.
type TargetSet struct {
	Shares  []string
	Network []string
}

type ResolverOptions struct {
	Targets map[JobKind]TargetSet
	// Hostname is consulted on every resolution; defaults to os.Hostname.
	Hostname func() (string, error)
	// SerializeTargets holds a per-address lock while a job is using it.
	SerializeTargets bool
	Observer         Observer
	Logger           *zap.Logger
}

type Deliverer interface {
	Deliver(ctx context.Context, job *RenderedJob, address string) (int, error)
}

// Resolver maps job kinds to candidate printer addresses and runs whole-job
// failover across them.
type Resolver struct {
	targets   map[JobKind]TargetSet
	hostname  func() (string, error)
	serialize bool
	observer  Observer
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		targets:   opts.Targets,
		hostname:  opts.Hostname,
		serialize: opts.SerializeTargets,
		observer:  opts.Observer,
		logger:    opts.Logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (r *Resolver) ResolveTargets(kind JobKind) []PrinterTarget {
	set := r.targets[kind]

	var targets []PrinterTarget
	if len(set.Shares) > 0 {
		host, err := r.hostname()
		if err != nil || host == "" {
			r.logger.Warn("hostname unavailable, falling back to localhost", zap.Error(err))
			host = "localhost"
		}
		for _, share := range set.Shares {
			share = strings.TrimSpace(share)
			if share == "" {
				continue
			}
			targets = append(targets, PrinterTarget{Host: host, Share: share, Address: ShareAddress(host, share)})
		}
	}
	for _, addr := range set.Network {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		targets = append(targets, PrinterTarget{Address: addr})
	}
	return targets
}

// RunWithFailover tries each target in order until one accepts every copy.
// A target that fails mid-run is abandoned as a whole; copies already sent to
// it are not credited.
func (r *Resolver) RunWithFailover(ctx context.Context, d Deliverer, job *RenderedJob) (PrinterTarget, int, error) {
	if len(job.Targets) == 0 {
		return PrinterTarget{}, 0, ErrNoTargets
	}

	var lastErr error
	for i, target := range job.Targets {
		err := r.deliverTo(ctx, d, job, target.Address)
		if err == nil {
			return target, i + 1, nil
		}

		lastErr = err
		r.observer.TargetFailed(job.Kind, target.Address)
		if i < len(job.Targets)-1 {
			r.logger.Warn("target failed, trying next",
				zap.String("job_id", job.ID),
				zap.String("target", target.Address),
				zap.String("next", job.Targets[i+1].Address),
				zap.Error(err),
			)
		}
	}

	return PrinterTarget{}, len(job.Targets), &AllTargetsExhaustedError{Attempts: len(job.Targets), Last: lastErr}
}

func (r *Resolver) deliverTo(ctx context.Context, d Deliverer, job *RenderedJob, address string) error {
	if r.serialize {
		lock := r.lockFor(address)
		lock.Lock()
		defer lock.Unlock()
	}
	_, err := d.Deliver(ctx, job, address)
	return err
}

func (r *Resolver) lockFor(address string) *sync.Mutex {
	key := strings.ToLower(address)
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}
