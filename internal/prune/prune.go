// Package prune runs one fleet pass: discover, probe, inventory, plan, and in
// apply mode delete, then report.
package prune

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aatumaykin/profsweep/internal/deletion"
	"github.com/aatumaykin/profsweep/internal/directory"
	"github.com/aatumaykin/profsweep/internal/inventory"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/metrics"
	"github.com/aatumaykin/profsweep/internal/notify"
	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/reach"
	"github.com/aatumaykin/profsweep/internal/report"
	"github.com/aatumaykin/profsweep/internal/retry"
	"github.com/aatumaykin/profsweep/internal/workers"
)

var (
	ErrInvalidThreshold = errors.New("inactive days must be zero or greater")
	ErrNoTargets        = errors.New("no target hosts: pass --computers or configure a host source")
	ErrNoReachableHosts = errors.New("no reachable hosts")
)

// Options are the per-run parameters.
type Options struct {
	InactiveDays     int
	DryRun           bool
	Concurrency      int
	ProbeConcurrency int
	UsersRoot        string
	Retry            retry.Policy
}

// Deps are the collaborators of a run. Source, Prober and Remote are
// required; the rest may be nil.
type Deps struct {
	Source   directory.Source
	Prober   reach.Prober
	Remote   Remote
	Resolver profile.Resolver
	Metrics  *metrics.RunMetrics
	Notifier notify.Notifier
	// MetricsTextfile is written after each run when set.
	MetricsTextfile string
	Out             io.Writer
	Log             *logger.Logger
	Now             func() time.Time
}

// Remote is what a run needs from the remote task client.
type Remote interface {
	inventory.Inventorier
	deletion.Deleter
}

// Runner executes runs. A Runner carries no state between runs.
type Runner struct {
	opts Options
	deps Deps
}

func NewRunner(opts Options, deps Deps) *Runner {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = opts.Concurrency
	}
	return &Runner{opts: opts, deps: deps}
}

// Run performs one pass. Per-host failures never surface here; only
// an invalid threshold, a missing host source, discovery failure and an
// empty reachable set abort the run.
func (r *Runner) Run(ctx context.Context) (report.Summary, error) {
	start := r.deps.Now()
	agg := report.NewAggregator(r.opts.InactiveDays, r.opts.DryRun)
	out := report.NewReporter(r.deps.Out)

	err := r.run(ctx, agg, out)
	summary := agg.Summary()
	if err != nil {
		out.Error(err)
	}

	r.finish(ctx, summary, err, start)
	return summary, err
}

func (r *Runner) run(ctx context.Context, agg *report.Aggregator, out *report.Reporter) error {
	log := r.deps.Log
	if r.opts.InactiveDays < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, r.opts.InactiveDays)
	}
	if r.deps.Source == nil {
		return ErrNoTargets
	}

	phase := time.Now()
	hosts, err := retry.Do(ctx, r.opts.Retry, log, func(ctx context.Context) ([]string, error) {
		return r.deps.Source.Hosts(ctx)
	})
	r.observe("discovery", phase)
	if err != nil {
		return fmt.Errorf("host discovery failed: %w", err)
	}
	hosts = directory.NormalizeHosts(hosts)
	if len(hosts) == 0 {
		return ErrNoTargets
	}
	agg.Targets(len(hosts))

	// One cutoff for the whole fleet, fixed before any remote call.
	cutoff := profile.Cutoff(r.deps.Now(), r.opts.InactiveDays)
	log.Info("run started",
		logger.Field{Key: "hosts", Value: len(hosts)},
		logger.Field{Key: "dry_run", Value: r.opts.DryRun},
		logger.Field{Key: "inactive_days", Value: r.opts.InactiveDays},
		logger.Field{Key: "cutoff", Value: cutoff.Format(time.RFC3339)})

	phase = time.Now()
	part := reach.Filter(ctx, hosts, r.deps.Prober, r.opts.ProbeConcurrency, log, r.observers()...)
	r.observe("reachability", phase)
	log.Info("reachability checked", logger.Field{Key: "result", Value: part.String()})
	agg.Skip(part.Unreachable...)

	if len(part.Reachable) == 0 {
		out.Counters(agg.Summary())
		return fmt.Errorf("%w: %d of %d hosts unreachable", ErrNoReachableHosts, len(part.Unreachable), len(hosts))
	}

	phase = time.Now()
	collector := inventory.NewCollector(r.deps.Remote, r.deps.Resolver, inventory.Config{
		UsersRoot:   r.opts.UsersRoot,
		Concurrency: r.opts.Concurrency,
		Retry:       r.opts.Retry,
		Observer:    r.observer(),
	}, log)
	inv := collector.Collect(ctx, part.Reachable, cutoff)
	r.observe("inventory", phase)
	agg.Skip(inv.Skipped...)

	plans := agg.Records(inv.Analyzed, inv.Records)
	summary := agg.Summary()
	out.Counters(summary)
	for _, sk := range summary.Skipped {
		log.Debug("host skipped",
			logger.Field{Key: "host", Value: sk.Computer},
			logger.Field{Key: "reason", Value: sk.Reason})
	}

	phase = time.Now()
	executor := deletion.NewExecutor(r.deps.Remote, log)
	for _, plan := range plans {
		out.HostPlan(plan, r.opts.DryRun)
		if r.opts.DryRun {
			continue
		}
		rep := executor.ExecuteHost(ctx, plan)
		agg.Outcomes(rep.Outcomes, rep.Err)
		out.Outcomes(plan.Computer, rep.Outcomes, rep.Err)
	}
	if !r.opts.DryRun {
		r.observe("deletion", phase)
		out.Tally(agg.Summary())
	}

	out.Table(agg.Summary())
	return nil
}

// finish records metrics and sends the notification. Failures here are
// logged and never change the run result.
func (r *Runner) finish(ctx context.Context, s report.Summary, runErr error, start time.Time) {
	log := r.deps.Log
	end := r.deps.Now()

	if m := r.deps.Metrics; m != nil {
		m.ObservePhase("total", end.Sub(start))
		m.Record(s, runErr == nil, end)
		if r.deps.MetricsTextfile != "" {
			if err := m.WriteTextfile(r.deps.MetricsTextfile); err != nil {
				log.Error("failed to write metrics textfile", err,
					logger.Field{Key: "path", Value: r.deps.MetricsTextfile})
			}
		}
	}

	if err := r.deps.Notifier.Notify(ctx, s, runErr); err != nil {
		log.Error("failed to send run notification", err)
	}

	fields := []logger.Field{
		{Key: "hosts_queried", Value: s.HostsQueried},
		{Key: "hosts_skipped", Value: s.SkippedCount()},
		{Key: "eligible", Value: s.Eligible},
		{Key: "duration", Value: end.Sub(start).String()},
	}
	if runErr != nil {
		log.Error("run aborted", runErr, fields...)
		return
	}
	log.Info("run finished", fields...)
}

func (r *Runner) observe(phase string, since time.Time) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObservePhase(phase, time.Since(since))
	}
}

func (r *Runner) observer() workers.Observer {
	if r.deps.Metrics == nil {
		return nil
	}
	return r.deps.Metrics.TaskObserver()
}

func (r *Runner) observers() []workers.Observer {
	if o := r.observer(); o != nil {
		return []workers.Observer{o}
	}
	return nil
}
