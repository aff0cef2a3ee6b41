// Package deletion removes planned profiles, one host at a time.
package deletion

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/remote"
)

// Deleter runs the deletion routine on one host. The host re-reads every
// profile before touching it.
type Deleter interface {
	Delete(ctx context.Context, host string, sids []string) (*remote.DeleteResult, error)
}

// Executor applies host plans. It never retries.
type Executor struct {
	client Deleter
	log    *logger.Logger
}

func NewExecutor(client Deleter, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{client: client, log: log}
}

// HostReport is the outcome of one host's deletion phase. Outcomes holds
// exactly one entry per planned SID, in SID order. Err is set when the
// routine failed as a whole.
type HostReport struct {
	Computer string
	Outcomes []profile.DeletionOutcome
	Err      error
	Duration time.Duration
}

// Tally counts outcomes by kind.
func (r HostReport) Tally() (deleted, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch {
		case o.Deleted:
			deleted++
		case o.Skipped():
			skipped++
		default:
			failed++
		}
	}
	return deleted, skipped, failed
}

// ExecuteHost deletes the profiles of one plan.
func (e *Executor) ExecuteHost(ctx context.Context, plan profile.HostPlan) HostReport {
	start := time.Now()
	sids := profile.DedupeSIDs(plan.SecurityIDs)
	report := HostReport{Computer: plan.Computer}
	if len(sids) == 0 {
		return report
	}

	e.log.Info("deleting profiles",
		logger.Field{Key: "host", Value: plan.Computer},
		logger.Field{Key: "count", Value: len(sids)},
		logger.Field{Key: "estimated", Value: estimated(plan)})

	res, err := e.client.Delete(ctx, plan.Computer, sids)
	report.Duration = time.Since(start)
	if err != nil {
		report.Err = err
		e.log.Error("deletion phase failed", err, logger.Field{Key: "host", Value: plan.Computer})
		for _, sid := range sids {
			report.Outcomes = append(report.Outcomes, profile.DeletionOutcome{
				Computer:     plan.Computer,
				SecurityID:   sid,
				AccountLabel: plan.LabelFor(sid),
				Code:         profile.CodeException,
				Message:      err.Error(),
			})
		}
		return report
	}

	report.Outcomes = reconcile(plan, sids, res.Outcomes)
	deleted, skipped, failed := report.Tally()
	e.log.Info("deletion phase finished",
		logger.Field{Key: "host", Value: plan.Computer},
		logger.Field{Key: "deleted", Value: deleted},
		logger.Field{Key: "skipped", Value: skipped},
		logger.Field{Key: "failed", Value: failed},
		logger.Field{Key: "duration", Value: report.Duration.String()})
	return report
}

// ExecuteAll runs plans strictly one after another. A failing host does not
// stop the rest.
func (e *Executor) ExecuteAll(ctx context.Context, plans []profile.HostPlan) []HostReport {
	reports := make([]HostReport, 0, len(plans))
	for _, p := range plans {
		reports = append(reports, e.ExecuteHost(ctx, p))
	}
	return reports
}

// reconcile maps host outcomes onto the requested SIDs: the first outcome per
// SID wins, unrequested SIDs are ignored and missing ones become exceptions.
func reconcile(plan profile.HostPlan, sids []string, raw []remote.RawOutcome) []profile.DeletionOutcome {
	got := make(map[string]remote.RawOutcome, len(raw))
	for _, o := range raw {
		if _, dup := got[o.SID]; !dup {
			got[o.SID] = o
		}
	}

	out := make([]profile.DeletionOutcome, 0, len(sids))
	for _, sid := range sids {
		o := profile.DeletionOutcome{
			Computer:     plan.Computer,
			SecurityID:   sid,
			AccountLabel: plan.LabelFor(sid),
		}
		r, ok := got[sid]
		switch {
		case !ok:
			o.Code = profile.CodeException
			o.Message = "host reported no outcome"
		case r.Deleted && r.Code == profile.CodeOK:
			o.Deleted = true
		case r.Code == profile.CodeOK:
			// Not deleted yet reported OK: treat as an exception.
			o.Code = profile.CodeException
			o.Message = nonEmpty(r.Message, "deletion not confirmed")
		default:
			o.Code = r.Code
			o.Message = r.Message
		}
		out = append(out, o)
	}
	return out
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func estimated(plan profile.HostPlan) string {
	if !plan.SizeKnown {
		return "unknown"
	}
	return humanize.IBytes(uint64(plan.KnownBytes))
}
