// Package report folds run results into counters and renders the
// operator-facing output.
package report

import (
	"math"
	"sort"

	"github.com/aatumaykin/profsweep/internal/profile"
)

// Summary holds the run-wide counters.
type Summary struct {
	InactiveDays int
	DryRun       bool

	HostsQueried int
	Skipped      []profile.HostSkip

	Analyzed  int
	Evaluated int
	Eligible  int

	KnownBytes int64
	SizeKnown  bool

	Plans []profile.HostPlan

	Deleted       int
	DeleteSkipped int
	DeleteFailed  int
	HostsFailed   int
	DeletionRan   bool
}

// SkippedCount is the number of distinct skipped hosts.
func (s Summary) SkippedCount() int {
	seen := make(map[string]struct{}, len(s.Skipped))
	for _, sk := range s.Skipped {
		seen[sk.Computer] = struct{}{}
	}
	return len(seen)
}

// SkippedBy counts skipped hosts per reason.
func (s Summary) SkippedBy() map[string]int {
	out := map[string]int{}
	for _, sk := range s.Skipped {
		out[sk.Reason]++
	}
	return out
}

// Reasons lists the reason classes present, in report order. With nothing
// skipped it lists every class.
func (s Summary) Reasons() []string {
	by := s.SkippedBy()
	var out []string
	for _, r := range profile.SkipReasons {
		if by[r] > 0 {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), profile.SkipReasons...)
	}
	return out
}

// EstimatedGB is KnownBytes in GiB rounded to two decimals. ok is false when
// no eligible record reported a size.
func (s Summary) EstimatedGB() (gb float64, ok bool) {
	if !s.SizeKnown {
		return 0, false
	}
	return math.Round(float64(s.KnownBytes)/(1<<30)*100) / 100, true
}

// Aggregator accumulates a Summary. It is used from the coordinating
// goroutine only.
type Aggregator struct {
	s Summary
}

func NewAggregator(inactiveDays int, dryRun bool) *Aggregator {
	return &Aggregator{s: Summary{InactiveDays: inactiveDays, DryRun: dryRun}}
}

// Targets records the size of the original host set.
func (a *Aggregator) Targets(n int) {
	a.s.HostsQueried = n
}

// Skip adds skipped hosts. A host already skipped keeps its first reason.
func (a *Aggregator) Skip(skips ...profile.HostSkip) {
	for _, sk := range skips {
		dup := false
		for _, have := range a.s.Skipped {
			if have.Computer == sk.Computer {
				dup = true
				break
			}
		}
		if !dup {
			a.s.Skipped = append(a.s.Skipped, sk)
		}
	}
	sort.SliceStable(a.s.Skipped, func(i, j int) bool {
		return a.s.Skipped[i].Computer < a.s.Skipped[j].Computer
	})
}

// Records adds collected records and the raw profile count behind them, and
// builds the host plans from the eligible ones.
func (a *Aggregator) Records(analyzed int, records []profile.Record) []profile.HostPlan {
	a.s.Analyzed += analyzed
	a.s.Evaluated += len(records)

	plans := profile.BuildPlans(records)
	for _, p := range plans {
		a.s.Eligible += p.Len()
		a.s.KnownBytes += p.KnownBytes
		if p.SizeKnown {
			a.s.SizeKnown = true
		}
	}
	a.s.Plans = append(a.s.Plans, plans...)
	return plans
}

// Outcomes folds one host's deletion outcomes. hostErr marks a failed phase.
func (a *Aggregator) Outcomes(outcomes []profile.DeletionOutcome, hostErr error) {
	a.s.DeletionRan = true
	if hostErr != nil {
		a.s.HostsFailed++
	}
	for _, o := range outcomes {
		switch {
		case o.Deleted:
			a.s.Deleted++
		case o.Skipped():
			a.s.DeleteSkipped++
		default:
			a.s.DeleteFailed++
		}
	}
}

// Summary returns a copy of the counters.
func (a *Aggregator) Summary() Summary {
	s := a.s
	s.Skipped = append([]profile.HostSkip(nil), a.s.Skipped...)
	s.Plans = append([]profile.HostPlan(nil), a.s.Plans...)
	return s
}
