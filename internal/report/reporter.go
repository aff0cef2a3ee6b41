package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/aatumaykin/profsweep/internal/constants"
	"github.com/aatumaykin/profsweep/internal/profile"
)

// Reporter writes tagged, line-oriented output.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) line(tag, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

// Counters prints the hosts queried and hosts skipped lines.
func (r *Reporter) Counters(s Summary) {
	r.line(constants.TagInfo, constants.MsgHostsQueried, s.HostsQueried)
	r.line(constants.TagInfo, constants.MsgHostsSkipped, strings.Join(s.Reasons(), ", "), s.SkippedCount())
}

// HostPlan prints the per-host deletion line.
func (r *Reporter) HostPlan(p profile.HostPlan, dryRun bool) {
	tag := constants.TagInfo
	if dryRun {
		tag = constants.TagDryRun
	}
	r.line(tag, constants.MsgDeletingOnHost, p.Len(), p.Computer, strings.Join(p.Labels, ", "))
}

// Outcomes prints a line per failed outcome and one for a failed phase.
func (r *Reporter) Outcomes(host string, outcomes []profile.DeletionOutcome, hostErr error) {
	if hostErr != nil {
		r.line(constants.TagError, constants.MsgHostFailed, host, hostErr)
		return
	}
	for _, o := range outcomes {
		if o.Failed() {
			r.line(constants.TagError, constants.MsgDeleteFailed, o.AccountLabel, o.SecurityID, o.Computer, o.Code, o.Message)
		}
	}
}

// Tally prints the deletion totals.
func (r *Reporter) Tally(s Summary) {
	r.line(constants.TagInfo, constants.MsgDeletionTally, s.Deleted, s.DeleteSkipped, s.DeleteFailed)
}

// Error prints a fatal condition.
func (r *Reporter) Error(err error) {
	r.line(constants.TagError, "%v", err)
}

// Table renders the summary table.
func (r *Reporter) Table(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	RenderTable(r.w, s)
}

// Rows returns the summary table rows.
func Rows(s Summary) [][]string {
	estimate := constants.NotAvailable
	if gb, ok := s.EstimatedGB(); ok {
		estimate = strconv.FormatFloat(gb, 'f', 2, 64) + " GB"
	}
	return [][]string{
		{constants.RowProfilesAnalyzed, strconv.Itoa(s.Analyzed)},
		{constants.RowProfilesEvaluated, strconv.Itoa(s.Evaluated)},
		{fmt.Sprintf(constants.RowProfilesEligible, s.InactiveDays), strconv.Itoa(s.Eligible)},
		{constants.RowEstimatedData, estimate},
	}
}

// RenderTable writes the bordered summary table to w.
func RenderTable(w io.Writer, s Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.AppendBulk(Rows(s))
	table.Render()
}

// Text renders counters, host lines and the table as one string, the way a
// run printed them.
func Text(s Summary) string {
	var b strings.Builder
	r := NewReporter(&b)
	r.Counters(s)
	for _, p := range s.Plans {
		r.HostPlan(p, s.DryRun)
	}
	if s.DeletionRan {
		r.Tally(s)
	}
	r.Table(s)
	return b.String()
}
