package profile

import (
	"sort"
	"strings"

	"github.com/juju/collections/set"
)

// BuildPlans groups eligible records per host. Ineligible records never reach
// a plan. The result is sorted by host, SIDs are deduplicated and sorted.
func BuildPlans(records []Record) []HostPlan {
	type entry struct {
		label string
		size  *int64
	}
	byHost := make(map[string]map[string]entry)

	for _, r := range records {
		if !r.Eligible || r.SecurityID == "" || r.Computer == "" {
			continue
		}
		sids, ok := byHost[r.Computer]
		if !ok {
			sids = make(map[string]entry)
			byHost[r.Computer] = sids
		}
		if _, dup := sids[r.SecurityID]; dup {
			continue
		}
		sids[r.SecurityID] = entry{label: r.AccountLabel, size: r.SizeBytes}
	}

	plans := make([]HostPlan, 0, len(byHost))
	for host, sids := range byHost {
		plan := HostPlan{Computer: host}
		for sid := range sids {
			plan.SecurityIDs = append(plan.SecurityIDs, sid)
		}
		sort.Strings(plan.SecurityIDs)
		for _, sid := range plan.SecurityIDs {
			e := sids[sid]
			plan.Labels = append(plan.Labels, AccountLabel(e.label, "", sid))
			if e.size != nil {
				plan.KnownBytes += *e.size
				plan.SizeKnown = true
			}
		}
		plans = append(plans, plan)
	}

	sort.Slice(plans, func(i, j int) bool {
		return strings.ToUpper(plans[i].Computer) < strings.ToUpper(plans[j].Computer)
	})
	return plans
}

// DedupeSIDs returns sids without blanks or duplicates, sorted.
func DedupeSIDs(sids []string) []string {
	unique := set.NewStrings()
	for _, sid := range sids {
		if sid = strings.TrimSpace(sid); sid != "" {
			unique.Add(sid)
		}
	}
	return unique.SortedValues()
}
