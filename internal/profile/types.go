// Package profile holds the fleet-wide data model for local user profiles and
// the pure policy functions applied to it: last-use normalization, eligibility,
// identity fallback and per-host deletion planning.
//
// Nothing in this package performs I/O.
package profile

import (
	"time"
)

// Outcome codes carried by DeletionOutcome.Code besides the platform status.
const (
	CodeOK        = 0
	CodeSkipped   = -1 // not found, currently loaded or special
	CodeException = -2 // the attempt raised instead of returning a status
)

// Record is one discovered local profile on a host.
type Record struct {
	Computer     string     // owning host identifier
	SecurityID   string     // SID of the owning principal
	AccountLabel string     // best-effort display name, never empty
	LocalPath    string     // profile storage root
	LastUseUTC   *time.Time // nil when unknown
	Eligible     bool       // computed once against the run cutoff
	SizeBytes    *int64     // nil when the host could not report it cheaply
}

// LastUseKnown reports whether the record carries a normalized last-use instant.
func (r Record) LastUseKnown() bool {
	return r.LastUseUTC != nil
}

// HostPlan is the deletion plan for one host, built from eligible records only.
// SecurityIDs are deduplicated and sorted; Labels is parallel to SecurityIDs.
type HostPlan struct {
	Computer    string
	SecurityIDs []string
	Labels      []string
	KnownBytes  int64
	SizeKnown   bool // at least one planned record reported a size
}

// Len returns the number of planned deletions.
func (p HostPlan) Len() int {
	return len(p.SecurityIDs)
}

// LabelFor returns the account label planned for sid, or sid itself.
func (p HostPlan) LabelFor(sid string) string {
	for i, s := range p.SecurityIDs {
		if s == sid && i < len(p.Labels) {
			return p.Labels[i]
		}
	}
	return sid
}

// DeletionOutcome is the result of one attempted identifier.
type DeletionOutcome struct {
	Computer     string
	SecurityID   string
	AccountLabel string
	Deleted      bool
	Code         int
	Message      string
}

// Skipped reports whether the host declined the attempt because the profile
// vanished, was loaded or is special.
func (o DeletionOutcome) Skipped() bool {
	return !o.Deleted && o.Code == CodeSkipped
}

// Failed reports whether the attempt failed with a status or an exception.
func (o DeletionOutcome) Failed() bool {
	return !o.Deleted && o.Code != CodeSkipped
}
