package constants

// Output tags. Tooling greps for these prefixes, keep them stable.
const (
	TagInfo   = "[INFO]:"
	TagDryRun = "[DRY-RUN]:"
	TagError  = "[ERROR]:"
)

// Report line formats.
const (
	MsgHostsQueried   = "Total Hosts Queried: %d"
	MsgHostsSkipped   = "Skipped host(s) due to %s: %d"
	MsgDeletingOnHost = "Deleting %d profile(s) on %q (%s)"
	MsgDeleteFailed   = "Failed to delete profile %s (%s) on %q: code %d %s"
	MsgHostFailed     = "Deletion phase failed on %q: %v"
	MsgDeletionTally  = "Deleted %d profile(s), skipped %d, failed %d"
)

// Summary table row labels.
const (
	RowProfilesAnalyzed  = "Profiles analyzed"
	RowProfilesEvaluated = "Profiles evaluated"
	RowProfilesEligible  = "Profiles eligible (>= %d days inactive)"
	RowEstimatedData     = "Estimated data to remove"
	NotAvailable         = "N/A"
)
