package profile

// Skip reasons, reported in this order.
const (
	ReasonUnreachable = "unreachable"
	ReasonError       = "error"
)

// SkipReasons lists every reason class in report order.
var SkipReasons = []string{ReasonUnreachable, ReasonError}

// HostSkip records why a host left the run early.
type HostSkip struct {
	Computer string
	Reason   string
	Err      error
}
