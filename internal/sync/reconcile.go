package sync

// Reason explains a Plan
type Reason string

// Plan reasons
const (
	ReasonUpToDate Reason = "up-to-date"
	ReasonBehind   Reason = "behind"
	ReasonDrift    Reason = "drift"
)

// Plan is the outcome of reconciling the local and remote counts of a thread
type Plan struct {
	Local  int64
	Remote int64
	// Target is how many messages to download
	Target int64
	Reason Reason
}

// Reconcile decides how many messages a thread needs. A nil or negative
// remote count cannot be reconciled and yields a KindRemoteCountUnavailable
// error.
func Reconcile(local int64, remote *int64) (Plan, error) {
	if remote == nil || *remote < 0 {
		return Plan{Local: local}, &Error{Kind: KindRemoteCountUnavailable}
	}

	p := Plan{Local: local, Remote: *remote}
	switch {
	case local == *remote:
		p.Reason = ReasonUpToDate
	case local > *remote:
		// drifted: fetch everything again, upserts keep it idempotent
		p.Target = *remote
		p.Reason = ReasonDrift
	default:
		p.Target = *remote - local
		p.Reason = ReasonBehind
	}
	return p, nil
}
