package crawler

import "fmt"

// State is the phase of a run
type State int

const (
	Idle State = iota
	ListingFetched
	DetailsPending
	DetailsComplete
	Finalized
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ListingFetched:
		return "listing-fetched"
	case DetailsPending:
		return "details-pending"
	case DetailsComplete:
		return "details-complete"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// canMove lists the allowed transitions. Failed is only reachable before
// detail processing starts.
func canMove(from, to State) bool {
	switch to {
	case ListingFetched:
		return from == Idle
	case DetailsPending:
		return from == ListingFetched
	case DetailsComplete:
		return from == DetailsPending
	case Finalized:
		return from == DetailsComplete
	case Failed:
		return from == Idle || from == ListingFetched
	}
	return false
}
