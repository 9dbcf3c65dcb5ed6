package lending

// =============================================================================
// TRANSITION TABLE
// =============================================================================

// transitions enumerates every legal status change. Approval states may be
// re-entered from one another because each entry recomputes and overwrites
// the offer fields; everything else is one-way.
var transitions = map[Status][]Status{
	StatusSubmitted: {
		StatusReadyToDisburse,
		StatusOfferAccepted,
		StatusDeclined,
	},
	StatusReadyToDisburse: {
		StatusOfferAccepted,
		StatusDisbursed,
		StatusDeclined,
	},
	StatusOfferAccepted: {
		StatusReadyToDisburse,
		StatusDisbursed,
		StatusDeclined,
	},
	StatusDisbursed: {
		StatusActive,
	},
	// StatusActive and StatusDeclined are terminal: no outgoing edges.
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatuses lists every known status, for input validation.
func ValidStatuses() []Status {
	return []Status{
		StatusSubmitted,
		StatusReadyToDisburse,
		StatusOfferAccepted,
		StatusDisbursed,
		StatusActive,
		StatusDeclined,
	}
}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, bool) {
	for _, st := range ValidStatuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
