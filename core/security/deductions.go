package security

const maxScore = 100

// Deduction returns the score deduction for a single event.
//
// This table is the single source of truth for both the live running score
// and the full-ledger compliance rate; keep any extension of the event
// types reflected here so the two stay numerically equivalent.
func Deduction(e Event) int {
	switch e.Type {
	case EventTabBlur:
		if e.DurationMS > 5000 {
			return 15
		}
		return 5
	case EventWindowBlur:
		if e.DurationMS > 3000 {
			return 10
		}
		return 3
	case EventFullscreenExit:
		return 20
	case EventProhibitedKey:
		return 8
	case EventRightClick:
		return 3
	case EventFocusLoss:
		return 5
	}
	return 0
}

// Score recomputes the security score in one pass over a ledger.
// The result always equals the incrementally maintained Monitor score for
// the same ledger.
func Score(events []Event) int {
	var total int
	for _, e := range events {
		total += Deduction(e)
	}
	if total > maxScore {
		return 0
	}
	return maxScore - total
}
