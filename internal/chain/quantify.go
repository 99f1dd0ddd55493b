package chain

// AtLeastOne reports whether some candidate satisfies pred. It is false for
// an empty candidate set.
func AtLeastOne[T any](candidates []T, pred func(T) bool) bool {
	for _, c := range candidates {
		if pred(c) {
			return true
		}
	}
	return false
}

// Every reports whether all candidates satisfy pred. It is vacuously true
// for an empty candidate set; callers that need non-emptiness must check it
// separately.
func Every[T any](candidates []T, pred func(T) bool) bool {
	for _, c := range candidates {
		if !pred(c) {
			return false
		}
	}
	return true
}

// Quantified is the outcome of an existential check that keeps "nothing to
// check" apart from "nothing passed".
type Quantified struct {
	// Empty is true when there were no candidates at all.
	Empty bool
	// Satisfied is true when at least one candidate matched.
	Satisfied bool
	// Matches holds the indexes of matching candidates in input order.
	Matches []int
}

// Quantify evaluates pred over every candidate in order.
func Quantify[T any](candidates []T, pred func(T) bool) Quantified {
	q := Quantified{Empty: len(candidates) == 0}
	for i, c := range candidates {
		if pred(c) {
			q.Matches = append(q.Matches, i)
		}
	}
	q.Satisfied = len(q.Matches) > 0
	return q
}
