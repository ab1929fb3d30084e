package resolver

// State is a node in the resolution state machine. Resolution walks the
// layers in a fixed order and every utterance terminates in StateResolved
// or StateDeferred.
type State int

const (
	StateStart State = iota
	StateEmbeddingTry
	StatePatternTry
	StateFollowUpTry
	StateExternalFallback
	StateResolved
	StateDeferred
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateEmbeddingTry:
		return "EMBEDDING_TRY"
	case StatePatternTry:
		return "PATTERN_TRY"
	case StateFollowUpTry:
		return "FOLLOW_UP_TRY"
	case StateExternalFallback:
		return "EXTERNAL_FALLBACK"
	case StateResolved:
		return "RESOLVED"
	case StateDeferred:
		return "DEFERRED"
	default:
		return "UNKNOWN"
	}
}

// Next is the pure transition function. matched reports whether the layer
// belonging to the current state produced an intent.
func Next(cur State, matched bool) State {
	switch cur {
	case StateStart:
		return StateEmbeddingTry
	case StateEmbeddingTry:
		if matched {
			return StateResolved
		}
		return StatePatternTry
	case StatePatternTry:
		if matched {
			return StateResolved
		}
		return StateFollowUpTry
	case StateFollowUpTry:
		if matched {
			return StateResolved
		}
		return StateExternalFallback
	case StateExternalFallback:
		return StateDeferred
	default:
		// terminal states transition to themselves
		return cur
	}
}

// Terminal reports whether the machine has finished.
func Terminal(s State) bool {
	return s == StateResolved || s == StateDeferred
}
