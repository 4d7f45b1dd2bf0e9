package pipeline

// State names one step of a session run. The transition function is pure so
// the machine can be exercised without any network or disk I/O.
type State string

const (
	StateReceived     State = "received"
	StateIdentified   State = "identified"
	StateCacheCheck   State = "cache_check"
	StateCacheHit     State = "cache_hit"
	StateSegmenting   State = "segmenting"
	StateTranscribing State = "transcribing"
	StateAssembling   State = "assembling"
	StateResearching  State = "researching"
	StateFinalizing   State = "finalizing"
	StatePersisting   State = "persisting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Next returns the successor of s. cacheHit only matters in StateCacheCheck,
// where it short-circuits straight to done via the hit state. Terminal
// states map to themselves.
func Next(s State, cacheHit bool) State {
	switch s {
	case StateReceived:
		return StateIdentified
	case StateIdentified:
		return StateCacheCheck
	case StateCacheCheck:
		if cacheHit {
			return StateCacheHit
		}
		return StateSegmenting
	case StateCacheHit:
		return StateDone
	case StateSegmenting:
		return StateTranscribing
	case StateTranscribing:
		return StateAssembling
	case StateAssembling:
		return StateResearching
	case StateResearching:
		return StateFinalizing
	case StateFinalizing:
		return StatePersisting
	case StatePersisting:
		return StateDone
	default:
		return s
	}
}

// CanFail reports whether a run may move from s into the failed terminal
// state. The cache-hit path and the terminal states cannot fail.
func CanFail(s State) bool {
	switch s {
	case StateCacheHit, StateDone, StateFailed:
		return false
	}
	return true
}
