package mailvault

// State is the pipeline stage an envelope reached.
type State uint8

const (
	StateConfiguring State = iota
	StateResolving
	StateRendering
	StateDispatching
	StatePersisted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateResolving:
		return "resolving"
	case StateRendering:
		return "rendering"
	case StateDispatching:
		return "dispatching"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StatePersisted || s == StateFailed
}
