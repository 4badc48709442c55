package lifecycle

// InstanceState is the display state of one process instance's progress.
type InstanceState int

const (
	// InstanceLoading means the snapshot has been requested but not received.
	InstanceLoading InstanceState = iota
	// InstanceLoaded means progress was computed from a fresh snapshot.
	InstanceLoaded
	// InstanceUnknown means the snapshot could not be obtained. The instance
	// must be shown as unknown, never as 0% or with older data.
	InstanceUnknown
)

// String returns a human-readable representation of the InstanceState
func (s InstanceState) String() string {
	switch s {
	case InstanceLoading:
		return "loading"
	case InstanceLoaded:
		return "loaded"
	case InstanceUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// MarshalJSON implements json.Marshaler.
func (s InstanceState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
