package steps

import (
	"fmt"
	"strings"
)

// Kind is the type of node a step represents in a process definition.
type Kind int

const (
	// KindUnknown is only used for synthetic steps built from engine records
	// whose activity type could not be mapped.
	KindUnknown Kind = iota
	KindStart
	KindUserTask
	KindServiceTask
	KindGateway
	KindEnd
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindUserTask:
		return "userTask"
	case KindServiceTask:
		return "serviceTask"
	case KindGateway:
		return "gateway"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// ParseKind converts a configured kind name into a Kind. Both the short names
// (start, userTask, serviceTask, gateway, end) and the activity types reported
// by the engine (startEvent, exclusiveGateway, ...) are accepted.
func ParseKind(s string) (Kind, error) {
	if k := KindFromActivityType(s); k != KindUnknown {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown step kind %q", s)
}

// KindFromActivityType maps an engine activity type onto a Kind, returning
// KindUnknown for anything it does not recognise.
func KindFromActivityType(activityType string) Kind {
	t := strings.ToLower(strings.TrimSpace(activityType))
	switch {
	case t == "start" || strings.HasPrefix(t, "start"):
		return KindStart
	case t == "end" || strings.HasPrefix(t, "end") || strings.HasPrefix(t, "noneend"):
		return KindEnd
	case t == "usertask" || t == "manualtask":
		return KindUserTask
	case t == "servicetask" || t == "scripttask" || t == "sendtask" || t == "businessruletask":
		return KindServiceTask
	case strings.HasSuffix(t, "gateway"):
		return KindGateway
	default:
		return KindUnknown
	}
}
