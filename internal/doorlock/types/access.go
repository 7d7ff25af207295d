package types

// Action is the closed set of physical-access events a lock can report.
// Devices cannot introduce new values — anything outside the enum is
// rejected at the ingest boundary.
type Action string

const (
	ActionPinEntry    Action = "PIN_ENTRY"
	ActionTimeout     Action = "TIMEOUT"
	ActionMasterReset Action = "MASTER_RESET"
)

// ParseAction maps a wire value onto the closed enum.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionPinEntry, ActionTimeout, ActionMasterReset:
		return Action(s), true
	}
	return "", false
}

func (a Action) String() string { return string(a) }

type AccessSubmission struct {
	DeviceID    string `json:"device_id,omitempty"`
	Action      string `json:"action"`
	Success     bool   `json:"success"`
	Pin         string `json:"pin,omitempty"`
	RequestedAt string `json:"requested_at,omitempty"` // optional device timestamp
}

type AccessAccepted struct {
	OK         bool   `json:"ok"`
	ID         int64  `json:"id"`
	ServerTime string `json:"server_time"`
}
