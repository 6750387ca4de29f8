package session

import "encoding/json"

// State is the lifecycle position of the single device session. Exactly one
// instance exists process-wide, owned by the Manager; the control layer
// never sees more than one device session at a time.
type State int

const (
	Idle State = iota
	Connecting
	HeadsetSelected
	Authorized
	SessionActive
	Recording
)

var stateNames = map[State]string{
	Idle:            "idle",
	Connecting:      "connecting",
	HeadsetSelected: "headset_selected",
	Authorized:      "authorized",
	SessionActive:   "session_active",
	Recording:       "recording",
}

var stateFromName = map[string]State{
	"idle":             Idle,
	"connecting":       Connecting,
	"headset_selected": HeadsetSelected,
	"authorized":       Authorized,
	"session_active":   SessionActive,
	"recording":        Recording,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}
