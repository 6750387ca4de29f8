package cortex

import "encoding/json"

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type warningBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// envelope covers every inbound frame shape: RPC replies (id), streamed
// telemetry (sid plus one of the stream fields), and out-of-band warnings.
// Decoding into one struct keeps classification explicit instead of
// sniffing arbitrary field presence.
type envelope struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`

	SID  string          `json:"sid"`
	Time float64         `json:"time"`
	Pow  []float64       `json:"pow"`
	EEG  json.RawMessage `json:"eeg"`
	Mot  json.RawMessage `json:"mot"`
	Dev  json.RawMessage `json:"dev"`
	EQ   json.RawMessage `json:"eq"`
	Met  json.RawMessage `json:"met"`

	Warning *warningBody `json:"warning"`
}

// hasStreamField reports whether the frame carries at least one recognized
// telemetry field. A frame is never treated as telemetry merely because it
// lacks a reply id; this allow-list keeps control-plane chatter out of the
// data path.
func (e *envelope) hasStreamField() bool {
	return e.Pow != nil || e.EEG != nil || e.Mot != nil || e.Dev != nil || e.EQ != nil || e.Met != nil
}

// StreamFrame is one sample delivered to the stream handler. Only the
// band-power stream is subscribed, so Pow is the payload of interest.
type StreamFrame struct {
	SID  string
	Time float64
	Pow  []float64
}

// Headset describes one device returned by queryHeadsets.
type Headset struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CustomName string `json:"customName"`
}

type accessParams struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type controlDeviceParams struct {
	Command string `json:"command"`
	Headset string `json:"headset"`
}

type createSessionParams struct {
	CortexToken string `json:"cortexToken"`
	Headset     string `json:"headset"`
	Status      string `json:"status"`
}

type subscribeParams struct {
	CortexToken string   `json:"cortexToken"`
	Session     string   `json:"session"`
	Streams     []string `json:"streams"`
}

type authorizeResult struct {
	CortexToken string `json:"cortexToken"`
}

type createSessionResult struct {
	ID string `json:"id"`
}
