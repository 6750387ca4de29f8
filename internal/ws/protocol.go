package ws

type MessageType string

const (
	MsgScoreUpdate        MessageType = "score_update"
	MsgRecordingStarted   MessageType = "recording_started"
	MsgRecordingEnded     MessageType = "recording_ended"
	MsgRecordingCancelled MessageType = "recording_cancelled"
	MsgDisconnected       MessageType = "disconnected_unexpectedly"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type ScorePayload struct {
	Score int `json:"score"`
}

type RecordingStartedPayload struct {
	Duration int `json:"duration"`
}

type RecordingEndedPayload struct {
	AverageScore int `json:"averageScore"`
}

type DisconnectedPayload struct {
	Message string `json:"message"`
}
