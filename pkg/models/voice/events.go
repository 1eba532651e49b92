package voice

import "encoding/json"

// EventType tags a JSON frame on the conversation event socket.
type EventType string

// event types
const (
	EtConversationInit EventType = "conversation_initiation_metadata"
	EtUserTranscript   EventType = "user_transcript"
	EtAgentResponse    EventType = "agent_response"
	EtToolCalled       EventType = "tool_called"
	EtToolCompleted    EventType = "tool_completed"
	EtToolError        EventType = "tool_error"
	EtPing             EventType = "ping"
	EtError            EventType = "error"
)

// error codes
const (
	CodeConnectionFailed     = "CONNECTION_FAILED"
	CodeWebSocketError       = "WEBSOCKET_ERROR"
	CodeParseError           = "PARSE_ERROR"
	CodeMaxReconnectAttempts = "MAX_RECONNECT_ATTEMPTS"
)

// Event is one decoded frame. Raw keeps the whole frame so listeners
// can pull event-specific payloads without another socket read.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Code    string    `json:"code,omitempty"`

	ConversationID string `json:"conversation_id,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
	ToolCallID     string `json:"tool_call_id,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Response       string `json:"response,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ErrorEvent builds a synthetic error frame emitted by the client itself.
func ErrorEvent(code, message string) Event {
	return Event{Type: EtError, Code: code, Message: message}
}
