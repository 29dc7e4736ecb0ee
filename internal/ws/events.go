package ws

// Event is one JSON frame on the wire, inbound or outbound.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound event names (client → server).
const (
	EvPing           = "ping"
	EvTyping         = "typing"
	EvStopTyping     = "stop_typing"
	EvMessageRead    = "message_read"
	EvRecordingVoice = "recording_voice"
)

// Outbound event names (server → client).
const (
	EvPong             = "pong"
	EvNewMessage       = "new_message"
	EvMessageEdited    = "message_edited"
	EvMessageDeleted   = "message_deleted"
	EvReactionAdded    = "reaction_added"
	EvReactionRemoved  = "reaction_removed"
	EvMessagePinned    = "message_pinned"
	EvMessageUnpinned  = "message_unpinned"
	EvNewMatch         = "new_match"
	EvUserOnline       = "user_online"
	EvUserOffline      = "user_offline"
	EvUserTyping       = "user_typing"
	EvUserStopTyping   = "user_stop_typing"
	EvUserRecording    = "user_recording_voice"
	EvMessageStatus    = "message_status"
)

// CloseUnauthorized is sent when the upgrade token is missing or invalid.
const CloseUnauthorized = 4001

// clientFrame is the decoded payload of inbound events that reference a
// conversation.
type clientFrame struct {
	ConversationID uint64   `json:"conversation_id"`
	MessageIDs     []uint64 `json:"message_ids"`
}
