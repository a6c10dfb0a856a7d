package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the minimal view of any inbound frame, used to route it.
// The full payload is re-decoded into the event-specific struct afterwards.
type Envelope struct {
	Type EventType `json:"type"`
}

// ParseEnvelope extracts the event type from a raw frame.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("failed to parse frame: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("frame has no type")
	}
	return env, nil
}

// MediaState mirrors the client's local mute flags.
type MediaState struct {
	Audio bool `json:"audio"`
	Video bool `json:"video"`
}

// RequestJoinRoom asks for admission to a room.
// user_id and user_name travel on the wire but the hub trusts only the
// authenticated identity bound to the connection.
type RequestJoinRoom struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	IsRejoin bool   `json:"is_rejoin"`
}

// UpdateWaitingSocket rebinds a pending join request to the current connection.
type UpdateWaitingSocket struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// ApproveJoinRequest is a host-only admission decision.
type ApproveJoinRequest struct {
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	ApproverUserID string `json:"approver_user_id"`
}

// DenyJoinRequest is a host-only admission decision.
type DenyJoinRequest struct {
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	Reason         string `json:"reason"`
	ApproverUserID string `json:"approver_user_id"`
}

// AdmitAllWaiting approves every pending request in one shot.
type AdmitAllWaiting struct {
	RoomID         string `json:"room_id"`
	ApproverUserID string `json:"approver_user_id"`
}

// JoinRoom enters a room after admission.
type JoinRoom struct {
	RoomID     string     `json:"room_id"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	MediaState MediaState `json:"media_state"`
}

// LeaveRoom leaves a room explicitly.
type LeaveRoom struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// EndMeeting ends the meeting for everyone. Host only.
type EndMeeting struct {
	RoomID string `json:"room_id"`
}

// Signal carries an SDP offer or answer between two connections.
type Signal struct {
	To       string          `json:"to"`
	From     string          `json:"from"`
	Payload  json.RawMessage `json:"payload"`
	UserName string          `json:"user_name"`
	UserID   string          `json:"user_id"`
}

// ICECandidate carries one ICE candidate between two connections.
type ICECandidate struct {
	To        string          `json:"to"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// RequestRenegotiation asks a peer to restart negotiation.
type RequestRenegotiation struct {
	To   string `json:"to"`
	From string `json:"from"`
}

// ToggleMedia announces a local mute/unmute.
type ToggleMedia struct {
	RoomID  string `json:"room_id"`
	Type    string `json:"media_type"` // "audio" or "video"; "type" is the frame's event tag
	Enabled bool   `json:"enabled"`
}

// RecordingStatus announces that a client started or stopped recording.
type RecordingStatus struct {
	RoomID      string `json:"room_id"`
	IsRecording bool   `json:"is_recording"`
	UserName    string `json:"user_name"`
}

// SendMessage is an ephemeral chat message echoed to the room.
type SendMessage struct {
	RoomID   string `json:"room_id"`
	Message  string `json:"message"`
	UserName string `json:"user_name"`
}

// TranscriptionEntry is a finalized utterance from a client recognizer.
type TranscriptionEntry struct {
	RoomID             string  `json:"room_id"`
	EntryID            string  `json:"entry_id"`
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	Text               string  `json:"text"`
	Timestamp          int64   `json:"timestamp"`
	SecondsIntoMeeting float64 `json:"seconds_into_meeting"`
	Confidence         float64 `json:"confidence"`
}

// TranscriptionInterim is an in-progress caption, overwritten in place.
type TranscriptionInterim struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// RequestTranscriptionHistory asks for the full finalized transcript so far.
type RequestTranscriptionHistory struct {
	RoomID string `json:"room_id"`
}

// SetMeetingStartTime records the meeting start once. Host only, idempotent.
type SetMeetingStartTime struct {
	RoomID    string `json:"room_id"`
	StartTime int64  `json:"start_time"`
}

// RequestMeetingStartTime asks for the recorded start time.
type RequestMeetingStartTime struct {
	RoomID string `json:"room_id"`
}
