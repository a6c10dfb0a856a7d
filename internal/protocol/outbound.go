package protocol

import "encoding/json"

// Outbound frames are flat JSON objects: the type tag sits next to the payload
// fields. Constructors below set the tag so handlers can't forget it.

// ParticipantInfo is the roster view of one live connection.
type ParticipantInfo struct {
	ConnID     string     `json:"conn_id"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	IsHost     bool       `json:"is_host"`
	MediaState MediaState `json:"media_state"`
}

// PendingInfo is the host's view of one waiting join request.
type PendingInfo struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	RequestedAt int64  `json:"requested_at"`
}

// TranscriptEntryOut is one finalized transcript entry on the wire.
type TranscriptEntryOut struct {
	EntryID            string  `json:"entry_id"`
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	Text               string  `json:"text"`
	Timestamp          int64   `json:"timestamp"`
	SecondsIntoMeeting float64 `json:"seconds_into_meeting"`
	Confidence         float64 `json:"confidence"`
}

type JoinApproved struct {
	Type            EventType     `json:"type"`
	RoomID          string        `json:"room_id"`
	IsHost          bool          `json:"is_host"`
	Message         string        `json:"message,omitempty"`
	PendingRequests []PendingInfo `json:"pending_requests,omitempty"`
}

func NewJoinApproved(roomID string, isHost bool, message string) JoinApproved {
	return JoinApproved{Type: EventJoinApproved, RoomID: roomID, IsHost: isHost, Message: message}
}

type JoinDenied struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	Reason    string    `json:"reason"`
	Permanent bool      `json:"permanent"`
}

func NewJoinDenied(roomID, reason string) JoinDenied {
	return JoinDenied{Type: EventJoinDenied, RoomID: roomID, Reason: reason}
}

type WaitingForApproval struct {
	Type        EventType `json:"type"`
	RoomID      string    `json:"room_id"`
	Position    int       `json:"position"`
	IsDuplicate bool      `json:"is_duplicate,omitempty"`
}

func NewWaitingForApproval(roomID string, position int, duplicate bool) WaitingForApproval {
	return WaitingForApproval{Type: EventWaitingForApproval, RoomID: roomID, Position: position, IsDuplicate: duplicate}
}

type JoinRequest struct {
	Type        EventType `json:"type"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	RequestedAt int64     `json:"requested_at"`
}

func NewJoinRequest(roomID, userID, userName string, requestedAt int64) JoinRequest {
	return JoinRequest{Type: EventJoinRequest, RoomID: roomID, UserID: userID, UserName: userName, RequestedAt: requestedAt}
}

type JoinRequestProcessed struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	UserID string    `json:"user_id"`
	Action string    `json:"action"` // "approved" or "denied"
}

func NewJoinRequestProcessed(roomID, userID, action string) JoinRequestProcessed {
	return JoinRequestProcessed{Type: EventJoinRequestProcessed, RoomID: roomID, UserID: userID, Action: action}
}

type JoinRequestExpired struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"room_id"`
	Message string    `json:"message"`
}

func NewJoinRequestExpired(roomID, message string) JoinRequestExpired {
	return JoinRequestExpired{Type: EventJoinRequestExpired, RoomID: roomID, Message: message}
}

type PendingJoinRequests struct {
	Type     EventType     `json:"type"`
	RoomID   string        `json:"room_id"`
	Requests []PendingInfo `json:"requests"`
}

func NewPendingJoinRequests(roomID string, requests []PendingInfo) PendingJoinRequests {
	return PendingJoinRequests{Type: EventPendingJoinRequests, RoomID: roomID, Requests: requests}
}

type AllAdmitted struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	Count  int       `json:"count"`
}

func NewAllAdmitted(roomID string, count int) AllAdmitted {
	return AllAdmitted{Type: EventAllAdmitted, RoomID: roomID, Count: count}
}

type ExistingParticipants struct {
	Type         EventType         `json:"type"`
	RoomID       string            `json:"room_id"`
	Participants []ParticipantInfo `json:"participants"`
}

func NewExistingParticipants(roomID string, participants []ParticipantInfo) ExistingParticipants {
	return ExistingParticipants{Type: EventExistingParticipants, RoomID: roomID, Participants: participants}
}

type UserJoined struct {
	Type        EventType       `json:"type"`
	RoomID      string          `json:"room_id"`
	Participant ParticipantInfo `json:"participant"`
}

func NewUserJoined(roomID string, p ParticipantInfo) UserJoined {
	return UserJoined{Type: EventUserJoined, RoomID: roomID, Participant: p}
}

type UserLeft struct {
	Type     EventType `json:"type"`
	RoomID   string    `json:"room_id"`
	ConnID   string    `json:"conn_id"`
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
}

func NewUserLeft(roomID, connID, userID, userName string) UserLeft {
	return UserLeft{Type: EventUserLeft, RoomID: roomID, ConnID: connID, UserID: userID, UserName: userName}
}

type UserDisconnected struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	ConnID string    `json:"conn_id"`
	UserID string    `json:"user_id"`
}

func NewUserDisconnected(roomID, connID, userID string) UserDisconnected {
	return UserDisconnected{Type: EventUserDisconnected, RoomID: roomID, ConnID: connID, UserID: userID}
}

type UserMediaToggle struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	ConnID    string    `json:"conn_id"`
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	Enabled   bool      `json:"enabled"`
}

func NewUserMediaToggle(roomID, connID, userID, mediaType string, enabled bool) UserMediaToggle {
	return UserMediaToggle{Type: EventUserMediaToggle, RoomID: roomID, ConnID: connID, UserID: userID, MediaType: mediaType, Enabled: enabled}
}

// SignalOut relays an offer or answer to its target. The from connection and
// sender identity are filled in by the server, never echoed from the client.
type SignalOut struct {
	Type     EventType       `json:"type"`
	From     string          `json:"from"`
	Payload  json.RawMessage `json:"payload"`
	UserName string          `json:"user_name"`
	UserID   string          `json:"user_id"`
}

func NewSignalOut(kind EventType, from string, payload json.RawMessage, userName, userID string) SignalOut {
	return SignalOut{Type: kind, From: from, Payload: payload, UserName: userName, UserID: userID}
}

type ICECandidateOut struct {
	Type      EventType       `json:"type"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

func NewICECandidateOut(from string, candidate json.RawMessage) ICECandidateOut {
	return ICECandidateOut{Type: EventICECandidate, From: from, Candidate: candidate}
}

type RenegotiationNeeded struct {
	Type EventType `json:"type"`
	From string    `json:"from"`
}

func NewRenegotiationNeeded(from string) RenegotiationNeeded {
	return RenegotiationNeeded{Type: EventRenegotiationNeeded, From: from}
}

type RecordingStatusChanged struct {
	Type        EventType `json:"type"`
	RoomID      string    `json:"room_id"`
	IsRecording bool      `json:"is_recording"`
	UserName    string    `json:"user_name"`
}

func NewRecordingStatusChanged(roomID string, isRecording bool, userName string) RecordingStatusChanged {
	return RecordingStatusChanged{Type: EventRecordingStatusChanged, RoomID: roomID, IsRecording: isRecording, UserName: userName}
}

type ReceiveMessage struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Timestamp int64     `json:"timestamp"`
}

func NewReceiveMessage(roomID, message, userID, userName string, timestamp int64) ReceiveMessage {
	return ReceiveMessage{Type: EventReceiveMessage, RoomID: roomID, Message: message, UserID: userID, UserName: userName, Timestamp: timestamp}
}

type TranscriptionUpdate struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	TranscriptEntryOut
}

func NewTranscriptionUpdate(roomID string, entry TranscriptEntryOut) TranscriptionUpdate {
	return TranscriptionUpdate{Type: EventTranscriptionUpdate, RoomID: roomID, TranscriptEntryOut: entry}
}

type TranscriptionInterimOut struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
}

func NewTranscriptionInterim(roomID, userID, userName, text string, timestamp int64) TranscriptionInterimOut {
	return TranscriptionInterimOut{Type: EventTranscriptionInterim, RoomID: roomID, UserID: userID, UserName: userName, Text: text, Timestamp: timestamp}
}

type TranscriptionHistory struct {
	Type    EventType            `json:"type"`
	RoomID  string               `json:"room_id"`
	Entries []TranscriptEntryOut `json:"entries"`
	Count   int                  `json:"count"`
}

func NewTranscriptionHistory(roomID string, entries []TranscriptEntryOut) TranscriptionHistory {
	return TranscriptionHistory{Type: EventTranscriptionHistory, RoomID: roomID, Entries: entries, Count: len(entries)}
}

type MeetingStartTime struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	StartTime int64     `json:"start_time,omitempty"`
}

func NewMeetingStartTime(roomID string, startTime int64) MeetingStartTime {
	return MeetingStartTime{Type: EventMeetingStartTime, RoomID: roomID, StartTime: startTime}
}

type MeetingEnded struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	Reason string    `json:"reason,omitempty"`
}

func NewMeetingEnded(roomID, reason string) MeetingEnded {
	return MeetingEnded{Type: EventMeetingEnded, RoomID: roomID, Reason: reason}
}

type HostLeft struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	UserID string    `json:"user_id"`
}

func NewHostLeft(roomID, userID string) HostLeft {
	return HostLeft{Type: EventHostLeft, RoomID: roomID, UserID: userID}
}

type ErrorFrame struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func NewError(message string) ErrorFrame {
	return ErrorFrame{Type: EventError, Message: message}
}
