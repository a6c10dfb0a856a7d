package protocol

// EventType identifies a frame on the client wire protocol.
// Every frame is a flat JSON object carrying a "type" field next to its payload.
type EventType string

// Client -> Server
const (
	EventRequestJoinRoom      EventType = "request-join-room"
	EventUpdateWaitingSocket  EventType = "update-waiting-socket"
	EventApproveJoinRequest   EventType = "approve-join-request"
	EventDenyJoinRequest      EventType = "deny-join-request"
	EventAdmitAllWaiting      EventType = "admit-all-waiting"
	EventJoinRoom             EventType = "join-room"
	EventLeaveRoom            EventType = "leave-room"
	EventEndMeeting           EventType = "end-meeting"
	EventOffer                EventType = "offer"
	EventAnswer               EventType = "answer"
	EventICECandidate         EventType = "ice-candidate"
	EventRequestRenegotiation EventType = "request-renegotiation"
	EventToggleMedia          EventType = "toggle-media"
	EventRecordingStatus      EventType = "recording-status"
	EventSendMessage          EventType = "send-message"
	EventTranscriptionEntry   EventType = "transcription-entry"
	EventTranscriptionInterim EventType = "transcription-interim"
	EventRequestTranscription EventType = "request-transcription-history"
	EventSetMeetingStartTime  EventType = "set-meeting-start-time"
	EventGetMeetingStartTime  EventType = "request-meeting-start-time"
)

// Server -> Client
const (
	EventJoinApproved           EventType = "join-approved"
	EventJoinDenied             EventType = "join-denied"
	EventWaitingForApproval     EventType = "waiting-for-approval"
	EventJoinRequest            EventType = "join-request"
	EventJoinRequestProcessed   EventType = "join-request-processed"
	EventJoinRequestExpired     EventType = "join-request-expired"
	EventPendingJoinRequests    EventType = "pending-join-requests"
	EventAllAdmitted            EventType = "all-admitted"
	EventExistingParticipants   EventType = "existing-participants"
	EventUserJoined             EventType = "user-joined"
	EventUserLeft               EventType = "user-left"
	EventUserDisconnected       EventType = "user-disconnected"
	EventUserMediaToggle        EventType = "user-media-toggle"
	EventRenegotiationNeeded    EventType = "renegotiation-needed"
	EventRecordingStatusChanged EventType = "recording-status-changed"
	EventReceiveMessage         EventType = "receive-message"
	EventTranscriptionUpdate    EventType = "transcription-update"
	EventTranscriptionHistory   EventType = "transcription-history"
	EventMeetingStartTime       EventType = "meeting-start-time"
	EventMeetingEnded           EventType = "meeting-ended"
	EventHostLeft               EventType = "host-left"
	EventError                  EventType = "error"
)
