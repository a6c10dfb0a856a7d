package hub

import (
	"strings"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
)

// transcriptRoom joins the host plus n guests named guest1..guestN.
func transcriptRoom(t *testing.T, n int) (*testHub, *fakeConn, []*fakeConn) {
	t.Helper()
	th := newTestHub(t)
	hc := th.connect("h1", "host", "Hanna")
	th.startRoom(t, "r1", hc)

	guests := make([]*fakeConn, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		g := th.connect("g"+id, "guest"+id, "Guest "+strings.ToUpper(id))
		th.admitAndJoin(t, "r1", hc, g)
		guests = append(guests, g)
	}
	return th, hc, guests
}

func entryFrame(t *testing.T, entryID, userID, text string) map[string]any {
	t.Helper()
	return frame(t, protocol.EventTranscriptionEntry, protocol.TranscriptionEntry{
		RoomID:             "r1",
		EntryID:            entryID,
		UserID:             userID,
		Text:               text,
		Timestamp:          1709287200,
		SecondsIntoMeeting: 12.5,
		Confidence:         0.93,
	})
}

func TestTranscriptionFanoutAndHistory(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 2)
	a, b := guests[0], guests[1]

	th.send(t, a, entryFrame(t, "e1", a.userID, "hello"))

	for _, c := range []*fakeConn{hc, b} {
		var update protocol.TranscriptionUpdate
		c.lastOfType(t, protocol.EventTranscriptionUpdate, &update)
		if update.EntryID != "e1" || update.Text != "hello" {
			t.Errorf("conn %s: transcription-update = %+v", c.id, update)
		}
	}
	if a.countOfType(protocol.EventTranscriptionUpdate) != 0 {
		t.Error("speaker already has the entry locally, no echo")
	}

	// a late joiner catches up from the server-side log
	d := th.connect("gd", "guestd", "Guest D")
	th.admitAndJoin(t, "r1", hc, d)
	th.send(t, d, frame(t, protocol.EventRequestTranscription, protocol.RequestTranscriptionHistory{RoomID: "r1"}))

	var history protocol.TranscriptionHistory
	d.lastOfType(t, protocol.EventTranscriptionHistory, &history)
	if history.Count != 1 || len(history.Entries) != 1 || history.Entries[0].EntryID != "e1" {
		t.Errorf("transcription-history = %+v, want the one entry", history)
	}
}

func TestTranscriptionEntryDedup(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	th.send(t, a, entryFrame(t, "e1", a.userID, "hello"))
	th.send(t, a, entryFrame(t, "e1", a.userID, "hello"))

	if got := hc.countOfType(protocol.EventTranscriptionUpdate); got != 1 {
		t.Errorf("duplicate entry_id broadcast %d times, want 1", got)
	}

	r, _ := th.lookupRoom("r1")
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transcript) != 1 {
		t.Errorf("transcript length = %d, want 1", len(r.transcript))
	}
}

func TestTranscriptionOrderedBySequence(t *testing.T) {
	th, _, guests := transcriptRoom(t, 1)
	a := guests[0]

	for _, id := range []string{"e1", "e2", "e3"} {
		th.send(t, a, entryFrame(t, id, a.userID, "text "+id))
	}

	r, _ := th.lookupRoom("r1")
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.transcript {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d has seq %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestSpoofedTranscriptionRejected(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	th.send(t, a, entryFrame(t, "e1", "host", "I never said this"))

	if a.countOfType(protocol.EventError) != 1 {
		t.Error("spoofed user_id must be rejected")
	}
	if hc.countOfType(protocol.EventTranscriptionUpdate) != 0 {
		t.Error("spoofed entry must not be broadcast")
	}

	r, _ := th.lookupRoom("r1")
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transcript) != 0 {
		t.Error("spoofed entry must not be appended")
	}
}

func TestNonParticipantTranscriptionRejected(t *testing.T) {
	th, _, _ := transcriptRoom(t, 1)
	outsider := th.connect("x1", "lurker", "Lurk")

	th.send(t, outsider, entryFrame(t, "e1", "lurker", "psst"))

	if outsider.countOfType(protocol.EventError) != 1 {
		t.Error("non-participant transcription must be rejected")
	}
}

func TestInterimLifecycle(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	interim := func(text string) map[string]any {
		return frame(t, protocol.EventTranscriptionInterim, protocol.TranscriptionInterim{
			RoomID: "r1", UserID: a.userID, Text: text,
		})
	}

	th.send(t, a, interim("hel"))
	th.send(t, a, interim("hello wor"))

	var live protocol.TranscriptionInterimOut
	hc.lastOfType(t, protocol.EventTranscriptionInterim, &live)
	if live.Text != "hello wor" {
		t.Errorf("interim text = %q, want the latest overwrite", live.Text)
	}

	r, _ := th.lookupRoom("r1")
	r.mu.Lock()
	slots := len(r.interim)
	r.mu.Unlock()
	if slots != 1 {
		t.Errorf("interim slots = %d, want one per speaker", slots)
	}

	// a final from the same speaker clears the slot
	th.send(t, a, entryFrame(t, "e1", a.userID, "hello world"))
	r.mu.Lock()
	_, hasInterim := r.interim[a.userID]
	r.mu.Unlock()
	if hasInterim {
		t.Error("final entry must clear the speaker's interim slot")
	}

	// explicit clear via empty text
	th.send(t, a, interim("again"))
	th.send(t, a, interim(""))
	r.mu.Lock()
	_, hasInterim = r.interim[a.userID]
	r.mu.Unlock()
	if hasInterim {
		t.Error("empty interim must clear the slot")
	}
}

func TestMeetingStartTimeIdempotent(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	set := func(c *fakeConn, ts int64) {
		th.send(t, c, frame(t, protocol.EventSetMeetingStartTime, protocol.SetMeetingStartTime{RoomID: "r1", StartTime: ts}))
	}

	set(hc, 1000)
	set(hc, 2000) // ignored

	th.send(t, a, frame(t, protocol.EventGetMeetingStartTime, protocol.RequestMeetingStartTime{RoomID: "r1"}))

	var got protocol.MeetingStartTime
	a.lastOfType(t, protocol.EventMeetingStartTime, &got)
	if got.StartTime != 1000 {
		t.Errorf("start_time = %d, want the first write to stick", got.StartTime)
	}

	// non-host writes are rejected
	set(a, 3000)
	if a.countOfType(protocol.EventError) != 1 {
		t.Error("non-host set-meeting-start-time must be rejected")
	}
}

func TestOversizedTranscriptionRejected(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	th.send(t, a, entryFrame(t, "e1", a.userID, strings.Repeat("x", th.cfg.MaxSignalBytes+1)))

	if a.countOfType(protocol.EventError) != 1 {
		t.Error("oversized transcription must be rejected")
	}
	if hc.countOfType(protocol.EventTranscriptionUpdate) != 0 {
		t.Error("oversized transcription must not be broadcast")
	}
}

func TestTranscriptPersistedOnRoomDestroy(t *testing.T) {
	th, hc, guests := transcriptRoom(t, 1)
	a := guests[0]

	th.send(t, a, entryFrame(t, "e1", a.userID, "for the record"))
	th.send(t, hc, frame(t, protocol.EventEndMeeting, protocol.EndMeeting{RoomID: "r1"}))

	select {
	case <-th.store.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("transcript was not persisted on destroy")
	}

	th.store.mu.Lock()
	defer th.store.mu.Unlock()
	rows := th.store.transcript["r1"]
	if len(rows) != 1 || rows[0].EntryID != "e1" || rows[0].Text != "for the record" {
		t.Errorf("persisted rows = %+v", rows)
	}
}
