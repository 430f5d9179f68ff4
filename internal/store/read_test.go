package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/sketchbook/internal/event"
)

func TestGetSession_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.CreateSession(ctx, "s1", "draft", "d0"); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	sess, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	want := Session{ID: "s1", Label: "draft", BaseDigest: "d0"}
	if sess != want {
		t.Errorf("GetSession() = %+v, want %+v", sess, want)
	}
}

func TestGetSession_CountsEvents(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	appendTestEntries(t, s, "s1", "a", "b", "c")

	sess, err := s.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if sess.Events != 3 {
		t.Errorf("Events = %d, want 3", sess.Events)
	}
	if sess.LastSeq != 3 {
		t.Errorf("LastSeq = %d, want 3", sess.LastSeq)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if sessions == nil {
		t.Error("ListSessions() returned nil, want empty slice")
	}
	if len(sessions) != 0 {
		t.Errorf("ListSessions() returned %d sessions, want 0", len(sessions))
	}
}

func TestListSessions_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	for _, id := range []string{"s2", "S1", "s1"} {
		createTestSession(t, s, id)
	}
	appendTestEntries(t, s, "s2", "a")

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}

	var ids []string
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	// BINARY collation puts upper case first
	want := []string{"S1", "s1", "s2"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListSessions() ids = %v, want %v", ids, want)
	}
	if sessions[2].Events != 1 {
		t.Errorf("s2 Events = %d, want 1", sessions[2].Events)
	}
}

func TestReadEvents_Empty(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	entries, err := s.ReadEvents(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if entries == nil {
		t.Error("ReadEvents() returned nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Errorf("ReadEvents() returned %d entries, want 0", len(entries))
	}
}

func TestReadEvents_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	ctx := context.Background()

	want := createTestEntry("s1", 1, "a")
	if err := s.AppendEvent(ctx, want); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	entries, err := s.ReadEvents(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ReadEvents() returned %d entries, want 1", len(entries))
	}

	got := entries[0]
	if got.SessionID != "s1" || got.Seq != 1 {
		t.Errorf("entry key = (%q, %d), want (s1, 1)", got.SessionID, got.Seq)
	}
	if !got.Event.Equal(want.Event) {
		t.Errorf("Event = %v, want %v", got.Event, want.Event)
	}
	if got.Kind != event.KindReversible {
		t.Errorf("Kind = %q, want reversible", got.Kind)
	}
	if !got.Change.Equal(want.Change.Event) {
		t.Errorf("Change = %v, want %v", got.Change, want.Change)
	}
	if got.Reverse == nil || !got.Reverse.Equal(*want.Reverse) {
		t.Errorf("Reverse = %v, want %v", got.Reverse, want.Reverse)
	}
	if got.Origin != OriginApply {
		t.Errorf("Origin = %q, want apply", got.Origin)
	}
}

func TestReadEvents_IrreversibleHasNoReverse(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	ctx := context.Background()

	err := s.AppendEvent(ctx, Entry{
		SessionID: "s1",
		Seq:       1,
		Event:     event.At("observations", "d1", "o1", "remove"),
		Kind:      event.KindIrreversible,
		Change:    event.Change(`{"id":"o1"}`, "observations", "remove_obs"),
		Reset:     true,
		Origin:    OriginApply,
	})
	if err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	entries, err := s.ReadEvents(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ReadEvents() returned %d entries, want 1", len(entries))
	}
	if entries[0].Reverse != nil {
		t.Errorf("Reverse = %v, want nil", entries[0].Reverse)
	}
	if !entries[0].Reset {
		t.Error("Reset = false, want true")
	}
	if entries[0].Event.HasPayload() {
		t.Error("Event gained a payload on read")
	}
}

func TestReadEvents_OrderedBySeqAfterCursor(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	ctx := context.Background()

	// Insert out of order to prove ORDER BY seq, not insertion order
	for _, seq := range []int64{3, 1, 4, 2} {
		if err := s.AppendEvent(ctx, createTestEntry("s1", seq, "v")); err != nil {
			t.Fatalf("AppendEvent(%d) failed: %v", seq, err)
		}
	}

	entries, err := s.ReadEvents(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}

	var seqs []int64
	for _, e := range entries {
		seqs = append(seqs, e.Seq)
	}
	want := []int64{2, 3, 4}
	if !reflect.DeepEqual(seqs, want) {
		t.Errorf("seqs = %v, want %v", seqs, want)
	}
}

func TestReadEvents_IsolatedBySession(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	createTestSession(t, s, "s2")
	appendTestEntries(t, s, "s1", "a", "b")
	appendTestEntries(t, s, "s2", "c")

	entries, err := s.ReadEvents(context.Background(), "s2", 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].SessionID != "s2" {
		t.Errorf("ReadEvents(s2) = %+v, want one s2 entry", entries)
	}
}

func TestLatestSnapshot_None(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	_, ok, err := s.LatestSnapshot(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if ok {
		t.Error("LatestSnapshot() ok = true, want false")
	}
}

func TestLatestSnapshot_PicksHighestNotAbove(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")
	ctx := context.Background()

	for seq, vars := range map[int64][]string{0: nil, 2: {"a"}, 5: {"a", "b"}} {
		if _, err := s.WriteSnapshot(ctx, "s1", seq, testSketchData(vars...)); err != nil {
			t.Fatalf("WriteSnapshot(%d) failed: %v", seq, err)
		}
	}

	snap, ok, err := s.LatestSnapshot(ctx, "s1", 4)
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if !ok {
		t.Fatal("LatestSnapshot() ok = false, want true")
	}
	if snap.Seq != 2 {
		t.Errorf("Seq = %d, want 2", snap.Seq)
	}
	if !reflect.DeepEqual(snap.Data, testSketchData("a")) {
		t.Errorf("Data = %+v, want sketch with variable a", snap.Data)
	}
	want, _ := Digest(testSketchData("a"))
	if snap.Digest != want {
		t.Errorf("Digest = %q, want %q", snap.Digest, want)
	}
}
