package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/records"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession registers a session with an empty label and digest.
func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateSession(context.Background(), id, "", ""); err != nil {
		t.Fatalf("CreateSession(%q) failed: %v", id, err)
	}
}

// createTestEntry builds a reversible add-variable entry for seq.
func createTestEntry(sessionID string, seq int64, varID string) Entry {
	payload := `{"id":"` + varID + `","name":"` + varID + `","update_fn":""}`
	reverse := event.At("model", "variable", varID, "remove")
	return Entry{
		SessionID: sessionID,
		Seq:       seq,
		Event:     event.New(payload, "model", "variable", "add"),
		Kind:      event.KindReversible,
		Change:    event.Change(payload, "model", "variable", "add"),
		Reverse:   &reverse,
		Origin:    OriginApply,
	}
}

// appendTestEntries appends one entry per variable id with seq 1..n.
func appendTestEntries(t *testing.T, s *Store, sessionID string, varIDs ...string) {
	t.Helper()
	for i, id := range varIDs {
		if err := s.AppendEvent(context.Background(), createTestEntry(sessionID, int64(i+1), id)); err != nil {
			t.Fatalf("AppendEvent(%d) failed: %v", i+1, err)
		}
	}
}

// testSketchData returns a small valid sketch record.
func testSketchData(varIDs ...string) records.SketchData {
	data := records.SketchData{
		Model: records.ModelData{
			Variables:   []records.VariableData{},
			Regulations: []records.RegulationData{},
			Layouts: []records.LayoutData{
				{ID: "default", Name: "Default layout"},
			},
			Functions: []records.FunctionData{},
		},
		Datasets:       []records.DatasetData{},
		DynProperties:  []records.PropertyData{},
		StatProperties: []records.PropertyData{},
	}
	for _, id := range varIDs {
		data.Model.Variables = append(data.Model.Variables, records.VariableData{ID: id, Name: id})
	}
	return data
}
