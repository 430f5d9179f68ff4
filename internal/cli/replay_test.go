package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/loader"
	"github.com/roach88/sketchbook/internal/store"
)

// journal applies the edit script into a fresh database under session s1.
func journal(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := execute(t, "apply", "testdata/edits.yaml",
		"--sketch", "testdata/sketch.yaml", "--db", dbPath, "--session", "s1", "--label", "edits")
	require.NoError(t, err)
	return dbPath
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found")
}

func TestReplayAllSessions(t *testing.T) {
	dbPath := journal(t)

	out, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 1 session(s)")
	assert.Contains(t, out, "✓ Session: s1")
	assert.Contains(t, out, "Seq: 5 (5 event(s) after snapshot)")
	assert.Contains(t, out, "✓ All sessions replayed")
}

func TestReplayJSONMatchesApply(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	applyOut, err := execute(t, "--format", "json", "apply", "testdata/edits.yaml",
		"--sketch", "testdata/sketch.yaml", "--db", dbPath, "--session", "s1")
	require.NoError(t, err)
	var applied ApplyResult
	decodeResponse(t, applyOut, &applied)

	out, err := execute(t, "--format", "json", "replay", "--db", dbPath, "--session", "s1")
	require.NoError(t, err)

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.AllDeterministic)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, applied.Digest, result.Sessions[0].Digest)
	assert.Equal(t, applied.Seq, result.Sessions[0].Seq)
}

func TestReplayUpToWritesSketch(t *testing.T) {
	dbPath := journal(t)
	outPath := filepath.Join(t.TempDir(), "seq3.yaml")

	_, err := execute(t, "replay", "--db", dbPath, "--session", "s1", "--upto", "3", "--out", outPath)
	require.NoError(t, err)

	data, err := loader.LoadData(outPath)
	require.NoError(t, err)
	assert.Len(t, data.Model.Variables, 3)
	assert.Empty(t, data.Model.Regulations, "seq 3 is the regulation removal inside the cascade")
	assert.Equal(t, "Gene A", data.Model.Variables[0].Name)
}

func TestReplayOutRequiresSession(t *testing.T) {
	dbPath := journal(t)

	_, err := execute(t, "replay", "--db", dbPath, "--out", filepath.Join(t.TempDir(), "x.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := journal(t)

	_, err := execute(t, "replay", "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestReplayDetectsDivergence(t *testing.T) {
	dbPath := journal(t)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE events SET kind = 'no_change', reverse = NULL WHERE session_id = 's1' AND seq = 1`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Session: s1")
	assert.Contains(t, out, "REPLAY_DIVERGED")
	assert.Contains(t, out, "✗ Replay verification failed")
}
