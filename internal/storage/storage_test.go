package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluetrack/internal/tracker"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	// GIVEN a session with players, a suggestion, and some notes
	log := logrus.New()
	log.SetOutput(io.Discard)
	tr := tracker.New(log, tracker.NewBus())
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		tr.AddPlayer(name)
	}
	players := tr.Players()
	tr.SetMyPlayer(players[0].ID)
	tr.SetMyCards([]string{"Miss Scarlett", "Rope"})
	require.NoError(t, tr.StartGame())
	tr.RecordSuggestion(tracker.SuggestionInput{
		SuggesterID:     players[0].ID,
		Suspect:         "Professor Plum",
		Weapon:          "Revolver",
		Room:            "Study",
		PassedPlayerIDs: []string{players[1].ID},
		ShowerID:        players[2].ID,
	})
	tr.UpdateNotes("Bob always hesitates on rooms")

	// WHEN the snapshot is saved and loaded back
	path := filepath.Join(t.TempDir(), "session", "game.json")
	snap := tr.Snapshot()
	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)

	// THEN the loaded snapshot restores an equivalent tracker
	restored := tracker.New(log, tracker.NewBus())
	restored.Restore(loaded)

	assert.Equal(t, snap.CurrentTurn, restored.CurrentTurn())
	assert.Equal(t, snap.Notes, restored.Notes())
	assert.True(t, restored.GameStarted())
	assert.Len(t, restored.Players(), 3)

	got := restored.Snapshot()
	assert.Equal(t, snap.Matrix, got.Matrix)
	assert.Equal(t, len(snap.Suggestions), len(got.Suggestions))
	assert.Equal(t, len(snap.CardLinks), len(got.CardLinks))
	assert.Equal(t, len(snap.Deductions), len(got.Deductions))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
