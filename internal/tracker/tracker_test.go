package tracker

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestTracker creates a clean three-player tracker for each test so
// tests are isolated from each other.
func setupTestTracker(t *testing.T) (*Tracker, []Player) {
	t.Helper()

	// GIVEN a "null" logger that discards output
	log := logrus.New()
	log.SetOutput(io.Discard)

	tr := New(log, NewBus())
	tr.AddPlayer("Alice")
	tr.AddPlayer("Bob")
	tr.AddPlayer("Carol")

	players := tr.Players()
	require.Len(t, players, 3)
	return tr, players
}

// startedTracker takes setup one step further: Alice is the human player
// holding three known cards, and the game has started.
func startedTracker(t *testing.T) (*Tracker, []Player) {
	t.Helper()
	tr, players := setupTestTracker(t)
	tr.SetMyPlayer(players[0].ID)
	tr.SetMyCards([]string{"Miss Scarlett", "Candlestick", "Ballroom"})
	require.NoError(t, tr.StartGame())
	return tr, tr.Players()
}

func TestAddPlayer(t *testing.T) {
	tr, players := setupTestTracker(t)

	t.Run("it assigns unique ids and distinct colors", func(t *testing.T) {
		assert.NotEqual(t, players[0].ID, players[1].ID)
		assert.NotEqual(t, players[0].Color, players[1].Color)
		assert.NotEmpty(t, players[0].Color)
	})

	t.Run("it preserves seating order", func(t *testing.T) {
		assert.Equal(t, "Alice", players[0].Name)
		assert.Equal(t, "Bob", players[1].Name)
		assert.Equal(t, "Carol", players[2].Name)
	})

	t.Run("it rejects empty and duplicate names", func(t *testing.T) {
		assert.Nil(t, tr.AddPlayer(""))
		assert.Nil(t, tr.AddPlayer("Alice"))
		assert.Len(t, tr.Players(), 3)
	})
}

func TestReorderPlayers(t *testing.T) {
	seatNames := func(tr *Tracker) []string {
		var names []string
		for _, p := range tr.Players() {
			names = append(names, p.Name)
		}
		return names
	}

	t.Run("it applies the full id order", func(t *testing.T) {
		tr, players := setupTestTracker(t)
		tr.ReorderPlayers([]string{players[2].ID, players[0].ID, players[1].ID})
		assert.Equal(t, []string{"Carol", "Alice", "Bob"}, seatNames(tr))
	})

	t.Run("it appends players missing from a partial list in their old order", func(t *testing.T) {
		tr, players := setupTestTracker(t)
		tr.ReorderPlayers([]string{players[1].ID})
		assert.Equal(t, []string{"Bob", "Alice", "Carol"}, seatNames(tr))
	})

	t.Run("it seats each player once despite duplicate ids", func(t *testing.T) {
		tr, players := setupTestTracker(t)
		tr.ReorderPlayers([]string{players[2].ID, players[2].ID, players[0].ID})
		assert.Equal(t, []string{"Carol", "Alice", "Bob"}, seatNames(tr))
		assert.Len(t, tr.Players(), 3)
	})

	t.Run("it ignores unknown ids", func(t *testing.T) {
		tr, players := setupTestTracker(t)
		tr.ReorderPlayers([]string{"not-a-player", players[1].ID, players[0].ID})
		assert.Equal(t, []string{"Bob", "Alice", "Carol"}, seatNames(tr))
	})
}

func TestSetMyCards(t *testing.T) {
	// GIVEN a tracker where Alice is the human player
	tr, players := setupTestTracker(t)
	tr.SetMyPlayer(players[0].ID)

	// WHEN she enters her hand
	tr.SetMyCards([]string{"Rope", "Kitchen"})

	t.Run("it marks her cards as owned", func(t *testing.T) {
		assert.Equal(t, StateOwned, tr.CellState("Rope", players[0].ID))
		assert.Equal(t, StateOwned, tr.CellState("Kitchen", players[0].ID))
	})

	t.Run("it rules her cards out of the envelope", func(t *testing.T) {
		assert.Equal(t, StateNotOwned, tr.CellState("Rope", HolderEnvelope))
	})

	t.Run("it rules her cards out of every other hand", func(t *testing.T) {
		assert.Equal(t, StateNotOwned, tr.CellState("Rope", players[1].ID))
		assert.Equal(t, StateNotOwned, tr.CellState("Kitchen", players[2].ID))
	})

	t.Run("it records her confirmed hand", func(t *testing.T) {
		me := tr.Players()[0]
		assert.Equal(t, 2, me.CardCount)
		assert.ElementsMatch(t, []string{"Rope", "Kitchen"}, me.ConfirmedCards)
	})
}

func TestStartGame(t *testing.T) {
	t.Run("it refuses to start with fewer than three players", func(t *testing.T) {
		log := logrus.New()
		log.SetOutput(io.Discard)
		tr := New(log, NewBus())
		tr.AddPlayer("Solo")
		tr.AddPlayer("Duo")
		assert.Error(t, tr.StartGame())
	})

	t.Run("it assigns floor hand sizes, keeping the confirmed hand", func(t *testing.T) {
		// GIVEN four players where "You" confirmed five cards
		log := logrus.New()
		log.SetOutput(io.Discard)
		tr := New(log, NewBus())
		me := tr.AddPlayer("You")
		tr.AddPlayer("B")
		tr.AddPlayer("C")
		tr.AddPlayer("D")
		tr.SetMyPlayer(me.ID)
		tr.SetMyCards([]string{"Rope", "Hall", "Study", "Dagger", "Lounge"})

		// WHEN the game starts (18 / 4 = 4 with 2 left over)
		require.NoError(t, tr.StartGame())

		for _, p := range tr.Players() {
			if p.ID == me.ID {
				assert.Equal(t, 5, p.CardCount)
			} else {
				assert.Equal(t, 4, p.CardCount)
			}
		}
		assert.True(t, tr.GameStarted())
	})

	t.Run("it rebuilds the matrix and re-applies the confirmed hand", func(t *testing.T) {
		tr, players := startedTracker(t)
		assert.Equal(t, StateOwned, tr.CellState("Miss Scarlett", players[0].ID))
		assert.Equal(t, StateNotOwned, tr.CellState("Miss Scarlett", HolderEnvelope))
		assert.Equal(t, StateUnknown, tr.CellState("Revolver", players[1].ID))
	})
}

func TestRecordSuggestionPasses(t *testing.T) {
	// GIVEN a started game
	tr, players := startedTracker(t)
	alice, bob, carol := players[0], players[1], players[2]

	// WHEN Alice suggests and both others pass
	tr.RecordSuggestion(SuggestionInput{
		SuggesterID:     alice.ID,
		Suspect:         "Professor Plum",
		Weapon:          "Revolver",
		Room:            "Study",
		PassedPlayerIDs: []string{bob.ID, carol.ID},
	})

	t.Run("it marks every passed card as not owned", func(t *testing.T) {
		for _, card := range []string{"Professor Plum", "Revolver", "Study"} {
			assert.Equal(t, StateNotOwned, tr.CellState(card, bob.ID), card)
			assert.Equal(t, StateNotOwned, tr.CellState(card, carol.ID), card)
		}
	})

	t.Run("it stamps the suggestion with the current turn and advances the counter", func(t *testing.T) {
		suggestions := tr.Snapshot().Suggestions
		require.Len(t, suggestions, 1)
		assert.Equal(t, 1, suggestions[0].TurnNumber)
		assert.Equal(t, 2, tr.CurrentTurn())
	})
}

func TestRecordSuggestionKnownShow(t *testing.T) {
	// GIVEN a started game
	tr, players := startedTracker(t)
	alice, bob, carol := players[0], players[1], players[2]

	// WHEN Bob shows Alice the Revolver
	tr.RecordSuggestion(SuggestionInput{
		SuggesterID: alice.ID,
		Suspect:     "Professor Plum",
		Weapon:      "Revolver",
		Room:        "Study",
		ShowerID:    bob.ID,
		ShownCard:   "Revolver",
	})

	t.Run("it confirms the shower owns the card", func(t *testing.T) {
		assert.Equal(t, StateOwned, tr.CellState("Revolver", bob.ID))
	})

	t.Run("it propagates the ownership everywhere else", func(t *testing.T) {
		assert.Equal(t, StateNotOwned, tr.CellState("Revolver", HolderEnvelope))
		assert.Equal(t, StateNotOwned, tr.CellState("Revolver", carol.ID))
	})

	t.Run("it creates no card link", func(t *testing.T) {
		assert.Empty(t, tr.Snapshot().CardLinks)
	})
}

func TestRecordSuggestionUnknownShow(t *testing.T) {
	// GIVEN a started game where Carol is already known not to hold the Study
	tr, players := startedTracker(t)
	bob, carol := players[1], players[2]
	tr.SetCardState("Study", carol.ID, StateNotOwned, true)

	// WHEN Carol shows Bob an unseen card
	tr.RecordSuggestion(SuggestionInput{
		SuggesterID: bob.ID,
		Suspect:     "Professor Plum",
		Weapon:      "Revolver",
		Room:        "Study",
		ShowerID:    carol.ID,
	})

	snap := tr.Snapshot()
	require.Len(t, snap.CardLinks, 1)
	link := snap.CardLinks[0]

	t.Run("it excludes already-eliminated cards from the link", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"Professor Plum", "Revolver"}, link.PossibleCards)
		assert.False(t, link.Resolved)
	})

	t.Run("it marks the candidates as potentially owned", func(t *testing.T) {
		assert.Equal(t, StatePotentiallyOwned, tr.CellState("Professor Plum", carol.ID))
		assert.Equal(t, StatePotentiallyOwned, tr.CellState("Revolver", carol.ID))
	})

	t.Run("it ties the link back to the suggestion", func(t *testing.T) {
		require.Len(t, snap.Suggestions, 1)
		assert.Equal(t, snap.Suggestions[0].LinkID, link.ID)
	})
}

func TestSetCardStateManualOverride(t *testing.T) {
	tr, players := startedTracker(t)
	bob := players[1]

	t.Run("marking owned propagates like a confirmed show", func(t *testing.T) {
		tr.SetCardState("Wrench", bob.ID, StateOwned, true)
		assert.Equal(t, StateOwned, tr.CellState("Wrench", bob.ID))
		assert.Equal(t, StateNotOwned, tr.CellState("Wrench", HolderEnvelope))
		assert.Equal(t, StateNotOwned, tr.CellState("Wrench", players[2].ID))
	})

	t.Run("resetting to unknown undoes the derived cells", func(t *testing.T) {
		tr.SetCardState("Wrench", bob.ID, StateUnknown, true)
		assert.Equal(t, StateUnknown, tr.CellState("Wrench", bob.ID))
		assert.Equal(t, StateUnknown, tr.CellState("Wrench", HolderEnvelope))
		assert.Equal(t, StateUnknown, tr.CellState("Wrench", players[2].ID))
	})

	t.Run("marking envelope clears every hand", func(t *testing.T) {
		tr.SetCardState("Rope", HolderEnvelope, StateEnvelope, true)
		assert.Equal(t, StateEnvelope, tr.CellState("Rope", HolderEnvelope))
		for _, p := range tr.Players() {
			assert.Equal(t, StateNotOwned, tr.CellState("Rope", p.ID))
		}
	})

	t.Run("manual edits record the previous state", func(t *testing.T) {
		snap := tr.Snapshot()
		var found bool
		for _, d := range snap.Deductions {
			if d.Type == DeductionEnvelope && d.CardName == "Rope" && d.PreviousState != nil {
				found = true
				assert.Equal(t, StateUnknown, *d.PreviousState)
			}
		}
		assert.True(t, found, "expected a manual deduction with previous state for Rope")
	})
}

func TestRecordOpenedCards(t *testing.T) {
	tr, players := startedTracker(t)
	bob := players[1]

	t.Run("with a player the cards become theirs", func(t *testing.T) {
		tr.RecordOpenedCards([]string{"Hall"}, bob.ID)
		assert.Equal(t, StateOwned, tr.CellState("Hall", bob.ID))
		assert.Equal(t, StateNotOwned, tr.CellState("Hall", HolderEnvelope))
	})

	t.Run("without a player the cards leave contention entirely", func(t *testing.T) {
		tr.RecordOpenedCards([]string{"Library"}, "")
		assert.Equal(t, StateNotOwned, tr.CellState("Library", HolderEnvelope))
		for _, p := range tr.Players() {
			assert.Equal(t, StateNotOwned, tr.CellState("Library", p.ID))
		}
	})
}

func TestClearCardRow(t *testing.T) {
	// GIVEN a card with accumulated knowledge
	tr, players := startedTracker(t)
	tr.SetCardState("Revolver", players[1].ID, StateOwned, true)

	// WHEN the operator clears the row
	tr.ClearCardRow("Revolver")

	// THEN every holder is back to unknown
	assert.Equal(t, StateUnknown, tr.CellState("Revolver", HolderEnvelope))
	for _, p := range tr.Players() {
		assert.Equal(t, StateUnknown, tr.CellState("Revolver", p.ID))
	}
}

func TestSnapshotRestore(t *testing.T) {
	// GIVEN a session with some history
	tr, players := startedTracker(t)
	tr.RecordSuggestion(SuggestionInput{
		SuggesterID:     players[0].ID,
		Suspect:         "Professor Plum",
		Weapon:          "Revolver",
		Room:            "Study",
		PassedPlayerIDs: []string{players[1].ID},
		ShowerID:        players[2].ID,
	})
	tr.UpdateNotes("watch Bob")
	snap := tr.Snapshot()

	t.Run("the snapshot is a deep copy", func(t *testing.T) {
		tr.SetCardState("Wrench", players[1].ID, StateOwned, true)
		assert.Equal(t, StateUnknown, snap.Matrix["Wrench"][players[1].ID].State)
	})

	t.Run("restore reproduces the captured state", func(t *testing.T) {
		log := logrus.New()
		log.SetOutput(io.Discard)
		fresh := New(log, NewBus())
		fresh.Restore(snap)

		restored := fresh.Snapshot()
		assert.Equal(t, snap.CurrentTurn, restored.CurrentTurn)
		assert.Equal(t, snap.Notes, restored.Notes)
		assert.Equal(t, len(snap.Suggestions), len(restored.Suggestions))
		assert.Equal(t, len(snap.CardLinks), len(restored.CardLinks))
		assert.Equal(t, snap.Matrix["Miss Scarlett"][players[0].ID].State,
			restored.Matrix["Miss Scarlett"][players[0].ID].State)
	})
}

func TestResetGame(t *testing.T) {
	// GIVEN a game in progress
	tr, players := startedTracker(t)
	tr.RecordSuggestion(SuggestionInput{
		SuggesterID:     players[0].ID,
		Suspect:         "Professor Plum",
		Weapon:          "Revolver",
		Room:            "Study",
		PassedPlayerIDs: []string{players[1].ID, players[2].ID},
	})

	// WHEN the operator resets
	tr.ResetGame()

	// THEN all game knowledge is gone but the roster survives
	assert.False(t, tr.GameStarted())
	assert.Equal(t, 0, tr.CurrentTurn())
	assert.Empty(t, tr.Snapshot().Suggestions)
	assert.Empty(t, tr.Snapshot().Deductions)
	assert.Len(t, tr.Players(), 3)

	// AND the seats keep their identity but lose their hands
	assert.Equal(t, players[0].ID, tr.MyPlayerID())
	for _, p := range tr.Players() {
		assert.Zero(t, p.CardCount, p.Name)
		assert.Empty(t, p.ConfirmedCards, p.Name)
	}
}
