package prob

import (
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluetrack/internal/cards"
	"cluetrack/internal/tracker"
)

// newGame builds a started four-player game where Alice is the human
// player with a confirmed hand.
func newGame(t *testing.T) *tracker.Tracker {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	tr := tracker.New(log, tracker.NewBus())
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		tr.AddPlayer(name)
	}
	players := tr.Players()
	tr.SetMyPlayer(players[0].ID)
	tr.SetMyCards([]string{"Miss Scarlett", "Candlestick", "Ballroom", "Hall"})
	require.NoError(t, tr.StartGame())
	return tr
}

func TestCalculateDistributionsSumToOne(t *testing.T) {
	// GIVEN a fresh game with only the confirmed hand known
	tr := newGame(t)
	snap := tr.Snapshot()

	// WHEN probabilities are computed
	m := Calculate(snap)

	// THEN every card's distribution sums to 1
	for _, card := range cards.AllNames() {
		cp := m[card]
		require.NotNil(t, cp, card)
		total := cp.EnvelopeProbability
		for _, p := range snap.Players {
			total += cp.PlayerProbabilities[p.ID]
		}
		assert.InDelta(t, 1.0, total, 0.02, card)
	}
}

func TestCalculateDefiniteStates(t *testing.T) {
	tr := newGame(t)
	snap := tr.Snapshot()
	me := snap.Players[0]
	m := Calculate(snap)

	t.Run("an owned card is certain", func(t *testing.T) {
		cp := m["Miss Scarlett"]
		assert.Equal(t, 1.0, cp.PlayerProbabilities[me.ID])
		assert.Equal(t, 0.0, cp.EnvelopeProbability)
	})

	t.Run("a confirmed envelope card is certain", func(t *testing.T) {
		tr.SetCardState("Rope", tracker.HolderEnvelope, tracker.StateEnvelope, true)
		m := Calculate(tr.Snapshot())
		assert.Equal(t, 1.0, m["Rope"].EnvelopeProbability)
		for _, p := range snap.Players {
			assert.Equal(t, 0.0, m["Rope"].PlayerProbabilities[p.ID])
		}
	})

	t.Run("eliminations raise the envelope odds of survivors", func(t *testing.T) {
		tr := newGame(t)
		before := Calculate(tr.Snapshot())["Revolver"].EnvelopeProbability

		for _, p := range tr.Snapshot().Players {
			tr.SetCardState("Revolver", p.ID, tracker.StateNotOwned, false)
		}
		// One player left unknown keeps it short of certainty.
		tr.SetCardState("Revolver", tr.Snapshot().Players[3].ID, tracker.StateUnknown, false)

		after := Calculate(tr.Snapshot())["Revolver"].EnvelopeProbability
		assert.Greater(t, after, before)
	})
}

func TestEntropy(t *testing.T) {
	tr := newGame(t)
	m := Calculate(tr.Snapshot())
	e := Entropy(m)

	t.Run("entropy is positive while unsolved", func(t *testing.T) {
		assert.Greater(t, e.Suspects, 0.0)
		assert.Greater(t, e.Weapons, 0.0)
		assert.Greater(t, e.Rooms, 0.0)
		assert.InDelta(t, e.Suspects+e.Weapons+e.Rooms, e.Total, 1e-9)
	})

	t.Run("solving a category drives its entropy to zero", func(t *testing.T) {
		tr.SetCardState("Rope", tracker.HolderEnvelope, tracker.StateEnvelope, true)
		solved := Entropy(Calculate(tr.Snapshot()))
		assert.InDelta(t, 0.0, solved.Weapons, 1e-9)
		assert.Less(t, solved.Total, e.Total)
	})
}

func TestConfidence(t *testing.T) {
	// GIVEN a game where the weapon is solved
	tr := newGame(t)
	tr.SetCardState("Rope", tracker.HolderEnvelope, tracker.StateEnvelope, true)
	conf := Confidence(Calculate(tr.Snapshot()))

	assert.Equal(t, "Rope", conf.Weapon.Card)
	assert.Equal(t, 1.0, conf.Weapon.Confidence)
	assert.NotEmpty(t, conf.Suspect.Card)
	assert.Less(t, conf.Suspect.Confidence, 1.0)
}

func TestAnalyzeSuggestion(t *testing.T) {
	tr := newGame(t)
	snap := tr.Snapshot()
	m := Calculate(snap)

	analysis := AnalyzeSuggestion(snap, m, "Professor Plum", "Revolver", "Library")

	t.Run("outcome probabilities are normalized", func(t *testing.T) {
		require.NotEmpty(t, analysis.Outcomes)
		var total float64
		for _, o := range analysis.Outcomes {
			total += o.Probability
		}
		assert.InDelta(t, 1.0, total, 1e-6)
	})

	t.Run("uncertain cards yield positive expected gain", func(t *testing.T) {
		assert.Greater(t, analysis.ExpectedInfoGain, 0.0)
		assert.False(t, math.IsNaN(analysis.ExpectedInfoGain))
	})

	t.Run("reasoning is populated", func(t *testing.T) {
		assert.NotEmpty(t, analysis.Reasoning)
	})

	t.Run("suggesting own cards is near-worthless", func(t *testing.T) {
		// Alice holds all three of these, so nobody can reveal anything new.
		own := AnalyzeSuggestion(snap, m, "Miss Scarlett", "Candlestick", "Ballroom")
		assert.Less(t, own.ExpectedInfoGain, analysis.ExpectedInfoGain)
	})
}

func TestOptimal(t *testing.T) {
	tr := newGame(t)
	snap := tr.Snapshot()
	m := Calculate(snap)

	result := Optimal(snap, m, DefaultTopN)

	t.Run("it returns at most topN recommendations, best first", func(t *testing.T) {
		require.NotEmpty(t, result.Recommendations)
		assert.LessOrEqual(t, len(result.Recommendations), DefaultTopN)
		best := result.Recommendations[0].ExpectedInfoGain
		for _, rec := range result.Recommendations[1:] {
			assert.GreaterOrEqual(t, best, rec.ExpectedInfoGain)
		}
		assert.Equal(t, best, result.BestEntropyReduction)
	})

	t.Run("every recommendation is a valid triple", func(t *testing.T) {
		for _, rec := range result.Recommendations {
			typ, _ := cards.TypeOf(rec.Suspect)
			assert.Equal(t, cards.TypeSuspect, typ)
			typ, _ = cards.TypeOf(rec.Weapon)
			assert.Equal(t, cards.TypeWeapon, typ)
			typ, _ = cards.TypeOf(rec.Room)
			assert.Equal(t, cards.TypeRoom, typ)
		}
	})

	t.Run("early picks overlap in at most one card", func(t *testing.T) {
		if len(result.Recommendations) >= 2 {
			a, b := result.Recommendations[0], result.Recommendations[1]
			assert.LessOrEqual(t, overlapCount(a, b), 1)
		}
	})

	t.Run("it reports the current entropy", func(t *testing.T) {
		assert.Greater(t, result.CurrentEntropy.Total, 0.0)
	})
}

func overlapCount(a, b SuggestionAnalysis) int {
	n := 0
	if a.Suspect == b.Suspect {
		n++
	}
	if a.Weapon == b.Weapon {
		n++
	}
	if a.Room == b.Room {
		n++
	}
	return n
}

func TestLevelBuckets(t *testing.T) {
	assert.Equal(t, "Extremely Likely", Level(0.95))
	assert.Equal(t, "Very Likely", Level(0.75))
	assert.Equal(t, "Likely", Level(0.55))
	assert.Equal(t, "Possible", Level(0.35))
	assert.Equal(t, "Unlikely", Level(0.15))
	assert.Equal(t, "Very Unlikely", Level(0.05))
}
