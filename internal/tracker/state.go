package tracker

import (
	"fmt"
	"time"
)

// CardState is the knowledge state of one (card, holder) cell.
type CardState int

const (
	StateUnknown CardState = iota
	StateOwned
	StateNotOwned
	StatePotentiallyOwned
	StateEnvelope
)

var stateNames = []string{"unknown", "owned", "not_owned", "potentially_owned", "envelope"}

func (s CardState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether the state is one the inference engine never
// downgrades on its own. Only manual edits may move a terminal cell back
// to unknown.
func (s CardState) IsTerminal() bool {
	return s == StateOwned || s == StateNotOwned || s == StateEnvelope
}

// MarshalText makes snapshots store states by name rather than ordinal.
func (s CardState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CardState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = CardState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown card state %q", text)
}

// ParseCardState converts a state name to its CardState value.
func ParseCardState(name string) (CardState, error) {
	var s CardState
	if err := s.UnmarshalText([]byte(name)); err != nil {
		return StateUnknown, err
	}
	return s, nil
}

// HolderEnvelope is the sentinel holder id for the solution envelope.
const HolderEnvelope = "envelope"

// Cell is what we know about one card for one holder.
type Cell struct {
	State CardState `json:"state"`
	// For potentially_owned cells, the suggestions whose card links
	// implicate this cell.
	LinkedSuggestionIDs []string `json:"linkedSuggestionIds,omitempty"`
}

// Matrix maps card name -> holder id -> cell. Holder ids range over every
// player plus the HolderEnvelope sentinel; the map is total once a game
// has started.
type Matrix map[string]map[string]Cell

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for card, row := range m {
		newRow := make(map[string]Cell, len(row))
		for holder, cell := range row {
			if len(cell.LinkedSuggestionIDs) > 0 {
				ids := make([]string, len(cell.LinkedSuggestionIDs))
				copy(ids, cell.LinkedSuggestionIDs)
				cell.LinkedSuggestionIDs = ids
			}
			newRow[holder] = cell
		}
		out[card] = newRow
	}
	return out
}

// Player is one seat at the table.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	IsMe  bool   `json:"isMe"`
	// CardCount is the hand size, 0 while unknown. Assigned at game start
	// as floor(18/N); the human player's confirmed hand takes precedence.
	CardCount int `json:"cardCount,omitempty"`
	// ConfirmedCards is populated only for the human player, from manual
	// hand entry.
	ConfirmedCards []string `json:"confirmedCards"`
}

// Suggestion is one observed suggestion outcome. Immutable after creation
// except for LinkID, attached when a card link is born from it.
type Suggestion struct {
	ID          string `json:"id"`
	TurnNumber  int    `json:"turnNumber"`
	SuggesterID string `json:"suggesterId"`
	Suspect     string `json:"suspect"`
	Weapon      string `json:"weapon"`
	Room        string `json:"room"`
	// Responders who proved they hold none of the three cards, in order.
	PassedPlayerIDs []string `json:"passedPlayerIds"`
	// ShowerID is who proved possession, empty if nobody showed.
	ShowerID string `json:"showerId,omitempty"`
	// ShownCard is set only when the observer knows which card was shown.
	ShownCard string    `json:"shownCard,omitempty"`
	LinkID    string    `json:"linkId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Cards returns the suggested triple.
func (s *Suggestion) Cards() []string {
	return []string{s.Suspect, s.Weapon, s.Room}
}

// Names whether a card is part of the suggested triple.
func (s *Suggestion) Names(card string) bool {
	return card == s.Suspect || card == s.Weapon || card == s.Room
}

// CardLink is a disjunctive constraint: PlayerID holds at least one of
// PossibleCards. Candidates only ever shrink; links are never deleted.
type CardLink struct {
	ID            string   `json:"id"`
	SuggestionID  string   `json:"suggestionId"`
	PlayerID      string   `json:"playerId"`
	PossibleCards []string `json:"possibleCards"`
	Resolved      bool     `json:"resolved"`
	ResolvedCard  string   `json:"resolvedCard,omitempty"`
}

// DeductionType tags an audit log entry with what kind of fact it records.
type DeductionType string

const (
	DeductionCardOwned        DeductionType = "card_owned"
	DeductionCardNotOwned     DeductionType = "card_not_owned"
	DeductionEnvelope         DeductionType = "envelope"
	DeductionLinkResolved     DeductionType = "link_resolved"
	DeductionCrossReference   DeductionType = "cross_reference"
	DeductionCardCount        DeductionType = "card_count"
	DeductionManualAdjustment DeductionType = "manual_adjustment"
)

// Deduction is an append-only, human-readable audit entry emitted whenever
// the matrix changes, by rule firing or manual edit.
type Deduction struct {
	ID                 string        `json:"id"`
	Type               DeductionType `json:"type"`
	Description        string        `json:"description"`
	CardName           string        `json:"cardName"`
	PlayerID           string        `json:"playerId,omitempty"`
	SourceSuggestionID string        `json:"sourceSuggestionId,omitempty"`
	// PreviousState is stored for manual edits so the UI can show what the
	// cell was before. Bookkeeping only, not transactional undo.
	PreviousState *CardState `json:"previousState,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Accusation records an accusation made at the table. Stored for the log;
// no inference reads it.
type Accusation struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"playerId"`
	Suspect   string    `json:"suspect"`
	Weapon    string    `json:"weapon"`
	Room      string    `json:"room"`
	IsCorrect bool      `json:"isCorrect"`
	Timestamp time.Time `json:"timestamp"`
}

// SolvedEnvelope is the derived solution triple. A slot stays empty until
// that category's envelope card is confirmed.
type SolvedEnvelope struct {
	Suspect string `json:"suspect,omitempty"`
	Weapon  string `json:"weapon,omitempty"`
	Room    string `json:"room,omitempty"`
}

// Complete reports whether all three slots are known.
func (s SolvedEnvelope) Complete() bool {
	return s.Suspect != "" && s.Weapon != "" && s.Room != ""
}

// Snapshot is a deep copy of the full tracker state, safe to hand to the
// probability engine, the advisor, or storage while the tracker moves on.
type Snapshot struct {
	Players       []Player       `json:"players"`
	MyPlayerID    string         `json:"myPlayerId,omitempty"`
	FirstPlayerID string         `json:"firstPlayerId,omitempty"`
	CurrentTurn   int            `json:"currentTurn"`
	GameStarted   bool           `json:"gameStarted"`
	Matrix        Matrix         `json:"knowledgeMatrix"`
	CardLinks     []CardLink     `json:"cardLinks"`
	Suggestions   []Suggestion   `json:"suggestions"`
	Accusations   []Accusation   `json:"accusations"`
	Deductions    []Deduction    `json:"deductions"`
	Notes         string         `json:"notes"`
	Solved        SolvedEnvelope `json:"solvedEnvelope"`
}

// PlayerByID finds a player in the snapshot, nil if absent.
func (s *Snapshot) PlayerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// PlayerName resolves a player id to a display name.
func (s *Snapshot) PlayerName(id string) string {
	if id == HolderEnvelope {
		return "Envelope"
	}
	if p := s.PlayerByID(id); p != nil {
		return p.Name
	}
	return "Unknown"
}
