package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cluetrack/internal/cards"
)

// playerColors are assigned to players in setup order, first free color wins.
var playerColors = []string{
	"#dc2626", // red
	"#ea580c", // orange
	"#16a34a", // green
	"#2563eb", // blue
	"#9333ea", // purple
	"#ec4899", // pink
}

const fallbackColor = "#6b7280"

const (
	minPlayers = 3
	maxPlayers = 6
)

// Tracker is the single mutable fact base for one game session: players,
// the knowledge matrix, card links, and the append-only suggestion and
// deduction logs. Every mutating operation funnels through "apply event,
// then saturate", so readers never observe the matrix mid-update.
//
// The tracker is not safe for concurrent use; the application is
// single-threaded and event-driven.
type Tracker struct {
	log logrus.FieldLogger
	bus *Bus

	players       []*Player
	myPlayerID    string
	firstPlayerID string
	currentTurn   int
	gameStarted   bool

	matrix      Matrix
	links       []*CardLink
	suggestions []*Suggestion
	accusations []Accusation
	deductions  []Deduction
	notes       string
	solved      SolvedEnvelope
}

// New creates an empty tracker. The bus may be shared with renderers that
// want to see deductions as they are made.
func New(log logrus.FieldLogger, bus *Bus) *Tracker {
	if bus == nil {
		bus = NewBus()
	}
	return &Tracker{
		log:    log,
		bus:    bus,
		matrix: Matrix{},
	}
}

// Bus returns the tracker's event bus.
func (t *Tracker) Bus() *Bus { return t.bus }

// --- Setup-phase operations ---

// AddPlayer adds a seat during setup and returns the created player, or
// nil when the name is empty, already taken, or the table is full.
func (t *Tracker) AddPlayer(name string) *Player {
	name = strings.TrimSpace(name)
	if name == "" {
		t.log.Warn("Ignoring player with empty name")
		return nil
	}
	if len(t.players) >= maxPlayers {
		t.log.Warnf("Ignoring player %q: table already has %d seats", name, maxPlayers)
		return nil
	}
	for _, p := range t.players {
		if strings.EqualFold(p.Name, name) {
			t.log.Warnf("Ignoring duplicate player name %q", name)
			return nil
		}
	}

	color := fallbackColor
	for _, candidate := range playerColors {
		taken := false
		for _, p := range t.players {
			if p.Color == candidate {
				taken = true
				break
			}
		}
		if !taken {
			color = candidate
			break
		}
	}

	p := &Player{
		ID:             uuid.NewString(),
		Name:           name,
		Color:          color,
		ConfirmedCards: []string{},
	}
	t.players = append(t.players, p)
	t.log.Debugf("Added player %s (%s)", p.Name, p.ID)
	return p
}

// RemovePlayer drops a seat during setup.
func (t *Tracker) RemovePlayer(id string) {
	kept := t.players[:0]
	for _, p := range t.players {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	t.players = kept
	if t.myPlayerID == id {
		t.myPlayerID = ""
	}
	if t.firstPlayerID == id {
		t.firstPlayerID = ""
	}
}

// ReorderPlayers rearranges the seats to the given id order. Ids not in
// the tracker are ignored; players missing from the list keep their
// relative order at the end.
func (t *Tracker) ReorderPlayers(ids []string) {
	var ordered []*Player
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		for _, p := range t.players {
			if p.ID == id && !seen[id] {
				ordered = append(ordered, p)
				seen[id] = true
			}
		}
	}
	for _, p := range t.players {
		if !seen[p.ID] {
			ordered = append(ordered, p)
		}
	}
	t.players = ordered
}

// SetMyPlayer marks which seat is the human player.
func (t *Tracker) SetMyPlayer(id string) {
	t.myPlayerID = id
	for _, p := range t.players {
		p.IsMe = id != "" && p.ID == id
	}
}

// SetFirstPlayer records who takes the first turn.
func (t *Tracker) SetFirstPlayer(id string) {
	t.firstPlayerID = id
}

// SetMyCards seeds the human player's confirmed hand: every named card is
// owned by them, out of the envelope, and out of every other hand. Runs
// inference afterward.
func (t *Tracker) SetMyCards(cardNames []string) {
	if t.myPlayerID == "" {
		t.log.Warn("SetMyCards called before SetMyPlayer; ignoring")
		return
	}
	if len(t.matrix) == 0 {
		t.matrix = t.emptyMatrix()
	}

	var confirmed []string
	for _, card := range cardNames {
		if !cards.IsValid(card) {
			t.log.Warnf("Ignoring unknown card name %q", card)
			continue
		}
		confirmed = append(confirmed, card)
		t.setCell(card, t.myPlayerID, StateOwned)
		t.setCell(card, HolderEnvelope, StateNotOwned)
		for _, p := range t.players {
			if p.ID != t.myPlayerID {
				t.setCell(card, p.ID, StateNotOwned)
			}
		}
		t.addDeduction(Deduction{
			Type:        DeductionCardOwned,
			Description: fmt.Sprintf("You have %s", card),
			CardName:    card,
			PlayerID:    t.myPlayerID,
		})
	}

	if me := t.playerByID(t.myPlayerID); me != nil {
		me.ConfirmedCards = confirmed
		me.CardCount = len(confirmed)
	}
	t.runInference()
}

// StartGame freezes the seats, assigns hand sizes, and initializes the
// knowledge matrix. Every player gets floor(18/N) cards; the human
// player's confirmed hand size takes precedence. The 18 mod N leftover
// cards are never dealt and are reconciled through RecordOpenedCards.
func (t *Tracker) StartGame() error {
	n := len(t.players)
	if n < minPlayers || n > maxPlayers {
		return fmt.Errorf("need %d-%d players, have %d", minPlayers, maxPlayers, n)
	}

	perPlayer := cards.DistributedCards / n
	leftover := cards.DistributedCards % n
	for _, p := range t.players {
		if p.ID == t.myPlayerID && len(p.ConfirmedCards) > 0 {
			p.CardCount = len(p.ConfirmedCards)
		} else {
			p.CardCount = perPlayer
		}
	}

	t.matrix = t.emptyMatrix()

	// Re-apply the human player's hand if it was entered before start.
	if me := t.playerByID(t.myPlayerID); me != nil {
		for _, card := range me.ConfirmedCards {
			t.setCell(card, me.ID, StateOwned)
			t.setCell(card, HolderEnvelope, StateNotOwned)
			for _, p := range t.players {
				if p.ID != me.ID {
					t.setCell(card, p.ID, StateNotOwned)
				}
			}
		}
	}

	t.gameStarted = true
	t.currentTurn = 1
	t.log.Infof("Game started with %d players, %d cards each, %d leftover", n, perPlayer, leftover)

	players := t.playersCopy()
	t.bus.Publish(GameStartedEvent{Players: players, CardsPerPlayer: perPlayer, LeftoverCards: leftover})
	t.runInference()
	return nil
}

// ResetGame wipes all game knowledge but keeps the roster, so the same
// table can deal a fresh game without re-entering every seat.
func (t *Tracker) ResetGame() {
	for _, p := range t.players {
		p.CardCount = 0
		p.ConfirmedCards = []string{}
	}
	t.currentTurn = 0
	t.gameStarted = false
	t.matrix = Matrix{}
	t.links = nil
	t.suggestions = nil
	t.accusations = nil
	t.deductions = nil
	t.notes = ""
	t.solved = SolvedEnvelope{}
}

// --- Game-phase operations ---

// SuggestionInput is the observed outcome of one suggestion.
type SuggestionInput struct {
	SuggesterID     string
	Suspect         string
	Weapon          string
	Room            string
	PassedPlayerIDs []string
	ShowerID        string
	ShownCard       string
}

// RecordSuggestion translates one suggestion outcome into matrix facts and,
// when a card was shown but not seen, a card link. The inference engine
// runs unconditionally afterward.
func (t *Tracker) RecordSuggestion(in SuggestionInput) *Suggestion {
	sug := &Suggestion{
		ID:              uuid.NewString(),
		TurnNumber:      t.currentTurn,
		SuggesterID:     in.SuggesterID,
		Suspect:         in.Suspect,
		Weapon:          in.Weapon,
		Room:            in.Room,
		PassedPlayerIDs: append([]string(nil), in.PassedPlayerIDs...),
		ShowerID:        in.ShowerID,
		ShownCard:       in.ShownCard,
		Timestamp:       time.Now(),
	}
	t.suggestions = append(t.suggestions, sug)
	t.currentTurn++

	// A pass proves the player holds none of the three cards. Downgrading
	// potentially_owned matters: a later pass can retroactively invalidate
	// a candidate of an open card link.
	for _, passedID := range sug.PassedPlayerIDs {
		for _, card := range sug.Cards() {
			state := t.cell(card, passedID).State
			if state == StateUnknown || state == StatePotentiallyOwned {
				t.setCell(card, passedID, StateNotOwned)
				t.addDeduction(Deduction{
					Type:               DeductionCardNotOwned,
					Description:        fmt.Sprintf("%s passed on %s", t.playerName(passedID), card),
					CardName:           card,
					PlayerID:           passedID,
					SourceSuggestionID: sug.ID,
				})
			}
		}
	}

	switch {
	case sug.ShowerID != "" && sug.ShownCard != "":
		// The observer saw the card.
		t.setCell(sug.ShownCard, sug.ShowerID, StateOwned)
		t.setCell(sug.ShownCard, HolderEnvelope, StateNotOwned)
		for _, p := range t.players {
			if p.ID != sug.ShowerID && t.cell(sug.ShownCard, p.ID).State == StateUnknown {
				t.setCell(sug.ShownCard, p.ID, StateNotOwned)
			}
		}
		t.addDeduction(Deduction{
			Type:               DeductionCardOwned,
			Description:        fmt.Sprintf("%s showed %s", t.playerName(sug.ShowerID), sug.ShownCard),
			CardName:           sug.ShownCard,
			PlayerID:           sug.ShowerID,
			SourceSuggestionID: sug.ID,
		})

	case sug.ShowerID != "":
		// Shown card unknown: a disjunctive constraint is born.
		var possible []string
		for _, card := range sug.Cards() {
			if t.cell(card, sug.ShowerID).State != StateNotOwned {
				possible = append(possible, card)
			}
		}
		if len(possible) > 0 {
			link := &CardLink{
				ID:            uuid.NewString(),
				SuggestionID:  sug.ID,
				PlayerID:      sug.ShowerID,
				PossibleCards: possible,
			}
			t.links = append(t.links, link)
			sug.LinkID = link.ID

			for _, card := range possible {
				cell := t.cell(card, sug.ShowerID)
				switch cell.State {
				case StateUnknown:
					t.matrix[card][sug.ShowerID] = Cell{
						State:               StatePotentiallyOwned,
						LinkedSuggestionIDs: []string{sug.ID},
					}
				case StatePotentiallyOwned:
					cell.LinkedSuggestionIDs = append(cell.LinkedSuggestionIDs, sug.ID)
					t.matrix[card][sug.ShowerID] = cell
				}
			}
			t.log.Debugf("%s holds one of %v", t.playerName(sug.ShowerID), possible)
		}
	}

	t.bus.Publish(SuggestionRecordedEvent{Suggestion: *sug})
	t.runInference()
	return sug
}

// SetCardState is the manual override entry point. The setter performs the
// same propagation as the automatic rules (owned pushes not_owned to
// everyone else; envelope pushes not_owned to all players) and, when
// createDeduction is set, prunes stale audit entries for the same cell,
// records the edit with its previous state, and re-runs inference.
func (t *Tracker) SetCardState(cardName, holder string, newState CardState, createDeduction bool) {
	if len(t.matrix) == 0 {
		t.matrix = t.emptyMatrix()
	}
	row, ok := t.matrix[cardName]
	if !ok {
		t.log.Warnf("SetCardState for unknown card %q", cardName)
		return
	}
	previous := row[holder].State
	t.setCell(cardName, holder, newState)

	if newState == StateOwned && holder != HolderEnvelope {
		t.setCell(cardName, HolderEnvelope, StateNotOwned)
		for _, p := range t.players {
			if p.ID != holder {
				t.setCell(cardName, p.ID, StateNotOwned)
			}
		}
	}

	if newState == StateEnvelope || (holder == HolderEnvelope && newState == StateOwned) {
		for _, p := range t.players {
			t.setCell(cardName, p.ID, StateNotOwned)
		}
		t.setCell(cardName, HolderEnvelope, StateEnvelope)
	}

	// Cycling back to unknown undoes the not_owned cells the old positive
	// state derived, so an accidental click is recoverable. Cells in
	// potentially_owned stay put; those came from suggestions.
	if newState == StateUnknown && previous == StateOwned && holder != HolderEnvelope {
		t.setCell(cardName, HolderEnvelope, StateUnknown)
		for _, p := range t.players {
			if p.ID != holder && t.cell(cardName, p.ID).State == StateNotOwned {
				t.setCell(cardName, p.ID, StateUnknown)
			}
		}
	}
	if newState == StateUnknown && previous == StateEnvelope {
		for _, p := range t.players {
			if t.cell(cardName, p.ID).State == StateNotOwned {
				t.setCell(cardName, p.ID, StateUnknown)
			}
		}
	}

	if createDeduction && previous != newState {
		t.pruneCellDeductions(cardName, holder)

		var dType DeductionType
		var desc string
		switch newState {
		case StateEnvelope:
			dType = DeductionEnvelope
			desc = fmt.Sprintf("%s manually marked as solution", cardName)
		case StateOwned:
			dType = DeductionCardOwned
			desc = fmt.Sprintf("%s manually marked as owning %s", t.playerName(holder), cardName)
		case StateNotOwned:
			dType = DeductionCardNotOwned
			desc = fmt.Sprintf("%s manually marked as not owning %s", t.playerName(holder), cardName)
		case StatePotentiallyOwned:
			dType = DeductionManualAdjustment
			desc = fmt.Sprintf("%s manually marked as potentially owned", cardName)
		case StateUnknown:
			dType = DeductionManualAdjustment
			desc = fmt.Sprintf("%s state manually reset to unknown", cardName)
		}
		prev := previous
		d := Deduction{
			Type:          dType,
			Description:   desc,
			CardName:      cardName,
			PreviousState: &prev,
		}
		if holder != HolderEnvelope {
			d.PlayerID = holder
		}
		t.addDeduction(d)
		t.runInference()
	}
}

// RecordOpenedCards bulk-marks revealed cards. With a playerID they become
// that player's; without one they are removed from contention entirely
// (owned by nobody, not in the envelope), which is how undealt leftover
// cards are reconciled.
func (t *Tracker) RecordOpenedCards(cardNames []string, playerID string) {
	if len(t.matrix) == 0 {
		t.matrix = t.emptyMatrix()
	}
	for _, card := range cardNames {
		if !cards.IsValid(card) {
			t.log.Warnf("Ignoring unknown card name %q", card)
			continue
		}
		t.setCell(card, HolderEnvelope, StateNotOwned)
		if playerID != "" {
			for _, p := range t.players {
				if p.ID == playerID {
					t.setCell(card, p.ID, StateOwned)
				} else {
					t.setCell(card, p.ID, StateNotOwned)
				}
			}
			t.addDeduction(Deduction{
				Type:        DeductionCardOwned,
				Description: fmt.Sprintf("%s revealed - owned by %s", card, t.playerName(playerID)),
				CardName:    card,
				PlayerID:    playerID,
			})
		} else {
			for _, p := range t.players {
				t.setCell(card, p.ID, StateNotOwned)
			}
			t.addDeduction(Deduction{
				Type:        DeductionManualAdjustment,
				Description: fmt.Sprintf("%s revealed (open card)", card),
				CardName:    card,
			})
		}
	}
	t.runInference()
}

// ClearCardRow resets one card to unknown for every holder.
func (t *Tracker) ClearCardRow(cardName string) {
	if _, ok := t.matrix[cardName]; !ok {
		return
	}
	t.setCell(cardName, HolderEnvelope, StateUnknown)
	for _, p := range t.players {
		t.setCell(cardName, p.ID, StateUnknown)
	}
	t.addDeduction(Deduction{
		Type:        DeductionManualAdjustment,
		Description: fmt.Sprintf("%s row cleared (reset to unknown)", cardName),
		CardName:    cardName,
	})
	t.runInference()
}

// UpdateNotes replaces the free-text notes.
func (t *Tracker) UpdateNotes(notes string) {
	t.notes = notes
}

// RecordAccusation appends to the accusation log. Inference never reads it.
func (t *Tracker) RecordAccusation(playerID, suspect, weapon, room string, correct bool) Accusation {
	acc := Accusation{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Suspect:   suspect,
		Weapon:    weapon,
		Room:      room,
		IsCorrect: correct,
		Timestamp: time.Now(),
	}
	t.accusations = append(t.accusations, acc)
	return acc
}

// --- Read access ---

func (t *Tracker) Players() []Player       { return t.playersCopy() }
func (t *Tracker) MyPlayerID() string      { return t.myPlayerID }
func (t *Tracker) FirstPlayerID() string   { return t.firstPlayerID }
func (t *Tracker) CurrentTurn() int        { return t.currentTurn }
func (t *Tracker) GameStarted() bool       { return t.gameStarted }
func (t *Tracker) Notes() string           { return t.notes }
func (t *Tracker) Solved() SolvedEnvelope  { return t.solved }
func (t *Tracker) DeductionCount() int     { return len(t.deductions) }

// CellState reads one matrix cell.
func (t *Tracker) CellState(cardName, holder string) CardState {
	return t.cell(cardName, holder).State
}

// Snapshot deep-copies the full state.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		Players:       t.playersCopy(),
		MyPlayerID:    t.myPlayerID,
		FirstPlayerID: t.firstPlayerID,
		CurrentTurn:   t.currentTurn,
		GameStarted:   t.gameStarted,
		Matrix:        t.matrix.Clone(),
		Notes:         t.notes,
		Solved:        t.solved,
	}
	snap.CardLinks = make([]CardLink, 0, len(t.links))
	for _, l := range t.links {
		link := *l
		link.PossibleCards = append([]string(nil), l.PossibleCards...)
		snap.CardLinks = append(snap.CardLinks, link)
	}
	snap.Suggestions = make([]Suggestion, 0, len(t.suggestions))
	for _, s := range t.suggestions {
		sug := *s
		sug.PassedPlayerIDs = append([]string(nil), s.PassedPlayerIDs...)
		snap.Suggestions = append(snap.Suggestions, sug)
	}
	snap.Accusations = append([]Accusation(nil), t.accusations...)
	snap.Deductions = append([]Deduction(nil), t.deductions...)
	return snap
}

// Restore replaces the tracker state with a previously saved snapshot.
func (t *Tracker) Restore(snap Snapshot) {
	t.players = nil
	for i := range snap.Players {
		p := snap.Players[i]
		p.ConfirmedCards = append([]string(nil), p.ConfirmedCards...)
		t.players = append(t.players, &p)
	}
	t.myPlayerID = snap.MyPlayerID
	t.firstPlayerID = snap.FirstPlayerID
	t.currentTurn = snap.CurrentTurn
	t.gameStarted = snap.GameStarted
	t.matrix = snap.Matrix.Clone()
	if t.matrix == nil {
		t.matrix = Matrix{}
	}
	t.links = nil
	for i := range snap.CardLinks {
		l := snap.CardLinks[i]
		l.PossibleCards = append([]string(nil), l.PossibleCards...)
		t.links = append(t.links, &l)
	}
	t.suggestions = nil
	for i := range snap.Suggestions {
		s := snap.Suggestions[i]
		s.PassedPlayerIDs = append([]string(nil), s.PassedPlayerIDs...)
		t.suggestions = append(t.suggestions, &s)
	}
	t.accusations = append([]Accusation(nil), snap.Accusations...)
	t.deductions = append([]Deduction(nil), snap.Deductions...)
	t.notes = snap.Notes
	t.solved = snap.Solved
}

// --- Internal helpers ---

func (t *Tracker) emptyMatrix() Matrix {
	m := make(Matrix, cards.TotalCards)
	for _, card := range cards.AllNames() {
		row := make(map[string]Cell, len(t.players)+1)
		row[HolderEnvelope] = Cell{}
		for _, p := range t.players {
			row[p.ID] = Cell{}
		}
		m[card] = row
	}
	return m
}

func (t *Tracker) cell(cardName, holder string) Cell {
	if row, ok := t.matrix[cardName]; ok {
		return row[holder]
	}
	return Cell{}
}

func (t *Tracker) setCell(cardName, holder string, state CardState) {
	row, ok := t.matrix[cardName]
	if !ok {
		return
	}
	row[holder] = Cell{State: state}
}

func (t *Tracker) playerByID(id string) *Player {
	for _, p := range t.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Tracker) playerName(id string) string {
	if id == HolderEnvelope {
		return "Envelope"
	}
	if p := t.playerByID(id); p != nil {
		return p.Name
	}
	return "Unknown"
}

func (t *Tracker) playersCopy() []Player {
	out := make([]Player, 0, len(t.players))
	for _, p := range t.players {
		cp := *p
		cp.ConfirmedCards = append([]string(nil), p.ConfirmedCards...)
		out = append(out, cp)
	}
	return out
}

func (t *Tracker) addDeduction(d Deduction) {
	d.ID = uuid.NewString()
	d.Timestamp = time.Now()
	t.deductions = append(t.deductions, d)
	t.log.Debugf("Deduction [%s]: %s", d.Type, d.Description)
	t.bus.Publish(DeductionEvent{Deduction: d})
}

// pruneCellDeductions drops prior attributable audit entries for one
// (card, holder) cell so a manual edit does not leave stale duplicates.
func (t *Tracker) pruneCellDeductions(cardName, holder string) {
	playerID := holder
	if holder == HolderEnvelope {
		playerID = ""
	}
	kept := t.deductions[:0]
	for _, d := range t.deductions {
		attributable := d.Type == DeductionManualAdjustment || d.Type == DeductionCardOwned ||
			d.Type == DeductionCardNotOwned || d.Type == DeductionEnvelope
		if attributable && d.CardName == cardName && d.PlayerID == playerID {
			continue
		}
		kept = append(kept, d)
	}
	t.deductions = kept
}
