package tracker

import (
	"fmt"

	"cluetrack/internal/cards"
)

// maxInferenceIterations is a runaway-loop guard, not a correctness
// requirement; the rules converge in far fewer sweeps at this problem size.
const maxInferenceIterations = 100

type rule struct {
	name  string
	apply func() bool
}

// runInference sweeps the deduction rules over the knowledge matrix and
// card links until a full pass changes nothing, then recomputes the solved
// envelope. Rules never raise errors; a contradictory store (operator
// mis-entry) is absorbed, not repaired.
func (t *Tracker) runInference() {
	if !t.gameStarted || len(t.matrix) == 0 {
		return
	}

	rules := []rule{
		{"link_narrowing", t.narrowLinks},
		{"link_resolution", t.resolveLinks},
		{"cross_reference", t.crossReferenceSuggestions},
		{"sole_candidate", t.deduceSoleCandidate},
		{"pass_invalidates_potential", t.invalidatePotentialsFromPasses},
		{"envelope_by_elimination", t.deduceEnvelopeByElimination},
		{"category_exclusivity", t.enforceCategoryExclusivity},
		{"last_candidate_envelope", t.deduceLastCandidateEnvelope},
		{"hand_size", t.applyHandSizeConstraints},
		{"owner_closure", t.closeOverOwners},
	}

	iterations := 0
	for iterations < maxInferenceIterations {
		iterations++
		changed := false
		for _, r := range rules {
			if r.apply() {
				t.log.Debugf("Inference rule %s fired (sweep %d)", r.name, iterations)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	if iterations == maxInferenceIterations {
		t.log.Warnf("Inference hit the %d-iteration cap; rules may be oscillating", maxInferenceIterations)
	}

	t.recomputeSolvedEnvelope()
}

// narrowLinks drops candidates a player is now known not to hold from
// every unresolved link. Candidate sets only ever shrink.
func (t *Tracker) narrowLinks() bool {
	changed := false
	for _, link := range t.links {
		if link.Resolved {
			continue
		}
		kept := link.PossibleCards[:0]
		for _, card := range link.PossibleCards {
			if t.cell(card, link.PlayerID).State != StateNotOwned {
				kept = append(kept, card)
			}
		}
		if len(kept) < len(link.PossibleCards) {
			t.log.Debugf("Narrowed link for %s to %v", t.playerName(link.PlayerID), kept)
			link.PossibleCards = kept
			changed = true
		}
	}
	return changed
}

// resolveLinks promotes any link with exactly one surviving candidate: the
// player must have shown that card. A link with zero candidates is a
// contradiction from mis-entered events; it is marked resolved without a
// card so the session stays usable.
func (t *Tracker) resolveLinks() bool {
	changed := false
	for _, link := range t.links {
		if link.Resolved {
			continue
		}
		var remaining []string
		for _, card := range link.PossibleCards {
			if t.cell(card, link.PlayerID).State != StateNotOwned {
				remaining = append(remaining, card)
			}
		}

		switch len(remaining) {
		case 1:
			card := remaining[0]
			link.Resolved = true
			link.ResolvedCard = card
			if t.cell(card, link.PlayerID).State != StateOwned {
				t.setCell(card, link.PlayerID, StateOwned)
				t.propagateOwned(card, link.PlayerID)
				turn := 0
				if s := t.suggestionByID(link.SuggestionID); s != nil {
					turn = s.TurnNumber
				}
				t.addDeduction(Deduction{
					Type:               DeductionLinkResolved,
					Description:        fmt.Sprintf("%s must have %s (cross-referenced from Turn %d)", t.playerName(link.PlayerID), card, turn),
					CardName:           card,
					PlayerID:           link.PlayerID,
					SourceSuggestionID: link.SuggestionID,
				})
				changed = true
			}
		case 0:
			link.Resolved = true
			t.log.Warnf("Link for %s has no viable candidates; marking resolved without a card", t.playerName(link.PlayerID))
			changed = true
		}
	}
	return changed
}

// crossReferenceSuggestions compares every show against every pass by the
// same player. The shown card cannot be one the player later passed on, so
// if only one card of the show triple is absent from the pass triple, that
// is the card they showed.
func (t *Tracker) crossReferenceSuggestions() bool {
	changed := false
	for _, show := range t.suggestions {
		if show.ShowerID == "" {
			continue
		}
		for _, pass := range t.suggestions {
			if pass.ID == show.ID || !containsID(pass.PassedPlayerIDs, show.ShowerID) {
				continue
			}
			var mustHaveShown []string
			for _, card := range show.Cards() {
				if !pass.Names(card) {
					mustHaveShown = append(mustHaveShown, card)
				}
			}
			if len(mustHaveShown) != 1 {
				continue
			}
			card := mustHaveShown[0]
			if t.cell(card, show.ShowerID).State == StateOwned {
				continue
			}
			t.setCell(card, show.ShowerID, StateOwned)
			t.propagateOwned(card, show.ShowerID)
			t.addDeduction(Deduction{
				Type:               DeductionCrossReference,
				Description:        fmt.Sprintf("%s must have %s (showed in Turn %d, passed in Turn %d)", t.playerName(show.ShowerID), card, show.TurnNumber, pass.TurnNumber),
				CardName:           card,
				PlayerID:           show.ShowerID,
				SourceSuggestionID: show.ID,
			})
			if link := t.linkBySuggestion(show.ID); link != nil && !link.Resolved {
				link.Resolved = true
				link.ResolvedCard = card
			}
			changed = true
		}
	}
	return changed
}

// deduceSoleCandidate: a card ruled out of the envelope and out of every
// hand but one must sit in that last hand.
func (t *Tracker) deduceSoleCandidate() bool {
	changed := false
	for _, card := range cards.AllNames() {
		if t.cell(card, HolderEnvelope).State == StateEnvelope {
			continue
		}
		var candidates []*Player
		owned := false
		for _, p := range t.players {
			switch t.cell(card, p.ID).State {
			case StateUnknown, StatePotentiallyOwned:
				candidates = append(candidates, p)
			case StateOwned:
				owned = true
			}
		}
		if owned || len(candidates) != 1 || t.cell(card, HolderEnvelope).State != StateNotOwned {
			continue
		}
		sole := candidates[0]
		t.setCell(card, sole.ID, StateOwned)
		t.addDeduction(Deduction{
			Type:        DeductionCardOwned,
			Description: fmt.Sprintf("%s must have %s (all others eliminated)", sole.Name, card),
			CardName:    card,
			PlayerID:    sole.ID,
		})
		changed = true
	}
	return changed
}

// invalidatePotentialsFromPasses re-applies the pass consequence every
// sweep: a card a player passed on can never stay potentially_owned for
// them, no matter what ordering left it there.
func (t *Tracker) invalidatePotentialsFromPasses() bool {
	changed := false
	for _, sug := range t.suggestions {
		for _, passedID := range sug.PassedPlayerIDs {
			for _, card := range sug.Cards() {
				if t.cell(card, passedID).State == StatePotentiallyOwned {
					t.setCell(card, passedID, StateNotOwned)
					changed = true
				}
			}
		}
	}
	return changed
}

// deduceEnvelopeByElimination: a card no player holds must be in the
// envelope.
func (t *Tracker) deduceEnvelopeByElimination() bool {
	changed := false
	for _, card := range cards.AllNames() {
		if t.cell(card, HolderEnvelope).State != StateUnknown {
			continue
		}
		allNotOwned := len(t.players) > 0
		for _, p := range t.players {
			if t.cell(card, p.ID).State != StateNotOwned {
				allNotOwned = false
				break
			}
		}
		if !allNotOwned {
			continue
		}
		t.setCell(card, HolderEnvelope, StateEnvelope)
		t.addDeduction(Deduction{
			Type:        DeductionEnvelope,
			Description: fmt.Sprintf("%s must be in the envelope (no player has it)", card),
			CardName:    card,
		})
		changed = true
	}
	return changed
}

// enforceCategoryExclusivity: once a category has its envelope card, every
// other card of that type is out of the envelope.
func (t *Tracker) enforceCategoryExclusivity() bool {
	changed := false
	for _, typ := range cards.Types() {
		names := cards.ByType(typ)
		envelopeCard := ""
		for _, card := range names {
			if t.cell(card, HolderEnvelope).State == StateEnvelope {
				envelopeCard = card
				break
			}
		}
		if envelopeCard == "" {
			continue
		}
		for _, card := range names {
			if card != envelopeCard && t.cell(card, HolderEnvelope).State == StateUnknown {
				t.setCell(card, HolderEnvelope, StateNotOwned)
				changed = true
			}
		}
	}
	return changed
}

// deduceLastCandidateEnvelope: in a category with no confirmed envelope
// card, if only one card remains unowned by any player, it must be the
// envelope card.
func (t *Tracker) deduceLastCandidateEnvelope() bool {
	changed := false
	for _, typ := range cards.Types() {
		names := cards.ByType(typ)
		hasEnvelope := false
		for _, card := range names {
			if t.cell(card, HolderEnvelope).State == StateEnvelope {
				hasEnvelope = true
				break
			}
		}
		if hasEnvelope {
			continue
		}

		var unowned []string
		for _, card := range names {
			env := t.cell(card, HolderEnvelope).State
			if env != StateUnknown && env != StateNotOwned {
				continue
			}
			if t.ownerOf(card) == "" {
				unowned = append(unowned, card)
			}
		}
		if len(unowned) != 1 {
			continue
		}
		card := unowned[0]
		t.setCell(card, HolderEnvelope, StateEnvelope)
		for _, p := range t.players {
			if t.cell(card, p.ID).State != StateNotOwned {
				t.setCell(card, p.ID, StateNotOwned)
			}
		}
		t.addDeduction(Deduction{
			Type:        DeductionEnvelope,
			Description: fmt.Sprintf("%s must be in envelope (only %s unaccounted for)", card, typ),
			CardName:    card,
		})
		changed = true
	}
	return changed
}

// applyHandSizeConstraints uses known hand sizes four ways: a hand whose
// open slots equal its remaining candidates is full of them (6a); a full
// hand excludes everything else (6b); a player at their elimination limit
// must own their remaining potentials (6c); and a card only one player has
// room for belongs to that player (6d).
func (t *Tracker) applyHandSizeConstraints() bool {
	changed := false
	allNames := cards.AllNames()

	for _, p := range t.players {
		if p.CardCount <= 0 {
			continue
		}

		var ownedCount, notOwnedCount int
		var potential, unknown []string
		for _, card := range allNames {
			switch t.cell(card, p.ID).State {
			case StateOwned:
				ownedCount++
			case StateNotOwned:
				notOwnedCount++
			case StatePotentiallyOwned:
				potential = append(potential, card)
			case StateUnknown:
				unknown = append(unknown, card)
			}
		}
		remainingSlots := p.CardCount - ownedCount
		possible := append(append([]string(nil), potential...), unknown...)

		// 6a: exactly enough candidates to fill the hand.
		if remainingSlots > 0 && remainingSlots == len(possible) {
			for _, card := range possible {
				if t.cell(card, p.ID).State == StateOwned {
					continue
				}
				t.setCell(card, p.ID, StateOwned)
				t.propagateOwned(card, p.ID)
				t.addDeduction(Deduction{
					Type:        DeductionCardCount,
					Description: fmt.Sprintf("%s must have %s (only %d possible cards for %d remaining slots)", p.Name, card, len(possible), remainingSlots),
					CardName:    card,
					PlayerID:    p.ID,
				})
				changed = true
			}
		}

		// 6b: hand fully confirmed, everything else is out.
		if ownedCount == p.CardCount {
			for _, card := range allNames {
				state := t.cell(card, p.ID).State
				if state == StateOwned || state == StateNotOwned {
					continue
				}
				t.setCell(card, p.ID, StateNotOwned)
				t.addDeduction(Deduction{
					Type:        DeductionCardCount,
					Description: fmt.Sprintf("%s doesn't have %s (already has all %d cards)", p.Name, card, p.CardCount),
					CardName:    card,
					PlayerID:    p.ID,
				})
				changed = true
			}
		}

		// 6c: eliminated for the maximum possible count of cards, so every
		// pending potential must be in the hand.
		maxNotOwned := cards.TotalCards - p.CardCount
		if notOwnedCount >= maxNotOwned && len(potential) > 0 {
			for _, card := range potential {
				if t.cell(card, p.ID).State == StateOwned {
					continue
				}
				t.setCell(card, p.ID, StateOwned)
				t.propagateOwned(card, p.ID)
				t.addDeduction(Deduction{
					Type:        DeductionCardCount,
					Description: fmt.Sprintf("%s must have %s (eliminated %d cards, max possible to not have is %d)", p.Name, card, notOwnedCount, maxNotOwned),
					CardName:    card,
					PlayerID:    p.ID,
				})
				changed = true
			}
		}
	}

	// 6d: card with no owner and envelope ruled out, and only one player
	// with both hand room and a non-negative state.
	for _, card := range allNames {
		if t.cell(card, HolderEnvelope).State != StateNotOwned {
			continue
		}
		if t.ownerOf(card) != "" {
			continue
		}
		var roomy []*Player
		for _, p := range t.players {
			if t.cell(card, p.ID).State == StateNotOwned {
				continue
			}
			if p.CardCount > 0 {
				owned := 0
				for _, c := range allNames {
					if t.cell(c, p.ID).State == StateOwned {
						owned++
					}
				}
				if owned >= p.CardCount {
					continue
				}
			}
			roomy = append(roomy, p)
		}
		if len(roomy) != 1 {
			continue
		}
		sole := roomy[0]
		t.setCell(card, sole.ID, StateOwned)
		for _, p := range t.players {
			if p.ID != sole.ID {
				t.setCell(card, p.ID, StateNotOwned)
			}
		}
		t.addDeduction(Deduction{
			Type:        DeductionCardCount,
			Description: fmt.Sprintf("%s must have %s (only player with room for this card)", sole.Name, card),
			CardName:    card,
			PlayerID:    sole.ID,
		})
		changed = true
	}

	return changed
}

// closeOverOwners is an idempotent safety sweep: any card with a confirmed
// owner pushes not_owned to every other holder, catching anything the
// earlier rules missed within the same pass.
func (t *Tracker) closeOverOwners() bool {
	changed := false
	for _, card := range cards.AllNames() {
		ownerID := t.ownerOf(card)
		if ownerID == "" {
			continue
		}
		for _, p := range t.players {
			if p.ID != ownerID && t.cell(card, p.ID).State != StateNotOwned {
				t.setCell(card, p.ID, StateNotOwned)
				changed = true
			}
		}
		if t.cell(card, HolderEnvelope).State != StateNotOwned {
			t.setCell(card, HolderEnvelope, StateNotOwned)
			changed = true
		}
	}
	return changed
}

// propagateOwned pushes the consequences of a confirmed owner: the card is
// out of the envelope and out of every other hand not already confirmed.
func (t *Tracker) propagateOwned(card, ownerID string) {
	t.setCell(card, HolderEnvelope, StateNotOwned)
	for _, p := range t.players {
		if p.ID != ownerID && t.cell(card, p.ID).State != StateOwned {
			t.setCell(card, p.ID, StateNotOwned)
		}
	}
}

func (t *Tracker) ownerOf(card string) string {
	for _, p := range t.players {
		if t.cell(card, p.ID).State == StateOwned {
			return p.ID
		}
	}
	return ""
}

func (t *Tracker) suggestionByID(id string) *Suggestion {
	for _, s := range t.suggestions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (t *Tracker) linkBySuggestion(suggestionID string) *CardLink {
	for _, l := range t.links {
		if l.SuggestionID == suggestionID {
			return l
		}
	}
	return nil
}

// recomputeSolvedEnvelope derives the solution triple from envelope-state
// cells, one per category.
func (t *Tracker) recomputeSolvedEnvelope() {
	wasComplete := t.solved.Complete()
	solved := SolvedEnvelope{}
	for _, typ := range cards.Types() {
		for _, card := range cards.ByType(typ) {
			if t.cell(card, HolderEnvelope).State != StateEnvelope {
				continue
			}
			switch typ {
			case cards.TypeSuspect:
				solved.Suspect = card
			case cards.TypeWeapon:
				solved.Weapon = card
			case cards.TypeRoom:
				solved.Room = card
			}
			break
		}
	}
	t.solved = solved
	if solved.Complete() && !wasComplete {
		t.log.Infof("Solution fully deduced: %s with %s in %s", solved.Suspect, solved.Weapon, solved.Room)
		t.bus.Publish(EnvelopeSolvedEvent{Solved: solved})
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
