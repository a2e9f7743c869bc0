// Package prob layers a best-effort Bayesian estimate on top of the
// knowledge matrix. It is purely advisory: every function here is a
// read-only pass over a tracker snapshot, tolerates partially-populated
// state, and never fails.
package prob

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cluetrack/internal/cards"
	"cluetrack/internal/tracker"
)

const (
	// eliminationBonus raises a card's envelope probability by up to this
	// much as players get ruled out for it.
	eliminationBonus = 0.3
	// linkBoost multiplies a candidate card's probability for a player
	// implicated by an unresolved link ("holds at least one of these").
	linkBoost = 1.5
	// handDivergenceTolerance is how far a player's expected card count may
	// drift from their known hand size before rescaling kicks in.
	handDivergenceTolerance = 0.1
	// normalizeTolerance is the slack allowed before a card's distribution
	// is rescaled to sum to 1.
	normalizeTolerance = 0.01
	// outcomeFloor prunes suggestion outcomes below this probability.
	outcomeFloor = 0.001
	// unknownShowDiscount down-weights "showed an unidentified card"
	// outcomes. A heuristic tunable, not a derived constant.
	unknownShowDiscount = 0.5

	candidatesPerCategory = 4
	uncertaintyWeight     = 0.7
	potentialWeight       = 0.3

	// DefaultTopN is the default recommendation count.
	DefaultTopN = 5
)

// CardProbability is the distribution for one card: envelope plus each
// player, summing to 1.
type CardProbability struct {
	CardName            string
	CardType            cards.Type
	EnvelopeProbability float64
	PlayerProbabilities map[string]float64
}

// Matrix holds a CardProbability per card name.
type Matrix map[string]*CardProbability

// CategoryEntropy is the Shannon entropy of each category's envelope
// distribution. Zero total means fully solved.
type CategoryEntropy struct {
	Suspects float64
	Weapons  float64
	Rooms    float64
	Total    float64
}

// CategoryConfidence is the best envelope guess for one category.
type CategoryConfidence struct {
	Card       string
	Confidence float64
}

// SolutionConfidence is the best guess per category.
type SolutionConfidence struct {
	Suspect CategoryConfidence
	Weapon  CategoryConfidence
	Room    CategoryConfidence
}

// Outcome is one plausible response to a hypothetical suggestion.
type Outcome struct {
	PassedPlayerIDs []string
	ShowerID        string
	ShownCard       string
	Probability     float64
	InformationGain float64
}

// CategoryImpact is the per-category solving potential of a suggestion.
type CategoryImpact struct {
	Suspect float64
	Weapon  float64
	Room    float64
}

// SuggestionAnalysis scores one hypothetical suggestion by expected
// information gain over its enumerated outcomes.
type SuggestionAnalysis struct {
	Suspect          string
	Weapon           string
	Room             string
	ExpectedInfoGain float64
	Outcomes         []Outcome
	Reasoning        string
	Impact           CategoryImpact
}

// OptimalSuggestions is a ranked, diversity-filtered recommendation set.
type OptimalSuggestions struct {
	Recommendations      []SuggestionAnalysis
	CurrentEntropy       CategoryEntropy
	BestEntropyReduction float64
}

// Calculate builds the probability matrix from the snapshot. Definite
// matrix states short-circuit to 0/1; uncertain cards get an envelope
// prior refined by eliminations, player mass weighted by open hand slots,
// a link boost, hand-size rescaling, and a final normalization.
func Calculate(snap tracker.Snapshot) Matrix {
	m := make(Matrix, cards.TotalCards)

	for _, card := range cards.All() {
		row := snap.Matrix[card.Name]
		cp := &CardProbability{
			CardName:            card.Name,
			CardType:            card.Type,
			PlayerProbabilities: make(map[string]float64, len(snap.Players)),
		}
		m[card.Name] = cp

		envState := row[tracker.HolderEnvelope].State
		switch {
		case envState == tracker.StateEnvelope:
			cp.EnvelopeProbability = 1
			for _, p := range snap.Players {
				cp.PlayerProbabilities[p.ID] = 0
			}

		case envState == tracker.StateNotOwned:
			cp.EnvelopeProbability = 0
			if ownerID := ownerOf(snap, card.Name); ownerID != "" {
				for _, p := range snap.Players {
					if p.ID == ownerID {
						cp.PlayerProbabilities[p.ID] = 1
					} else {
						cp.PlayerProbabilities[p.ID] = 0
					}
				}
				break
			}
			distribute(cp, snap, card.Name, 1)

		default:
			if ownerID := ownerOf(snap, card.Name); ownerID != "" {
				cp.EnvelopeProbability = 0
				for _, p := range snap.Players {
					if p.ID == ownerID {
						cp.PlayerProbabilities[p.ID] = 1
					} else {
						cp.PlayerProbabilities[p.ID] = 0
					}
				}
				break
			}
			envProb := envelopeProbability(snap, card.Name, card.Type)
			cp.EnvelopeProbability = envProb
			distribute(cp, snap, card.Name, 1-envProb)
		}
	}

	refineWithLinks(m, snap)
	applyHandSizeScaling(m, snap)
	normalize(m, snap)
	return m
}

// distribute spreads mass across the players not yet eliminated for the
// card, weighted by each player's remaining empty hand slots.
func distribute(cp *CardProbability, snap tracker.Snapshot, cardName string, mass float64) {
	var candidates []tracker.Player
	for _, p := range snap.Players {
		if snap.Matrix[cardName][p.ID].State != tracker.StateNotOwned {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 || mass <= 0 {
		for _, p := range snap.Players {
			cp.PlayerProbabilities[p.ID] = 0
		}
		return
	}

	weights := candidateWeights(snap, candidates)
	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}

	for _, p := range snap.Players {
		switch {
		case snap.Matrix[cardName][p.ID].State == tracker.StateNotOwned:
			cp.PlayerProbabilities[p.ID] = 0
		case totalWeight > 0:
			cp.PlayerProbabilities[p.ID] = mass * weights[p.ID] / totalWeight
		default:
			cp.PlayerProbabilities[p.ID] = mass / float64(len(candidates))
		}
	}
}

// candidateWeights counts each candidate's open hand slots; players with
// more room are proportionally more likely to hold any unresolved card.
func candidateWeights(snap tracker.Snapshot, candidates []tracker.Player) map[string]float64 {
	weights := make(map[string]float64, len(candidates))
	defaultCount := cards.DistributedCards / max(len(snap.Players), 1)
	for _, p := range candidates {
		count := p.CardCount
		if count <= 0 {
			count = defaultCount
		}
		owned := 0
		for _, card := range cards.AllNames() {
			if snap.Matrix[card][p.ID].State == tracker.StateOwned {
				owned++
			}
		}
		weights[p.ID] = math.Max(0, float64(count-owned))
	}
	return weights
}

// envelopeProbability starts at 1/N over the category's surviving envelope
// candidates and climbs with the fraction of players eliminated for the
// card, capped at 1.
func envelopeProbability(snap tracker.Snapshot, cardName string, cardType cards.Type) float64 {
	names := cards.ByType(cardType)

	for _, c := range names {
		if snap.Matrix[c][tracker.HolderEnvelope].State == tracker.StateEnvelope {
			if c == cardName {
				return 1
			}
			return 0
		}
	}

	var possible []string
	for _, c := range names {
		if ownerOf(snap, c) != "" {
			continue
		}
		if snap.Matrix[c][tracker.HolderEnvelope].State == tracker.StateNotOwned {
			continue
		}
		possible = append(possible, c)
	}
	if len(possible) == 0 || !contains(possible, cardName) {
		return 0
	}

	base := 1 / float64(len(possible))
	eliminated := 0
	for _, p := range snap.Players {
		if snap.Matrix[cardName][p.ID].State == tracker.StateNotOwned {
			eliminated++
		}
	}
	bonus := 0.0
	if len(snap.Players) > 0 {
		bonus = float64(eliminated) / float64(len(snap.Players)) * eliminationBonus
	}
	return math.Min(1, base+bonus)
}

// refineWithLinks boosts each unresolved link's surviving candidates for
// the implicated player: they hold at least one of them.
func refineWithLinks(m Matrix, snap tracker.Snapshot) {
	for _, link := range snap.CardLinks {
		if link.Resolved {
			continue
		}
		for _, cardName := range link.PossibleCards {
			if snap.Matrix[cardName][link.PlayerID].State == tracker.StateNotOwned {
				continue
			}
			cp := m[cardName]
			if cp == nil {
				continue
			}
			cp.PlayerProbabilities[link.PlayerID] = math.Min(1, cp.PlayerProbabilities[link.PlayerID]*linkBoost)
		}
	}
}

// applyHandSizeScaling nudges each player's aggregate expected card count
// toward their known hand size when the raw sum diverges materially.
func applyHandSizeScaling(m Matrix, snap tracker.Snapshot) {
	for _, p := range snap.Players {
		if p.CardCount <= 0 {
			continue
		}
		var expected float64
		for _, card := range cards.AllNames() {
			expected += m[card].PlayerProbabilities[p.ID]
		}
		if expected <= 0 || math.Abs(expected-float64(p.CardCount)) <= handDivergenceTolerance {
			continue
		}
		scale := float64(p.CardCount) / expected
		for _, card := range cards.AllNames() {
			cur := m[card].PlayerProbabilities[p.ID]
			if cur > 0 && cur < 1 {
				m[card].PlayerProbabilities[p.ID] = math.Min(1, math.Max(0, cur*scale))
			}
		}
	}
}

// normalize rescales each card's distribution to sum to exactly 1.
func normalize(m Matrix, snap tracker.Snapshot) {
	for _, cp := range m {
		total := cp.EnvelopeProbability
		for _, p := range snap.Players {
			total += cp.PlayerProbabilities[p.ID]
		}
		if total > 0 && math.Abs(total-1) > normalizeTolerance {
			cp.EnvelopeProbability /= total
			for _, p := range snap.Players {
				cp.PlayerProbabilities[p.ID] /= total
			}
		}
	}
}

// Entropy computes Shannon entropy over each category's envelope
// distribution; terms at 0 or 1 contribute nothing.
func Entropy(m Matrix) CategoryEntropy {
	categoryEntropy := func(names []string) float64 {
		var h float64
		for _, name := range names {
			p := envProbOf(m, name)
			if p > 0 && p < 1 {
				h -= p * math.Log2(p)
			}
		}
		return h
	}

	e := CategoryEntropy{
		Suspects: categoryEntropy(cards.Suspects),
		Weapons:  categoryEntropy(cards.Weapons),
		Rooms:    categoryEntropy(cards.Rooms),
	}
	e.Total = e.Suspects + e.Weapons + e.Rooms
	return e
}

// Confidence returns the highest-envelope-probability card per category.
func Confidence(m Matrix) SolutionConfidence {
	best := func(names []string) CategoryConfidence {
		var out CategoryConfidence
		for _, name := range names {
			if p := envProbOf(m, name); p > out.Confidence {
				out = CategoryConfidence{Card: name, Confidence: p}
			}
		}
		return out
	}
	return SolutionConfidence{
		Suspect: best(cards.Suspects),
		Weapon:  best(cards.Weapons),
		Room:    best(cards.Rooms),
	}
}

// AnalyzeSuggestion estimates the expected information gain of suggesting
// the given triple next turn: enumerate plausible responses in turn order
// after the asking player, score each with -log2 of the prior probability
// of the revealed fact, and sum probability-weighted gains.
func AnalyzeSuggestion(snap tracker.Snapshot, m Matrix, suspect, weapon, room string) SuggestionAnalysis {
	triple := []string{suspect, weapon, room}
	responders := respondersAfterMe(snap)

	outcomes := enumerateOutcomes(m, responders, triple)
	var expected float64
	for i := range outcomes {
		outcomes[i].InformationGain = outcomeInfoGain(m, snap, outcomes[i], triple)
		expected += outcomes[i].Probability * outcomes[i].InformationGain
	}

	return SuggestionAnalysis{
		Suspect:          suspect,
		Weapon:           weapon,
		Room:             room,
		ExpectedInfoGain: expected,
		Outcomes:         outcomes,
		Reasoning:        buildReasoning(m, suspect, weapon, room, outcomes, expected),
		Impact:           categoryImpact(m, triple),
	}
}

// respondersAfterMe lists players in turn order starting immediately after
// the asking player.
func respondersAfterMe(snap tracker.Snapshot) []tracker.Player {
	n := len(snap.Players)
	if n == 0 {
		return nil
	}
	myIndex := -1
	for i, p := range snap.Players {
		if p.ID == snap.MyPlayerID {
			myIndex = i
			break
		}
	}
	var out []tracker.Player
	for i := 1; i < n; i++ {
		idx := ((myIndex+i)%n + n) % n
		out = append(out, snap.Players[idx])
	}
	return out
}

func enumerateOutcomes(m Matrix, responders []tracker.Player, triple []string) []Outcome {
	var outcomes []Outcome

	probNoCards := func(playerID string) float64 {
		p := 1.0
		for _, card := range triple {
			p *= 1 - playerProbOf(m, card, playerID)
		}
		return p
	}

	everyonePasses := 1.0
	for _, r := range responders {
		everyonePasses *= probNoCards(r.ID)
	}
	if everyonePasses > outcomeFloor {
		outcomes = append(outcomes, Outcome{
			PassedPlayerIDs: playerIDs(responders),
			Probability:     everyonePasses,
		})
	}

	accumulatedPass := 1.0
	for i, r := range responders {
		noCards := probNoCards(r.ID)
		hasCard := 1 - noCards
		if hasCard > outcomeFloor {
			passed := playerIDs(responders[:i])
			for _, card := range triple {
				cardProb := playerProbOf(m, card, r.ID)
				if cardProb > outcomeFloor {
					outcomes = append(outcomes, Outcome{
						PassedPlayerIDs: passed,
						ShowerID:        r.ID,
						ShownCard:       card,
						Probability:     accumulatedPass * cardProb,
					})
				}
			}
			// Shown but unidentified, discounted.
			outcomes = append(outcomes, Outcome{
				PassedPlayerIDs: passed,
				ShowerID:        r.ID,
				Probability:     accumulatedPass * hasCard * unknownShowDiscount,
			})
		}
		accumulatedPass *= noCards
	}

	var total float64
	for _, o := range outcomes {
		total += o.Probability
	}
	if total > 0 {
		for i := range outcomes {
			outcomes[i].Probability /= total
		}
	}
	return outcomes
}

func outcomeInfoGain(m Matrix, snap tracker.Snapshot, o Outcome, triple []string) float64 {
	var gain float64

	for _, playerID := range o.PassedPlayerIDs {
		for _, card := range triple {
			p := playerProbOf(m, card, playerID)
			if p > 0 && p < 1 {
				gain += p * math.Log2(1/p)
			}
		}
	}

	if o.ShowerID != "" {
		if o.ShownCard != "" {
			p := playerProbOf(m, o.ShownCard, o.ShowerID)
			if p > 0 && p < 1 {
				gain += math.Log2(1 / p)
			}
		} else {
			noCards := 1.0
			for _, card := range triple {
				noCards *= 1 - playerProbOf(m, card, o.ShowerID)
			}
			if noCards > 0 && noCards < 1 {
				gain += math.Log2(1/(1-noCards)) * unknownShowDiscount
			}
		}
	}

	// A full round of passes points at the envelope.
	if o.ShowerID == "" && len(o.PassedPlayerIDs) == len(snap.Players)-1 {
		for _, card := range triple {
			p := envProbOf(m, card)
			if p > 0 && p < 1 {
				gain += 0.5
			}
		}
	}

	return gain
}

func categoryImpact(m Matrix, triple []string) CategoryImpact {
	var impact CategoryImpact
	for _, card := range triple {
		typ, ok := cards.TypeOf(card)
		if !ok {
			continue
		}
		p := envProbOf(m, card)
		switch typ {
		case cards.TypeSuspect:
			impact.Suspect = math.Max(impact.Suspect, p)
		case cards.TypeWeapon:
			impact.Weapon = math.Max(impact.Weapon, p)
		case cards.TypeRoom:
			impact.Room = math.Max(impact.Room, p)
		}
	}
	return impact
}

func buildReasoning(m Matrix, suspect, weapon, room string, outcomes []Outcome, expected float64) string {
	var reasons []string

	for _, pair := range []struct{ card, noun string }{
		{suspect, "the murderer"},
		{weapon, "the weapon"},
		{room, "the room"},
	} {
		p := envProbOf(m, pair.card) * 100
		if p > 30 {
			reasons = append(reasons, fmt.Sprintf("%s has %.0f%% chance of being %s", pair.card, p, pair.noun))
		}
	}

	if len(outcomes) > 0 {
		mostLikely := outcomes[0]
		for _, o := range outcomes[1:] {
			if o.Probability > mostLikely.Probability {
				mostLikely = o
			}
		}
		if mostLikely.ShowerID != "" && mostLikely.ShownCard != "" {
			reasons = append(reasons, fmt.Sprintf("Most likely: Someone shows %s", mostLikely.ShownCard))
		} else if mostLikely.ShowerID == "" {
			reasons = append(reasons, "Good chance of eliminations if everyone passes")
		}
	}

	switch {
	case expected > 1.5:
		reasons = append(reasons, "HIGH information potential")
	case expected > 0.8:
		reasons = append(reasons, "Moderate information gain expected")
	default:
		reasons = append(reasons, "Limited new information expected")
	}

	return strings.Join(reasons, ". ") + "."
}

// Optimal restricts the search to a few high-value cards per category,
// scores every combination, and returns a diversity-filtered top-N.
func Optimal(snap tracker.Snapshot, m Matrix, topN int) OptimalSuggestions {
	if topN <= 0 {
		topN = DefaultTopN
	}
	currentEntropy := Entropy(m)

	suspects := highValueCards(m, cards.Suspects)
	weapons := highValueCards(m, cards.Weapons)
	rooms := highValueCards(m, cards.Rooms)

	var analyses []SuggestionAnalysis
	for _, s := range suspects {
		for _, w := range weapons {
			for _, r := range rooms {
				analyses = append(analyses, AnalyzeSuggestion(snap, m, s, w, r))
			}
		}
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].ExpectedInfoGain > analyses[j].ExpectedInfoGain
	})

	recommendations := selectDiverse(analyses, topN)
	best := 0.0
	if len(recommendations) > 0 {
		best = recommendations[0].ExpectedInfoGain
	}
	return OptimalSuggestions{
		Recommendations:      recommendations,
		CurrentEntropy:       currentEntropy,
		BestEntropyReduction: best,
	}
}

// highValueCards scores a category's cards by uncertainty (70%) blended
// with raw envelope probability (30%) and keeps the top few.
func highValueCards(m Matrix, names []string) []string {
	type scored struct {
		card  string
		score float64
	}
	list := make([]scored, 0, len(names))
	for _, name := range names {
		p := envProbOf(m, name)
		uncertainty := 1 - math.Abs(2*p-1)
		list = append(list, scored{card: name, score: uncertainty*uncertaintyWeight + p*potentialWeight})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	n := min(candidatesPerCategory, len(list))
	out := make([]string, 0, n)
	for _, s := range list[:n] {
		out = append(out, s.card)
	}
	return out
}

// selectDiverse greedily takes suggestions overlapping at most one card
// with prior picks, then backfills with raw top picks if the filter
// starves the result.
func selectDiverse(analyses []SuggestionAnalysis, count int) []SuggestionAnalysis {
	var selected []SuggestionAnalysis
	used := make(map[string]bool)

	for _, a := range analyses {
		if len(selected) >= count {
			break
		}
		overlap := 0
		for _, card := range []string{a.Suspect, a.Weapon, a.Room} {
			if used[card] {
				overlap++
			}
		}
		if overlap <= 1 || len(selected) < 2 {
			selected = append(selected, a)
			used[a.Suspect] = true
			used[a.Weapon] = true
			used[a.Room] = true
		}
	}

	for _, a := range analyses {
		if len(selected) >= count {
			break
		}
		if !containsAnalysis(selected, a) {
			selected = append(selected, a)
		}
	}
	return selected
}

// Level buckets a probability for display.
func Level(p float64) string {
	switch {
	case p >= 0.9:
		return "Extremely Likely"
	case p >= 0.7:
		return "Very Likely"
	case p >= 0.5:
		return "Likely"
	case p >= 0.3:
		return "Possible"
	case p >= 0.1:
		return "Unlikely"
	default:
		return "Very Unlikely"
	}
}

// --- small helpers ---

func ownerOf(snap tracker.Snapshot, cardName string) string {
	for _, p := range snap.Players {
		if snap.Matrix[cardName][p.ID].State == tracker.StateOwned {
			return p.ID
		}
	}
	return ""
}

func envProbOf(m Matrix, cardName string) float64 {
	if cp, ok := m[cardName]; ok {
		return cp.EnvelopeProbability
	}
	return 0
}

func playerProbOf(m Matrix, cardName, playerID string) float64 {
	if cp, ok := m[cardName]; ok {
		return cp.PlayerProbabilities[playerID]
	}
	return 0
}

func playerIDs(players []tracker.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsAnalysis(list []SuggestionAnalysis, a SuggestionAnalysis) bool {
	for _, s := range list {
		if s.Suspect == a.Suspect && s.Weapon == a.Weapon && s.Room == a.Room {
			return true
		}
	}
	return false
}
