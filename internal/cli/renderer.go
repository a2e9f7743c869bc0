package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cluetrack/internal/cards"
	"cluetrack/internal/prob"
	"cluetrack/internal/tracker"
)

// EventRenderer implements the tracker.Listener interface to narrate
// tracker events on the console as they happen.
type EventRenderer struct{}

// HandleEvent is the central dispatcher for rendering events.
func (r *EventRenderer) HandleEvent(e tracker.Event) {
	switch event := e.(type) {
	case tracker.GameStartedEvent:
		C.Header.Printf("\n--- Game started with %d players ---\n", len(event.Players))
		C.Info.Printf("Each player holds about %d cards", event.CardsPerPlayer)
		if event.LeftoverCards > 0 {
			C.Info.Printf(" (%d cards left over; log them with 'opened')", event.LeftoverCards)
		}
		fmt.Println()
	case tracker.DeductionEvent:
		r.renderDeduction(event.Deduction)
	case tracker.EnvelopeSolvedEvent:
		C.Header.Println("\n*** SOLUTION DEDUCED ***")
		C.Yes.Printf("It was %s with the %s in the %s!\n",
			ColorizeCard(event.Solved.Suspect), event.Solved.Weapon, event.Solved.Room)
	}
}

func (r *EventRenderer) renderDeduction(d tracker.Deduction) {
	switch d.Type {
	case tracker.DeductionEnvelope:
		C.Star.Printf(" * %s\n", d.Description)
	case tracker.DeductionCardOwned, tracker.DeductionLinkResolved, tracker.DeductionCrossReference:
		C.Yes.Printf(" + %s\n", d.Description)
	case tracker.DeductionCardNotOwned, tracker.DeductionCardCount:
		C.No.Printf(" - %s\n", d.Description)
	default:
		C.Info.Printf(" . %s\n", d.Description)
	}
}

func stateSymbol(s tracker.CardState) string {
	switch s {
	case tracker.StateOwned:
		return C.Yes.Sprint("✔")
	case tracker.StateNotOwned:
		return C.No.Sprint("✖")
	case tracker.StatePotentiallyOwned:
		return C.Maybe.Sprint("~")
	case tracker.StateEnvelope:
		return C.Star.Sprint("★")
	default:
		return C.Maybe.Sprint("?")
	}
}

// RenderMatrix displays the knowledge matrix as a detective-notes grid.
func RenderMatrix(snap tracker.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Detective Notes")

	header := table.Row{"ID", "Card", "Type"}
	for _, p := range snap.Players {
		name := p.Name
		if p.ID == snap.MyPlayerID {
			name += " (you)"
		}
		header = append(header, name)
	}
	header = append(header, "Envelope")
	t.AppendHeader(header)

	allCards := cards.All()
	for i, card := range allCards {
		if i > 0 && card.Type != allCards[i-1].Type {
			t.AppendSeparator()
		}
		row := table.Row{i + 1, ColorizeCard(card.Name), card.Type.String()}
		for _, p := range snap.Players {
			row = append(row, stateSymbol(snap.Matrix[card.Name][p.ID].State))
		}
		row = append(row, stateSymbol(snap.Matrix[card.Name][tracker.HolderEnvelope].State))
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
	t.Style().Title.Align = text.AlignCenter
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	t.Render()
	fmt.Println("  ✔ owns   ✖ does not own   ~ possibly owns   ? unknown   ★ envelope")
}

// RenderProbabilities displays the probability matrix, one row per card.
func RenderProbabilities(snap tracker.Snapshot, m prob.Matrix) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Probabilities")

	header := table.Row{"Card", "Type", "Envelope", "Assessment"}
	for _, p := range snap.Players {
		header = append(header, p.Name)
	}
	t.AppendHeader(header)

	allCards := cards.All()
	for i, card := range allCards {
		if i > 0 && card.Type != allCards[i-1].Type {
			t.AppendSeparator()
		}
		cp := m[card.Name]
		if cp == nil {
			continue
		}
		row := table.Row{
			ColorizeCard(card.Name),
			card.Type.String(),
			fmt.Sprintf("%5.1f%%", cp.EnvelopeProbability*100),
			prob.Level(cp.EnvelopeProbability),
		}
		for _, p := range snap.Players {
			row = append(row, fmt.Sprintf("%5.1f%%", cp.PlayerProbabilities[p.ID]*100))
		}
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
	t.Style().Title.Align = text.AlignCenter
	t.Render()
}

// RenderEntropy displays per-category entropy and the current best guess.
func RenderEntropy(m prob.Matrix) {
	e := prob.Entropy(m)
	conf := prob.Confidence(m)

	C.Header.Println("\n--- Solution Uncertainty ---")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Entropy (bits)", "Best Guess", "Confidence"})
	t.AppendRows([]table.Row{
		{"Suspect", fmt.Sprintf("%.2f", e.Suspects), ColorizeCard(conf.Suspect.Card), fmt.Sprintf("%.0f%%", conf.Suspect.Confidence*100)},
		{"Weapon", fmt.Sprintf("%.2f", e.Weapons), conf.Weapon.Card, fmt.Sprintf("%.0f%%", conf.Weapon.Confidence*100)},
		{"Room", fmt.Sprintf("%.2f", e.Rooms), conf.Room.Card, fmt.Sprintf("%.0f%%", conf.Room.Confidence*100)},
	})
	t.AppendFooter(table.Row{"Total", fmt.Sprintf("%.2f", e.Total), "", ""})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// RenderOptimalSuggestions displays the ranked recommendation table.
func RenderOptimalSuggestions(result prob.OptimalSuggestions) {
	if len(result.Recommendations) == 0 {
		C.Warn.Println("No suggestions to recommend yet.")
		return
	}

	C.Header.Println("\n--- Recommended Suggestions ---")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Suggestion", "Info Gain", "Why"})
	for i, rec := range result.Recommendations {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%s / %s / %s", ColorizeCard(rec.Suspect), rec.Weapon, rec.Room),
			fmt.Sprintf("%.2f bits", rec.ExpectedInfoGain),
			text.WrapSoft(rec.Reasoning, 50),
		})
	}
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	t.Render()
	C.Info.Printf("Current uncertainty: %.2f bits. Best expected reduction: %.2f bits.\n",
		result.CurrentEntropy.Total, result.BestEntropyReduction)
}

// RenderDeductions displays the deduction log, most recent last.
func RenderDeductions(snap tracker.Snapshot, limit int) {
	if len(snap.Deductions) == 0 {
		C.Info.Println("No deductions yet.")
		return
	}
	start := 0
	if limit > 0 && len(snap.Deductions) > limit {
		start = len(snap.Deductions) - limit
		C.Info.Printf("(showing last %d of %d)\n", limit, len(snap.Deductions))
	}
	r := &EventRenderer{}
	for _, d := range snap.Deductions[start:] {
		r.renderDeduction(d)
	}
}

// RenderHistory displays the suggestion log in turn order.
func RenderHistory(snap tracker.Snapshot) {
	if len(snap.Suggestions) == 0 {
		C.Info.Println("No suggestions recorded yet.")
		return
	}
	for _, s := range snap.Suggestions {
		C.Header.Printf("\nTurn %d: %s suggested %s / %s / %s\n",
			s.TurnNumber, snap.PlayerName(s.SuggesterID),
			ColorizeCard(s.Suspect), s.Weapon, s.Room)
		if len(s.PassedPlayerIDs) > 0 {
			names := make([]string, 0, len(s.PassedPlayerIDs))
			for _, id := range s.PassedPlayerIDs {
				names = append(names, snap.PlayerName(id))
			}
			C.No.Printf("  Passed: %s\n", strings.Join(names, ", "))
		}
		switch {
		case s.ShowerID != "" && s.ShownCard != "":
			C.Yes.Printf("  %s showed %s\n", snap.PlayerName(s.ShowerID), ColorizeCard(s.ShownCard))
		case s.ShowerID != "":
			C.Maybe.Printf("  %s showed a card (unseen)\n", snap.PlayerName(s.ShowerID))
		case len(s.PassedPlayerIDs) == len(snap.Players)-1:
			C.Star.Println("  NO ONE could show a card!")
		}
	}
}

// RenderLinks displays the card link constraints, unresolved first.
func RenderLinks(snap tracker.Snapshot) {
	if len(snap.CardLinks) == 0 {
		C.Info.Println("No card links recorded.")
		return
	}
	links := append([]tracker.CardLink(nil), snap.CardLinks...)
	sort.SliceStable(links, func(i, j int) bool {
		return !links[i].Resolved && links[j].Resolved
	})
	for _, link := range links {
		name := snap.PlayerName(link.PlayerID)
		if link.Resolved {
			if link.ResolvedCard != "" {
				C.Yes.Printf(" resolved: %s holds %s\n", name, ColorizeCard(link.ResolvedCard))
			} else {
				C.Info.Printf(" resolved: constraint on %s satisfied elsewhere\n", name)
			}
			continue
		}
		var parts []string
		for _, card := range link.PossibleCards {
			parts = append(parts, ColorizeCard(card))
		}
		C.Maybe.Printf(" open: %s holds one of %s\n", name, strings.Join(parts, " / "))
	}
}
