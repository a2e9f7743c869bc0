// Package advisor asks an external language model for strategic advice.
// It serializes the full game state into a plain-text briefing and sends
// it to a Gemini-style generateContent endpoint.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cluetrack/internal/cards"
	"cluetrack/internal/tracker"
)

const (
	// EnvAPIKey names the environment variable holding the API key.
	EnvAPIKey = "CLUETRACK_ADVISOR_API_KEY"
	// EnvURL optionally overrides the model endpoint.
	EnvURL = "CLUETRACK_ADVISOR_URL"

	defaultURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

	// recentDeductionLimit caps how many deductions go into the briefing.
	recentDeductionLimit = 15
)

const systemInstruction = `You are an expert Clue (Cluedo) game strategist. You have deep knowledge of:
- Deduction logic and constraint satisfaction
- Optimal suggestion strategies
- Reading opponent behavior and detecting bluffs
- Probability calculations for unknown cards

Your goal is to help the player WIN by providing sharp, actionable advice. Be concise but thorough. Focus on what matters most right now.

Rules reminder:
- 21 cards total: 6 suspects, 6 weapons, 9 rooms
- 3 cards in envelope (the solution): 1 suspect, 1 weapon, 1 room
- Remaining 18 cards dealt to players
- When suggesting, players must show ONE card if they have any of the 3 suggested
- If a player passes, they have NONE of the 3 suggested cards
- First to correctly accuse wins; wrong accusation = elimination`

// Client talks to the advisor endpoint.
type Client struct {
	apiKey     string
	url        string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewFromEnv builds a client from the environment. It returns an error if
// no API key is configured so callers can degrade gracefully.
func NewFromEnv(log logrus.FieldLogger) (*Client, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("advisor not configured: set %s", EnvAPIKey)
	}
	url := os.Getenv(EnvURL)
	if url == "" {
		url = defaultURL
	}
	return New(apiKey, url, log), nil
}

// New builds a client with explicit credentials, mainly for tests.
func New(apiKey, url string, log logrus.FieldLogger) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Advise sends the game state and an optional custom question to the model
// and returns its text reply.
func (c *Client) Advise(ctx context.Context, snap tracker.Snapshot, customQuestion string) (string, error) {
	gameContext := BuildContext(snap)

	var prompt string
	if customQuestion != "" {
		prompt = fmt.Sprintf("%s\n\n---\n\nThe player asks: %q\n\nProvide a direct, helpful answer to their question based on the game state above.", gameContext, customQuestion)
	} else {
		prompt = gameContext + "\n\n---\n\nBased on this game state, provide strategic advice:\n\n" +
			"1. **RECOMMENDED SUGGESTION**: What should I suggest on my next turn? Give the exact suspect, weapon, and room, with a brief explanation of WHY this combination maximizes information gain.\n\n" +
			"2. **KEY INSIGHT**: What's the single most important thing I should know right now? (e.g., a card that's definitely in the envelope, a player who's close to solving, a pattern I should notice)\n\n" +
			"3. **THREAT ASSESSMENT**: Is any opponent close to winning? What should I watch out for?\n\n" +
			"Be specific and actionable. No fluff."
	}

	reqBody := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig:  generationConfig{Temperature: 0.7, MaxOutputTokens: 1000},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.WithField("bytes", len(payload)).Debug("Sending advisor request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling advisor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading advisor response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding advisor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("advisor returned an error: %s", msg)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "No response generated.", nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// BuildContext renders the snapshot as the plain-text briefing the model
// receives: game info, solution progress, matrix summary, unresolved
// links, suggestion history, recent deductions, and the player's notes.
func BuildContext(snap tracker.Snapshot) string {
	var b strings.Builder

	myName := "Not set"
	if p := snap.PlayerByID(snap.MyPlayerID); p != nil {
		myName = p.Name
	}
	var order []string
	for _, p := range snap.Players {
		name := p.Name
		if p.ID == snap.MyPlayerID {
			name += " (YOU)"
		}
		order = append(order, name)
	}

	b.WriteString("=== CLUE GAME STATE ===\n\n")
	b.WriteString("GAME INFO:\n")
	fmt.Fprintf(&b, "- Current Turn: %d\n", snap.CurrentTurn)
	fmt.Fprintf(&b, "- Number of Players: %d\n", len(snap.Players))
	fmt.Fprintf(&b, "- Your Player: %s\n", myName)
	fmt.Fprintf(&b, "- Players in turn order: %s\n\n", strings.Join(order, " -> "))

	if snap.Solved.Complete() {
		fmt.Fprintf(&b, "SOLUTION FULLY DEDUCED: %s with %s in %s!\n",
			snap.Solved.Suspect, snap.Solved.Weapon, snap.Solved.Room)
	} else {
		fmt.Fprintf(&b, "PARTIAL SOLUTION: Suspect=%s, Weapon=%s, Room=%s\n",
			orUnknown(snap.Solved.Suspect), orUnknown(snap.Solved.Weapon), orUnknown(snap.Solved.Room))
	}

	writeMatrixSummary(&b, snap)

	b.WriteString("\nUNRESOLVED CARD LINKS (one-of constraints):\n")
	writeUnresolvedLinks(&b, snap)

	b.WriteString("\nSUGGESTION HISTORY:\n")
	writeSuggestionHistory(&b, snap)

	b.WriteString("\nRECENT DEDUCTIONS:\n")
	writeRecentDeductions(&b, snap)

	if snap.Notes != "" {
		b.WriteString("\nPLAYER NOTES:\n")
		b.WriteString(snap.Notes)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func writeMatrixSummary(b *strings.Builder, snap tracker.Snapshot) {
	var solved []string
	unknownByType := map[cards.Type][]string{}
	for _, card := range cards.All() {
		switch snap.Matrix[card.Name][tracker.HolderEnvelope].State {
		case tracker.StateEnvelope:
			solved = append(solved, card.Name)
		case tracker.StateUnknown, tracker.StatePotentiallyOwned:
			unknownByType[card.Type] = append(unknownByType[card.Type], card.Name)
		}
	}
	if len(solved) > 0 {
		fmt.Fprintf(b, "SOLVED ENVELOPE CARDS: %s\n", strings.Join(solved, ", "))
	}

	b.WriteString("\nPOSSIBLE SOLUTION CANDIDATES:\n")
	fmt.Fprintf(b, "  Suspects still possible: %s\n", orSolved(unknownByType[cards.TypeSuspect]))
	fmt.Fprintf(b, "  Weapons still possible: %s\n", orSolved(unknownByType[cards.TypeWeapon]))
	fmt.Fprintf(b, "  Rooms still possible: %s\n", orSolved(unknownByType[cards.TypeRoom]))

	b.WriteString("\nPLAYER CARD KNOWLEDGE:\n")
	for _, p := range snap.Players {
		var owned, potential []string
		notOwned := 0
		for _, card := range cards.AllNames() {
			switch snap.Matrix[card][p.ID].State {
			case tracker.StateOwned:
				owned = append(owned, card)
			case tracker.StatePotentiallyOwned:
				potential = append(potential, card)
			case tracker.StateNotOwned:
				notOwned++
			}
		}
		suffix := ""
		if p.ID == snap.MyPlayerID {
			suffix = " (YOU)"
		}
		fmt.Fprintf(b, "\n  %s%s:\n", p.Name, suffix)
		if len(owned) > 0 {
			fmt.Fprintf(b, "    Confirmed owns: %s\n", strings.Join(owned, ", "))
		} else {
			b.WriteString("    Confirmed owns: None confirmed\n")
		}
		if len(potential) > 0 {
			fmt.Fprintf(b, "    Possibly owns: %s\n", strings.Join(potential, ", "))
		}
		fmt.Fprintf(b, "    Confirmed NOT owning: %d cards\n", notOwned)
	}
}

func writeUnresolvedLinks(b *strings.Builder, snap tracker.Snapshot) {
	any := false
	for _, link := range snap.CardLinks {
		if link.Resolved {
			continue
		}
		any = true
		fmt.Fprintf(b, "%s has ONE OF: %s (from suggestion)\n",
			snap.PlayerName(link.PlayerID), strings.Join(link.PossibleCards, " OR "))
	}
	if !any {
		b.WriteString("No unresolved card links.\n")
	}
}

func writeSuggestionHistory(b *strings.Builder, snap tracker.Snapshot) {
	if len(snap.Suggestions) == 0 {
		b.WriteString("No suggestions recorded yet.\n")
		return
	}
	for _, s := range snap.Suggestions {
		fmt.Fprintf(b, "Turn %d: %s suggested %q\n",
			s.TurnNumber, snap.PlayerName(s.SuggesterID),
			fmt.Sprintf("%s with %s in %s", s.Suspect, s.Weapon, s.Room))
		if len(s.PassedPlayerIDs) > 0 {
			names := make([]string, 0, len(s.PassedPlayerIDs))
			for _, id := range s.PassedPlayerIDs {
				names = append(names, snap.PlayerName(id))
			}
			fmt.Fprintf(b, "    Passed (don't have any): %s\n", strings.Join(names, ", "))
		}
		if s.ShowerID != "" {
			if s.ShownCard != "" {
				fmt.Fprintf(b, "    %s showed a card: %s\n", snap.PlayerName(s.ShowerID), s.ShownCard)
			} else {
				fmt.Fprintf(b, "    %s showed a card (unknown which one)\n", snap.PlayerName(s.ShowerID))
			}
		} else if len(s.PassedPlayerIDs) == len(snap.Players)-1 {
			b.WriteString("    NO ONE could show a card!\n")
		}
	}
}

func writeRecentDeductions(b *strings.Builder, snap tracker.Snapshot) {
	if len(snap.Deductions) == 0 {
		b.WriteString("No deductions made yet.\n")
		return
	}
	recent := snap.Deductions
	if len(recent) > recentDeductionLimit {
		recent = recent[len(recent)-recentDeductionLimit:]
	}
	for _, d := range recent {
		fmt.Fprintf(b, "- %s\n", d.Description)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func orSolved(list []string) string {
	if len(list) == 0 {
		return "NONE - already solved!"
	}
	return strings.Join(list, ", ")
}
