package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"cluetrack/internal/cards"
)

// C holds pre-configured color objects for printing to the console.
var C = struct {
	Yes, No, Maybe, Star, Info, Warn, Header, Prompt, Debug *color.Color
}{
	Yes:    color.New(color.FgGreen),
	No:     color.New(color.FgRed),
	Maybe:  color.New(color.FgYellow),
	Star:   color.New(color.FgHiMagenta),
	Info:   color.New(color.FgCyan),
	Warn:   color.New(color.FgHiYellow),
	Header: color.New(color.FgWhite, color.Bold),
	Prompt: color.New(color.FgHiWhite),
	Debug:  color.New(color.FgMagenta),
}

// SuspectColors maps suspect names to specific colors for display.
var SuspectColors = map[string]*color.Color{
	"Miss Scarlett":   color.New(color.FgRed),
	"Colonel Mustard": color.New(color.FgYellow),
	"Dr. Orchid":      color.New(color.FgHiMagenta),
	"Mr. Green":       color.New(color.FgGreen),
	"Mrs. Peacock":    color.New(color.FgBlue),
	"Professor Plum":  color.New(color.FgMagenta),
}

// ColorizeCard returns a card name as a colored string if it's a suspect.
func ColorizeCard(name string) string {
	if c, ok := SuspectColors[name]; ok {
		return c.Sprint(name)
	}
	return name
}

// --- Prompting and Usage ---

func (c *CLI) printUsage() {
	C.Header.Println("\n--- Cluetrack ---")
	fmt.Println("A deduction co-pilot for real-life games of Clue.")
	fmt.Println("\nUsage:")
	fmt.Println("  cluetrack            Start a new tracking session.")
	fmt.Println("  cluetrack -load f    Resume a session from a saved snapshot.")
	fmt.Println("\nFlags:")
	fmt.Println("  -loglevel debug      Enable detailed inference tracing.")
}

func (c *CLI) printHelp() {
	C.Header.Println("\n--- Tracker Help ---")
	fmt.Println("Log events from your real-life game, and the tracker deduces everything it can.")

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Command", "Alias", "Description"})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"players", "", "Rerun the player roster wizard (pre-game)."},
		{"mycards", "", "Re-enter the cards in your hand (pre-game)."},
		{"start", "", "Start tracking once setup is complete."},
		{"log", "l", "Log a suggestion and its outcome."},
		{"mark", "m", "Manually set a cell in the knowledge matrix."},
		{"opened", "o", "Log face-up or otherwise revealed cards."},
		{"clearrow", "", "Reset a card's entire row to unknown."},
		{"matrix", "n", "Display the knowledge matrix."},
		{"prob", "p", "Display envelope and player probabilities."},
		{"entropy", "", "Display per-category entropy and best guesses."},
		{"best", "b", "Rank the most informative next suggestions."},
		{"deductions", "d", "Show the deduction log."},
		{"history", "", "Show the suggestion history."},
		{"links", "", "Show one-of card constraints."},
		{"accuse", "", "Record an accusation made at the table."},
		{"notes", "", "Edit free-form notes."},
		{"advise", "a", "Ask the AI advisor for strategy (needs API key)."},
		{"save", "", "Save the session to a snapshot file."},
		{"load", "", "Load a session from a snapshot file."},
		{"reset", "", "Reset the game, keeping the player list."},
		{"help", "h", "Show this help message."},
		{"quit", "q", "Exit."},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func (c *CLI) promptForString(prompt string) string {
	for {
		C.Prompt.Print(prompt)
		input, err := c.line.Prompt("")
		if err != nil {
			C.Info.Println("\nGoodbye!")
			os.Exit(0)
		}
		trimmed := strings.TrimSpace(input)
		if trimmed != "" {
			c.line.AppendHistory(trimmed)
			return trimmed
		}
	}
}

func (c *CLI) promptForInt(prompt string, min, max int) int {
	for {
		input := c.promptForString(prompt)
		num, err := strconv.Atoi(input)
		if err != nil || num < min || num > max {
			C.Warn.Printf("Invalid input. Please enter a number between %d and %d.\n", min, max)
			continue
		}
		return num
	}
}

func (c *CLI) promptForBool(prompt string) bool {
	for {
		input := strings.ToLower(c.promptForString(prompt + " (y/n): "))
		switch input {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		C.Warn.Println("Please answer y or n.")
	}
}

func (c *CLI) promptForSelection(prompt string, options []string) string {
	for {
		C.Header.Println("\n" + prompt)
		for i, opt := range options {
			fmt.Printf(" %2d: %s\n", i+1, ColorizeCard(opt))
		}
		input := c.promptForString("Enter number or name: ")
		if num, err := strconv.Atoi(input); err == nil && num >= 1 && num <= len(options) {
			return options[num-1]
		}
		for _, opt := range options {
			if strings.EqualFold(opt, input) {
				return opt
			}
		}
		C.Warn.Println("Invalid selection.")
	}
}

// promptForCards collects card names until 'done', or exactly exactCount
// cards when exactCount is positive.
func (c *CLI) promptForCards(requireAtLeastOne bool, exactCount int) []string {
	all := cards.AllNames()
	var picked []string
	seen := make(map[string]struct{})

	C.Header.Println("\n--- Card List ---")
	for i, card := range all {
		fmt.Printf("%2d: %-18s", i+1, card)
		if (i+1)%3 == 0 {
			fmt.Println()
		}
	}
	fmt.Println()

	for {
		if exactCount > 0 && len(picked) == exactCount {
			break
		}
		prompt := "Enter card name/number"
		if exactCount > 0 {
			prompt = fmt.Sprintf("Enter card %d of %d", len(picked)+1, exactCount)
		} else {
			prompt += " (or 'done')"
		}
		input := c.promptForString(prompt + ": ")
		if exactCount == 0 && strings.ToLower(input) == "done" {
			if requireAtLeastOne && len(picked) == 0 {
				C.Warn.Println("Please enter at least one card.")
				continue
			}
			break
		}
		var found string
		if num, err := strconv.Atoi(input); err == nil && num >= 1 && num <= len(all) {
			found = all[num-1]
		} else {
			for _, card := range all {
				if strings.EqualFold(card, input) {
					found = card
					break
				}
			}
		}
		if found == "" {
			C.Warn.Printf("Error: Card '%s' not found.\n", input)
		} else if _, exists := seen[found]; exists {
			C.Warn.Printf("You have already entered '%s'.\n", found)
		} else {
			picked = append(picked, found)
			seen[found] = struct{}{}
			C.Info.Printf(" -> Added: %s\n", ColorizeCard(found))
		}
	}
	return picked
}

// promptForTriple asks for one suspect, one weapon, and one room.
func (c *CLI) promptForTriple() (suspect, weapon, room string) {
	suspect = c.promptForSelection("Which suspect?", cards.Suspects)
	weapon = c.promptForSelection("Which weapon?", cards.Weapons)
	room = c.promptForSelection("Which room?", cards.Rooms)
	return suspect, weapon, room
}
