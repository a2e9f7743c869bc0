// Package cli is the interactive terminal front end. It owns the liner
// REPL, translates commands into tracker operations, and renders state
// with go-pretty tables.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"cluetrack/internal/advisor"
	"cluetrack/internal/prob"
	"cluetrack/internal/storage"
	"cluetrack/internal/tracker"
)

// CLI manages all command-line interactions.
type CLI struct {
	log     *logrus.Logger
	line    *liner.State
	tracker *tracker.Tracker
}

// NewCLI creates a new command-line interface manager.
func NewCLI(log *logrus.Logger) *CLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	bus := tracker.NewBus()
	bus.Subscribe(&EventRenderer{})
	return &CLI{
		log:     log,
		line:    line,
		tracker: tracker.New(log, bus),
	}
}

// Run is the main entry point for the CLI application.
func (c *CLI) Run(loadPath string) error {
	defer c.line.Close()

	if loadPath != "" {
		if err := c.loadSnapshot(loadPath); err != nil {
			c.printUsage()
			return err
		}
	} else {
		c.runSetup()
	}

	C.Info.Println("\nThe tracker is active. Type 'help' for commands.")
	RenderMatrix(c.tracker.Snapshot())

	for {
		input, err := c.line.Prompt("(cluetrack) ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				C.Info.Println("\nGoodbye!")
				return nil
			}
			return fmt.Errorf("error reading line: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)
		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

		switch cmd {
		case "players":
			c.handlePlayersCommand()
		case "mycards":
			c.handleMyCardsCommand()
		case "start":
			c.handleStartCommand()
		case "log", "l":
			c.handleLogCommand()
		case "mark", "m":
			c.handleMarkCommand()
		case "opened", "o":
			c.handleOpenedCommand()
		case "clearrow":
			c.handleClearRowCommand()
		case "matrix", "n":
			RenderMatrix(c.tracker.Snapshot())
		case "prob", "p":
			snap := c.tracker.Snapshot()
			RenderProbabilities(snap, prob.Calculate(snap))
		case "entropy":
			RenderEntropy(prob.Calculate(c.tracker.Snapshot()))
		case "best", "b":
			snap := c.tracker.Snapshot()
			RenderOptimalSuggestions(prob.Optimal(snap, prob.Calculate(snap), prob.DefaultTopN))
		case "deductions", "d":
			RenderDeductions(c.tracker.Snapshot(), 30)
		case "history":
			RenderHistory(c.tracker.Snapshot())
		case "links":
			RenderLinks(c.tracker.Snapshot())
		case "accuse":
			c.handleAccuseCommand()
		case "notes":
			c.handleNotesCommand()
		case "advise", "a":
			c.handleAdviseCommand(rest)
		case "save":
			c.handleSaveCommand(rest)
		case "load":
			if err := c.loadSnapshot(rest); err != nil {
				C.Warn.Printf("Load failed: %v\n", err)
			}
		case "reset":
			c.handleResetCommand()
		case "help", "h":
			c.printHelp()
		case "quit", "q":
			C.Info.Println("Goodbye!")
			return nil
		default:
			C.Warn.Printf("Unknown command '%s'. Type 'help' for a list of commands.\n", cmd)
		}
	}
}

// runSetup walks through player entry, hand entry, and game start.
func (c *CLI) runSetup() {
	c.handlePlayersCommand()
	c.handleMyCardsCommand()
	c.handleStartCommand()
}

// handlePlayersCommand runs the roster wizard: seats in turn order, which
// seat is you, who goes first. Rerunning it replaces the roster.
func (c *CLI) handlePlayersCommand() {
	if c.tracker.GameStarted() {
		C.Warn.Println("The game has already started; use 'reset' first.")
		return
	}
	for _, p := range c.tracker.Players() {
		c.tracker.RemovePlayer(p.ID)
	}

	C.Info.Println("\n--- Player Setup ---")
	numPlayers := c.promptForInt("How many players are in the real game? (3-6): ", 3, 6)

	var names []string
	for i := 0; i < numPlayers; i++ {
		name := c.promptForString(fmt.Sprintf("Enter name for Player %d (in turn order): ", i+1))
		p := c.tracker.AddPlayer(name)
		if p == nil {
			C.Warn.Println("Name rejected (empty or duplicate), try again.")
			i--
			continue
		}
		names = append(names, p.Name)
	}

	players := c.tracker.Players()
	myName := c.promptForSelection("Which player are you?", names)
	for _, p := range players {
		if p.Name == myName {
			c.tracker.SetMyPlayer(p.ID)
			break
		}
	}

	firstName := c.promptForSelection("Who goes first?", names)
	for _, p := range players {
		if p.Name == firstName {
			c.tracker.SetFirstPlayer(p.ID)
			break
		}
	}
}

// handleMyCardsCommand records the human player's dealt hand.
func (c *CLI) handleMyCardsCommand() {
	if c.tracker.MyPlayerID() == "" {
		C.Warn.Println("Run 'players' first so the tracker knows which seat is yours.")
		return
	}
	C.Info.Println("\nSelect the cards in your hand. Type 'done' when finished.")
	hand := c.promptForCards(true, 0)
	c.tracker.SetMyCards(hand)
}

func (c *CLI) handleStartCommand() {
	if c.tracker.GameStarted() {
		C.Warn.Println("The game has already started.")
		return
	}
	if err := c.tracker.StartGame(); err != nil {
		C.Warn.Printf("Could not start game: %v\n", err)
	}
}

// handleLogCommand records one suggestion and its outcome. Players
// between the suggester and the shower pass automatically; if nobody
// showed, everyone else passed.
func (c *CLI) handleLogCommand() {
	if !c.tracker.GameStarted() {
		C.Warn.Println("Start a game first.")
		return
	}
	players := c.tracker.Players()
	names := make([]string, 0, len(players))
	idByName := make(map[string]string, len(players))
	for _, p := range players {
		names = append(names, p.Name)
		idByName[p.Name] = p.ID
	}

	C.Info.Println("\n--- Log a Suggestion ---")
	suggesterName := c.promptForSelection("Who made the suggestion?", names)
	suspect, weapon, room := c.promptForTriple()

	showerOptions := append([]string{}, names...)
	showerOptions = append(showerOptions, "No One")
	showerName := c.promptForSelection("Who showed a card?", showerOptions)

	in := tracker.SuggestionInput{
		SuggesterID: idByName[suggesterName],
		Suspect:     suspect,
		Weapon:      weapon,
		Room:        room,
	}

	suggesterIdx := indexOf(names, suggesterName)
	if showerName == "No One" {
		for i := 1; i < len(players); i++ {
			in.PassedPlayerIDs = append(in.PassedPlayerIDs, players[(suggesterIdx+i)%len(players)].ID)
		}
	} else {
		in.ShowerID = idByName[showerName]
		for i := 1; i < len(players); i++ {
			p := players[(suggesterIdx+i)%len(players)]
			if p.ID == in.ShowerID {
				break
			}
			in.PassedPlayerIDs = append(in.PassedPlayerIDs, p.ID)
		}
		if c.promptForBool("Did you see which card was shown?") {
			in.ShownCard = c.promptForSelection("Which card was shown?", []string{suspect, weapon, room})
		}
	}

	c.tracker.RecordSuggestion(in)
	C.Info.Println("Suggestion logged. Updated notes:")
	RenderMatrix(c.tracker.Snapshot())
}

// handleMarkCommand manually overrides one matrix cell.
func (c *CLI) handleMarkCommand() {
	picked := c.promptForCards(true, 1)
	if len(picked) == 0 {
		return
	}
	card := picked[0]

	players := c.tracker.Players()
	holderNames := make([]string, 0, len(players)+1)
	idByName := make(map[string]string, len(players)+1)
	for _, p := range players {
		holderNames = append(holderNames, p.Name)
		idByName[p.Name] = p.ID
	}
	holderNames = append(holderNames, "Envelope")
	idByName["Envelope"] = tracker.HolderEnvelope

	holderName := c.promptForSelection("Mark against which holder?", holderNames)
	stateName := c.promptForSelection("New state?", []string{
		"unknown", "owned", "not_owned", "potentially_owned", "envelope",
	})
	state, err := tracker.ParseCardState(stateName)
	if err != nil {
		C.Warn.Printf("Invalid state: %v\n", err)
		return
	}

	c.tracker.SetCardState(card, idByName[holderName], state, true)
	RenderMatrix(c.tracker.Snapshot())
}

// handleOpenedCommand records cards revealed outside a suggestion, such
// as face-up leftovers in an uneven deal.
func (c *CLI) handleOpenedCommand() {
	C.Info.Println("\n--- Log Revealed Cards ---")
	picked := c.promptForCards(true, 0)
	if len(picked) == 0 {
		return
	}

	players := c.tracker.Players()
	options := []string{"Face up (nobody holds them)"}
	idByName := map[string]string{}
	for _, p := range players {
		options = append(options, p.Name)
		idByName[p.Name] = p.ID
	}
	choice := c.promptForSelection("Who holds these cards?", options)

	c.tracker.RecordOpenedCards(picked, idByName[choice])
	C.Info.Println("Revealed cards logged.")
	RenderMatrix(c.tracker.Snapshot())
}

func (c *CLI) handleClearRowCommand() {
	picked := c.promptForCards(true, 1)
	if len(picked) == 0 {
		return
	}
	if !c.promptForBool(fmt.Sprintf("Reset the whole row for '%s' to unknown?", picked[0])) {
		return
	}
	c.tracker.ClearCardRow(picked[0])
	RenderMatrix(c.tracker.Snapshot())
}

func (c *CLI) handleAccuseCommand() {
	players := c.tracker.Players()
	names := make([]string, 0, len(players))
	idByName := map[string]string{}
	for _, p := range players {
		names = append(names, p.Name)
		idByName[p.Name] = p.ID
	}
	accuser := c.promptForSelection("Who made the accusation?", names)
	suspect, weapon, room := c.promptForTriple()
	correct := c.promptForBool("Was the accusation correct?")

	c.tracker.RecordAccusation(idByName[accuser], suspect, weapon, room, correct)
	if correct {
		C.Yes.Printf("%s wins! It was %s with the %s in the %s.\n", accuser, suspect, weapon, room)
	} else {
		C.No.Printf("%s is out of the game.\n", accuser)
	}
}

func (c *CLI) handleNotesCommand() {
	current := c.tracker.Notes()
	if current != "" {
		C.Header.Println("\n--- Current Notes ---")
		fmt.Println(current)
	}
	C.Info.Println("Enter new notes (single line, 'clear' to erase, '.' to keep):")
	input := c.promptForString("> ")
	switch input {
	case ".":
		return
	case "clear":
		c.tracker.UpdateNotes("")
		C.Info.Println("Notes cleared.")
	default:
		c.tracker.UpdateNotes(input)
		C.Info.Println("Notes updated.")
	}
}

func (c *CLI) handleAdviseCommand(question string) {
	client, err := advisor.NewFromEnv(c.log)
	if err != nil {
		C.Warn.Printf("%v\n", err)
		return
	}

	C.Info.Println("Asking the advisor...")
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	answer, err := client.Advise(ctx, c.tracker.Snapshot(), question)
	if err != nil {
		C.Warn.Printf("Advisor error: %v\n", err)
		return
	}
	C.Header.Println("\n--- Advisor ---")
	fmt.Println(answer)
}

func (c *CLI) handleSaveCommand(path string) {
	if path == "" {
		path = storage.DefaultPath
	}
	if err := storage.Save(path, c.tracker.Snapshot()); err != nil {
		C.Warn.Printf("Save failed: %v\n", err)
		return
	}
	C.Info.Printf("Session saved to %s.\n", path)
}

func (c *CLI) loadSnapshot(path string) error {
	if path == "" {
		path = storage.DefaultPath
	}
	snap, err := storage.Load(path)
	if err != nil {
		return err
	}
	c.tracker.Restore(snap)
	C.Info.Printf("Session loaded from %s.\n", path)
	return nil
}

func (c *CLI) handleResetCommand() {
	if !c.promptForBool("Reset the game? All logged knowledge will be lost") {
		return
	}
	c.tracker.ResetGame()
	C.Info.Println("Game reset. The player list was kept.")
	c.runSetupFromExistingPlayers()
}

// runSetupFromExistingPlayers restarts a game with the retained roster.
func (c *CLI) runSetupFromExistingPlayers() {
	if len(c.tracker.Players()) == 0 {
		c.runSetup()
		return
	}
	c.handleMyCardsCommand()
	c.handleStartCommand()
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
