package cards

// Type classifies a card using a typed enum.
type Type int

const (
	TypeSuspect Type = iota
	TypeWeapon
	TypeRoom
)

func (t Type) String() string {
	return []string{"suspect", "weapon", "room"}[t]
}

// Types lists the three categories in canonical order.
func Types() []Type {
	return []Type{TypeSuspect, TypeWeapon, TypeRoom}
}

// Card is an immutable (name, type) pair from the fixed universe.
type Card struct {
	Name string
	Type Type
}

// The fixed Cluedo universe: 6 suspects, 6 weapons, 9 rooms.
// Exactly one card per category sits in the envelope; the other 18
// are distributed among the players.
var (
	Suspects = []string{
		"Miss Scarlett",
		"Colonel Mustard",
		"Dr. Orchid",
		"Mr. Green",
		"Mrs. Peacock",
		"Professor Plum",
	}
	Weapons = []string{
		"Candlestick",
		"Dagger",
		"Lead Pipe",
		"Revolver",
		"Rope",
		"Wrench",
	}
	Rooms = []string{
		"Ballroom",
		"Billiard Room",
		"Conservatory",
		"Dining Room",
		"Hall",
		"Kitchen",
		"Library",
		"Lounge",
		"Study",
	}
)

const (
	TotalCards       = 21
	EnvelopeCards    = 3
	DistributedCards = 18
)

var (
	all      []Card
	typeOf   map[string]Type
	allNames []string
)

func init() {
	typeOf = make(map[string]Type, TotalCards)
	for _, name := range Suspects {
		all = append(all, Card{Name: name, Type: TypeSuspect})
		typeOf[name] = TypeSuspect
	}
	for _, name := range Weapons {
		all = append(all, Card{Name: name, Type: TypeWeapon})
		typeOf[name] = TypeWeapon
	}
	for _, name := range Rooms {
		all = append(all, Card{Name: name, Type: TypeRoom})
		typeOf[name] = TypeRoom
	}
	allNames = make([]string, 0, TotalCards)
	for _, c := range all {
		allNames = append(allNames, c.Name)
	}
}

// All returns every card in category order (suspects, weapons, rooms).
func All() []Card {
	out := make([]Card, len(all))
	copy(out, all)
	return out
}

// AllNames returns every card name in category order.
func AllNames() []string {
	out := make([]string, len(allNames))
	copy(out, allNames)
	return out
}

// TypeOf reports the category of a card name. ok is false for names
// outside the fixed universe.
func TypeOf(name string) (Type, bool) {
	t, ok := typeOf[name]
	return t, ok
}

// IsValid reports whether name belongs to the fixed universe.
func IsValid(name string) bool {
	_, ok := typeOf[name]
	return ok
}

// ByType returns the card names of one category.
func ByType(t Type) []string {
	var src []string
	switch t {
	case TypeSuspect:
		src = Suspects
	case TypeWeapon:
		src = Weapons
	case TypeRoom:
		src = Rooms
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
