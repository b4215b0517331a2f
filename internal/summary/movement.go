package summary

import "strings"

// MovementKind is the classified direction of an event.
type MovementKind int

const (
	Unknown MovementKind = iota
	Entry
	Exit
)

func (k MovementKind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Classify maps a movement descriptor to its kind. Entry wins when a
// descriptor matches both.
func Classify(m Movement) MovementKind {
	desc := strings.ToLower(m.Description)
	abbr := strings.ToUpper(strings.TrimSpace(m.Abbreviation))
	switch {
	case strings.Contains(desc, "entrada") || abbr == "ENT":
		return Entry
	case strings.Contains(desc, "salida") || abbr == "SAL":
		return Exit
	default:
		return Unknown
	}
}
