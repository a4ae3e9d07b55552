/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package knowr

// MaxRounds is the number of rounds in a game unless overridden with WithMaxRounds.
const MaxRounds = 10

// Player is a participant. ID is assigned on creation and never changes.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Choice is one of the two options of a prompt.
type Choice string

const (
	ChoiceNone   Choice = ""
	ChoiceFirst  Choice = "FIRST"
	ChoiceSecond Choice = "SECOND"
)

func (c Choice) Valid() bool {
	return c == ChoiceFirst || c == ChoiceSecond
}

// Letter is the short label shown next to an option.
func (c Choice) Letter() string {
	switch c {
	case ChoiceFirst:
		return "A"
	case ChoiceSecond:
		return "B"
	default:
		return ""
	}
}

// Phase is a state of the game state machine.
type Phase string

const (
	PhaseSetup         Phase = "SETUP"
	PhasePassToTarget  Phase = "PASS_TO_TARGET"
	PhasePick          Phase = "PICK"
	PhasePassToGuesser Phase = "PASS_TO_GUESSER"
	PhaseGuess         Phase = "GUESS"
	PhaseResult        Phase = "RESULT"
	PhaseGameOver      Phase = "GAME_OVER"
)

func (p Phase) String() string {
	return string(p)
}

// InRound reports whether a round is underway.
func (p Phase) InRound() bool {
	switch p {
	case PhasePassToTarget, PhasePick, PhasePassToGuesser, PhaseGuess, PhaseResult:
		return true
	default:
		return false
	}
}

// LogFunc receives diagnostic messages from the package.
type LogFunc func(format string, args ...any)

func discardLog(string, ...any) {}
