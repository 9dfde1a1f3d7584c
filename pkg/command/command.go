// Package command defines the turret's discrete command vocabulary and maps
// voice phrases and dashboard buttons onto it.
package command

import "fmt"

// Command is a discrete operator request.
type Command int

const (
	SetModeA Command = iota + 1
	SetModeB
	Retire
	Activate
	Shutdown
	ToggleAutopilot
)

type info struct {
	name   string
	phrase string
}

var commands = map[Command]info{
	SetModeA:        {"search-one", "COMMAND SEARCH ONE"},
	SetModeB:        {"search-two", "COMMAND SEARCH TWO"},
	Retire:          {"retire", "COMMAND RETIRE"},
	Activate:        {"activate", "COMMAND ACTIVATE"},
	Shutdown:        {"shutdown", "COMMAND SHUTDOWN"},
	ToggleAutopilot: {"toggle-autopilot", "COMMAND TOGGLE AUTOPILOT"},
}

// Dashboard mode buttons.
var buttons = map[string]Command{
	"noFace":   Retire,
	"haarFace": SetModeA,
	"lbpFace":  SetModeB,
}

var byPhrase, byName = func() (map[string]Command, map[string]Command) {
	p := make(map[string]Command, len(commands))
	n := make(map[string]Command, len(commands))
	for c, i := range commands {
		p[i.phrase] = c
		n[i.name] = c
	}
	return p, n
}()

// All returns every command in declaration order.
func All() []Command {
	return []Command{SetModeA, SetModeB, Retire, Activate, Shutdown, ToggleAutopilot}
}

// String returns the command's short name.
func (c Command) String() string {
	if i, ok := commands[c]; ok {
		return i.name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Phrase returns the spoken form of the command.
func (c Command) Phrase() string {
	return commands[c].phrase
}

// Parse matches a whole recognizer hypothesis against the vocabulary.
// Matching is exact: no trimming, no case folding.
func Parse(phrase string) (Command, bool) {
	c, ok := byPhrase[phrase]
	return c, ok
}

// FromButton maps a dashboard mode button id.
func FromButton(id string) (Command, bool) {
	c, ok := buttons[id]
	return c, ok
}

// Lookup resolves a short name, button id or exact phrase.
func Lookup(s string) (Command, bool) {
	if c, ok := byName[s]; ok {
		return c, true
	}
	if c, ok := FromButton(s); ok {
		return c, true
	}
	return Parse(s)
}
