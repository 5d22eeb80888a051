package repl

import (
	"fmt"
	"sort"
	"strings"
)

// Completer resolves console command names.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"play", "pause", "toggle",
			"speed", "faster", "slower",
			"seek", "jump",
			"status", "history",
			"help", "exit", "quit",
		},
	}
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	sort.Strings(suggestions)
	return suggestions
}

// Resolve maps a word to a command: an exact name or a unique prefix.
func (c *Completer) Resolve(word string) (string, error) {
	word = strings.ToLower(word)
	matches := c.Complete(word)
	for _, m := range matches {
		if m == word {
			return m, nil
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown command %q, try help", word)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous command %q: %s", word, strings.Join(matches, ", "))
	}
}
