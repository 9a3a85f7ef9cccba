package todo

import (
	"errors"
	"strconv"
	"strings"
)

// Kind is the tag of a parsed todo command.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdd
	KindList
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindList:
		return "list"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingItem is returned for an add command with nothing to add.
	ErrMissingItem = errors.New("todo: missing item text")
	// ErrInvalidNumber is returned when a remove position is missing, non-numeric or out of range.
	ErrInvalidNumber = errors.New("todo: invalid item number")
)

var (
	addWords    = map[string]bool{"add": true, "todo": true, "+": true}
	listWords   = map[string]bool{"list": true, "show": true, "ls": true}
	removeWords = map[string]bool{"remove": true, "delete": true, "rm": true, "-": true}
)

// Command is a parsed todo command.
type Command struct {
	Kind     Kind
	Action   string // first token as typed, lower-cased
	Item     string // KindAdd: item text, single-space joined
	Position int    // KindRemove: 1-based display position
	Err      error  // ErrMissingItem or ErrInvalidNumber when the arguments are unusable
	Raw      string
}

// Parse turns free text into a Command. It never fails; argument problems are
// reported through Command.Err so the caller can answer with a corrective message.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Command{Kind: KindUnknown, Raw: text}
	}

	action := strings.ToLower(parts[0])
	args := parts[1:]
	cmd := Command{Action: action, Raw: text}

	switch {
	case addWords[action]:
		cmd.Kind = KindAdd
		if len(args) == 0 {
			cmd.Err = ErrMissingItem
			return cmd
		}
		cmd.Item = strings.Join(args, " ")

	case listWords[action]:
		cmd.Kind = KindList

	case removeWords[action]:
		cmd.Kind = KindRemove
		if len(args) == 0 {
			cmd.Err = ErrInvalidNumber
			return cmd
		}
		pos, ok := parsePosition(args[0])
		if !ok {
			cmd.Err = ErrInvalidNumber
			return cmd
		}
		cmd.Position = pos

	default:
		cmd.Kind = KindUnknown
	}
	return cmd
}

// parsePosition accepts decimal digit strings only: no sign, no spaces.
func parsePosition(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false // overflow
	}
	return n, true
}
