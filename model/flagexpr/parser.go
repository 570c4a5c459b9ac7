// Package flagexpr parses bind-flag expressions in the form
// `IMPORTANT | ABOVE_CLIENT | 0x40`. Names may carry an optional BIND_ prefix
// and are matched case-insensitively.
package flagexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/oomadj/model"
	"github.com/viant/parsly"
)

// Parse parses a '|' separated list of flag names or numeric literals.
// An empty expression yields zero flags.
func Parse(expr string) (model.BindFlag, error) {
	input := strings.TrimSpace(expr)
	if input == "" {
		return 0, nil
	}
	cursor := parsly.NewCursor("", []byte(input), 0)
	var result model.BindFlag
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken, numberToken)
		switch matched.Code {
		case identifierCode:
			flag, err := lookup(matched.Text(cursor))
			if err != nil {
				return 0, err
			}
			result |= flag
		case numberCode:
			value, err := strconv.ParseUint(matched.Text(cursor), 0, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid flag literal %q: %w", matched.Text(cursor), err)
			}
			result |= model.BindFlag(value)
		default:
			return 0, cursor.NewError(identifierToken, numberToken)
		}

		matched = cursor.MatchAfterOptional(whitespaceToken, pipeToken)
		switch matched.Code {
		case pipeCode:
			continue
		case parsly.EOF:
			return result, nil
		default:
			return 0, cursor.NewError(pipeToken)
		}
	}
}

// MustParse is like Parse but panics on error; intended for static tables.
func MustParse(expr string) model.BindFlag {
	flags, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return flags
}

func lookup(name string) (model.BindFlag, error) {
	key := strings.TrimPrefix(strings.ToUpper(name), "BIND_")
	flag, ok := model.BindFlagNames[key]
	if !ok {
		return 0, fmt.Errorf("unknown bind flag: %v", name)
	}
	return flag, nil
}
