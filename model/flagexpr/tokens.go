package flagexpr

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota + 1
	identifierCode
	numberCode
	pipeCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	pipeToken       = parsly.NewToken(pipeCode, "|", matcher.NewByte('|'))
)

// identifierMatcher matches flag names such as IMPORTANT or BIND_ABOVE_CLIENT
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// numberMatcher matches decimal or 0x-prefixed hexadecimal literals
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isDigit(input[pos]) {
		return 0
	}
	if pos+1 < size && input[pos] == '0' && (input[pos+1] == 'x' || input[pos+1] == 'X') {
		matched := 2
		for i := pos + 2; i < size && isHexDigit(input[i]); i++ {
			matched++
		}
		if matched == 2 {
			return 0
		}
		return matched
	}
	matched := 0
	for i := pos; i < size && isDigit(input[i]); i++ {
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
