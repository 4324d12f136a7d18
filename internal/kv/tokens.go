package kv

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	keyCode
	quotedCode
	valueCode
	commentCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	keyToken        = parsly.NewToken(keyCode, "Key", &keyMatcher{})
	quotedToken     = parsly.NewToken(quotedCode, "Quoted", &quotedMatcher{})
	valueToken      = parsly.NewToken(valueCode, "Value", &valueMatcher{})
	commentToken    = parsly.NewToken(commentCode, "Comment", &commentMatcher{})
)

// keyMatcher matches letters, digits, '-', '_' and '.'
type keyMatcher struct{}

func (m *keyMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		c := cursor.Input[i]
		if isLetter(c) || isDigit(c) || c == '-' || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// quotedMatcher matches a double quoted literal with backslash escapes
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize || input[pos] != '"' {
		return 0
	}
	for i := pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case '\\':
			i++
		case '"':
			return i - pos + 1
		}
	}
	return 0
}

// valueMatcher matches a bare value up to whitespace or a comment
type valueMatcher struct{}

func (m *valueMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize && cursor.Input[cursor.Pos] == '"' {
		return 0
	}
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		c := cursor.Input[i]
		if isSpace(c) || c == '#' {
			break
		}
		matched++
	}
	return matched
}

// commentMatcher matches '#' through the end of input
type commentMatcher struct{}

func (m *commentMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != '#' {
		return 0
	}
	return cursor.InputSize - cursor.Pos
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
