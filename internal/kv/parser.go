// Package kv parses "key value" configuration text: one pair per line, '#'
// starts a comment, values may be double quoted.
package kv

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/viant/parsly"
)

// Pair is one parsed entry.
type Pair struct {
	Key   string
	Value string
	Line  int
}

// Parse returns pairs in input order.
func Parse(input []byte) ([]Pair, error) {
	var result []Pair
	for i, line := range bytes.Split(input, []byte{'\n'}) {
		pair, ok, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if ok {
			pair.Line = i + 1
			result = append(result, *pair)
		}
	}
	return result, nil
}

func parseLine(line []byte) (*Pair, bool, error) {
	cursor := parsly.NewCursor("", line, 0)
	cursor.MatchOne(whitespaceToken)
	if isBlank(cursor) {
		return nil, false, nil
	}
	if matched := cursor.MatchOne(commentToken); matched.Code == commentToken.Code {
		return nil, false, nil
	}

	matched := cursor.MatchOne(keyToken)
	if matched.Code != keyToken.Code {
		return nil, false, cursor.NewError(keyToken)
	}
	pair := &Pair{Key: matched.Text(cursor)}

	matched = cursor.MatchOne(whitespaceToken)
	if matched.Code != whitespaceToken.Code {
		return nil, false, cursor.NewError(whitespaceToken)
	}

	matched = cursor.MatchAny(quotedToken, valueToken)
	switch matched.Code {
	case quotedToken.Code:
		value, err := strconv.Unquote(matched.Text(cursor))
		if err != nil {
			return nil, false, fmt.Errorf("invalid quoted value for %v: %w", pair.Key, err)
		}
		pair.Value = value
	case valueToken.Code:
		pair.Value = matched.Text(cursor)
	default:
		return nil, false, cursor.NewError(quotedToken, valueToken)
	}

	cursor.MatchOne(whitespaceToken)
	cursor.MatchOne(commentToken)
	if !isBlank(cursor) {
		return nil, false, fmt.Errorf("unexpected text after value of %v: %q", pair.Key, cursor.Input[cursor.Pos:])
	}
	return pair, true, nil
}

func isBlank(cursor *parsly.Cursor) bool {
	return cursor.Pos >= cursor.InputSize
}
