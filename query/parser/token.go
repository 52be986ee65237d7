package parser

import (
	"strings"
	"unicode"
)

// tokenKind distinguishes words from punctuation and quoted literals.
type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenPunct
)

// token is one lexical unit of a query string. Position is the 0-based
// index of the token within the token stream, which parse errors report
// back to the user.
type token struct {
	kind     tokenKind
	value    string
	tag      string // enum / path prefix on a quoted literal
	position int
}

func (t token) is(s string) bool {
	return t.kind != tokenQuoted && strings.EqualFold(t.value, s)
}

func (t token) display() string {
	if t.kind == tokenQuoted {
		if t.tag != "" {
			return t.tag + `"` + t.value + `"`
		}
		return `"` + t.value + `"`
	}
	return t.value
}

func isPunct(r rune) bool {
	switch r {
	case '|', ',', '(', ')', '[', ']':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	if unicode.IsSpace(r) || isPunct(r) || r == '"' {
		return false
	}
	return true
}

// tokenize splits a query string into tokens. Double-quoted strings
// become single quoted tokens; a word immediately followed by an opening
// quote (enum"...", path"...") carries the word as the token's tag.
func tokenize(input string) ([]token, *ParseError) {
	var tokens []token
	runes := []rune(input)
	i := 0

	emit := func(kind tokenKind, value, tag string) {
		tokens = append(tokens, token{kind: kind, value: value, tag: tag, position: len(tokens)})
	}

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case isPunct(r):
			emit(tokenPunct, string(r), "")
			i++

		case r == '"':
			value, next, ok := scanQuoted(runes, i)
			if !ok {
				return nil, NewParseError(ErrorKindSyntax, "unterminated string literal").
					WithPosition(len(tokens), len(tokens)+1).
					WithSuggestion("close the string with a matching double quote")
			}
			emit(tokenQuoted, value, "")
			i = next

		default:
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if i < len(runes) && runes[i] == '"' {
				value, next, ok := scanQuoted(runes, i)
				if !ok {
					return nil, NewParseError(ErrorKindSyntax, "unterminated string literal").
						WithPosition(len(tokens), len(tokens)+1).
						WithSuggestion("close the string with a matching double quote")
				}
				emit(tokenQuoted, value, strings.ToLower(word))
				i = next
			} else {
				emit(tokenWord, word, "")
			}
		}
	}
	return tokens, nil
}

// scanQuoted consumes a double-quoted string starting at the opening
// quote. Returns the unquoted content and the index past the closing
// quote.
func scanQuoted(runes []rune, start int) (string, int, bool) {
	i := start + 1
	var sb strings.Builder
	for i < len(runes) {
		if runes[i] == '"' {
			return sb.String(), i + 1, true
		}
		sb.WriteRune(runes[i])
		i++
	}
	return "", start, false
}
