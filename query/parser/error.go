package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// ErrorContext indicates the environment where parser errors will be displayed
type ErrorContext string

const (
	// ErrorContextTerminal indicates errors will be displayed in terminal with ANSI colors
	ErrorContextTerminal ErrorContext = "terminal"
	// ErrorContextPlain indicates errors will be displayed without ANSI codes (logs, JSON output)
	ErrorContextPlain ErrorContext = "plain"
)

// ErrorKind categorizes parser errors for programmatic handling
type ErrorKind string

const (
	ErrorKindSyntax  ErrorKind = "syntax"  // Malformed query text
	ErrorKindClause  ErrorKind = "clause"  // Clause in the wrong place or unknown clause
	ErrorKindLiteral ErrorKind = "literal" // Value literal that cannot be read
	ErrorKindUnknown ErrorKind = "unknown" // Uncategorized
)

// ParseError is a structured parser error. It is a distinct taxonomy
// from the engine's query errors: a ParseError means the query text
// never produced a pipeline at all.
type ParseError struct {
	Kind        ErrorKind
	Message     string
	Position    int    // Token position where the error occurred, -1 if unknown
	TokenCount  int    // Total tokens in the query
	Token       string // Display form of the offending token (optional)
	Suggestions []string
	Timestamp   time.Time
}

// Error implements the error interface with terminal formatting.
func (e *ParseError) Error() string {
	return e.FormatError(ErrorContextTerminal)
}

// FormatError generates a context-appropriate error message.
func (e *ParseError) FormatError(ctx ErrorContext) string {
	if ctx == ErrorContextPlain {
		return e.formatPlainError()
	}
	return e.formatTerminalError()
}

func (e *ParseError) formatPlainError() string {
	msg := e.Message
	if e.Position >= 0 && e.TokenCount > 0 {
		msg += fmt.Sprintf(" (at token %d/%d)", e.Position+1, e.TokenCount)
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" near '%s'", e.Token)
	}
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Suggestions: %s", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *ParseError) formatTerminalError() string {
	msg := pterm.Red(e.Message)

	context := fmt.Sprintf("\n\n%s", pterm.LightCyan("Context:"))
	if e.Position >= 0 && e.TokenCount > 0 {
		context += fmt.Sprintf("\n  %s %d/%d", pterm.Yellow("Token:"), e.Position+1, e.TokenCount)
	}
	if e.Token != "" {
		context += fmt.Sprintf("\n  %s '%s'", pterm.Yellow("Near:"), e.Token)
	}

	if len(e.Suggestions) > 0 {
		context += fmt.Sprintf("\n\n%s", pterm.Green("Suggestions:"))
		for _, suggestion := range e.Suggestions {
			context += fmt.Sprintf("\n  • %s", suggestion)
		}
	}
	return msg + context
}

// NewParseError creates a ParseError with the given kind and message.
func NewParseError(kind ErrorKind, message string) *ParseError {
	return &ParseError{
		Kind:      kind,
		Message:   message,
		Position:  -1,
		Timestamp: time.Now(),
	}
}

// WithPosition sets the token position where the error occurred.
func (e *ParseError) WithPosition(pos, total int) *ParseError {
	e.Position = pos
	e.TokenCount = total
	return e
}

// WithToken records the offending token's display form.
func (e *ParseError) WithToken(tok string) *ParseError {
	e.Token = tok
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *ParseError) WithSuggestion(suggestion string) *ParseError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}
