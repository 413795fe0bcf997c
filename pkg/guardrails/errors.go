package guardrails

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ErrorType categorizes an error found while parsing or validating a
// rule set.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Missing or malformed fields
	ErrorTypeSemantic   ErrorType = "semantic"   // Unknown units, inconsistent limits
	ErrorTypeIO         ErrorType = "io"         // File access error
)

// Error is a rule set error with location, source context, and a
// suggested fix where one is known.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // What is wrong
	Location   Location  // Where in the rule file
	Context    string    // Surrounding source lines
	Suggestion string    // How to fix it (optional)
}

// Error formats the error with its location, context, and suggestion.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ErrorList accumulates errors so a rule file author sees every problem
// in one pass instead of fixing them one at a time.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates an empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{Errors: make([]*Error, 0)}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and appends an error.
func (el *ErrorList) AddError(errType ErrorType, message string, location Location) {
	el.Add(&Error{Type: errType, Message: message, Location: location})
}

// AddErrorWithSuggestion creates and appends an error carrying a
// suggested fix.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location Location, suggestion string) {
	el.Add(&Error{Type: errType, Message: message, Location: location, Suggestion: suggestion})
}

// HasErrors reports whether the list is non-empty.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of accumulated errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// HasErrorType reports whether the list contains an error of the given
// type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// ByType returns the errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// Error formats every accumulated error.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil when the list is empty, otherwise the list
// itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// contextLines is how many lines of source to show around an error.
const contextLines = 2

// extractContext reads the rule file and renders the lines surrounding
// the location, with a marker on the offending line. Returns "" when
// the file is not readable, which keeps in-memory parses working.
func extractContext(location Location) string {
	if !location.IsValid() {
		return ""
	}

	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil {
		return ""
	}

	errorLine := location.Line - 1
	start := errorLine - contextLines
	if start < 0 {
		start = 0
	}
	end := errorLine + contextLines
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if errorLine >= len(lines) {
		return ""
	}

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", end+1))
	for i := start; i <= end; i++ {
		marker := "  "
		if i == errorLine {
			marker = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", marker, width, i+1, lines[i]))
	}
	return sb.String()
}

// withContext enriches an error with source context read from its
// file.
func withContext(err *Error) *Error {
	if err.Context == "" && err.Location.IsValid() {
		err.Context = extractContext(err.Location)
	}
	return err
}

// suggestField suggests the closest valid field name for an unknown
// key, falling back to listing the valid set.
func suggestField(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	best := ""
	bestDist := len(unknown) + 1
	for _, f := range valid {
		if d := editDistance(unknown, f); d < bestDist {
			bestDist = d
			best = f
		}
	}

	if bestDist <= 3 && best != "" {
		return fmt.Sprintf("Did you mean %q?", best)
	}
	return fmt.Sprintf("Valid fields: %s", strings.Join(valid, ", "))
}

// suggestMissingField phrases the fix for a missing required field.
func suggestMissingField(field, example string) string {
	if example != "" {
		return fmt.Sprintf("Add '%s: %s' to the rule set", field, example)
	}
	return fmt.Sprintf("Add a '%s' field to the rule set", field)
}

// editDistance is the Levenshtein distance between two strings, used
// to match typoed keys against the schema.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = curr[j-1] + 1
			if prev[j]+1 < curr[j] {
				curr[j] = prev[j] + 1
			}
			if prev[j-1]+cost < curr[j] {
				curr[j] = prev[j-1] + cost
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
