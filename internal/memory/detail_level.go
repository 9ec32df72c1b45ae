// detail_level.go holds the detail_level parameter shared by the memory
// read tools.
//
//   - summary: ids and a one-line snippet
//   - standard: default, a truncated snippet
//   - full: the complete text
package memory

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Detail level constants.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to "standard"
// for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// Snippet returns text cut to the size that level allows.
func Snippet(text, level string) string {
	switch ParseDetailLevel(level) {
	case DetailSummary:
		return Truncate(text, 80)
	case DetailFull:
		return text
	default:
		return Truncate(text, 300)
	}
}

// NavigationHint returns a one-line footer when results are capped by a limit.
// Returns an empty string when all results fit or total is 0.
func NavigationHint(showing, total int, hint string) string {
	if total <= 0 || showing >= total {
		return ""
	}
	if hint != "" {
		return fmt.Sprintf("\n📊 Showing %d of %d. %s", showing, total, hint)
	}
	return fmt.Sprintf("\n📊 Showing %d of %d.", showing, total)
}

// EstimateTokens approximates the token count of text with the chars/4
// heuristic. Returns 0 for empty strings, at least 1 otherwise.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return max(n/4, 1)
}

// TokenFooter returns a one-line footer with the estimated token count
// of a tool response.
func TokenFooter(estimatedTokens int) string {
	return fmt.Sprintf("\n📏 ~%s tokens", humanize.Comma(int64(estimatedTokens)))
}
