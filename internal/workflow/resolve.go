package workflow

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// Candidate is one option in a branch-and-wait selection.
type Candidate struct {
	ID       string
	Name     string
	Synonyms []string
	Title    string
}

func (c Candidate) label(i int) string {
	if c.Name != "" && !strings.EqualFold(c.Name, c.ID) {
		return fmt.Sprintf("%d. %s (%s)", i+1, c.ID, c.Name)
	}
	return fmt.Sprintf("%d. %s", i+1, c.ID)
}

// minSubstringRunes keeps short synonyms like "opt" from matching inside
// unrelated words during substring matching.
const minSubstringRunes = 4

// minLooseIDRunes is the shortest id that may match an unmarked word inside
// a sentence. Shorter ids ("a", "2") collide with articles and counts.
const minLooseIDRunes = 2

var (
	// markedRe finds references like "option 2", "choice b", "#3".
	markedRe = regexp.MustCompile(`(?:#\s*|\b(?:option|choice|number|suggestion|no\.)\s+)([\p{L}\p{N}][\p{L}\p{N}._-]*)`)
	// leadingLabelRe finds an echoed list label such as "2. Web dashboard" or "b) ...".
	leadingLabelRe = regexp.MustCompile(`^\s*([\p{L}\p{N}]+)[.)](?:\s|$)`)
)

type stage struct {
	name  string
	match func(i int, c Candidate) bool
}

// Resolve maps free text to exactly one candidate and returns its index.
//
// Stages are tried in order and the first stage with any match decides:
//
//  1. the whole text is an id
//  2. the whole text is a 1-based number, unless some id is itself numeric
//  3. a marked reference ("option 2", "#b", a leading "2.") names an id
//  4. a marked reference names a 1-based number
//  5. a word of the text equals an id of at least two runes that is not a
//     plain number
//  6. the whole text is a name or synonym
//  7. a word run of the text is a name or synonym
//  8. substring containment of a name or synonym in the text, or of the text
//     in a title
//
// A stage with several matches is ambiguous. No match in any stage fails.
func Resolve(text string, candidates []Candidate) (int, error) {
	labels := make([]string, len(candidates))
	numericIDs := false
	for i, c := range candidates {
		labels[i] = c.label(i)
		if isNumber(c.ID) {
			numericIDs = true
		}
	}
	norm := normalize(text)
	if norm == "" {
		return -1, session.AmbiguousSelection(text, "selection is empty", labels)
	}
	tokens := tokenize(norm)
	padded := " " + strings.Join(tokens, " ") + " "
	marked := markedRefs(text)

	stages := []stage{
		{"id", func(_ int, c Candidate) bool {
			return strings.ToLower(c.ID) == norm
		}},
		{"number", func(i int, _ Candidate) bool {
			return !numericIDs && strconv.Itoa(i+1) == norm
		}},
		{"id", func(_ int, c Candidate) bool {
			return slices.Contains(marked, strings.ToLower(c.ID))
		}},
		{"number", func(i int, _ Candidate) bool {
			return slices.Contains(marked, strconv.Itoa(i+1))
		}},
		{"id", func(_ int, c Candidate) bool {
			id := strings.ToLower(c.ID)
			if utf8.RuneCountInString(id) < minLooseIDRunes || isNumber(id) {
				return false
			}
			return slices.Contains(tokens, id)
		}},
		{"name", func(_ int, c Candidate) bool {
			return slices.Contains(c.names(), norm)
		}},
		{"name", func(_ int, c Candidate) bool {
			for _, n := range c.names() {
				if strings.Contains(padded, " "+n+" ") {
					return true
				}
			}
			return false
		}},
		{"substring", func(_ int, c Candidate) bool {
			for _, n := range c.names() {
				if utf8.RuneCountInString(n) >= minSubstringRunes && strings.Contains(norm, n) {
					return true
				}
			}
			title := normalize(c.Title)
			return title != "" && utf8.RuneCountInString(norm) >= minSubstringRunes && strings.Contains(title, norm)
		}},
	}

	for _, st := range stages {
		var hits []int
		for i, c := range candidates {
			if st.match(i, c) {
				hits = append(hits, i)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], nil
		default:
			matched := make([]string, len(hits))
			for j, h := range hits {
				matched[j] = labels[h]
			}
			return -1, session.AmbiguousSelection(text,
				fmt.Sprintf("%s matches more than one option (%s)", st.name, strings.Join(matched, "; ")), labels)
		}
	}
	return -1, session.AmbiguousSelection(text, "no option matches", labels)
}

// markedRefs returns the lower-cased tokens the text explicitly points at.
func markedRefs(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, m := range markedRe.FindAllStringSubmatch(lower, -1) {
		if tok := strings.Trim(m[1], ".-_"); tok != "" {
			out = append(out, tok)
		}
	}
	if m := leadingLabelRe.FindStringSubmatch(lower); m != nil {
		out = append(out, m[1])
	}
	return out
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func (c Candidate) names() []string {
	out := make([]string, 0, len(c.Synonyms)+1)
	if n := normalize(c.Name); n != "" {
		out = append(out, n)
	}
	for _, s := range c.Synonyms {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.Join(tokenize(strings.ToLower(s)), " ")
}

// tokenize splits on anything but letters, digits and the id punctuation
// ". - _", then trims that punctuation from token edges.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-_"); f != "" {
			out = append(out, f)
		}
	}
	return out
}
