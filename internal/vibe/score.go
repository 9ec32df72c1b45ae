// Package vibe refines a vague prompt into concrete decisions. A
// specificity score decides how many idea and system steps are needed;
// each step asks the calling model for five suggestions and waits for the
// user to pick one.
package vibe

import (
	"strings"
)

// Factor is one axis of the specificity score. Each keyword found in the
// prompt earns PerHit points, capped at Max. A negative PerHit is a penalty.
type Factor struct {
	Name     string
	Keywords []string
	PerHit   int
	Max      int
}

// Factors returns the keyword factors of the specificity score. Matching is
// by substring of the lowercased prompt.
func Factors() []Factor {
	return []Factor{
		{
			Name: "technical_terms",
			Keywords: []string{
				"react", "vue", "angular", "python", "typescript", "javascript",
				"api", "database", "mongodb", "postgresql", "mysql", "redis",
				"rest", "graphql", "grpc", "microservice", "monolith",
				"architecture", "framework", "library", "algorithm",
				"docker", "kubernetes", "aws", "azure", "gcp",
				"frontend", "backend", "fullstack", "mobile", "web",
			},
			PerHit: 5,
			Max:    30,
		},
		{
			Name: "feature_specificity",
			Keywords: []string{
				"feature", "function", "component", "module", "class",
				"should", "must", "will", "can", "include", "support",
				"allow", "enable", "provide", "implement",
			},
			PerHit: 5,
			Max:    25,
		},
		{
			Name: "constraints",
			Keywords: []string{
				"requirement", "constraint", "must have", "need to",
				"should support", "compatible", "performance", "scalable",
				"secure", "accessible", "responsive",
			},
			PerHit: 5,
			Max:    15,
		},
		{
			Name: "concrete_details",
			Keywords: []string{
				"user", "admin", "dashboard", "page", "screen",
				"button", "form", "list", "table", "chart",
			},
			PerHit: 2,
			Max:    10,
		},
		{
			Name: "vague_language",
			Keywords: []string{
				"fun", "good", "nice", "cool", "interesting", "awesome",
				"something", "thing", "stuff", "maybe", "kind of", "sort of",
			},
			PerHit: -3,
			Max:    10,
		},
	}
}

// FactorScore is the contribution of one factor.
type FactorScore struct {
	Name   string `json:"name"`
	Hits   int    `json:"hits"`
	Points int    `json:"points"`
}

// Assessment is the specificity analysis of a prompt.
type Assessment struct {
	Score          int           `json:"specificity_score"`
	Interpretation string        `json:"score_interpretation"`
	Factors        []FactorScore `json:"factors"`
	IdeaSteps      int           `json:"idea_steps_needed"`
	SystemSteps    int           `json:"system_steps_needed"`
	TotalSteps     int           `json:"total_steps"`
}

// lengthPoints rewards detail: one point per word up to ten, half a point
// per word up to thirty, and twenty beyond that.
func lengthPoints(words int) int {
	switch {
	case words < 10:
		return words
	case words < 30:
		return 10 + (words-10)/2
	default:
		return 20
	}
}

// Assess scores a prompt from 0 to 100 and derives the number of steps.
func Assess(prompt string) Assessment {
	lower := strings.ToLower(prompt)
	words := len(strings.Fields(prompt))

	scores := []FactorScore{{Name: "length", Hits: words, Points: lengthPoints(words)}}
	total := scores[0].Points
	for _, f := range Factors() {
		hits := 0
		for _, kw := range f.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		pts := hits * f.PerHit
		if pts > f.Max {
			pts = f.Max
		}
		if pts < -f.Max {
			pts = -f.Max
		}
		scores = append(scores, FactorScore{Name: f.Name, Hits: hits, Points: pts})
		total += pts
	}
	total = max(0, min(100, total))

	idea, system := StepsNeeded(total)
	return Assessment{
		Score:          total,
		Interpretation: Interpret(total),
		Factors:        scores,
		IdeaSteps:      idea,
		SystemSteps:    system,
		TotalSteps:     idea + system,
	}
}

// StepsNeeded maps a score to the number of idea and system steps. Vaguer
// prompts get more steps.
func StepsNeeded(score int) (idea, system int) {
	switch {
	case score < 10:
		return 6, 5
	case score < 20:
		return 5, 4
	case score < 35:
		return 4, 3
	case score < 50:
		return 3, 3
	case score < 65:
		return 2, 2
	case score < 80:
		return 1, 2
	default:
		return 0, 2
	}
}

// Interpret describes a score in words.
func Interpret(score int) string {
	switch {
	case score < 20:
		return "Very vague - needs significant refinement"
	case score < 40:
		return "Vague - needs clarification"
	case score < 60:
		return "Moderate - some refinement needed"
	case score < 80:
		return "Specific - minimal refinement needed"
	default:
		return "Very specific - ready for implementation"
	}
}
