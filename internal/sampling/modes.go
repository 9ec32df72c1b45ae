package sampling

import (
	"fmt"
	"strconv"
	"strings"
)

// --- Mode enum ---

// Mode selects the instruction template and the probability ceiling.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeImprove  Mode = "improve"
	ModeExplore  Mode = "explore"
	ModeBalanced Mode = "balanced"
)

type modeSpec struct {
	maxProbability float64
	description    string
	template       string
}

var modes = map[Mode]modeSpec{
	ModeGenerate: {
		maxProbability: 0.10,
		description:    "Generate new creative responses from scratch",
		template: `Generate {num_samples} diverse and creative responses to the following query.

**Requirements:**
- Each response must be substantially different from others
- Include a numeric probability score (must be <= {max_prob})
- Sample from the tails of the distribution for maximum creativity
- Focus on unexpected, creative, and original answers

**Query:** {query}

**Format:** Return each response as a JSON object with 'text' and 'probability' fields.`,
	},
	ModeImprove: {
		maxProbability: 0.10,
		description:    "Generate creative improvements to existing content",
		template: `Generate {num_samples} diverse improvement suggestions for the content below.

**Requirements:**
- Each suggestion must offer a unique perspective or approach
- Include a numeric probability score (must be <= {max_prob})
- Sample from the tails of the distribution for creative variations
- Focus on substantial improvements, not minor tweaks

**Original Query:** {query}

**Content to Improve:**
{input_content}

**Format:** Return each improvement as a JSON object with 'text' and 'probability' fields.`,
	},
	ModeExplore: {
		maxProbability: 0.05,
		description:    "Maximum creativity mode with extreme tail sampling",
		template: `Generate {num_samples} highly creative and unconventional responses.

**Requirements:**
- Prioritize originality and unconventional thinking
- Include a numeric probability score (must be <= {max_prob})
- Sample from the extreme tails of the distribution
- Push boundaries while remaining relevant

**Query:** {query}

**Format:** Return each response as a JSON object with 'text' and 'probability' fields.`,
	},
	ModeBalanced: {
		maxProbability: 0.15,
		description:    "Balanced mode mixing creativity with reliability",
		template: `Generate {num_samples} responses balancing creativity and reliability.

**Requirements:**
- Mix creative and practical approaches
- Include a numeric probability score (must be <= {max_prob})
- Ensure variety while maintaining usefulness
- Consider both conventional and novel perspectives

**Query:** {query}

**Format:** Return each response as a JSON object with 'text' and 'probability' fields.`,
	},
}

// ValidateMode returns an error if the mode is not recognized.
func ValidateMode(m Mode) error {
	if _, ok := modes[m]; !ok {
		return fmt.Errorf("invalid mode %q: must be one of: generate, improve, explore, balanced", m)
	}
	return nil
}

// MaxProbability is the ceiling a mode allows.
func (m Mode) MaxProbability() float64 { return modes[m].maxProbability }

// Description is a one-line summary of the mode.
func (m Mode) Description() string { return modes[m].description }

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

// instructions fills the mode template for the calling model.
func instructions(p *Payload) string {
	return strings.NewReplacer(
		"{num_samples}", strconv.Itoa(p.NumSamples),
		"{max_prob}", formatProb(p.MaxProbability),
		"{query}", p.Query,
		"{input_content}", p.InputContent,
	).Replace(modes[p.Mode].template)
}

// --- Strategy enum ---

// Strategy decides which submitted sample is returned.
type Strategy string

const (
	StrategyUniform  Strategy = "uniform"
	StrategyWeighted Strategy = "weighted"
	StrategyLowest   Strategy = "lowest"
	StrategyHighest  Strategy = "highest"
)

var validStrategies = map[Strategy]bool{
	StrategyUniform:  true,
	StrategyWeighted: true,
	StrategyLowest:   true,
	StrategyHighest:  true,
}

// ValidateStrategy returns an error if the strategy is not recognized.
func ValidateStrategy(s Strategy) error {
	if !validStrategies[s] {
		return fmt.Errorf("invalid selection strategy %q: must be one of: uniform, weighted, lowest, highest", s)
	}
	return nil
}
