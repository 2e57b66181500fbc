package optimizer

import (
	"html"
	"math/rand"
	"regexp"
)

// reasoningBuckets are the ten equal bins a uniform [0,1) draw quantizes
// into, spanning an arm's [ThinkingMin, ThinkingMax] reasoning-effort range.
var reasoningBuckets = []string{
	"", "", "minimal", "minimal", "low", "low", "medium", "medium", "high", "high",
}

// Materialize draws one set of concrete parameter values from an arm's
// range bundle and renders its system prompt template. rng may be nil for
// a non-deterministic draw.
func Materialize(arm *Arm, variables map[string]string, allowList []string, rng *rand.Rand) MaterializedParams {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	p := arm.Params
	return MaterializedParams{
		ModelID:          p.ModelID,
		SystemPrompt:     RenderTemplate(p.SystemPromptTemplate, variables, allowList),
		Temperature:      uniform(rng, p.TemperatureMin, p.TemperatureMax),
		TopP:             uniform(rng, p.TopPMin, p.TopPMax),
		TopK:             uniform(rng, p.TopKMin, p.TopKMax),
		FrequencyPenalty: uniform(rng, p.FrequencyPenaltyMin, p.FrequencyPenaltyMax),
		PresencePenalty:  uniform(rng, p.PresencePenaltyMin, p.PresencePenaltyMax),
		ReasoningEffort:  materializeReasoningEffort(p.ThinkingMin, p.ThinkingMax, rng),
	}
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return clamp(min+rng.Float64()*(max-min), min, max)
}

func materializeReasoningEffort(min, max float64, rng *rand.Rand) string {
	draw := uniform(rng, min, max)
	span := max - min
	if span <= 0 {
		return reasoningBuckets[0]
	}
	bucket := int((draw - min) / span * float64(len(reasoningBuckets)))
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= len(reasoningBuckets) {
		bucket = len(reasoningBuckets) - 1
	}
	return reasoningBuckets[bucket]
}

var templateVarPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderTemplate performs simple {{ var }} Mustache-lite substitution:
// known variables are HTML-escaped and substituted, unknown variables are
// left literal. If allowList is non-nil, only variables named in it are
// substituted; every other known variable is also left literal.
func RenderTemplate(tmpl string, variables map[string]string, allowList []string) string {
	allowed := map[string]bool(nil)
	if allowList != nil {
		allowed = make(map[string]bool, len(allowList))
		for _, name := range allowList {
			allowed[name] = true
		}
	}

	return templateVarPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := templateVarPattern.FindStringSubmatch(match)[1]

		if allowed != nil && !allowed[name] {
			return match
		}

		value, ok := variables[name]
		if !ok {
			return match
		}

		return html.EscapeString(value)
	})
}
