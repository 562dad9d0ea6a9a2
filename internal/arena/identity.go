package arena

// GeneratorIdentity names the true source of a joke. It is hidden from the
// voter until after the vote is cast.
type GeneratorIdentity string

const (
	GeneratorOpenAI    GeneratorIdentity = "OpenAI"
	GeneratorAnthropic GeneratorIdentity = "Anthropic"
	GeneratorGemini    GeneratorIdentity = "Gemini"
	GeneratorLlama     GeneratorIdentity = "Llama"
)

// BatchSize is the number of jokes in every batch, one per known generator.
const BatchSize = 4

// knownGenerators lists every generator in canonical enumeration order. The
// order doubles as the deterministic leaderboard tie-break.
var knownGenerators = [BatchSize]GeneratorIdentity{
	GeneratorOpenAI,
	GeneratorAnthropic,
	GeneratorGemini,
	GeneratorLlama,
}

var generatorIcons = map[GeneratorIdentity]string{
	GeneratorOpenAI:    "🤖",
	GeneratorAnthropic: "🎭",
	GeneratorGemini:    "⭐",
	GeneratorLlama:     "🦙",
}

// KnownGenerators returns the fixed set of generator identities in canonical order.
func KnownGenerators() []GeneratorIdentity {
	generators := make([]GeneratorIdentity, BatchSize)
	copy(generators, knownGenerators[:])
	return generators
}

// Valid reports whether the identity belongs to the known set.
func (g GeneratorIdentity) Valid() bool {
	return g.canonicalRank() < len(knownGenerators)
}

// Icon returns the display icon associated with the generator.
func (g GeneratorIdentity) Icon() string {
	return generatorIcons[g]
}

// String returns the canonical generator name.
func (g GeneratorIdentity) String() string {
	return string(g)
}

func (g GeneratorIdentity) canonicalRank() int {
	for rank, known := range knownGenerators {
		if g == known {
			return rank
		}
	}
	return len(knownGenerators)
}
