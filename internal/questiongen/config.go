package questiongen

import "time"

// SourceConfig controls the behavior of the LLMSource.
type SourceConfig struct {
	// Validators is the ordered list of validators to run on every
	// drafted question. They execute in order; the first failure
	// stops the pipeline.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64
}

// DefaultSourceConfig returns a SourceConfig with the standard validator
// chain and recommended defaults.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Validators: []Validator{
			&StructuralValidator{},
			&CodeValidator{},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// Config controls the Generator.
type Config struct {
	// Timeout bounds a single Source call. On expiry the fallback is used.
	Timeout time.Duration

	// RetrievalTimeout bounds the reference-material lookup.
	RetrievalTimeout time.Duration

	// TopK and Threshold are passed to the Retriever.
	TopK      int
	Threshold float64

	// ContextChars caps the reference material included in the prompt.
	ContextChars int

	// Seed makes topic and code choices reproducible. Zero seeds randomly.
	Seed uint64
}

// DefaultConfig returns the Generator defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          20 * time.Second,
		RetrievalTimeout: 5 * time.Second,
		TopK:             2,
		Threshold:        0.5,
		ContextChars:     800,
	}
}
