// Package llm provides options pattern for LLM generation parameters.
//
// Options are set at initialization (from config.yaml) and applied by every
// provider adapter when it builds the backend request. Request.Options
// override them for a single request.
package llm

// Значения генерации по умолчанию.
const (
	DefaultTemperature     = 0.1
	DefaultMaxTokens       = 2048
	DefaultSafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
)

// GenerateOptions holds parameters for LLM generation.
type GenerateOptions struct {
	// Model is the model identifier (e.g., "gemini-2.0-flash", "glm-4.6")
	Model string

	// Temperature controls randomness in responses (0.0 = deterministic, 1.0 = random)
	Temperature float64

	// MaxTokens limits the response length
	MaxTokens int

	// SafetyThreshold is applied to every harm category the backend supports.
	// Ignored by backends without configurable safety settings.
	SafetyThreshold string
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// NewGenerateOptions returns defaults with opts applied in order.
func NewGenerateOptions(opts ...GenerateOption) GenerateOptions {
	o := GenerateOptions{
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		SafetyThreshold: DefaultSafetyThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Apply returns a copy of o with opts applied in order.
func (o GenerateOptions) Apply(opts ...GenerateOption) GenerateOptions {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithModel sets the model for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the temperature for generation.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation.
// Zero keeps the current value.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		if tokens > 0 {
			o.MaxTokens = tokens
		}
	}
}

// WithSafetyThreshold sets the block threshold for all harm categories.
// Empty string keeps the current value.
func WithSafetyThreshold(threshold string) GenerateOption {
	return func(o *GenerateOptions) {
		if threshold != "" {
			o.SafetyThreshold = threshold
		}
	}
}
