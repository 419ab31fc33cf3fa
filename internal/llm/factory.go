package llm

import "fmt"

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Options selects and configures a back-end.
type Options struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// New builds the Completer named by opts.Provider. An empty provider means openai.
func New(opts Options) (Completer, error) {
	switch opts.Provider {
	case "", "openai":
		return NewOpenAI(opts)
	case "openrouter":
		if opts.BaseURL == "" {
			opts.BaseURL = openRouterBaseURL
		}
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, opts.Provider)
	}
}
