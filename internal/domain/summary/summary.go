// Package summary produces short summaries of remote documents through an
// LLM completion backend.
package summary

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Request describes one summarization job.
type Request struct {
	URL       string
	Model     string
	MaxPoints int
}

// Result is a finished summary with its token accounting.
type Result struct {
	URL              string
	Model            string
	Summary          string
	KeyPoints        []string
	PromptTokens     int
	CompletionTokens int
	EstimatedCostUSD decimal.Decimal
}

// Completion is raw output from the model backend.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Extractor fetches a remote document and returns its plain text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Completer runs one completion against the configured model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (*Completion, error)
}

var (
	ErrInvalidURL    = errors.New("invalid url: must be absolute http or https")
	ErrEmptyDocument = errors.New("document has no extractable text")
	ErrBackend       = errors.New("completion backend failed")
)

// Pricing in USD per token, keyed by model name.
var modelPricing = map[string]struct {
	PromptPrice     decimal.Decimal
	CompletionPrice decimal.Decimal
}{
	"gpt-4o":        {decimal.NewFromFloat(0.000005), decimal.NewFromFloat(0.000015)},
	"gpt-4o-mini":   {decimal.NewFromFloat(0.00000015), decimal.NewFromFloat(0.0000006)},
	"gpt-4-turbo":   {decimal.NewFromFloat(0.00001), decimal.NewFromFloat(0.00003)},
	"gpt-3.5-turbo": {decimal.NewFromFloat(0.0000005), decimal.NewFromFloat(0.0000015)},
}

// EstimateCost returns the estimated USD cost of one completion. Unknown
// models fall back to a conservative default rate.
func EstimateCost(model string, promptTokens, completionTokens int) decimal.Decimal {
	pricing, exists := modelPricing[model]
	if !exists {
		pricing = struct {
			PromptPrice     decimal.Decimal
			CompletionPrice decimal.Decimal
		}{
			PromptPrice:     decimal.NewFromFloat(0.000003),
			CompletionPrice: decimal.NewFromFloat(0.000006),
		}
	}

	promptCost := pricing.PromptPrice.Mul(decimal.NewFromInt(int64(promptTokens)))
	completionCost := pricing.CompletionPrice.Mul(decimal.NewFromInt(int64(completionTokens)))

	return promptCost.Add(completionCost)
}
