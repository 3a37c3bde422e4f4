package summary

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const (
	defaultMaxPoints = 5
	maxMaxPoints     = 10

	summaryHeading   = "SUMMARY:"
	keyPointsHeading = "KEY POINTS:"
)

// Service fetches, prompts, and parses one document summary per call.
type Service struct {
	extractor    Extractor
	completer    Completer
	defaultModel string
	logger       zerolog.Logger
}

// NewService constructs a Service with required dependencies.
func NewService(extractor Extractor, completer Completer, defaultModel string, logger zerolog.Logger) *Service {
	return &Service{
		extractor:    extractor,
		completer:    completer,
		defaultModel: defaultModel,
		logger:       logger.With().Str("component", "summary_service").Logger(),
	}
}

// Summarize fetches the document at req.URL and produces a structured summary.
func (s *Service) Summarize(ctx context.Context, req Request) (*Result, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, ErrInvalidURL
	}

	maxPoints := req.MaxPoints
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	if maxPoints > maxMaxPoints {
		maxPoints = maxMaxPoints
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	text, err := s.extractor.Extract(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	completion, err := s.completer.Complete(ctx, model, buildPrompt(text, maxPoints))
	if err != nil {
		s.logger.Error().Err(err).Str("model", model).Msg("completion failed")
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	summaryText, keyPoints := parseCompletion(completion.Content, maxPoints)

	return &Result{
		URL:              req.URL,
		Model:            model,
		Summary:          summaryText,
		KeyPoints:        keyPoints,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		EstimatedCostUSD: EstimateCost(model, completion.PromptTokens, completion.CompletionTokens),
	}, nil
}

func buildPrompt(text string, maxPoints int) string {
	var b strings.Builder
	b.WriteString("Summarize the document below.\n")
	b.WriteString("Respond with exactly two sections:\n")
	b.WriteString(summaryHeading + " a single paragraph of at most three sentences.\n")
	fmt.Fprintf(&b, "%s at most %d bullet points, one per line, each starting with \"- \".\n\n", keyPointsHeading, maxPoints)
	b.WriteString("DOCUMENT:\n")
	b.WriteString(text)
	return b.String()
}

// parseCompletion splits the model output into the paragraph and its bullet
// points. Output that ignores the section format is kept whole as the
// summary with no key points.
func parseCompletion(content string, maxPoints int) (string, []string) {
	idx := strings.Index(content, keyPointsHeading)
	if idx < 0 {
		return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), summaryHeading)), nil
	}

	summaryPart := content[:idx]
	summaryPart = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summaryPart), summaryHeading))

	var points []string
	for _, line := range strings.Split(content[idx+len(keyPointsHeading):], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, line)
		if len(points) == maxPoints {
			break
		}
	}

	return summaryPart, points
}
