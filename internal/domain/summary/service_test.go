package summary_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"skim-server/keys-api/internal/domain/summary"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

type fakeCompleter struct {
	content    string
	err        error
	lastPrompt string
	lastModel  string
}

func (f *fakeCompleter) Complete(ctx context.Context, model, prompt string) (*summary.Completion, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &summary.Completion{Content: f.content, PromptTokens: 120, CompletionTokens: 40}, nil
}

func newTestService(extractor summary.Extractor, completer summary.Completer) *summary.Service {
	return summary.NewService(extractor, completer, "gpt-4o-mini", zerolog.Nop())
}

func TestSummarize(t *testing.T) {
	completer := &fakeCompleter{content: "SUMMARY: A short overview of the document.\nKEY POINTS:\n- first point\n- second point\n"}
	svc := newTestService(&fakeExtractor{text: "some document body"}, completer)

	result, err := svc.Summarize(context.Background(), summary.Request{URL: "https://example.com/doc"})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if result.Summary != "A short overview of the document." {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.KeyPoints) != 2 || result.KeyPoints[0] != "first point" {
		t.Errorf("key points = %v", result.KeyPoints)
	}
	if result.Model != "gpt-4o-mini" || completer.lastModel != "gpt-4o-mini" {
		t.Errorf("model = %q, completer saw %q", result.Model, completer.lastModel)
	}
	if !strings.Contains(completer.lastPrompt, "some document body") {
		t.Error("prompt missing document text")
	}

	wantCost := summary.EstimateCost("gpt-4o-mini", 120, 40)
	if !result.EstimatedCostUSD.Equal(wantCost) {
		t.Errorf("cost = %s, want %s", result.EstimatedCostUSD, wantCost)
	}
}

func TestSummarizeValidation(t *testing.T) {
	svc := newTestService(&fakeExtractor{text: "body"}, &fakeCompleter{content: "SUMMARY: x"})

	tests := []struct {
		name string
		url  string
	}{
		{name: "relative url", url: "/doc"},
		{name: "unsupported scheme", url: "ftp://example.com/doc"},
		{name: "empty", url: ""},
		{name: "garbage", url: "://bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Summarize(context.Background(), summary.Request{URL: tt.url}); !errors.Is(err, summary.ErrInvalidURL) {
				t.Errorf("Summarize(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestSummarizeEmptyDocument(t *testing.T) {
	svc := newTestService(&fakeExtractor{text: "   \n\t  "}, &fakeCompleter{})

	if _, err := svc.Summarize(context.Background(), summary.Request{URL: "https://example.com"}); !errors.Is(err, summary.ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrEmptyDocument", err)
	}
}

func TestSummarizeBackendFailure(t *testing.T) {
	svc := newTestService(&fakeExtractor{text: "body"}, &fakeCompleter{err: errors.New("rate limited")})

	_, err := svc.Summarize(context.Background(), summary.Request{URL: "https://example.com"})
	if !errors.Is(err, summary.ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
}

func TestSummarizeUnstructuredOutput(t *testing.T) {
	svc := newTestService(&fakeExtractor{text: "body"}, &fakeCompleter{content: "Just a plain paragraph with no sections."})

	result, err := svc.Summarize(context.Background(), summary.Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if result.Summary != "Just a plain paragraph with no sections." {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.KeyPoints) != 0 {
		t.Errorf("key points = %v, want none", result.KeyPoints)
	}
}

func TestSummarizeCapsKeyPoints(t *testing.T) {
	var b strings.Builder
	b.WriteString("SUMMARY: overview\nKEY POINTS:\n")
	for i := 0; i < 15; i++ {
		b.WriteString("- point\n")
	}
	svc := newTestService(&fakeExtractor{text: "body"}, &fakeCompleter{content: b.String()})

	result, err := svc.Summarize(context.Background(), summary.Request{URL: "https://example.com", MaxPoints: 3})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(result.KeyPoints) != 3 {
		t.Errorf("key points = %d, want capped at 3", len(result.KeyPoints))
	}
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             decimal.Decimal
	}{
		{
			name:             "known model",
			model:            "gpt-4o-mini",
			promptTokens:     1000,
			completionTokens: 500,
			want:             decimal.NewFromFloat(0.00000015).Mul(decimal.NewFromInt(1000)).Add(decimal.NewFromFloat(0.0000006).Mul(decimal.NewFromInt(500))),
		},
		{
			name:             "unknown model falls back",
			model:            "mystery-model",
			promptTokens:     100,
			completionTokens: 100,
			want:             decimal.NewFromFloat(0.000003).Mul(decimal.NewFromInt(100)).Add(decimal.NewFromFloat(0.000006).Mul(decimal.NewFromInt(100))),
		},
		{
			name:  "zero tokens",
			model: "gpt-4o",
			want:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summary.EstimateCost(tt.model, tt.promptTokens, tt.completionTokens)
			if !got.Equal(tt.want) {
				t.Errorf("EstimateCost() = %s, want %s", got, tt.want)
			}
		})
	}
}
