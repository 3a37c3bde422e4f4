// Package webcontent fetches remote documents and reduces them to plain
// text for prompting.
package webcontent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"skim-server/keys-api/internal/config"
	"skim-server/keys-api/internal/domain/summary"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

type Fetcher struct {
	client   *resty.Client
	maxBytes int64
	logger   zerolog.Logger
}

var _ summary.Extractor = (*Fetcher)(nil)

// NewFetcher builds a document fetcher with the configured timeout and
// response size cap.
func NewFetcher(cfg *config.Config, logger zerolog.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.RemoteFetchTimeout).
		SetHeader("User-Agent", cfg.ServiceNamespace+"-"+cfg.ServiceName+"/"+config.Version)

	return &Fetcher{
		client:   client,
		maxBytes: cfg.MaxDocumentBytes,
		logger:   logger.With().Str("component", "webcontent_fetcher").Logger(),
	}
}

// Extract downloads the document and strips markup, leaving readable text.
func (f *Fetcher) Extract(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", url).Msg("document fetch failed")
		return "", fmt.Errorf("fetch document: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch document: upstream returned %d", resp.StatusCode())
	}

	body := resp.Bytes()
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		body = body[:f.maxBytes]
	}

	return StripMarkup(string(body)), nil
}

// StripMarkup removes script and style blocks, then all remaining tags,
// and collapses the leftover whitespace.
func StripMarkup(s string) string {
	s = scriptRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = spaceRe.ReplaceAllString(s, " ")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
