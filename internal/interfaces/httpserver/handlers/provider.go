package handlers

import (
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/domain/summary"
	"skim-server/keys-api/internal/interfaces/httpserver/handlers/apikeyhandler"
	"skim-server/keys-api/internal/interfaces/httpserver/handlers/summaryhandler"
)

// Provider wires HTTP handlers.
type Provider struct {
	Keys      *apikeyhandler.Handler
	Summaries *summaryhandler.Handler
}

func NewProvider(keys *apikey.Service, summaries *summary.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Keys:      apikeyhandler.NewHandler(keys, log),
		Summaries: summaryhandler.NewHandler(keys, summaries, log),
	}
}
