package responses

import (
	"time"

	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/domain/summary"
)

// KeyResponse is a key record with its secret masked.
type KeyResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MaskedKey  string    `json:"masked_key"`
	UsageLimit *int64    `json:"usage_limit"`
	UsageCount int64     `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BuildKeyResponse creates a response from a domain key.
func BuildKeyResponse(key *apikey.APIKey) *KeyResponse {
	return &KeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		MaskedKey:  key.Masked,
		UsageLimit: key.UsageLimit,
		UsageCount: key.UsageCount,
		CreatedAt:  key.CreatedAt,
		UpdatedAt:  key.UpdatedAt,
	}
}

// BuildKeyListResponse creates responses for a list of keys.
func BuildKeyListResponse(keys []apikey.APIKey) []KeyResponse {
	out := make([]KeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, *BuildKeyResponse(&keys[i]))
	}
	return out
}

// CreatedKeyResponse carries the plaintext secret. It is returned exactly
// once, from key creation.
type CreatedKeyResponse struct {
	KeyResponse
	Secret string `json:"key"`
}

// BuildCreatedKeyResponse creates the one-time creation response.
func BuildCreatedKeyResponse(key *apikey.APIKey, secret string) *CreatedKeyResponse {
	return &CreatedKeyResponse{
		KeyResponse: *BuildKeyResponse(key),
		Secret:      secret,
	}
}

// ValidationResponse reports the outcome of a secret check.
type ValidationResponse struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	KeyID      string `json:"key_id,omitempty"`
	UsageCount int64  `json:"usage_count,omitempty"`
	UsageLimit *int64 `json:"usage_limit,omitempty"`
}

// BuildValidationResponse creates a response from a validation result.
func BuildValidationResponse(result *apikey.ValidationResult) *ValidationResponse {
	resp := &ValidationResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
	}
	if result.Key != nil {
		resp.KeyID = result.Key.ID
		resp.UsageCount = result.Key.UsageCount
		resp.UsageLimit = result.Key.UsageLimit
	}
	return resp
}

// UsageResponse reports a key's counter after an accounting operation.
type UsageResponse struct {
	KeyID      string `json:"key_id"`
	UsageCount int64  `json:"usage_count"`
	UsageLimit *int64 `json:"usage_limit"`
	Remaining  *int64 `json:"remaining,omitempty"`
}

// BuildUsageResponse creates a response from a domain key.
func BuildUsageResponse(key *apikey.APIKey) *UsageResponse {
	resp := &UsageResponse{
		KeyID:      key.ID,
		UsageCount: key.UsageCount,
		UsageLimit: key.UsageLimit,
	}
	if key.UsageLimit != nil {
		remaining := key.Remaining()
		resp.Remaining = &remaining
	}
	return resp
}

// SummaryResponse is a finished document summary with token accounting.
type SummaryResponse struct {
	URL              string   `json:"url"`
	Model            string   `json:"model"`
	Summary          string   `json:"summary"`
	KeyPoints        []string `json:"key_points"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	EstimatedCostUSD string   `json:"estimated_cost_usd"`
	UsageCount       int64    `json:"usage_count"`
	UsageLimit       *int64   `json:"usage_limit"`
}

// BuildSummaryResponse creates a response from a summary result and the
// key state after accounting.
func BuildSummaryResponse(result *summary.Result, key *apikey.APIKey) *SummaryResponse {
	resp := &SummaryResponse{
		URL:              result.URL,
		Model:            result.Model,
		Summary:          result.Summary,
		KeyPoints:        result.KeyPoints,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		EstimatedCostUSD: result.EstimatedCostUSD.String(),
	}
	if resp.KeyPoints == nil {
		resp.KeyPoints = []string{}
	}
	if key != nil {
		resp.UsageCount = key.UsageCount
		resp.UsageLimit = key.UsageLimit
	}
	return resp
}
