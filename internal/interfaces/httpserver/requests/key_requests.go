package requests

// CreateKeyRequest creates a new API key.
type CreateKeyRequest struct {
	Name       string `json:"name" binding:"required" validate:"required,min=2,max=50"`
	UsageLimit *int64 `json:"usage_limit,omitempty"`
}

// UpdateKeyRequest changes a key's name or usage limit. Absent fields are
// left untouched; usage_limit of 0 clears the limit.
type UpdateKeyRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	UsageLimit *int64  `json:"usage_limit,omitempty"`
}

// IncrementUsageRequest advances a key's usage counter. A missing or zero
// increment defaults to 1.
type IncrementUsageRequest struct {
	Delta int64 `json:"increment" validate:"omitempty,min=1,max=1000"`
}

// ValidateKeyRequest checks a plaintext secret.
type ValidateKeyRequest struct {
	Secret string `json:"key" binding:"required"`
}

// SummarizeRequest asks for a summary of a remote document, authorized by
// an API key secret.
type SummarizeRequest struct {
	Secret    string `json:"key" binding:"required"`
	URL       string `json:"url" binding:"required"`
	Model     string `json:"model,omitempty"`
	MaxPoints int    `json:"max_points,omitempty" validate:"omitempty,min=1,max=10"`
}
