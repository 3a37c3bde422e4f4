package summaryhandler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/domain/summary"
	"skim-server/keys-api/internal/infrastructure/metrics"
	"skim-server/keys-api/internal/interfaces/httpserver/middlewares"
	"skim-server/keys-api/internal/interfaces/httpserver/requests"
	"skim-server/keys-api/internal/interfaces/httpserver/responses"
	"skim-server/keys-api/internal/utils/platformerrors"
)

// Handler serves document summarization, metered through API keys.
type Handler struct {
	keys      *apikey.Service
	summaries *summary.Service
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewHandler constructs a new summary handler.
func NewHandler(keys *apikey.Service, summaries *summary.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		keys:      keys,
		summaries: summaries,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "summary_handler").Logger(),
	}
}

// Summarize godoc
// @Summary      Summarize a document
// @Description  Validates the API key secret, summarizes the document at the URL, then charges one usage unit against the key.
// @Tags         summaries
// @Accept       json
// @Produce      json
// @Param        request  body      requests.SummarizeRequest  true  "Summarization job"
// @Success      200      {object}  responses.SummaryResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      429      {object}  responses.ErrorResponse
// @Failure      502      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/summaries [post]
func (h *Handler) Summarize(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "0a1b2c3d-4e5f-4a6b-8c7d-8e9f0a1b2101")
		return
	}

	var req requests.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "1b2c3d4e-5f6a-4b7c-9d8e-9f0a1b2c3102")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "2c3d4e5f-6a7b-4c8d-8e9f-0a1b2c3d4103")
		return
	}

	ctx := c.Request.Context()

	result, err := h.keys.Validate(ctx, req.Secret, owner.ID)
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) || errors.Is(err, apikey.ErrInvalidSecret) {
			responses.HandleNewError(c, platformerrors.ErrorTypeNotFound, "api key not found", "3d4e5f6a-7b8c-4d9e-9f0a-1b2c3d4e5104")
			return
		}
		responses.HandleError(c, err, "failed to validate api key")
		return
	}
	if !result.Valid {
		key := result.Key
		responses.HandleQuotaError(c, "usage limit exceeded", "4e5f6a7b-8c9d-4e0f-8a1b-2c3d4e5f6105", key.UsageCount, *key.UsageLimit, 0)
		return
	}

	start := time.Now()
	summaryResult, err := h.summaries.Summarize(ctx, summary.Request{
		URL:       req.URL,
		Model:     req.Model,
		MaxPoints: req.MaxPoints,
	})
	if err != nil {
		h.handleSummaryError(c, err)
		return
	}

	// Charge the key only after a successful summary. The conditional
	// update can still lose to a concurrent caller, in which case the
	// work is done but the quota answer stands.
	key, err := h.keys.IncrementUsage(ctx, owner.ID, result.Key.ID, 1)
	if err != nil {
		var quota *apikey.QuotaExceededError
		if errors.As(err, &quota) {
			metrics.RecordSummary(summaryResult.Model, "quota_exceeded", time.Since(start).Seconds())
			responses.HandleQuotaError(c, "usage limit exceeded", "5f6a7b8c-9d0e-4f1a-9b2c-3d4e5f6a7106", quota.Current, quota.Limit, quota.Remaining)
			return
		}
		responses.HandleError(c, err, "failed to record usage")
		return
	}

	metrics.RecordSummary(summaryResult.Model, "ok", time.Since(start).Seconds())
	c.JSON(http.StatusOK, responses.BuildSummaryResponse(summaryResult, key))
}

func (h *Handler) handleSummaryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, summary.ErrInvalidURL):
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid document url", "6a7b8c9d-0e1f-4a2b-8c3d-4e5f6a7b8107")
	case errors.Is(err, summary.ErrEmptyDocument):
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "document has no extractable text", "7b8c9d0e-1f2a-4b3c-9d4e-5f6a7b8c9108")
	case errors.Is(err, summary.ErrBackend):
		h.logger.Error().Err(err).Msg("summarization backend failed")
		responses.HandleNewError(c, platformerrors.ErrorTypeExternal, "summarization backend failed", "8c9d0e1f-2a3b-4c4d-8e5f-6a7b8c9d0109")
	default:
		h.logger.Error().Err(err).Msg("failed to summarize document")
		responses.HandleError(c, err, "failed to summarize document")
	}
}
