package apikeyhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/infrastructure/metrics"
	"skim-server/keys-api/internal/interfaces/httpserver/middlewares"
	"skim-server/keys-api/internal/interfaces/httpserver/requests"
	"skim-server/keys-api/internal/interfaces/httpserver/responses"
	"skim-server/keys-api/internal/utils/platformerrors"
)

// Handler manages API key HTTP endpoints.
type Handler struct {
	service  *apikey.Service
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler constructs a new API key handler.
func NewHandler(service *apikey.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With().Str("component", "api_key_handler").Logger(),
	}
}

// Create godoc
// @Summary      Create API key
// @Description  Issues a new API key. The plaintext secret appears in this response only.
// @Tags         keys
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CreateKeyRequest  true  "Key parameters"
// @Success      201      {object}  responses.CreatedKeyResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys [post]
func (h *Handler) Create(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "c6b8266e-5d5e-4aa3-bb2e-8a0eb18e0a01")
		return
	}

	var req requests.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "b5b2137a-83af-4c8e-b2b1-44a260f1a002")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "8d2ad9bd-7be9-4cf4-a6d8-46af2a1f3003")
		return
	}

	key, secret, err := h.service.CreateKey(c.Request.Context(), owner.ID, req.Name, req.UsageLimit)
	if err != nil {
		h.handleKeyError(c, err, "failed to create api key")
		return
	}

	metrics.KeysIssuedTotal.Inc()
	c.JSON(http.StatusCreated, responses.BuildCreatedKeyResponse(key, secret))
}

// List godoc
// @Summary      List API keys
// @Description  Returns the caller's keys with masked secrets.
// @Tags         keys
// @Produce      json
// @Success      200  {object}  map[string][]responses.KeyResponse
// @Security     BearerAuth
// @Router       /v1/keys [get]
func (h *Handler) List(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "0e9b9d1f-4a3a-45cf-9f2a-75f5a9b2c004")
		return
	}

	items, err := h.service.ListKeys(c.Request.Context(), owner.ID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list api keys")
		responses.HandleError(c, err, "failed to list api keys")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": responses.BuildKeyListResponse(items)})
}

// Get godoc
// @Summary      Get API key
// @Tags         keys
// @Produce      json
// @Param        id   path      string  true  "Key id"
// @Success      200  {object}  responses.KeyResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "3e3cf1a9-94c3-4be2-9d53-2d0a6a1bb005")
		return
	}

	key, err := h.service.GetKey(c.Request.Context(), owner.ID, c.Param("id"))
	if err != nil {
		h.handleKeyError(c, err, "failed to fetch api key")
		return
	}

	c.JSON(http.StatusOK, responses.BuildKeyResponse(key))
}

// Update godoc
// @Summary      Update API key
// @Description  Renames a key or changes its usage limit. A usage_limit of 0 removes the limit.
// @Tags         keys
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Key id"
// @Param        request  body      requests.UpdateKeyRequest  true  "Fields to change"
// @Success      200      {object}  responses.KeyResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "5a7de0c2-61f3-4f1a-8760-6b7f8b2cc006")
		return
	}

	var req requests.UpdateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "2f3f6f6b-24d9-4a0a-94f7-1f0d2b7ee007")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "9fb3c6a4-6a7f-4f80-b9ad-3c6a5d9ff008")
		return
	}

	key, err := h.service.UpdateKey(c.Request.Context(), owner.ID, c.Param("id"), apikey.UpdateParams{
		Name:       req.Name,
		UsageLimit: req.UsageLimit,
	})
	if err != nil {
		h.handleKeyError(c, err, "failed to update api key")
		return
	}

	c.JSON(http.StatusOK, responses.BuildKeyResponse(key))
}

// Delete godoc
// @Summary      Delete API key
// @Tags         keys
// @Produce      json
// @Param        id   path      string  true  "Key id"
// @Success      200  {object}  responses.KeyResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "da0a1f7e-0d3b-45ae-8f0e-4a1f9cd0a009")
		return
	}

	key, err := h.service.DeleteKey(c.Request.Context(), owner.ID, c.Param("id"))
	if err != nil {
		h.handleKeyError(c, err, "failed to delete api key")
		return
	}

	c.JSON(http.StatusOK, responses.BuildKeyResponse(key))
}

// IncrementUsage godoc
// @Summary      Record key usage
// @Description  Atomically advances the usage counter; rejects the whole delta when it would pass the limit.
// @Tags         usage
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true   "Key id"
// @Param        request  body      requests.IncrementUsageRequest false  "Usage delta, defaults to 1"
// @Success      200      {object}  responses.UsageResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      429      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/{id}/usage [post]
func (h *Handler) IncrementUsage(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "4c5e8f7a-2b1d-4e6f-a3c9-8d7b6a5f4010")
		return
	}

	req := requests.IncrementUsageRequest{Delta: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9011")
			return
		}
		if req.Delta == 0 {
			req.Delta = 1
		}
	}

	key, err := h.service.IncrementUsage(c.Request.Context(), owner.ID, c.Param("id"), req.Delta)
	if err != nil {
		metrics.RecordUsageIncrement("rejected")
		h.handleKeyError(c, err, "failed to record usage")
		return
	}

	metrics.RecordUsageIncrement("ok")
	c.JSON(http.StatusOK, responses.BuildUsageResponse(key))
}

// ResetUsage godoc
// @Summary      Reset key usage
// @Description  Sets the usage counter back to zero. Idempotent.
// @Tags         usage
// @Produce      json
// @Param        id   path      string  true  "Key id"
// @Success      200  {object}  responses.UsageResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/{id}/usage [delete]
func (h *Handler) ResetUsage(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "b1c2d3e4-f5a6-4b7c-8d9e-0f1a2b3c4012")
		return
	}

	key, err := h.service.ResetUsage(c.Request.Context(), owner.ID, c.Param("id"))
	if err != nil {
		h.handleKeyError(c, err, "failed to reset usage")
		return
	}

	c.JSON(http.StatusOK, responses.BuildUsageResponse(key))
}

// Validate godoc
// @Summary      Validate API key secret
// @Description  Reports whether a secret identifies a live key with quota remaining. Never advances usage.
// @Tags         keys
// @Accept       json
// @Produce      json
// @Param        request  body      requests.ValidateKeyRequest  true  "Plaintext secret"
// @Success      200      {object}  responses.ValidationResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/keys/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "user context missing", "e5f6a7b8-c9d0-4e1f-a2b3-c4d5e6f7a013")
		return
	}

	var req requests.ValidateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request payload", "f7a8b9c0-d1e2-4f3a-b4c5-d6e7f8a9b014")
		return
	}

	result, err := h.service.Validate(c.Request.Context(), req.Secret, owner.ID)
	if err != nil {
		metrics.RecordValidation("error")
		h.handleKeyError(c, err, "failed to validate api key")
		return
	}

	if result.Valid {
		metrics.RecordValidation("valid")
	} else {
		metrics.RecordValidation(result.Reason)
	}
	c.JSON(http.StatusOK, responses.BuildValidationResponse(result))
}

// handleKeyError maps domain sentinels onto platform error types.
func (h *Handler) handleKeyError(c *gin.Context, err error, message string) {
	var quota *apikey.QuotaExceededError
	switch {
	case errors.Is(err, apikey.ErrNotFound):
		responses.HandleNewError(c, platformerrors.ErrorTypeNotFound, "api key not found", "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4015")
	case errors.Is(err, apikey.ErrNameTaken):
		responses.HandleNewError(c, platformerrors.ErrorTypeConflict, "key name already in use", "c3d4e5f6-a7b8-4c9d-8e0f-1a2b3c4d5016")
	case errors.Is(err, apikey.ErrKeyLimitReached):
		responses.HandleNewError(c, platformerrors.ErrorTypeConflict, "api key limit reached", "d4e5f6a7-b8c9-4d0e-9f1a-2b3c4d5e6017")
	case errors.As(err, &quota):
		responses.HandleQuotaError(c, "usage limit exceeded", "e5f6a7b8-c9d0-4e1f-8a2b-3c4d5e6f7018", quota.Current, quota.Limit, quota.Remaining)
	case errors.Is(err, apikey.ErrInvalidName),
		errors.Is(err, apikey.ErrInvalidLimit),
		errors.Is(err, apikey.ErrInvalidDelta),
		errors.Is(err, apikey.ErrInvalidSecret):
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "f6a7b8c9-d0e1-4f2a-9b3c-4d5e6f7a8019")
	default:
		h.logger.Error().Err(err).Msg(message)
		responses.HandleError(c, err, message)
	}
}
