package v1

import (
	"github.com/gin-gonic/gin"

	"skim-server/keys-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.GET("/keys", r.handlers.Keys.List)
	group.POST("/keys", r.handlers.Keys.Create)
	// Fixed segment wins over :id in gin's tree, so /keys/validate is safe.
	group.POST("/keys/validate", r.handlers.Keys.Validate)
	group.GET("/keys/:id", r.handlers.Keys.Get)
	group.PATCH("/keys/:id", r.handlers.Keys.Update)
	group.DELETE("/keys/:id", r.handlers.Keys.Delete)
	group.POST("/keys/:id/usage", r.handlers.Keys.IncrementUsage)
	group.DELETE("/keys/:id/usage", r.handlers.Keys.ResetUsage)

	group.POST("/summaries", r.handlers.Summaries.Summarize)
}
