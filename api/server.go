// Package api exposes render runs and plan generation over HTTP.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"slidestudio/planner"
	"slidestudio/types"
)

// RenderService runs render requests. *jobs.Runner implements it.
type RenderService interface {
	Submit(req types.RenderRequest) (string, error)
	Retry(runID string) error
	Status(ctx context.Context, runID string) (types.RunStatus, error)
	List(ctx context.Context) ([]string, error)
	VideoPath(ctx context.Context, runID string) (string, error)
}

// NewRouter constructs a Gin engine with registered routes.
// A nil plans disables plan generation.
func NewRouter(renders RenderService, plans planner.Planner) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterVoiceRoutes(r)
	RegisterPlanRoutes(r, plans)
	RegisterRenderRoutes(r, renders)
	return r
}
