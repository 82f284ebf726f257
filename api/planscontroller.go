package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidestudio/planner"
	"slidestudio/types"
)

// PlanResponse carries a generated plan and where its text came from.
type PlanResponse struct {
	Source *planner.Source         `json:"source"`
	Plan   *types.PresentationPlan `json:"plan"`
}

// RegisterPlanRoutes registers plan generation endpoints.
func RegisterPlanRoutes(r *gin.Engine, plans planner.Planner) {
	r.POST("/api/plans", func(c *gin.Context) {
		handleCreatePlan(c, plans)
	})
}

// handleCreatePlan turns text, an article URL or a feed URL into a plan.
// The plan is returned, not rendered; clients post it to /api/renders.
func handleCreatePlan(c *gin.Context, plans planner.Planner) {
	if plans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "plan generation is not configured"})
		return
	}

	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := planner.ResolveSource(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to read source: " + err.Error()})
		return
	}
	req.Text = src.Text

	plan, err := plans.Plan(c.Request.Context(), req)
	if err != nil {
		log.Printf("❌ API Error: plan generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "plan generation failed: " + err.Error()})
		return
	}

	// the resolved text can be long; the plan is what clients need
	src.Text = ""
	c.JSON(http.StatusOK, PlanResponse{Source: src, Plan: plan})
}
