package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"slidestudio/jobs"
	"slidestudio/types"
)

// RegisterRenderRoutes registers render run endpoints.
func RegisterRenderRoutes(r *gin.Engine, renders RenderService) {
	h := &renderHandlers{renders: renders}
	g := r.Group("/api/renders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.status)
	g.POST("/:id/retry", h.retry)
	g.GET("/:id/video", h.video)
}

type renderHandlers struct {
	renders RenderService
}

// create starts a run and returns 202 Accepted with its id.
func (h *renderHandlers) create(c *gin.Context) {
	var req types.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Plan.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan: " + err.Error()})
		return
	}

	runID, err := h.renders.Submit(req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"run_id": runID,
	})
}

func (h *renderHandlers) list(c *gin.Context) {
	ids, err := h.renders.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": ids})
}

func (h *renderHandlers) status(c *gin.Context) {
	status, err := h.renders.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// retry re-runs a finished run; completed slides are reused.
func (h *renderHandlers) retry(c *gin.Context) {
	runID := c.Param("id")
	if err := h.renders.Retry(runID); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "retrying",
		"run_id": runID,
	})
}

func (h *renderHandlers) video(c *gin.Context) {
	runID := c.Param("id")
	path, err := h.renders.VideoPath(c.Request.Context(), runID)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video file is no longer available"})
		return
	}
	c.FileAttachment(path, runID+".mp4")
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, jobs.ErrInvalidRunID):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrUnknownRun):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrRunActive), errors.Is(err, jobs.ErrNoVideo):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
