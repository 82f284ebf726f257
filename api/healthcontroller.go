package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidestudio/narration"
)

// RegisterHealthRoutes registers health check endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", handleHealth)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterVoiceRoutes lists the narrator presets.
func RegisterVoiceRoutes(r *gin.Engine) {
	r.GET("/api/voices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"default": narration.VoiceNanami,
			"voices":  narration.Voices,
		})
	})
}
