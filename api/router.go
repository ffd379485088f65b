// Package api wires the HTTP routes.
package api

import (
	"net/http"

	"T2V/controller"
	"T2V/pkg/sse"

	"github.com/gin-gonic/gin"
)

func NewRouter(videos *controller.VideoController, hub *sse.Hub) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/videos", videos.SubmitVideo)
	r.GET("/api/videos/:id", videos.GetVideo)
	r.GET("/events", sse.ServeSSE(hub))

	return r
}
