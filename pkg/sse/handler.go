package sse

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServeSSE streams progress events for the job named by the job_id query
// parameter until the client disconnects.
func ServeSSE(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Query("job_id")
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required"})
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		ch := make(chan []byte, 16)
		h.Subscribe(ch, jobID)
		defer h.Unsubscribe(ch, jobID)

		fmt.Fprint(c.Writer, ": connected\n\n")
		flusher.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				fmt.Fprintf(c.Writer, "data: %s\n\n", msg)
				flusher.Flush()
			}
		}
	}
}
