package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Clinic Backend API Running"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.StartedAt).Round(time.Second).String(),
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "Not found")
}
