package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness reports that the process is up.
func (h *Handlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports whether the store is reachable and the chain is
// online. A degraded chain still serves cached reads, so it reports
// 200 with the flag rather than failing readiness.
func (h *Handlers) Readiness(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"store":  "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"online": h.connectivity.IsOnline(),
	})
}
