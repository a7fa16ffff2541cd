package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBalances returns the current balance snapshot. The owner is
// registered for background refresh on first read.
func (h *Handlers) GetBalances(c *gin.Context) {
	owner := h.owner()
	h.tracker.Track(c.Request.Context(), owner)

	snap, err := h.balances.Snapshot(c.Request.Context(), owner)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot": snap,
		"total":    snap.TotalDisplay(),
		"online":   h.connectivity.IsOnline(),
	})
}

// RefreshBalances forces a fresh fetch from every source.
func (h *Handlers) RefreshBalances(c *gin.Context) {
	snap, err := h.balances.Refresh(c.Request.Context(), h.owner())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot": snap,
		"total":    snap.TotalDisplay(),
	})
}

// GetPools returns pool rates and capacity with their fetch time.
func (h *Handlers) GetPools(c *gin.Context) {
	data, err := h.balances.PoolData(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pools":      data.Pools,
		"fetched_at": data.FetchedAt,
	})
}
