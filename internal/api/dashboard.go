package api

import (
	"net/http"

	"jobsphere/internal/stats"

	"github.com/gin-gonic/gin"
)

// dashboard 每次读取都会重算并保存统计快照。
func (h *handler) dashboard(c *gin.Context) {
	view, err := h.Dashboards.Dashboard(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) summary(c *gin.Context) {
	sum, err := h.Dashboards.Summary(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handler) performance(c *gin.Context) {
	perf, err := h.Dashboards.Performance(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

func (h *handler) timeline(c *gin.Context) {
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	tl, err := h.Dashboards.Timeline(c.Request.Context(), viewerID(c), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}

func (h *handler) activity(c *gin.Context) {
	items, err := h.Dashboards.RecentActivity(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recent_activity": items})
}

func (h *handler) updatePreferences(c *gin.Context) {
	var in stats.PreferencesUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	d, err := h.Dashboards.UpdatePreferences(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) resetDashboard(c *gin.Context) {
	d, err := h.Dashboards.Reset(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
