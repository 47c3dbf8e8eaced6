package api

import (
	"net/http"

	"jobsphere/internal/notifier"

	"github.com/gin-gonic/gin"
)

func (h *handler) listNotifications(c *gin.Context) {
	unread, ok := queryBool(c, "unread_only")
	if !ok {
		return
	}
	active, ok := queryBool(c, "active_only")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	res, err := h.Notifications.List(c.Request.Context(), viewerID(c), notifier.ListOptions{
		UnreadOnly: unread,
		ActiveOnly: active,
		Type:       c.Query("type"),
		Priority:   c.Query("priority"),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) notificationStats(c *gin.Context) {
	st, err := h.Notifications.Stats(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) getNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	markRead, ok := queryBool(c, "mark_read")
	if !ok {
		return
	}
	n, err := h.Notifications.Get(c.Request.Context(), viewerID(c), id, markRead)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *handler) markRead(c *gin.Context) {
	var req struct {
		IDs []uint `json:"notification_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	n, err := h.Notifications.MarkRead(c.Request.Context(), viewerID(c), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *handler) markAllRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *handler) dismissNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	n, err := h.Notifications.Dismiss(c.Request.Context(), viewerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *handler) deleteNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Notifications.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
