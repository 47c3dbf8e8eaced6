package api

import (
	"net/http"

	"jobsphere/internal/bookmark"
	"jobsphere/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

func (h *handler) apply(c *gin.Context) {
	var in lifecycle.ApplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	in.ApplicantID = viewerID(c)
	app, err := h.Applications.Apply(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *handler) myApplications(c *gin.Context) {
	var in lifecycle.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	res, err := h.Applications.ListMine(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) jobApplications(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in lifecycle.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	res, err := h.Applications.ListForJob(c.Request.Context(), viewerID(c), jobID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) getApplication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handler) updateApplication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in lifecycle.ContentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	app, err := h.Applications.UpdateContent(c.Request.Context(), id, viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handler) withdraw(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.Withdraw(c.Request.Context(), id, viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handler) transition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in lifecycle.TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	app, err := h.Applications.Transition(c.Request.Context(), id, viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handler) listSaved(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	res, err := h.SavedJobs.List(c.Request.Context(), viewerID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// saveJob 新建收藏返回 201，已收藏时返回 200 与原记录。
func (h *handler) saveJob(c *gin.Context) {
	var req bookmark.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	sj, created, err := h.SavedJobs.Save(c.Request.Context(), viewerID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"saved_job": sj, "created": created})
}

func (h *handler) updateSaved(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	sj, err := h.SavedJobs.UpdateNotes(c.Request.Context(), viewerID(c), id, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sj)
}

func (h *handler) deleteSaved(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.SavedJobs.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
