package api

import (
	"net/http"
	"strconv"

	"jobsphere/internal/catalog"

	"github.com/gin-gonic/gin"
)

func (h *handler) listJobs(c *gin.Context) {
	var in catalog.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	res, err := h.Jobs.List(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Total", strconv.FormatInt(res.Total, 10))
	c.JSON(http.StatusOK, res)
}

func (h *handler) categories(c *gin.Context) {
	cats, err := h.Jobs.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *handler) myJobs(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	res, err := h.Jobs.MyJobs(c.Request.Context(), viewerID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) getJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	meta := catalog.ViewMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		Source:    c.Query("source"),
	}
	detail, err := h.Jobs.Get(c.Request.Context(), viewerID(c), id, meta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *handler) createJob(c *gin.Context) {
	var in catalog.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	job, err := h.Jobs.Create(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *handler) updateJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in catalog.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	job, err := h.Jobs.Update(c.Request.Context(), viewerID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *handler) deleteJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Jobs.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listLocations(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	locs, err := h.Locations.List(c.Request.Context(), c.Query("search"), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": locs})
}

// nearbyLocations 半径检索未启用，参数合法时总是返回空列表。
func (h *handler) nearbyLocations(c *gin.Context) {
	var q struct {
		Lat    float64 `form:"lat" binding:"min=-90,max=90"`
		Lon    float64 `form:"lon" binding:"min=-180,max=180"`
		Radius float64 `form:"radius" binding:"min=0"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.Locations.Nearby(c.Request.Context(), q.Lat, q.Lon, q.Radius)})
}

func (h *handler) getLocation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	loc, err := h.Locations.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *handler) createLocation(c *gin.Context) {
	var in catalog.LocationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	loc, err := h.Locations.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}
