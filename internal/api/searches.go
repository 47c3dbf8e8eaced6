package api

import (
	"net/http"
	"strconv"

	"jobsphere/internal/search"

	"github.com/gin-gonic/gin"
)

func (h *handler) listSearches(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	res, err := h.Searches.List(c.Request.Context(), viewerID(c), page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) createSearch(c *gin.Context) {
	var in search.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	ss, err := h.Searches.Create(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ss)
}

func (h *handler) getSearch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ss, err := h.Searches.Get(c.Request.Context(), viewerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ss)
}

func (h *handler) updateSearch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in search.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	ss, err := h.Searches.Update(c.Request.Context(), viewerID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ss)
}

func (h *handler) deleteSearch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Searches.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// useSearch 执行保存的检索并累加使用次数。
func (h *handler) useSearch(c *gin.Context) {
	id, ok := idParam(c, "id")
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
	res, err := h.Searches.Use(c.Request.Context(), viewerID(c), id, page, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Total", strconv.FormatInt(res.Results.Total, 10))
	c.JSON(http.StatusOK, res)
}
