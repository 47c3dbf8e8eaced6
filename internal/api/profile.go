package api

import (
	"net/http"

	"jobsphere/internal/profile"

	"github.com/gin-gonic/gin"
)

func (h *handler) getProfile(c *gin.Context) {
	v, err := h.Profiles.Get(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handler) updateProfile(c *gin.Context) {
	var in profile.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	v, err := h.Profiles.Update(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handler) profileOverview(c *gin.Context) {
	v, err := h.Profiles.Overview(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// publicProfile 匿名可访问，只返回公开字段。
func (h *handler) publicProfile(c *gin.Context) {
	p, err := h.Profiles.Public(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) listExperience(c *gin.Context) {
	exps, err := h.Profiles.Experiences(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": exps, "count": len(exps)})
}

func (h *handler) addExperience(c *gin.Context) {
	var in profile.ExperienceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	e, err := h.Profiles.AddExperience(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *handler) getExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	e, err := h.Profiles.GetExperience(c.Request.Context(), viewerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handler) updateExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in profile.ExperienceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	e, err := h.Profiles.UpdateExperience(c.Request.Context(), viewerID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handler) deleteExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Profiles.DeleteExperience(c.Request.Context(), viewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getAbout(c *gin.Context) {
	a, err := h.Profiles.About(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handler) updateAbout(c *gin.Context) {
	var in profile.AboutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	a, err := h.Profiles.UpdateAbout(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handler) getContact(c *gin.Context) {
	ct, err := h.Profiles.Contact(c.Request.Context(), viewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *handler) updateContact(c *gin.Context) {
	var in profile.ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	ct, err := h.Profiles.UpdateContact(c.Request.Context(), viewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}
