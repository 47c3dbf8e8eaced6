package api

import (
	"net/http"
	"strings"

	"jobsphere/internal/model"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type profileRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	u := &model.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		IsActive:  true,
	}
	if u.Username == "" {
		badRequest(c, "username is required")
		return
	}
	if err := h.Users.CreateUser(c.Request.Context(), u); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *handler) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *handler) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	u := *currentUser(c)
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if err := h.Users.UpdateUser(c.Request.Context(), &u); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &u)
}

// deactivateMe 软停用当前账户，之后该用户的请求均返回 401。
func (h *handler) deactivateMe(c *gin.Context) {
	if err := h.Users.DeactivateUser(c.Request.Context(), currentUser(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
