package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"incentivehub/pkg/errutil"
	"incentivehub/services/user"
)

func RegisterUserRoutes(r *gin.Engine, svc *user.Service) {
	h := &userHandler{svc: svc}

	g := r.Group("/v1/users")
	g.POST("", h.create)
	g.GET("/:userID", h.get)
}

type userHandler struct {
	svc *user.Service
}

func (h *userHandler) create(c *gin.Context) {
	var req user.CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *userHandler) get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("userID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
