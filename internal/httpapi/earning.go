package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"incentivehub/services/earning"
)

func RegisterEarningRoutes(r *gin.Engine, svc *earning.Service) {
	h := &earningHandler{svc: svc}

	r.GET("/v1/users/:userID/earnings", h.listByUser)
	r.GET("/v1/kits/:kitID/earnings", h.listByKit)
	r.POST("/v1/earnings/:earningID/pay", h.markPaid)
}

type earningHandler struct {
	svc *earning.Service
}

func (h *earningHandler) listByUser(c *gin.Context) {
	earnings, err := h.svc.ListByUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": earnings})
}

func (h *earningHandler) listByKit(c *gin.Context) {
	earnings, err := h.svc.ListByKit(c.Request.Context(), c.Param("kitID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": earnings})
}

func (h *earningHandler) markPaid(c *gin.Context) {
	result, err := h.svc.MarkPaid(c.Request.Context(), c.Param("earningID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
