package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"incentivehub/pkg/errutil"
	"incentivehub/services/kit"
)

func RegisterKitRoutes(r *gin.Engine, svc *kit.Service) {
	h := &kitHandler{svc: svc}

	g := r.Group("/v1/kits")
	g.POST("", h.enroll)
	g.GET("/:kitID", h.get)
	g.GET("/:kitID/progress", h.progress)

	r.GET("/v1/sellers/:sellerID/kits", h.listBySeller)
	r.GET("/v1/campaigns/:campaignID/statistics", h.statistics)
}

type kitHandler struct {
	svc *kit.Service
}

func (h *kitHandler) enroll(c *gin.Context) {
	var req struct {
		CampaignID string `json:"campaignId"`
		SellerID   string `json:"sellerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	result, err := h.svc.GetOrCreate(c.Request.Context(), req.CampaignID, req.SellerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *kitHandler) get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("kitID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *kitHandler) progress(c *gin.Context) {
	result, err := h.svc.GetProgress(c.Request.Context(), c.Param("kitID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *kitHandler) listBySeller(c *gin.Context) {
	kits, err := h.svc.ListBySeller(c.Request.Context(), c.Param("sellerID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kits": kits})
}

func (h *kitHandler) statistics(c *gin.Context) {
	stats, err := h.svc.GetStatistics(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
