package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"incentivehub/pkg/errutil"
	"incentivehub/services/campaign"
)

func RegisterCampaignRoutes(r *gin.Engine, svc *campaign.Service) {
	h := &campaignHandler{svc: svc}

	g := r.Group("/v1/campaigns")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:campaignID", h.get)
	g.PATCH("/:campaignID", h.update)
	g.DELETE("/:campaignID", h.remove)
	g.POST("/:campaignID/activate", h.activate)
	g.POST("/:campaignID/deactivate", h.deactivate)
	g.POST("/:campaignID/clone", h.clone)
}

type campaignHandler struct {
	svc *campaign.Service
}

func (h *campaignHandler) create(c *gin.Context) {
	var req campaign.CreateParams
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

func (h *campaignHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	onlyActive := c.Query("status") == "active"

	campaigns, err := h.svc.List(c.Request.Context(), campaign.ListParams{
		OnlyActive: onlyActive,
		Limit:      limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (h *campaignHandler) get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *campaignHandler) update(c *gin.Context) {
	var req campaign.UpdateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), c.Param("campaignID"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *campaignHandler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("campaignID")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *campaignHandler) activate(c *gin.Context) {
	result, err := h.svc.Activate(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *campaignHandler) deactivate(c *gin.Context) {
	result, err := h.svc.Deactivate(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *campaignHandler) clone(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&req)

	cloned, err := h.svc.Clone(c.Request.Context(), c.Param("campaignID"), req.Title)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, cloned)
}
