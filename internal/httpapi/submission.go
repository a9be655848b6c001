package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"incentivehub/pkg/errutil"
	"incentivehub/services/submission"
)

func RegisterSubmissionRoutes(r *gin.Engine, svc *submission.Service) {
	h := &submissionHandler{svc: svc}

	g := r.Group("/v1/submissions")
	g.POST("", h.create)
	g.GET("/:submissionID", h.get)
	g.POST("/:submissionID/validate", h.validate)
	g.POST("/:submissionID/reject", h.reject)

	// Own path; a static segment under the group would collide with the
	// :submissionID wildcard.
	r.POST("/v1/bulk-validations", h.bulkValidate)

	r.GET("/v1/kits/:kitID/submissions", h.listByKit)
	r.GET("/v1/kits/:kitID/activities", h.listActivities)
}

type submissionHandler struct {
	svc *submission.Service
}

func (h *submissionHandler) create(c *gin.Context) {
	var req submission.CreateParams
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

func (h *submissionHandler) get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("submissionID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *submissionHandler) validate(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.svc.Validate(c.Request.Context(), c.Param("submissionID"), req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *submissionHandler) reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.svc.Reject(c.Request.Context(), c.Param("submissionID"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *submissionHandler) bulkValidate(c *gin.Context) {
	var req struct {
		SubmissionIDs []string `json:"submissionIds"`
		Message       string   `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	result, err := h.svc.BulkValidate(c.Request.Context(), req.SubmissionIDs, req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *submissionHandler) listByKit(c *gin.Context) {
	submissions, err := h.svc.ListByKit(c.Request.Context(), c.Param("kitID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

func (h *submissionHandler) listActivities(c *gin.Context) {
	activities, err := h.svc.ListActivities(c.Request.Context(), c.Param("kitID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
