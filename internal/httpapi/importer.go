package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"incentivehub/pkg/db/pagination"
	"incentivehub/pkg/errutil"
	"incentivehub/services/importer"
)

func RegisterImporterRoutes(r *gin.Engine, svc *importer.Service) {
	h := &importerHandler{svc: svc}

	g := r.Group("/v1/validation-jobs")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:jobID", h.get)
	g.GET("/:jobID/report", h.report)
	g.POST("/:jobID/run", h.run)
	g.POST("/:jobID/rerun", h.rerun)

	r.POST("/v1/mappings/suggest", h.suggest)
}

type importerHandler struct {
	svc *importer.Service
}

func (h *importerHandler) create(c *gin.Context) {
	var req importer.CreateJobParams
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *importerHandler) list(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid pagination parameters", err))
		return
	}

	jobs, pageInfo, err := h.svc.ListJobs(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "page_info": pageInfo})
}

func (h *importerHandler) get(c *gin.Context) {
	job, err := h.svc.GetJob(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *importerHandler) report(c *gin.Context) {
	report, err := h.svc.Report(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *importerHandler) run(c *gin.Context) {
	job, err := h.svc.RunJob(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *importerHandler) rerun(c *gin.Context) {
	job, err := h.svc.RerunJob(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *importerHandler) suggest(c *gin.Context) {
	var req struct {
		Headers []string `json:"headers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"mappings": importer.SuggestMappings(req.Headers)})
}
