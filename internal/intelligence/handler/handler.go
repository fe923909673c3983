package handler

import (
	"io"
	"net/http"
	"strings"

	"cold_solutions_backend/internal/intelligence/service"
	"cold_solutions_backend/internal/intelligence/transport"
	"cold_solutions_backend/platform/httpkit"
	"cold_solutions_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingCSV       = "csv file is required"

	maxCSVUploadBytes = 5 << 20
)

// Handler handles HTTP requests for business-intelligence enrichment.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/estimate", h.Estimate)

	rg.GET("/leads", h.ListLeads)
	rg.POST("/leads", h.ImportLeads)
	rg.POST("/leads/import", h.ImportCSV)
	rg.GET("/leads/:id", h.GetLead)
	rg.GET("/leads/:id/analysis", h.GetAnalysis)
	rg.GET("/leads/:id/raw", h.GetRawPayload)

	rg.POST("/bulk-runs", h.StartRun)
	rg.GET("/bulk-runs/:id", h.GetRun)
	rg.DELETE("/bulk-runs/:id", h.CancelRun)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) Estimate(c *gin.Context) {
	var params transport.EstimateParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, &params) {
		return
	}

	result, err := h.svc.EstimateCost(params.Count)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListLeads(c *gin.Context) {
	var params transport.ListLeadsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, &params) {
		return
	}

	result, err := h.svc.ListLeads(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ImportLeads(c *gin.Context) {
	var req transport.ImportLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, &req) {
		return
	}

	result, err := h.svc.Import(c.Request.Context(), req.Leads)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// ImportCSV accepts either a multipart "file" field or a raw text/csv body.
func (h *Handler) ImportCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCSVUploadBytes)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgMissingCSV, nil)
			return
		}
		f, err := fh.Open()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgMissingCSV, nil)
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.svc.ImportCSV(c.Request.Context(), body)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) GetLead(c *gin.Context) {
	result, err := h.svc.GetLead(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetAnalysis(c *gin.Context) {
	result, err := h.svc.GetAnalysis(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetRawPayload(c *gin.Context) {
	raw, err := h.svc.RawPayload(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// StartRun queues a bulk run. An empty body runs over any eligible lead.
func (h *Handler) StartRun(c *gin.Context) {
	var req transport.StartBulkRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if !h.validate(c, &req) {
		return
	}

	result, err := h.svc.Start(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, result)
}

func (h *Handler) GetRun(c *gin.Context) {
	result, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) CancelRun(c *gin.Context) {
	result, err := h.svc.CancelRun(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, result)
}
