package handler

import (
	"net/http"

	"cold_solutions_backend/internal/leads/management"
	"cold_solutions_backend/internal/leads/transport"
	"cold_solutions_backend/platform/apperr"
	"cold_solutions_backend/platform/httpkit"
	"cold_solutions_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgLeadNotFound     = "lead not found"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc *management.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *management.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/score", h.PreviewScore)
	rg.POST("/merge", h.Merge)
	rg.GET("/duplicates/groups", h.DuplicateGroups)

	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/auto-route", h.AutoRoute)
	rg.POST("/:id/workflow-route", h.WorkflowRoute)
	rg.GET("/:id/duplicates", h.FindDuplicates)
	rg.GET("/:id/activities", h.ListActivities)
	rg.POST("/:id/activities", h.LogActivity)
}

// bind decodes the JSON body into req and validates it.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) List(c *gin.Context) {
	var params transport.ListLeadsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	result, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Update(c *gin.Context) {
	var req transport.UpdateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req transport.UpdateLeadStatusRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Delete(c *gin.Context) {
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), c.Param("id"))) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Assign(c *gin.Context) {
	var req transport.AssignLeadRequest
	if !h.bind(c, &req) {
		return
	}

	ok, lead, err := h.svc.Assign(c.Request.Context(), c.Param("id"), req.UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	if !ok {
		httpkit.HandleError(c, apperr.NotFound("lead or user not found"))
		return
	}

	httpkit.OK(c, transport.AssignLeadResponse{Assigned: true, Lead: lead})
}

func (h *Handler) AutoRoute(c *gin.Context) {
	id := c.Param("id")
	routed, lead, err := h.svc.ApplyAutoRouting(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if !routed && lead.ID == "" {
		httpkit.HandleError(c, apperr.NotFound(msgLeadNotFound))
		return
	}

	httpkit.OK(c, transport.AutoRouteResponse{Routed: routed, Lead: lead})
}

func (h *Handler) WorkflowRoute(c *gin.Context) {
	assignee, lead, err := h.svc.ApplyWorkflowRouting(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.WorkflowRouteResponse{Routed: assignee != nil, Assignee: assignee, Lead: lead})
}

func (h *Handler) FindDuplicates(c *gin.Context) {
	result, err := h.svc.FindDuplicates(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) DuplicateGroups(c *gin.Context) {
	result, err := h.svc.DuplicateGroups(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Merge(c *gin.Context) {
	var req transport.MergeLeadsRequest
	if !h.bind(c, &req) {
		return
	}

	merged, err := h.svc.Merge(c.Request.Context(), req.PrimaryID, req.SecondaryID)
	if httpkit.HandleError(c, err) {
		return
	}
	if merged == nil {
		httpkit.HandleError(c, apperr.NotFound(msgLeadNotFound))
		return
	}

	httpkit.OK(c, merged)
}

func (h *Handler) ListActivities(c *gin.Context) {
	result, err := h.svc.ListActivities(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": result})
}

func (h *Handler) LogActivity(c *gin.Context) {
	var req transport.LogActivityRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.LogActivity(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) PreviewScore(c *gin.Context) {
	var req transport.ScorePreviewRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.PreviewScore(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
