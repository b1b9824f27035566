package handler

import (
	"net/http"
	"strconv"

	"leadrouting_backend/internal/audit"
	"leadrouting_backend/internal/qualification/allocation"
	"leadrouting_backend/internal/qualification/nurture"
	"leadrouting_backend/internal/qualification/repository"
	"leadrouting_backend/internal/qualification/service"
	"leadrouting_backend/internal/qualification/transport"
	"leadrouting_backend/internal/scheduler"
	"leadrouting_backend/platform/httpkit"
	"leadrouting_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

const defaultAuditPageSize = 50

type Handler struct {
	orchestrator *service.Service
	allocator    *allocation.Service
	enroller     *nurture.Service
	repo         *repository.Repository
	auditRepo    *audit.Repository
	sweeps       scheduler.SweepScheduler
	val          *validator.Validator
}

func New(orchestrator *service.Service, allocator *allocation.Service, enroller *nurture.Service, repo *repository.Repository, auditRepo *audit.Repository, sweeps scheduler.SweepScheduler, val *validator.Validator) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		allocator:    allocator,
		enroller:     enroller,
		repo:         repo,
		auditRepo:    auditRepo,
		sweeps:       sweeps,
		val:          val,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/qualify", h.Qualify)
	rg.POST("/leads/:id/qualify-new", h.QualifyNew)
	rg.POST("/batch", h.BatchQualify)
	rg.GET("/leads/:id/suggest-reps", h.SuggestReps)
	rg.POST("/leads/:id/assign", h.AssignRep)
	rg.POST("/leads/:id/nurture", h.EnrollNurture)
	rg.GET("/leads/:id/audit", h.AuditTrail)
	rg.GET("/reps", h.ListReps)
}

func (h *Handler) Qualify(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	var req transport.QualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.orchestrator.Qualify(c.Request.Context(), tenantID, leadID, service.Options{
		Thresholds: req.Thresholds,
		AutoAssign: req.AutoAssign,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) QualifyNew(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.QualifyNewLead(c.Request.Context(), tenantID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) BatchQualify(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req transport.BatchQualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if req.Async {
		h.enqueueBatch(c, tenantID, req)
		return
	}

	results, err := h.orchestrator.BatchQualify(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": results, "count": len(results)})
}

func (h *Handler) enqueueBatch(c *gin.Context, tenantID uuid.UUID, req transport.BatchQualifyRequest) {
	if h.sweeps == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "background sweeps are not configured", nil)
		return
	}
	if len(req.LeadIDs) > 0 || req.Thresholds != nil {
		httpkit.Error(c, http.StatusBadRequest, "async sweeps do not accept leadIds or config", nil)
		return
	}

	payload := scheduler.BatchQualifyPayload{
		TenantID:   tenantID.String(),
		Stage:      req.Stage,
		AutoAssign: req.AutoAssign,
		Limit:      req.Limit,
	}
	if err := h.sweeps.EnqueueBatchQualify(c.Request.Context(), payload); err != nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "failed to enqueue sweep", nil)
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{"enqueued": true})
}

func (h *Handler) SuggestReps(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	suggestions, err := h.allocator.Suggest(c.Request.Context(), tenantID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"suggestions": suggestions})
}

func (h *Handler) AssignRep(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	var req transport.AssignRepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	assignReq := allocation.AssignRequest{Override: req.Override}
	if req.RepID == "auto" {
		assignReq.Auto = true
	} else {
		repID, err := uuid.Parse(req.RepID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "repId must be a rep id or \"auto\"", nil)
			return
		}
		assignReq.RepID = &repID
	}

	assignment, err := h.allocator.Assign(c.Request.Context(), tenantID, leadID, assignReq)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AssignRepResponse{
		AssignedRepID: assignment.RepID,
		RepName:       assignment.RepName,
		Auto:          assignment.Auto,
	})
}

func (h *Handler) EnrollNurture(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	var req transport.EnrollNurtureRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.enroller.Enroll(c.Request.Context(), tenantID, leadID, req.TemplateFamily)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.EnrollNurtureResponse{
		Created: result.Created,
		Skipped: result.Skipped,
		Reason:  result.Reason,
	}
	if result.EnrollmentID != uuid.Nil {
		resp.EnrollmentID = &result.EnrollmentID
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, resp)
}

func (h *Handler) AuditTrail(c *gin.Context) {
	tenantID, leadID, ok := h.tenantAndLead(c)
	if !ok {
		return
	}

	limit := defaultAuditPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.Error(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	items, err := h.auditRepo.ListByLead(c.Request.Context(), tenantID, leadID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"events": items})
}

func (h *Handler) ListReps(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	reps, err := h.repo.ListActiveReps(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.RepResponse, 0, len(reps))
	for _, rep := range reps {
		out = append(out, transport.RepResponse{
			ID:                 rep.ID,
			Name:               rep.Name,
			Email:              rep.Email,
			ConversionRate:     rep.ConversionRate,
			Specialization:     rep.Specialization,
			AssignedLeadsCount: rep.AssignedLeadsCount,
		})
	}
	httpkit.OK(c, gin.H{"reps": out})
}

func (h *Handler) tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (h *Handler) tenantAndLead(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, leadID, true
}
