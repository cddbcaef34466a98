package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"allocation-engine/internal/config"
	"allocation-engine/internal/domain"
	"allocation-engine/internal/middleware"
	"allocation-engine/internal/parser"
	"allocation-engine/internal/service"
	"allocation-engine/pkg/logger"
	"allocation-engine/pkg/response"
)

type AllocationHandler struct {
	service service.AllocationService
	app     config.AppConfig
}

func NewAllocationHandler(service service.AllocationService, app config.AppConfig) *AllocationHandler {
	return &AllocationHandler{service: service, app: app}
}

type CreateAllocationRequest struct {
	TransactionID int64  `json:"transaction_id" binding:"required"`
	PolicyNumber  string `json:"policy_number" binding:"required"`
	Note          string `json:"note"`
}

type TransitionRequest struct {
	TargetStatus    string `json:"target_status" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type BatchIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type NoteRequest struct {
	Text string `json:"text" binding:"required"`
}

type EvidenceRequest struct {
	DocumentRef string `json:"document_ref" binding:"required"`
}

type ListAllocationsQuery struct {
	Status      string `form:"status"`
	RequestedBy string `form:"requested_by"`
	From        string `form:"from"`
	To          string `form:"to"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// CreateAllocation godoc
// @Summary Raise an allocation request
// @Description Create a PENDING allocation request pairing a transaction with a claimed policy number
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body CreateAllocationRequest true "Allocation request"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/allocations [post]
func (h *AllocationHandler) CreateAllocation(c *gin.Context) {
	var req CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	created, err := h.service.Create(identity, req.TransactionID, req.PolicyNumber, req.Note)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Allocation request created", created)
}

// GetAllocation godoc
// @Summary Get an allocation request
// @Tags allocations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/allocations/{id} [get]
func (h *AllocationHandler) GetAllocation(c *gin.Context) {
	req, err := h.service.Get(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Allocation request retrieved", req)
}

// ListAllocations godoc
// @Summary List allocation requests
// @Tags allocations
// @Produce json
// @Param status query string false "Status filter"
// @Param requested_by query string false "Requester filter"
// @Param from query string false "Created-from date (YYYY-MM-DD)"
// @Param to query string false "Created-to date (YYYY-MM-DD)"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations [get]
func (h *AllocationHandler) ListAllocations(c *gin.Context) {
	var q ListAllocationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	filter := domain.AllocationFilter{
		RequestedBy: q.RequestedBy,
	}
	filter.Page, filter.PageSize = clampPage(q.Page, q.PageSize, h.app)

	if q.Status != "" {
		status := domain.AllocationStatus(q.Status)
		if !status.IsKnown() {
			response.BadRequest(c, "Unknown status", q.Status)
			return
		}
		filter.Status = &status
	}
	if q.From != "" {
		from, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			response.BadRequest(c, "Invalid from date", "Use YYYY-MM-DD format")
			return
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			response.BadRequest(c, "Invalid to date", "Use YYYY-MM-DD format")
			return
		}
		// Inclusive through the end of the day.
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}

	requests, pagination, err := h.service.List(filter)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Allocation requests retrieved", gin.H{
		"items":      requests,
		"pagination": pagination,
	})
}

// Transition godoc
// @Summary Transition an allocation request
// @Description Drive a single request to a target status, subject to the transition graph and caller capability
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body TransitionRequest true "Target status and optional rejection reason"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/allocations/{id}/transition [post]
func (h *AllocationHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	updated, err := h.service.Transition(identity, c.Param("id"), domain.AllocationStatus(req.TargetStatus), req.RejectionReason)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Allocation request transitioned", updated)
}

// Submit godoc
// @Summary Submit approved requests as a batch
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body BatchIDsRequest true "Request ids"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations/submit [post]
func (h *AllocationHandler) Submit(c *gin.Context) {
	h.batchTransition(c, domain.StatusSubmitted, "Submission processed")
}

// Allocate godoc
// @Summary Mark submitted requests allocated
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body BatchIDsRequest true "Request ids"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations/allocate [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	h.batchTransition(c, domain.StatusAllocated, "Allocation processed")
}

// MarkDuplicate godoc
// @Summary Mark submitted requests as duplicates
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body BatchIDsRequest true "Request ids"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations/mark-duplicate [post]
func (h *AllocationHandler) MarkDuplicate(c *gin.Context) {
	h.batchTransition(c, domain.StatusDuplicate, "Duplicate marking processed")
}

func (h *AllocationHandler) batchTransition(c *gin.Context, target domain.AllocationStatus, message string) {
	var req BatchIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	results := h.service.BatchTransition(identity, req.IDs, target)
	response.Success(c, http.StatusOK, message, gin.H{"results": results})
}

// ScanDuplicates godoc
// @Summary Scan requests against an uploaded ledger extract
// @Description Cross-reference selected requests against an external-ledger extract by (date, membership id)
// @Tags allocations
// @Accept multipart/form-data
// @Produce json
// @Param ids formData string true "Comma-separated request ids"
// @Param extract formData file true "Ledger extract (CSV or XLSX)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/allocations/scan-duplicates [post]
func (h *AllocationHandler) ScanDuplicates(c *gin.Context) {
	ids := splitIDs(c.PostForm("ids"))
	if len(ids) == 0 {
		response.BadRequest(c, "No request ids provided", "Supply ids as a comma-separated form field")
		return
	}

	fileHeader, err := c.FormFile("extract")
	if err != nil {
		response.BadRequest(c, "Missing extract file", err.Error())
		return
	}
	if fileHeader.Size > h.app.MaxUploadBytes {
		response.BadRequest(c, "Extract file too large", "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "Failed to open extract file", err.Error())
		return
	}
	defer file.Close()

	// An unparseable extract aborts before any item is scanned.
	extract, err := parser.ParseLedgerExtract(fileHeader.Filename, file)
	if err != nil {
		response.BadRequest(c, "Failed to parse extract", err.Error())
		return
	}

	results, err := h.service.ScanDuplicates(ids, extract)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Duplicate scan completed", gin.H{
		"results":    results,
		"row_errors": extract.RowErrors,
	})
}

// Export godoc
// @Summary Export the ledger allocation file
// @Description Emit MembershipNo,DepositAmount,DepositDate rows for the submitted, non-duplicate requests among ids
// @Tags allocations
// @Accept json
// @Produce text/csv
// @Param request body BatchIDsRequest true "Request ids"
// @Success 200 {string} string "CSV content"
// @Router /api/v1/allocations/export [post]
func (h *AllocationHandler) Export(c *gin.Context) {
	var req BatchIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var buf bytes.Buffer
	results, err := h.service.Export(req.IDs, &buf)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	skipped := 0
	for _, r := range results {
		if !r.OK {
			skipped++
		}
	}
	if skipped > 0 {
		logger.GetLogger().WithField("skipped", skipped).Warn("Export skipped ineligible requests")
	}

	c.Header("Content-Disposition", `attachment; filename="ledger_allocations.csv"`)
	c.Header("X-Export-Skipped", strconv.Itoa(skipped))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// AddNote godoc
// @Summary Append a note to a request
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body NoteRequest true "Note text"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations/{id}/notes [post]
func (h *AllocationHandler) AddNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	if err := h.service.AddNote(identity, c.Param("id"), req.Text); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Note added", nil)
}

// AddEvidence godoc
// @Summary Attach an evidence document reference
// @Tags allocations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body EvidenceRequest true "Opaque document reference"
// @Success 200 {object} response.Response
// @Router /api/v1/allocations/{id}/evidence [post]
func (h *AllocationHandler) AddEvidence(c *gin.Context) {
	var req EvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	if err := h.service.AddEvidence(identity, c.Param("id"), req.DocumentRef); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Evidence attached", nil)
}
