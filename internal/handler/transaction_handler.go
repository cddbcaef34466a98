package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"allocation-engine/internal/config"
	"allocation-engine/internal/domain"
	"allocation-engine/internal/middleware"
	"allocation-engine/internal/normalizer"
	"allocation-engine/internal/repository"
	"allocation-engine/internal/service"
	"allocation-engine/pkg/response"
)

type TransactionHandler struct {
	txRepo repository.TransactionRepository
	recon  service.ReconciliationService
	app    config.AppConfig
}

func NewTransactionHandler(txRepo repository.TransactionRepository, recon service.ReconciliationService, app config.AppConfig) *TransactionHandler {
	return &TransactionHandler{txRepo: txRepo, recon: recon, app: app}
}

// TransactionView decorates a record with its computed reference validity.
type TransactionView struct {
	domain.TransactionRecord
	IsValidReference bool `json:"is_valid_reference"`
}

type ListTransactionsQuery struct {
	Page        int  `form:"page"`
	PageSize    int  `form:"page_size"`
	Unallocated bool `form:"unallocated"`
}

type ApplyResolutionRequest struct {
	PolicyNumber string `json:"policy_number" binding:"required"`
}

// ListTransactions godoc
// @Summary List imported transactions
// @Tags transactions
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Param unallocated query bool false "Only transactions without a policy number"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var q ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	page, pageSize := clampPage(q.Page, q.PageSize, h.app)
	transactions, total, err := h.txRepo.List(page, pageSize, q.Unallocated)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	views := make([]TransactionView, 0, len(transactions))
	for _, tx := range transactions {
		views = append(views, TransactionView{
			TransactionRecord: tx,
			IsValidReference:  normalizer.IsValidExternalReference(tx.ExternalReference),
		})
	}

	response.Success(c, http.StatusOK, "Transactions retrieved", gin.H{
		"items":      views,
		"pagination": domain.NewPagination(page, pageSize, total),
	})
}

// GetUnmatched godoc
// @Summary Probe unmatched transactions against the policy indexes
// @Description Paginated resolution report: matches, no-matches and ambiguous references. Read-only.
// @Tags transactions
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/transactions/unmatched [get]
func (h *TransactionHandler) GetUnmatched(c *gin.Context) {
	var q ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	page, pageSize := clampPage(q.Page, q.PageSize, h.app)
	report, err := h.recon.UnmatchedTransactions(page, pageSize)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Unmatched transactions resolved", report)
}

// ApplyResolution godoc
// @Summary Apply an operator resolution to a transaction
// @Description Audited write of a policy number onto a transaction that has none
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body ApplyResolutionRequest true "Resolved policy number"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/transactions/{id}/resolution [post]
func (h *TransactionHandler) ApplyResolution(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid transaction id", c.Param("id"))
		return
	}

	var req ApplyResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	identity := middleware.IdentityFrom(c)
	audit, err := h.recon.ApplyResolution(identity, transactionID, req.PolicyNumber)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Resolution applied", audit)
}
