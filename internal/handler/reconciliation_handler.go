package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"allocation-engine/internal/config"
	"allocation-engine/internal/service"
	"allocation-engine/pkg/response"
)

type ReconciliationHandler struct {
	service service.ReconciliationService
	app     config.AppConfig
}

func NewReconciliationHandler(service service.ReconciliationService, app config.AppConfig) *ReconciliationHandler {
	return &ReconciliationHandler{service: service, app: app}
}

// GetComparison godoc
// @Summary Compare file and database policy provenances
// @Description Classify every policy number into Matches, Mismatches, FileOnly, DatabaseOnly and WithoutExternalReference
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/reconciliation/comparison [get]
func (h *ReconciliationHandler) GetComparison(c *gin.Context) {
	result, err := h.service.Comparison()
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Comparison computed", result)
}

// UploadReferenceFile godoc
// @Summary Upload the policy reference file
// @Description Replace the file provenance with the uploaded CSV or XLSX reference file
// @Tags reconciliation
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Reference file"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/reconciliation/reference-file [post]
func (h *ReconciliationHandler) UploadReferenceFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing reference file", err.Error())
		return
	}
	if fileHeader.Size > h.app.MaxUploadBytes {
		response.BadRequest(c, "Reference file too large", "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "Failed to open reference file", err.Error())
		return
	}
	defer file.Close()

	summary, err := h.service.UploadReferenceFile(fileHeader.Filename, file)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Reference file loaded", summary)
}
