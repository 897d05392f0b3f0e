package controllers

import (
	"net/http"

	apperrors "curation-bff/common/errors"
	"curation-bff/common/logger"
	"curation-bff/middleware"
	"curation-bff/models"
	"curation-bff/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CurationController struct {
	curation  services.CurationService
	bulk      services.BulkService
	validator *RequestValidator
}

func NewCurationController(curation services.CurationService, bulk services.BulkService) *CurationController {
	return &CurationController{curation: curation, bulk: bulk, validator: NewRequestValidator()}
}

func curationResponse(out *services.CurationOutcome) gin.H {
	return gin.H{
		"success":       true,
		"product_id":    out.ProductID,
		"curated_data":  out.Result.Data,
		"curation_kind": out.Result.Kind,
		"message":       out.Message,
	}
}

// CurateProduct handles POST /curate/:productId
func (cc *CurationController) CurateProduct(c *gin.Context) {
	out, err := cc.curation.CurateSingle(c.Request.Context(), c.Param("productId"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, curationResponse(out))
}

// CurateSimple handles POST /curate-simple/:productId
func (cc *CurationController) CurateSimple(c *gin.Context) {
	out, err := cc.curation.CurateSimple(c.Request.Context(), c.Param("productId"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, curationResponse(out))
}

// CurateAsync handles POST /curate-async
func (cc *CurationController) CurateAsync(c *gin.Context) {
	var req AsyncCurationRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}

	out, err := cc.curation.SubmitAsyncCuration(c.Request.Context(), req.ProductIDs, req.CurationNotes)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":     true,
		"job_id":      out.JobID,
		"status":      out.Status,
		"product_ids": out.ProductIDs,
		"message":     out.Message,
	})
}

// GetJob handles GET /curation-jobs/:jobId
func (cc *CurationController) GetJob(c *gin.Context) {
	job, err := cc.curation.GetJobStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ReconcileJob handles POST /curation-jobs/:jobId/reconcile
func (cc *CurationController) ReconcileJob(c *gin.Context) {
	cc.reconcile(c, c.Param("jobId"))
}

// JobWebhook handles POST /webhooks/curation-jobs sent by the job runner.
func (cc *CurationController) JobWebhook(c *gin.Context) {
	var req JobWebhookRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}
	if creds, err := middleware.GetCredentials(c); err == nil {
		logger.Info(c.Request.Context(), "curation job webhook received",
			zap.String("job_id", req.JobID),
			zap.String("reported_status", req.Status),
			zap.String("caller", creds.Subject),
		)
	}
	cc.reconcile(c, req.JobID)
}

func (cc *CurationController) reconcile(c *gin.Context, jobID string) {
	out, err := cc.curation.ReconcileJob(c.Request.Context(), jobID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	body := gin.H{
		"success":            true,
		"job_id":             out.JobID,
		"status":             out.Status,
		"applied":            out.Applied,
		"already_reconciled": out.AlreadyReconciled,
	}
	if out.Result != nil {
		body["data"] = out.Result
	}
	if len(out.RetryIDs) > 0 {
		body["retry_ids"] = out.RetryIDs
	}
	status := http.StatusOK
	if !out.Applied && !out.AlreadyReconciled {
		status = http.StatusAccepted
	}
	c.JSON(status, body)
}

// PublishCurated handles POST /publish-curated/:productId
func (cc *CurationController) PublishCurated(c *gin.Context) {
	out, err := cc.curation.Publish(c.Request.Context(), c.Param("productId"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"product_id":        out.ProductID,
		"global_product_id": out.GlobalProductID,
		"status":            out.Status,
		"message":           out.Message,
	})
}

// Reject handles POST /reject/:productId
func (cc *CurationController) Reject(c *gin.Context) {
	var req RejectRequest
	if err := cc.validator.BindJSON(c, &req, true); err != nil {
		apperrors.Respond(c, err)
		return
	}

	out, err := cc.curation.Reject(c.Request.Context(), c.Param("productId"), req.Notes)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"product_id": out.ProductID,
		"status":     out.Status,
		"message":    out.Message,
	})
}

func bulkResponse(c *gin.Context, message string, result *models.BulkOperationResult) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    result,
	})
}

// BulkApprove handles POST /bulk-approve
func (cc *CurationController) BulkApprove(c *gin.Context) {
	var req BulkRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}
	result, err := cc.bulk.BulkApprove(c.Request.Context(), req.ProductIDs, req.Notes)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	bulkResponse(c, "Aprobación en lote procesada", result)
}

// BulkReject handles POST /bulk-reject
func (cc *CurationController) BulkReject(c *gin.Context) {
	var req BulkRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}
	result, err := cc.bulk.BulkReject(c.Request.Context(), req.ProductIDs, req.Notes)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	bulkResponse(c, "Rechazo en lote procesado", result)
}

// BulkDelete handles POST /bulk-delete
func (cc *CurationController) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}
	result, err := cc.bulk.BulkDelete(c.Request.Context(), req.ProductIDs, req.Confirm)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	bulkResponse(c, "Eliminación en lote procesada", result)
}

// BulkCurate handles POST /bulk-curate
func (cc *CurationController) BulkCurate(c *gin.Context) {
	var req BulkCurateRequest
	if err := cc.validator.BindJSON(c, &req, false); err != nil {
		apperrors.Respond(c, err)
		return
	}
	result, err := cc.bulk.BulkCurate(c.Request.Context(), req.ProductIDs, services.CurateMode(req.Mode))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	bulkResponse(c, "Curación en lote procesada", result)
}
