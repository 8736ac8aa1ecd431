package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/services"
)

type HttpHandler struct {
	sessions     services.UploadSessionService
	confirmation services.UploadConfirmationService
	files        services.FileService
	cases        services.CaseService
	reaper       services.ReaperService

	logger logging.Logger
}

func NewHttpHandler(
	sessions services.UploadSessionService,
	confirmation services.UploadConfirmationService,
	files services.FileService,
	cases services.CaseService,
	reaper services.ReaperService,
	l logging.Logger,
) *HttpHandler {
	return &HttpHandler{
		sessions:     sessions,
		confirmation: confirmation,
		files:        files,
		cases:        cases,
		reaper:       reaper,
		logger:       l,
	}
}

// RegisterRoutes mounts the authenticated API under /api/v1.
func (h *HttpHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/files/upload-session", h.createUploadSession)
	api.POST("/files/confirm", h.confirmUpload)
	api.DELETE("/files", h.deleteFile)
	api.GET("/files/stats", h.uploadStats)
	api.GET("/files/download/*fileKey", h.getDownloadURL)
	api.POST("/files/reap", h.reapExpired)

	api.POST("/cases", h.createCase)
	api.GET("/cases", h.listCases)
	api.GET("/cases/:caseId", h.getCase)
	api.GET("/cases/:caseId/files", h.listCaseFiles)
	api.GET("/cases/:caseId/files/export", h.exportCaseFiles)
}

func (h *HttpHandler) createUploadSession(c *gin.Context) {
	var req models.CreateUploadSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validationf("invalid request body: %v", err))
		return
	}

	resp, err := h.sessions.CreateSession(c.Request.Context(), IdentityFromContext(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.Envelope{Success: true, Data: resp})
}

func (h *HttpHandler) confirmUpload(c *gin.Context) {
	var req models.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validationf("invalid request body: %v", err))
		return
	}

	resp, err := h.confirmation.ConfirmUpload(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: resp})
}

func (h *HttpHandler) deleteFile(c *gin.Context) {
	var req models.DeleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.files.DeleteFile(c.Request.Context(), req.FileKey); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "file deleted"})
}

func (h *HttpHandler) listCaseFiles(c *gin.Context) {
	var q models.ListCaseFilesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperror.Validationf("invalid query parameters: %v", err))
		return
	}

	resp, err := h.files.ListCaseFiles(c.Request.Context(), c.Param("caseId"), q)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: resp})
}

func (h *HttpHandler) getDownloadURL(c *gin.Context) {
	fileKey := strings.TrimPrefix(c.Param("fileKey"), "/")

	var expiresIn time.Duration
	if raw := c.Query("expiresIn"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			h.fail(c, apperror.Validationf("expiresIn must be a positive number of seconds"))
			return
		}
		expiresIn = time.Duration(secs) * time.Second
	}

	asAttachment := c.Query("download") == "true"
	filename := c.Query("filename")

	resp, err := h.files.GetDownloadURL(c.Request.Context(), fileKey, expiresIn, asAttachment, filename)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: resp})
}

func (h *HttpHandler) uploadStats(c *gin.Context) {
	var q models.UploadStatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperror.Validationf("invalid query parameters: %v", err))
		return
	}

	resp, err := h.files.UploadStats(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: resp})
}

func (h *HttpHandler) reapExpired(c *gin.Context) {
	reaped, err := h.reaper.ReapExpired(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: models.ReapResponse{Reaped: reaped}})
}

func (h *HttpHandler) createCase(c *gin.Context) {
	var req models.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validationf("invalid request body: %v", err))
		return
	}

	created, err := h.cases.CreateCase(c.Request.Context(), IdentityFromContext(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.Envelope{Success: true, Data: created})
}

func (h *HttpHandler) getCase(c *gin.Context) {
	found, err := h.cases.GetCase(c.Request.Context(), c.Param("caseId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: found})
}

func (h *HttpHandler) listCases(c *gin.Context) {
	cases, err := h.cases.ListCases(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: cases})
}

func (h *HttpHandler) exportCaseFiles(c *gin.Context) {
	caseID := c.Param("caseId")

	files, err := h.files.CompletedCaseFiles(c.Request.Context(), caseID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", caseID+"-files.csv"))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"fileId", "fileKey", "originalName", "captureType", "fileType", "fileSize", "uploadedBy", "uploadedAt"})
	for _, f := range files {
		_ = w.Write([]string{
			f.FileID,
			f.FileKey,
			f.OriginalName,
			string(f.CaptureType),
			f.FileType,
			strconv.FormatInt(f.FileSize, 10),
			f.UploadedBy,
			f.UploadedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
}

// fail maps service errors onto the error taxonomy and writes the envelope.
func (h *HttpHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case apperror.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrCaseNotFound),
		errors.Is(err, apperror.ErrFileNotFound),
		errors.Is(err, apperror.ErrObjectMissing):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrSessionExpired):
		status = http.StatusGone
	case errors.Is(err, apperror.ErrDuplicateFile),
		errors.Is(err, apperror.ErrInvalidState):
		status = http.StatusConflict
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, models.Envelope{
			Success: false,
			Error:   "service temporarily unavailable",
		})
		return
	}

	c.JSON(status, models.Envelope{Success: false, Error: err.Error()})
}
