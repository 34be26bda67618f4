package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/middleware"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/service"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/response"
)

type evidenceManager interface {
	Upload(ctx context.Context, meta dto.UploadEvidenceRequest, upload service.EvidenceUpload, actor *models.JWTClaims) (*models.Evidence, error)
	Get(ctx context.Context, key string, actor *models.JWTClaims) (*models.Evidence, error)
	List(ctx context.Context, query dto.ListEvidenceQuery, actor *models.JWTClaims) ([]models.Evidence, error)
	Download(ctx context.Context, key string, actor *models.JWTClaims) (*service.EvidenceDownload, error)
	CustodyReport(ctx context.Context, key, format string, actor *models.JWTClaims) ([]byte, string, string, error)
}

type retentionManager interface {
	Delete(ctx context.Context, key string, backup bool, actor *models.JWTClaims) (*models.Evidence, error)
	RequestRestore(ctx context.Context, key string, days int, tier string, actor *models.JWTClaims) error
}

type capabilityIssuer interface {
	IssueDownload(ctx context.Context, key string, ttl time.Duration, actor *models.JWTClaims) (*dto.CapabilityResponse, error)
	IssueUpload(ctx context.Context, req dto.PresignUploadRequest, actor *models.JWTClaims) (*dto.CapabilityResponse, error)
}

type auditTrailReader interface {
	ListByResource(ctx context.Context, resourceKey string, limit int) ([]models.AuditEvent, error)
}

// EvidenceHandler exposes the evidence lifecycle over HTTP. Storage keys
// contain slashes, so key-addressed routes use wildcard parameters.
type EvidenceHandler struct {
	evidence   evidenceManager
	retention  retentionManager
	capability capabilityIssuer
	audit      auditTrailReader
}

// NewEvidenceHandler constructs the handler.
func NewEvidenceHandler(evidence evidenceManager, retention retentionManager, capability capabilityIssuer, audit auditTrailReader) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence, retention: retention, capability: capability, audit: audit}
}

func keyParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// Upload godoc
// @Summary Ingest an evidence artifact
// @Tags Evidence
// @Accept multipart/form-data
// @Produce json
// @Param caseId formData string true "Case identifier"
// @Param evidenceType formData string true "PHOTO, VIDEO, AUDIO, DOCUMENT or OTHER"
// @Param description formData string false "Description"
// @Param source formData string false "Collection source"
// @Param file formData file true "Artifact"
// @Success 201 {object} response.Envelope
// @Router /evidence [post]
func (h *EvidenceHandler) Upload(c *gin.Context) {
	var req dto.UploadEvidenceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evidence payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	upload := service.EvidenceUpload{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     reader,
	}
	item, err := h.evidence.Upload(c.Request.Context(), req, upload, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List evidence for a case
// @Tags Evidence
// @Produce json
// @Param caseId query string true "Case identifier"
// @Param evidenceType query string false "Type filter"
// @Param includeDeleted query bool false "Include tombstoned artifacts (elevated roles)"
// @Success 200 {object} response.Envelope
// @Router /evidence [get]
func (h *EvidenceHandler) List(c *gin.Context) {
	var query dto.ListEvidenceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "caseId is required"))
		return
	}
	items, err := h.evidence.List(c.Request.Context(), query, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Total:  int64(len(items)),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

// Get godoc
// @Summary Get evidence metadata with custody chain
// @Tags Evidence
// @Produce json
// @Param key path string true "Storage key"
// @Success 200 {object} response.Envelope
// @Router /evidence/meta/{key} [get]
func (h *EvidenceHandler) Get(c *gin.Context) {
	item, err := h.evidence.Get(c.Request.Context(), keyParam(c), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Download godoc
// @Summary Retrieve artifact bytes or a presigned download URL
// @Tags Evidence
// @Produce octet-stream
// @Param key path string true "Storage key"
// @Param presigned query bool false "Return a presigned URL instead of bytes"
// @Param ttl query int false "Presigned URL TTL in seconds"
// @Success 200 {file} binary
// @Router /evidence/download/{key} [get]
func (h *EvidenceHandler) Download(c *gin.Context) {
	key := keyParam(c)
	actor := middleware.CurrentUser(c)

	if c.Query("presigned") == "true" {
		// Resolve metadata first so capabilities are never minted for
		// unknown or retired keys.
		item, err := h.evidence.Get(c.Request.Context(), key, actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		if item.IsDeleted {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		ttlSeconds, _ := strconv.Atoi(c.DefaultQuery("ttl", "0"))
		resp, err := h.capability.IssueDownload(c.Request.Context(), key, time.Duration(ttlSeconds)*time.Second, actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, resp, nil)
		return
	}

	result, err := h.evidence.Download(c.Request.Context(), key, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// PresignUpload godoc
// @Summary Mint a direct-upload capability URL
// @Tags Evidence
// @Accept json
// @Produce json
// @Param request body dto.PresignUploadRequest true "Upload descriptor"
// @Success 201 {object} response.Envelope
// @Router /evidence/presign-upload [post]
func (h *EvidenceHandler) PresignUpload(c *gin.Context) {
	var req dto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid presign request"))
		return
	}
	resp, err := h.capability.IssueUpload(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Delete godoc
// @Summary Retire an evidence artifact
// @Tags Evidence
// @Produce json
// @Param key path string true "Storage key"
// @Param backup query bool false "Archive a backup copy first (default true)"
// @Success 200 {object} response.Envelope
// @Router /evidence/{key} [delete]
func (h *EvidenceHandler) Delete(c *gin.Context) {
	backup := c.DefaultQuery("backup", "true") != "false"
	item, err := h.retention.Delete(c.Request.Context(), keyParam(c), backup, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Restore godoc
// @Summary Request reactivation of an archived backup
// @Tags Evidence
// @Accept json
// @Produce json
// @Param request body dto.RestoreRequest true "Storage key with optional duration and tier"
// @Success 202 {object} response.Envelope
// @Router /evidence/restore [post]
func (h *EvidenceHandler) Restore(c *gin.Context) {
	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key is required"))
		return
	}
	if err := h.retention.RequestRestore(c.Request.Context(), req.Key, req.Days, req.Tier, middleware.CurrentUser(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "restore requested"}, nil)
}

// AuditTrail godoc
// @Summary List audit events for an artifact
// @Tags Evidence
// @Produce json
// @Param key path string true "Storage key"
// @Param limit query int false "Max events (default 100)"
// @Success 200 {object} response.Envelope
// @Router /evidence/audit/{key} [get]
func (h *EvidenceHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	events, err := h.audit.ListByResource(c.Request.Context(), keyParam(c), limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail"))
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// CustodyReport godoc
// @Summary Export the chain of custody as CSV or PDF
// @Tags Evidence
// @Produce octet-stream
// @Param key path string true "Storage key"
// @Param format query string false "json, csv (default) or pdf"
// @Success 200 {file} binary
// @Router /evidence/custody/{key} [get]
func (h *EvidenceHandler) CustodyReport(c *gin.Context) {
	content, contentType, filename, err := h.evidence.CustodyReport(
		c.Request.Context(), keyParam(c), c.Query("format"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, content)
}
