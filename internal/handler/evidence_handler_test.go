package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/middleware"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/service"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

type evidenceServiceMock struct {
	uploadResp   *models.Evidence
	uploadErr    error
	uploadedReq  dto.UploadEvidenceRequest
	getResp      *models.Evidence
	getErr       error
	listResp     []models.Evidence
	listErr      error
	downloadResp *service.EvidenceDownload
	downloadErr  error
	reportBytes  []byte
	reportType   string
	reportName   string
	reportErr    error
	lastKey      string
}

func (m *evidenceServiceMock) Upload(ctx context.Context, meta dto.UploadEvidenceRequest, upload service.EvidenceUpload, actor *models.JWTClaims) (*models.Evidence, error) {
	m.uploadedReq = meta
	return m.uploadResp, m.uploadErr
}

func (m *evidenceServiceMock) Get(ctx context.Context, key string, actor *models.JWTClaims) (*models.Evidence, error) {
	m.lastKey = key
	return m.getResp, m.getErr
}

func (m *evidenceServiceMock) List(ctx context.Context, query dto.ListEvidenceQuery, actor *models.JWTClaims) ([]models.Evidence, error) {
	return m.listResp, m.listErr
}

func (m *evidenceServiceMock) Download(ctx context.Context, key string, actor *models.JWTClaims) (*service.EvidenceDownload, error) {
	m.lastKey = key
	return m.downloadResp, m.downloadErr
}

func (m *evidenceServiceMock) CustodyReport(ctx context.Context, key, format string, actor *models.JWTClaims) ([]byte, string, string, error) {
	m.lastKey = key
	return m.reportBytes, m.reportType, m.reportName, m.reportErr
}

type retentionServiceMock struct {
	deleteResp *models.Evidence
	deleteErr  error
	restoreErr error
	lastKey    string
	lastBackup bool
	lastDays   int
	lastTier   string
}

func (m *retentionServiceMock) Delete(ctx context.Context, key string, backup bool, actor *models.JWTClaims) (*models.Evidence, error) {
	m.lastKey = key
	m.lastBackup = backup
	return m.deleteResp, m.deleteErr
}

func (m *retentionServiceMock) RequestRestore(ctx context.Context, key string, days int, tier string, actor *models.JWTClaims) error {
	m.lastKey = key
	m.lastDays = days
	m.lastTier = tier
	return m.restoreErr
}

type capabilityServiceMock struct {
	downloadResp *dto.CapabilityResponse
	uploadResp   *dto.CapabilityResponse
	err          error
	lastTTL      time.Duration
}

func (m *capabilityServiceMock) IssueDownload(ctx context.Context, key string, ttl time.Duration, actor *models.JWTClaims) (*dto.CapabilityResponse, error) {
	m.lastTTL = ttl
	return m.downloadResp, m.err
}

func (m *capabilityServiceMock) IssueUpload(ctx context.Context, req dto.PresignUploadRequest, actor *models.JWTClaims) (*dto.CapabilityResponse, error) {
	return m.uploadResp, m.err
}

type auditTrailMock struct {
	events    []models.AuditEvent
	err       error
	lastKey   string
	lastLimit int
}

func (m *auditTrailMock) ListByResource(ctx context.Context, resourceKey string, limit int) ([]models.AuditEvent, error) {
	m.lastKey = resourceKey
	m.lastLimit = limit
	return m.events, m.err
}

func newGinContext(method, path string, body []byte, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	return c, w
}

func withActor(c *gin.Context, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) ([]byte, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes(), writer.FormDataContentType()
}

func TestEvidenceHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{
		uploadResp: &models.Evidence{StorageKey: "evidence/CASE-1/x/scene.jpg", CaseID: "CASE-1"},
	}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	body, contentType := multipartUpload(t, map[string]string{
		"caseId":       "CASE-1",
		"evidenceType": "PHOTO",
	}, "scene.jpg", []byte("jpeg"))
	c, w := newGinContext(http.MethodPost, "/evidence", body, contentType)
	withActor(c, models.RoleOfficer)

	h.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "CASE-1", mock.uploadedReq.CaseID)
	require.Contains(t, w.Body.String(), "evidence/CASE-1/x/scene.jpg")
}

func TestEvidenceHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEvidenceHandler(&evidenceServiceMock{}, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("caseId", "CASE-1"))
	require.NoError(t, writer.WriteField("evidenceType", "PHOTO"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/evidence", buf.Bytes(), writer.FormDataContentType())
	withActor(c, models.RoleOfficer)

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvidenceHandlerUploadMapsServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{uploadErr: appErrors.ErrPayloadRejected}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	body, contentType := multipartUpload(t, map[string]string{
		"caseId":       "CASE-1",
		"evidenceType": "PHOTO",
	}, "tool.exe", []byte("mz"))
	c, w := newGinContext(http.MethodPost, "/evidence", body, contentType)
	withActor(c, models.RoleOfficer)

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "PAYLOAD_REJECTED")
}

func TestEvidenceHandlerGetTrimsKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{getResp: &models.Evidence{StorageKey: "evidence/CASE-1/x/a.pdf"}}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/meta/evidence/CASE-1/x/a.pdf", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/evidence/CASE-1/x/a.pdf"}}
	withActor(c, models.RoleInvestigator)

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "evidence/CASE-1/x/a.pdf", mock.lastKey)
}

func TestEvidenceHandlerDownloadBytes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{downloadResp: &service.EvidenceDownload{
		Content:     []byte("verified bytes"),
		Filename:    "a.pdf",
		ContentType: "application/pdf",
		SizeBytes:   14,
	}}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/download/k", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/evidence/CASE-1/x/a.pdf"}}
	withActor(c, models.RoleInvestigator)

	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "verified bytes", w.Body.String())
	require.Contains(t, w.Header().Get("Content-Disposition"), "a.pdf")
}

func TestEvidenceHandlerDownloadPresigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{getResp: &models.Evidence{StorageKey: "k"}}
	capability := &capabilityServiceMock{downloadResp: &dto.CapabilityResponse{
		URL: "https://signed.example/get", Key: "k",
	}}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, capability, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/download/k?presigned=true&ttl=900", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleInvestigator)

	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "k", mock.lastKey)
	require.Equal(t, 900*time.Second, capability.lastTTL)
	require.Contains(t, w.Body.String(), "https://signed.example/get")
}

func TestEvidenceHandlerDownloadPresignedUnknownKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	capability := &capabilityServiceMock{downloadResp: &dto.CapabilityResponse{
		URL: "https://signed.example/get", Key: "k",
	}}
	h := NewEvidenceHandler(&evidenceServiceMock{getErr: appErrors.ErrNotFound}, &retentionServiceMock{}, capability, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/download/k?presigned=true", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleInvestigator)

	h.Download(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Zero(t, capability.lastTTL)
	require.NotContains(t, w.Body.String(), "signed.example")
}

func TestEvidenceHandlerDownloadPresignedRetiredKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{getResp: &models.Evidence{StorageKey: "k", IsDeleted: true}}
	capability := &capabilityServiceMock{downloadResp: &dto.CapabilityResponse{
		URL: "https://signed.example/get", Key: "k",
	}}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, capability, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/download/k?presigned=true", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleSupervisor)

	h.Download(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotContains(t, w.Body.String(), "signed.example")
}

func TestEvidenceHandlerDownloadIntegrityFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{downloadErr: appErrors.ErrIntegrityViolation}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/download/k", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleInvestigator)

	h.Download(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "INTEGRITY_VIOLATION")
}

func TestEvidenceHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	retention := &retentionServiceMock{deleteResp: &models.Evidence{StorageKey: "k", IsDeleted: true}}
	h := NewEvidenceHandler(&evidenceServiceMock{}, retention, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodDelete, "/evidence/k?backup=false", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleSupervisor)

	h.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "k", retention.lastKey)
	require.False(t, retention.lastBackup)
}

func TestEvidenceHandlerDeleteDefaultsToBackup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	retention := &retentionServiceMock{deleteResp: &models.Evidence{StorageKey: "k", IsDeleted: true}}
	h := NewEvidenceHandler(&evidenceServiceMock{}, retention, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodDelete, "/evidence/k", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleSupervisor)

	h.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, retention.lastBackup)
}

func TestEvidenceHandlerRestore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	retention := &retentionServiceMock{}
	h := NewEvidenceHandler(&evidenceServiceMock{}, retention, &capabilityServiceMock{}, &auditTrailMock{})

	payload, _ := json.Marshal(dto.RestoreRequest{Key: "evidence/CASE-1/x/a.pdf", Days: 14, Tier: "Expedited"})
	c, w := newGinContext(http.MethodPost, "/evidence/restore", payload, "application/json")
	withActor(c, models.RoleAdmin)

	h.Restore(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "evidence/CASE-1/x/a.pdf", retention.lastKey)
	require.Equal(t, 14, retention.lastDays)
	require.Equal(t, "Expedited", retention.lastTier)
}

func TestEvidenceHandlerPresignUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	capability := &capabilityServiceMock{uploadResp: &dto.CapabilityResponse{
		URL: "https://signed.example/put", Key: "evidence/CASE-1/y/f.jpg",
	}}
	h := NewEvidenceHandler(&evidenceServiceMock{}, &retentionServiceMock{}, capability, &auditTrailMock{})

	payload, _ := json.Marshal(dto.PresignUploadRequest{
		CaseID:       "CASE-1",
		Filename:     "f.jpg",
		ContentType:  "image/jpeg",
		EvidenceType: "PHOTO",
	})
	c, w := newGinContext(http.MethodPost, "/evidence/presign-upload", payload, "application/json")
	withActor(c, models.RoleOfficer)

	h.PresignUpload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "https://signed.example/put")
}

func TestEvidenceHandlerAuditTrail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &auditTrailMock{events: []models.AuditEvent{
		{Action: models.AuditActionUploaded, ResourceKey: "evidence/CASE-1/x/a.pdf", ActorID: "user-1"},
		{Action: models.AuditActionDownloaded, ResourceKey: "evidence/CASE-1/x/a.pdf", ActorID: "user-2"},
	}}
	h := NewEvidenceHandler(&evidenceServiceMock{}, &retentionServiceMock{}, &capabilityServiceMock{}, audit)

	c, w := newGinContext(http.MethodGet, "/evidence/audit/k?limit=50", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/evidence/CASE-1/x/a.pdf"}}
	withActor(c, models.RoleSupervisor)

	h.AuditTrail(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "evidence/CASE-1/x/a.pdf", audit.lastKey)
	require.Equal(t, 50, audit.lastLimit)
	require.Contains(t, w.Body.String(), "DOWNLOADED")
}

func TestEvidenceHandlerCustodyReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evidenceServiceMock{
		reportBytes: []byte("Occurred At,Action,Actor,Note\n"),
		reportType:  "text/csv",
		reportName:  "custody_CASE-1_1.csv",
	}
	h := NewEvidenceHandler(mock, &retentionServiceMock{}, &capabilityServiceMock{}, &auditTrailMock{})

	c, w := newGinContext(http.MethodGet, "/evidence/custody/k?format=csv", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/k"}}
	withActor(c, models.RoleInvestigator)

	h.CustodyReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "custody_CASE-1_1.csv")
}
