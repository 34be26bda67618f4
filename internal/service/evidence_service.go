package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/blob"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/keys"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/export"
)

type evidenceStore interface {
	Create(ctx context.Context, item *models.Evidence) error
	GetByKey(ctx context.Context, key string) (*models.Evidence, error)
	List(ctx context.Context, filter models.EvidenceFilter) ([]models.Evidence, error)
	MarkDeleted(ctx context.Context, key string, backupKey *string, deletedAt time.Time) error
	AppendCustody(ctx context.Context, entry *models.CustodyEntry) error
	ListCustody(ctx context.Context, key string) ([]models.CustodyEntry, error)
}

// uploadGate enforces the size and content-type policy shared by proxied
// and presigned uploads.
type uploadGate struct {
	maxSize int64
	exact   map[string]struct{}
	// prefixes holds wildcard categories like "image/" from "image/*".
	prefixes []string
}

func newUploadGate(cfg config.UploadConfig) *uploadGate {
	g := &uploadGate{
		maxSize: cfg.MaxFileSizeBytes,
		exact:   make(map[string]struct{}, len(cfg.AllowedContentTypes)),
	}
	if g.maxSize <= 0 {
		g.maxSize = 100 * 1024 * 1024
	}
	for _, raw := range cfg.AllowedContentTypes {
		ct := strings.ToLower(strings.TrimSpace(raw))
		if ct == "" {
			continue
		}
		if strings.HasSuffix(ct, "/*") {
			g.prefixes = append(g.prefixes, strings.TrimSuffix(ct, "*"))
			continue
		}
		g.exact[ct] = struct{}{}
	}
	return g
}

func (g *uploadGate) typeAllowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	// Strip parameters ("; charset=utf-8").
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct == "" {
		return false
	}
	if len(g.exact) == 0 && len(g.prefixes) == 0 {
		return true
	}
	if _, ok := g.exact[ct]; ok {
		return true
	}
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func (g *uploadGate) check(size int64, contentType string) error {
	if size <= 0 {
		return appErrors.Clone(appErrors.ErrPayloadRejected, "empty payload")
	}
	if size > g.maxSize {
		return appErrors.Clone(appErrors.ErrPayloadRejected,
			fmt.Sprintf("payload exceeds %d bytes limit", g.maxSize))
	}
	if !g.typeAllowed(contentType) {
		return appErrors.Clone(appErrors.ErrPayloadRejected,
			fmt.Sprintf("content type %s not allowed", contentType))
	}
	return nil
}

// EvidenceUpload carries the payload half of a multipart upload.
type EvidenceUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.ReadSeeker
}

// EvidenceDownload bundles verified bytes for streaming to the client.
type EvidenceDownload struct {
	Content     []byte
	Filename    string
	ContentType string
	SizeBytes   int64
}

// EvidenceService implements ingest, retrieval and custody reporting. The
// metadata row is written only after the backend confirms the bytes, so a
// listed artifact always has stored content behind it.
type EvidenceService struct {
	repo    evidenceStore
	store   blob.Store
	audit   *AuditRecorder
	metrics *MetricsService
	logger  *zap.Logger
	gate    *uploadGate

	storageClass  models.StorageClass
	opTimeout     time.Duration
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	enqueueVerify func(key string)
}

// NewEvidenceService constructs the service.
func NewEvidenceService(repo evidenceStore, store blob.Store, audit *AuditRecorder, metrics *MetricsService, logger *zap.Logger, uploadCfg config.UploadConfig, storageClass string) *EvidenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	class := models.StorageClass(storageClass)
	if class == "" {
		class = models.StorageClassInfrequent
	}
	opTimeout := uploadCfg.OperationTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Minute
	}
	return &EvidenceService{
		repo:         repo,
		store:        store,
		audit:        audit,
		metrics:      metrics,
		logger:       logger,
		gate:         newUploadGate(uploadCfg),
		storageClass: class,
		opTimeout:    opTimeout,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
	}
}

// opContext bounds one backend transfer so a stalled connection cannot pin
// the request forever.
func (s *EvidenceService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Gate exposes the shared upload policy for the capability issuer.
func (s *EvidenceService) Gate() *uploadGate {
	return s.gate
}

// SetVerifyEnqueue registers the hook that schedules background
// verification of freshly uploaded artifacts.
func (s *EvidenceService) SetVerifyEnqueue(fn func(key string)) {
	s.enqueueVerify = fn
}

// Upload ingests one artifact: gate, digest, address, store, then record.
func (s *EvidenceService) Upload(ctx context.Context, meta dto.UploadEvidenceRequest, upload EvidenceUpload, actor *models.JWTClaims) (*models.Evidence, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrPayloadRejected, "file is required")
	}
	if err := s.gate.check(upload.Size, upload.ContentType); err != nil {
		return nil, err
	}

	digest, size, err := keys.DigestReader(upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to digest payload")
	}
	if size != upload.Size {
		return nil, appErrors.Clone(appErrors.ErrPayloadRejected, "declared size does not match payload")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}

	key := keys.DeriveKey(meta.CaseID, upload.Filename, actor.UserID)
	putCtx, cancel := s.opContext(ctx)
	defer cancel()
	stored, err := s.store.Put(putCtx, blob.PutInput{
		Key:          key,
		Body:         upload.Content,
		SizeBytes:    size,
		ContentType:  upload.ContentType,
		StorageClass: s.storageClass,
		Metadata: map[string]string{
			"case-id":       meta.CaseID,
			"uploaded-by":   actor.UserID,
			"digest-sha256": digest,
		},
		Tags: map[string]string{
			"evidence-type": meta.EvidenceType,
		},
	})
	if err != nil {
		return nil, err
	}

	item := &models.Evidence{
		StorageKey:       key,
		CaseID:           meta.CaseID,
		OriginalFilename: upload.Filename,
		Description:      meta.Description,
		Source:           meta.Source,
		EvidenceType:     meta.EvidenceType,
		Tags:             pq.StringArray(meta.Tags),
		ContentType:      upload.ContentType,
		SizeBytes:        size,
		DigestSHA256:     digest,
		ETag:             stored.ETag,
		StorageClass:     s.storageClass,
		EncryptionMode:   stored.EncryptionMode,
		UploadedBy:       actor.UserID,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		// The orphaned object is unreachable without a metadata row; best
		// effort cleanup keeps the bucket tidy.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up orphaned object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record evidence metadata")
	}

	s.appendCustody(ctx, key, models.CustodyActionUploaded, actor.UserID, "")
	s.emitAudit(actor.UserID, models.AuditActionUploaded, key, map[string]interface{}{
		"caseId":    meta.CaseID,
		"sizeBytes": size,
		"digest":    digest,
	})
	s.metrics.AddUploadedBytes(size)
	if s.enqueueVerify != nil {
		s.enqueueVerify(key)
	}

	return item, nil
}

// Get returns metadata with the custody chain loaded. Tombstoned artifacts
// stay visible to elevated roles only.
func (s *EvidenceService) Get(ctx context.Context, key string, actor *models.JWTClaims) (*models.Evidence, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	item, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	if item.IsDeleted && !isElevated(actor.Role) {
		return nil, appErrors.ErrNotFound
	}
	chain, err := s.repo.ListCustody(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load custody chain")
	}
	item.ChainOfCustody = chain
	return item, nil
}

// List returns case evidence. IncludeDeleted is honoured for elevated
// roles only.
func (s *EvidenceService) List(ctx context.Context, query dto.ListEvidenceQuery, actor *models.JWTClaims) ([]models.Evidence, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.EvidenceFilter{
		CaseID:         query.CaseID,
		EvidenceType:   query.EvidenceType,
		IncludeDeleted: query.IncludeDeleted && isElevated(actor.Role),
		Limit:          query.Limit,
		Offset:         query.Offset,
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence")
	}
	return items, nil
}

// Download fetches the artifact and verifies its digest before releasing a
// single byte to the caller. A mismatch is escalated, never served.
func (s *EvidenceService) Download(ctx context.Context, key string, actor *models.JWTClaims) (*EvidenceDownload, error) {
	item, err := s.Get(ctx, key, actor)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, appErrors.ErrNotFound
	}

	getCtx, cancel := s.opContext(ctx)
	defer cancel()
	obj, err := s.store.Get(getCtx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	content, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code,
			appErrors.ErrBackendUnavailable.Status, "failed to read object body")
	}

	if got := keys.Digest(content); got != item.DigestSHA256 {
		s.escalateIntegrity(key, item.DigestSHA256, got, actor.UserID)
		return nil, appErrors.ErrIntegrityViolation
	}

	s.appendCustody(ctx, key, models.CustodyActionDownloaded, actor.UserID, "")
	s.emitAudit(actor.UserID, models.AuditActionDownloaded, key, nil)

	return &EvidenceDownload{
		Content:     content,
		Filename:    item.OriginalFilename,
		ContentType: item.ContentType,
		SizeBytes:   int64(len(content)),
	}, nil
}

// Verify re-reads one stored artifact and checks its digest. Used by the
// post-upload verification workers; mismatches are escalated the same way
// as on download.
func (s *EvidenceService) Verify(ctx context.Context, key string) error {
	item, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	if item.IsDeleted {
		return nil
	}

	getCtx, cancel := s.opContext(ctx)
	defer cancel()
	obj, err := s.store.Get(getCtx, key)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	digest, _, err := keys.DigestReader(obj.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code,
			appErrors.ErrBackendUnavailable.Status, "failed to read object body")
	}
	if digest != item.DigestSHA256 {
		s.escalateIntegrity(key, item.DigestSHA256, digest, models.SystemActorID)
		return appErrors.ErrIntegrityViolation
	}
	return nil
}

// CustodyReport renders the chain of custody as CSV or PDF.
func (s *EvidenceService) CustodyReport(ctx context.Context, key, format string, actor *models.JWTClaims) ([]byte, string, string, error) {
	item, err := s.Get(ctx, key, actor)
	if err != nil {
		return nil, "", "", err
	}

	headers := []string{"Occurred At", "Action", "Actor", "Note"}
	rows := make([]map[string]string, 0, len(item.ChainOfCustody))
	for _, entry := range item.ChainOfCustody {
		rows = append(rows, map[string]string{
			"Occurred At": entry.OccurredAt.UTC().Format(time.RFC3339),
			"Action":      entry.Action,
			"Actor":       entry.ActorID,
			"Note":        entry.Note,
		})
	}
	data := export.Dataset{Headers: headers, Rows: rows}

	switch strings.ToLower(format) {
	case "json":
		content, err := json.MarshalIndent(item.ChainOfCustody, "", "  ")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render custody report")
		}
		return content, "application/json", custodyReportFilename(item, "json"), nil
	case "", "csv":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render custody report")
		}
		return content, "text/csv", custodyReportFilename(item, "csv"), nil
	case "pdf":
		subtitle := fmt.Sprintf("Case %s | %s | SHA-256 %s", item.CaseID, item.OriginalFilename, item.DigestSHA256)
		content, err := s.pdf.Render(data, "Chain of Custody", subtitle)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render custody report")
		}
		return content, "application/pdf", custodyReportFilename(item, "pdf"), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf")
	}
}

func custodyReportFilename(item *models.Evidence, ext string) string {
	return fmt.Sprintf("custody_%s_%d.%s", item.CaseID, time.Now().Unix(), ext)
}

func (s *EvidenceService) escalateIntegrity(key, want, got, actorID string) {
	s.metrics.RecordIntegrityViolation()
	s.logger.Error("evidence integrity violation",
		zap.String("key", key),
		zap.String("expected_digest", want),
		zap.String("actual_digest", got))
	s.emitAudit(actorID, models.AuditActionIntegrityAlert, key, map[string]interface{}{
		"expectedDigest": want,
		"actualDigest":   got,
	})
}

func (s *EvidenceService) appendCustody(ctx context.Context, key, action, actorID, note string) {
	entry := &models.CustodyEntry{
		StorageKey: key,
		Action:     action,
		ActorID:    actorID,
		Note:       note,
	}
	if err := s.repo.AppendCustody(ctx, entry); err != nil {
		s.logger.Error("failed to append custody entry",
			zap.String("key", key), zap.String("action", action), zap.Error(err))
	}
}

func (s *EvidenceService) emitAudit(actorID, action, key string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var raw json.RawMessage
	if detail != nil {
		raw, _ = json.Marshal(detail)
	}
	s.audit.Record(&models.AuditEvent{
		ActorID:     actorID,
		Action:      action,
		ResourceKey: key,
		Detail:      raw,
	})
}

func isElevated(role models.UserRole) bool {
	for _, elevated := range models.ElevatedRoles {
		if role == elevated {
			return true
		}
	}
	return false
}
