package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/blob"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/keys"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

// CapabilityService mints presigned URLs so artifact bytes transfer
// directly between clients and the storage backend. Issuance is always
// audited; redemption happens at the backend and is not observed here.
type CapabilityService struct {
	presigner blob.Presigner
	gate      *uploadGate
	audit     *AuditRecorder
	logger    *zap.Logger
	cfg       config.PresignConfig
}

// NewCapabilityService constructs the issuer.
func NewCapabilityService(presigner blob.Presigner, gate *uploadGate, audit *AuditRecorder, logger *zap.Logger, cfg config.PresignConfig) *CapabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 15 * time.Minute
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 4 * time.Hour
	}
	return &CapabilityService{
		presigner: presigner,
		gate:      gate,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// IssueDownload mints a download capability for an existing key. TTL bounds
// are enforced before any backend call.
func (s *CapabilityService) IssueDownload(ctx context.Context, key string, ttl time.Duration, actor *models.JWTClaims) (*dto.CapabilityResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ttl, err := s.clampTTL(ttl)
	if err != nil {
		return nil, err
	}

	url, err := s.presigner.PresignGet(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(ttl)

	s.emitIssued(actor.UserID, key, "download", ttl)
	return &dto.CapabilityResponse{URL: url, Key: key, ExpiresAt: expiresAt}, nil
}

// IssueUpload derives a fresh key and mints an upload capability pinned to
// the declared content type. The content-type gate applies here exactly as
// it does for proxied uploads; byte size is enforced by the backend policy
// once the client redeems the URL.
func (s *CapabilityService) IssueUpload(ctx context.Context, req dto.PresignUploadRequest, actor *models.JWTClaims) (*dto.CapabilityResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.gate != nil && !s.gate.typeAllowed(req.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrPayloadRejected,
			fmt.Sprintf("content type %s not allowed", req.ContentType))
	}
	ttl, err := s.clampTTL(time.Duration(req.TTLSeconds) * time.Second)
	if err != nil {
		return nil, err
	}

	key := keys.DeriveKey(req.CaseID, req.Filename, actor.UserID)
	metadata := map[string]string{
		"case-id":       req.CaseID,
		"uploaded-by":   actor.UserID,
		"evidence-type": req.EvidenceType,
	}
	url, err := s.presigner.PresignPut(ctx, key, req.ContentType, metadata, ttl)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(ttl)

	s.emitIssued(actor.UserID, key, "upload", ttl)
	return &dto.CapabilityResponse{URL: url, Key: key, ExpiresAt: expiresAt}, nil
}

func (s *CapabilityService) clampTTL(ttl time.Duration) (time.Duration, error) {
	if ttl <= 0 {
		return s.cfg.DefaultTTL, nil
	}
	if ttl > s.cfg.MaxTTL {
		return 0, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("ttl exceeds maximum of %s", s.cfg.MaxTTL))
	}
	return ttl, nil
}

func (s *CapabilityService) emitIssued(actorID, key, mode string, ttl time.Duration) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{"mode": mode, "ttl": ttl.String()})
	s.audit.Record(&models.AuditEvent{
		ActorID:     actorID,
		Action:      models.AuditActionCapabilityIssued,
		ResourceKey: key,
		Detail:      detail,
	})
}
