package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/blob"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/keys"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

// keyLocks serialises retirement per storage key so concurrent deletes of
// the same artifact cannot interleave the backup and delete steps. Entries
// are reference counted and reclaimed once the last holder releases.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// RetentionService retires evidence under the backup-before-delete policy.
// The live object is removed only after its archive copy is confirmed; a
// failed backup leaves the artifact fully intact.
type RetentionService struct {
	repo    evidenceStore
	store   blob.Store
	audit   *AuditRecorder
	logger  *zap.Logger
	locks   *keyLocks
	cfg     config.RetentionConfig
	archive models.StorageClass
}

// NewRetentionService constructs the engine.
func NewRetentionService(repo evidenceStore, store blob.Store, audit *AuditRecorder, logger *zap.Logger, cfg config.RetentionConfig, archiveClass string) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 2555
	}
	if cfg.RestoreDefaultDays <= 0 {
		cfg.RestoreDefaultDays = 7
	}
	if cfg.RestoreTier == "" {
		cfg.RestoreTier = "Standard"
	}
	class := models.StorageClass(archiveClass)
	if class == "" {
		class = models.StorageClassArchive
	}
	return &RetentionService{
		repo:    repo,
		store:   store,
		audit:   audit,
		logger:  logger,
		locks:   newKeyLocks(),
		cfg:     cfg,
		archive: class,
	}
}

// Delete retires one artifact. With backup enabled the flow is copy,
// verify, delete, tombstone; any backup failure aborts before the live
// object is touched. Deleting an already retired artifact is a no-op.
func (s *RetentionService) Delete(ctx context.Context, key string, backup bool, actor *models.JWTClaims) (*models.Evidence, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !isElevated(actor.Role) {
		return nil, appErrors.ErrForbidden
	}

	unlock := s.locks.lock(key)
	defer unlock()

	item, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	if item.IsDeleted {
		return item, nil
	}

	var backupKey *string
	if backup {
		archiveKey := keys.ArchiveKey(key)
		tags := map[string]string{
			"retention-days": fmt.Sprintf("%d", s.cfg.RetentionDays),
			"evidence-type":  item.EvidenceType,
		}
		if err := s.store.Copy(ctx, key, archiveKey, s.archive, tags); err != nil {
			// Fail closed: the live object stays untouched.
			return nil, err
		}
		if _, err := s.store.Head(ctx, archiveKey); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code,
				appErrors.ErrBackendUnavailable.Status, "backup copy not confirmed")
		}
		backupKey = &archiveKey
		s.appendCustody(ctx, key, models.CustodyActionBackupCreated, actor.UserID, archiveKey)
		s.emitAudit(actor.UserID, models.AuditActionBackupCreated, key, archiveKey)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkDeleted(ctx, key, backupKey, now); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tombstone evidence")
		}
		// Row already tombstoned; the bytes are gone either way.
	}

	s.appendCustody(ctx, key, models.CustodyActionDeleted, actor.UserID, "")
	s.emitAudit(actor.UserID, models.AuditActionDeleted, key, "")

	item.IsDeleted = true
	item.DeletedAt = &now
	item.BackupKey = backupKey
	return item, nil
}

// RequestRestore asks the backend to thaw the archived backup of a retired
// artifact. Zero days or an empty tier fall back to the configured policy;
// the thaw itself is asynchronous at the backend.
func (s *RetentionService) RequestRestore(ctx context.Context, key string, days int, tier string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !isElevated(actor.Role) {
		return appErrors.ErrForbidden
	}

	item, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	if !item.IsDeleted {
		return appErrors.Clone(appErrors.ErrValidation, "evidence is not retired")
	}
	if item.BackupKey == nil || *item.BackupKey == "" {
		return appErrors.Clone(appErrors.ErrValidation, "no backup recorded for this evidence")
	}

	if days <= 0 {
		days = s.cfg.RestoreDefaultDays
	}
	if tier == "" {
		tier = s.cfg.RestoreTier
	}
	if err := s.store.Restore(ctx, *item.BackupKey, days, tier); err != nil {
		return err
	}

	s.appendCustody(ctx, key, models.CustodyActionRestoreReq, actor.UserID, *item.BackupKey)
	s.emitAudit(actor.UserID, models.AuditActionRestoreRequested, key, *item.BackupKey)
	return nil
}

func (s *RetentionService) appendCustody(ctx context.Context, key, action, actorID, note string) {
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

func (s *RetentionService) emitAudit(actorID, action, key, note string) {
	if s.audit == nil {
		return
	}
	event := &models.AuditEvent{
		ActorID:     actorID,
		Action:      action,
		ResourceKey: key,
	}
	if note != "" {
		event.Detail = fmt.Appendf(nil, `{"backupKey":%q}`, note)
	}
	s.audit.Record(event)
}
