package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/blob"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

type evidenceRepoStub struct {
	mu        sync.Mutex
	items     map[string]*models.Evidence
	custody   map[string][]models.CustodyEntry
	createErr error
}

func newEvidenceRepoStub() *evidenceRepoStub {
	return &evidenceRepoStub{
		items:   make(map[string]*models.Evidence),
		custody: make(map[string][]models.CustodyEntry),
	}
}

func (r *evidenceRepoStub) Create(ctx context.Context, item *models.Evidence) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.StorageKey] = &copied
	return nil
}

func (r *evidenceRepoStub) GetByKey(ctx context.Context, key string) (*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[key]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *evidenceRepoStub) List(ctx context.Context, filter models.EvidenceFilter) ([]models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Evidence, 0, len(r.items))
	for _, item := range r.items {
		if filter.CaseID != "" && item.CaseID != filter.CaseID {
			continue
		}
		if item.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (r *evidenceRepoStub) MarkDeleted(ctx context.Context, key string, backupKey *string, deletedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[key]
	if !ok || item.IsDeleted {
		return sql.ErrNoRows
	}
	item.IsDeleted = true
	item.DeletedAt = &deletedAt
	item.BackupKey = backupKey
	return nil
}

func (r *evidenceRepoStub) AppendCustody(ctx context.Context, entry *models.CustodyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	r.custody[entry.StorageKey] = append(r.custody[entry.StorageKey], *entry)
	return nil
}

func (r *evidenceRepoStub) ListCustody(ctx context.Context, key string) ([]models.CustodyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.CustodyEntry(nil), r.custody[key]...), nil
}

func (r *evidenceRepoStub) custodyActions(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.custody[key]))
	for _, entry := range r.custody[key] {
		actions = append(actions, entry.Action)
	}
	return actions
}

type blobStoreStub struct {
	mu          sync.Mutex
	objects     map[string][]byte
	putCalls    int
	putErr      error
	getErr      error
	copyErr     error
	headErr     error
	deleteErr   error
	copied      []string
	copyClass   models.StorageClass
	deleted     []string
	restoreKey  string
	restoreDays int
	restoreTier string

	putDeadline time.Time
	getDeadline time.Time
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{objects: make(map[string][]byte)}
}

func (s *blobStoreStub) Put(ctx context.Context, in blob.PutInput) (*blob.StoredInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	s.putDeadline, _ = ctx.Deadline()
	if s.putErr != nil {
		return nil, s.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.objects[in.Key] = data
	return &blob.StoredInfo{ETag: `"stub-etag"`, EncryptionMode: "AES256"}, nil
}

func (s *blobStoreStub) Get(ctx context.Context, key string) (*blob.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getDeadline, _ = ctx.Deadline()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &blob.Object{
		Body:      io.NopCloser(bytes.NewReader(data)),
		SizeBytes: int64(len(data)),
	}, nil
}

func (s *blobStoreStub) Head(ctx context.Context, key string) (*blob.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headErr != nil {
		return nil, s.headErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &blob.ObjectInfo{SizeBytes: int64(len(data))}, nil
}

func (s *blobStoreStub) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *blobStoreStub) Copy(ctx context.Context, srcKey, dstKey string, class models.StorageClass, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyErr != nil {
		return s.copyErr
	}
	data, ok := s.objects[srcKey]
	if !ok {
		return appErrors.ErrNotFound
	}
	s.objects[dstKey] = append([]byte(nil), data...)
	s.copied = append(s.copied, srcKey+"->"+dstKey)
	s.copyClass = class
	return nil
}

func (s *blobStoreStub) Restore(ctx context.Context, key string, days int, tier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreKey = key
	s.restoreDays = days
	s.restoreTier = tier
	return nil
}

func (s *blobStoreStub) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	}
	return result, nil
}

type auditSinkStub struct {
	mu     sync.Mutex
	events []*models.AuditEvent
	err    error
}

func (s *auditSinkStub) Create(ctx context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *auditSinkStub) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.events))
	for _, event := range s.events {
		actions = append(actions, event.Action)
	}
	return actions
}

func officerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "officer-7", Role: models.RoleOfficer}
}

func supervisorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "supervisor-1", Role: models.RoleSupervisor}
}
