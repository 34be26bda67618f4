package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

// AuditRepository persists the append-only audit trail. No update or
// delete statements exist for audit_events.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit event.
func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events (id, actor_id, action, resource_key, detail, created_at)
	VALUES (:id, :actor_id, :action, :resource_key, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// ListByResource returns events for one storage key, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resourceKey string, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, actor_id, action, resource_key, detail, created_at
	FROM audit_events WHERE resource_key = $1 ORDER BY created_at DESC LIMIT $2`
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, resourceKey, limit); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
