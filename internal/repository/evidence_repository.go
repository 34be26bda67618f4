package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

const evidenceColumns = `storage_key, case_id, original_filename, description, source, evidence_type,
       tags, content_type, size_bytes, digest_sha256, etag, storage_class, encryption_mode,
       backup_key, uploaded_by, uploaded_at, is_deleted, deleted_at`

// EvidenceRepository handles evidence metadata persistence. Evidence rows
// are never hard deleted; custody entries are insert-only.
type EvidenceRepository struct {
	db *sqlx.DB
}

// NewEvidenceRepository constructs the repository.
func NewEvidenceRepository(db *sqlx.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create stores metadata for a freshly uploaded artifact.
func (r *EvidenceRepository) Create(ctx context.Context, item *models.Evidence) error {
	if item.UploadedAt.IsZero() {
		item.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO evidence
	(storage_key, case_id, original_filename, description, source, evidence_type, tags, content_type,
	 size_bytes, digest_sha256, etag, storage_class, encryption_mode, backup_key, uploaded_by, uploaded_at, is_deleted, deleted_at)
	VALUES (:storage_key, :case_id, :original_filename, :description, :source, :evidence_type, :tags, :content_type,
	 :size_bytes, :digest_sha256, :etag, :storage_class, :encryption_mode, :backup_key, :uploaded_by, :uploaded_at, :is_deleted, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create evidence: %w", err)
	}
	return nil
}

// GetByKey retrieves one evidence row, tombstoned or not; callers decide
// whether a tombstone is visible.
func (r *EvidenceRepository) GetByKey(ctx context.Context, key string) (*models.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE storage_key = $1`
	var item models.Evidence
	if err := r.db.GetContext(ctx, &item, query, key); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns evidence rows applying filters, excluding tombstones by default.
func (r *EvidenceRepository) List(ctx context.Context, filter models.EvidenceFilter) ([]models.Evidence, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + evidenceColumns + ` FROM evidence`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "is_deleted = FALSE")
	}
	if filter.CaseID != "" {
		args = append(args, filter.CaseID)
		conditions = append(conditions, fmt.Sprintf("case_id = $%d", len(args)))
	}
	if filter.EvidenceType != "" {
		args = append(args, filter.EvidenceType)
		conditions = append(conditions, fmt.Sprintf("evidence_type = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.Evidence
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return records, nil
}

// MarkDeleted sets the tombstone and records the backup location. A row
// already tombstoned is left untouched and reported via sql.ErrNoRows so
// the retention engine can treat repeat deletes as no-ops.
func (r *EvidenceRepository) MarkDeleted(ctx context.Context, key string, backupKey *string, deletedAt time.Time) error {
	const query = `UPDATE evidence SET is_deleted = TRUE, deleted_at = $2, backup_key = $3
	WHERE storage_key = $1 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, key, deletedAt, backupKey)
	if err != nil {
		return fmt.Errorf("tombstone evidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tombstone rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendCustody inserts one chain-of-custody entry. There is deliberately
// no update or delete statement for custody_events anywhere in this
// repository.
func (r *EvidenceRepository) AppendCustody(ctx context.Context, entry *models.CustodyEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO custody_events (id, storage_key, action, actor_id, occurred_at, note)
	VALUES (:id, :storage_key, :action, :actor_id, :occurred_at, :note)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append custody entry: %w", err)
	}
	return nil
}

// ListCustody returns the chain for one artifact in insertion order.
func (r *EvidenceRepository) ListCustody(ctx context.Context, key string) ([]models.CustodyEntry, error) {
	const query = `SELECT id, storage_key, action, actor_id, occurred_at, note
	FROM custody_events WHERE storage_key = $1 ORDER BY occurred_at ASC, id ASC`
	var entries []models.CustodyEntry
	if err := r.db.SelectContext(ctx, &entries, query, key); err != nil {
		return nil, fmt.Errorf("list custody entries: %w", err)
	}
	return entries, nil
}

// Totals returns live artifact count and byte volume since the given time.
// A zero time means all history.
func (r *EvidenceRepository) Totals(ctx context.Context, since time.Time) (*models.StorageTotals, error) {
	const query = `SELECT '' AS grp, COUNT(*) AS cnt, COALESCE(SUM(size_bytes), 0) AS total_bytes
	FROM evidence WHERE is_deleted = FALSE AND uploaded_at >= $1`
	var totals models.StorageTotals
	if err := r.db.GetContext(ctx, &totals, query, since); err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	return &totals, nil
}

// TotalsBy groups live artifact count/bytes by one of the allowed columns.
func (r *EvidenceRepository) TotalsBy(ctx context.Context, column string, since time.Time) ([]models.StorageTotals, error) {
	switch column {
	case "evidence_type", "case_id", "storage_class":
	default:
		return nil, fmt.Errorf("unsupported grouping column %q", column)
	}
	query := fmt.Sprintf(`SELECT %s AS grp, COUNT(*) AS cnt, COALESCE(SUM(size_bytes), 0) AS total_bytes
	FROM evidence WHERE is_deleted = FALSE AND uploaded_at >= $1 GROUP BY %s ORDER BY total_bytes DESC`, column, column)
	var rows []models.StorageTotals
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", column, err)
	}
	return rows, nil
}

// DailyTrend returns per-day upload counts and volume since the given time.
func (r *EvidenceRepository) DailyTrend(ctx context.Context, since time.Time) ([]models.DailyUploads, error) {
	const query = `SELECT date_trunc('day', uploaded_at) AS day, COUNT(*) AS cnt, COALESCE(SUM(size_bytes), 0) AS total_bytes
	FROM evidence WHERE uploaded_at >= $1 GROUP BY day ORDER BY day ASC`
	var rows []models.DailyUploads
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("aggregate daily trend: %w", err)
	}
	return rows, nil
}

// UploadsSince counts uploads after the given instant, for velocity alerts.
func (r *EvidenceRepository) UploadsSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM evidence WHERE uploaded_at >= $1`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return count, nil
}
