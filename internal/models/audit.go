package models

import (
	"encoding/json"
	"time"
)

// Audit actions are the enumerated verbs recorded per operation. Every
// state-changing or access-granting operation produces exactly one event.
const (
	AuditActionUploaded         = "UPLOADED"
	AuditActionDownloaded       = "DOWNLOADED"
	AuditActionDeleted          = "DELETED"
	AuditActionBackupCreated    = "BACKUP_CREATED"
	AuditActionRestoreRequested = "RESTORE_REQUESTED"
	AuditActionCapabilityIssued = "CAPABILITY_ISSUED"
	AuditActionIntegrityAlert   = "INTEGRITY_VIOLATION"
	AuditActionMetricsViewed    = "METRICS_VIEWED"
)

// SystemActorID marks events produced by background jobs.
const SystemActorID = "system"

// AuditEvent is one append-only audit trail record.
type AuditEvent struct {
	ID          string          `db:"id" json:"id"`
	ActorID     string          `db:"actor_id" json:"actorId"`
	Action      string          `db:"action" json:"action"`
	ResourceKey string          `db:"resource_key" json:"resourceKey"`
	Detail      json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
