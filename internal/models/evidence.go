package models

import (
	"time"

	"github.com/lib/pq"
)

// StorageClass is the cost/latency tier an object lives in.
type StorageClass string

const (
	StorageClassStandard   StorageClass = "STANDARD"
	StorageClassInfrequent StorageClass = "STANDARD_IA"
	StorageClassArchive    StorageClass = "DEEP_ARCHIVE"
)

// Custody actions recorded on every lifecycle transition of an artifact.
const (
	CustodyActionUploaded      = "UPLOADED"
	CustodyActionDownloaded    = "DOWNLOADED"
	CustodyActionBackupCreated = "BACKUP_CREATED"
	CustodyActionDeleted       = "DELETED"
	CustodyActionRestoreReq    = "RESTORE_REQUESTED"
)

// Evidence is the metadata record for one stored artifact. The storage key
// is the identity; case linkage is immutable once set. Rows are never hard
// deleted, IsDeleted is the tombstone.
type Evidence struct {
	StorageKey       string         `db:"storage_key" json:"storageKey"`
	CaseID           string         `db:"case_id" json:"caseId"`
	OriginalFilename string         `db:"original_filename" json:"originalFilename"`
	Description      string         `db:"description" json:"description,omitempty"`
	Source           string         `db:"source" json:"source,omitempty"`
	EvidenceType     string         `db:"evidence_type" json:"evidenceType"`
	Tags             pq.StringArray `db:"tags" json:"tags,omitempty"`
	ContentType      string         `db:"content_type" json:"contentType"`
	SizeBytes        int64          `db:"size_bytes" json:"sizeBytes"`
	// DigestSHA256 is authoritative; ETag is the backend's transport tag.
	DigestSHA256   string       `db:"digest_sha256" json:"digestSha256"`
	ETag           string       `db:"etag" json:"etag,omitempty"`
	StorageClass   StorageClass `db:"storage_class" json:"storageClass"`
	EncryptionMode string       `db:"encryption_mode" json:"encryptionMode"`
	BackupKey      *string      `db:"backup_key" json:"backupKey,omitempty"`
	UploadedBy     string       `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt     time.Time    `db:"uploaded_at" json:"uploadedAt"`
	IsDeleted      bool         `db:"is_deleted" json:"isDeleted"`
	DeletedAt      *time.Time   `db:"deleted_at" json:"deletedAt,omitempty"`

	// ChainOfCustody is loaded separately; append-only.
	ChainOfCustody []CustodyEntry `db:"-" json:"chainOfCustody,omitempty"`
}

// CustodyEntry is one link in an artifact's chain of custody. Entries are
// inserted exactly once per transition and never edited or removed.
type CustodyEntry struct {
	ID         string    `db:"id" json:"id"`
	StorageKey string    `db:"storage_key" json:"-"`
	Action     string    `db:"action" json:"action"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
	Note       string    `db:"note" json:"note,omitempty"`
}

// EvidenceFilter narrows listing queries.
type EvidenceFilter struct {
	CaseID         string
	EvidenceType   string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// StorageTotals is the aggregate the metrics service reads per group.
type StorageTotals struct {
	Group      string `db:"grp" json:"group"`
	Count      int64  `db:"cnt" json:"count"`
	TotalBytes int64  `db:"total_bytes" json:"totalBytes"`
}

// DailyUploads is one point of the upload trend series.
type DailyUploads struct {
	Day        time.Time `db:"day" json:"day"`
	Count      int64     `db:"cnt" json:"count"`
	TotalBytes int64     `db:"total_bytes" json:"totalBytes"`
}
