package dto

import "time"

// UploadEvidenceRequest is the metadata half of a multipart upload.
type UploadEvidenceRequest struct {
	CaseID       string   `form:"caseId" binding:"required,max=64"`
	EvidenceType string   `form:"evidenceType" binding:"required,oneof=PHOTO VIDEO AUDIO DOCUMENT OTHER"`
	Description  string   `form:"description" binding:"max=2000"`
	Source       string   `form:"source" binding:"max=255"`
	Tags         []string `form:"tags" binding:"max=16,dive,max=64"`
}

// ListEvidenceQuery narrows listing requests.
type ListEvidenceQuery struct {
	CaseID         string `form:"caseId" binding:"required,max=64"`
	EvidenceType   string `form:"evidenceType" binding:"omitempty,oneof=PHOTO VIDEO AUDIO DOCUMENT OTHER"`
	IncludeDeleted bool   `form:"includeDeleted"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
}

// PresignUploadRequest asks for a direct-upload capability URL.
type PresignUploadRequest struct {
	CaseID       string `json:"caseId" binding:"required,max=64"`
	Filename     string `json:"filename" binding:"required,max=255"`
	ContentType  string `json:"contentType" binding:"required,max=128"`
	EvidenceType string `json:"evidenceType" binding:"required,oneof=PHOTO VIDEO AUDIO DOCUMENT OTHER"`
	TTLSeconds   int    `json:"ttlSeconds" binding:"omitempty,min=1"`
}

// CapabilityResponse carries a minted presigned URL. The URL embeds its own
// expiry; ExpiresAt mirrors it for clients.
type CapabilityResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RestoreRequest asks for reactivation of an archived backup copy. Days and
// Tier default to the configured retention policy when omitted.
type RestoreRequest struct {
	Key  string `json:"key" binding:"required"`
	Days int    `json:"days" binding:"omitempty,min=1,max=30"`
	Tier string `json:"tier" binding:"omitempty,oneof=Expedited Standard Bulk"`
}
