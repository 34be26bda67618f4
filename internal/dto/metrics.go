package dto

import (
	"time"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

// StorageAlert flags one exceeded operator threshold.
type StorageAlert struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// CostEstimate breaks the projected monthly bill down by tier.
type CostEstimate struct {
	StandardUSD   float64 `json:"standardUsd"`
	InfrequentUSD float64 `json:"infrequentUsd"`
	ArchiveUSD    float64 `json:"archiveUsd"`
	RequestsUSD   float64 `json:"requestsUsd"`
	TotalUSD      float64 `json:"totalUsd"`
}

// StorageReport is the metadata-derived view of the evidence store. It never
// touches artifact bytes.
type StorageReport struct {
	GeneratedAt    time.Time              `json:"generatedAt"`
	Window         string                 `json:"window,omitempty"`
	TotalArtifacts int64                  `json:"totalArtifacts"`
	TotalBytes     int64                  `json:"totalBytes"`
	ByEvidenceType []models.StorageTotals `json:"byEvidenceType"`
	ByCase         []models.StorageTotals `json:"byCase"`
	ByStorageClass []models.StorageTotals `json:"byStorageClass"`
	DailyTrend     []models.DailyUploads  `json:"dailyTrend"`
	UploadsLast24h int64                  `json:"uploadsLast24h"`
	EstimatedCost  CostEstimate           `json:"estimatedCost"`
	Alerts         []StorageAlert         `json:"alerts"`
	FromCache      bool                   `json:"fromCache"`
}
