package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/dto"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

type metricsSource interface {
	Totals(ctx context.Context, since time.Time) (*models.StorageTotals, error)
	TotalsBy(ctx context.Context, column string, since time.Time) ([]models.StorageTotals, error)
	DailyTrend(ctx context.Context, since time.Time) ([]models.DailyUploads, error)
	UploadsSince(ctx context.Context, since time.Time) (int64, error)
}

const bytesPerGB = 1024 * 1024 * 1024

// StorageMetricsService derives storage reports from metadata alone; it
// never reads artifact bytes. Reports are cached in Redis because the
// aggregate queries scan the whole evidence table.
type StorageMetricsService struct {
	source metricsSource
	cache  *redis.Client
	audit  *AuditRecorder
	logger *zap.Logger
	cfg    config.MetricsConfig
}

// NewStorageMetricsService constructs the aggregator. A nil cache disables
// caching.
func NewStorageMetricsService(source metricsSource, cache *redis.Client, audit *AuditRecorder, logger *zap.Logger, cfg config.MetricsConfig) *StorageMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &StorageMetricsService{
		source: source,
		cache:  cache,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
	}
}

// Report builds the storage report for the given window. A zero window
// covers all history. Every served report is recorded in the audit trail,
// cache hits included.
func (s *StorageMetricsService) Report(ctx context.Context, window time.Duration, actor *models.JWTClaims) (*dto.StorageReport, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	cacheKey := fmt.Sprintf("storage-metrics:%s", window)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		s.emitViewed(actor.UserID, window, true)
		return cached, nil
	}

	now := time.Now().UTC()
	var since time.Time
	if window > 0 {
		since = now.Add(-window)
	}

	totals, err := s.source.Totals(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate totals")
	}
	byType, err := s.source.TotalsBy(ctx, "evidence_type", since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by type")
	}
	byCase, err := s.source.TotalsBy(ctx, "case_id", since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by case")
	}
	byClass, err := s.source.TotalsBy(ctx, "storage_class", since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by class")
	}
	trendSince := since
	if trendSince.IsZero() {
		trendSince = now.AddDate(0, 0, -30)
	}
	trend, err := s.source.DailyTrend(ctx, trendSince)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate trend")
	}
	uploads24h, err := s.source.UploadsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count uploads")
	}

	report := &dto.StorageReport{
		GeneratedAt:    now,
		TotalArtifacts: totals.Count,
		TotalBytes:     totals.TotalBytes,
		ByEvidenceType: byType,
		ByCase:         byCase,
		ByStorageClass: byClass,
		DailyTrend:     trend,
		UploadsLast24h: uploads24h,
	}
	if window > 0 {
		report.Window = window.String()
	}
	report.EstimatedCost = s.estimateCost(byClass, totals.Count)
	report.Alerts = s.evaluateAlerts(report)

	s.toCache(ctx, cacheKey, report)
	s.emitViewed(actor.UserID, window, false)
	return report, nil
}

func (s *StorageMetricsService) emitViewed(actorID string, window time.Duration, fromCache bool) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"window":    window.String(),
		"fromCache": fromCache,
	})
	s.audit.Record(&models.AuditEvent{
		ActorID:     actorID,
		Action:      models.AuditActionMetricsViewed,
		ResourceKey: "storage-metrics",
		Detail:      detail,
	})
}

func (s *StorageMetricsService) estimateCost(byClass []models.StorageTotals, artifacts int64) dto.CostEstimate {
	var est dto.CostEstimate
	for _, row := range byClass {
		gb := float64(row.TotalBytes) / bytesPerGB
		switch models.StorageClass(row.Group) {
		case models.StorageClassStandard:
			est.StandardUSD += gb * s.cfg.StandardRatePerGB
		case models.StorageClassArchive:
			est.ArchiveUSD += gb * s.cfg.ArchiveRatePerGB
		default:
			est.InfrequentUSD += gb * s.cfg.InfrequentRatePerGB
		}
	}
	est.RequestsUSD = float64(artifacts) / 1000 * s.cfg.RequestRatePer1000
	est.TotalUSD = est.StandardUSD + est.InfrequentUSD + est.ArchiveUSD + est.RequestsUSD
	return est
}

func (s *StorageMetricsService) evaluateAlerts(report *dto.StorageReport) []dto.StorageAlert {
	alerts := []dto.StorageAlert{}
	if s.cfg.MaxTotalBytes > 0 && report.TotalBytes > s.cfg.MaxTotalBytes {
		alerts = append(alerts, dto.StorageAlert{
			Code:      "STORAGE_VOLUME",
			Message:   "total stored bytes exceed the configured ceiling",
			Value:     float64(report.TotalBytes),
			Threshold: float64(s.cfg.MaxTotalBytes),
		})
	}
	if s.cfg.MaxArtifactCount > 0 && report.TotalArtifacts > s.cfg.MaxArtifactCount {
		alerts = append(alerts, dto.StorageAlert{
			Code:      "ARTIFACT_COUNT",
			Message:   "artifact count exceeds the configured ceiling",
			Value:     float64(report.TotalArtifacts),
			Threshold: float64(s.cfg.MaxArtifactCount),
		})
	}
	if s.cfg.MaxMonthlyCostUSD > 0 && report.EstimatedCost.TotalUSD > s.cfg.MaxMonthlyCostUSD {
		alerts = append(alerts, dto.StorageAlert{
			Code:      "MONTHLY_COST",
			Message:   "estimated monthly cost exceeds budget",
			Value:     report.EstimatedCost.TotalUSD,
			Threshold: s.cfg.MaxMonthlyCostUSD,
		})
	}
	if s.cfg.MaxUploadsPerDay > 0 && report.UploadsLast24h > s.cfg.MaxUploadsPerDay {
		alerts = append(alerts, dto.StorageAlert{
			Code:      "UPLOAD_VELOCITY",
			Message:   "upload rate over the last 24h exceeds the configured ceiling",
			Value:     float64(report.UploadsLast24h),
			Threshold: float64(s.cfg.MaxUploadsPerDay),
		})
	}
	return alerts
}

func (s *StorageMetricsService) fromCache(ctx context.Context, key string) *dto.StorageReport {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	report := &dto.StorageReport{}
	if err := json.Unmarshal(raw, report); err != nil {
		return nil
	}
	report.FromCache = true
	return report
}

func (s *StorageMetricsService) toCache(ctx context.Context, key string, report *dto.StorageReport) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache storage report", zap.Error(err))
	}
}
