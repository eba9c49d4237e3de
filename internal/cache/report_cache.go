package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/config"
	"github.com/redis/go-redis/v9"
)

const reportKeyPrefix = "sales:report"

// ReportCache stores analysis results per dataset and options fingerprint.
type ReportCache interface {
	GetReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, bool, error)
	SetReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error
	InvalidateDataset(ctx context.Context, datasetID string) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

// Fingerprint identifies the output-affecting options of a run.
func Fingerprint(bonusRounding analytics.BonusRounding, topProducts int) string {
	if bonusRounding == "" {
		bonusRounding = analytics.RoundCents
	}
	if topProducts == 0 {
		topProducts = analytics.DefaultTopProducts
	}

	raw := strings.Join([]string{
		"bonus_rounding=" + string(bonusRounding),
		"top=" + strconv.Itoa(topProducts),
	}, "|")
	hash := sha1.Sum([]byte(raw))
	return hex.EncodeToString(hash[:])
}

func (c *redisReportCache) GetReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, bool, error) {
	payload, err := c.client.Get(ctx, buildReportKey(datasetID, fingerprint)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report analytics.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, buildReportKey(datasetID, fingerprint), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisReportCache) InvalidateDataset(ctx context.Context, datasetID string) error {
	return deleteKeysWithPrefix(ctx, c.client, datasetKeyPrefix(datasetID), scanBatchSize)
}

func (n *noopReportCache) GetReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateDataset(ctx context.Context, datasetID string) error {
	return nil
}

func datasetKeyPrefix(datasetID string) string {
	return fmt.Sprintf("%s:%s:", reportKeyPrefix, datasetID)
}

func buildReportKey(datasetID, fingerprint string) string {
	return datasetKeyPrefix(datasetID) + fingerprint
}
