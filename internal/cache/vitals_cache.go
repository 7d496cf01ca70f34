package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	latestKeyFormat = "ward:subject:%d:latest"
	alertsKeyFormat = "ward:subject:%d:alerts"
)

// VitalsCache keeps the per-subject latest-reading snapshot (and the
// current alert set) in Redis so dashboard reads skip Postgres. It is a
// best-effort layer: every miss or Redis error falls through to the
// database.
type VitalsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func New(cfg config.RedisConfig, log *logger.Logger) (*VitalsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &VitalsCache{
		client: client,
		ttl:    cfg.SnapshotTTL,
		log:    log,
	}, nil
}

// NewWithClient wires an existing client; used by tests with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *VitalsCache {
	return &VitalsCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *VitalsCache) Close() error {
	return c.client.Close()
}

func (c *VitalsCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetLatestReading overwrites the subject's snapshot.
func (c *VitalsCache) SetLatestReading(ctx context.Context, reading *models.VitalsReading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	key := fmt.Sprintf(latestKeyFormat, reading.SubjectID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache reading: %w", err)
	}

	return nil
}

// GetLatestReading returns the cached snapshot, or nil on a miss.
func (c *VitalsCache) GetLatestReading(ctx context.Context, subjectID int) (*models.VitalsReading, error) {
	key := fmt.Sprintf(latestKeyFormat, subjectID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached reading: %w", err)
	}

	var reading models.VitalsReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}

	return &reading, nil
}

// SetActiveAlerts mirrors the in-memory alert set for cross-process
// readers (e.g. a reporting job). An empty set removes the key.
func (c *VitalsCache) SetActiveAlerts(ctx context.Context, subjectID int, alerts []models.Alert) error {
	key := fmt.Sprintf(alertsKeyFormat, subjectID)

	if len(alerts) == 0 {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear cached alerts: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache alerts: %w", err)
	}

	return nil
}

// GetActiveAlerts returns the mirrored alert set, or nil on a miss.
func (c *VitalsCache) GetActiveAlerts(ctx context.Context, subjectID int) ([]models.Alert, error) {
	key := fmt.Sprintf(alertsKeyFormat, subjectID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached alerts: %w", err)
	}

	var alerts []models.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached alerts: %w", err)
	}

	return alerts, nil
}
