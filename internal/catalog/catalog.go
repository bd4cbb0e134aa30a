// Package catalog is the read-mostly store of services and resources.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// Store reads the catalog tables, with an optional Redis cache in front.
// Writes (seeding, admin edits) invalidate the cache.
type Store struct {
	db       *database.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func New(db *database.DB, logger *zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// UseRedisCache enables read-through caching of catalog listings.
func (s *Store) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	s.redis = redisClient
	s.cacheTTL = ttl
}

// ListServices returns active services ordered by id.
func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	const cacheKey = "catalog:services"

	var cached []models.Service
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_min, price, step_min, active
		FROM services WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMin, &svc.Price, &svc.StepMin, &svc.Active); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.writeCache(ctx, cacheKey, services)
	return services, nil
}

// GetService returns a service by id, database.ErrNotFound when absent.
func (s *Store) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var svc models.Service
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, duration_min, price, step_min, active
		FROM services WHERE id = ?`, id,
	).Scan(&svc.ID, &svc.Name, &svc.DurationMin, &svc.Price, &svc.StepMin, &svc.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("service %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// ListResources returns active resources of a service ordered by id.
func (s *Store) ListResources(ctx context.Context, serviceID int64) ([]models.Resource, error) {
	cacheKey := fmt.Sprintf("catalog:resources:%d", serviceID)

	var cached []models.Resource
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, name, capacity, open_time, close_time, active
		FROM resources WHERE active = 1 AND service_id = ? ORDER BY id`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(&res.ID, &res.ServiceID, &res.Name, &res.Capacity, &res.OpenTime, &res.CloseTime, &res.Active); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.writeCache(ctx, cacheKey, resources)
	return resources, nil
}

// GetResource returns a resource by id, database.ErrNotFound when absent.
func (s *Store) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	var res models.Resource
	err := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, name, capacity, open_time, close_time, active
		FROM resources WHERE id = ?`, id,
	).Scan(&res.ID, &res.ServiceID, &res.Name, &res.Capacity, &res.OpenTime, &res.CloseTime, &res.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resource %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &res, nil
}

// SeedDefaults describes the catalog created on first start.
type SeedDefaults struct {
	ServiceName     string
	DurationMinutes int
	Price           int64
	StepMinutes     int
	Resources       []SeedResource
}

type SeedResource struct {
	Name      string
	Capacity  int
	OpenTime  string
	CloseTime string
}

// Seed inserts the default service and resources if they do not exist yet.
// Existing rows are left untouched, so it is safe to run on every start.
func (s *Store) Seed(ctx context.Context, defaults SeedDefaults) error {
	if defaults.ServiceName == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO services (name, duration_min, price, step_min, active)
		VALUES (?, ?, ?, ?, 1)`,
		defaults.ServiceName, defaults.DurationMinutes, defaults.Price, defaults.StepMinutes,
	)
	if err != nil {
		return fmt.Errorf("seed service: %w", err)
	}

	var serviceID int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM services WHERE name = ?", defaults.ServiceName,
	).Scan(&serviceID); err != nil {
		return fmt.Errorf("seed service lookup: %w", err)
	}

	for _, r := range defaults.Resources {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO resources (service_id, name, capacity, open_time, close_time, active)
			VALUES (?, ?, ?, ?, ?, 1)`,
			serviceID, r.Name, r.Capacity, r.OpenTime, r.CloseTime,
		)
		if err != nil {
			return fmt.Errorf("seed resource %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.invalidateCache(ctx)
	s.logger.Info().Str("service", defaults.ServiceName).Int("resources", len(defaults.Resources)).Msg("catalog seeded")
	return nil
}
