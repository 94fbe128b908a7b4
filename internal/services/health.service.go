package services

import (
	"context"
	"time"

	"github.com/campusprint/print-gateway/pkg/pg"
	"github.com/campusprint/print-gateway/pkg/redis"
)

type HealthStatus struct {
	Healthy  bool              `json:"healthy"`
	Checks   map[string]string `json:"checks"`
	CheckedAt time.Time        `json:"checked_at"`
}

type HealthService struct {
	db    *pg.DB
	redis redis.RedisAdapter
}

func NewHealthService(db *pg.DB, r redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, redis: r}
}

func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy:   true,
		Checks:    make(map[string]string),
		CheckedAt: time.Now(),
	}

	if s.db != nil {
		sqlDB, err := s.db.Write(ctx).DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status.Healthy = false
			status.Checks["postgres"] = err.Error()
		} else {
			status.Checks["postgres"] = "ok"
		}
	}

	if s.redis != nil {
		if cmd := s.redis.Client().Ping(ctx); cmd.Err() != nil {
			status.Healthy = false
			status.Checks["redis"] = cmd.Err().Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	return status
}
