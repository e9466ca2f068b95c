package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// NewPool открывает пул соединений и проверяет доступность базы
func NewPool(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			logger.Info("Database pool closed")
			return nil
		},
	})
	return pool, nil
}
