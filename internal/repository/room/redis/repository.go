package redis

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc        *redis.Client
	namespace string
	logger    *slog.Logger
}

// NewRepo keeps every key under namespace, which callers make unique per process so that nothing outlives a restart.
func NewRepo(rc *redis.Client, namespace string, logger *slog.Logger) *repo {
	return &repo{
		rc:        rc,
		namespace: namespace,
		logger:    logger,
	}
}
