package storage

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"assistbot/internal/config"
	"assistbot/internal/domain"
)

// Store is a TodoStore that owns resources.
type Store interface {
	domain.TodoStore
	Close() error
}

// Open builds the store selected by cfg.Backend. awsCfg is only used by the
// dynamodb backend.
func Open(cfg config.StorageConfig, awsCfg aws.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "dynamodb":
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		logger.Info("todo store", "backend", "dynamodb", "table", cfg.Table)
		return NewDynamoDBStore(client, cfg.Table, logger), nil

	case "sqlite":
		s, err := NewSQLiteStore(config.ExpandPath(cfg.DBPath), logger)
		if err != nil {
			return nil, err
		}
		logger.Info("todo store", "backend", "sqlite", "path", cfg.DBPath)
		return s, nil

	case "memory":
		logger.Warn("todo store is in-memory; lists are lost on exit")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
