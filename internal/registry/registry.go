// Package registry maps GitHub repository ids to notification chat ids.
package registry

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
)

// Registry stores which chat is notified for which repository
type Registry interface {
	// Get returns the chat registered for repoID, or None when the
	// repository is unknown.
	Get(ctx context.Context, repoID int64) (fn.Option[int64], error)

	// Put registers or replaces the chat for repoID
	Put(ctx context.Context, repoID, chatID int64) error

	// List returns every mapping ordered by repository id
	List(ctx context.Context) ([]models.RepoChatMapping, error)

	Close() error
}

// Open opens the backend selected by cfg
func Open(cfg config.RegistryConfig, log *logger.Logger) (Registry, error) {
	switch cfg.Backend {
	case config.RegistrySQLite:
		return OpenSQLite(cfg.Path, log)
	case config.RegistryFile:
		return OpenFile(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown registry backend: %q", cfg.Backend)
	}
}

// Copy writes every mapping in src into dst and returns how many were copied
func Copy(ctx context.Context, dst, src Registry) (int, error) {
	mappings, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source registry: %w", err)
	}

	for i, m := range mappings {
		if err := dst.Put(ctx, m.RepoID, m.ChatID); err != nil {
			return i, fmt.Errorf("copy repo %d: %w", m.RepoID, err)
		}
	}
	return len(mappings), nil
}
