package session

import (
	"context"
	"log/slog"
	"time"
)

// StorageWatchInterval is how often StartStorageWatcher reconciles.
const StorageWatchInterval = 30 * time.Second

// StartStorageWatcher reconciles the store against persisted storage every
// interval until ctx is done, so a credential removed from the database by
// another process ends the session here too.
func StartStorageWatcher(ctx context.Context, s *Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Storage watcher started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				s.Reconcile(ctx)
			case <-ctx.Done():
				slog.Info("Storage watcher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
