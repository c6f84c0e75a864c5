// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/dstanton/oanda-tradebot/internal/storage/models"
)

// Storage persists trading history. The bot runs fine without it; the
// runner only wires a Storage when a Postgres URL is configured.
type Storage interface {
	// Signals
	SaveSignal(ctx context.Context, signal *models.Signal) error

	// Orders
	SaveOrder(ctx context.Context, order *models.Order) error
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)

	// Closed trade sync from the broker
	UpsertClosedTrades(ctx context.Context, trades []models.ClosedTrade) error

	// Migrations
	RunMigrations() error

	Close() error
}
