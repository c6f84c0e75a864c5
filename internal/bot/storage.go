// internal/bot/storage.go
package bot

import (
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/storage"
	"github.com/dstanton/oanda-tradebot/internal/storage/postgres"
)

func defaultStorage(dsn string, logger *zap.Logger) (storage.Storage, error) {
	return postgres.NewStorage(dsn, logger)
}
