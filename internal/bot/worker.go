// internal/bot/worker.go
package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// workerPool evaluates instruments concurrently within one cycle.
type workerPool struct {
	service *TradingService
	cycleID string
	logger  *zap.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []outcome
}

func newWorkerPool(service *TradingService, cycleID string, logger *zap.Logger) *workerPool {
	return &workerPool{
		service: service,
		cycleID: cycleID,
		logger:  logger,
	}
}

// run fans the instruments out to n workers and waits for all of them.
func (wp *workerPool) run(ctx context.Context, instruments []string, n int) []outcome {
	work := make(chan string, len(instruments))
	for _, name := range instruments {
		work <- name
	}
	close(work)

	if n > len(instruments) {
		n = len(instruments)
	}
	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i+1, work)
	}
	wp.wg.Wait()

	return wp.results
}

func (wp *workerPool) worker(ctx context.Context, id int, work <-chan string) {
	defer wp.wg.Done()
	logger := wp.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutting down due to context cancellation")
			return
		case name, ok := <-work:
			if !ok {
				return
			}
			instrumentLog := wp.service.log.WithInstrument(name).With(
				zap.String("cycle_id", wp.cycleID),
				zap.Int("worker_id", id),
			)
			out := wp.service.processInstrument(ctx, wp.cycleID, name, instrumentLog)
			wp.mu.Lock()
			wp.results = append(wp.results, out)
			wp.mu.Unlock()
		}
	}
}
