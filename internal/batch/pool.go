package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"rawconv/internal/enhance"
	"rawconv/internal/logging"
	"rawconv/internal/services"
)

// Pool runs a fixed number of workers over a batch of items.
type Pool struct {
	concurrency int
	logger      *slog.Logger
}

// NewPool returns a pool with the given worker count. A count below one
// uses the logical CPU count.
func NewPool(concurrency int, logger *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &Pool{concurrency: concurrency, logger: logging.NewComponentLogger(logger, "pool")}
}

// Concurrency reports the number of workers Run starts.
func (p *Pool) Concurrency() int { return p.concurrency }

// Run converts every item and hands each Outcome to sink as it completes.
// Each item is claimed by exactly one worker. Run returns once every item
// has produced an Outcome; it never stops early on failure. sink must be
// safe for concurrent use.
func (p *Pool) Run(ctx context.Context, items []WorkItem, backend enhance.Backend, conv Converter, sink func(Outcome)) {
	jobs := make(chan WorkItem)
	var wg sync.WaitGroup

	for w := 1; w <= p.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wctx := services.WithWorker(ctx, worker)
			for item := range jobs {
				sink(p.safeConvert(wctx, item, backend, conv))
			}
		}(w)
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
}

// safeConvert contains panics that escape the converter.
func (p *Pool) safeConvert(ctx context.Context, item WorkItem, backend enhance.Backend, conv Converter) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrUnexpectedWorkerFault, r)
			logging.ErrorWithContext(logging.WithContext(services.WithSource(ctx, item.SourcePath), p.logger),
				"worker recovered from panic", "worker_panic",
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
			)
			outcome = Outcome{
				Item:         item,
				FailurePhase: PhaseNone,
				ErrorDetail:  err.Error(),
			}
		}
	}()
	return conv.Convert(ctx, item, backend)
}

// RunBatch converts items with a fresh pool of concurrency workers and
// returns the outcomes in completion order.
func RunBatch(ctx context.Context, items []WorkItem, backend enhance.Backend, concurrency int, conv Converter, logger *slog.Logger) []Outcome {
	collector := NewCollector()
	NewPool(concurrency, logger).Run(ctx, items, backend, conv, collector.Add)
	return collector.Outcomes()
}
