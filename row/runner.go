package row

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/metric"
	"github.com/falaki/spark/pkg/worker"
	"github.com/falaki/spark/schema"
)

// Runner materializes partitions in parallel on a worker pool. Partitions
// are independent: each task builds its own materializer from the runner's
// registry, there is no coordination or ordering between partitions, and
// within a partition records are processed sequentially in input order.
type Runner struct {
	registry *schema.Registry
	workers  int
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithWorkers sets the number of concurrent partition workers
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) { r.workers = n }
}

// WithMetrics attaches core bridge metrics
func WithMetrics(m *metric.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger attaches a structured logger
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a partition runner resolving types against registry
func NewRunner(registry *schema.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		workers:  4,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type partitionTask struct {
	index   int
	records []any
}

// Run materializes every partition of typeName records and returns the rows
// partition-indexed: result[i] holds the rows of partitions[i] in record
// order. The transported shape guards against derivation drift on this unit.
//
// The first partition failure is returned after all submitted partitions
// finish; failed partitions contribute no rows. Cancelling ctx abandons
// unprocessed partitions.
func (r *Runner) Run(
	ctx context.Context, typeName string, shape schema.Shape, partitions [][]any,
) ([][]Row, error) {
	if len(partitions) == 0 {
		return nil, nil
	}

	results := make([][]Row, len(partitions))
	errs := make([]error, len(partitions))
	var wg sync.WaitGroup

	pool := worker.NewPool(r.workers, len(partitions), func(ctx context.Context, task partitionTask) error {
		defer wg.Done()
		start := time.Now()

		rows, err := r.materializePartition(ctx, typeName, shape, task.records)
		if err != nil {
			errs[task.index] = err
			r.observe(typeName, 0, time.Since(start), false)
			r.logger.Error("partition materialization failed",
				"type", typeName, "partition", task.index, "error", err)
			return err
		}

		results[task.index] = rows
		r.observe(typeName, len(rows), time.Since(start), true)
		return nil
	})

	if err := pool.Start(ctx); err != nil {
		return nil, errors.WrapFatal(err, "Runner", "Run", "pool start")
	}

	// The queue is sized to hold every partition, so submission never drops.
	for i, records := range partitions {
		wg.Add(1)
		if err := pool.Submit(partitionTask{index: i, records: records}); err != nil {
			wg.Done()
			errs[i] = errors.WrapFatal(err, "Runner", "Run", "partition submission")
		}
	}

	wg.Wait()
	if err := pool.Stop(10 * time.Second); err != nil {
		r.logger.Warn("partition pool stop timed out", "type", typeName)
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// materializePartition is the per-partition unit of work: local re-resolution
// and rediscovery, then a tight sequential loop over the records.
func (r *Runner) materializePartition(
	ctx context.Context, typeName string, shape schema.Shape, records []any,
) ([]Row, error) {
	m, err := NewMaterializer(typeName, r.registry, shape)
	if err != nil {
		return nil, err
	}
	return m.MaterializePartition(ctx, records)
}

func (r *Runner) observe(typeName string, rows int, d time.Duration, ok bool) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	r.metrics.PartitionsProcessed.WithLabelValues(typeName, status).Inc()
	if ok {
		r.metrics.RowsMaterialized.WithLabelValues(typeName).Add(float64(rows))
		r.metrics.ObserveMaterialize(typeName, d)
	}
}
