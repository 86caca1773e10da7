package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mai-automation/linkstatus/internal/model"
)

// Batch runs the Resolver over a link list under the Governor's bounds.
//
// Design decision: Each task carries its own Link and builds the result
// record from it directly. Zipping completion order against the input list
// would attribute outcomes to the wrong links, because completions arrive
// in whatever order the network allows.
type Batch struct {
	// resolver resolves individual links.
	resolver *Resolver

	// governor bounds concurrency and paces requests.
	governor *Governor

	// onProgress, when set, is called after every completed resolution
	// with the running count, the batch total, and the requests-per-minute
	// rate. It is called from resolution goroutines and must be safe for
	// concurrent use.
	onProgress func(completed, total int64, ratePerMinute float64)

	// logger for structured logging.
	logger *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithProgress sets a callback invoked after each completed resolution.
func WithProgress(fn func(completed, total int64, ratePerMinute float64)) BatchOption {
	return func(b *Batch) {
		b.onProgress = fn
	}
}

// WithBatchLogger sets a custom logger for the batch.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatch creates a Batch from a Resolver and Governor.
func NewBatch(resolver *Resolver, governor *Governor, opts ...BatchOption) *Batch {
	b := &Batch{
		resolver: resolver,
		governor: governor,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// ResolveAll resolves every link and returns the result records for all
// non-skipped outcomes plus the count of skipped (healthy) links.
//
// A single link's failure never aborts the batch: failures are typed
// outcomes, not errors. The returned error is non-nil only when the
// context was cancelled before all links finished.
//
// Records are returned in completion order, which is unspecified.
func (b *Batch) ResolveAll(ctx context.Context, links []model.Link) ([]model.ResultRecord, int, error) {
	b.logger.Info("starting resolution",
		"links", len(links),
		"concurrency", b.governor.Limit(),
	)
	startTime := time.Now()

	records := make([]model.ResultRecord, 0, len(links))
	skipped := 0
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	for _, link := range links {
		g.Go(func() error {
			// The permit gates both the pacing delay and the request, so
			// at most Limit() resolutions are in flight at any instant.
			if err := b.governor.Acquire(ctx); err != nil {
				return err
			}
			defer b.governor.Release()

			if err := b.governor.Pace(ctx); err != nil {
				return err
			}

			outcome := b.resolver.Resolve(ctx, link)

			count, rate := b.governor.Complete()
			b.logger.Debug("link resolved",
				"url", link.URL,
				"outcome", outcome.Kind.String(),
				"completed", count,
				"rate_per_min", rate,
			)

			mu.Lock()
			if outcome.Skipped() {
				skipped++
			} else {
				records = append(records, model.NewResultRecord(link, outcome))
			}
			mu.Unlock()

			if b.onProgress != nil {
				b.onProgress(count, int64(len(links)), rate)
			}
			return nil
		})
	}

	err := g.Wait()

	b.logger.Info("resolution complete",
		"links", len(links),
		"reported", len(records),
		"skipped", skipped,
		"elapsed", time.Since(startTime),
	)

	return records, skipped, err
}
