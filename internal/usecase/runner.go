package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/naka-gawa/pepy-stats/internal/gateway"
	"github.com/naka-gawa/pepy-stats/internal/observability"
	"github.com/sirupsen/logrus"
)

// Runner sequences one reporting run: aggregate, compute ratios, print, publish.
type Runner struct {
	aggregator *Aggregator
	// publisher is nil for dry runs.
	publisher gateway.Publisher
	packages  []domain.PackageID
	pairs     []domain.RatioPair
	out       io.Writer
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewRunner creates a new Runner. A nil publisher prints the report without publishing it.
func NewRunner(aggregator *Aggregator, publisher gateway.Publisher, packages []domain.PackageID, pairs []domain.RatioPair, out io.Writer, logger logrus.FieldLogger, metrics *observability.Metrics) *Runner {
	return &Runner{
		aggregator: aggregator,
		publisher:  publisher,
		packages:   packages,
		pairs:      pairs,
		out:        out,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run executes the pipeline and returns the report that was printed.
// Fetch and publish failures are logged and never returned; the only error
// is a failure to write the report to the output.
func (r *Runner) Run(ctx context.Context) (*domain.Report, error) {
	started := r.now()

	agg := r.aggregator.Aggregate(ctx, r.packages)
	report := agg.Report
	ComputeRatios(r.pairs, agg.Counts, report)

	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return report, fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(pretty)); err != nil {
		return report, fmt.Errorf("failed to write report: %w", err)
	}

	r.publish(ctx, report)

	r.metrics.RecordRun(started, r.now())
	return report, nil
}

func (r *Runner) publish(ctx context.Context, report *domain.Report) {
	if r.publisher == nil {
		r.logger.Info("Dry run: skipping gist update")
		r.metrics.RecordPublish("skipped")
		return
	}
	if err := r.publisher.Publish(ctx, report); err != nil {
		r.logger.WithError(err).Error("Failed to update gist")
		r.metrics.RecordPublish("failure")
		return
	}
	r.logger.Info("Gist updated")
	r.metrics.RecordPublish("success")
}
