// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/naka-gawa/pepy-stats/internal/gateway"
	"github.com/naka-gawa/pepy-stats/internal/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Aggregation is the outcome of fetching every configured package.
type Aggregation struct {
	// Counts holds the downloads of every package that was fetched successfully.
	Counts map[domain.PackageID]uint64
	// Report holds one display line per successful package, in input order.
	Report *domain.Report
	// Results holds one entry per attempted package, in input order.
	Results []domain.FetchResult
}

// Aggregator is the use case for fetching and combining download statistics.
type Aggregator struct {
	fetcher     gateway.Fetcher
	mode        domain.Mode
	concurrency int
	logger      logrus.FieldLogger
	metrics     *observability.Metrics
	printer     *message.Printer
}

// NewAggregator creates a new Aggregator instance.
// A concurrency of 1 or less fetches strictly one package after another.
func NewAggregator(fetcher gateway.Fetcher, mode domain.Mode, concurrency int, logger logrus.FieldLogger, metrics *observability.Metrics) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		fetcher:     fetcher,
		mode:        mode,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
		printer:     message.NewPrinter(language.English),
	}
}

// Aggregate fetches every package and builds the count map and report lines.
// A failed package is logged and left out; it never aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, packages []domain.PackageID) *Aggregation {
	a.logger.WithField("packages", len(packages)).Debug("Usecase: Starting data aggregation...")

	results := make([]domain.FetchResult, len(packages))

	// Each goroutine owns its slot, so results stay in input order.
	eg := new(errgroup.Group)
	eg.SetLimit(a.concurrency)
	for i, pkg := range packages {
		i, pkg := i, pkg
		eg.Go(func() error {
			results[i] = a.fetch(ctx, pkg)
			return nil
		})
	}
	_ = eg.Wait()

	agg := &Aggregation{
		Counts:  make(map[domain.PackageID]uint64, len(packages)),
		Report:  domain.NewReport(),
		Results: results,
	}
	for _, r := range results {
		a.metrics.RecordFetch(string(r.Package), string(a.mode), r.Metric.Count, r.Err)
		if !r.OK() {
			a.logger.WithFields(logrus.Fields{"package": r.Package, "error": r.Err}).
				Errorf("Failed to fetch data for '%s'", r.Package)
			continue
		}
		agg.Counts[r.Package] = r.Metric.Count
		agg.Report.Set(string(r.Package), a.format(r.Metric))
	}

	a.logger.WithFields(logrus.Fields{"succeeded": len(agg.Counts), "failed": len(packages) - len(agg.Counts)}).
		Debug("Usecase: Aggregation complete.")
	return agg
}

func (a *Aggregator) fetch(ctx context.Context, pkg domain.PackageID) domain.FetchResult {
	var (
		m   domain.Metric
		err error
	)
	switch a.mode {
	case domain.ModeTotal:
		m, err = a.fetcher.FetchTotalDownloads(ctx, pkg)
	default:
		m, err = a.fetcher.FetchDailyDownloads(ctx, pkg)
	}
	return domain.FetchResult{Package: pkg, Metric: m, Err: err}
}

func (a *Aggregator) format(m domain.Metric) string {
	if a.mode == domain.ModeTotal {
		return fmt.Sprintf("%d million total downloads", m.Count/1_000_000)
	}
	return a.printer.Sprintf("%d downloads on %s", m.Count, m.Label)
}
