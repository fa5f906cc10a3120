package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/naka-gawa/pepy-stats/internal/gateway"
	"github.com/naka-gawa/pepy-stats/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPublisher is a mock implementation of the gateway.Publisher interface.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, report *domain.Report) error {
	return m.Called(ctx, report).Error(0)
}

func newTestRunner(t *testing.T, fetcher gateway.Fetcher, publisher gateway.Publisher) (*Runner, *bytes.Buffer, *test.Hook, *observability.Metrics) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	var out bytes.Buffer
	runner := NewRunner(
		NewAggregator(fetcher, domain.ModeTotal, 1, logger, metrics),
		publisher,
		[]domain.PackageID{"pandas", "polars"},
		[]domain.RatioPair{{A: "pandas", B: "polars"}},
		&out,
		logger,
		metrics,
	)
	return runner, &out, hook, metrics
}

func TestRunner_Run(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("pandas")).Return(domain.Metric{Count: 900_000_000}, nil)
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("polars")).Return(domain.Metric{Count: 100_000_000}, nil)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(r *domain.Report) bool {
		v, _ := r.Get("pandas_ratio")
		return v == "90.00%"
	})).Return(nil).Once()

	runner, out, _, metrics := newTestRunner(t, fetcher, publisher)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"pandas", "polars", "pandas_ratio", "polars_ratio"}, report.Keys())
	assert.Equal(t, `{
  "pandas": "900 million total downloads",
  "polars": "100 million total downloads",
  "pandas_ratio": "90.00%",
  "polars_ratio": "10.00%"
}
`, out.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishTotal.WithLabelValues("success")))
	publisher.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestRunner_PublishFailureIsNotFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("pandas")).Return(domain.Metric{Count: 900}, nil)
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("polars")).Return(domain.Metric{Count: 100}, nil)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).
		Return(&gateway.PublishError{GistID: "abc", StatusCode: 500, Err: errors.New("Internal Server Error")})

	runner, out, hook, metrics := newTestRunner(t, fetcher, publisher)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"pandas_ratio": "90.00%"`)
	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Failed to update gist", last.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishTotal.WithLabelValues("failure")))
}

func TestRunner_FetchFailureSkipsRatio(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("pandas")).Return(domain.Metric{}, errors.New("timeout"))
	fetcher.On("FetchTotalDownloads", mock.Anything, domain.PackageID("polars")).Return(domain.Metric{Count: 100_000_000}, nil)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	runner, out, _, _ := newTestRunner(t, fetcher, publisher)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"polars"}, report.Keys())
	assert.NotContains(t, out.String(), "_ratio")
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRunner_DryRun(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchTotalDownloads", mock.Anything, mock.Anything).Return(domain.Metric{Count: 0}, nil)

	runner, out, _, metrics := newTestRunner(t, fetcher, nil)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Both counts are zero, so no ratios.
	assert.Equal(t, []string{"pandas", "polars"}, report.Keys())
	assert.NotEmpty(t, out.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishTotal.WithLabelValues("skipped")))
}
