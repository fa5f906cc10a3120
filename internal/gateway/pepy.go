// Package gateway provides gateways to the pepy.tech statistics API and the GitHub gist API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultStatsBaseURL is the pepy.tech project endpoint; the package name is appended as a path segment.
const DefaultStatsBaseURL = "https://pepy.tech/api/v2/projects"

// NoDataLabel is reported as the day when the API returns no daily breakdown.
const NoDataLabel = "No data available"

const isoDateLayout = "2006-01-02"

// Fetcher defines the behavior of a gateway for fetching download statistics.
type Fetcher interface {
	FetchDailyDownloads(ctx context.Context, pkg domain.PackageID) (domain.Metric, error)
	FetchTotalDownloads(ctx context.Context, pkg domain.PackageID) (domain.Metric, error)
}

// TransportError reports a connection failure or a non-2xx response.
// StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not match the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PepyGateway is the concrete implementation of the Fetcher interface.
type PepyGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// PepyOption configures a PepyGateway.
type PepyOption func(*PepyGateway)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) PepyOption {
	return func(g *PepyGateway) { g.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) PepyOption {
	return func(g *PepyGateway) { g.httpClient = c }
}

// NewPepyGateway creates a gateway rooted at baseURL.
func NewPepyGateway(baseURL string, logger logrus.FieldLogger, opts ...PepyOption) *PepyGateway {
	g := &PepyGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type dailyResponse struct {
	Downloads domain.DailyDownloads `json:"downloads"`
}

type totalResponse struct {
	TotalDownloads *uint64 `json:"total_downloads"`
}

// FetchDailyDownloads returns the summed downloads of the latest day reported for pkg.
func (g *PepyGateway) FetchDailyDownloads(ctx context.Context, pkg domain.PackageID) (domain.Metric, error) {
	var body dailyResponse
	url, err := g.get(ctx, pkg, &body)
	if err != nil {
		return domain.Metric{}, err
	}
	if body.Downloads == nil {
		return domain.Metric{}, &DecodeError{URL: url, Err: fmt.Errorf("missing %q field", "downloads")}
	}
	m := LatestDay(body.Downloads)
	g.logger.WithFields(logrus.Fields{"package": pkg, "day": m.Label, "downloads": m.Count}).Debug("fetched daily downloads")
	return m, nil
}

// FetchTotalDownloads returns the all-time downloads of pkg.
func (g *PepyGateway) FetchTotalDownloads(ctx context.Context, pkg domain.PackageID) (domain.Metric, error) {
	var body totalResponse
	url, err := g.get(ctx, pkg, &body)
	if err != nil {
		return domain.Metric{}, err
	}
	if body.TotalDownloads == nil {
		return domain.Metric{}, &DecodeError{URL: url, Err: fmt.Errorf("missing %q field", "total_downloads")}
	}
	g.logger.WithFields(logrus.Fields{"package": pkg, "downloads": *body.TotalDownloads}).Debug("fetched total downloads")
	return domain.Metric{Count: *body.TotalDownloads}, nil
}

func (g *PepyGateway) get(ctx context.Context, pkg domain.PackageID, out any) (string, error) {
	url := g.baseURL + "/" + string(pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return url, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}

	g.logger.WithField("url", url).Debug("requesting download statistics")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return url, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return url, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return url, &DecodeError{URL: url, Err: err}
	}
	return url, nil
}

// LatestDay reduces a daily breakdown to the summed downloads of its most recent day.
// Days are compared chronologically when every key is a YYYY-MM-DD date and
// lexicographically otherwise. An empty breakdown yields a zero count labelled NoDataLabel.
func LatestDay(downloads domain.DailyDownloads) domain.Metric {
	if len(downloads) == 0 {
		return domain.Metric{Count: 0, Label: NoDataLabel}
	}

	latest := ""
	if day, ok := latestParsedDay(downloads); ok {
		latest = day
	} else {
		first := true
		for day := range downloads {
			if first || day > latest {
				latest = day
				first = false
			}
		}
	}

	var total uint64
	for _, count := range downloads[latest] {
		total += count
	}
	return domain.Metric{Count: total, Label: latest}
}

func latestParsedDay(downloads domain.DailyDownloads) (string, bool) {
	var (
		latest     string
		latestTime time.Time
	)
	for day := range downloads {
		t, err := time.Parse(isoDateLayout, day)
		if err != nil {
			return "", false
		}
		if latest == "" || t.After(latestTime) {
			latest, latestTime = day, t
		}
	}
	return latest, true
}
