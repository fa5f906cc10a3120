package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	gistMediaType  = "application/vnd.github+json"
	gistAPIVersion = "2022-11-28"
)

// Publisher pushes a finished report to its destination.
type Publisher interface {
	Publish(ctx context.Context, report *domain.Report) error
}

// PublishError reports a failed gist update. StatusCode is zero when no response was received.
type PublishError struct {
	GistID     string
	StatusCode int
	Err        error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("updating gist %s: status %d: %v", e.GistID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("updating gist %s: %v", e.GistID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// GistOptions holds everything needed to update one file of one gist.
type GistOptions struct {
	Token     string
	GistID    string
	Filename  string
	UserAgent string
	// BaseURL overrides the GitHub API root; empty means api.github.com.
	BaseURL string
	// MaxRateLimitWait is the longest the client sleeps on a secondary rate limit.
	// Zero never sleeps and returns the limited response as a publish failure.
	MaxRateLimitWait time.Duration
}

// GistGateway is the concrete implementation of the Publisher interface.
type GistGateway struct {
	client   *github.Client
	gistID   string
	filename string
	logger   logrus.FieldLogger
}

// NewGistGateway builds a GitHub client authorised with the gist token.
func NewGistGateway(opts GistOptions, logger logrus.FieldLogger) (*GistGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(opts.MaxRateLimitWait, func(cbCtx *github_ratelimit.CallbackContext) {
			fields := logrus.Fields{"gist_id": opts.GistID}
			if cbCtx.SleepUntil != nil {
				fields["retry_at"] = cbCtx.SleepUntil.Format(time.RFC3339)
			}
			logger.WithFields(fields).Warn("GitHub secondary rate limit hit; not waiting")
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	client := github.NewClient(httpClient)
	if opts.UserAgent != "" {
		client.UserAgent = opts.UserAgent
	}
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid gist API base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = baseURL
	}

	return &GistGateway{
		client:   client,
		gistID:   opts.GistID,
		filename: opts.Filename,
		logger:   logger,
	}, nil
}

// Publish overwrites the configured gist file with the compact JSON form of report.
func (g *GistGateway) Publish(ctx context.Context, report *domain.Report) error {
	content, err := json.Marshal(report)
	if err != nil {
		return &PublishError{GistID: g.gistID, Err: fmt.Errorf("failed to marshal report: %w", err)}
	}

	body := &github.Gist{
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(g.filename): {Content: github.String(string(content))},
		},
	}
	req, err := g.client.NewRequest(http.MethodPatch, "gists/"+g.gistID, body)
	if err != nil {
		return &PublishError{GistID: g.gistID, Err: err}
	}
	req.Header.Set("Accept", gistMediaType)
	req.Header.Set("X-GitHub-Api-Version", gistAPIVersion)

	resp, err := g.client.Do(ctx, req, nil)
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
		g.logger.WithFields(logrus.Fields{"gist_id": g.gistID, "status": resp.Status}).Warn("gist update response")
	}
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Message != "" {
			err = errors.New(errResp.Message)
		}
		return &PublishError{GistID: g.gistID, StatusCode: status, Err: err}
	}
	return nil
}
