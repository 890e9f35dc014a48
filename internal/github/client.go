package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/nahidhasan98/review-relay/internal/logger"
)

const mediaTypeV3 = "application/vnd.github.v3+json"

// Config configures the content fetcher
type Config struct {
	Token       string
	BaseURL     string
	Timeout     time.Duration // Per request
	Concurrency int
}

// Fetcher retrieves file contents at a commit through the GitHub REST API
type Fetcher struct {
	client      *github.Client
	timeout     time.Duration
	concurrency int
	log         *logger.Logger
}

// NewFetcher creates a fetcher authenticating with cfg.Token
func NewFetcher(cfg Config, log *logger.Logger) (*Fetcher, error) {
	httpClient := &http.Client{
		Transport: &tokenTransport{token: cfg.Token},
	}
	client := github.NewClient(httpClient)

	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = baseURL
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		client:      client,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
	}, nil
}

// tokenTransport sets the "token" style Authorization header used by the
// GitHub v3 API and makes sure the v3 media type is requested.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.token != "" {
		req.Header.Set("Authorization", "token "+t.token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", mediaTypeV3)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
