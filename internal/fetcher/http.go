package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/suburbmates/directory-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
	Retry      resilience.RetryConfig
}

// HTTPFetcher downloads registry files over HTTP with rate limiting,
// retries, and a circuit breaker around the origin.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewHTTPFetcher creates an HTTPFetcher with defaults applied.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "directory-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)+1),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitConfig{}),
	}
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return resilience.DoVal(ctx, f.opts.Retry, "http download", func(ctx context.Context) (io.ReadCloser, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		var body io.ReadCloser
		err := f.breaker.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return eris.Wrap(err, "fetcher: create request")
			}
			req.Header.Set("User-Agent", f.opts.UserAgent)

			resp, err := f.client.Do(req)
			if err != nil {
				return resilience.Transient(eris.Wrap(err, "fetcher: http get"), 0)
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				err := eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
				if resilience.IsTransientHTTPStatus(resp.StatusCode) {
					return resilience.Transient(err, resp.StatusCode)
				}
				return err
			}
			body = resp.Body
			return nil
		})
		return body, err
	})
}

// DownloadToFile fetches the URL to a local path. Returns bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close()

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}

	zap.L().Debug("fetcher: downloaded",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}
