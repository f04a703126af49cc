package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// ErrBodyTooLarge is returned when a successful response exceeds Fetcher.MaxBytes.
var ErrBodyTooLarge = errors.New("response body too large")

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type Fetcher struct {
	Client     *http.Client
	MaxRetries int
	MaxBytes   int64
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, sleep time.Duration, err error)
}

func NewFetcher(timeout time.Duration, maxRetries int) *Fetcher {
	return &Fetcher{
		Client:     &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		MaxBytes:   256 << 20,
	}
}

// Get downloads url, retrying transient failures with jittered exponential backoff.
// It returns the body and the response Content-Type.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, string, error) {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		body, ct, resp, err := f.getOnce(ctx, url, header)
		if err == nil {
			return body, ct, nil
		}
		if !IsRetryableError(err) || attempt >= f.MaxRetries {
			return nil, "", err
		}
		sleepFor := JitterSleep(RetryAfterDuration(resp, backoff, 10*time.Second))
		if f.OnRetry != nil {
			f.OnRetry(attempt+1, sleepFor, err)
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
}

func (f *Fetcher) getOnce(ctx context.Context, url string, header http.Header) ([]byte, string, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", nil, err
	}
	defer resp.Body.Close()

	limit := f.MaxBytes
	if limit <= 0 {
		limit = 256 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", resp, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, "", resp, &StatusError{StatusCode: resp.StatusCode, URL: url, Body: strings.TrimSpace(snippet)}
	}
	if int64(len(raw)) > limit {
		return nil, "", resp, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, limit)
	}
	return raw, strings.TrimSpace(resp.Header.Get("Content-Type")), resp, nil
}
