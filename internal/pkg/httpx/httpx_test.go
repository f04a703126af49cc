package httpx

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(&StatusError{StatusCode: 503}) {
		t.Fatalf("503 should be retryable")
	}
	if IsRetryableError(&StatusError{StatusCode: 404}) {
		t.Fatalf("404 should not be retryable")
	}
	if IsRetryableError(context.Canceled) {
		t.Fatalf("canceled should not be retryable")
	}
	if IsRetryableError(errors.New("x")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestFetcherRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("x-test") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 2)
	body, ct, err := f.Get(context.Background(), srv.URL, http.Header{"x-test": []string{"1"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "png-bytes" {
		t.Fatalf("body: want=%q got=%q", "png-bytes", string(body))
	}
	if ct != "image/png" {
		t.Fatalf("content type: want=%q got=%q", "image/png", ct)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls: want=2 got=%d", got)
	}
}

func TestFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 3)
	_, _, err := f.Get(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Get: want StatusError 404 got=%v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestFetcherRejectsOversizedBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 65))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 3)
	f.MaxBytes = 64
	_, _, err := f.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Get: want ErrBodyTooLarge got=%v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}

	f.MaxBytes = 65
	body, _, err := f.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get at limit: %v", err)
	}
	if len(body) != 65 {
		t.Fatalf("body: want=65 got=%d", len(body))
	}
}
