package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()
	transient := &RetryableError{Err: errors.New("connection reset")}
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"success first try", 0, nil, 3, 1, false},
		{"recovers after transient", 2, transient, 3, 3, false},
		{"gives up after attempts", 5, transient, 3, 3, true},
		{"permanent error stops", 5, permanent, 3, 1, true},
		{"zero attempts runs once", 0, nil, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("timeout")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   bool
		retryable bool
	}{
		{200, false, false},
		{204, false, false},
		{400, true, false},
		{404, true, false},
		{429, true, true},
		{500, true, true},
		{503, true, true},
	}
	for _, tt := range tests {
		resp := &http.Response{
			StatusCode: tt.code,
			Status:     http.StatusText(tt.code),
			Body:       io.NopCloser(strings.NewReader(" detail \n")),
		}
		err := StatusError(resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("StatusError(%d) = %v, wantErr %v", tt.code, err, tt.wantErr)
			continue
		}
		if err == nil {
			continue
		}
		if got := isRetryable(err); got != tt.retryable {
			t.Errorf("StatusError(%d) retryable = %v, want %v", tt.code, got, tt.retryable)
		}
		var he *HTTPError
		if !errors.As(err, &he) || he.StatusCode != tt.code || he.Body != "detail" {
			t.Errorf("StatusError(%d) = %#v", tt.code, he)
		}
	}
}
