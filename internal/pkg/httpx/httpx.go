// Package httpx holds small retry helpers shared by outbound HTTP clients.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type StatusCoder interface {
	HTTPStatusCode() int
}

func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code <= 599:
		return true
	}
	return false
}

func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return RetryableStatus(sc.HTTPStatusCode())
	}
	return false
}

// Backoff picks the sleep before the next attempt: the server's Retry-After
// header when present, otherwise fallback, capped at max, with +/-20% jitter.
func Backoff(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleep := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleep = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleep > max {
		sleep = max
	}
	if sleep <= 0 {
		return 0
	}
	spread := 0.2 * sleep.Seconds()
	v := sleep.Seconds() - spread + rand.Float64()*2*spread
	return time.Duration(v * float64(time.Second))
}
