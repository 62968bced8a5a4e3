package clients

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/karmafinder/karmafetch/common/redis"
)

// RateWatch observes upstream rate-limit headers. It logs a summary
// every few requests, warns when the remaining budget runs low, and
// keeps a per-minute request counter in Redis so multiple replicas see
// one number. Counter failures are best effort and never surface.
type RateWatch struct {
	count int64
	redis *redis.Client
	log   Logger
}

// NewRateWatch creates a rate watch. redisClient may be nil.
func NewRateWatch(redisClient *redis.Client, log Logger) *RateWatch {
	return &RateWatch{
		redis: redisClient,
		log:   log,
	}
}

// Observe records one upstream response's rate headers
func (w *RateWatch) Observe(ctx context.Context, headers http.Header) {
	used := headerFloat(headers, "x-ratelimit-used", 0)
	remaining := headerFloat(headers, "x-ratelimit-remaining", 60)
	reset := headerFloat(headers, "x-ratelimit-reset", 60)

	n := atomic.AddInt64(&w.count, 1)

	if n%rateLogEvery == 0 {
		w.log.Info("upstream rate watch",
			"used", used,
			"remaining", remaining,
			"reset_sec", reset,
		)
	}

	if remaining <= rateWarnRemaining {
		w.log.Warn("upstream request budget nearly exhausted", "remaining", remaining)
	}

	if w.redis != nil {
		key := "fetch_count:" + time.Now().UTC().Format("200601021504")
		if _, err := w.redis.IncrementWindow(ctx, key, 2*time.Minute); err != nil {
			w.log.Debug("rate counter increment failed", "error", err)
		}
	}
}

func headerFloat(headers http.Header, name string, fallback float64) float64 {
	raw := headers.Get(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return val
}
