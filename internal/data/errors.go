package data

import (
	"errors"
	"strings"
)

var (
	// ErrNoData marks a symbol the provider has no history for.
	ErrNoData = errors.New("no data available")

	// ErrRateLimited marks a transient provider throttle; callers retry
	// with backoff before downgrading to ErrNoData.
	ErrRateLimited = errors.New("rate limited")
)

// rate-limit phrases seen across providers; HTTP 429 bodies vary.
var rateLimitPhrases = []string{
	"429",
	"rate limit",
	"too many requests",
	"quota exceeded",
}

// IsRateLimited reports whether err looks like a provider throttle,
// either the sentinel or a recognizable error message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
