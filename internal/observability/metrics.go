package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginsTotal counts login attempts by result (success, invalid_credentials, error).
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigfolio_logins_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// UploadsTotal counts portfolio uploads by result (success, no_file, disallowed_extension, error).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigfolio_uploads_total",
		Help: "Total number of portfolio uploads by result",
	}, []string{"result"})

	// QuizSubmissionsTotal counts scored quiz submissions.
	QuizSubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigfolio_quiz_submissions_total",
		Help: "Total number of scored quiz submissions",
	})

	// RateLimitedTotal counts requests rejected by a rate limit rule.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigfolio_rate_limited_total",
		Help: "Total number of requests rejected by rate limiting",
	}, []string{"rule"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigfolio_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})
)
