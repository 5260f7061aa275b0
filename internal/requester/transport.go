package requester

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/monzo2discord/internal/logger"
	"go.uber.org/zap"
)

// instrumentedTransport records metrics for every outbound round trip.
type instrumentedTransport struct {
	base http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	requestsTotal.WithLabelValues(req.URL.Host, req.Method, code).Inc()
	requestDuration.WithLabelValues(req.URL.Host).Observe(elapsed.Seconds())

	// Paths of webhooks and callbacks embed credentials, so only the host is logged
	logger.Debug("outbound request",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("code", code),
		zap.Duration("elapsed", elapsed),
	)
	return resp, err
}
