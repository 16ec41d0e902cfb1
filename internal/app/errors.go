package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/willibrandon/kpulse/internal/prom"
)

// FormatBackendError formats a query error with actionable guidance
func FormatBackendError(err error, baseURL string) string {
	errMsg := err.Error()

	var qe *prom.QueryError
	status := 0
	if errors.As(err, &qe) {
		status = qe.StatusCode
	}

	switch {
	case errors.Is(err, prom.ErrNoData):
		return fmt.Sprintf(
			"The query returned no series.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Check the metric names exist: open %s/graph and run the query\n"+
				"  2. Widen the range with --range\n"+
				"  3. Make sure the series carry the configured label (prometheus.label)\n"+
				"\nOriginal error: %s", baseURL, errMsg)

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Sprintf(
			"Authentication failed: the backend rejected the request.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Set the required headers under prometheus.headers in config.yaml\n"+
				"  2. Check the token has not expired\n"+
				"\nOriginal error: %s", errMsg)

	case status == http.StatusNotFound:
		return fmt.Sprintf(
			"Query API not found at %s.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. prometheus.url must be the server root, without /api/v1\n"+
				"  2. Include any path prefix the server is mounted under\n"+
				"\nOriginal error: %s", baseURL, errMsg)

	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Sprintf(
			"The backend rejected the query.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Check the PromQL syntax\n"+
				"  2. Reduce the range or raise the step if the query is too expensive\n"+
				"\nOriginal error: %s", errMsg)

	case strings.Contains(errMsg, "connection refused"):
		return fmt.Sprintf(
			"Connection refused: nothing is listening at %s.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Verify Prometheus is running\n"+
				"  2. Port-forward if it runs in a cluster: kubectl port-forward svc/prometheus 9090\n"+
				"  3. Check prometheus.url or KPULSE_PROMETHEUS_URL\n"+
				"\nOriginal error: %s", baseURL, errMsg)

	case strings.Contains(errMsg, "no such host"):
		return fmt.Sprintf(
			"Host not found: cannot resolve the backend hostname.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Verify the hostname in prometheus.url\n"+
				"  2. Check DNS resolution\n"+
				"\nOriginal error: %s", errMsg)

	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return fmt.Sprintf(
			"Request timeout: the backend did not respond in time.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Raise prometheus.timeout\n"+
				"  2. Query a shorter range\n"+
				"\nOriginal error: %s", errMsg)
	}

	return fmt.Sprintf(
		"Query failed:\n\n"+
			"%s\n\n"+
			"Check your configuration in config.yaml or environment variables.\n"+
			"Run with --debug flag for detailed logs.", errMsg)
}
