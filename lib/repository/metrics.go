package repository

import (
	"github.com/VictoriaMetrics/metrics"
)

// process wide counters, exposed with metrics.WritePrometheus
var (
	metricWrites             = metrics.NewCounter("prepo_persist_writes_total")
	metricWriteErrors        = metrics.NewCounter("prepo_persist_write_errors_total")
	metricCookieOversize     = metrics.NewCounter("prepo_cookie_oversize_total")
	metricFetches            = metrics.NewCounter("prepo_fetch_total")
	metricFetchErrors        = metrics.NewCounter("prepo_fetch_errors_total")
	metricDebounceRearm      = metrics.NewCounter("prepo_debounce_rearm_total")
	metricCookiePayloadBytes = metrics.NewHistogram("prepo_cookie_payload_bytes")
)
