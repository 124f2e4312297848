package prometrics

import (
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Instruments registers every metric the service emits and returns them keyed
// for observability.New-style providers.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests: r.Counter(string(observability.MHTTPRequests),
			"Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests),
			"Calls to external dependencies.", "peer", "endpoint", "outcome"),
		observability.MOrdersPlaced: r.Counter(string(observability.MOrdersPlaced),
			"Orders placed, by item.", "item_id"),
		observability.MOrderRevenueUnits: r.Counter(string(observability.MOrderRevenueUnits),
			"Token base units collected by the store wallet."),
		observability.MEventPublishFailed: r.Counter(string(observability.MEventPublishFailed),
			"Domain events that could not be handed to the bus.", "event"),
		observability.MAuditSinkWrites: r.Counter(string(observability.MAuditSinkWrites),
			"Audit sink writes, by sink and outcome.", "sink", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration: r.Histogram(string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration),
			"Duration of external calls in seconds.", prometheus.DefBuckets, "peer", "endpoint"),
	}
	return counters, histograms
}
