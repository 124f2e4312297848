package observability

// MetricKey names an instrument registered by the metrics adapter.
type MetricKey string

// RED metrics shared by every use case, route and ledger call.
const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"            // {use_case,outcome}
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"          // {use_case}
	MHTTPRequests            MetricKey = "http_requests_total"               // {method,route,status}
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"     // {method,route,status}
	MExternalRequests        MetricKey = "external_requests_total"           // {peer,endpoint,outcome}
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // {peer,endpoint}
)

// Shop metrics.
const (
	MOrdersPlaced       MetricKey = "orders_placed_total"        // {item_id}
	MOrderRevenueUnits  MetricKey = "order_revenue_units_total"  // smallest token units
	MEventPublishFailed MetricKey = "event_publish_failed_total" // {event}
	MAuditSinkWrites    MetricKey = "audit_sink_writes_total"    // {sink,outcome}
)
