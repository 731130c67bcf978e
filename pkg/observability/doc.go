/*
Package observability turns dgwatch lifecycle hooks into Prometheus metrics and
structured log lines.

Metrics are registered on their own prometheus.Registry so several graphs (or tests) can
run in one process. Combine merges several domain.LifecycleHooks values into one.
*/
package observability
