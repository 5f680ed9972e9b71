/*
Package observability turns agent lifecycle hooks into Prometheus metrics and
structured logs.

Both helpers return domain.LifecycleHooks, so they compose with Merge:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
*/
package observability
