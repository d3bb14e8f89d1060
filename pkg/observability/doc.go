/*
Package observability provides the Prometheus metrics of procmeta.

Metrics are held by a Metrics value registered against an explicit
prometheus.Registerer, so tests and embedded servers do not share the global
registry. A nil *Metrics is valid and records nothing.
*/
package observability
