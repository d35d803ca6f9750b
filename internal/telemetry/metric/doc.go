// Package metric records connection and registry metrics for tunnelmgr.
//
// Metrics live on a private Prometheus registry. tunnelmgr is not a
// long-running server, so instead of an HTTP endpoint the registry is
// written in text exposition format to a file on exit, for pickup by
// node_exporter's textfile collector.
package metric
