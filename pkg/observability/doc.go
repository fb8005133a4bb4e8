/*
Package observability exports engine activity as Prometheus metrics.

A Collector turns the executor's lifecycle hooks into counters and histograms:
plans run, steps by tool and status, and step durations. Cache hits show up as
steps with status "cached".
*/
package observability
