// Package metrics defines the sinks recording charging decisions, schedule
// refreshes and charger commands. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves by name; NewMetricsSink combines
// several configured sinks into a MultiSink.
package metrics
