// Package infra groups the adapters that connect the charging core to the
// outside: the MQTT charger switch and input listener, zerolog logging,
// Prometheus and InfluxDB sinks and Sentry reporting.
package infra
