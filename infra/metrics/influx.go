package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/infra/logger"
)

// InfluxSink writes charging events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client    influxdb2.Client
	writeAPI  api.WriteAPIBlocking
	chargerID string
	log       logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket, chargerID string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(org, bucket),
		chargerID: chargerID,
		log:       logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket, chargerID string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket, chargerID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) point(measurement string) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.chargerID != "" {
		p = p.AddTag("charger_id", s.chargerID)
	}
	return p
}

func (s *InfluxSink) writePoint(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecision writes a charging_decision point.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	p := s.point("charging_decision").
		AddTag("state", ev.State.String()).
		AddTag("trigger", ev.Trigger).
		AddField("changed", ev.Changed).
		AddField("reason", ev.Reason).
		AddField("target_soc", round3(ev.TargetSoC))
	if ev.CurrentPrice != nil {
		p = p.AddField("price", round3(*ev.CurrentPrice))
	}
	if ev.SoC != nil {
		p = p.AddField("soc", round3(*ev.SoC))
	}
	return s.writePoint(p.SetTime(ev.Time))
}

// RecordSchedule writes a charging_schedule point.
func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	p := s.point("charging_schedule").
		AddTag("rebuilt", strconv.FormatBool(ev.Rebuilt)).
		AddField("planned", ev.Summary.IsPlanned).
		AddField("hours", ev.Summary.NumberOfHours).
		AddField("mean_price", round3(ev.Summary.MeanPrice)).
		AddField("price_min", round3(ev.Stats.Min)).
		AddField("price_max", round3(ev.Stats.Max))
	if ev.Summary.StartTime != nil {
		p = p.AddField("start_time", ev.Summary.StartTime.Unix())
	}
	return s.writePoint(p.SetTime(ev.Time))
}

// RecordActuation writes a charger_actuation point.
func (s *InfluxSink) RecordActuation(ev coremetrics.ActuationEvent) error {
	p := s.point("charger_actuation").
		AddTag("action", ev.State.String()).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("retry", ev.Retry).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writePoint(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
