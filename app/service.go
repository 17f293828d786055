package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/evsmart/api"
	"github.com/kilianp07/evsmart/config"
	"github.com/kilianp07/evsmart/core/charger"
	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/core/decisionlog"
	coremetrics "github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/core/model"
	coremon "github.com/kilianp07/evsmart/core/monitoring"
	"github.com/kilianp07/evsmart/infra/logger"
	"github.com/kilianp07/evsmart/infra/metrics"
	"github.com/kilianp07/evsmart/infra/monitoring"
	"github.com/kilianp07/evsmart/infra/mqtt"
	"github.com/kilianp07/evsmart/internal/eventbus"
)

// InputSource delivers parsed input events.
type InputSource interface {
	Start(ctx context.Context) error
	Events() <-chan coordinator.Event
}

// StateMirror publishes the coordinator state to the outside world.
type StateMirror interface {
	Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{}
	PublishState(ctx context.Context, state model.DecisionState) error
}

// Service wires the coordinator to MQTT, metrics, the decision log and the
// HTTP API.
type Service struct {
	cfg     *config.Config
	Coord   *coordinator.Coordinator
	inputs  InputSource
	mirror  StateMirror
	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	store   decisionlog.Store
	monitor coremon.Monitor
	ticker  *cron.Cron
	ticks   chan coordinator.Event
	log     logger.Logger
	closers []func()
}

// New connects to the broker and assembles the service from cfg.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry, map[string]string{"charger_id": cfg.Charging.ChargerID})
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	client, err := mqtt.NewClient(cfg.MQTT, logger.New("mqtt_client"))
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	client.SetMonitor(mon)
	sw, err := mqtt.NewChargerSwitch(client, cfg.MQTT, cfg.Charging.ChargerID)
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("charger switch: %w", err)
	}
	inputs := mqtt.NewInputListener(client, cfg.Inputs, eventbus.DefaultBuffer)
	mirror := mqtt.NewStatePublisher(client, cfg.MQTT.StateTopicPrefix)

	svc, err := assemble(cfg, sw, inputs, mirror, mon, log)
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	mirror.SetStateSource(func() model.DecisionState { return svc.Coord.Status().State })
	svc.closers = append(svc.closers, client.Disconnect)
	return svc, nil
}

// assemble builds everything that does not talk to the broker.
func assemble(cfg *config.Config, ctrl charger.Controller, inputs InputSource, mirror StateMirror, mon coremon.Monitor, log logger.Logger) (*Service, error) {
	if mon == nil {
		mon = coremon.NopMonitor{}
	}
	ccfg, err := cfg.Charging.Coordinator(cfg.Inputs.TargetSoCTopic != "")
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	store, err := decisionlog.NewStore(cfg.DecisionLog)
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}
	bus := eventbus.New()
	coord, err := coordinator.New(ccfg, ctrl, sink, bus, logger.New("coordinator"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	coord.SetDecisionLog(store)
	coord.SetMonitor(mon)

	ticks := make(chan coordinator.Event, 1)
	ticker, err := newTicker(ccfg.Location, ticks, time.Now, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("tick scheduler: %w", err)
	}
	return &Service{
		cfg:     cfg,
		Coord:   coord,
		inputs:  inputs,
		mirror:  mirror,
		bus:     bus,
		sink:    sink,
		store:   store,
		monitor: mon,
		ticker:  ticker,
		ticks:   ticks,
		log:     log,
	}, nil
}

// Run evaluates the startup event and then every input and hourly tick until
// ctx is canceled. All evaluations happen on a single goroutine.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)
	mirrored := s.mirror.Start(ctx, s.bus)

	if s.cfg.API.Addr != "" {
		h := api.NewRouter(s.Coord, s.store, api.Options{Token: s.cfg.API.Token})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.Serve(ctx, s.cfg.API.Addr, h, s.log); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	} else if s.cfg.Metrics.ListenAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.ListenAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	defer s.monitor.Recover()
	if err := s.Coord.Evaluate(ctx, coordinator.Event{Kind: coordinator.EventStartup}); err != nil {
		s.log.Warnf("startup evaluation: %v", err)
	}
	if err := s.mirror.PublishState(ctx, s.Coord.Status().State); err != nil {
		s.log.Warnf("publish initial state: %v", err)
	}
	if err := s.inputs.Start(ctx); err != nil {
		cancel()
		<-collected
		<-mirrored
		wg.Wait()
		return fmt.Errorf("input listener: %w", err)
	}
	s.ticker.Start()
	s.log.Infof("evsmart running for charger %s", s.cfg.Charging.ChargerID)

	dispatch(ctx, s.Coord, s.inputs.Events(), s.ticks, s.log)

	<-s.ticker.Stop().Done()
	cancel()
	<-collected
	<-mirrored
	wg.Wait()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, c := range s.closers {
		c()
	}
	s.bus.Close()
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
