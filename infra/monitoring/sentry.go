package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/evsmart/config"
	coremon "github.com/kilianp07/evsmart/core/monitoring"
)

// NewSentryMonitor creates a Monitor reporting to Sentry. The tags are set on
// every event. An empty DSN returns a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig, tags map[string]string) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return newHubMonitor(sentry.NewHub(client, sentry.NewScope()), tags), nil
}

func newHubMonitor(hub *sentry.Hub, tags map[string]string) *sentryMonitor {
	hub.Scope().SetTags(tags)
	return &sentryMonitor{hub: hub}
}

type sentryMonitor struct {
	hub *sentry.Hub
}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		s.hub.CaptureException(err)
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		s.hub.Recover(r)
		s.hub.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
