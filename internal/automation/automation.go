// Package automation is the single entry point used by inventory change
// handlers to reconcile DNS and monitoring.
package automation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/config"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/dns"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

// ErrNotConfigured is returned when an operation needs a backend that has no
// provider selected.
var ErrNotConfigured = errors.New("automation: backend not configured")

// Config carries everything the facade needs to build its clients. It is
// captured at construction; later changes to the settings store are not seen.
type Config struct {
	DNS          config.ProviderConfig
	Monitoring   config.ProviderConfig
	DefaultGroup int
}

// DNSFactory creates a DNS provider by name.
type DNSFactory func(name string, log logr.Logger, settings map[string]string) (dns.Provider, error)

// MonitoringFactory creates a monitoring API by name.
type MonitoringFactory func(name string, log logr.Logger, settings map[string]string) (monitoring.API, error)

// Option configures a Facade.
type Option func(*Facade)

// WithDNSFactory replaces the registry lookup for DNS providers.
func WithDNSFactory(f DNSFactory) Option {
	return func(a *Facade) { a.newDNS = f }
}

// WithMonitoringFactory replaces the registry lookup for monitoring APIs.
func WithMonitoringFactory(f MonitoringFactory) Option {
	return func(a *Facade) { a.newMonitoring = f }
}

// Facade owns one DNS client and one monitoring client, each built on first
// use. A failed build leaves the client unset so the next call retries.
type Facade struct {
	cfg           Config
	log           logr.Logger
	newDNS        DNSFactory
	newMonitoring MonitoringFactory

	dnsMu sync.Mutex
	dns   *dns.Client

	monMu  sync.Mutex
	mon    *monitoring.Client
	monAPI monitoring.API
}

// New creates a facade. No backend is contacted until an operation needs it.
func New(cfg Config, log logr.Logger, opts ...Option) *Facade {
	a := &Facade{
		cfg:           cfg,
		log:           log,
		newDNS:        dns.NewProvider,
		newMonitoring: monitoring.NewAPI,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DNS returns the DNS client, building it on first use.
func (a *Facade) DNS() (*dns.Client, error) {
	a.dnsMu.Lock()
	defer a.dnsMu.Unlock()
	if a.dns != nil {
		return a.dns, nil
	}
	if a.cfg.DNS.Provider == "" {
		return nil, fmt.Errorf("%w: dns", ErrNotConfigured)
	}

	log := a.log.WithName("dns-" + a.cfg.DNS.Provider)
	p, err := a.newDNS(a.cfg.DNS.Provider, log, a.cfg.DNS.Settings)
	if err != nil {
		return nil, fmt.Errorf("creating DNS provider: %w", err)
	}
	a.dns = dns.NewClient(p, log)
	a.log.V(1).Info("dns client ready", "provider", a.cfg.DNS.Provider)
	return a.dns, nil
}

// Monitoring returns the monitoring client, building it on first use.
func (a *Facade) Monitoring() (*monitoring.Client, error) {
	a.monMu.Lock()
	defer a.monMu.Unlock()
	if a.mon != nil {
		return a.mon, nil
	}
	if a.cfg.Monitoring.Provider == "" {
		return nil, fmt.Errorf("%w: monitoring", ErrNotConfigured)
	}

	log := a.log.WithName("monitoring-" + a.cfg.Monitoring.Provider)
	api, err := a.newMonitoring(a.cfg.Monitoring.Provider, log, a.cfg.Monitoring.Settings)
	if err != nil {
		return nil, fmt.Errorf("creating monitoring backend: %w", err)
	}
	a.monAPI = api
	a.mon = monitoring.NewClient(api, log, monitoring.WithDefaultGroup(a.cfg.DefaultGroup))
	a.log.V(1).Info("monitoring client ready", "provider", a.cfg.Monitoring.Provider)
	return a.mon, nil
}

// UpdateDNS makes hostname resolve to address.
func (a *Facade) UpdateDNS(ctx context.Context, hostname, address, provider string) error {
	c, err := a.DNS()
	if err != nil {
		return err
	}
	return c.AddRecord(ctx, hostname, address, provider)
}

// DeleteDNS removes the record for hostname.
func (a *Facade) DeleteDNS(ctx context.Context, hostname, provider string) error {
	c, err := a.DNS()
	if err != nil {
		return err
	}
	return c.DeleteRecord(ctx, hostname, provider)
}

// CreateDeviceMonitoring creates the monitored host for d.
func (a *Facade) CreateDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error {
	c, err := a.Monitoring()
	if err != nil {
		return err
	}
	return c.CreateDevice(ctx, d)
}

// UpdateDeviceMonitoring reconciles the monitored host for d.
func (a *Facade) UpdateDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error {
	c, err := a.Monitoring()
	if err != nil {
		return err
	}
	return c.UpdateDevice(ctx, d)
}

// DeleteDeviceMonitoring removes the monitored host for d.
func (a *Facade) DeleteDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error {
	c, err := a.Monitoring()
	if err != nil {
		return err
	}
	return c.DeleteDevice(ctx, d)
}

// Close ends the monitoring session if one was opened.
func (a *Facade) Close(ctx context.Context) error {
	a.monMu.Lock()
	api := a.monAPI
	a.monMu.Unlock()

	if l, ok := api.(interface{ Logout(context.Context) error }); ok {
		return l.Logout(ctx)
	}
	return nil
}

// GetHostname returns the lowercased host component of rawURL without port,
// or "" when the URL has none.
func (a *Facade) GetHostname(rawURL string) string {
	return GetHostname(rawURL)
}

// GetHostname is the receiver-free form of Facade.GetHostname.
func GetHostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
