package automation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/config"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/dns"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

type stubProvider struct {
	mu      sync.Mutex
	created []dns.Record
	deleted []string
	records []dns.Record
}

func (s *stubProvider) ZoneID(_ context.Context, domain string) (string, error) {
	if domain == "example.com" {
		return "z1", nil
	}
	return "", nil
}

func (s *stubProvider) ListRecords(context.Context, string) ([]dns.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dns.Record(nil), s.records...), nil
}

func (s *stubProvider) CreateRecord(_ context.Context, _ string, r dns.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, r)
	return nil
}

func (s *stubProvider) DeleteRecord(_ context.Context, _, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAPI struct {
	hosts     map[string]*monitoring.Host
	created   []monitoring.HostSpec
	updated   []monitoring.HostUpdate
	deleted   []string
	loggedOut bool
}

func (s *stubAPI) GetHost(_ context.Context, hostname string) (*monitoring.Host, error) {
	return s.hosts[hostname], nil
}

func (s *stubAPI) GetHostInterfaces(context.Context, string) ([]monitoring.HostInterface, error) {
	return nil, nil
}

func (s *stubAPI) CreateHost(_ context.Context, spec monitoring.HostSpec) (string, error) {
	s.created = append(s.created, spec)
	return "1", nil
}

func (s *stubAPI) UpdateHost(_ context.Context, u monitoring.HostUpdate) error {
	s.updated = append(s.updated, u)
	return nil
}

func (s *stubAPI) DeleteHost(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAPI) CreateHostInterface(context.Context, string, monitoring.Interface) error {
	return nil
}

func (s *stubAPI) Logout(context.Context) error {
	s.loggedOut = true
	return nil
}

func testConfig() Config {
	return Config{
		DNS:          config.ProviderConfig{Provider: "stub", Settings: map[string]string{"token": "t"}},
		Monitoring:   config.ProviderConfig{Provider: "stub"},
		DefaultGroup: 7,
	}
}

func TestFacadeForwardsDNS(t *testing.T) {
	p := &stubProvider{}
	var gotSettings map[string]string
	a := New(testConfig(), logr.Discard(), WithDNSFactory(func(name string, _ logr.Logger, settings map[string]string) (dns.Provider, error) {
		gotSettings = settings
		return p, nil
	}))
	ctx := context.Background()

	require.NoError(t, a.UpdateDNS(ctx, "api.example.com", "10.0.0.1", "cloudflare"))
	require.Len(t, p.created, 1)
	assert.Equal(t, dns.Record{Name: "api", Type: dns.TypeA, Content: "10.0.0.1"}, p.created[0])
	assert.Equal(t, "t", gotSettings["token"])

	p.records = []dns.Record{{ID: "r1", Name: "api.example.com", Type: dns.TypeA, Content: "10.0.0.1"}}
	require.NoError(t, a.DeleteDNS(ctx, "api.example.com", "cloudflare"))
	assert.Equal(t, []string{"r1"}, p.deleted)
}

func TestFacadeForwardsMonitoring(t *testing.T) {
	api := &stubAPI{hosts: map[string]*monitoring.Host{}}
	a := New(testConfig(), logr.Discard(), WithMonitoringFactory(func(string, logr.Logger, map[string]string) (monitoring.API, error) {
		return api, nil
	}))
	ctx := context.Background()
	d := monitoring.Descriptor{Hostname: "nas", Name: "NAS"}

	require.NoError(t, a.CreateDeviceMonitoring(ctx, d))
	require.Len(t, api.created, 1)
	assert.Equal(t, []int{7}, api.created[0].Groups)

	api.hosts["nas"] = &monitoring.Host{ID: "1", Host: "nas"}
	require.NoError(t, a.UpdateDeviceMonitoring(ctx, d))
	assert.Len(t, api.updated, 1)

	require.NoError(t, a.DeleteDeviceMonitoring(ctx, d))
	assert.Equal(t, []string{"1"}, api.deleted)

	require.NoError(t, a.Close(ctx))
	assert.True(t, api.loggedOut)
}

func TestFacadeBuildsClientsOnce(t *testing.T) {
	var builds int
	var mu sync.Mutex
	a := New(testConfig(), logr.Discard(), WithDNSFactory(func(string, logr.Logger, map[string]string) (dns.Provider, error) {
		mu.Lock()
		builds++
		mu.Unlock()
		return &stubProvider{}, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.DNS()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}

func TestFacadeRetriesFailedBuild(t *testing.T) {
	fail := true
	a := New(testConfig(), logr.Discard(), WithDNSFactory(func(string, logr.Logger, map[string]string) (dns.Provider, error) {
		if fail {
			return nil, errors.New("no credentials")
		}
		return &stubProvider{}, nil
	}))

	_, err := a.DNS()
	require.Error(t, err)

	fail = false
	c, err := a.DNS()
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestFacadeNotConfigured(t *testing.T) {
	a := New(Config{}, logr.Discard())
	ctx := context.Background()

	assert.ErrorIs(t, a.UpdateDNS(ctx, "api.example.com", "10.0.0.1", ""), ErrNotConfigured)
	assert.ErrorIs(t, a.DeleteDNS(ctx, "api.example.com", ""), ErrNotConfigured)
	assert.ErrorIs(t, a.CreateDeviceMonitoring(ctx, monitoring.Descriptor{Hostname: "nas"}), ErrNotConfigured)
	assert.ErrorIs(t, a.UpdateDeviceMonitoring(ctx, monitoring.Descriptor{Hostname: "nas"}), ErrNotConfigured)
	assert.ErrorIs(t, a.DeleteDeviceMonitoring(ctx, monitoring.Descriptor{Hostname: "nas"}), ErrNotConfigured)
	assert.NoError(t, a.Close(ctx))
}

func TestFacadeUnknownProvider(t *testing.T) {
	a := New(Config{DNS: config.ProviderConfig{Provider: "nope"}}, logr.Discard())
	_, err := a.DNS()
	assert.ErrorContains(t, err, "unsupported DNS provider")
}

func TestGetHostname(t *testing.T) {
	tests := map[string]string{
		"https://Example.com/path":      "example.com",
		"http://nas.local:8080/":        "nas.local",
		"https://[2001:db8::1]:443/x":   "2001:db8::1",
		"example.com":                   "",
		"":                              "",
		"://bad":                        "",
		"ftp://user:pw@files.lan/a.txt": "files.lan",
	}
	a := New(Config{}, logr.Discard())
	for in, want := range tests {
		assert.Equal(t, want, a.GetHostname(in), "GetHostname(%q)", in)
	}
}
