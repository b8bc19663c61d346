package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind string
	old  any
	new  any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (n *recordingNotifier) add(kind string, old, new any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{kind: kind, old: old, new: new})
	return n.err
}

func (n *recordingNotifier) DeviceSaved(_ context.Context, old *Device, d Device) error {
	return n.add("device-saved", old, d)
}

func (n *recordingNotifier) DeviceDeleted(_ context.Context, d Device) error {
	return n.add("device-deleted", nil, d)
}

func (n *recordingNotifier) DeviceTypeSaved(_ context.Context, t DeviceType) error {
	return n.add("type-saved", nil, t)
}

func (n *recordingNotifier) DeviceGroupsChanged(_ context.Context, d Device) error {
	return n.add("groups-changed", nil, d)
}

func (n *recordingNotifier) SubdomainSaved(_ context.Context, old *Subdomain, s Subdomain) error {
	return n.add("subdomain-saved", old, s)
}

func (n *recordingNotifier) SubdomainDeleted(_ context.Context, s Subdomain) error {
	return n.add("subdomain-deleted", nil, s)
}

func (n *recordingNotifier) last() event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func openTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "netsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := &recordingNotifier{}
	return NewService(db, n, logr.Discard()), n
}

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsync.db")
	db, err := Open(path)
	require.NoError(t, err)

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Close())

	// Reopening an up-to-date database is a no-op.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSettings(t *testing.T) {
	s, _ := openTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SetSetting(ctx, "CLOUDFLARE_API_KEY", "", "Cloudflare API token"))
	got, err := s.GetSetting(ctx, "CLOUDFLARE_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "No", got.Configured())

	require.NoError(t, s.SetSetting(ctx, "CLOUDFLARE_API_KEY", "secret", ""))
	got, err = s.GetSetting(ctx, "CLOUDFLARE_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Value)
	assert.Equal(t, "Cloudflare API token", got.Description)
	assert.Equal(t, "Yes", got.Configured())

	lookup := s.LookupSetting(ctx)
	v, ok, err := lookup("CLOUDFLARE_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret", v)

	_, ok, err = lookup("ZABBIX_URL")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.UnsetSetting(ctx, "CLOUDFLARE_API_KEY"))
	_, err = s.GetSetting(ctx, "CLOUDFLARE_API_KEY")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UnsetSetting(ctx, "CLOUDFLARE_API_KEY"), ErrNotFound)
	assert.ErrorIs(t, s.SetSetting(ctx, " ", "x", ""), ErrInvalid)
}

func TestSaveDeviceCreateAndUpdate(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()

	_, err := s.SaveDeviceType(ctx, DeviceType{Name: "server", Templates: []int{10001, 10001, 10002}})
	require.NoError(t, err)

	d, err := s.SaveDevice(ctx, Device{
		Hostname:   "Web1.Example.com",
		IP:         "10.0.0.5",
		DeviceType: "server",
		Monitored:  true,
		Groups:     []int{20, 19, 20},
	})
	require.NoError(t, err)
	assert.Equal(t, "web1.example.com", d.Hostname)
	assert.Equal(t, "web1.example.com", d.Name)
	assert.Equal(t, []int{19, 20}, d.Groups)
	assert.True(t, d.Monitored)

	ev := n.last()
	assert.Equal(t, "device-saved", ev.kind)
	assert.Nil(t, ev.old.(*Device))

	// Groups are kept when the update does not name any.
	d, err = s.SaveDevice(ctx, Device{Hostname: "web1.example.com", IP: "10.0.0.6", DeviceType: "server"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.6", d.IP)
	assert.Equal(t, []int{19, 20}, d.Groups)
	assert.False(t, d.Monitored)

	ev = n.last()
	old := ev.old.(*Device)
	require.NotNil(t, old)
	assert.Equal(t, "10.0.0.5", old.IP)
	assert.Equal(t, "10.0.0.6", ev.new.(Device).IP)

	devices, err := s.DevicesOfType(ctx, "server")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, []int{19, 20}, devices[0].Groups)
}

func TestSaveDeviceValidation(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		dev  Device
		want error
	}{
		{"bad ip", Device{Hostname: "host", IP: "10.0.0"}, ErrInvalid},
		{"bad hostname", Device{Hostname: "bad host", IP: "10.0.0.1"}, ErrInvalid},
		{"empty hostname", Device{IP: "10.0.0.1"}, ErrInvalid},
		{"unknown type", Device{Hostname: "host", IP: "10.0.0.1", DeviceType: "nope"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveDevice(ctx, tt.dev)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, n.events)
}

func TestSaveDeviceDuplicateIP(t *testing.T) {
	s, _ := openTestService(t)
	ctx := context.Background()

	_, err := s.SaveDevice(ctx, Device{Hostname: "a", IP: "10.0.0.1"})
	require.NoError(t, err)
	_, err = s.SaveDevice(ctx, Device{Hostname: "b", IP: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSetDeviceGroups(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()

	_, err := s.SaveDevice(ctx, Device{Hostname: "nas", IP: "10.0.0.9", Groups: []int{5}})
	require.NoError(t, err)

	d, err := s.SetDeviceGroups(ctx, "nas", []int{7, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, d.Groups)
	assert.Equal(t, "groups-changed", n.last().kind)

	d, err = s.SetDeviceGroups(ctx, "nas", nil)
	require.NoError(t, err)
	assert.Empty(t, d.Groups)

	_, err = s.SetDeviceGroups(ctx, "missing", []int{1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubdomainLifecycle(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()

	_, err := s.SaveDomain(ctx, Domain{Name: "Example.com.", Registrar: "cloudflare"})
	require.NoError(t, err)
	_, err = s.SaveDevice(ctx, Device{Hostname: "web1", IP: "10.0.0.5"})
	require.NoError(t, err)
	_, err = s.SaveDevice(ctx, Device{Hostname: "web2", IP: "10.0.0.6"})
	require.NoError(t, err)

	sub, err := s.SaveSubdomain(ctx, "App", "example.com", "web1")
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", sub.FQDN())
	assert.Equal(t, "cloudflare", sub.Registrar)
	assert.Equal(t, "10.0.0.5", sub.HostIP)
	ev := n.last()
	assert.Equal(t, "subdomain-saved", ev.kind)
	assert.Nil(t, ev.old.(*Subdomain))

	sub, err = s.SaveSubdomain(ctx, "app", "example.com", "web2")
	require.NoError(t, err)
	assert.Equal(t, "web2", sub.HostedOn)
	ev = n.last()
	require.NotNil(t, ev.old.(*Subdomain))
	assert.Equal(t, "web1", ev.old.(*Subdomain).HostedOn)

	hosted, err := s.SubdomainsHostedOn(ctx, "web2")
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	assert.Equal(t, "app", hosted[0].Name)

	// Hosting device and domain cannot be removed while referenced.
	assert.ErrorIs(t, s.DeleteDevice(ctx, "web2"), ErrInUse)
	assert.ErrorIs(t, s.DeleteDomain(ctx, "example.com"), ErrInUse)

	require.NoError(t, s.DeleteSubdomain(ctx, "app", "example.com"))
	ev = n.last()
	assert.Equal(t, "subdomain-deleted", ev.kind)
	assert.Equal(t, "app.example.com", ev.new.(Subdomain).FQDN())

	require.NoError(t, s.DeleteDevice(ctx, "web2"))
	assert.Equal(t, "device-deleted", n.last().kind)
	require.NoError(t, s.DeleteDomain(ctx, "example.com"))

	_, err = s.SaveSubdomain(ctx, "a.b", "example.com", "web1")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.SaveSubdomain(ctx, "app", "example.com", "web1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifierErrorKeepsChange(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()
	n.err = errors.New("zabbix down")

	_, err := s.SaveDevice(ctx, Device{Hostname: "web1", IP: "10.0.0.5"})
	require.Error(t, err)
	assert.ErrorIs(t, err, n.err)

	d, err := s.Device(ctx, "web1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", d.IP)
}

func TestDeviceTypes(t *testing.T) {
	s, n := openTestService(t)
	ctx := context.Background()

	_, err := s.SaveDeviceType(ctx, DeviceType{Name: "switch", Templates: []int{3}})
	require.NoError(t, err)
	saved, err := s.SaveDeviceType(ctx, DeviceType{Name: "switch", Templates: []int{4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, saved.Templates)
	assert.Equal(t, "type-saved", n.last().kind)

	_, err = s.SaveDeviceType(ctx, DeviceType{Name: "ap"})
	require.NoError(t, err)

	types, err := s.DeviceTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "ap", types[0].Name)
	assert.Empty(t, types[0].Templates)
	assert.Equal(t, "switch", types[1].Name)

	_, err = s.SaveDeviceType(ctx, DeviceType{Name: " "})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNilNotifier(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "netsync.db"))
	require.NoError(t, err)
	defer db.Close()

	s := NewService(db, nil, logr.Discard())
	_, err = s.SaveDevice(context.Background(), Device{Hostname: "web1", IP: "10.0.0.5"})
	assert.NoError(t, err)
}
