package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI keeps hosts in memory and records every mutating call.
type fakeAPI struct {
	hosts      map[string]*Host
	interfaces map[string][]HostInterface
	nextID     int

	created   []HostSpec
	updated   []HostUpdate
	deleted   []string
	added     []Interface
	updateErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{hosts: map[string]*Host{}, interfaces: map[string][]HostInterface{}}
}

func (f *fakeAPI) GetHost(_ context.Context, hostname string) (*Host, error) {
	h, ok := f.hosts[hostname]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (f *fakeAPI) GetHostInterfaces(_ context.Context, hostID string) ([]HostInterface, error) {
	return f.interfaces[hostID], nil
}

func (f *fakeAPI) CreateHost(_ context.Context, spec HostSpec) (string, error) {
	f.nextID++
	id := fmt.Sprintf("%d", 10000+f.nextID)
	f.hosts[spec.Host] = &Host{ID: id, Host: spec.Host, Name: spec.Name, Templates: spec.Templates, Groups: spec.Groups}
	for _, iface := range spec.Interfaces {
		f.interfaces[id] = append(f.interfaces[id], HostInterface{Type: iface.Type, IP: iface.IP, Port: iface.Port})
	}
	f.created = append(f.created, spec)
	return id, nil
}

func (f *fakeAPI) UpdateHost(_ context.Context, u HostUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, u)
	for _, h := range f.hosts {
		if h.ID == u.ID {
			h.Name = u.Name
			h.Groups = u.Groups
			h.Templates = u.Templates
		}
	}
	return nil
}

func (f *fakeAPI) DeleteHost(_ context.Context, hostID string) error {
	for name, h := range f.hosts {
		if h.ID == hostID {
			delete(f.hosts, name)
		}
	}
	f.deleted = append(f.deleted, hostID)
	return nil
}

func (f *fakeAPI) CreateHostInterface(_ context.Context, hostID string, iface Interface) error {
	f.interfaces[hostID] = append(f.interfaces[hostID], HostInterface{Type: iface.Type, IP: iface.IP, Port: iface.Port})
	f.added = append(f.added, iface)
	return nil
}

func agent(ip string) Interface {
	return Interface{Type: InterfaceAgent, Main: 1, UseIP: 1, IP: ip, Port: "10050"}
}

func snmp(ip string) Interface {
	return Interface{Type: InterfaceSNMP, Main: 1, UseIP: 1, IP: ip, Port: "161"}
}

func TestCreateDeviceDefaultGroup(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api, logr.Discard())

	err := c.CreateDevice(context.Background(), Descriptor{Hostname: "nas", Name: "NAS", Templates: []int{5}})
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	assert.Equal(t, []int{DefaultGroup}, api.created[0].Groups)
	assert.Equal(t, []int{5}, api.created[0].Templates)
	assert.Equal(t, 1, api.created[0].InventoryMode)
}

func TestCreateDeviceConfiguredDefaultGroup(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api, logr.Discard(), WithDefaultGroup(42))

	require.NoError(t, c.CreateDevice(context.Background(), Descriptor{Hostname: "nas"}))
	assert.Equal(t, []int{42}, api.created[0].Groups)
}

func TestCreateDeviceKeepsGroups(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api, logr.Discard())

	require.NoError(t, c.CreateDevice(context.Background(), Descriptor{Hostname: "nas", Groups: []int{2, 3, 2}}))
	assert.Equal(t, []int{2, 3}, api.created[0].Groups)
}

func TestUpdateDeviceTemplateSymmetryInterfaceAsymmetry(t *testing.T) {
	api := newFakeAPI()
	api.hosts["router"] = &Host{ID: "100", Host: "router", Templates: []int{1, 2}, Groups: []int{7}}
	api.interfaces["100"] = []HostInterface{{ID: "1", Type: InterfaceAgent, IP: "10.0.0.1"}}
	c := NewClient(api, logr.Discard())

	err := c.UpdateDevice(context.Background(), Descriptor{
		Hostname:   "router",
		Name:       "Router",
		Templates:  []int{2, 3},
		Groups:     []int{7},
		Interfaces: []Interface{agent("10.0.0.1"), snmp("10.0.0.1")},
	})
	require.NoError(t, err)

	require.Len(t, api.updated, 1)
	u := api.updated[0]
	assert.Equal(t, []int{2, 3}, u.Templates)
	assert.Equal(t, []int{1}, u.ClearTemplates)
	assert.Equal(t, "Router", u.Name)

	require.Len(t, api.added, 1)
	assert.Equal(t, InterfaceSNMP, api.added[0].Type)

	types := []int{}
	for _, iface := range api.interfaces["100"] {
		types = append(types, iface.Type)
	}
	sort.Ints(types)
	assert.Equal(t, []int{InterfaceAgent, InterfaceSNMP}, types)
}

func TestUpdateDeviceNeverRemovesInterfaces(t *testing.T) {
	api := newFakeAPI()
	api.hosts["router"] = &Host{ID: "100", Host: "router"}
	api.interfaces["100"] = []HostInterface{
		{ID: "1", Type: InterfaceAgent},
		{ID: "2", Type: InterfaceSNMP},
	}
	c := NewClient(api, logr.Discard())

	require.NoError(t, c.UpdateDevice(context.Background(), Descriptor{
		Hostname:   "router",
		Interfaces: []Interface{agent("10.0.0.1")},
	}))

	assert.Empty(t, api.added)
	assert.Len(t, api.interfaces["100"], 2)
}

func TestUpdateDeviceCreatesMissingHost(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api, logr.Discard())

	require.NoError(t, c.UpdateDevice(context.Background(), Descriptor{
		Hostname:   "nas",
		Interfaces: []Interface{agent("10.0.0.5")},
	}))

	require.Len(t, api.created, 1)
	assert.Empty(t, api.updated)
	assert.Empty(t, api.added)
	assert.Equal(t, []int{DefaultGroup}, api.created[0].Groups)
}

func TestUpdateDeviceLeavesAddedInterfacesOnFailure(t *testing.T) {
	api := newFakeAPI()
	api.hosts["router"] = &Host{ID: "100", Host: "router"}
	api.updateErr = errors.New("boom")
	c := NewClient(api, logr.Discard())

	err := c.UpdateDevice(context.Background(), Descriptor{
		Hostname:   "router",
		Interfaces: []Interface{agent("10.0.0.1")},
	})
	require.ErrorIs(t, err, api.updateErr)
	assert.Len(t, api.added, 1)
}

func TestDeleteDevice(t *testing.T) {
	api := newFakeAPI()
	api.hosts["nas"] = &Host{ID: "100", Host: "nas"}
	c := NewClient(api, logr.Discard())
	ctx := context.Background()

	require.NoError(t, c.DeleteDevice(ctx, Descriptor{Hostname: "nas"}))
	assert.Equal(t, []string{"100"}, api.deleted)

	require.NoError(t, c.DeleteDevice(ctx, Descriptor{Hostname: "nas"}))
	assert.Len(t, api.deleted, 1)
}

func TestDescriptorValidation(t *testing.T) {
	c := NewClient(newFakeAPI(), logr.Discard())
	ctx := context.Background()

	assert.ErrorIs(t, c.CreateDevice(ctx, Descriptor{}), ErrInvalidDescriptor)
	assert.ErrorIs(t, c.UpdateDevice(ctx, Descriptor{Hostname: "x", Interfaces: []Interface{{}}}), ErrInvalidDescriptor)
	assert.ErrorIs(t, c.DeleteDevice(ctx, Descriptor{}), ErrInvalidDescriptor)
}

func TestTemplateDelta(t *testing.T) {
	tests := []struct {
		name         string
		wanted       []int
		attached     []int
		wantRequired []int
		wantClear    []int
	}{
		{"add and clear", []int{2, 3}, []int{1, 2}, []int{2, 3}, []int{1}},
		{"unchanged", []int{1}, []int{1}, []int{1}, nil},
		{"clear all", nil, []int{4, 5}, nil, []int{4, 5}},
		{"fresh", []int{9}, nil, []int{9}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			required, clear := templateDelta(tt.wanted, tt.attached)
			assert.Equal(t, tt.wantRequired, required)
			assert.Equal(t, tt.wantClear, clear)
		})
	}
}
