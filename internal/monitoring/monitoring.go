// Package monitoring keeps monitored hosts in agreement with device
// descriptors built from the local inventory.
package monitoring

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is returned by APIs whose session has ended.
	ErrNotLoggedIn = errors.New("monitoring: not logged in")
	// ErrInvalidDescriptor is returned for descriptors without a hostname.
	ErrInvalidDescriptor = errors.New("monitoring: invalid descriptor")
)

// Interface types as numbered by Zabbix.
const (
	InterfaceAgent = 1
	InterfaceSNMP  = 2
	InterfaceIPMI  = 3
	InterfaceJMX   = 4
)

// Interface is a network interface the monitoring platform polls.
type Interface struct {
	Type    int               `json:"type" yaml:"type"`
	Main    int               `json:"main" yaml:"main"`
	UseIP   int               `json:"useip" yaml:"useip"`
	IP      string            `json:"ip" yaml:"ip"`
	DNS     string            `json:"dns" yaml:"dns"`
	Port    string            `json:"port" yaml:"port"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Descriptor is the desired monitoring state of one device.
type Descriptor struct {
	Hostname   string      `yaml:"hostname"`
	Name       string      `yaml:"name"`
	Templates  []int       `yaml:"templates"`
	Groups     []int       `yaml:"groups"`
	Interfaces []Interface `yaml:"interfaces"`
}

// Validate checks the fields every operation depends on.
func (d Descriptor) Validate() error {
	if d.Hostname == "" {
		return fmt.Errorf("%w: hostname is required", ErrInvalidDescriptor)
	}
	for i, iface := range d.Interfaces {
		if iface.Type == 0 {
			return fmt.Errorf("%w: interface %d has no type", ErrInvalidDescriptor, i)
		}
	}
	return nil
}

// Host is a monitored host as stored by the platform.
type Host struct {
	ID        string
	Host      string
	Name      string
	Templates []int
	Groups    []int
}

// HostInterface is an interface already attached to a host.
type HostInterface struct {
	ID   string
	Type int
	IP   string
	Port string
}

// HostSpec describes a host to create.
type HostSpec struct {
	Host          string
	Name          string
	Groups        []int
	Templates     []int
	InventoryMode int
	Interfaces    []Interface
}

// HostUpdate describes a change to an existing host. Templates are linked,
// ClearTemplates are unlinked and their items removed.
type HostUpdate struct {
	ID             string
	Host           string
	Name           string
	Groups         []int
	Templates      []int
	ClearTemplates []int
}

// API is the narrow surface a monitoring backend must offer.
type API interface {
	// GetHost returns the host with the exact technical name, or nil.
	GetHost(ctx context.Context, hostname string) (*Host, error)
	GetHostInterfaces(ctx context.Context, hostID string) ([]HostInterface, error)
	CreateHost(ctx context.Context, spec HostSpec) (string, error)
	UpdateHost(ctx context.Context, update HostUpdate) error
	DeleteHost(ctx context.Context, hostID string) error
	CreateHostInterface(ctx context.Context, hostID string, iface Interface) error
}
