// Package controller turns committed inventory changes into DNS and
// monitoring reconciliation calls.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

// Automation is the subset of the automation facade the reconciler drives.
type Automation interface {
	UpdateDNS(ctx context.Context, hostname, address, provider string) error
	DeleteDNS(ctx context.Context, hostname, provider string) error
	CreateDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error
	UpdateDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error
	DeleteDeviceMonitoring(ctx context.Context, d monitoring.Descriptor) error
}

// Inventory is the read side of the inventory the reconciler needs.
type Inventory interface {
	DeviceType(ctx context.Context, name string) (inventory.DeviceType, error)
	DevicesOfType(ctx context.Context, name string) ([]inventory.Device, error)
	SubdomainsHostedOn(ctx context.Context, hostname string) ([]inventory.Subdomain, error)
}

// Reconciler implements inventory.Notifier.
type Reconciler struct {
	Automation Automation
	Inventory  Inventory
	Log        logr.Logger
}

var _ inventory.Notifier = (*Reconciler)(nil)

// DeviceSaved repoints the subdomains of a device whose IP changed and
// reconciles its monitored host.
func (r *Reconciler) DeviceSaved(ctx context.Context, old *inventory.Device, d inventory.Device) error {
	if old != nil && old.IP != d.IP {
		subs, err := r.Inventory.SubdomainsHostedOn(ctx, d.Hostname)
		if err != nil {
			return fmt.Errorf("listing subdomains of %s: %w", d.Hostname, err)
		}
		for _, s := range subs {
			r.Log.Info("device IP changed, updating DNS", "fqdn", s.FQDN(), "old", old.IP, "ip", d.IP)
			if err := r.Automation.UpdateDNS(ctx, s.FQDN(), d.IP, s.Registrar); err != nil {
				return fmt.Errorf("updating DNS record for %s: %w", s.FQDN(), err)
			}
		}
	}

	switch {
	case d.Monitored:
		desc, err := r.descriptor(ctx, d)
		if err != nil {
			return err
		}
		if old == nil {
			r.Log.Info("creating monitored host", "hostname", d.Hostname)
			if err := r.Automation.CreateDeviceMonitoring(ctx, desc); err != nil {
				return fmt.Errorf("creating monitoring for %s: %w", d.Hostname, err)
			}
			return nil
		}
		r.Log.Info("updating monitored host", "hostname", d.Hostname)
		if err := r.Automation.UpdateDeviceMonitoring(ctx, desc); err != nil {
			return fmt.Errorf("updating monitoring for %s: %w", d.Hostname, err)
		}
	case old != nil && old.Monitored:
		r.Log.Info("device no longer monitored, deleting host", "hostname", d.Hostname)
		if err := r.Automation.DeleteDeviceMonitoring(ctx, monitoring.Descriptor{Hostname: d.Hostname}); err != nil {
			return fmt.Errorf("deleting monitoring for %s: %w", d.Hostname, err)
		}
	}
	return nil
}

// DeviceDeleted removes the monitored host of a deleted device.
func (r *Reconciler) DeviceDeleted(ctx context.Context, d inventory.Device) error {
	if !d.Monitored {
		return nil
	}
	r.Log.Info("device deleted, deleting monitored host", "hostname", d.Hostname)
	if err := r.Automation.DeleteDeviceMonitoring(ctx, monitoring.Descriptor{Hostname: d.Hostname}); err != nil {
		return fmt.Errorf("deleting monitoring for %s: %w", d.Hostname, err)
	}
	return nil
}

// DeviceTypeSaved reconciles every monitored device of the type so template
// changes reach the monitoring platform.
func (r *Reconciler) DeviceTypeSaved(ctx context.Context, t inventory.DeviceType) error {
	devices, err := r.Inventory.DevicesOfType(ctx, t.Name)
	if err != nil {
		return fmt.Errorf("listing devices of type %s: %w", t.Name, err)
	}

	var errs []error
	for _, d := range devices {
		if !d.Monitored {
			continue
		}
		r.Log.V(1).Info("device type changed, updating monitored host", "type", t.Name, "hostname", d.Hostname)
		if err := r.Automation.UpdateDeviceMonitoring(ctx, DeviceDescriptor(d, t.Templates)); err != nil {
			errs = append(errs, fmt.Errorf("updating monitoring for %s: %w", d.Hostname, err))
		}
	}
	return errors.Join(errs...)
}

// DeviceGroupsChanged reconciles the monitored host of d.
func (r *Reconciler) DeviceGroupsChanged(ctx context.Context, d inventory.Device) error {
	if !d.Monitored {
		return nil
	}
	desc, err := r.descriptor(ctx, d)
	if err != nil {
		return err
	}
	r.Log.Info("device groups changed, updating monitored host", "hostname", d.Hostname, "groups", d.Groups)
	if err := r.Automation.UpdateDeviceMonitoring(ctx, desc); err != nil {
		return fmt.Errorf("updating monitoring for %s: %w", d.Hostname, err)
	}
	return nil
}

// SubdomainSaved points a new or re-hosted subdomain at its device.
func (r *Reconciler) SubdomainSaved(ctx context.Context, old *inventory.Subdomain, s inventory.Subdomain) error {
	if old != nil && old.HostedOn == s.HostedOn {
		r.Log.V(1).Info("subdomain host unchanged, skipping DNS", "fqdn", s.FQDN())
		return nil
	}
	r.Log.Info("updating DNS for subdomain", "fqdn", s.FQDN(), "hostedOn", s.HostedOn, "ip", s.HostIP)
	if err := r.Automation.UpdateDNS(ctx, s.FQDN(), s.HostIP, s.Registrar); err != nil {
		return fmt.Errorf("updating DNS record for %s: %w", s.FQDN(), err)
	}
	return nil
}

// SubdomainDeleted removes the DNS record of a deleted subdomain.
func (r *Reconciler) SubdomainDeleted(ctx context.Context, s inventory.Subdomain) error {
	r.Log.Info("deleting DNS for subdomain", "fqdn", s.FQDN())
	if err := r.Automation.DeleteDNS(ctx, s.FQDN(), s.Registrar); err != nil {
		return fmt.Errorf("deleting DNS record for %s: %w", s.FQDN(), err)
	}
	return nil
}

func (r *Reconciler) descriptor(ctx context.Context, d inventory.Device) (monitoring.Descriptor, error) {
	var templates []int
	if d.DeviceType != "" {
		t, err := r.Inventory.DeviceType(ctx, d.DeviceType)
		if err != nil {
			return monitoring.Descriptor{}, fmt.Errorf("loading device type %s: %w", d.DeviceType, err)
		}
		templates = t.Templates
	}
	return DeviceDescriptor(d, templates), nil
}
