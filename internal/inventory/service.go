package inventory

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// Notifier receives inventory changes after they are committed. A nil old
// value means the row was created.
type Notifier interface {
	DeviceSaved(ctx context.Context, old *Device, d Device) error
	DeviceDeleted(ctx context.Context, d Device) error
	DeviceTypeSaved(ctx context.Context, t DeviceType) error
	DeviceGroupsChanged(ctx context.Context, d Device) error
	SubdomainSaved(ctx context.Context, old *Subdomain, s Subdomain) error
	SubdomainDeleted(ctx context.Context, s Subdomain) error
}

// NopNotifier ignores every change.
type NopNotifier struct{}

func (NopNotifier) DeviceSaved(context.Context, *Device, Device) error         { return nil }
func (NopNotifier) DeviceDeleted(context.Context, Device) error                { return nil }
func (NopNotifier) DeviceTypeSaved(context.Context, DeviceType) error          { return nil }
func (NopNotifier) DeviceGroupsChanged(context.Context, Device) error          { return nil }
func (NopNotifier) SubdomainSaved(context.Context, *Subdomain, Subdomain) error { return nil }
func (NopNotifier) SubdomainDeleted(context.Context, Subdomain) error          { return nil }

// Service writes to the inventory and reports each committed change to its
// Notifier. A notifier error is returned but does not undo the write.
type Service struct {
	*DB
	notifier Notifier
	log      logr.Logger
}

// NewService wraps db. A nil notifier is replaced by NopNotifier.
func NewService(db *DB, notifier Notifier, log logr.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{DB: db, notifier: notifier, log: log.WithName("inventory")}
}

func (s *Service) notified(what string, err error) error {
	if err != nil {
		s.log.Error(err, "change saved but reconciliation failed", "change", what)
		return fmt.Errorf("%s saved, reconciliation failed: %w", what, err)
	}
	return nil
}

// SaveDevice creates or updates a device.
func (s *Service) SaveDevice(ctx context.Context, d Device) (Device, error) {
	old, saved, err := s.saveDevice(ctx, d)
	if err != nil {
		return Device{}, err
	}
	s.log.Info("device saved", "hostname", saved.Hostname, "ip", saved.IP, "created", old == nil)
	return saved, s.notified("device "+saved.Hostname, s.notifier.DeviceSaved(ctx, old, saved))
}

// DeleteDevice removes a device. Devices that still host subdomains are
// rejected with ErrInUse.
func (s *Service) DeleteDevice(ctx context.Context, hostname string) error {
	d, err := s.deleteDevice(ctx, hostname)
	if err != nil {
		return err
	}
	s.log.Info("device deleted", "hostname", d.Hostname)
	return s.notified("device "+d.Hostname, s.notifier.DeviceDeleted(ctx, d))
}

// SetDeviceGroups replaces the monitoring groups of a device.
func (s *Service) SetDeviceGroups(ctx context.Context, hostname string, groups []int) (Device, error) {
	d, err := s.setGroups(ctx, hostname, groups)
	if err != nil {
		return Device{}, err
	}
	s.log.Info("device groups set", "hostname", d.Hostname, "groups", d.Groups)
	return d, s.notified("groups of "+d.Hostname, s.notifier.DeviceGroupsChanged(ctx, d))
}

// SaveDeviceType creates or updates a device type and its templates.
func (s *Service) SaveDeviceType(ctx context.Context, t DeviceType) (DeviceType, error) {
	saved, err := s.saveDeviceType(ctx, t)
	if err != nil {
		return DeviceType{}, err
	}
	s.log.Info("device type saved", "name", saved.Name, "templates", saved.Templates)
	return saved, s.notified("device type "+saved.Name, s.notifier.DeviceTypeSaved(ctx, saved))
}

// SaveDomain creates a domain or changes its registrar.
func (s *Service) SaveDomain(ctx context.Context, d Domain) (Domain, error) {
	saved, err := s.saveDomain(ctx, d)
	if err != nil {
		return Domain{}, err
	}
	s.log.Info("domain saved", "name", saved.Name, "registrar", saved.Registrar)
	return saved, nil
}

// DeleteDomain removes a domain that has no subdomains.
func (s *Service) DeleteDomain(ctx context.Context, name string) error {
	if err := s.deleteDomain(ctx, name); err != nil {
		return err
	}
	s.log.Info("domain deleted", "name", name)
	return nil
}

// SaveSubdomain points name.domain at the device hostedOn.
func (s *Service) SaveSubdomain(ctx context.Context, name, domain, hostedOn string) (Subdomain, error) {
	old, saved, err := s.saveSubdomain(ctx, name, domain, hostedOn)
	if err != nil {
		return Subdomain{}, err
	}
	s.log.Info("subdomain saved", "fqdn", saved.FQDN(), "hostedOn", saved.HostedOn)
	return saved, s.notified("subdomain "+saved.FQDN(), s.notifier.SubdomainSaved(ctx, old, saved))
}

// DeleteSubdomain removes name.domain.
func (s *Service) DeleteSubdomain(ctx context.Context, name, domain string) error {
	deleted, err := s.deleteSubdomain(ctx, name, domain)
	if err != nil {
		return err
	}
	s.log.Info("subdomain deleted", "fqdn", deleted.FQDN())
	return s.notified("subdomain "+deleted.FQDN(), s.notifier.SubdomainDeleted(ctx, deleted))
}
