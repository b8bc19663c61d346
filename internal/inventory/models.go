package inventory

import (
	"fmt"
	"net/netip"
	"strings"

	mdns "github.com/miekg/dns"
)

// Setting is a named configuration value.
type Setting struct {
	Name        string
	Value       string
	Description string
}

// Configured reports "Yes" when the setting has a value, "No" otherwise.
func (s Setting) Configured() string {
	if s.Value != "" {
		return "Yes"
	}
	return "No"
}

// DeviceType groups devices that share monitoring templates.
type DeviceType struct {
	ID        int64
	Name      string
	Templates []int
}

// Device is a host on the network.
type Device struct {
	ID         int64
	Hostname   string
	Name       string
	IP         string
	DeviceType string // device type name, empty when unset
	Monitored  bool
	SNMP       bool
	Groups     []int
}

// Domain is a registered domain.
type Domain struct {
	ID        int64
	Name      string
	Registrar string
}

// Subdomain is a single-label name under a domain served by a device.
type Subdomain struct {
	ID        int64
	Name      string
	Domain    string
	Registrar string
	HostedOn  string // device hostname
	HostIP    string // device IP
}

// FQDN returns the subdomain joined with its domain.
func (s Subdomain) FQDN() string {
	return s.Name + "." + s.Domain
}

func validHostname(name string) bool {
	if name == "" || strings.HasSuffix(name, ".") {
		return false
	}
	if _, ok := mdns.IsDomainName(name); !ok {
		return false
	}
	for _, label := range mdns.SplitDomainName(name) {
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

func (d *Device) normalize() error {
	d.Hostname = strings.ToLower(strings.TrimSpace(d.Hostname))
	if !validHostname(d.Hostname) {
		return fmt.Errorf("%w: hostname %q", ErrInvalid, d.Hostname)
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(d.IP))
	if err != nil {
		return fmt.Errorf("%w: ip %q", ErrInvalid, d.IP)
	}
	d.IP = ip.String()
	if d.Name == "" {
		d.Name = d.Hostname
	}
	d.Groups = uniqueInts(d.Groups)
	return nil
}

func (t *DeviceType) normalize() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: device type name is required", ErrInvalid)
	}
	t.Templates = uniqueInts(t.Templates)
	return nil
}

func (d *Domain) normalize() error {
	d.Name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(d.Name), "."))
	if !validHostname(d.Name) {
		return fmt.Errorf("%w: domain %q", ErrInvalid, d.Name)
	}
	return nil
}

func normalizeLabel(label string) (string, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if strings.Contains(label, ".") || !validHostname(label) {
		return "", fmt.Errorf("%w: subdomain label %q", ErrInvalid, label)
	}
	return label, nil
}

func uniqueInts(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
