package controller

import (
	"fmt"
	"strings"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

const (
	agentPort     = "10050"
	snmpPort      = "161"
	snmpCommunity = "{$SNMP_COMMUNITY}"
)

// DeviceDescriptor builds the monitoring descriptor for d. templates are the
// template ids of the device's type.
func DeviceDescriptor(d inventory.Device, templates []int) monitoring.Descriptor {
	desc := monitoring.Descriptor{
		Hostname:  d.Hostname,
		Name:      d.Name,
		Templates: append([]int(nil), templates...),
		Groups:    append([]int(nil), d.Groups...),
		Interfaces: []monitoring.Interface{{
			Type:  monitoring.InterfaceAgent,
			Main:  1,
			UseIP: 1,
			IP:    d.IP,
			Port:  agentPort,
		}},
	}
	if d.SNMP {
		desc.Interfaces = append(desc.Interfaces, monitoring.Interface{
			Type:  monitoring.InterfaceSNMP,
			Main:  1,
			UseIP: 1,
			IP:    d.IP,
			Port:  snmpPort,
			Details: map[string]string{
				"version":   "2",
				"community": snmpCommunity,
			},
		})
	}
	return desc
}

// FormatDescriptor returns a human-readable string representation of a
// monitoring descriptor.
func FormatDescriptor(d monitoring.Descriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Host %s", d.Hostname)
	if d.Name != "" && d.Name != d.Hostname {
		fmt.Fprintf(&b, " (%s)", d.Name)
	}
	fmt.Fprintln(&b)

	if len(d.Groups) > 0 {
		fmt.Fprintf(&b, "  Groups: %v\n", d.Groups)
	}
	if len(d.Templates) > 0 {
		fmt.Fprintf(&b, "  Templates: %v\n", d.Templates)
	}

	for i, iface := range d.Interfaces {
		addr := iface.IP
		if iface.UseIP == 0 {
			addr = iface.DNS
		}
		fmt.Fprintf(&b, "  Interface[%d]: type=%s %s:%s", i, interfaceName(iface.Type), addr, iface.Port)
		if iface.Main == 1 {
			fmt.Fprint(&b, " main")
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}

func interfaceName(t int) string {
	switch t {
	case monitoring.InterfaceAgent:
		return "agent"
	case monitoring.InterfaceSNMP:
		return "snmp"
	case monitoring.InterfaceIPMI:
		return "ipmi"
	case monitoring.InterfaceJMX:
		return "jmx"
	}
	return fmt.Sprintf("%d", t)
}
