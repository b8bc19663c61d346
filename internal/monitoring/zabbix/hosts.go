package zabbix

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

type templateRef struct {
	TemplateID string `json:"templateid"`
	Name       string `json:"name,omitempty"`
}

type groupRef struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name,omitempty"`
}

type hostObject struct {
	HostID          string        `json:"hostid"`
	Host            string        `json:"host"`
	Name            string        `json:"name"`
	ParentTemplates []templateRef `json:"parentTemplates"`
	HostGroups      []groupRef    `json:"hostgroups"`
	Groups          []groupRef    `json:"groups"`
}

type interfaceObject struct {
	InterfaceID string `json:"interfaceid"`
	Type        string `json:"type"`
	IP          string `json:"ip"`
	Port        string `json:"port"`
}

type hostParams struct {
	HostID         string                 `json:"hostid,omitempty"`
	Host           string                 `json:"host"`
	Name           string                 `json:"name,omitempty"`
	Groups         []groupRef             `json:"groups"`
	Templates      []templateRef          `json:"templates"`
	TemplatesClear []templateRef          `json:"templates_clear,omitempty"`
	InventoryMode  *int                   `json:"inventory_mode,omitempty"`
	Interfaces     []monitoring.Interface `json:"interfaces,omitempty"`
}

type interfaceParams struct {
	HostID string `json:"hostid"`
	monitoring.Interface
}

type hostIDs struct {
	HostIDs []string `json:"hostids"`
}

// GetHost looks up a host by its technical name.
func (a *API) GetHost(ctx context.Context, hostname string) (*monitoring.Host, error) {
	var hosts []hostObject
	err := a.call(ctx, "host.get", map[string]interface{}{
		"output":                []string{"hostid", "host", "name"},
		"filter":                map[string][]string{"host": {hostname}},
		"selectParentTemplates": []string{"templateid", "name"},
		"selectHostGroups":      []string{"groupid", "name"},
	}, &hosts)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, nil
	}

	h := hosts[0]
	host := &monitoring.Host{ID: h.HostID, Host: h.Host, Name: h.Name}
	for _, t := range h.ParentTemplates {
		id, err := strconv.Atoi(t.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("zabbix: host %s: template id %q: %w", h.HostID, t.TemplateID, err)
		}
		host.Templates = append(host.Templates, id)
	}
	groups := h.HostGroups
	if len(groups) == 0 {
		groups = h.Groups
	}
	for _, g := range groups {
		id, err := strconv.Atoi(g.GroupID)
		if err != nil {
			return nil, fmt.Errorf("zabbix: host %s: group id %q: %w", h.HostID, g.GroupID, err)
		}
		host.Groups = append(host.Groups, id)
	}
	return host, nil
}

// GetHostInterfaces lists the interfaces attached to a host.
func (a *API) GetHostInterfaces(ctx context.Context, hostID string) ([]monitoring.HostInterface, error) {
	var objs []interfaceObject
	err := a.call(ctx, "hostinterface.get", map[string]interface{}{
		"output":  []string{"interfaceid", "type", "ip", "port"},
		"hostids": hostID,
	}, &objs)
	if err != nil {
		return nil, err
	}

	out := make([]monitoring.HostInterface, 0, len(objs))
	for _, o := range objs {
		typ, err := strconv.Atoi(o.Type)
		if err != nil {
			return nil, fmt.Errorf("zabbix: interface %s: type %q: %w", o.InterfaceID, o.Type, err)
		}
		out = append(out, monitoring.HostInterface{ID: o.InterfaceID, Type: typ, IP: o.IP, Port: o.Port})
	}
	return out, nil
}

// CreateHost creates a host and returns its id.
func (a *API) CreateHost(ctx context.Context, spec monitoring.HostSpec) (string, error) {
	mode := spec.InventoryMode
	var res hostIDs
	err := a.call(ctx, "host.create", hostParams{
		Host:          spec.Host,
		Name:          spec.Name,
		Groups:        groupRefs(spec.Groups),
		Templates:     templateRefs(spec.Templates),
		InventoryMode: &mode,
		Interfaces:    spec.Interfaces,
	}, &res)
	if err != nil {
		return "", err
	}
	if len(res.HostIDs) == 0 {
		return "", fmt.Errorf("zabbix: host.create returned no host id")
	}
	return res.HostIDs[0], nil
}

// UpdateHost replaces the host's names, groups and linked templates.
func (a *API) UpdateHost(ctx context.Context, u monitoring.HostUpdate) error {
	return a.call(ctx, "host.update", hostParams{
		HostID:         u.ID,
		Host:           u.Host,
		Name:           u.Name,
		Groups:         groupRefs(u.Groups),
		Templates:      templateRefs(u.Templates),
		TemplatesClear: templateRefs(u.ClearTemplates),
	}, nil)
}

// DeleteHost deletes a host by id.
func (a *API) DeleteHost(ctx context.Context, hostID string) error {
	return a.call(ctx, "host.delete", []string{hostID}, nil)
}

// CreateHostInterface attaches an interface to a host.
func (a *API) CreateHostInterface(ctx context.Context, hostID string, iface monitoring.Interface) error {
	return a.call(ctx, "hostinterface.create", interfaceParams{HostID: hostID, Interface: iface}, nil)
}

func groupRefs(ids []int) []groupRef {
	refs := make([]groupRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, groupRef{GroupID: strconv.Itoa(id)})
	}
	return refs
}

func templateRefs(ids []int) []templateRef {
	refs := make([]templateRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, templateRef{TemplateID: strconv.Itoa(id)})
	}
	return refs
}
