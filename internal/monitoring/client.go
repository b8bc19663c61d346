package monitoring

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// DefaultGroup is the "ungrouped devices" bucket used when a descriptor names
// no groups.
const DefaultGroup = 19

// inventoryAutomatic enables host inventory population on creation.
const inventoryAutomatic = 1

// Client reconciles device descriptors against a monitoring API.
type Client struct {
	api          API
	defaultGroup int
	log          logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDefaultGroup overrides the fallback group id. Zero keeps DefaultGroup.
func WithDefaultGroup(id int) Option {
	return func(c *Client) {
		if id != 0 {
			c.defaultGroup = id
		}
	}
}

// NewClient creates a monitoring client backed by api.
func NewClient(api API, log logr.Logger, opts ...Option) *Client {
	c := &Client{api: api, defaultGroup: DefaultGroup, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateDevice creates the host for d with its groups, templates and
// interfaces and inventory tracking enabled.
func (c *Client) CreateDevice(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	id, err := c.api.CreateHost(ctx, HostSpec{
		Host:          d.Hostname,
		Name:          d.Name,
		Groups:        c.groups(d),
		Templates:     uniqueIDs(d.Templates),
		InventoryMode: inventoryAutomatic,
		Interfaces:    d.Interfaces,
	})
	if err != nil {
		return fmt.Errorf("creating host %s: %w", d.Hostname, err)
	}
	c.log.Info("created host", "hostname", d.Hostname, "id", id)
	return nil
}

// UpdateDevice brings the host for d in line with it, creating the host when
// it does not exist. Interfaces are only ever added, matched by type.
// Templates are fully reconciled: attached templates missing from d are
// cleared.
func (c *Client) UpdateDevice(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	host, err := c.api.GetHost(ctx, d.Hostname)
	if err != nil {
		return fmt.Errorf("fetching host %s: %w", d.Hostname, err)
	}
	if host == nil {
		c.log.V(1).Info("host not found, creating", "hostname", d.Hostname)
		return c.CreateDevice(ctx, d)
	}

	existing, err := c.api.GetHostInterfaces(ctx, host.ID)
	if err != nil {
		return fmt.Errorf("fetching interfaces of %s: %w", d.Hostname, err)
	}
	for _, iface := range missingInterfaces(d.Interfaces, existing) {
		if err := c.api.CreateHostInterface(ctx, host.ID, iface); err != nil {
			return fmt.Errorf("adding interface type %d to %s: %w", iface.Type, d.Hostname, err)
		}
		c.log.Info("added interface", "hostname", d.Hostname, "type", iface.Type)
	}

	required, clear := templateDelta(d.Templates, host.Templates)
	err = c.api.UpdateHost(ctx, HostUpdate{
		ID:             host.ID,
		Host:           d.Hostname,
		Name:           d.Name,
		Groups:         c.groups(d),
		Templates:      required,
		ClearTemplates: clear,
	})
	if err != nil {
		return fmt.Errorf("updating host %s: %w", d.Hostname, err)
	}
	c.log.Info("updated host", "hostname", d.Hostname, "id", host.ID, "templates", required, "cleared", clear)
	return nil
}

// DeleteDevice removes the host for d. A missing host is a no-op.
func (c *Client) DeleteDevice(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	host, err := c.api.GetHost(ctx, d.Hostname)
	if err != nil {
		return fmt.Errorf("fetching host %s: %w", d.Hostname, err)
	}
	if host == nil {
		c.log.V(1).Info("host not found, nothing to delete", "hostname", d.Hostname)
		return nil
	}
	if err := c.api.DeleteHost(ctx, host.ID); err != nil {
		return fmt.Errorf("deleting host %s: %w", d.Hostname, err)
	}
	c.log.Info("deleted host", "hostname", d.Hostname, "id", host.ID)
	return nil
}

func (c *Client) groups(d Descriptor) []int {
	groups := uniqueIDs(d.Groups)
	if len(groups) == 0 {
		return []int{c.defaultGroup}
	}
	return groups
}

// missingInterfaces returns the wanted interfaces whose type is not present
// on the host.
func missingInterfaces(wanted []Interface, existing []HostInterface) []Interface {
	have := make(map[int]bool, len(existing))
	for _, iface := range existing {
		have[iface.Type] = true
	}
	var missing []Interface
	for _, iface := range wanted {
		if !have[iface.Type] {
			missing = append(missing, iface)
		}
	}
	return missing
}

// templateDelta returns the required template set and the attached templates
// to clear.
func templateDelta(wanted, attached []int) (required, clear []int) {
	required = uniqueIDs(wanted)
	keep := make(map[int]bool, len(required))
	for _, id := range required {
		keep[id] = true
	}
	for _, id := range uniqueIDs(attached) {
		if !keep[id] {
			clear = append(clear, id)
		}
	}
	return required, clear
}

// uniqueIDs drops duplicates, keeping first-seen order.
func uniqueIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
