package dns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// Client reconciles "hostname should resolve to address" intents against a
// Provider. Zone ids and record sets are cached per domain.
type Client struct {
	provider Provider
	log      logr.Logger
	cache    *zoneCache

	// opMu serializes mutating operations so the check-then-create sequence
	// in AddRecord cannot interleave with another caller in this process.
	opMu sync.Mutex
}

// NewClient creates a DNS client backed by provider.
func NewClient(provider Provider, log logr.Logger) *Client {
	return &Client{
		provider: provider,
		log:      log,
		cache:    newZoneCache(),
	}
}

// Zone returns the provider zone id for domain, or "" when there is none.
// Found zone ids are cached; misses are not.
func (c *Client) Zone(ctx context.Context, domain string) (string, error) {
	if id, ok := c.cache.zone(domain); ok {
		return id, nil
	}
	id, err := c.provider.ZoneID(ctx, domain)
	if err != nil {
		return "", fmt.Errorf("looking up zone for %s: %w", domain, err)
	}
	if id == "" {
		return "", nil
	}
	c.cache.setZone(domain, id)
	return id, nil
}

// Records returns every record under the zone for domain, ordered by name.
// The cached set is used unless force is true. A domain without a zone
// yields no records.
func (c *Client) Records(ctx context.Context, domain string, force bool) ([]Record, error) {
	set, err := c.recordSet(ctx, domain, force)
	if err != nil {
		return nil, err
	}
	return set.list(), nil
}

// Refresh drops the cached record set for domain.
func (c *Client) Refresh(domain string) {
	c.cache.invalidate(domain)
}

func (c *Client) recordSet(ctx context.Context, domain string, force bool) (recordSet, error) {
	if !force {
		if set, ok := c.cache.recordSet(domain); ok {
			return set, nil
		}
	}
	zoneID, err := c.Zone(ctx, domain)
	if err != nil {
		return recordSet{}, err
	}
	if zoneID == "" {
		return recordSet{}, nil
	}
	records, err := c.provider.ListRecords(ctx, zoneID)
	if err != nil {
		return recordSet{}, fmt.Errorf("listing records for %s: %w", domain, err)
	}
	set := newRecordSet(zoneID, records)
	c.cache.setRecordSet(domain, set)
	c.log.V(1).Info("fetched records", "domain", domain, "zone", zoneID, "count", len(records))
	return set, nil
}

// HasRecord reports whether a record for hostname exists. When address is
// non-empty only a record of the address's family (A or AAAA) with that
// content counts.
func (c *Client) HasRecord(ctx context.Context, hostname, address string) (bool, error) {
	set, err := c.recordSet(ctx, SplitDomain(hostname).Domain, false)
	if err != nil {
		return false, err
	}
	for _, r := range set.named(hostname) {
		if address == "" || (r.Type == addressType(address) && sameAddress(r.Content, address)) {
			return true, nil
		}
	}
	return false, nil
}

// AddRecord makes hostname resolve to address. It is a no-op when the domain
// has no zone or exactly one record of the address's family already points
// at address. Other records of that family are deleted first, as is a CNAME
// on any label but "www"; records of the other family are left alone. A
// "www" label additionally gets an alias to the bare domain. provider names
// the registrar and is only logged.
func (c *Client) AddRecord(ctx context.Context, hostname, address, provider string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	split := SplitDomain(hostname)
	zoneID, err := c.Zone(ctx, split.Domain)
	if err != nil {
		return err
	}
	if zoneID == "" {
		c.log.V(1).Info("no zone for domain, skipping", "hostname", hostname, "domain", split.Domain)
		return nil
	}

	set, err := c.recordSet(ctx, split.Domain, false)
	if err != nil {
		return err
	}
	www := strings.EqualFold(split.Subdomain, "www")
	family := addressType(address)
	var current bool
	var stale []Record
	for _, r := range set.named(hostname) {
		switch {
		case r.Type == family && sameAddress(r.Content, address) && !current:
			current = true
		case r.Type == family:
			stale = append(stale, r)
		case r.Type == TypeCNAME && !www:
			stale = append(stale, r)
		}
	}
	if err := c.deleteRecords(ctx, zoneID, split.Domain, hostname, provider, stale); err != nil {
		return err
	}
	if current {
		c.log.V(1).Info("record already up to date", "hostname", hostname, "address", address)
		return nil
	}

	if www {
		if err := c.ensureAlias(ctx, zoneID, hostname, split); err != nil {
			return err
		}
	}

	record := Record{Name: split.Subdomain, Type: family, Content: address}
	err = c.provider.CreateRecord(ctx, zoneID, record)
	c.cache.invalidate(split.Domain)
	if err != nil {
		return fmt.Errorf("creating %s record for %s: %w", record.Type, hostname, err)
	}
	c.log.Info("created record", "hostname", hostname, "type", record.Type, "address", address, "provider", provider)
	return nil
}

func (c *Client) deleteRecords(ctx context.Context, zoneID, domain, hostname, provider string, records []Record) error {
	for _, rec := range records {
		err := c.provider.DeleteRecord(ctx, zoneID, rec.ID)
		c.cache.invalidate(domain)
		if err != nil {
			return fmt.Errorf("deleting record %s for %s: %w", rec.ID, hostname, err)
		}
		c.log.Info("deleted conflicting record", "hostname", hostname, "type", rec.Type, "content", rec.Content, "id", rec.ID, "provider", provider)
	}
	return nil
}

// ensureAlias creates the CNAME from the www label to the bare domain unless
// an identical alias is already present.
func (c *Client) ensureAlias(ctx context.Context, zoneID, hostname string, split Split) error {
	set, err := c.recordSet(ctx, split.Domain, false)
	if err != nil {
		return err
	}
	if rec, ok := set.find(hostname, TypeCNAME); ok && normalizeName(rec.Content) == normalizeName(split.Domain) {
		return nil
	}
	// The alias shares its name with the address record. Providers that
	// enforce the CNAME exclusivity rule (Cloudflare does) reject one of
	// the two, and that error is returned to the caller.
	alias := Record{Name: split.Subdomain, Type: TypeCNAME, Content: split.Domain}
	err = c.provider.CreateRecord(ctx, zoneID, alias)
	c.cache.invalidate(split.Domain)
	if errors.Is(err, ErrUnsupportedRecordType) {
		c.log.Info("provider does not support aliases, skipping", "hostname", hostname)
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating alias for %s: %w", hostname, err)
	}
	c.log.Info("created alias", "hostname", hostname, "target", split.Domain)
	return nil
}

// DeleteRecord removes the record for hostname. Missing zones and missing
// records are no-ops. provider names the registrar and is only logged.
func (c *Client) DeleteRecord(ctx context.Context, hostname, provider string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.deleteRecord(ctx, hostname, provider)
}

func (c *Client) deleteRecord(ctx context.Context, hostname, provider string) error {
	split := SplitDomain(hostname)
	zoneID, err := c.Zone(ctx, split.Domain)
	if err != nil {
		return err
	}
	if zoneID == "" {
		c.log.V(1).Info("no zone for domain, skipping", "hostname", hostname, "domain", split.Domain)
		return nil
	}
	set, err := c.recordSet(ctx, split.Domain, false)
	if err != nil {
		return err
	}
	rec, ok := set.primary(hostname)
	if !ok {
		c.log.V(1).Info("no record to delete", "hostname", hostname)
		return nil
	}
	err = c.provider.DeleteRecord(ctx, zoneID, rec.ID)
	c.cache.invalidate(split.Domain)
	if err != nil {
		return fmt.Errorf("deleting record %s for %s: %w", rec.ID, hostname, err)
	}
	c.log.Info("deleted record", "hostname", hostname, "type", rec.Type, "id", rec.ID, "provider", provider)
	return nil
}

// sameAddress compares two addresses in canonical form so that differently
// written IPv6 addresses match.
func sameAddress(a, b string) bool {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return pa == pb
}

// addressType picks AAAA for IPv6 addresses and A for everything else.
func addressType(address string) string {
	if ip, err := netip.ParseAddr(address); err == nil && ip.Is6() && !ip.Is4In6() {
		return TypeAAAA
	}
	return TypeA
}
