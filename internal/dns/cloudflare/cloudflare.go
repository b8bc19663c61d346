// Package cloudflare adapts the Cloudflare v4 API to dns.Provider.
package cloudflare

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudflare/cloudflare-go/v2"
	cfdns "github.com/cloudflare/cloudflare-go/v2/dns"
	"github.com/cloudflare/cloudflare-go/v2/option"
	"github.com/cloudflare/cloudflare-go/v2/zones"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/dns"
)

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider on top of cloudflare-go.
type Provider struct {
	client     *cloudflare.Client
	defaultTTL int
	log        logr.Logger
}

// New creates a Cloudflare provider from the given settings map.
// Required settings: api_token.
// Optional settings: base_url (API endpoint override), default_ttl (default 1, automatic).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	token := settings["api_token"]
	if token == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'api_token'")
	}

	defaultTTL := 1
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid default_ttl %q: %w", v, err)
		}
		defaultTTL = parsed
	}

	opts := []option.RequestOption{option.WithAPIToken(token)}
	if v := settings["base_url"]; v != "" {
		opts = append(opts, option.WithBaseURL(v))
	}

	return &Provider{
		client:     cloudflare.NewClient(opts...),
		defaultTTL: defaultTTL,
		log:        log,
	}, nil
}

// ZoneID returns the id of the zone named domain, or "" when the account has none.
func (p *Provider) ZoneID(ctx context.Context, domain string) (string, error) {
	resp, err := p.client.Zones.List(ctx, zones.ZoneListParams{
		Name: cloudflare.F(domain),
	})
	if err != nil {
		return "", fmt.Errorf("cloudflare: list zones: %w", err)
	}
	if len(resp.Result) == 0 {
		p.log.V(1).Info("zone not found", "domain", domain)
		return "", nil
	}
	return resp.Result[0].ID, nil
}

// ListRecords returns every record in the zone, following pagination.
func (p *Provider) ListRecords(ctx context.Context, zoneID string) ([]dns.Record, error) {
	var records []dns.Record
	pager := p.client.DNS.Records.ListAutoPaging(ctx, cfdns.RecordListParams{
		ZoneID: cloudflare.F(zoneID),
	})
	for pager.Next() {
		record := pager.Current()
		content := ""
		if str, ok := record.Content.(string); ok {
			content = str
		}
		records = append(records, dns.Record{
			ID:      record.ID,
			Name:    record.Name,
			Type:    string(record.Type),
			Content: content,
			TTL:     int(record.TTL),
		})
	}
	if err := pager.Err(); err != nil {
		return nil, fmt.Errorf("cloudflare: list records: %w", err)
	}
	p.log.V(1).Info("listed records", "zone", zoneID, "count", len(records))
	return records, nil
}

// CreateRecord creates an A, AAAA or CNAME record in the zone.
func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) error {
	ttl := record.TTL
	if ttl == 0 {
		ttl = p.defaultTTL
	}
	if ttl == 0 {
		ttl = 1
	}

	param, err := buildRecordParam(record, ttl)
	if err != nil {
		return err
	}
	created, err := p.client.DNS.Records.New(ctx, cfdns.RecordNewParams{
		ZoneID: cloudflare.F(zoneID),
		Record: param,
	})
	if err != nil {
		return fmt.Errorf("cloudflare: create %s record %s: %w", record.Type, record.Name, err)
	}
	p.log.V(1).Info("record created", "zone", zoneID, "name", record.Name, "type", record.Type, "id", created.ID)
	return nil
}

func buildRecordParam(record dns.Record, ttl int) (cfdns.RecordUnionParam, error) {
	switch record.Type {
	case dns.TypeA:
		return cfdns.ARecordParam{
			Name:    cloudflare.F(record.Name),
			Type:    cloudflare.F(cfdns.ARecordTypeA),
			Content: cloudflare.F(record.Content),
			TTL:     cloudflare.F(cfdns.TTL(ttl)),
		}, nil
	case dns.TypeAAAA:
		return cfdns.AAAARecordParam{
			Name:    cloudflare.F(record.Name),
			Type:    cloudflare.F(cfdns.AAAARecordTypeAAAA),
			Content: cloudflare.F(record.Content),
			TTL:     cloudflare.F(cfdns.TTL(ttl)),
		}, nil
	case dns.TypeCNAME:
		return cfdns.CNAMERecordParam{
			Name:    cloudflare.F(record.Name),
			Type:    cloudflare.F(cfdns.CNAMERecordTypeCNAME),
			Content: cloudflare.F[interface{}](record.Content),
			TTL:     cloudflare.F(cfdns.TTL(ttl)),
		}, nil
	}
	return nil, fmt.Errorf("cloudflare: %w: %s", dns.ErrUnsupportedRecordType, record.Type)
}

// DeleteRecord removes the record with the given id from the zone.
func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	_, err := p.client.DNS.Records.Delete(ctx, recordID, cfdns.RecordDeleteParams{
		ZoneID: cloudflare.F(zoneID),
	})
	if err != nil {
		return fmt.Errorf("cloudflare: delete record %s: %w", recordID, err)
	}
	p.log.V(1).Info("record deleted", "zone", zoneID, "id", recordID)
	return nil
}
