package dns

import (
	"context"
	"errors"
)

// Record types managed by the client.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypeCNAME = "CNAME"
)

// ErrUnsupportedRecordType is returned by providers that cannot create a record of the requested type.
var ErrUnsupportedRecordType = errors.New("dns: unsupported record type")

// Record is a DNS record as seen by a provider.
type Record struct {
	ID      string // provider-assigned id, empty on create
	Name    string // FQDN when listed, relative label when created
	Type    string // "A", "AAAA", "CNAME"
	Content string // IP address or alias target
	TTL     int    // 0 = provider default
}

// Provider is the narrow surface a DNS hosting backend must offer.
// Zones are addressed by the provider's own zone id.
type Provider interface {
	// ZoneID returns the zone id for domain, or "" when the provider has no such zone.
	ZoneID(ctx context.Context, domain string) (string, error)
	ListRecords(ctx context.Context, zoneID string) ([]Record, error)
	CreateRecord(ctx context.Context, zoneID string, record Record) error
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}

// IsAddress reports whether recordType maps a name directly to an IP.
func IsAddress(recordType string) bool {
	return recordType == TypeA || recordType == TypeAAAA
}
