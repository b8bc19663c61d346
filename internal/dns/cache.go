package dns

import (
	"sort"
	"sync"
)

// recordSet is an immutable snapshot of the records in one zone, indexed by
// normalized FQDN. Several records may share a name (e.g. "www" alias plus
// address record).
type recordSet struct {
	zoneID string
	byName map[string][]Record
}

func newRecordSet(zoneID string, records []Record) recordSet {
	byName := make(map[string][]Record, len(records))
	for _, r := range records {
		key := normalizeName(r.Name)
		byName[key] = append(byName[key], r)
	}
	return recordSet{zoneID: zoneID, byName: byName}
}

// primary returns the record that represents hostname: the first address
// record if there is one, otherwise the first record of any type.
func (s recordSet) primary(hostname string) (Record, bool) {
	records := s.byName[normalizeName(hostname)]
	if len(records) == 0 {
		return Record{}, false
	}
	for _, r := range records {
		if IsAddress(r.Type) {
			return r, true
		}
	}
	return records[0], true
}

// find returns the first record for hostname with the given type.
func (s recordSet) find(hostname, recordType string) (Record, bool) {
	for _, r := range s.byName[normalizeName(hostname)] {
		if r.Type == recordType {
			return r, true
		}
	}
	return Record{}, false
}

// named returns every record for hostname.
func (s recordSet) named(hostname string) []Record {
	return s.byName[normalizeName(hostname)]
}

// list returns every record ordered by name, then type, then content.
func (s recordSet) list() []Record {
	var out []Record
	for _, records := range s.byName {
		out = append(out, records...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := normalizeName(a.Name), normalizeName(b.Name); ka != kb {
			return ka < kb
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Content < b.Content
	})
	return out
}

// zoneCache holds zone ids and record snapshots per domain. It is advisory:
// entries reflect the last fetch and may be stale relative to changes made
// outside this process. Callers refresh explicitly.
type zoneCache struct {
	mu      sync.RWMutex
	zones   map[string]string
	records map[string]recordSet
}

func newZoneCache() *zoneCache {
	return &zoneCache{
		zones:   make(map[string]string),
		records: make(map[string]recordSet),
	}
}

func (c *zoneCache) zone(domain string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.zones[normalizeName(domain)]
	return id, ok
}

func (c *zoneCache) setZone(domain, zoneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones[normalizeName(domain)] = zoneID
}

func (c *zoneCache) recordSet(domain string) (recordSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.records[normalizeName(domain)]
	return set, ok
}

func (c *zoneCache) setRecordSet(domain string, set recordSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[normalizeName(domain)] = set
}

// invalidate drops the record snapshot for domain. The zone id is kept.
func (c *zoneCache) invalidate(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, normalizeName(domain))
}
