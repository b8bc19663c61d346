package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// DefaultResolver is used by Lookup when no server is given.
const DefaultResolver = "1.1.1.1:53"

// Answer is one resolved A, AAAA or CNAME record.
type Answer struct {
	Name    string
	Type    string
	Content string
	TTL     uint32
}

// Lookup queries server directly for the A and AAAA records of hostname,
// following the answer section as returned (CNAME chains included). It is
// used to confirm that a change has reached the authoritative servers.
func Lookup(ctx context.Context, server, hostname string) ([]Answer, error) {
	if server == "" {
		server = DefaultResolver
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	client := &mdns.Client{Timeout: 5 * time.Second}
	var answers []Answer
	for _, qtype := range []uint16{mdns.TypeA, mdns.TypeAAAA} {
		m := new(mdns.Msg)
		m.SetQuestion(mdns.Fqdn(hostname), qtype)
		m.RecursionDesired = true

		r, _, err := client.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, fmt.Errorf("querying %s for %s: %w", server, hostname, err)
		}
		if r.Rcode == mdns.RcodeNameError {
			return nil, nil
		}
		if r.Rcode != mdns.RcodeSuccess {
			return nil, fmt.Errorf("querying %s for %s: %s", server, hostname, mdns.RcodeToString[r.Rcode])
		}
		for _, rr := range r.Answer {
			if a, ok := toAnswer(rr); ok && !containsAnswer(answers, a) {
				answers = append(answers, a)
			}
		}
	}
	return answers, nil
}

func toAnswer(rr mdns.RR) (Answer, bool) {
	hdr := rr.Header()
	name := strings.TrimSuffix(hdr.Name, ".")
	switch v := rr.(type) {
	case *mdns.A:
		return Answer{Name: name, Type: TypeA, Content: v.A.String(), TTL: hdr.Ttl}, true
	case *mdns.AAAA:
		return Answer{Name: name, Type: TypeAAAA, Content: v.AAAA.String(), TTL: hdr.Ttl}, true
	case *mdns.CNAME:
		return Answer{Name: name, Type: TypeCNAME, Content: strings.TrimSuffix(v.Target, "."), TTL: hdr.Ttl}, true
	}
	return Answer{}, false
}

func containsAnswer(answers []Answer, a Answer) bool {
	for _, existing := range answers {
		if existing.Name == a.Name && existing.Type == a.Type && existing.Content == a.Content {
			return true
		}
	}
	return false
}
