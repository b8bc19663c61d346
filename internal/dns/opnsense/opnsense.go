// Package opnsense exposes OPNsense Unbound host overrides as a dns.Provider.
// Each domain is its own zone; the zone id is the domain name and record ids
// are host override uuids.
package opnsense

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/dns"
)

func init() {
	dns.Register("opnsense", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

const defaultDescription = "managed by yk-netsync"

// Provider implements dns.Provider for OPNsense Unbound DNS.
type Provider struct {
	baseURL     string
	apiKey      string
	apiSecret   string
	domains     map[string]bool
	description string
	client      *http.Client
	log         logr.Logger
}

// New creates an OPNsense DNS provider from the given settings map.
// Required settings: base_url, api_key, api_secret.
// Optional settings: domains (comma-separated zones to manage, default any),
// description (stored on created overrides), skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	baseURL := settings["base_url"]
	if baseURL == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'base_url'")
	}
	apiKey := settings["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'api_key'")
	}
	apiSecret := settings["api_secret"]
	if apiSecret == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'api_secret'")
	}

	var domains map[string]bool
	if v := settings["domains"]; v != "" {
		domains = make(map[string]bool)
		for _, d := range strings.Split(v, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				domains[d] = true
			}
		}
	}

	description := settings["description"]
	if description == "" {
		description = defaultDescription
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Provider{
		baseURL:     baseURL,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		domains:     domains,
		description: description,
		client:      &http.Client{Transport: transport},
		log:         log,
	}, nil
}

// doRequest builds and executes an HTTP request against the OPNsense API.
func (p *Provider) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("opnsense: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("opnsense: build request: %w", err)
	}

	req.SetBasicAuth(p.apiKey, p.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opnsense: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// call posts body to path and decodes the JSON reply into out.
func (p *Provider) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := p.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("opnsense: %s returned status %d: %s", endpoint(path), resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("opnsense: decode %s response: %w", endpoint(path), err)
	}
	return nil
}

// endpoint trims the uuid suffix so errors name the API call.
func endpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 {
		return parts[2]
	}
	return path
}

// reconfigure tells OPNsense to apply DNS changes.
func (p *Provider) reconfigure(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := p.call(ctx, http.MethodPost, "unbound/service/reconfigure", struct{}{}, &result); err != nil {
		return fmt.Errorf("opnsense: reconfigure: %w", err)
	}
	p.log.V(1).Info("reconfigure completed", "status", result.Status)
	return nil
}

// searchResponse is the shape returned by searchHostOverride.
type searchResponse struct {
	Rows []hostRow `json:"rows"`
}

// hostRow represents a single host override row from the search response.
type hostRow struct {
	UUID     string `json:"uuid"`
	Enabled  string `json:"enabled"`
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
	RR       string `json:"rr"`
	Server   string `json:"server"`
}

// ZoneID returns domain itself when it is managed by this provider.
func (p *Provider) ZoneID(_ context.Context, domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if domain == "" {
		return "", nil
	}
	if p.domains != nil && !p.domains[domain] {
		p.log.V(1).Info("domain not managed", "domain", domain)
		return "", nil
	}
	return domain, nil
}

// ListRecords returns the enabled host overrides under the zone's domain.
func (p *Provider) ListRecords(ctx context.Context, zoneID string) ([]dns.Record, error) {
	var sr searchResponse
	if err := p.call(ctx, http.MethodGet, "unbound/settings/searchHostOverride", nil, &sr); err != nil {
		return nil, err
	}

	var records []dns.Record
	for _, row := range sr.Rows {
		if row.Enabled == "0" || !strings.EqualFold(row.Domain, zoneID) {
			continue
		}
		name := row.Domain
		if row.Hostname != "" && row.Hostname != "*" {
			name = row.Hostname + "." + row.Domain
		}
		records = append(records, dns.Record{
			ID:      row.UUID,
			Name:    name,
			Type:    strings.ToUpper(row.RR),
			Content: row.Server,
		})
	}
	p.log.V(1).Info("listed overrides", "domain", zoneID, "count", len(records))
	return records, nil
}

// CreateRecord adds a host override and applies it. Aliases are not supported.
func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) error {
	if !dns.IsAddress(record.Type) {
		return fmt.Errorf("opnsense: %w: %s", dns.ErrUnsupportedRecordType, record.Type)
	}

	body := map[string]interface{}{
		"host": map[string]string{
			"enabled":     "1",
			"hostname":    record.Name,
			"domain":      zoneID,
			"rr":          record.Type,
			"server":      record.Content,
			"description": p.description,
			"mxprio":      "",
			"mx":          "",
		},
	}
	var result struct {
		Result string `json:"result"`
		UUID   string `json:"uuid"`
	}
	if err := p.call(ctx, http.MethodPost, "unbound/settings/addHostOverride", body, &result); err != nil {
		return err
	}
	if result.Result != "saved" {
		return fmt.Errorf("opnsense: addHostOverride unexpected result: %s", result.Result)
	}

	p.log.V(1).Info("override created", "uuid", result.UUID, "hostname", record.Name, "domain", zoneID)
	return p.reconfigure(ctx)
}

// DeleteRecord removes the host override with the given uuid and applies it.
func (p *Provider) DeleteRecord(ctx context.Context, _ string, recordID string) error {
	var result struct {
		Result string `json:"result"`
	}
	path := fmt.Sprintf("unbound/settings/delHostOverride/%s", recordID)
	if err := p.call(ctx, http.MethodPost, path, struct{}{}, &result); err != nil {
		return err
	}
	if result.Result != "deleted" {
		return fmt.Errorf("opnsense: delHostOverride unexpected result: %s", result.Result)
	}

	p.log.V(1).Info("override deleted", "uuid", recordID)
	return p.reconfigure(ctx)
}
