package config

import (
	"fmt"
	"os"
)

// ProviderConfig holds a backend name and its connection settings.
type ProviderConfig struct {
	Provider string            `yaml:"provider"`
	Settings map[string]string `yaml:"settings"`
}

// Expand ${ENV_VAR} references in setting values.
func (p *ProviderConfig) expandEnv() {
	for k, v := range p.Settings {
		p.Settings[k] = os.ExpandEnv(v)
	}
}

// SettingLookup reads a named value from the settings store. ok is false when
// the setting does not exist.
type SettingLookup func(name string) (value string, ok bool, err error)

// storeBinding fills one backend setting from one stored setting.
type storeBinding struct {
	provider string
	setting  string
	name     string
}

var dnsBindings = []storeBinding{
	{provider: "cloudflare", setting: "api_token", name: "CLOUDFLARE_API_KEY"},
}

var monitoringBindings = []storeBinding{
	{provider: "zabbix", setting: "url", name: "ZABBIX_URL"},
	{provider: "zabbix", setting: "username", name: "ZABBIX_USERNAME"},
	{provider: "zabbix", setting: "password", name: "ZABBIX_PASSWORD"},
}

// ResolveSettings fills empty backend credentials from the settings store.
// A backend left unselected in the file is selected when the store holds its
// credentials.
func (c *Config) ResolveSettings(lookup SettingLookup) error {
	if err := resolve(&c.DNS.ProviderConfig, dnsBindings, lookup); err != nil {
		return fmt.Errorf("resolving dns settings: %w", err)
	}
	if err := resolve(&c.Monitoring.ProviderConfig, monitoringBindings, lookup); err != nil {
		return fmt.Errorf("resolving monitoring settings: %w", err)
	}
	return nil
}

func resolve(p *ProviderConfig, bindings []storeBinding, lookup SettingLookup) error {
	if p.Settings == nil {
		p.Settings = map[string]string{}
	}
	for _, b := range bindings {
		if p.Provider != "" && p.Provider != b.provider {
			continue
		}
		if p.Settings[b.setting] != "" {
			continue
		}
		value, ok, err := lookup(b.name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", b.name, err)
		}
		if !ok || value == "" {
			continue
		}
		p.Settings[b.setting] = value
		if p.Provider == "" {
			p.Provider = b.provider
		}
	}
	return nil
}
