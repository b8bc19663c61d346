package config

import (
	"errors"
	"testing"
)

func mapLookup(values map[string]string) SettingLookup {
	return func(name string) (string, bool, error) {
		v, ok := values[name]
		return v, ok, nil
	}
}

func TestLoadFromPath_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_API_TOKEN", "token-from-env")
	t.Setenv("TEST_ZABBIX_PASSWORD", "password-from-env")

	cfg, err := LoadFromPath(writeConfig(t, `dns:
  provider: cloudflare
  settings:
    api_token: "${TEST_API_TOKEN}"
monitoring:
  provider: zabbix
  settings:
    url: "https://zabbix.local"
    password: "${TEST_ZABBIX_PASSWORD}"
    username: "${UNSET_VAR_THAT_DOES_NOT_EXIST}"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DNS.Settings["api_token"] != "token-from-env" {
		t.Errorf("expected api_token 'token-from-env', got %q", cfg.DNS.Settings["api_token"])
	}
	if cfg.Monitoring.Settings["password"] != "password-from-env" {
		t.Errorf("expected password 'password-from-env', got %q", cfg.Monitoring.Settings["password"])
	}
	// Unset env var expands to empty string.
	if cfg.Monitoring.Settings["username"] != "" {
		t.Errorf("expected username '' for unset env var, got %q", cfg.Monitoring.Settings["username"])
	}
	// Non-env values should remain unchanged.
	if cfg.Monitoring.Settings["url"] != "https://zabbix.local" {
		t.Errorf("expected url unchanged, got %q", cfg.Monitoring.Settings["url"])
	}
}

func TestResolveSettings_FillsEmptyValues(t *testing.T) {
	cfg := Default()
	cfg.DNS.Provider = "cloudflare"
	cfg.Monitoring.Provider = "zabbix"
	cfg.Monitoring.Settings["url"] = "https://from-file"

	err := cfg.ResolveSettings(mapLookup(map[string]string{
		"CLOUDFLARE_API_KEY": "cf-token",
		"ZABBIX_URL":         "https://from-store",
		"ZABBIX_USERNAME":    "Admin",
		"ZABBIX_PASSWORD":    "zabbix",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DNS.Settings["api_token"] != "cf-token" {
		t.Errorf("expected api_token from store, got %q", cfg.DNS.Settings["api_token"])
	}
	if cfg.Monitoring.Settings["url"] != "https://from-file" {
		t.Errorf("expected file url to win, got %q", cfg.Monitoring.Settings["url"])
	}
	if cfg.Monitoring.Settings["username"] != "Admin" || cfg.Monitoring.Settings["password"] != "zabbix" {
		t.Errorf("expected credentials from store, got %v", cfg.Monitoring.Settings)
	}
}

func TestResolveSettings_SelectsBackend(t *testing.T) {
	cfg := Default()

	err := cfg.ResolveSettings(mapLookup(map[string]string{"CLOUDFLARE_API_KEY": "cf-token"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DNS.Provider != "cloudflare" {
		t.Errorf("expected dns provider 'cloudflare', got %q", cfg.DNS.Provider)
	}
	if cfg.Monitoring.Provider != "" {
		t.Errorf("expected no monitoring provider, got %q", cfg.Monitoring.Provider)
	}
}

func TestResolveSettings_OtherBackendUntouched(t *testing.T) {
	cfg := Default()
	cfg.DNS.Provider = "opnsense"

	err := cfg.ResolveSettings(mapLookup(map[string]string{"CLOUDFLARE_API_KEY": "cf-token"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cfg.DNS.Settings["api_token"]; ok {
		t.Error("expected opnsense settings to be left alone")
	}
}

func TestResolveSettings_LookupError(t *testing.T) {
	cfg := Default()
	boom := errors.New("boom")

	err := cfg.ResolveSettings(func(string) (string, bool, error) { return "", false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}
