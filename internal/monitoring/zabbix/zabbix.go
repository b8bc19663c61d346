// Package zabbix implements monitoring.API over the Zabbix JSON-RPC API.
package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

func init() {
	monitoring.Register("zabbix", func(log logr.Logger, settings map[string]string) (monitoring.API, error) {
		return New(log, settings)
	})
}

const endpointPath = "api_jsonrpc.php"

// APIError is a JSON-RPC error object returned by Zabbix.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("zabbix: api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("zabbix: api error %d: %s %s", e.Code, e.Message, e.Data)
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      int64           `json:"id"`
}

// API talks to one Zabbix server. The session is opened on first use with
// user.login unless a static api_token is configured.
type API struct {
	url      string
	username string
	password string
	client   *http.Client
	log      logr.Logger
	nextID   atomic.Int64

	mu     sync.Mutex
	token  string
	static bool
	closed bool
}

// New creates a Zabbix API client from the given settings map.
// Required settings: url, plus username and password unless api_token is set.
// Optional settings: api_token, skip_tls_verify (default false), timeout (default 30s).
func New(log logr.Logger, settings map[string]string) (*API, error) {
	base := settings["url"]
	if base == "" {
		return nil, fmt.Errorf("zabbix: missing required setting 'url'")
	}
	token := settings["api_token"]
	if token == "" {
		if settings["username"] == "" {
			return nil, fmt.Errorf("zabbix: missing required setting 'username'")
		}
		if settings["password"] == "" {
			return nil, fmt.Errorf("zabbix: missing required setting 'password'")
		}
	}

	timeout := 30 * time.Second
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("zabbix: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	url := strings.TrimRight(base, "/")
	if !strings.HasSuffix(url, endpointPath) {
		url += "/" + endpointPath
	}

	return &API{
		url:      url,
		username: settings["username"],
		password: settings["password"],
		client:   &http.Client{Transport: transport, Timeout: timeout},
		log:      log,
		token:    token,
		static:   token != "",
	}, nil
}

// do sends one JSON-RPC request and decodes its result into out.
func (a *API) do(ctx context.Context, token, method string, params, out interface{}) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      a.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("zabbix: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("zabbix: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("zabbix: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("zabbix: %s returned status %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpc response
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return fmt.Errorf("zabbix: decode %s response: %w", method, err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("zabbix: %s: %w", method, rpc.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return fmt.Errorf("zabbix: decode %s result: %w", method, err)
	}
	return nil
}

// session returns the auth token, logging in when needed.
func (a *API) session(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return "", monitoring.ErrNotLoggedIn
	}
	if a.token != "" {
		return a.token, nil
	}

	var token string
	err := a.do(ctx, "", "user.login", map[string]string{
		"username": a.username,
		"password": a.password,
	}, &token)
	if err != nil {
		return "", err
	}
	a.token = token
	a.log.V(1).Info("logged in", "url", a.url, "username", a.username)
	return token, nil
}

// call invokes an authenticated method.
func (a *API) call(ctx context.Context, method string, params, out interface{}) error {
	token, err := a.session(ctx)
	if err != nil {
		return err
	}
	return a.do(ctx, token, method, params, out)
}

// Logout ends a session opened by user.login. Later calls fail with
// monitoring.ErrNotLoggedIn.
func (a *API) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.static || a.token == "" {
		return nil
	}
	token := a.token
	a.token = ""
	if err := a.do(ctx, token, "user.logout", []string{}, nil); err != nil {
		return err
	}
	a.log.V(1).Info("logged out", "url", a.url)
	return nil
}
