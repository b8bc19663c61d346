// Package providers imports all DNS provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-netsync/internal/dns/cloudflare"
	_ "github.com/yuriy-kovalchuk/yk-netsync/internal/dns/opnsense"
)
