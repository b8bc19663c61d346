// Package providers imports all monitoring backends to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring/zabbix"
)
