package main

import (
	"github.com/yuriy-kovalchuk/yk-netsync/internal/cli"
	_ "github.com/yuriy-kovalchuk/yk-netsync/internal/dns/providers"
	_ "github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring/providers"
)

var Version = "dev"

func main() {
	cli.Version = Version
	cli.Execute()
}
