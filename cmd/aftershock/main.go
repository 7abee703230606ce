// Command aftershock validates, plots, compares and publishes aftershock
// catalogs, and serves the catalog submission API.
package main

import (
	"context"
	"os"

	"github.com/couchcryptid/aftershock-catalog/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
