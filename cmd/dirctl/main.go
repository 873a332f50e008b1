package main

import (
	"os"

	"github.com/isometry/terraform-provider-directory/cmd/dirctl/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := commands.Execute(version + " (" + commit + ")"); err != nil {
		os.Exit(1)
	}
}
