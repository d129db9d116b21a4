package main

import (
	"notashelf.dev/flakecheck/cmd"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
