// Command pbv computes, stores and serves rolling price-by-volume profiles.
package main

import (
	"os"

	"pbv-lab/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
