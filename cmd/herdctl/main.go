// Package main provides herdctl, the operator CLI for herdcore stores.
package main

import (
	"fmt"
	"os"
)

// Version is set by build flags.
var Version = "dev"

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "herdctl:", err)
		os.Exit(1)
	}
}
