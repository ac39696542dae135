// Package main is the entry point for x-post.
package main

import (
	"fmt"
	"os"

	"github.com/andreichenchik/x-post-cli/internal/cli"
)

func main() {
	cli.Init()

	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
